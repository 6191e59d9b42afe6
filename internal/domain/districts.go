package domain

// Districts is the fixed, case-sensitive enumeration of the 18 Hong Kong
// districts a property can be listed under. The exact spellings are part of
// the wire contract and are validated identically on client and server.
var Districts = []string{
	"Central and Western",
	"Eastern",
	"Islands",
	"Kowloon City",
	"Kwai Tsing",
	"Kwun Tong",
	"North",
	"Sai Kung",
	"Sha Tin",
	"Sham Shui Po",
	"Southern",
	"Tai Po",
	"Tsuen Wan",
	"Tuen Mun",
	"Wan Chai",
	"Wong Tai Sin",
	"Yau Tsim Mong",
	"Yuen Long",
}

var districtSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Districts))
	for _, d := range Districts {
		m[d] = struct{}{}
	}
	return m
}()

// ValidDistrict reports whether s is a member of the district enumeration.
// Matching is exact and case-sensitive.
func ValidDistrict(s string) bool {
	_, ok := districtSet[s]
	return ok
}
