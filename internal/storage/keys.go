package storage

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// unsafeFilenameRE matches characters that are stripped from client-supplied
// filenames before they become part of a storage key.
var unsafeFilenameRE = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// BuildKey constructs the stable storage key for an upload:
// {category}/{userID}/{unixMillis}-{filename}. The millisecond timestamp in a
// per-user namespace makes collisions negligible for this workload; it is a
// namespacing scheme, not a hardened one.
func BuildKey(category, userID, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%d-%s", category, userID, now.UnixMilli(), SanitizeFilename(filename))
}

// SanitizeFilename reduces a client-supplied filename to a safe key suffix:
// path separators and unusual characters are dropped, and an empty result
// falls back to "file".
func SanitizeFilename(name string) string {
	// Keep only the final path element; clients may send full paths.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeFilenameRE.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// NormalizeKey maps a stored media reference to its stable key form.
//
// References written by this backend are already bare keys and pass through
// unchanged. Rows created before the key migration may instead hold a full
// signed URL; for those the path component is extracted (percent-decoded
// exactly once, bucket prefix stripped for path-style URLs) so that
// re-signing never produces a nested, double-encoded URL. Values that cannot
// be recognized are returned as given rather than corrupted.
func NormalizeKey(value, bucket string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return v
	}
	low := strings.ToLower(v)
	if !strings.HasPrefix(low, "http://") && !strings.HasPrefix(low, "https://") {
		return v
	}

	u, err := url.Parse(v)
	if err != nil {
		return v
	}
	// u.Path is the decoded form, so an already-signed URL decodes exactly
	// once here and query credentials are discarded.
	key := strings.TrimPrefix(u.Path, "/")
	if bucket != "" {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	if key == "" {
		return v
	}

	// Legacy URLs sometimes carry extra prefixes (CDN path, nested folder).
	// Anchor on the first known category segment when present.
	for _, cat := range []string{CategoryPropertyImage, CategoryVirtualTour} {
		if strings.HasPrefix(key, cat+"/") {
			return key
		}
		if i := strings.Index(key, "/"+cat+"/"); i >= 0 {
			return key[i+1:]
		}
	}
	return key
}
