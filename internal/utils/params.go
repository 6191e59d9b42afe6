// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// IntPtr parses s as an int, returning nil for empty or unparsable input.
// Used for optional numeric query filters where garbage means "no filter".
func IntPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// DecimalPtr parses s as an exact decimal, returning nil for empty or
// unparsable input. Used for optional price bound filters.
func DecimalPtr(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
