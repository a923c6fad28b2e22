// Package core holds the domain model shared by every other package.
//
// This file contains parsing for user-supplied Rupiah amounts. Rupiah
// carries no sub-unit precision, so amounts are whole units; input may
// still use "." or "," as thousands separators ("200.000") or carry a
// zero decimal tail ("200000,00").
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts an amount string to whole Rupiah units.
//
// Accepted forms:
//
//	ParseAmount("200000")     -> 200000, nil
//	ParseAmount("200.000")    -> 200000, nil
//	ParseAmount("200000,00")  -> 200000, nil
//
// Signs, zero amounts, and non-zero fractional parts are rejected.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return 0, ErrInvalidAmount
		}
	}

	groups := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == ','
	})
	if len(groups) == 0 || strings.HasSuffix(s, ".") || strings.HasSuffix(s, ",") ||
		strings.HasPrefix(s, ".") || strings.HasPrefix(s, ",") {
		return 0, ErrInvalidAmount
	}

	digits := groups[0]
	if len(groups) > 1 {
		last := groups[len(groups)-1]
		mid := groups[1 : len(groups)-1]
		switch len(last) {
		case 1, 2:
			// Decimal tail; must be zero since Rupiah has no cents.
			if strings.Trim(last, "0") != "" {
				return 0, ErrInvalidAmount
			}
			for _, g := range mid {
				if len(g) != 3 {
					return 0, ErrInvalidAmount
				}
				digits += g
			}
		case 3:
			// Thousands grouping all the way through.
			for _, g := range append(mid, last) {
				if len(g) != 3 {
					return 0, ErrInvalidAmount
				}
				digits += g
			}
		default:
			return 0, ErrInvalidAmount
		}
	}

	units, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if units <= 0 {
		return 0, ErrInvalidAmount
	}
	return units, nil
}
