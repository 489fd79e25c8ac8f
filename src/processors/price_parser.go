package processors

import (
	"strconv"
	"strings"
)

// ParsePrice converts user-entered price shorthand into an amount of
// coins. It accepts commas, surrounding whitespace, and a single trailing
// case-insensitive multiplier suffix: "k" (x1,000) or "m" (x1,000,000).
// The multiplied value is floored toward zero.
//
// ok is false when the input is empty, becomes empty after stripping
// commas and the suffix, or the remainder does not parse as a number.
// Negative inputs are not rejected; they pass through arithmetically.
func ParsePrice(input string) (amount int64, ok bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}

	multiplier := float64(1)
	// Only a single trailing rune is treated as a suffix, so "m" wins
	// over "k" in malformed inputs like "5km" (which then fails to parse).
	switch s[len(s)-1] {
	case 'm', 'M':
		multiplier = 1_000_000
		s = s[:len(s)-1]
	case 'k', 'K':
		multiplier = 1_000
		s = s[:len(s)-1]
	}
	if s == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return int64(value * multiplier), true
}
