package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	listSeparator    = regexp.MustCompile(`[,;]`)
	thousandsDotted  = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	leadingNumber    = regexp.MustCompile(`^[+-]?\d*\.?\d+(?:[eE][+-]?\d+)?`)
	integerOnly      = regexp.MustCompile(`^\d+$`)
	unitSuffixSpaces = regexp.MustCompile(`\s+`)
)

// SplitList splits a multi-filament value on commas and semicolons. Empty
// slots are kept so that positions line up across parallel fields.
func SplitList(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	parts := listSeparator.Split(input, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, TrimQuotes(p))
	}
	// a trailing separator is not an extra filament
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

// ParseNumber parses a single numeric token. A lone decimal comma is
// accepted ("42,5"), and trailing unit text is ignored ("12.5g").
func ParseNumber(token string) (float64, bool) {
	s := strings.TrimSpace(TrimQuotes(token))
	s = unitSuffixSpaces.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	if thousandsDotted.MatchString(s) && strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.ReplaceAll(s, ",", ".")
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseNumberList parses a delimited list of numbers. Entries that do not
// parse become 0 and keep their slot.
func ParseNumberList(input string) []float64 {
	parts := SplitList(input)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, ok := ParseNumber(p)
		if !ok {
			v = 0
		}
		out = append(out, v)
	}
	return out
}

func IsInteger(s string) bool {
	return integerOnly.MatchString(strings.TrimSpace(s))
}
