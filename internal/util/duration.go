package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var durationUnits = []struct {
	re      *regexp.Regexp
	seconds int
}{
	{regexp.MustCompile(`(?i)(\d+)\s*d`), 86400},
	{regexp.MustCompile(`(?i)(\d+)\s*h`), 3600},
	{regexp.MustCompile(`(?i)(\d+)\s*m`), 60},
	{regexp.MustCompile(`(?i)(\d+)\s*s`), 1},
}

// ParsePrintTime converts a slicer print-time value to seconds. Bare
// integers are seconds; otherwise any of the Nd, Nh, Nm, Ns components are
// summed, in whatever order they appear. Missing components count as 0.
func ParsePrintTime(input string) int {
	s := strings.TrimSpace(input)
	if IsInteger(s) {
		v, err := strconv.Atoi(s)
		if err == nil {
			return v
		}
	}

	total := 0
	for _, unit := range durationUnits {
		m := unit.re.FindStringSubmatch(s)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		total += n * unit.seconds
	}
	return total
}

// FormatPrintTime renders seconds the way slicers print them, e.g. "1h 12m 5s".
func FormatPrintTime(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	var parts []string
	for _, unit := range []struct {
		suffix  string
		seconds int
	}{{"d", 86400}, {"h", 3600}, {"m", 60}, {"s", 1}} {
		if n := seconds / unit.seconds; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, unit.suffix))
			seconds %= unit.seconds
		}
	}
	return strings.Join(parts, " ")
}
