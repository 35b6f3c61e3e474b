package util

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	rePrintExt   = regexp.MustCompile(`(?i)\.(3mf|gcode|gco)$`)
	reHexColor   = regexp.MustCompile(`^[0-9a-f]{3,8}$`)
	caseFolder   = cases.Fold()
	quoteTrimset = "\"'` "
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func TrimQuotes(input string) string {
	return strings.Trim(strings.TrimSpace(input), quoteTrimset)
}

// FirstWord returns the leading token of a filament profile name, e.g. "PLA"
// for "PLA Basic".
func FirstWord(input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Fold case-folds text for comparisons.
func Fold(input string) string {
	return caseFolder.String(strings.TrimSpace(input))
}

// NormalizeHex lowercases a color value and drops a leading '#'. It does not
// validate; named colors come back folded.
func NormalizeHex(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "#")
	return Fold(s)
}

func LooksLikeHex(input string) bool {
	return reHexColor.MatchString(NormalizeHex(input))
}

// StripPrintExtension removes print-file extensions, repeatedly, so that
// Bambu's "part.gcode.3mf" becomes "part".
func StripPrintExtension(filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	for {
		stripped := rePrintExt.ReplaceAllString(name, "")
		if stripped == name || stripped == "" {
			return name
		}
		name = stripped
	}
}

// FileExtension returns the text after the last dot, lowercased. A name with
// no dot is returned whole.
func FileExtension(filename string) string {
	name := strings.TrimSpace(filename)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.ToLower(name)
}
