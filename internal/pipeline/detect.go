package pipeline

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

type ConfigFormat string

const (
	ConfigJSON     ConfigFormat = "json"
	ConfigXML      ConfigFormat = "xml"
	ConfigKeyValue ConfigFormat = "key_value"
	ConfigUnknown  ConfigFormat = "unknown"
)

var keyValueLine = regexp.MustCompile(`^\s*;?\s*[A-Za-z][\w .\[\]()-]*?\s*[:=]`)

var printExtensions = map[string]internal.PrintFileFormat{
	"3mf":   internal.Format3MF,
	"gcode": internal.FormatGCode,
	"gco":   internal.FormatGCode,
}

// PrintExtensions lists the recognized print-file extensions, sorted.
func PrintExtensions() []string {
	out := make([]string, 0, len(printExtensions))
	for ext := range printExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// DetectFormat picks the extractor for a filename by extension.
func DetectFormat(filename string) (internal.PrintFileFormat, string) {
	ext := util.FileExtension(filename)
	if format, ok := printExtensions[ext]; ok {
		return format, ext
	}
	return internal.FormatUnsupported, ext
}

// DetectConfigFormat classifies a metadata entry body.
func DetectConfigFormat(text string) ConfigFormat {
	trimmed := stripBOM(text)
	if trimmed == "" {
		return ConfigUnknown
	}

	switch trimmed[0] {
	case '{', '[':
		if json.Valid([]byte(trimmed)) {
			return ConfigJSON
		}
	case '<':
		return ConfigXML
	}

	for _, line := range strings.Split(trimmed, "\n") {
		if keyValueLine.MatchString(line) {
			return ConfigKeyValue
		}
	}
	return ConfigUnknown
}

func stripBOM(text string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "\ufeff"))
}
