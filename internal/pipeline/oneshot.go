package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spooltracker/internal"
)

// ParseInput parses without touching the store. inputType is "file" (a 3MF
// or G-code path), "gcode_text" (G-code passed inline) or "eml" (a raw
// message whose print attachments are parsed).
func ParseInput(inputType, input string, opts Options) ([]internal.ParsedPrintFile, error) {
	switch inputType {
	case "file":
		parsed, err := ParsePrintFilePath(input, opts)
		if err != nil {
			return nil, err
		}
		return []internal.ParsedPrintFile{parsed}, nil
	case "gcode_text":
		return []internal.ParsedPrintFile{ParseGCode("inline.gcode", strings.NewReader(input), opts)}, nil
	case "eml":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		attachments, _, err := ExtractPrintAttachments(blob)
		if err != nil {
			return nil, err
		}
		out := make([]internal.ParsedPrintFile, 0, len(attachments))
		for _, att := range attachments {
			out = append(out, ParsePrintFile(att.Filename, att.Content, opts))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}

// InputTypeForPath guesses the input type from a path's extension.
func InputTypeForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".eml") {
		return "eml"
	}
	return "file"
}
