package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"spooltracker/internal"
)

// ParsePrintFile picks the extractor by extension. Unsupported files come
// back with a single diagnostic and no usages.
func ParsePrintFile(filename string, content []byte, opts Options) internal.ParsedPrintFile {
	format, ext := DetectFormat(filename)
	switch format {
	case internal.Format3MF:
		return Parse3MF(filename, content, opts)
	case internal.FormatGCode:
		return ParseGCode(filename, bytes.NewReader(content), opts)
	default:
		return internal.ParsedPrintFile{
			Filename:       filename,
			Format:         internal.FormatUnsupported,
			FilamentUsages: []internal.FilamentUsage{},
			ParseErrors:    []string{fmt.Sprintf("Unsupported file format: %s. Please use 3MF or G-code files.", ext)},
		}
	}
}

// ParsePrintFilePath reads a file from disk and parses it. G-code is streamed
// so the scan limit bounds what is read.
func ParsePrintFilePath(path string, opts Options) (internal.ParsedPrintFile, error) {
	name := filepath.Base(path)
	switch format, _ := DetectFormat(name); format {
	case internal.FormatUnsupported:
		return ParsePrintFile(name, nil, opts), nil
	case internal.FormatGCode:
		f, err := os.Open(path)
		if err != nil {
			return internal.ParsedPrintFile{}, err
		}
		defer f.Close()
		return ParseGCode(name, f, opts), nil
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.ParsedPrintFile{}, err
	}
	return ParsePrintFile(name, blob, opts), nil
}
