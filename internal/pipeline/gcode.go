package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

const maxGCodeLineBytes = 1 << 20

// gcodeScan accumulates header values while lines are scanned.
type gcodeScan struct {
	totalFound bool
	weights    []float64
	lengths    []float64
	lengthsMM  []float64
	types      []string
	colors     []string
}

type gcodeMatcher struct {
	re    *regexp.Regexp
	apply func(value string, scan *gcodeScan, result *internal.ParsedPrintFile, opts Options)
}

// Each matcher sees every scanned line; one line may feed several of them.
// Adding a slicer dialect means adding a row.
var gcodeMatchers = []gcodeMatcher{
	{
		re: regexp.MustCompile(`(?i)^;\s*total[ _]filament[ _](?:used|weight)\s*\[g\]\s*[:=]\s*(.+)$`),
		apply: func(v string, scan *gcodeScan, result *internal.ParsedPrintFile, _ Options) {
			if scan.totalFound {
				return
			}
			w, ok := util.ParseNumber(v)
			if !ok || w <= 0 {
				return
			}
			scan.totalFound = true
			result.FilamentUsages = append(result.FilamentUsages, internal.FilamentUsage{
				WeightGrams:     w,
				MatchConfidence: internal.ConfidenceLow,
			})
		},
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*filament[ _]used\s*\[g\]\s*[:=]\s*(.+)$`),
		apply: func(v string, scan *gcodeScan, _ *internal.ParsedPrintFile, _ Options) {
			scan.weights = append(scan.weights, util.ParseNumberList(v)...)
		},
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*filament[ _]used\s*\[m\]\s*[:=]\s*(.+)$`),
		apply: func(v string, scan *gcodeScan, _ *internal.ParsedPrintFile, _ Options) {
			scan.lengths = append(scan.lengths, util.ParseNumberList(v)...)
		},
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*filament[ _]used\s*\[mm\]\s*[:=]\s*(.+)$`),
		apply: func(v string, scan *gcodeScan, _ *internal.ParsedPrintFile, _ Options) {
			for _, mm := range util.ParseNumberList(v) {
				scan.lengthsMM = append(scan.lengthsMM, mm/1000)
			}
		},
	},
	{
		// Cura: ";Filament used: 1.23456m, 0.5m"
		re: regexp.MustCompile(`(?i)^;\s*filament used\s*:\s*(.+m)\s*$`),
		apply: func(v string, scan *gcodeScan, _ *internal.ParsedPrintFile, _ Options) {
			scan.lengths = append(scan.lengths, util.ParseNumberList(v)...)
		},
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*filament[ _]type\s*[:=]\s*(.+)$`),
		apply: func(v string, scan *gcodeScan, _ *internal.ParsedPrintFile, _ Options) {
			scan.types = append(scan.types, util.SplitList(v)...)
		},
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*filament[ _]colou?r\s*[:=]\s*(.+)$`),
		apply: func(v string, scan *gcodeScan, _ *internal.ParsedPrintFile, _ Options) {
			scan.colors = append(scan.colors, util.SplitList(v)...)
		},
	},
	{
		// "Bambu PLA Basic @BBL X1C" contributes "Bambu PLA Basic".
		re: regexp.MustCompile(`(?i)^;\s*filament[ _]settings[ _]id\s*[:=]\s*(.+)$`),
		apply: func(v string, scan *gcodeScan, _ *internal.ParsedPrintFile, _ Options) {
			for _, part := range util.SplitList(v) {
				profile, _, found := strings.Cut(part, "@")
				if !found {
					continue
				}
				if profile = util.TrimQuotes(profile); profile != "" {
					scan.types = append(scan.types, profile)
				}
			}
		},
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*estimated[ _]printing[ _]time[^=:]*[:=]\s*(.+)$`),
		apply: setPrintTime,
	},
	{
		// Bambu: "; model printing time: 1h 2m; total estimated time: 1h 10m"
		re: regexp.MustCompile(`(?i)^;.*total[ _]estimated[ _]time\s*[:=]\s*([^;]+)`),
		apply: setPrintTime,
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*TIME\s*:\s*(\d+)\s*$`),
		apply: setPrintTime,
	},
	{
		re: regexp.MustCompile(`(?i)^;\s*generated (?:by|with)\s+(.+)$`),
		apply: func(v string, _ *gcodeScan, result *internal.ParsedPrintFile, _ Options) {
			if result.Slicer == nil {
				result.Slicer = util.NonEmpty(v)
			}
		},
	},
}

func setPrintTime(v string, _ *gcodeScan, result *internal.ParsedPrintFile, _ Options) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	result.PrintTime = util.IntPtr(util.ParsePrintTime(v))
}

// ParseGCode extracts filament usage from the header comments of a G-code
// file. Only the first opts.GCodeScanLines lines are examined.
func ParseGCode(filename string, r io.Reader, opts Options) internal.ParsedPrintFile {
	result := internal.ParsedPrintFile{
		Filename:       filename,
		Format:         internal.FormatGCode,
		ProjectName:    util.NonEmpty(util.StripPrintExtension(filename)),
		FilamentUsages: []internal.FilamentUsage{},
		ParseErrors:    []string{},
	}

	limit := opts.GCodeScanLines
	if limit <= 0 {
		limit = DefaultOptions().GCodeScanLines
	}

	scan := &gcodeScan{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxGCodeLineBytes)
	for lines := 0; lines < limit && scanner.Scan(); lines++ {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ";") {
			continue
		}
		for _, m := range gcodeMatchers {
			if sub := m.re.FindStringSubmatch(line); sub != nil {
				m.apply(strings.TrimSpace(sub[1]), scan, &result, opts)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		result.ParseErrors = append(result.ParseErrors, fmt.Sprintf("Failed to parse G-code file: %v", err))
	}

	scan.reconcile(&result, opts)
	result.FilamentUsages = NormalizeUsages(result.FilamentUsages)
	if len(result.FilamentUsages) == 0 {
		result.ParseErrors = append(result.ParseErrors, "No filament usage data found in G-code")
	}
	return result
}

func (s *gcodeScan) reconcile(result *internal.ParsedPrintFile, opts Options) {
	if s.totalFound {
		return
	}
	lengths := s.lengths
	if len(lengths) == 0 {
		lengths = s.lengthsMM
	}

	// an all-zero weight line (no density configured) falls back to lengths
	switch {
	case slices.ContainsFunc(s.weights, func(w float64) bool { return w > 0 }):
		for i, w := range s.weights {
			if w <= 0 {
				continue
			}
			u := internal.FilamentUsage{
				WeightGrams:     w,
				Type:            stringAt(s.types, i),
				ColorHex:        stringAt(s.colors, i),
				MatchConfidence: internal.ConfidenceLow,
			}
			if i < len(lengths) && lengths[i] > 0 {
				u.LengthMeters = util.FloatPtr(lengths[i])
			}
			if u.Type != nil {
				u.Material = util.NonEmpty(util.FirstWord(*u.Type))
				u.MatchConfidence = internal.ConfidenceMedium
				if u.ColorHex != nil {
					u.MatchConfidence = internal.ConfidenceHigh
				}
			}
			result.FilamentUsages = append(result.FilamentUsages, u)
		}
	case len(lengths) > 0:
		factor := opts.GramsPerMeter
		if factor <= 0 {
			factor = DefaultOptions().GramsPerMeter
		}
		for i, m := range lengths {
			if m <= 0 {
				continue
			}
			u := internal.FilamentUsage{
				WeightGrams:     m * factor,
				LengthMeters:    util.FloatPtr(m),
				Type:            stringAt(s.types, i),
				ColorHex:        stringAt(s.colors, i),
				MatchConfidence: internal.ConfidenceLow,
			}
			if u.Type != nil {
				u.Material = util.NonEmpty(util.FirstWord(*u.Type))
			}
			result.FilamentUsages = append(result.FilamentUsages, u)
		}
	}
}

func stringAt(list []string, i int) *string {
	if i < 0 || i >= len(list) {
		return nil
	}
	return util.NonEmpty(list[i])
}
