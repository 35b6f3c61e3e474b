package pipeline

import (
	"strings"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

var keyNormalizer = strings.NewReplacer("_", " ", "[", " ", "]", " ", "(", " ", ")", " ", "-", " ")

// usageAt returns the usage at index i, appending low-confidence entries until
// the slot exists. Shorter field lists leave later entries untouched.
func usageAt(usages *[]internal.FilamentUsage, i int) *internal.FilamentUsage {
	for len(*usages) <= i {
		*usages = append(*usages, internal.FilamentUsage{MatchConfidence: internal.ConfidenceLow})
	}
	return &(*usages)[i]
}

// upgradeConfidence raises (never lowers) an entry's confidence from the
// classifying fields it now carries.
func upgradeConfidence(u *internal.FilamentUsage) {
	derived := classifiedConfidence(u.Type, u.ColorHex)
	if derived.Rank() > u.MatchConfidence.Rank() {
		u.MatchConfidence = derived
	}
}

func classifiedConfidence(typ, color *string) internal.MatchConfidence {
	hasType := typ != nil && strings.TrimSpace(*typ) != ""
	hasColor := color != nil && strings.TrimSpace(*color) != ""
	switch {
	case hasType && hasColor:
		return internal.ConfidenceHigh
	case hasType || hasColor:
		return internal.ConfidenceMedium
	default:
		return internal.ConfidenceLow
	}
}

func normalizeConfigKey(key string) string {
	key = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(key), ";"))
	return util.NormalizeSpaces(strings.ToLower(keyNormalizer.Replace(key)))
}

func splitKeyValue(line string) (string, string, bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		idx = strings.Index(line, ":")
	}
	if idx <= 0 {
		return "", "", false
	}
	return line[:idx], strings.TrimSpace(line[idx+1:]), true
}

// applyKeyValueConfig reads flat "key = value" / "key: value" text and writes
// comma-delimited values into the result's usages by position.
func applyKeyValueConfig(content string, result *internal.ParsedPrintFile) {
	for _, line := range strings.Split(content, "\n") {
		rawKey, value, ok := splitKeyValue(strings.TrimSpace(line))
		if !ok {
			continue
		}

		switch normalizeConfigKey(rawKey) {
		case "filament used g":
			for i, part := range util.SplitList(value) {
				w, ok := util.ParseNumber(part)
				if !ok || w <= 0 {
					continue
				}
				usageAt(&result.FilamentUsages, i).WeightGrams = w
			}
		case "filament type":
			for i, part := range util.SplitList(value) {
				if part == "" {
					continue
				}
				u := usageAt(&result.FilamentUsages, i)
				u.Type = util.StringPtr(part)
				u.Material = util.StringPtr(util.FirstWord(part))
				upgradeConfidence(u)
			}
		case "filament colour", "filament color":
			for i, part := range util.SplitList(value) {
				if part == "" {
					continue
				}
				u := usageAt(&result.FilamentUsages, i)
				u.ColorHex = util.StringPtr(part)
				upgradeConfidence(u)
			}
		case "print time":
			if value == "" {
				continue
			}
			if secs := util.ParsePrintTime(value); secs > 0 || util.IsInteger(value) {
				result.PrintTime = util.IntPtr(secs)
			}
		}
	}
}
