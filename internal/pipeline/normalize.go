package pipeline

import (
	"math"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

// NormalizeUsages turns raw extracted rows into the canonical list: weights
// must be positive, empty strings become nil, Material falls back to the first
// word of Type, and confidence stays consistent with the classifying fields
// present (type and color never low, neither never high). Order is kept.
func NormalizeUsages(raw []internal.FilamentUsage) []internal.FilamentUsage {
	out := make([]internal.FilamentUsage, 0, len(raw))
	for _, u := range raw {
		if math.IsNaN(u.WeightGrams) || math.IsInf(u.WeightGrams, 0) || u.WeightGrams <= 0 {
			continue
		}

		n := internal.FilamentUsage{
			Material:        trimmed(u.Material),
			Type:            trimmed(u.Type),
			Color:           trimmed(u.Color),
			ColorHex:        trimmed(u.ColorHex),
			WeightGrams:     u.WeightGrams,
			ProductCode:     trimmed(u.ProductCode),
			MatchConfidence: u.MatchConfidence,
		}
		if u.LengthMeters != nil && *u.LengthMeters > 0 && !math.IsInf(*u.LengthMeters, 0) {
			n.LengthMeters = util.FloatPtr(*u.LengthMeters)
		}
		if n.Material == nil && n.Type != nil {
			n.Material = util.NonEmpty(util.FirstWord(*n.Type))
		}
		n.MatchConfidence = clampConfidence(n)
		out = append(out, n)
	}
	return out
}

func clampConfidence(u internal.FilamentUsage) internal.MatchConfidence {
	c := u.MatchConfidence
	if c.Rank() == 0 {
		c = internal.ConfidenceLow
	}
	hasType := u.Type != nil
	hasColor := u.ColorHex != nil || u.Color != nil
	if hasType && hasColor && c == internal.ConfidenceLow {
		return internal.ConfidenceMedium
	}
	if !hasType && !hasColor && c == internal.ConfidenceHigh {
		return internal.ConfidenceMedium
	}
	return c
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	return util.NonEmpty(*v)
}
