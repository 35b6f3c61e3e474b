package pipeline

import (
	"sort"
	"strings"

	"spooltracker/internal"
	"spooltracker/internal/config"
	"spooltracker/internal/inventory"
	"spooltracker/internal/util"
)

const (
	scoreHex         = 100
	scoreProductCode = 80
	scoreMaterial    = 50
)

type Matcher struct {
	autoSelect internal.MatchConfidence
	index      *inventory.Index
}

// NewMatcher indexes a snapshot of spools. The matcher never refreshes it;
// build a new one when the inventory changes.
func NewMatcher(cfg config.Config, spools []internal.Spool) *Matcher {
	return &Matcher{
		autoSelect: internal.MatchConfidence(strings.ToLower(cfg.AutoSelectConfidence)),
		index:      inventory.BuildIndex(spools),
	}
}

func (m *Matcher) Match(usage internal.FilamentUsage) internal.UsageMatch {
	candidates := make([]internal.SpoolMatch, 0)
	for _, spool := range m.index.Spools {
		score, reason := m.score(usage, spool)
		if score == 0 {
			continue
		}
		candidates = append(candidates, internal.SpoolMatch{
			Spool:             spool,
			MatchScore:        score,
			Reason:            reason,
			InsufficientStock: spool.RemainingGrams() < usage.WeightGrams,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].MatchScore > candidates[j].MatchScore
	})

	if len(candidates) == 0 {
		return internal.UsageMatch{Usage: usage, Status: internal.MatchNotFound, Candidates: candidates}
	}

	result := internal.UsageMatch{Usage: usage, Status: internal.MatchFound, Candidates: candidates}
	if m.autoSelects(usage.MatchConfidence) {
		result.SelectedSpoolID = util.Int64Ptr(candidates[0].Spool.ID)
	}
	return result
}

func (m *Matcher) MatchAll(usages []internal.FilamentUsage) []internal.UsageMatch {
	out := make([]internal.UsageMatch, 0, len(usages))
	for _, u := range usages {
		out = append(out, m.Match(u))
	}
	return out
}

func (m *Matcher) autoSelects(c internal.MatchConfidence) bool {
	if m.autoSelect.Rank() == 0 {
		// "never" or unset
		return false
	}
	return c.Rank() >= m.autoSelect.Rank()
}

func (m *Matcher) score(usage internal.FilamentUsage, spool internal.Spool) (int, internal.MatchReason) {
	if usage.ColorHex != nil {
		if hex := util.NormalizeHex(*usage.ColorHex); hex != "" && hex == m.index.HexByID[spool.ID] {
			return scoreHex, internal.ReasonHex
		}
	}
	if usage.ProductCode != nil {
		if code := util.NormalizeSpaces(*usage.ProductCode); code != "" && code == m.index.CodeByID[spool.ID] {
			return scoreProductCode, internal.ReasonProductCode
		}
	}
	if usage.Material != nil {
		material := util.Fold(*usage.Material)
		if spoolMaterial := m.index.MaterialByID[spool.ID]; material != "" && spoolMaterial != "" && strings.Contains(spoolMaterial, material) {
			return scoreMaterial, internal.ReasonMaterial
		}
	}
	return 0, internal.ReasonNone
}

// ScoreSpool scores a single usage/spool pair without an index. It returns
// 0 and ReasonNone when no signal matches.
func ScoreSpool(usage internal.FilamentUsage, spool internal.Spool) (int, internal.MatchReason) {
	m := &Matcher{index: inventory.BuildIndex([]internal.Spool{spool})}
	return m.score(usage, spool)
}
