package inventory

import (
	"spooltracker/internal"
	"spooltracker/internal/util"
)

// Index keeps spools in input order with their comparison keys precomputed.
type Index struct {
	Spools       []internal.Spool
	HexByID      map[int64]string
	CodeByID     map[int64]string
	MaterialByID map[int64]string
}

func BuildIndex(spools []internal.Spool) *Index {
	idx := &Index{
		Spools:       make([]internal.Spool, 0, len(spools)),
		HexByID:      map[int64]string{},
		CodeByID:     map[int64]string{},
		MaterialByID: map[int64]string{},
	}

	for _, s := range spools {
		idx.Spools = append(idx.Spools, s)

		if hex := util.NormalizeHex(s.ColorHexCode); hex != "" {
			idx.HexByID[s.ID] = hex
		}
		if s.ColorProductCode != nil {
			if code := util.NormalizeSpaces(*s.ColorProductCode); code != "" {
				idx.CodeByID[s.ID] = code
			}
		}
		if material := util.Fold(s.MaterialName); material != "" {
			idx.MaterialByID[s.ID] = material
		}
	}

	return idx
}

// Available drops empty spools and spools with nothing left on them.
func Available(spools []internal.Spool) []internal.Spool {
	out := make([]internal.Spool, 0, len(spools))
	for _, s := range spools {
		if s.IsEmpty || s.RemainingGrams() <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}
