package pipeline

import (
	"errors"
	"fmt"
	"math"

	"spooltracker/internal"
)

var (
	ErrSpoolNotFound = errors.New("spool not found")
	ErrNoDeductions  = errors.New("no deductions to apply")
)

// PlanDeductions turns confirmed assignments into new spool weights.
// Assignments to the same spool are summed first; weights never go below
// zero and a spool left under emptyThreshold grams is flagged empty.
func PlanDeductions(assignments []internal.Assignment, spools []internal.Spool, emptyThreshold float64) ([]internal.Deduction, error) {
	byID := make(map[int64]internal.Spool, len(spools))
	for _, s := range spools {
		byID[s.ID] = s
	}

	order := []int64{}
	grams := map[int64]float64{}
	for _, a := range assignments {
		if a.GramsUsed <= 0 || math.IsNaN(a.GramsUsed) || math.IsInf(a.GramsUsed, 0) {
			continue
		}
		if _, ok := byID[a.SpoolID]; !ok {
			return nil, fmt.Errorf("spool %d: %w", a.SpoolID, ErrSpoolNotFound)
		}
		if _, seen := grams[a.SpoolID]; !seen {
			order = append(order, a.SpoolID)
		}
		grams[a.SpoolID] += a.GramsUsed
	}
	if len(order) == 0 {
		return nil, ErrNoDeductions
	}

	out := make([]internal.Deduction, 0, len(order))
	for _, id := range order {
		prev := byID[id].RemainingGrams()
		next := math.Max(0, prev-grams[id])
		out = append(out, internal.Deduction{
			SpoolID:             id,
			GramsUsed:           grams[id],
			PreviousWeightGrams: prev,
			NewWeightGrams:      next,
			MarkEmpty:           next < emptyThreshold,
		})
	}
	return out, nil
}
