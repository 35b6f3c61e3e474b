package pipeline

import (
	"errors"
	"testing"

	"spooltracker/internal"
	"spooltracker/internal/util"
)

func TestPlanDeductions(t *testing.T) {
	spools := []internal.Spool{
		{ID: 1, CurrentWeightGrams: util.FloatPtr(500)},
		{ID: 2, CurrentWeightGrams: util.FloatPtr(60)},
		{ID: 3},
	}
	got, err := PlanDeductions([]internal.Assignment{
		{SpoolID: 2, GramsUsed: 25},
		{SpoolID: 1, GramsUsed: 100},
		{SpoolID: 2, GramsUsed: 50},
		{SpoolID: 3, GramsUsed: 0},
	}, spools, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d: %+v", len(got), got)
	}

	if got[0].SpoolID != 2 || got[0].GramsUsed != 75 || got[0].NewWeightGrams != 0 || !got[0].MarkEmpty {
		t.Fatalf("unexpected first: %+v", got[0])
	}
	if got[1].SpoolID != 1 || got[1].PreviousWeightGrams != 500 || got[1].NewWeightGrams != 400 || got[1].MarkEmpty {
		t.Fatalf("unexpected second: %+v", got[1])
	}
}

func TestPlanDeductionsErrors(t *testing.T) {
	spools := []internal.Spool{{ID: 1, CurrentWeightGrams: util.FloatPtr(10)}}

	if _, err := PlanDeductions([]internal.Assignment{{SpoolID: 7, GramsUsed: 1}}, spools, 50); !errors.Is(err, ErrSpoolNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := PlanDeductions([]internal.Assignment{{SpoolID: 1, GramsUsed: -4}}, spools, 50); !errors.Is(err, ErrNoDeductions) {
		t.Fatalf("err=%v", err)
	}
	if _, err := PlanDeductions(nil, spools, 50); !errors.Is(err, ErrNoDeductions) {
		t.Fatalf("err=%v", err)
	}
}

func TestAssignmentsFromReport(t *testing.T) {
	one := int64(1)
	report := internal.PrintReport{Matches: []internal.UsageMatch{
		{Usage: internal.FilamentUsage{WeightGrams: 10}, SelectedSpoolID: &one},
		{Usage: internal.FilamentUsage{WeightGrams: 20}},
		{Usage: internal.FilamentUsage{WeightGrams: 30}, SelectedSpoolID: &one},
	}}

	got := AssignmentsFromReport(report, map[int]int64{1: 5, 2: 6})
	want := []internal.Assignment{{SpoolID: 1, GramsUsed: 10}, {SpoolID: 5, GramsUsed: 20}, {SpoolID: 6, GramsUsed: 30}}
	if len(got) != len(want) {
		t.Fatalf("len=%d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("idx %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}
