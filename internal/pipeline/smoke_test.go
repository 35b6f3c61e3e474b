package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"spooltracker/internal"
	"spooltracker/internal/config"
	"spooltracker/internal/storage"
	"spooltracker/internal/util"
)

type fakeUpdater struct {
	weights map[int64]float64
	emptied []int64
}

func (f *fakeUpdater) UpdateWeight(_ context.Context, spoolID int64, grams float64) (internal.Spool, error) {
	if f.weights == nil {
		f.weights = map[int64]float64{}
	}
	f.weights[spoolID] = grams
	return internal.Spool{ID: spoolID, CurrentWeightGrams: util.FloatPtr(grams)}, nil
}

func (f *fakeUpdater) MarkEmpty(_ context.Context, spoolID int64) (internal.Spool, error) {
	f.emptied = append(f.emptied, spoolID)
	return internal.Spool{ID: spoolID, IsEmpty: true}, nil
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	spools := []internal.Spool{
		{ID: 1, UID: "S-1", MaterialName: "PLA", ColorHexCode: "#FFFFFF", CurrentWeightGrams: util.FloatPtr(1000)},
		{ID: 2, UID: "S-2", MaterialName: "PETG", ColorHexCode: "#000000", CurrentWeightGrams: util.FloatPtr(30)},
		{ID: 3, UID: "S-3", MaterialName: "PLA", ColorHexCode: "#FFFFFF", IsEmpty: true, CurrentWeightGrams: util.FloatPtr(0)},
	}
	if err := db.UpsertSpools(spools); err != nil {
		t.Fatal(err)
	}
	return db
}

func storeFixtureMessage(t *testing.T, db *storage.DB, fixture, messageID string) internal.MessageRow {
	t.Helper()
	blob, err := os.ReadFile(filepath.Join("testdata", fixture))
	if err != nil {
		t.Fatal(err)
	}
	rawPath := filepath.Join(t.TempDir(), fixture)
	if err := os.WriteFile(rawPath, blob, 0o644); err != nil {
		t.Fatal(err)
	}
	msg, err := db.UpsertMessage("imap", messageID, "fixture", "maker@example.com", "2026-03-02T18:30:00Z", "hash-"+messageID, rawPath, "fetched")
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSmokeMessageToDeduction(t *testing.T) {
	db := openTestDB(t)
	msg := storeFixtureMessage(t, db, "print_job.eml", "<print-fixture-1@example.com>")

	cfg, _ := config.Load()
	cfg.AutoSelectConfidence = "low"
	cfg.EmptyThresholdGrams = 50
	updater := &fakeUpdater{}
	proc := NewProcessingService(db, cfg).WithUpdater(updater)

	res, err := proc.ProcessMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.RunIDs) != 1 || res.Usages != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	stored, err := db.GetMessageByID(msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != "processed" {
		t.Fatalf("status=%s", stored.Status)
	}

	report, err := db.GetRunReport(res.RunIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	if report.File.Filename != "benchy.gcode" || len(report.Matches) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.File.PrintTime == nil || *report.File.PrintTime != 4325 {
		t.Fatalf("printTime=%v", report.File.PrintTime)
	}
	for i, want := range []int64{1, 2} {
		m := report.Matches[i]
		if m.SelectedSpoolID == nil || *m.SelectedSpoolID != want {
			t.Fatalf("usage %d selected=%v", i, m.SelectedSpoolID)
		}
		for _, c := range m.Candidates {
			if c.Spool.ID == 3 {
				t.Fatal("empty spool offered as candidate")
			}
		}
	}

	rows, err := db.GetExportRows(res.RunIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].SpoolUID == nil || *rows[0].SpoolUID != "S-1" {
		t.Fatalf("unexpected export rows: %+v", rows)
	}
	out := filepath.Join(t.TempDir(), "report.xlsx")
	if err := ExportRowsToXLSX(rows, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}

	deductions, err := proc.ConfirmRun(context.Background(), res.RunIDs[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(deductions) != 2 {
		t.Fatalf("len=%d", len(deductions))
	}
	if !near(updater.weights[1], 987.71) || !near(updater.weights[2], 25.98) {
		t.Fatalf("weights=%v", updater.weights)
	}
	if len(updater.emptied) != 1 || updater.emptied[0] != 2 {
		t.Fatalf("emptied=%v", updater.emptied)
	}

	spools, err := db.ListSpools()
	if err != nil {
		t.Fatal(err)
	}
	if !spools[1].IsEmpty || !near(spools[1].RemainingGrams(), 25.98) {
		t.Fatalf("local spool not updated: %+v", spools[1])
	}
	recorded, err := db.ListDeductions(res.RunIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(recorded) != 2 {
		t.Fatalf("recorded=%d", len(recorded))
	}
}

func TestSmokeMessageWithoutAttachmentsIsSkipped(t *testing.T) {
	db := openTestDB(t)
	msg := storeFixtureMessage(t, db, "no_attachment.eml", "<plain-1@example.com>")

	cfg, _ := config.Load()
	processed, runs, err := NewProcessingService(db, cfg).ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 || runs != 0 {
		t.Fatalf("processed=%d runs=%d", processed, runs)
	}
	stored, err := db.GetMessageByID(msg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != "skipped" {
		t.Fatalf("status=%s", stored.Status)
	}
}

func TestProcessFileUnsupportedStillStored(t *testing.T) {
	db := openTestDB(t)
	cfg, _ := config.Load()

	report, err := NewProcessingService(db, cfg).ProcessFile(context.Background(), "model.stl", []byte("solid"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.File.ParseErrors) != 1 || len(report.Matches) != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ErrorCount != 1 || runs[0].UsageCount != 0 {
		t.Fatalf("runs=%+v", runs)
	}
}
