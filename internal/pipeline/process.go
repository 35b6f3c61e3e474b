package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spooltracker/internal"
	"spooltracker/internal/config"
	"spooltracker/internal/inventory"
	"spooltracker/internal/storage"
)

// SpoolUpdater applies confirmed deductions to the inventory backend.
type SpoolUpdater interface {
	UpdateWeight(ctx context.Context, spoolID int64, grams float64) (internal.Spool, error)
	MarkEmpty(ctx context.Context, spoolID int64) (internal.Spool, error)
}

type ProcessingService struct {
	db      *storage.DB
	cfg     config.Config
	opts    Options
	updater SpoolUpdater
	logger  *slog.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{
		db:      db,
		cfg:     cfg,
		opts:    OptionsFromConfig(cfg),
		updater: inventory.NewClient(cfg),
		logger:  slog.Default().With("component", "processing"),
	}
}

// WithUpdater swaps the backend used by ConfirmDeductions.
func (s *ProcessingService) WithUpdater(u SpoolUpdater) *ProcessingService {
	s.updater = u
	return s
}

type ProcessResult struct {
	MessageRowID int
	RunIDs       []string
	Usages       int
}

// ProcessFile parses one print file, matches its usages against the local
// spool snapshot and stores the run.
func (s *ProcessingService) ProcessFile(ctx context.Context, filename string, content []byte, messageRowID *int) (internal.PrintReport, error) {
	if err := ctx.Err(); err != nil {
		return internal.PrintReport{}, err
	}
	start := time.Now()
	runID := uuid.NewString()

	parsed := ParsePrintFile(filename, content, s.opts)
	parseMs := float64(time.Since(start).Milliseconds())

	spools, err := s.db.ListSpools()
	if err != nil {
		return internal.PrintReport{}, err
	}
	matches := NewMatcher(s.cfg, inventory.Available(spools)).MatchAll(parsed.FilamentUsages)

	counts := map[string]int{"usages": len(parsed.FilamentUsages), "errors": len(parsed.ParseErrors), "matched": 0, "notFound": 0, "insufficient": 0}
	for _, m := range matches {
		if m.Status == internal.MatchFound {
			counts["matched"]++
			if m.Candidates[0].InsufficientStock {
				counts["insufficient"]++
			}
		} else {
			counts["notFound"]++
		}
	}
	timings := map[string]float64{"parseMs": parseMs, "totalMs": float64(time.Since(start).Milliseconds())}

	if err := s.db.InsertRun(runID, messageRowID, parsed, matches, timings, counts); err != nil {
		return internal.PrintReport{}, fmt.Errorf("store run %s: %w", runID, err)
	}

	s.logger.Info("print file processed",
		"run", runID,
		"file", filename,
		"format", parsed.Format,
		"usages", counts["usages"],
		"matched", counts["matched"],
		"parseErrors", counts["errors"],
	)
	return internal.PrintReport{RunID: runID, File: parsed, Matches: matches}, nil
}

func (s *ProcessingService) ProcessPath(ctx context.Context, path string) (internal.PrintReport, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.PrintReport{}, err
	}
	return s.ProcessFile(ctx, filepath.Base(path), blob, nil)
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	msg, err := s.db.MustMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessMessage(ctx, msg)
}

func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListMessagesByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedMessages := 0
	processedRuns := 0
	for _, msg := range pending {
		if provider != "" && msg.Provider != provider {
			continue
		}
		res, err := s.ProcessMessage(ctx, msg)
		if err != nil {
			return processedMessages, processedRuns, err
		}
		processedMessages++
		processedRuns += len(res.RunIDs)
	}
	return processedMessages, processedRuns, nil
}

// ProcessMessage runs every print attachment of a stored message. Messages
// without one are marked skipped.
func (s *ProcessingService) ProcessMessage(ctx context.Context, msg internal.MessageRow) (ProcessResult, error) {
	raw, err := os.ReadFile(msg.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	attachments, _, err := ExtractPrintAttachments(raw)
	if err != nil {
		_ = s.db.UpdateMessageStatus(msg.ID, "failed")
		return ProcessResult{}, fmt.Errorf("read message %s: %w", msg.MessageID, err)
	}
	if err := s.db.ClearMessageRuns(msg.ID); err != nil {
		return ProcessResult{}, err
	}

	result := ProcessResult{MessageRowID: msg.ID}
	if len(attachments) == 0 {
		s.logger.Info("message skipped", "provider", msg.Provider, "messageId", msg.MessageID, "reason", "no print attachments")
		return result, s.db.UpdateMessageStatus(msg.ID, "skipped")
	}

	rowID := msg.ID
	for _, att := range attachments {
		report, err := s.ProcessFile(ctx, att.Filename, att.Content, &rowID)
		if err != nil {
			return result, err
		}
		result.RunIDs = append(result.RunIDs, report.RunID)
		result.Usages += len(report.File.FilamentUsages)
	}

	return result, s.db.UpdateMessageStatus(msg.ID, "processed")
}

// ConfirmDeductions plans deductions for the given assignments, pushes them to the
// backend and records them locally. Deductions applied before a failure stay
// recorded and are returned together with the error.
func (s *ProcessingService) ConfirmDeductions(ctx context.Context, runID *string, assignments []internal.Assignment) ([]internal.Deduction, error) {
	spools, err := s.db.ListSpools()
	if err != nil {
		return nil, err
	}
	planned, err := PlanDeductions(assignments, spools, s.cfg.EmptyThresholdGrams)
	if err != nil {
		return nil, err
	}

	applied := make([]internal.Deduction, 0, len(planned))
	for _, d := range planned {
		if _, err := s.updater.UpdateWeight(ctx, d.SpoolID, d.NewWeightGrams); err != nil {
			return applied, fmt.Errorf("update spool %d: %w", d.SpoolID, err)
		}
		if d.MarkEmpty {
			if _, err := s.updater.MarkEmpty(ctx, d.SpoolID); err != nil {
				return applied, fmt.Errorf("mark spool %d empty: %w", d.SpoolID, err)
			}
		}
		if err := s.db.UpdateSpoolWeight(d.SpoolID, d.NewWeightGrams, d.MarkEmpty); err != nil {
			return applied, err
		}
		if err := s.db.InsertDeduction(runID, d); err != nil {
			return applied, err
		}
		applied = append(applied, d)
		s.logger.Info("spool deducted",
			"spool", d.SpoolID,
			"grams", d.GramsUsed,
			"previous", d.PreviousWeightGrams,
			"new", d.NewWeightGrams,
			"empty", d.MarkEmpty,
		)
	}
	return applied, nil
}

// ConfirmRun deducts each usage of a stored run from its selected spool.
// overrides replaces the selection for a usage index.
func (s *ProcessingService) ConfirmRun(ctx context.Context, runID string, overrides map[int]int64) ([]internal.Deduction, error) {
	report, err := s.db.GetRunReport(runID)
	if err != nil {
		return nil, err
	}
	assignments := AssignmentsFromReport(report, overrides)
	if len(assignments) == 0 {
		return nil, ErrNoDeductions
	}
	return s.ConfirmDeductions(ctx, &runID, assignments)
}

// AssignmentsFromReport pairs each usage with its selected spool, or the
// override for its index. Usages without a spool are left out.
func AssignmentsFromReport(report internal.PrintReport, overrides map[int]int64) []internal.Assignment {
	out := []internal.Assignment{}
	for i, m := range report.Matches {
		spoolID := m.SelectedSpoolID
		if id, ok := overrides[i]; ok {
			spoolID = &id
		}
		if spoolID == nil {
			continue
		}
		out = append(out, internal.Assignment{SpoolID: *spoolID, GramsUsed: m.Usage.WeightGrams})
	}
	return out
}
