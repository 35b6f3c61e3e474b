package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"spooltracker/internal"
	"spooltracker/internal/config"
	"spooltracker/internal/connectors"
	gmailconnector "spooltracker/internal/connectors/gmail"
	imapconnector "spooltracker/internal/connectors/imap"
	"spooltracker/internal/pipeline"
	"spooltracker/internal/storage"
)

// ErrAlreadyRunning is returned when another listener holds the lock file.
var ErrAlreadyRunning = errors.New("listener already running")

type connectorFactory func(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error)

// Service polls a mailbox, stores new print-job mail and processes it.
type Service struct {
	db           *storage.DB
	cfg          config.Config
	newConnector connectorFactory
	logger       *slog.Logger
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{
		db:           db,
		cfg:          cfg,
		newConnector: NewConnector,
		logger:       slog.Default().With("component", "listener"),
	}
}

// NewConnector builds the mail connector for provider ("gmail" or "imap").
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

// Run loops until ctx is done. Only one listener per lock path may run.
func (s *Service) Run(ctx context.Context) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	for {
		if err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("listener cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) acquireLock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(s.cfg.ListenerLockPath), 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(s.cfg.ListenerLockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.cfg.ListenerLockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, s.cfg.ListenerLockPath)
	}
	return lock, nil
}

// RunCycle does one fetch, process and optional export pass.
func (s *Service) RunCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
	mailConnector, err := s.newConnector(ctx, s.cfg, provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.InboxDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.ListenerLabel, s.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(s.db, s.cfg)
	processedMessages, processedRuns, err := processor.ProcessPending(ctx, s.cfg.ListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	exported := 0
	if s.cfg.ListenerAutoExport {
		if exported, err = s.exportProcessed(provider); err != nil {
			return err
		}
	}

	s.logger.Info("listener cycle done",
		"provider", provider,
		"fetched", fetchResult.Fetched,
		"stored", fetchResult.Stored,
		"processed", processedMessages,
		"runs", processedRuns,
		"exported", exported,
	)
	return nil
}

// exportProcessed writes one workbook per run of every processed message and
// marks the message exported.
func (s *Service) exportProcessed(provider string) (int, error) {
	messages, err := s.db.ListMessagesByStatus("processed", 200)
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}

	runs, err := s.db.ListRuns(1000)
	if err != nil {
		return 0, err
	}
	byMessage := map[int][]internal.RunRow{}
	for _, run := range runs {
		if run.MessageID != nil {
			byMessage[*run.MessageID] = append(byMessage[*run.MessageID], run)
		}
	}

	written := 0
	for _, msg := range messages {
		if msg.Provider != provider {
			continue
		}
		for _, run := range byMessage[msg.ID] {
			rows, err := s.db.GetExportRows(run.RunID)
			if err != nil {
				return written, err
			}
			if len(rows) == 0 {
				continue
			}
			filename := fmt.Sprintf("%d_%s_%s.xlsx", msg.ID, sanitizeMessageID(msg.MessageID), run.RunID[:8])
			outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
			if err := pipeline.ExportRowsToXLSX(rows, outputPath); err != nil {
				return written, err
			}
			written++
		}
		_ = s.db.UpdateMessageStatus(msg.ID, "exported")
	}
	return written, nil
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
