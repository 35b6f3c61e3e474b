package inventory

import (
	"context"
	"log/slog"
	"time"

	"spooltracker/internal"
	"spooltracker/internal/config"
	"spooltracker/internal/storage"
)

const lastSyncKey = "inventory.last_sync"

// SyncService mirrors the backend's spools into the local store so matching
// can run offline.
type SyncService struct {
	db     *storage.DB
	client *Client
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg)}
}

func (s *SyncService) Sync(ctx context.Context) (int, error) {
	spools, err := s.client.ListSpools(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.db.UpsertSpools(spools); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata(lastSyncKey, time.Now().UTC().Format(time.RFC3339))
	slog.Info("inventory synced", "spools", len(spools))
	return len(spools), nil
}

// LastSync reports when Sync last succeeded, or nil if it never has.
func (s *SyncService) LastSync() (*time.Time, error) {
	raw, err := s.db.GetMetadata(lastSyncKey)
	if err != nil || raw == nil {
		return nil, err
	}
	parsed, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, nil
	}
	return &parsed, nil
}

// Import stores spools read from another source, e.g. a spreadsheet.
func (s *SyncService) Import(spools []internal.Spool) (int, error) {
	if err := s.db.UpsertSpools(spools); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("inventory.last_import", time.Now().UTC().Format(time.RFC3339))
	return len(spools), nil
}
