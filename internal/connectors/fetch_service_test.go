package connectors

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spooltracker/internal"
	"spooltracker/internal/storage"
)

type staticConnector struct {
	messages []internal.FetchedMailMessage
	err      error
	label    string
	max      int
}

func (c *staticConnector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	c.label, c.max = label, max
	return c.messages, c.err
}

func TestFetchAndStore(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	raw := []byte("Subject: plate\r\n\r\nbody")
	conn := &staticConnector{messages: []internal.FetchedMailMessage{
		{Provider: "imap", MessageID: "<1@x>", Subject: "plate", From: "a@x", ReceivedAt: "2026-01-01T00:00:00Z", Raw: raw},
		{Provider: "imap", MessageID: "<2@x>", Subject: "same body", From: "a@x", ReceivedAt: "2026-01-01T00:00:01Z", Raw: raw},
	}}
	inbox := filepath.Join(dir, "inbox")
	svc := NewFetchService(db, inbox, conn)

	res, err := svc.FetchAndStore(context.Background(), "Prints", 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched != 2 || res.Stored != 2 || conn.label != "Prints" || conn.max != 5 {
		t.Fatalf("res=%+v label=%s max=%d", res, conn.label, conn.max)
	}

	entries, _ := os.ReadDir(inbox)
	if len(entries) != 1 {
		t.Fatalf("expected one content-addressed file, got %d", len(entries))
	}

	row, err := db.MustMessageByProviderMessageID("imap", "<2@x>")
	if err != nil {
		t.Fatal(err)
	}
	if row.Status != "fetched" || row.RawRef != filepath.Join(inbox, row.Hash+".eml") {
		t.Fatalf("row=%+v", row)
	}
}

func TestFetchAndStoreConnectorError(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	boom := errors.New("mailbox unavailable")
	svc := NewFetchService(db, t.TempDir(), &staticConnector{err: boom})
	if _, err := svc.FetchAndStore(context.Background(), "INBOX", 1); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
