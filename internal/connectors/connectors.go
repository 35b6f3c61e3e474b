package connectors

import (
	"context"

	"spooltracker/internal"
)

// MailConnector pulls raw messages that carry print-file attachments.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
