package escalation

import (
	"context"

	"github.com/edvin/ern/internal/model"
)

// Delivery is one outbound message for a channel.
type Delivery struct {
	AlertID   string
	Recipient string
	Message   string
	Channel   string
}

// Receipt is a channel's answer to a send.
type Receipt struct {
	Delivered   bool
	ProviderRef string
}

// Channel delivers alerts to responders. Send must report genuine success:
// a nil error with Delivered=false counts as a failed attempt.
type Channel interface {
	Send(ctx context.Context, d Delivery) (Receipt, error)
}

// Archiver receives the full escalation log of a case after it resolves.
type Archiver interface {
	Archive(ctx context.Context, caseID string, entries []model.EscalationLogEntry) error
}
