package escalation

import (
	"context"
	"time"

	"github.com/edvin/ern/internal/model"
)

// Store is the persistence port consumed by the engine. Implementations
// return ErrNotFound (wrapped or bare) for missing rows.
type Store interface {
	Queries

	// InTx runs fn inside a single transaction. If fn returns an error
	// nothing it wrote is visible afterwards.
	InTx(ctx context.Context, fn func(q Queries) error) error
}

// Queries are the individual reads and writes. Inside InTx they share the
// transaction; on a Store they run standalone.
type Queries interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	// FindActiveResponderNetwork returns the requester's active entries
	// ordered by ascending priority, ties in insertion order.
	FindActiveResponderNetwork(ctx context.Context, requesterID string) ([]model.ResponderNetworkEntry, error)

	CreateCase(ctx context.Context, c *model.EmergencyCase) error
	GetCase(ctx context.Context, id string) (*model.EmergencyCase, error)
	// UpdateCaseStatus applies u only when the case is currently in one of
	// u.From. It reports whether a row changed.
	UpdateCaseStatus(ctx context.Context, u CaseStatusUpdate) (bool, error)

	// CreateAlert refuses (ErrConflict) when the case is already RESOLVED.
	CreateAlert(ctx context.Context, a *model.Alert) error
	// RecordDelivery stores a delivery outcome. It only touches an alert
	// still PENDING and reports whether it did.
	RecordDelivery(ctx context.Context, d DeliveryUpdate) (bool, error)
	ListAlerts(ctx context.Context, caseID string) ([]model.Alert, error)
	// AckAlerts moves the case's PENDING and SENT alerts to ACKNOWLEDGED. An
	// empty receiverID means every receiver.
	AckAlerts(ctx context.Context, caseID, receiverID string) (int64, error)

	// CreateAssignment refuses (ErrConflict) when the case is already RESOLVED.
	CreateAssignment(ctx context.Context, a *model.ResponderAssignment) error
	GetAssignment(ctx context.Context, caseID, responderID string) (*model.ResponderAssignment, error)
	ListAssignments(ctx context.Context, caseID string) ([]model.ResponderAssignment, error)
	// UpdateAssignmentStatus moves one assignment from `from` to `to`,
	// reporting whether the row was still in `from`.
	UpdateAssignmentStatus(ctx context.Context, id string, from, to model.AssignmentStatus) (bool, error)
	CompleteAssignments(ctx context.Context, caseID string) (int64, error)

	// AppendLogEntry assigns entry.Seq and clamps entry.Timestamp so it is
	// never earlier than the case's latest entry.
	AppendLogEntry(ctx context.Context, entry *model.EscalationLogEntry) error
	// ReadLog returns entries ordered by (timestamp, seq).
	ReadLog(ctx context.Context, caseID string) ([]model.EscalationLogEntry, error)
}

// CaseStatusUpdate is a compare-and-set transition of a case's status.
type CaseStatusUpdate struct {
	CaseID     string
	From       []model.CaseStatus
	To         model.CaseStatus
	ResolvedAt *time.Time
	ResolvedBy *string
}

// DeliveryUpdate is the settled outcome of sending one alert.
type DeliveryUpdate struct {
	AlertID     string
	Status      model.AlertStatus
	Attempts    int
	ProviderRef *string
	SentAt      *time.Time
}
