package model

import "time"

// CaseStatus is the lifecycle state of an emergency case.
// Transitions only move forward: ACTIVE -> RESPONDING -> RESOLVED.
type CaseStatus string

const (
	CaseActive     CaseStatus = "ACTIVE"
	CaseResponding CaseStatus = "RESPONDING"
	CaseResolved   CaseStatus = "RESOLVED"
)

// Trigger types recorded on a case.
const (
	TriggerManual       = "manual"
	TriggerBiometric    = "biometric"
	TriggerAIEscalation = "ai_escalation"
)

type EmergencyCase struct {
	ID          string     `json:"id" db:"id"`
	RequesterID string     `json:"requesterId" db:"requester_id"`
	Severity    Severity   `json:"severity" db:"severity"`
	Status      CaseStatus `json:"status" db:"status"`
	Location    *Location  `json:"location,omitempty" db:"location"`
	Description string     `json:"description" db:"description"`
	TriggerType string     `json:"triggerType" db:"trigger_type"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty" db:"resolved_at"`
	ResolvedBy  *string    `json:"resolvedBy,omitempty" db:"resolved_by"`
}

// AlertStatus is the delivery state of one outbound alert.
type AlertStatus string

const (
	AlertPending      AlertStatus = "PENDING"
	AlertSent         AlertStatus = "SENT"
	AlertAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertFailed       AlertStatus = "FAILED"
)

// Delivery channels.
const (
	ChannelSMS   = "SMS"
	ChannelEmail = "EMAIL"
	ChannelPush  = "PUSH"
)

type Alert struct {
	ID          string      `json:"id" db:"id"`
	CaseID      string      `json:"caseId" db:"case_id"`
	SenderID    string      `json:"senderId" db:"sender_id"`
	ReceiverID  string      `json:"receiverId" db:"receiver_id"`
	Channel     string      `json:"channel" db:"channel"`
	Message     string      `json:"message" db:"message"`
	Status      AlertStatus `json:"status" db:"status"`
	Attempts    int         `json:"attempts" db:"attempts"`
	ProviderRef *string     `json:"providerRef,omitempty" db:"provider_ref"`
	SentAt      *time.Time  `json:"sentAt,omitempty" db:"sent_at"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}

// AssignmentStatus is a responder's progress on a case, independent of
// whether the alert reached them.
type AssignmentStatus string

const (
	AssignmentNotified     AssignmentStatus = "notified"
	AssignmentAcknowledged AssignmentStatus = "acknowledged"
	AssignmentEnRoute      AssignmentStatus = "en_route"
	AssignmentArrived      AssignmentStatus = "arrived"
	AssignmentCompleted    AssignmentStatus = "completed"
)

var assignmentRank = map[AssignmentStatus]int{
	AssignmentNotified:     0,
	AssignmentAcknowledged: 1,
	AssignmentEnRoute:      2,
	AssignmentArrived:      3,
	AssignmentCompleted:    4,
}

// Valid reports whether s is a known assignment status.
func (s AssignmentStatus) Valid() bool {
	_, ok := assignmentRank[s]
	return ok
}

// Before reports whether s comes strictly earlier than other in the
// notified -> completed progression.
func (s AssignmentStatus) Before(other AssignmentStatus) bool {
	return assignmentRank[s] < assignmentRank[other]
}

// Engaged reports whether the responder has actively taken the case on.
func (s AssignmentStatus) Engaged() bool {
	switch s {
	case AssignmentAcknowledged, AssignmentEnRoute, AssignmentArrived:
		return true
	}
	return false
}

type ResponderAssignment struct {
	ID            string           `json:"id" db:"id"`
	CaseID        string           `json:"caseId" db:"case_id"`
	ResponderID   string           `json:"responderId" db:"responder_id"`
	Status        AssignmentStatus `json:"status" db:"status"`
	HasCapability bool             `json:"hasCapability" db:"has_capability"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}
