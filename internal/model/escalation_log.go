package model

import "time"

// LogAction enumerates the kinds of escalation log entries.
type LogAction string

const (
	ActionCaseTriggered         LogAction = "CASE_TRIGGERED"
	ActionResponderNotified     LogAction = "RESPONDER_NOTIFIED"
	ActionResponseStatusChanged LogAction = "RESPONSE_STATUS_CHANGED"
	ActionCaseResolved          LogAction = "CASE_RESOLVED"
)

// EscalationLogEntry is one immutable audit record. Seq is assigned by the
// store on append and breaks ties between entries sharing a timestamp.
type EscalationLogEntry struct {
	ID          string    `json:"id" db:"id"`
	CaseID      string    `json:"caseId" db:"case_id"`
	Seq         int64     `json:"seq" db:"seq"`
	Action      LogAction `json:"action" db:"action"`
	Details     string    `json:"details" db:"details"`
	PerformedBy string    `json:"performedBy" db:"performed_by"`
	Timestamp   time.Time `json:"timestamp" db:"created_at"`
}
