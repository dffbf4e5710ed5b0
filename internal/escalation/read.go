package escalation

import (
	"context"
	"errors"

	"github.com/edvin/ern/internal/model"
)

// CaseDetail is a case with everything it owns.
type CaseDetail struct {
	Case        *model.EmergencyCase        `json:"case"`
	Alerts      []model.Alert               `json:"alerts"`
	Assignments []model.ResponderAssignment `json:"assignments"`
}

// GetCase returns the case with its alerts and assignments. The requester and
// any assigned responder may view it.
func (e *Engine) GetCase(ctx context.Context, caseID, viewerID string) (*CaseDetail, error) {
	c, assignments, err := e.authorizeViewer(ctx, caseID, viewerID)
	if err != nil {
		return nil, err
	}
	alerts, err := e.store.ListAlerts(ctx, caseID)
	if err != nil {
		return nil, persistenceError("list alerts", err)
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return &CaseDetail{Case: c, Alerts: alerts, Assignments: assignments}, nil
}

// ReadLog returns the case's escalation log in (timestamp, seq) order, with
// the same visibility rules as GetCase.
func (e *Engine) ReadLog(ctx context.Context, caseID, viewerID string) ([]model.EscalationLogEntry, error) {
	if _, _, err := e.authorizeViewer(ctx, caseID, viewerID); err != nil {
		return nil, err
	}
	entries, err := e.store.ReadLog(ctx, caseID)
	if err != nil {
		return nil, persistenceError("read log", err)
	}
	SortLog(entries)
	if entries == nil {
		entries = []model.EscalationLogEntry{}
	}
	return entries, nil
}

func (e *Engine) authorizeViewer(ctx context.Context, caseID, viewerID string) (*model.EmergencyCase, []model.ResponderAssignment, error) {
	if caseID == "" {
		return nil, nil, validationErrorf("case id is required")
	}
	c, err := e.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, nil, persistenceError("get case", err)
	}
	assignments, err := e.store.ListAssignments(ctx, caseID)
	if err != nil {
		return nil, nil, persistenceError("list assignments", err)
	}
	if assignments == nil {
		assignments = []model.ResponderAssignment{}
	}
	if c.RequesterID == viewerID {
		return c, assignments, nil
	}
	for _, a := range assignments {
		if a.ResponderID == viewerID {
			return c, assignments, nil
		}
	}
	return nil, nil, forbiddenErrorf("no access to case %s", caseID)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
