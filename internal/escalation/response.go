package escalation

import (
	"context"
	"fmt"

	"github.com/edvin/ern/internal/model"
)

// ResponseResult reports the assignment after a responder update.
type ResponseResult struct {
	CaseID     string                     `json:"caseId"`
	CaseStatus model.CaseStatus           `json:"caseStatus"`
	Assignment *model.ResponderAssignment `json:"assignment"`
}

// RecordResponse moves a responder's assignment forward. Acknowledging (or
// any later step) also acknowledges the responder's outstanding alerts and,
// the first time any responder engages, moves the case from ACTIVE to
// RESPONDING. Only the assigned responder may report on their assignment.
func (e *Engine) RecordResponse(ctx context.Context, caseID, responderID string, status model.AssignmentStatus) (*ResponseResult, error) {
	if caseID == "" || responderID == "" {
		return nil, validationErrorf("case id and responder are required")
	}
	if !status.Engaged() {
		return nil, validationErrorf("status must be one of acknowledged, en_route, arrived")
	}

	c, err := e.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, persistenceError("get case", err)
	}
	if c.Status == model.CaseResolved {
		return nil, conflictErrorf("case %s is already resolved", caseID)
	}

	assignment, err := e.store.GetAssignment(ctx, caseID, responderID)
	if err != nil {
		if isNotFound(err) {
			return nil, forbiddenErrorf("responder is not assigned to case %s", caseID)
		}
		return nil, persistenceError("get assignment", err)
	}
	if !assignment.Status.Before(status) {
		return nil, conflictErrorf("assignment is already %s", assignment.Status)
	}

	responder, err := e.store.GetUser(ctx, responderID)
	if err != nil {
		return nil, persistenceError("get responder", err)
	}

	now := e.now()
	previous := assignment.Status
	caseStatus := c.Status
	err = e.store.InTx(ctx, func(q Queries) error {
		changed, err := q.UpdateAssignmentStatus(ctx, assignment.ID, previous, status)
		if err != nil {
			return err
		}
		if !changed {
			return conflictErrorf("assignment changed concurrently")
		}
		if _, err := q.AckAlerts(ctx, caseID, responderID); err != nil {
			return err
		}
		responding, err := q.UpdateCaseStatus(ctx, CaseStatusUpdate{
			CaseID: caseID,
			From:   []model.CaseStatus{model.CaseActive},
			To:     model.CaseResponding,
		})
		if err != nil {
			return err
		}
		if responding {
			caseStatus = model.CaseResponding
		} else {
			// Either already RESPONDING, or resolved since we read it.
			current, err := q.GetCase(ctx, caseID)
			if err != nil {
				return err
			}
			if current.Status == model.CaseResolved {
				return conflictErrorf("case %s is already resolved", caseID)
			}
			caseStatus = current.Status
		}
		details := fmt.Sprintf("%s changed response status from %s to %s", responderName(responder), previous, status)
		return q.AppendLogEntry(ctx, newLogEntry(caseID, model.ActionResponseStatusChanged, details, responderID, now))
	})
	if err != nil {
		return nil, persistenceError("record response", err)
	}

	assignment.Status = status
	assignment.UpdatedAt = now

	e.logger.Info().
		Str("case_id", caseID).
		Str("responder_id", responderID).
		Str("status", string(status)).
		Str("case_status", string(caseStatus)).
		Msg("responder status changed")

	return &ResponseResult{CaseID: caseID, CaseStatus: caseStatus, Assignment: assignment}, nil
}

func responderName(u *model.User) string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.ID
}
