package escalation

import (
	"context"
	"time"

	"github.com/edvin/ern/internal/model"
)

// archiveTimeout bounds the post-resolve export so a slow object store
// cannot hold the caller.
const archiveTimeout = 15 * time.Second

// Resolve closes a case on behalf of its requester.
//
// Status, resolvedAt/resolvedBy, alert acknowledgment, assignment completion
// and the CASE_RESOLVED entry commit in one transaction. The status change is
// a compare-and-set, so of two concurrent callers exactly one wins and the
// other gets ErrConflict with nothing written.
func (e *Engine) Resolve(ctx context.Context, caseID, resolvedBy string) (*model.EmergencyCase, error) {
	if caseID == "" {
		return nil, validationErrorf("case id is required")
	}

	c, err := e.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, persistenceError("get case", err)
	}
	if c.RequesterID != resolvedBy {
		return nil, forbiddenErrorf("only the requester can resolve case %s", caseID)
	}
	if c.Status == model.CaseResolved {
		return nil, conflictErrorf("case %s is already resolved", caseID)
	}

	now := e.now()
	var acked, completed int64
	err = e.store.InTx(ctx, func(q Queries) error {
		changed, err := q.UpdateCaseStatus(ctx, CaseStatusUpdate{
			CaseID:     caseID,
			From:       []model.CaseStatus{model.CaseActive, model.CaseResponding},
			To:         model.CaseResolved,
			ResolvedAt: &now,
			ResolvedBy: &resolvedBy,
		})
		if err != nil {
			return err
		}
		if !changed {
			return conflictErrorf("case %s is already resolved", caseID)
		}

		if acked, err = q.AckAlerts(ctx, caseID, ""); err != nil {
			return err
		}
		if completed, err = q.CompleteAssignments(ctx, caseID); err != nil {
			return err
		}
		return q.AppendLogEntry(ctx, newLogEntry(caseID, model.ActionCaseResolved,
			"Emergency resolved by user", resolvedBy, now))
	})
	if err != nil {
		return nil, persistenceError("resolve case", err)
	}
	casesResolvedTotal.Inc()

	c.Status = model.CaseResolved
	c.ResolvedAt = &now
	c.ResolvedBy = &resolvedBy

	e.logger.Info().
		Str("case_id", caseID).
		Int64("alerts_acknowledged", acked).
		Int64("assignments_completed", completed).
		Msg("case resolved")

	e.archive(ctx, caseID)
	return c, nil
}

// archive exports the case log. Failures are logged and otherwise ignored:
// the database log remains the source of truth.
func (e *Engine) archive(ctx context.Context, caseID string) {
	if e.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	entries, err := e.store.ReadLog(ctx, caseID)
	if err != nil {
		e.logger.Error().Err(err).Str("case_id", caseID).Msg("read log for archive failed")
		return
	}
	if err := e.archiver.Archive(ctx, caseID, entries); err != nil {
		e.logger.Error().Err(err).Str("case_id", caseID).Msg("archive escalation log failed")
	}
}
