package core

import (
	"context"
	"fmt"

	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/model"
)

const assignmentColumns = `id, case_id, responder_id, status, has_capability, created_at, updated_at`

// CreateAssignment inserts an assignment under the same share lock as
// CreateAlert. A case resolved in between returns escalation.ErrConflict.
func (q *Queries) CreateAssignment(ctx context.Context, a *model.ResponderAssignment) error {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO responder_assignments (id, case_id, responder_id, status, has_capability, created_at, updated_at)
		 SELECT $1, c.id, $3, $4, $5, $6, $7
		 FROM emergency_cases c
		 WHERE c.id = $2 AND c.status <> 'RESOLVED'
		 FOR SHARE`,
		a.ID, a.CaseID, a.ResponderID, a.Status, a.HasCapability, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create assignment: case %s is not open: %w", a.CaseID, escalation.ErrConflict)
	}
	return nil
}

func (q *Queries) GetAssignment(ctx context.Context, caseID, responderID string) (*model.ResponderAssignment, error) {
	var a model.ResponderAssignment
	err := q.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM responder_assignments WHERE case_id = $1 AND responder_id = $2`,
		caseID, responderID,
	).Scan(&a.ID, &a.CaseID, &a.ResponderID, &a.Status, &a.HasCapability, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, noRows(err, "get assignment of %s on case %s", responderID, caseID)
	}
	return &a, nil
}

func (q *Queries) ListAssignments(ctx context.Context, caseID string) ([]model.ResponderAssignment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+assignmentColumns+` FROM responder_assignments WHERE case_id = $1 ORDER BY created_at, id`, caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []model.ResponderAssignment
	for rows.Next() {
		var a model.ResponderAssignment
		if err := rows.Scan(&a.ID, &a.CaseID, &a.ResponderID, &a.Status, &a.HasCapability, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}

// UpdateAssignmentStatus moves an assignment from one status to another,
// reporting false if it was no longer in from.
func (q *Queries) UpdateAssignmentStatus(ctx context.Context, id string, from, to model.AssignmentStatus) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE responder_assignments SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("update assignment %s status: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) CompleteAssignments(ctx context.Context, caseID string) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE responder_assignments SET status = 'completed', updated_at = now()
		 WHERE case_id = $1 AND status <> 'completed'`,
		caseID,
	)
	if err != nil {
		return 0, fmt.Errorf("complete assignments for case %s: %w", caseID, err)
	}
	return tag.RowsAffected(), nil
}
