package core

import (
	"context"
	"fmt"

	"github.com/edvin/ern/internal/model"
)

// AppendLogEntry inserts an entry and fills in its seq. The stored timestamp
// is raised to the latest existing one for the case if the clock went
// backwards, so per-case timestamps never decrease.
func (q *Queries) AppendLogEntry(ctx context.Context, e *model.EscalationLogEntry) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO escalation_log (id, case_id, action, details, performed_by, created_at)
		 SELECT $1, $2, $3, $4, $5, GREATEST($6::timestamptz, COALESCE(MAX(l.created_at), $6::timestamptz))
		 FROM escalation_log l WHERE l.case_id = $2
		 RETURNING seq, created_at`,
		e.ID, e.CaseID, e.Action, e.Details, e.PerformedBy, e.Timestamp,
	).Scan(&e.Seq, &e.Timestamp)
	if err != nil {
		return fmt.Errorf("append %s log entry for case %s: %w", e.Action, e.CaseID, err)
	}
	return nil
}

func (q *Queries) ReadLog(ctx context.Context, caseID string) ([]model.EscalationLogEntry, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, case_id, seq, action, details, performed_by, created_at
		 FROM escalation_log WHERE case_id = $1 ORDER BY created_at, seq`, caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("read log for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var entries []model.EscalationLogEntry
	for rows.Next() {
		var e model.EscalationLogEntry
		if err := rows.Scan(&e.ID, &e.CaseID, &e.Seq, &e.Action, &e.Details, &e.PerformedBy, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return entries, nil
}
