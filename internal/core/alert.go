package core

import (
	"context"
	"fmt"

	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/model"
)

const alertColumns = `id, case_id, sender_id, receiver_id, channel, message, status, attempts,
	provider_ref, sent_at, created_at`

// CreateAlert inserts a PENDING alert. The case row is share-locked for the
// insert, so an alert is never created for a case that is resolved or being
// resolved; that returns escalation.ErrConflict.
func (q *Queries) CreateAlert(ctx context.Context, a *model.Alert) error {
	tag, err := q.db.Exec(ctx,
		`INSERT INTO alerts (id, case_id, sender_id, receiver_id, channel, message, status, attempts, created_at)
		 SELECT $1, c.id, $3, $4, $5, $6, $7, $8, $9
		 FROM emergency_cases c
		 WHERE c.id = $2 AND c.status <> 'RESOLVED'
		 FOR SHARE`,
		a.ID, a.CaseID, a.SenderID, a.ReceiverID, a.Channel, a.Message, a.Status, a.Attempts, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create alert: case %s is not open: %w", a.CaseID, escalation.ErrConflict)
	}
	return nil
}

// RecordDelivery stores the outcome of a delivery. Only PENDING alerts are
// updated; the boolean is false when the alert had already moved on.
func (q *Queries) RecordDelivery(ctx context.Context, d escalation.DeliveryUpdate) (bool, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE alerts SET status = $2, attempts = $3, provider_ref = $4, sent_at = $5
		 WHERE id = $1 AND status = 'PENDING'`,
		d.AlertID, d.Status, d.Attempts, d.ProviderRef, d.SentAt,
	)
	if err != nil {
		return false, fmt.Errorf("record delivery for alert %s: %w", d.AlertID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) ListAlerts(ctx context.Context, caseID string) ([]model.Alert, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE case_id = $1 ORDER BY created_at, id`, caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		if err := rows.Scan(&a.ID, &a.CaseID, &a.SenderID, &a.ReceiverID, &a.Channel, &a.Message,
			&a.Status, &a.Attempts, &a.ProviderRef, &a.SentAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

// AckAlerts acknowledges the case's PENDING and SENT alerts, for one
// receiver or, when receiverID is empty, for everyone.
func (q *Queries) AckAlerts(ctx context.Context, caseID, receiverID string) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE alerts SET status = 'ACKNOWLEDGED'
		 WHERE case_id = $1 AND status IN ('PENDING', 'SENT')
		   AND ($2::text = '' OR receiver_id = $2::text)`,
		caseID, receiverID,
	)
	if err != nil {
		return 0, fmt.Errorf("acknowledge alerts for case %s: %w", caseID, err)
	}
	return tag.RowsAffected(), nil
}
