package core

import (
	"context"
	"fmt"

	"github.com/edvin/ern/internal/model"
)

const userColumns = `id, first_name, last_name, phone, email, narcan_trained, created_at, updated_at`

func (q *Queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Phone, &u.Email, &u.NarcanTrained, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, noRows(err, "get user %s", id)
	}
	return &u, nil
}

// FindActiveResponderNetwork returns the requester's active responders with
// their profiles, by ascending priority. Ties keep insertion order.
func (q *Queries) FindActiveResponderNetwork(ctx context.Context, requesterID string) ([]model.ResponderNetworkEntry, error) {
	rows, err := q.db.Query(ctx,
		`SELECT n.id, n.requester_id, n.responder_id, n.relationship, n.priority,
		        n.is_active, n.response_rate, n.created_at,
		        u.id, u.first_name, u.last_name, u.phone, u.email, u.narcan_trained,
		        u.created_at, u.updated_at
		 FROM responder_networks n
		 JOIN users u ON u.id = n.responder_id
		 WHERE n.requester_id = $1 AND n.is_active
		 ORDER BY n.priority, n.created_at, n.id`, requesterID,
	)
	if err != nil {
		return nil, fmt.Errorf("find responder network for %s: %w", requesterID, err)
	}
	defer rows.Close()

	var entries []model.ResponderNetworkEntry
	for rows.Next() {
		var e model.ResponderNetworkEntry
		r := &e.Responder
		if err := rows.Scan(&e.ID, &e.RequesterID, &e.ResponderID, &e.Relationship, &e.Priority,
			&e.IsActive, &e.ResponseRate, &e.CreatedAt,
			&r.ID, &r.FirstName, &r.LastName, &r.Phone, &r.Email, &r.NarcanTrained,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan responder network entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responder network: %w", err)
	}
	return entries, nil
}
