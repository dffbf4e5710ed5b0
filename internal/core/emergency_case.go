package core

import (
	"context"
	"fmt"

	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/model"
)

const caseColumns = `id, requester_id, severity, status, location_lat, location_lng, location_address,
	description, trigger_type, created_at, resolved_at, resolved_by`

func (q *Queries) CreateCase(ctx context.Context, c *model.EmergencyCase) error {
	lat, lng, addr := locationColumns(c.Location)
	_, err := q.db.Exec(ctx,
		`INSERT INTO emergency_cases (id, requester_id, severity, status, location_lat, location_lng,
		                              location_address, description, trigger_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.RequesterID, c.Severity, c.Status, lat, lng, addr, c.Description, c.TriggerType, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (q *Queries) GetCase(ctx context.Context, id string) (*model.EmergencyCase, error) {
	var (
		c        model.EmergencyCase
		lat, lng *float64
		addr     *string
	)
	err := q.db.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM emergency_cases WHERE id = $1`, id,
	).Scan(&c.ID, &c.RequesterID, &c.Severity, &c.Status, &lat, &lng, &addr,
		&c.Description, &c.TriggerType, &c.CreatedAt, &c.ResolvedAt, &c.ResolvedBy)
	if err != nil {
		return nil, noRows(err, "get case %s", id)
	}
	c.Location = locationFromColumns(lat, lng, addr)
	return &c, nil
}

// UpdateCaseStatus is a compare-and-set on the case status. It reports
// whether the row was in one of u.From and has been changed.
func (q *Queries) UpdateCaseStatus(ctx context.Context, u escalation.CaseStatusUpdate) (bool, error) {
	from := make([]string, len(u.From))
	for i, s := range u.From {
		from[i] = string(s)
	}
	tag, err := q.db.Exec(ctx,
		`UPDATE emergency_cases
		 SET status = $2,
		     resolved_at = COALESCE($3::timestamptz, resolved_at),
		     resolved_by = COALESCE($4::text, resolved_by)
		 WHERE id = $1 AND status = ANY($5::text[])`,
		u.CaseID, u.To, u.ResolvedAt, u.ResolvedBy, from,
	)
	if err != nil {
		return false, fmt.Errorf("update case %s status: %w", u.CaseID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func locationColumns(loc *model.Location) (*float64, *float64, *string) {
	if loc == nil {
		return nil, nil, nil
	}
	lat, lng := loc.Lat, loc.Lng
	var addr *string
	if loc.Address != "" {
		a := loc.Address
		addr = &a
	}
	return &lat, &lng, addr
}

func locationFromColumns(lat, lng *float64, addr *string) *model.Location {
	if lat == nil || lng == nil {
		return nil
	}
	loc := &model.Location{Lat: *lat, Lng: *lng}
	if addr != nil {
		loc.Address = *addr
	}
	return loc
}
