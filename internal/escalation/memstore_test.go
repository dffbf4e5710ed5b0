package escalation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/edvin/ern/internal/model"
)

// memStore is an in-memory Store. InTx holds the lock for the whole
// callback and restores a snapshot if it fails, which gives the same
// all-or-nothing behaviour as the Postgres store.
type memStore struct {
	mu sync.Mutex

	users       map[string]model.User
	network     []model.ResponderNetworkEntry
	cases       map[string]model.EmergencyCase
	alerts      []model.Alert
	assignments []model.ResponderAssignment
	log         []model.EscalationLogEntry
	seq         int64

	// failOn makes the named query return the given error.
	failOn map[string]error
	// writes counts successful mutating calls.
	writes int
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]model.User{},
		cases:  map[string]model.EmergencyCase{},
		failOn: map[string]error{},
	}
}

func (s *memStore) addUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memStore) addNetworkEntry(e model.ResponderNetworkEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Responder = s.users[e.ResponderID]
	s.network = append(s.network, e)
}

func (s *memStore) failWith(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOn[method] = err
}

type memSnapshot struct {
	cases       map[string]model.EmergencyCase
	alerts      []model.Alert
	assignments []model.ResponderAssignment
	log         []model.EscalationLogEntry
	seq         int64
	writes      int
}

func (s *memStore) snapshot() memSnapshot {
	cases := make(map[string]model.EmergencyCase, len(s.cases))
	for k, v := range s.cases {
		cases[k] = v
	}
	return memSnapshot{
		cases:       cases,
		alerts:      slices.Clone(s.alerts),
		assignments: slices.Clone(s.assignments),
		log:         slices.Clone(s.log),
		seq:         s.seq,
		writes:      s.writes,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.cases = snap.cases
	s.alerts = snap.alerts
	s.assignments = snap.assignments
	s.log = snap.log
	s.seq = snap.seq
	s.writes = snap.writes
}

// Copies for assertions.

func (s *memStore) caseByID(id string) model.EmergencyCase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cases[id]
}

func (s *memStore) caseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cases)
}

func (s *memStore) alertsFor(caseID string) []model.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alert
	for _, a := range s.alerts {
		if a.CaseID == caseID {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) assignmentsFor(caseID string) []model.ResponderAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ResponderAssignment
	for _, a := range s.assignments {
		if a.CaseID == caseID {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) logFor(caseID string) []model.EscalationLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.EscalationLogEntry
	for _, e := range s.log {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	SortLog(out)
	return out
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Store

func (s *memStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(memQueries{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.GetUser(ctx, id)
}

func (s *memStore) FindActiveResponderNetwork(ctx context.Context, requesterID string) ([]model.ResponderNetworkEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.FindActiveResponderNetwork(ctx, requesterID)
}

func (s *memStore) CreateCase(ctx context.Context, c *model.EmergencyCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.CreateCase(ctx, c)
}

func (s *memStore) GetCase(ctx context.Context, id string) (*model.EmergencyCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.GetCase(ctx, id)
}

func (s *memStore) UpdateCaseStatus(ctx context.Context, u CaseStatusUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.UpdateCaseStatus(ctx, u)
}

func (s *memStore) CreateAlert(ctx context.Context, a *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.CreateAlert(ctx, a)
}

func (s *memStore) RecordDelivery(ctx context.Context, d DeliveryUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.RecordDelivery(ctx, d)
}

func (s *memStore) ListAlerts(ctx context.Context, caseID string) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.ListAlerts(ctx, caseID)
}

func (s *memStore) AckAlerts(ctx context.Context, caseID, receiverID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.AckAlerts(ctx, caseID, receiverID)
}

func (s *memStore) CreateAssignment(ctx context.Context, a *model.ResponderAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.CreateAssignment(ctx, a)
}

func (s *memStore) GetAssignment(ctx context.Context, caseID, responderID string) (*model.ResponderAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.GetAssignment(ctx, caseID, responderID)
}

func (s *memStore) ListAssignments(ctx context.Context, caseID string) ([]model.ResponderAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.ListAssignments(ctx, caseID)
}

func (s *memStore) UpdateAssignmentStatus(ctx context.Context, id string, from, to model.AssignmentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.UpdateAssignmentStatus(ctx, id, from, to)
}

func (s *memStore) CompleteAssignments(ctx context.Context, caseID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.CompleteAssignments(ctx, caseID)
}

func (s *memStore) AppendLogEntry(ctx context.Context, entry *model.EscalationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.AppendLogEntry(ctx, entry)
}

func (s *memStore) ReadLog(ctx context.Context, caseID string) ([]model.EscalationLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memQueries{s: s}.ReadLog(ctx, caseID)
}

// memQueries runs with s.mu held.
type memQueries struct {
	s *memStore
}

func (q memQueries) fail(method string) error {
	return q.s.failOn[method]
}

func (q memQueries) GetUser(_ context.Context, id string) (*model.User, error) {
	if err := q.fail("GetUser"); err != nil {
		return nil, err
	}
	u, ok := q.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (q memQueries) FindActiveResponderNetwork(_ context.Context, requesterID string) ([]model.ResponderNetworkEntry, error) {
	if err := q.fail("FindActiveResponderNetwork"); err != nil {
		return nil, err
	}
	var out []model.ResponderNetworkEntry
	for _, e := range q.s.network {
		if e.RequesterID == requesterID && e.IsActive {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b model.ResponderNetworkEntry) int {
		return a.Priority - b.Priority
	})
	return out, nil
}

func (q memQueries) CreateCase(_ context.Context, c *model.EmergencyCase) error {
	if err := q.fail("CreateCase"); err != nil {
		return err
	}
	q.s.cases[c.ID] = *c
	q.s.writes++
	return nil
}

func (q memQueries) GetCase(_ context.Context, id string) (*model.EmergencyCase, error) {
	if err := q.fail("GetCase"); err != nil {
		return nil, err
	}
	c, ok := q.s.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %s: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (q memQueries) UpdateCaseStatus(_ context.Context, u CaseStatusUpdate) (bool, error) {
	if err := q.fail("UpdateCaseStatus"); err != nil {
		return false, err
	}
	c, ok := q.s.cases[u.CaseID]
	if !ok || !slices.Contains(u.From, c.Status) {
		return false, nil
	}
	c.Status = u.To
	if u.ResolvedAt != nil {
		at := *u.ResolvedAt
		c.ResolvedAt = &at
	}
	if u.ResolvedBy != nil {
		by := *u.ResolvedBy
		c.ResolvedBy = &by
	}
	q.s.cases[u.CaseID] = c
	q.s.writes++
	return true, nil
}

func (q memQueries) CreateAlert(_ context.Context, a *model.Alert) error {
	if err := q.fail("CreateAlert"); err != nil {
		return err
	}
	if c, ok := q.s.cases[a.CaseID]; !ok || c.Status == model.CaseResolved {
		return fmt.Errorf("case %s not open: %w", a.CaseID, ErrConflict)
	}
	q.s.alerts = append(q.s.alerts, *a)
	q.s.writes++
	return nil
}

func (q memQueries) RecordDelivery(_ context.Context, d DeliveryUpdate) (bool, error) {
	if err := q.fail("RecordDelivery"); err != nil {
		return false, err
	}
	for i := range q.s.alerts {
		a := &q.s.alerts[i]
		if a.ID != d.AlertID {
			continue
		}
		if a.Status != model.AlertPending {
			return false, nil
		}
		a.Status = d.Status
		a.Attempts = d.Attempts
		a.ProviderRef = d.ProviderRef
		a.SentAt = d.SentAt
		q.s.writes++
		return true, nil
	}
	return false, nil
}

func (q memQueries) ListAlerts(_ context.Context, caseID string) ([]model.Alert, error) {
	if err := q.fail("ListAlerts"); err != nil {
		return nil, err
	}
	var out []model.Alert
	for _, a := range q.s.alerts {
		if a.CaseID == caseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (q memQueries) AckAlerts(_ context.Context, caseID, receiverID string) (int64, error) {
	if err := q.fail("AckAlerts"); err != nil {
		return 0, err
	}
	var n int64
	for i := range q.s.alerts {
		a := &q.s.alerts[i]
		if a.CaseID != caseID || (receiverID != "" && a.ReceiverID != receiverID) {
			continue
		}
		if a.Status == model.AlertPending || a.Status == model.AlertSent {
			a.Status = model.AlertAcknowledged
			n++
		}
	}
	if n > 0 {
		q.s.writes++
	}
	return n, nil
}

func (q memQueries) CreateAssignment(_ context.Context, a *model.ResponderAssignment) error {
	if err := q.fail("CreateAssignment"); err != nil {
		return err
	}
	if c, ok := q.s.cases[a.CaseID]; !ok || c.Status == model.CaseResolved {
		return fmt.Errorf("case %s not open: %w", a.CaseID, ErrConflict)
	}
	q.s.assignments = append(q.s.assignments, *a)
	q.s.writes++
	return nil
}

func (q memQueries) GetAssignment(_ context.Context, caseID, responderID string) (*model.ResponderAssignment, error) {
	if err := q.fail("GetAssignment"); err != nil {
		return nil, err
	}
	for _, a := range q.s.assignments {
		if a.CaseID == caseID && a.ResponderID == responderID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("assignment: %w", ErrNotFound)
}

func (q memQueries) ListAssignments(_ context.Context, caseID string) ([]model.ResponderAssignment, error) {
	if err := q.fail("ListAssignments"); err != nil {
		return nil, err
	}
	var out []model.ResponderAssignment
	for _, a := range q.s.assignments {
		if a.CaseID == caseID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (q memQueries) UpdateAssignmentStatus(_ context.Context, id string, from, to model.AssignmentStatus) (bool, error) {
	if err := q.fail("UpdateAssignmentStatus"); err != nil {
		return false, err
	}
	for i := range q.s.assignments {
		a := &q.s.assignments[i]
		if a.ID == id && a.Status == from {
			a.Status = to
			q.s.writes++
			return true, nil
		}
	}
	return false, nil
}

func (q memQueries) CompleteAssignments(_ context.Context, caseID string) (int64, error) {
	if err := q.fail("CompleteAssignments"); err != nil {
		return 0, err
	}
	var n int64
	for i := range q.s.assignments {
		a := &q.s.assignments[i]
		if a.CaseID == caseID && a.Status != model.AssignmentCompleted {
			a.Status = model.AssignmentCompleted
			n++
		}
	}
	if n > 0 {
		q.s.writes++
	}
	return n, nil
}

func (q memQueries) AppendLogEntry(_ context.Context, entry *model.EscalationLogEntry) error {
	if err := q.fail("AppendLogEntry"); err != nil {
		return err
	}
	for _, e := range q.s.log {
		if e.CaseID == entry.CaseID && e.Timestamp.After(entry.Timestamp) {
			entry.Timestamp = e.Timestamp
		}
	}
	q.s.seq++
	entry.Seq = q.s.seq
	q.s.log = append(q.s.log, *entry)
	q.s.writes++
	return nil
}

func (q memQueries) ReadLog(_ context.Context, caseID string) ([]model.EscalationLogEntry, error) {
	if err := q.fail("ReadLog"); err != nil {
		return nil, err
	}
	var out []model.EscalationLogEntry
	for _, e := range q.s.log {
		if e.CaseID == caseID {
			out = append(out, e)
		}
	}
	SortLog(out)
	return out, nil
}
