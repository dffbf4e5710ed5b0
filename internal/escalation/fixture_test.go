package escalation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/edvin/ern/internal/model"
)

const requesterID = "req-1"

func strPtr(s string) *string { return &s }

// channelFunc adapts a function to Channel.
type channelFunc func(ctx context.Context, d Delivery) (Receipt, error)

func (f channelFunc) Send(ctx context.Context, d Delivery) (Receipt, error) {
	return f(ctx, d)
}

// fakeChannel delivers everything except the recipients told to fail.
type fakeChannel struct {
	mu       sync.Mutex
	sends    []Delivery
	attempts map[string]int
	// failFirst makes the first n attempts to a recipient fail. A negative
	// count fails every attempt.
	failFirst map[string]int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{attempts: map[string]int{}, failFirst: map[string]int{}}
}

func (f *fakeChannel) Send(_ context.Context, d Delivery) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, d)
	f.attempts[d.Recipient]++
	n, ok := f.failFirst[d.Recipient]
	if ok && (n < 0 || f.attempts[d.Recipient] <= n) {
		return Receipt{}, errors.New("carrier unavailable")
	}
	return Receipt{Delivered: true, ProviderRef: "ref-" + d.AlertID}, nil
}

func (f *fakeChannel) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

// testClock advances one second on every read.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type recordingArchiver struct {
	mu      sync.Mutex
	cases   []string
	entries map[string][]model.EscalationLogEntry
	err     error
}

func (a *recordingArchiver) Archive(_ context.Context, caseID string, entries []model.EscalationLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.entries == nil {
		a.entries = map[string][]model.EscalationLogEntry{}
	}
	a.cases = append(a.cases, caseID)
	a.entries[caseID] = entries
	return a.err
}

func testDispatchConfig() DispatchConfig {
	return DispatchConfig{
		Channel:        model.ChannelSMS,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func responderPhone(i int) string {
	return fmt.Sprintf("+1555000000%d", i)
}

// seedNetwork stores a requester and n responders with priorities 1..n.
// Odd-numbered responders are Narcan trained.
func seedNetwork(store *memStore, n int) {
	store.addUser(model.User{ID: requesterID, FirstName: "Alex", LastName: "Johnson", Phone: strPtr("+15551234567")})
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("resp-%d", i)
		store.addUser(model.User{
			ID:            id,
			FirstName:     "Responder",
			LastName:      fmt.Sprint(i),
			Phone:         strPtr(responderPhone(i)),
			NarcanTrained: i%2 == 1,
		})
		store.addNetworkEntry(model.ResponderNetworkEntry{
			ID:          fmt.Sprintf("net-%d", i),
			RequesterID: requesterID,
			ResponderID: id,
			Priority:    i,
			IsActive:    true,
		})
	}
}

type fixture struct {
	store   *memStore
	channel Channel
	engine  *Engine
}

func newFixture(t *testing.T, responders int, channel Channel, opts ...Option) *fixture {
	t.Helper()
	store := newMemStore()
	seedNetwork(store, responders)
	if channel == nil {
		channel = newFakeChannel()
	}
	opts = append([]Option{WithClock(newTestClock().Now)}, opts...)
	return &fixture{
		store:   store,
		channel: channel,
		engine:  NewEngine(store, channel, testDispatchConfig(), zerolog.Nop(), opts...),
	}
}

func (f *fixture) trigger(t *testing.T, severity model.Severity) *TriggerResult {
	t.Helper()
	res, err := f.engine.Trigger(context.Background(), TriggerRequest{
		RequesterID: requesterID,
		Severity:    severity,
		Location:    &model.Location{Lat: 40.7128, Lng: -74.006, Address: "123 Main St"},
	})
	require.NoError(t, err)
	return res
}

func actions(entries []model.EscalationLogEntry) []model.LogAction {
	out := make([]model.LogAction, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

func countAction(entries []model.EscalationLogEntry, action model.LogAction) int {
	n := 0
	for _, e := range entries {
		if e.Action == action {
			n++
		}
	}
	return n
}
