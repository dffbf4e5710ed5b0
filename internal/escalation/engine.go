package escalation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/ern/internal/model"
	"github.com/edvin/ern/internal/platform"
)

const maxDescriptionLength = 2000

var triggerTypes = map[string]bool{
	model.TriggerManual:       true,
	model.TriggerBiometric:    true,
	model.TriggerAIEscalation: true,
}

// Engine owns the emergency case lifecycle: trigger, responder updates,
// and resolution.
type Engine struct {
	store      Store
	dispatcher *Dispatcher
	archiver   Archiver
	logger     zerolog.Logger
	now        func() time.Time
}

type Option func(*Engine)

// WithArchiver exports the escalation log of every resolved case.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithClock replaces time.Now for the engine and its dispatcher.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.dispatcher.now = now
	}
}

func NewEngine(store Store, channel Channel, cfg DispatchConfig, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		dispatcher: NewDispatcher(store, channel, cfg, logger),
		logger:     logger.With().Str("component", "escalation").Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TriggerRequest is the input to Trigger.
type TriggerRequest struct {
	RequesterID string
	Severity    model.Severity
	Location    *model.Location
	Description string
	TriggerType string
}

// TriggerResult is the new case and what happened when notifying responders.
type TriggerResult struct {
	Case     *model.EmergencyCase `json:"case"`
	Dispatch *DispatchResult      `json:"dispatch"`
}

func (req *TriggerRequest) normalize() error {
	if req.RequesterID == "" {
		return validationErrorf("requester is required")
	}
	if req.Severity == "" {
		return validationErrorf("severity is required")
	}
	if !req.Severity.Valid() {
		return validationErrorf("unknown severity %q", req.Severity)
	}
	if req.TriggerType == "" {
		req.TriggerType = model.TriggerManual
	}
	if !triggerTypes[req.TriggerType] {
		return validationErrorf("unknown trigger type %q", req.TriggerType)
	}
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return validationErrorf("location: %v", err)
		}
	}
	req.Description = strings.TrimSpace(req.Description)
	if len(req.Description) > maxDescriptionLength {
		return validationErrorf("description exceeds %d characters", maxDescriptionLength)
	}
	if req.Description == "" {
		req.Description = fmt.Sprintf("%s level emergency triggered via %s", req.Severity, req.TriggerType)
	}
	return nil
}

// Trigger opens a case and notifies the requester's responders.
//
// The case and its CASE_TRIGGERED entry commit together before any
// notification is attempted. Delivery failures do not fail the call; they
// are reported in the returned DispatchResult.
func (e *Engine) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	requester, err := e.store.GetUser(ctx, req.RequesterID)
	if err != nil {
		return nil, persistenceError("get requester", err)
	}

	network, err := e.store.FindActiveResponderNetwork(ctx, requester.ID)
	if err != nil {
		return nil, persistenceError("load responder network", err)
	}
	selected := SelectResponders(req.Severity, network)

	now := e.now()
	c := &model.EmergencyCase{
		ID:          platform.NewID(),
		RequesterID: requester.ID,
		Severity:    req.Severity,
		Status:      model.CaseActive,
		Location:    req.Location,
		Description: req.Description,
		TriggerType: req.TriggerType,
		CreatedAt:   now,
	}
	details := fmt.Sprintf("%s level emergency activated by user via %s", c.Severity, c.TriggerType)
	if len(selected) == 0 {
		details += " (no active responders)"
	}
	triggered := newLogEntry(c.ID, model.ActionCaseTriggered, details, requester.ID, now)

	err = e.store.InTx(ctx, func(q Queries) error {
		if err := q.CreateCase(ctx, c); err != nil {
			return err
		}
		return q.AppendLogEntry(ctx, triggered)
	})
	if err != nil {
		return nil, persistenceError("create case", err)
	}
	casesTriggeredTotal.WithLabelValues(string(c.Severity)).Inc()

	logger := e.logger.With().Str("case_id", c.ID).Str("severity", string(c.Severity)).Logger()
	logger.Info().Str("trigger_type", c.TriggerType).Msg("case triggered")

	if len(selected) == 0 {
		logger.Warn().Int("network_size", len(network)).Msg("no responders to notify")
	}

	dispatch, err := e.dispatcher.Dispatch(ctx, c, requester, selected)
	if err != nil {
		return nil, err
	}

	return &TriggerResult{Case: c, Dispatch: dispatch}, nil
}
