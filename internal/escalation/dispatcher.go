package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/ern/internal/model"
	"github.com/edvin/ern/internal/platform"
)

// DispatchConfig bounds how hard the dispatcher tries to reach a responder.
type DispatchConfig struct {
	Channel        string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
	// Concurrency caps simultaneous responder branches. Zero means one
	// goroutine per selected responder.
	Concurrency int
}

func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		Channel:        model.ChannelSMS,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		AttemptTimeout: 10 * time.Second,
	}
}

func (c DispatchConfig) withDefaults() DispatchConfig {
	def := DefaultDispatchConfig()
	if c.Channel == "" {
		c.Channel = def.Channel
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = def.AttemptTimeout
	}
	return c
}

// Failure kinds reported in a DispatchResult.
const (
	FailureDelivery    = "delivery"
	FailurePersistence = "persistence"
	FailureSuperseded  = "superseded"
)

// DispatchFailure describes one responder that was not reached.
type DispatchFailure struct {
	ResponderID string `json:"responderId"`
	AlertID     string `json:"alertId,omitempty"`
	Kind        string `json:"kind"`
	Attempts    int    `json:"attempts"`
	Error       string `json:"error"`

	Err error `json:"-"`
}

// DispatchResult summarizes a fan-out. NotifiedCount counts alerts created,
// whether or not delivery succeeded; delivery problems are in Failures.
type DispatchResult struct {
	NotifiedCount int               `json:"notifiedCount"`
	AlertIDs      []string          `json:"alertIds"`
	Failures      []DispatchFailure `json:"failures,omitempty"`
}

// Dispatcher creates alerts and assignments for selected responders and
// delivers the alerts, one independent branch per responder.
type Dispatcher struct {
	store   Queries
	channel Channel
	cfg     DispatchConfig
	logger  zerolog.Logger
	now     func() time.Time
}

func NewDispatcher(store Queries, channel Channel, cfg DispatchConfig, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		channel: channel,
		cfg:     cfg.withDefaults(),
		logger:  logger.With().Str("component", "dispatcher").Logger(),
		now:     time.Now,
	}
}

// branchResult is what one responder branch hands back to the join.
type branchResult struct {
	entry   model.ResponderNetworkEntry
	alertID string
	failure *DispatchFailure
}

// Dispatch notifies every selected responder concurrently. A failure in one
// branch never cancels or delays another. Once all branches settle, one
// RESPONDER_NOTIFIED entry per responder is appended in selection order.
//
// The returned error is non-nil only if the audit entries could not be
// written; delivery and per-branch storage problems are reported in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, c *model.EmergencyCase, requester *model.User, selected []model.ResponderNetworkEntry) (*DispatchResult, error) {
	start := time.Now()
	defer func() { dispatchDuration.Observe(time.Since(start).Seconds()) }()

	// Branches outlive the caller's cancellation: each attempt carries its own
	// timeout instead.
	branchCtx := context.WithoutCancel(ctx)

	results := make([]branchResult, len(selected))
	var g errgroup.Group
	if d.cfg.Concurrency > 0 {
		g.SetLimit(d.cfg.Concurrency)
	}
	for i, entry := range selected {
		g.Go(func() error {
			results[i] = d.notify(branchCtx, c, requester, entry)
			return nil
		})
	}
	g.Wait()

	result := &DispatchResult{AlertIDs: []string{}}
	var logErrs []error
	for _, r := range results {
		if r.alertID != "" {
			result.NotifiedCount++
			result.AlertIDs = append(result.AlertIDs, r.alertID)
		}
		if r.failure != nil {
			result.Failures = append(result.Failures, *r.failure)
		}

		entry := newLogEntry(c.ID, model.ActionResponderNotified, notifiedDetails(r, d.cfg.Channel), c.RequesterID, d.now())
		if err := d.store.AppendLogEntry(branchCtx, entry); err != nil {
			logErrs = append(logErrs, err)
		}
	}

	d.logger.Info().
		Str("case_id", c.ID).
		Int("selected", len(selected)).
		Int("notified", result.NotifiedCount).
		Int("failures", len(result.Failures)).
		Dur("duration", time.Since(start)).
		Msg("dispatch settled")

	if len(logErrs) > 0 {
		return result, persistenceError("append notification log", errors.Join(logErrs...))
	}
	return result, nil
}

func (d *Dispatcher) notify(ctx context.Context, c *model.EmergencyCase, requester *model.User, entry model.ResponderNetworkEntry) branchResult {
	res := branchResult{entry: entry}
	logger := d.logger.With().Str("case_id", c.ID).Str("responder_id", entry.ResponderID).Logger()
	now := d.now()

	var phone string
	if requester.Phone != nil {
		phone = *requester.Phone
	}
	alert := &model.Alert{
		ID:         platform.NewID(),
		CaseID:     c.ID,
		SenderID:   c.RequesterID,
		ReceiverID: entry.ResponderID,
		Channel:    d.cfg.Channel,
		Message: RenderMessage(MessageInput{
			Severity:               c.Severity,
			RequesterName:          requester.FullName(),
			RequesterPhone:         phone,
			Location:               c.Location,
			ResponderHasCapability: entry.Responder.NarcanTrained,
		}),
		Status:    model.AlertPending,
		CreatedAt: now,
	}
	if err := d.store.CreateAlert(ctx, alert); err != nil {
		kind := FailurePersistence
		if errors.Is(err, ErrConflict) {
			kind = FailureSuperseded
		}
		logger.Error().Err(err).Msg("create alert failed")
		res.failure = &DispatchFailure{ResponderID: entry.ResponderID, Kind: kind, Error: err.Error(), Err: err}
		return res
	}
	res.alertID = alert.ID

	assignment := &model.ResponderAssignment{
		ID:            platform.NewID(),
		CaseID:        c.ID,
		ResponderID:   entry.ResponderID,
		Status:        model.AssignmentNotified,
		HasCapability: entry.Responder.NarcanTrained,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := d.store.CreateAssignment(ctx, assignment); err != nil {
		kind := FailurePersistence
		if errors.Is(err, ErrConflict) {
			// Resolved between the two inserts: the alert is already acknowledged.
			kind = FailureSuperseded
		}
		logger.Error().Err(err).Msg("create assignment failed")
		res.failure = &DispatchFailure{ResponderID: entry.ResponderID, AlertID: alert.ID, Kind: kind, Error: err.Error(), Err: err}
		return res
	}

	receipt, attempts, sendErr := d.deliver(ctx, alert, entry.Responder, logger)

	update := DeliveryUpdate{AlertID: alert.ID, Attempts: attempts}
	if sendErr != nil {
		update.Status = model.AlertFailed
		res.failure = &DispatchFailure{
			ResponderID: entry.ResponderID,
			AlertID:     alert.ID,
			Kind:        FailureDelivery,
			Attempts:    attempts,
			Error:       sendErr.Error(),
			Err:         sendErr,
		}
		alertsDeliveredTotal.WithLabelValues("failed").Inc()
		logger.Error().Err(sendErr).Int("attempts", attempts).Msg("alert delivery exhausted")
	} else {
		sentAt := d.now()
		update.Status = model.AlertSent
		update.SentAt = &sentAt
		if receipt.ProviderRef != "" {
			ref := receipt.ProviderRef
			update.ProviderRef = &ref
		}
		alertsDeliveredTotal.WithLabelValues("sent").Inc()
	}

	applied, err := d.store.RecordDelivery(ctx, update)
	if err != nil {
		logger.Error().Err(err).Msg("record delivery failed")
		if res.failure == nil {
			res.failure = &DispatchFailure{ResponderID: entry.ResponderID, AlertID: alert.ID, Kind: FailurePersistence, Attempts: attempts, Error: err.Error(), Err: err}
		}
		return res
	}
	if !applied {
		// A resolve already acknowledged the alert; its state wins.
		logger.Debug().Msg("delivery outcome superseded by resolution")
	}
	return res
}

// deliver sends one alert with bounded exponential backoff. It returns the
// number of attempts made.
func (d *Dispatcher) deliver(ctx context.Context, alert *model.Alert, responder model.User, logger zerolog.Logger) (Receipt, int, error) {
	if responder.Phone == nil || *responder.Phone == "" {
		return Receipt{}, 0, fmt.Errorf("%w: responder %s has no contact number", ErrDelivery, responder.ID)
	}

	delivery := Delivery{
		AlertID:   alert.ID,
		Recipient: *responder.Phone,
		Message:   alert.Message,
		Channel:   alert.Channel,
	}

	b := retry.NewExponential(d.cfg.InitialBackoff)
	b = retry.WithCappedDuration(d.cfg.MaxBackoff, b)
	b = retry.WithMaxRetries(uint64(d.cfg.MaxAttempts-1), b)

	var receipt Receipt
	attempts := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		deliveryAttemptsTotal.Inc()

		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		defer cancel()

		r, err := d.channel.Send(attemptCtx, delivery)
		if err == nil && !r.Delivered {
			err = errors.New("channel did not accept message")
		}
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempts).Msg("alert delivery attempt failed")
			return retry.RetryableError(err)
		}
		receipt = r
		return nil
	})
	if err != nil {
		return Receipt{}, attempts, fmt.Errorf("%w after %d attempts: %w", ErrDelivery, attempts, err)
	}
	return receipt, attempts, nil
}

func notifiedDetails(r branchResult, channel string) string {
	name := r.entry.Responder.FullName()
	if name == "" {
		name = r.entry.ResponderID
	}
	if r.failure == nil {
		return fmt.Sprintf("%s notified via %s", name, channel)
	}
	switch r.failure.Kind {
	case FailureDelivery:
		return fmt.Sprintf("%s notification via %s failed: %s", name, channel, r.failure.Error)
	case FailureSuperseded:
		return fmt.Sprintf("%s not notified: case already resolved", name)
	default:
		return fmt.Sprintf("%s not notified: %s", name, r.failure.Error)
	}
}
