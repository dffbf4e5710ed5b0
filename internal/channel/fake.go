package channel

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/platform"
)

// Fake accepts every message and only logs it. It backs local development
// and the default configuration.
type Fake struct {
	logger zerolog.Logger
}

func NewFake(logger zerolog.Logger) *Fake {
	return &Fake{logger: logger.With().Str("component", "fake-channel").Logger()}
}

func (f *Fake) Send(ctx context.Context, d escalation.Delivery) (escalation.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return escalation.Receipt{}, err
	}
	ref := platform.NewRef("fake_")
	f.logger.Info().
		Str("alert_id", d.AlertID).
		Str("channel", d.Channel).
		Str("provider_ref", ref).
		Int("length", len(d.Message)).
		Msg("alert delivered")
	return escalation.Receipt{Delivered: true, ProviderRef: ref}, nil
}
