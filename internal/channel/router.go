package channel

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/ern/internal/config"
	"github.com/edvin/ern/internal/escalation"
	"github.com/edvin/ern/internal/model"
)

// Router sends each delivery through the channel registered for its
// Delivery.Channel.
type Router struct {
	routes map[string]escalation.Channel
}

func NewRouter() *Router {
	return &Router{routes: map[string]escalation.Channel{}}
}

// Handle registers ch for the named channel, replacing any previous one.
func (r *Router) Handle(name string, ch escalation.Channel) *Router {
	r.routes[name] = ch
	return r
}

func (r *Router) Send(ctx context.Context, d escalation.Delivery) (escalation.Receipt, error) {
	ch, ok := r.routes[d.Channel]
	if !ok {
		return escalation.Receipt{}, fmt.Errorf("no delivery channel for %q", d.Channel)
	}
	return ch.Send(ctx, d)
}

// New builds the router for the configured delivery provider. Only SMS is
// wired to a provider today.
func New(cfg *config.Config, logger zerolog.Logger) (*Router, error) {
	var sms escalation.Channel
	switch cfg.DeliveryProvider {
	case config.ProviderFake, "":
		sms = NewFake(logger)
	case config.ProviderTwilio:
		sms = NewTwilioSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	case config.ProviderSNS:
		sms = NewSNSSMS(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
	default:
		return nil, fmt.Errorf("unknown delivery provider %q", cfg.DeliveryProvider)
	}
	return NewRouter().Handle(model.ChannelSMS, sms), nil
}
