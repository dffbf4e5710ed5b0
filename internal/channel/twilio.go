package channel

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/edvin/ern/internal/escalation"
)

// messageCreator is the part of the Twilio REST API used for sending.
type messageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// TwilioSMS delivers alerts as SMS through Twilio.
type TwilioSMS struct {
	api        messageCreator
	fromNumber string
}

func NewTwilioSMS(accountSID, authToken, fromNumber string) *TwilioSMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMS{api: client.Api, fromNumber: fromNumber}
}

func (t *TwilioSMS) Send(ctx context.Context, d escalation.Delivery) (escalation.Receipt, error) {
	// The Twilio client takes no context; at least honor one that is already done.
	if err := ctx.Err(); err != nil {
		return escalation.Receipt{}, err
	}

	params := &api.CreateMessageParams{}
	params.SetTo(d.Recipient)
	params.SetFrom(t.fromNumber)
	params.SetBody(d.Message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return escalation.Receipt{}, fmt.Errorf("twilio create message: %w", err)
	}

	var receipt escalation.Receipt
	if resp.Sid != nil {
		receipt.ProviderRef = *resp.Sid
	}
	if resp.Status != nil {
		switch status := fmt.Sprint(*resp.Status); status {
		case "failed", "undelivered", "canceled":
			return receipt, fmt.Errorf("twilio message %s: status %s", receipt.ProviderRef, status)
		}
	}
	receipt.Delivered = receipt.ProviderRef != ""
	return receipt, nil
}
