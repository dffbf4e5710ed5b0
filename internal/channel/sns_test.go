package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/ern/internal/escalation"
)

type fakePublisher struct {
	input *sns.PublishInput
	out   *sns.PublishOutput
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestSNSSMS_Send(t *testing.T) {
	pub := &fakePublisher{out: &sns.PublishOutput{MessageId: aws.String("msg-1")}}
	ch := &SNSSMS{client: pub}

	receipt, err := ch.Send(context.Background(), escalation.Delivery{
		Recipient: "+15551112222",
		Message:   "🚨 EMERGENCY ALERT",
	})

	require.NoError(t, err)
	assert.Equal(t, escalation.Receipt{Delivered: true, ProviderRef: "msg-1"}, receipt)
	require.NotNil(t, pub.input)
	assert.Equal(t, "+15551112222", aws.ToString(pub.input.PhoneNumber))
	assert.Equal(t, "🚨 EMERGENCY ALERT", aws.ToString(pub.input.Message))
	attr := pub.input.MessageAttributes["AWS.SNS.SMS.SMSType"]
	assert.Equal(t, "Transactional", aws.ToString(attr.StringValue))
}

func TestSNSSMS_SendError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("throttled")}
	ch := &SNSSMS{client: pub}

	_, err := ch.Send(context.Background(), escalation.Delivery{Recipient: "+15551112222"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sns publish")
}

func TestNewSNSSMS(t *testing.T) {
	ch := NewSNSSMS("eu-west-1", "AKIA", "secret")
	require.NotNil(t, ch)
	client, ok := ch.client.(*sns.Client)
	require.True(t, ok)
	assert.Equal(t, "eu-west-1", client.Options().Region)
}
