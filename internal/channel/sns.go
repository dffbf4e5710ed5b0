package channel

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/edvin/ern/internal/escalation"
)

type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSMS delivers alerts as transactional SMS through AWS SNS.
type SNSSMS struct {
	client publisher
}

func NewSNSSMS(region, accessKeyID, secretAccessKey string) *SNSSMS {
	client := sns.New(sns.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
	})
	return &SNSSMS{client: client}
}

func (s *SNSSMS) Send(ctx context.Context, d escalation.Delivery) (escalation.Receipt, error) {
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(d.Recipient),
		Message:     aws.String(d.Message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			// Emergency alerts must not be throttled as marketing traffic.
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		return escalation.Receipt{}, fmt.Errorf("sns publish: %w", err)
	}

	ref := aws.ToString(out.MessageId)
	return escalation.Receipt{Delivered: ref != "", ProviderRef: ref}, nil
}
