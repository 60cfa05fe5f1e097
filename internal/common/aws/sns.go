// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of *sns.Client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client SNSAPI
}

func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

// NewSNSClientWithAPI wraps an existing client or a test double.
func NewSNSClientWithAPI(api SNSAPI) *SNSClient {
	return &SNSClient{client: api}
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input)
}

// EventPublisher sends JSON events to one topic. A publisher without a topic drops events.
type EventPublisher struct {
	client   *SNSClient
	topicARN string
}

func NewEventPublisher(client *SNSClient, topicARN string) *EventPublisher {
	return &EventPublisher{client: client, topicARN: topicARN}
}

// Enabled reports whether events are actually sent.
func (p *EventPublisher) Enabled() bool {
	return p != nil && p.client != nil && p.topicARN != ""
}

// PublishEvent marshals payload and publishes it with an "eventType" message attribute.
func (p *EventPublisher) PublishEvent(ctx context.Context, eventType string, payload interface{}) (string, error) {
	if !p.Enabled() {
		return "", nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(eventType),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return aws.ToString(out.MessageId), nil
}
