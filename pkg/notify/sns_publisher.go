// Package notify publishes operational alerts.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Alert is a message for the operations topic
type Alert struct {
	Subject    string
	Message    string
	Attributes map[string]string
}

// Publisher sends alerts
type Publisher interface {
	Publish(ctx context.Context, alert Alert) (string, error)
}

// snsAPI is the subset of the SNS client the publisher needs
type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes alerts to one SNS topic
type SNSPublisher struct {
	client   snsAPI
	topicARN string
}

// NewSNSPublisher creates a publisher for topicARN
func NewSNSPublisher(awsCfg aws.Config, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}
}

// Publish sends alert and returns the SNS message ID
func (p *SNSPublisher) Publish(ctx context.Context, alert Alert) (string, error) {
	input := &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(alert.Message),
	}
	if alert.Subject != "" {
		// SNS rejects subjects of 100 characters or more
		subject := alert.Subject
		if len(subject) > 99 {
			subject = subject[:99]
		}
		input.Subject = aws.String(subject)
	}
	if len(alert.Attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(alert.Attributes))
		for k, v := range alert.Attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}

	out, err := p.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", p.topicARN, err)
	}
	return aws.ToString(out.MessageId), nil
}

// MemoryPublisher records alerts instead of sending them
type MemoryPublisher struct {
	mu     sync.Mutex
	alerts []Alert
}

// NewMemoryPublisher creates an empty recorder
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, alert Alert) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return fmt.Sprintf("memory-%d", len(p.alerts)), nil
}

// Alerts returns a copy of what was published
func (p *MemoryPublisher) Alerts() []Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Alert(nil), p.alerts...)
}
