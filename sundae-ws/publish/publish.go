// Package publish puts broadcast envelopes on the chat events Kinesis stream,
// where the dispatcher picks them up and fans them out.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
)

// Envelope is the record format on the events stream.
type Envelope struct {
	RecipientKey string          `json:"recipientKey"`
	Payload      json.RawMessage `json:"payload"`
}

// Publisher publishes envelopes to the events stream.
type Publisher struct {
	client     kinesisiface.KinesisAPI
	streamName string
}

// New creates a new Publisher.
func New(client kinesisiface.KinesisAPI, streamName string) *Publisher {
	return &Publisher{
		client:     client,
		streamName: streamName,
	}
}

// Build creates a new Publisher using the standard stream name for the given
// environment.
func Build(sess *session.Session, env string) *Publisher {
	return New(kinesis.New(sess), StreamName(env))
}

// StreamName returns the Kinesis stream name for the given environment.
func StreamName(env string) string {
	return sundaecli.ResourceName(env, "events")
}

// Send publishes an already encoded event for recipientKey. The recipient key
// is the partition key, which keeps events for one recipient in order on the
// stream.
func (p *Publisher) Send(ctx context.Context, recipientKey string, payload []byte) error {
	data, err := json.Marshal(Envelope{
		RecipientKey: recipientKey,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope for %v: %w", recipientKey, err)
	}

	_, err = p.client.PutRecordWithContext(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(p.streamName),
		PartitionKey: aws.String(recipientKey),
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to kinesis stream %v: %w", p.streamName, err)
	}
	return nil
}
