package sundaews

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/publish"
	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

// Broadcaster is satisfied by *Fanout.
type Broadcaster interface {
	Broadcast(ctx context.Context, recipientKey string, payload []byte) DeliveryReport
}

// Dispatcher fans out envelopes read from the events Kinesis stream.
type Dispatcher struct {
	Fanout Broadcaster
	Logger zerolog.Logger
}

// HandleKinesisEvent processes a batch of Kinesis records. Bad records are
// logged and skipped so one poison record cannot stall the shard.
func (d *Dispatcher) HandleKinesisEvent(ctx context.Context, event events.KinesisEvent) error {
	for _, record := range event.Records {
		if err := d.HandleRecord(ctx, record.Kinesis.Data); err != nil {
			d.Logger.Error().Err(err).
				Str("event_id", record.EventID).
				Msg("failed to process kinesis record")
		}
	}
	return nil
}

// HandleRecord decodes one envelope and broadcasts its payload.
func (d *Dispatcher) HandleRecord(ctx context.Context, data []byte) error {
	var envelope publish.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if _, _, err := ParseRecipientKey(envelope.RecipientKey); err != nil {
		return fmt.Errorf("failed to route envelope: %w", err)
	}
	if err := ValidatePayload(envelope.Payload); err != nil {
		return fmt.Errorf("failed to route envelope for %v: %w", envelope.RecipientKey, err)
	}

	report := d.Fanout.Broadcast(ctx, envelope.RecipientKey, envelope.Payload)
	d.Logger.Debug().
		Str("recipient_key", envelope.RecipientKey).
		Int("delivered", report.Delivered).
		Int("evicted", len(report.Evicted)).
		Msg("dispatched envelope")
	return nil
}
