// Package sundaekinesis runs Kinesis consumers either as a Lambda event
// source or, in console mode, by reading the stream directly.
package sundaekinesis

import (
	"context"
	"fmt"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	consumer "github.com/harlow/kinesis-consumer"
	"github.com/rs/zerolog"
)

type HandleRecordCallback func(ctx context.Context, data []byte) error

type Handler struct {
	Service sundaecli.Service
	Logger  zerolog.Logger

	// StreamName is read in console mode when --stream-name is not set.
	StreamName string

	handleRecord HandleRecordCallback
}

func NewHandler(service sundaecli.Service, streamName string, handleRecord HandleRecordCallback) *Handler {
	return &Handler{
		Service:      service,
		Logger:       sundaecli.Logger(service),
		StreamName:   streamName,
		handleRecord: handleRecord,
	}
}

func (h *Handler) Start() error {
	if sundaecli.CommonOpts.Console {
		return h.handleRealtime()
	}
	lambda.Start(h.HandleKinesisEvent)
	return nil
}

// HandleKinesisEvent hands every record to the callback. Records that fail
// are logged and skipped; a Kinesis batch is never retried for one bad
// record.
func (h *Handler) HandleKinesisEvent(ctx context.Context, event events.KinesisEvent) error {
	ctx = h.Logger.WithContext(ctx)
	for _, record := range event.Records {
		if err := h.handleRecord(ctx, record.Kinesis.Data); err != nil {
			h.Logger.Error().Err(err).
				Str("event_id", record.EventID).
				Str("sequence_number", record.Kinesis.SequenceNumber).
				Msg("failed to process kinesis record")
		}
	}
	return nil
}

func (h *Handler) options() []consumer.Option {
	if !KinesisOpts.Replay {
		return []consumer.Option{consumer.WithShardIteratorType("LATEST")}
	}
	if from := KinesisOpts.ReplayFrom.Value(); from != nil {
		return []consumer.Option{
			consumer.WithShardIteratorType("AT_TIMESTAMP"),
			consumer.WithTimestamp(*from),
		}
	}
	return []consumer.Option{consumer.WithShardIteratorType("TRIM_HORIZON")}
}

func (h *Handler) handleRealtime() error {
	streamName := KinesisOpts.StreamName
	if streamName == "" {
		streamName = h.StreamName
	}
	c, err := consumer.New(streamName, h.options()...)
	if err != nil {
		return fmt.Errorf("failed to create consumer for stream %v: %w", streamName, err)
	}

	ctx := h.Logger.WithContext(context.Background())
	h.Logger.Info().Str("stream", streamName).Msg("listening")
	return c.Scan(ctx, func(record *consumer.Record) error {
		if err := h.handleRecord(ctx, record.Data); err != nil {
			h.Logger.Error().Err(err).Str("sequence_number", *record.SequenceNumber).Msg("failed to process kinesis record")
		}
		return nil
	})
}
