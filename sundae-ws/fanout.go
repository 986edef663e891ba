package sundaews

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 50

// DeliveryReport summarizes one broadcast. Evicted lists connections removed
// because the transport reported them gone; Failed lists connections whose
// send failed for any other reason, plus gone connections whose removal
// failed.
type DeliveryReport struct {
	Recipient string   `json:"recipient"`
	Attempted int      `json:"attempted"`
	Delivered int      `json:"delivered"`
	Evicted   []string `json:"evicted"`
	Failed    []string `json:"failed"`
}

// MetricsRecorder is satisfied by sundaecli.Metrics.
type MetricsRecorder interface {
	Count(ctx context.Context, name sundaecli.MetricName, value int, dimensions ...map[sundaecli.DimensionName]string)
	Timing(ctx context.Context, name sundaecli.MetricName, start time.Time, dimensions ...map[sundaecli.DimensionName]string)
}

// Fanout delivers payloads to every connection registered under a recipient.
type Fanout struct {
	Connections ConnectionStore
	Transport   PushTransport
	Logger      zerolog.Logger
	Concurrency int             // max concurrent sends (default 50)
	Metrics     MetricsRecorder // optional
}

// Broadcast sends payload to every live connection of recipientKey. It never
// fails as a whole; per-connection outcomes are in the report. Sends are
// detached from ctx cancellation so a broadcast that has started finishes.
func (f *Fanout) Broadcast(ctx context.Context, recipientKey string, payload []byte) DeliveryReport {
	started := time.Now()
	ctx = context.WithoutCancel(ctx)
	logger := f.Logger.With().Str("recipient_key", recipientKey).Logger()

	report := DeliveryReport{
		Recipient: recipientKey,
		Evicted:   []string{},
		Failed:    []string{},
	}

	conns, err := f.Connections.ListByRecipient(ctx, recipientKey)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve connections")
		return report
	}
	if len(conns) == 0 {
		return report
	}
	report.Attempted = len(conns)

	concurrency := f.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(concurrency)

	for _, conn := range conns {
		g.Go(func() error {
			outcome := f.deliver(ctx, logger, conn, payload)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case delivered:
				report.Delivered++
			case evicted:
				report.Evicted = append(report.Evicted, conn.ConnectionID)
			default:
				report.Failed = append(report.Failed, conn.ConnectionID)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Evicted)
	sort.Strings(report.Failed)

	logger.Debug().
		Int("attempted", report.Attempted).
		Int("delivered", report.Delivered).
		Int("evicted", len(report.Evicted)).
		Int("failed", len(report.Failed)).
		Msg("broadcast complete")

	f.record(ctx, report, started)
	return report
}

type outcome int

const (
	delivered outcome = iota
	evicted
	failed
)

func (f *Fanout) deliver(ctx context.Context, logger zerolog.Logger, conn connectiondao.Connection, payload []byte) outcome {
	logger = logger.With().Str("connection_id", conn.ConnectionID).Logger()

	err := f.Transport.Send(ctx, conn, payload)
	switch {
	case err == nil:
		return delivered

	case errors.Is(err, ErrGone):
		if err := f.Connections.Remove(ctx, conn.ConnectionID); err != nil {
			logger.Error().Err(err).Msg("failed to evict gone connection")
			return failed
		}
		logger.Info().Msg("connection gone, evicted")
		return evicted

	default:
		logger.Warn().Err(err).Msg("failed to deliver")
		return failed
	}
}

func (f *Fanout) record(ctx context.Context, report DeliveryReport, started time.Time) {
	if f.Metrics == nil {
		return
	}

	kind, _, _ := ParseRecipientKey(report.Recipient)
	dims := map[sundaecli.DimensionName]string{
		sundaecli.RecipientKindDimension: kind,
	}
	f.Metrics.Timing(ctx, sundaecli.FanoutDurationMetric, started, dims)
	f.Metrics.Count(ctx, sundaecli.FanoutDeliveredMetric, report.Delivered, dims)
	if n := len(report.Evicted); n > 0 {
		f.Metrics.Count(ctx, sundaecli.FanoutEvictedMetric, n, dims)
	}
	if n := len(report.Failed); n > 0 {
		f.Metrics.Count(ctx, sundaecli.FanoutFailedMetric, n, dims)
	}
}
