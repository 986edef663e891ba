package sundaews

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

type failingStore struct {
	ConnectionStore
	listErr   error
	removeErr error
}

func (f failingStore) ListByRecipient(ctx context.Context, key string) ([]connectiondao.Connection, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ConnectionStore.ListByRecipient(ctx, key)
}

func (f failingStore) Remove(ctx context.Context, id string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.ConnectionStore.Remove(ctx, id)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[sundaecli.MetricName]int
	timed  int
}

func (c *countingMetrics) Count(_ context.Context, name sundaecli.MetricName, value int, _ ...map[sundaecli.DimensionName]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[sundaecli.MetricName]int{}
	}
	c.counts[name] += value
}

func (c *countingMetrics) Timing(_ context.Context, _ sundaecli.MetricName, _ time.Time, _ ...map[sundaecli.DimensionName]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timed++
}

func TestFanout(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"type":"newMessage","body":"hi"}`)

	setup := func(t *testing.T, ids ...string) (*Fanout, *connectiondao.Memory, *recordingTransport) {
		store := connectiondao.NewMemory()
		for _, id := range ids {
			err := store.Upsert(ctx, connectiondao.Connection{
				ConnectionID: id,
				RecipientKey: "room:42",
				TTL:          time.Now().Add(time.Hour).Unix(),
			})
			assert.Nil(t, err)
		}
		transport := newRecordingTransport()
		return &Fanout{
			Connections: store,
			Transport:   transport,
			Logger:      zerolog.Nop(),
		}, store, transport
	}

	t.Run("gone connection is evicted, live one kept", func(t *testing.T) {
		fanout, store, transport := setup(t, "conn1", "conn2")
		transport.errs["conn2"] = fmt.Errorf("failed to post to connection conn2: %w", ErrGone)

		report := fanout.Broadcast(ctx, "room:42", payload)
		assert.Equal(t, "room:42", report.Recipient)
		assert.Equal(t, 2, report.Attempted)
		assert.Equal(t, 1, report.Delivered)
		assert.Equal(t, []string{"conn2"}, report.Evicted)
		assert.Len(t, report.Failed, 0)
		assert.Equal(t, [][]byte{payload}, transport.payloads("conn1"))

		conns, err := store.ListByRecipient(ctx, "room:42")
		assert.Nil(t, err)
		assert.Equal(t, []string{"conn1"}, connectionIDs(conns))
	})

	t.Run("transient failure keeps the connection", func(t *testing.T) {
		fanout, store, transport := setup(t, "conn1", "conn2")
		transport.errs["conn1"] = errors.New("throttled")

		report := fanout.Broadcast(ctx, "room:42", payload)
		assert.Equal(t, 1, report.Delivered)
		assert.Len(t, report.Evicted, 0)
		assert.Equal(t, []string{"conn1"}, report.Failed)

		conns, err := store.ListByRecipient(ctx, "room:42")
		assert.Nil(t, err)
		assert.Equal(t, []string{"conn1", "conn2"}, connectionIDs(conns))
	})

	t.Run("failed eviction is reported as failed", func(t *testing.T) {
		fanout, store, transport := setup(t, "conn1")
		transport.errs["conn1"] = ErrGone
		fanout.Connections = failingStore{ConnectionStore: store, removeErr: chaterr.Unavailable(errors.New("boom"))}

		report := fanout.Broadcast(ctx, "room:42", payload)
		assert.Len(t, report.Evicted, 0)
		assert.Equal(t, []string{"conn1"}, report.Failed)
	})

	t.Run("lookup failure yields empty report", func(t *testing.T) {
		fanout, store, _ := setup(t, "conn1")
		fanout.Connections = failingStore{ConnectionStore: store, listErr: chaterr.Unavailable(errors.New("boom"))}

		report := fanout.Broadcast(ctx, "room:42", payload)
		assert.Equal(t, DeliveryReport{Recipient: "room:42", Evicted: []string{}, Failed: []string{}}, report)
	})

	t.Run("no connections", func(t *testing.T) {
		fanout, _, _ := setup(t)
		report := fanout.Broadcast(ctx, "room:42", payload)
		assert.Equal(t, 0, report.Attempted)
		assert.Equal(t, 0, report.Delivered)
	})

	t.Run("caller cancellation does not abort sends", func(t *testing.T) {
		fanout, _, transport := setup(t, "conn1", "conn2")

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		report := fanout.Broadcast(cancelled, "room:42", payload)
		assert.Equal(t, 2, report.Delivered)
		assert.Len(t, transport.payloads("conn2"), 1)
	})

	t.Run("many connections with a small worker pool", func(t *testing.T) {
		var ids []string
		for i := 0; i < 25; i++ {
			ids = append(ids, fmt.Sprintf("conn%02d", i))
		}
		fanout, _, transport := setup(t, ids...)
		fanout.Concurrency = 3
		transport.errs["conn07"] = ErrGone
		transport.errs["conn13"] = ErrGone

		report := fanout.Broadcast(ctx, "room:42", payload)
		assert.Equal(t, 25, report.Attempted)
		assert.Equal(t, 23, report.Delivered)
		assert.Equal(t, []string{"conn07", "conn13"}, report.Evicted)
	})

	t.Run("metrics", func(t *testing.T) {
		fanout, _, transport := setup(t, "conn1", "conn2", "conn3")
		transport.errs["conn2"] = ErrGone
		transport.errs["conn3"] = errors.New("timeout")
		metrics := &countingMetrics{}
		fanout.Metrics = metrics

		fanout.Broadcast(ctx, "room:42", payload)
		assert.Equal(t, 1, metrics.counts[sundaecli.FanoutDeliveredMetric])
		assert.Equal(t, 1, metrics.counts[sundaecli.FanoutEvictedMetric])
		assert.Equal(t, 1, metrics.counts[sundaecli.FanoutFailedMetric])
		assert.Equal(t, 1, metrics.timed)
	})
}
