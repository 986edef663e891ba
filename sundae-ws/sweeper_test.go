package sundaews

import (
	"context"
	"testing"
	"time"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	setup := func(t *testing.T) *connectiondao.Memory {
		store := connectiondao.NewMemory()
		store.Now = func() time.Time { return now }
		rows := []connectiondao.Connection{
			{ConnectionID: "fresh", RecipientKey: "room:1", TTL: now.Add(time.Hour).Unix()},
			{ConnectionID: "stale", RecipientKey: "room:1", TTL: now.Add(-time.Minute).Unix()},
			{ConnectionID: "edge", RecipientKey: "user:u1", TTL: now.Unix()},
		}
		for _, row := range rows {
			assert.Nil(t, store.Upsert(ctx, row))
		}
		return store
	}

	remaining := func(t *testing.T, store *connectiondao.Memory) []string {
		var ids []string
		err := store.Scan(ctx, func(conn connectiondao.Connection) error {
			ids = append(ids, conn.ConnectionID)
			return nil
		})
		assert.Nil(t, err)
		return ids
	}

	t.Run("removes expired rows", func(t *testing.T) {
		store := setup(t)
		metrics := &countingMetrics{}
		sweeper := &Sweeper{Connections: store, Logger: zerolog.Nop(), Now: func() time.Time { return now }, Metrics: metrics}

		report, err := sweeper.Sweep(ctx)
		assert.Nil(t, err)
		assert.Equal(t, 2, metrics.counts[sundaecli.SweepRemovedMetric])
		assert.Equal(t, 3, report.Scanned)
		assert.Equal(t, 2, report.Expired)
		assert.Equal(t, []string{"edge", "stale"}, report.Removed)
		assert.Len(t, report.Skipped, 0)
		assert.Equal(t, []string{"fresh"}, remaining(t, store))
	})

	t.Run("dry run leaves rows", func(t *testing.T) {
		store := setup(t)
		sweeper := &Sweeper{Connections: store, Logger: zerolog.Nop(), Now: func() time.Time { return now }, Dry: true}

		report, err := sweeper.Sweep(ctx)
		assert.Nil(t, err)
		assert.Equal(t, 2, report.Expired)
		assert.Len(t, report.Removed, 0)
		assert.Equal(t, []string{"edge", "fresh", "stale"}, remaining(t, store))
	})

	t.Run("row reconnected after the scan survives", func(t *testing.T) {
		store := setup(t)
		sweeper := &Sweeper{
			Connections: &reconnectingStore{Memory: store, id: "stale", ttl: now.Add(time.Hour).Unix()},
			Logger:      zerolog.Nop(),
			Now:         func() time.Time { return now },
		}

		report, err := sweeper.Sweep(ctx)
		assert.Nil(t, err)
		assert.Equal(t, []string{"edge"}, report.Removed)
		assert.Equal(t, []string{"stale"}, report.Skipped)
		assert.Equal(t, []string{"fresh", "stale"}, remaining(t, store))
	})
}

// reconnectingStore re-upserts one connection with a fresh TTL as soon as the
// scan finishes, the way a client reconnecting under the same ID would.
type reconnectingStore struct {
	*connectiondao.Memory
	id  string
	ttl int64
}

func (r *reconnectingStore) Scan(ctx context.Context, fn func(connectiondao.Connection) error) error {
	if err := r.Memory.Scan(ctx, fn); err != nil {
		return err
	}
	conn := connectiondao.Connection{ConnectionID: r.id, RecipientKey: "room:1", TTL: r.ttl}
	return r.Memory.Upsert(ctx, conn)
}
