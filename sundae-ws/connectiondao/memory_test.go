package connectiondao

import (
	"context"
	"testing"
	"time"

	"github.com/tj/assert"
)

func ids(conns []Connection) []string {
	var out []string
	for _, c := range conns {
		out = append(out, c.ConnectionID)
	}
	return out
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	ttl := now.Add(time.Hour).Unix()

	t.Run("last write wins", func(t *testing.T) {
		m := NewMemory()
		m.Now = func() time.Time { return now }

		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "c1", RecipientKey: "room:1", TTL: ttl}))
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "c1", RecipientKey: "room:2", TTL: ttl}))

		got, err := m.ListByRecipient(ctx, "room:1")
		assert.Nil(t, err)
		assert.Empty(t, got)

		got, err = m.ListByRecipient(ctx, "room:2")
		assert.Nil(t, err)
		assert.Equal(t, []string{"c1"}, ids(got))

		assert.Nil(t, m.Remove(ctx, "c1"))
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "c1", RecipientKey: "room:2", TTL: ttl}))
		got, err = m.ListByRecipient(ctx, "room:2")
		assert.Nil(t, err)
		assert.Equal(t, []string{"c1"}, ids(got))
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		m := NewMemory()
		assert.Nil(t, m.Remove(ctx, "missing"))
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "c1", RecipientKey: "room:1"}))
		assert.Nil(t, m.Remove(ctx, "c1"))
		assert.Nil(t, m.Remove(ctx, "c1"))

		got, err := m.ListByRecipient(ctx, "room:1")
		assert.Nil(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("list by recipient is exact", func(t *testing.T) {
		m := NewMemory()
		m.Now = func() time.Time { return now }
		for _, c := range []Connection{
			{ConnectionID: "a", RecipientKey: "room:42", UserID: "u1", TTL: ttl},
			{ConnectionID: "b", RecipientKey: "room:42", UserID: "u2", TTL: ttl},
			{ConnectionID: "c", RecipientKey: "room:4", UserID: "u1", TTL: ttl},
			{ConnectionID: "d", RecipientKey: "user:u1", UserID: "u1", TTL: ttl},
		} {
			assert.Nil(t, m.Upsert(ctx, c))
		}

		got, err := m.ListByRecipient(ctx, "room:42")
		assert.Nil(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(got))

		got, err = m.ListByUser(ctx, "u1")
		assert.Nil(t, err)
		assert.Equal(t, []string{"a", "c", "d"}, ids(got))
	})

	t.Run("remove expired keeps live and unbounded rows", func(t *testing.T) {
		m := NewMemory()
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "live", RecipientKey: "room:1", TTL: ttl}))
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "forever", RecipientKey: "room:1"}))
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "old", RecipientKey: "room:1", TTL: now.Unix() - 1}))

		for id, want := range map[string]bool{"live": false, "forever": false, "old": true, "missing": false} {
			removed, err := m.RemoveExpired(ctx, id, now)
			assert.Nil(t, err)
			assert.Equal(t, want, removed, id)
		}
	})

	t.Run("expired connections are absent but scannable", func(t *testing.T) {
		m := NewMemory()
		m.Now = func() time.Time { return now }
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "old", RecipientKey: "room:1", TTL: now.Unix()}))
		assert.Nil(t, m.Upsert(ctx, Connection{ConnectionID: "new", RecipientKey: "room:1", TTL: ttl}))

		got, err := m.ListByRecipient(ctx, "room:1")
		assert.Nil(t, err)
		assert.Equal(t, []string{"new"}, ids(got))

		var scanned []string
		err = m.Scan(ctx, func(c Connection) error {
			scanned = append(scanned, c.ConnectionID)
			return nil
		})
		assert.Nil(t, err)
		assert.Equal(t, []string{"new", "old"}, scanned)
	})
}
