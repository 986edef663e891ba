package sundaews

import (
	"context"
	"testing"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/tj/assert"
)

func TestTakeCensus(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := connectiondao.NewMemory()
	store.Now = func() time.Time { return now }

	live := now.Add(time.Hour).Unix()
	for _, conn := range []connectiondao.Connection{
		{ConnectionID: "c1", RecipientKey: "room:42", UserID: "u1", TTL: live},
		{ConnectionID: "c2", RecipientKey: "room:42", UserID: "u2", TTL: live},
		{ConnectionID: "c3", RecipientKey: "room:7", UserID: "u1", TTL: live},
		{ConnectionID: "c4", RecipientKey: "user:u3", UserID: "u3", TTL: live},
		{ConnectionID: "c5", RecipientKey: "room:42", UserID: "u9", TTL: now.Add(-time.Minute).Unix()},
	} {
		assert.NoError(t, store.Upsert(ctx, conn))
	}

	census, err := TakeCensus(ctx, store, now, 2)
	assert.NoError(t, err)
	assert.Equal(t, 5, census.Total)
	assert.Equal(t, 4, census.Live)
	assert.Equal(t, 1, census.Expired)
	assert.Equal(t, 3, census.Users)
	assert.Equal(t, map[string]int{"room": 3, "user": 1}, census.ByKind)
	assert.Equal(t, []RecipientCount{
		{RecipientKey: "room:42", Connections: 2},
		{RecipientKey: "room:7", Connections: 1},
	}, census.TopRecipients)
	assert.Equal(t, now.UnixMilli(), census.GeneratedAt)
}
