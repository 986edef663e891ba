package connectiondao

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/savaki/ddb"
	"github.com/tj/assert"
)

func withTable(t *testing.T, callback func(ctx context.Context, dao *DAO)) {
	endpoint := os.Getenv("DYNAMODB_ENDPOINT")
	if endpoint == "" {
		t.Skip("DYNAMODB_ENDPOINT not set; skipping DynamoDB Local test")
	}

	var (
		s = session.Must(session.NewSession(aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials("blah", "blah", "")).
			WithEndpoint(endpoint).
			WithRegion("us-west-2")))
		api       = dynamodb.New(s)
		client    = ddb.New(api)
		tableName = fmt.Sprintf("connections-%v", time.Now().UnixNano())
		table     = client.MustTable(tableName, Connection{})
		dao       = New(api, tableName)
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := table.CreateTableIfNotExists(ctx)
	assert.Nil(t, err)
	defer table.DeleteTableIfExists(ctx)

	callback(ctx, dao)
}

func TestDAO(t *testing.T) {
	withTable(t, func(ctx context.Context, dao *DAO) {
		ttl := time.Now().Add(time.Hour).Unix()

		err := dao.Upsert(ctx, Connection{ConnectionID: "conn1", RecipientKey: "room:42", UserID: "u1", TTL: ttl})
		assert.Nil(t, err)
		err = dao.Upsert(ctx, Connection{ConnectionID: "conn2", RecipientKey: "room:42", UserID: "u2", TTL: ttl})
		assert.Nil(t, err)

		conn, err := dao.Get(ctx, "conn1")
		assert.Nil(t, err)
		assert.Equal(t, "room:42", conn.RecipientKey)

		conns, err := dao.ListByRecipient(ctx, "room:42")
		assert.Nil(t, err)
		got := ids(conns)
		sort.Strings(got)
		assert.Equal(t, []string{"conn1", "conn2"}, got)

		conns, err = dao.ListByUser(ctx, "u2")
		assert.Nil(t, err)
		assert.Equal(t, []string{"conn2"}, ids(conns))

		// remove twice; the second is a no-op
		assert.Nil(t, dao.Remove(ctx, "conn2"))
		assert.Nil(t, dao.Remove(ctx, "conn2"))

		_, err = dao.Get(ctx, "conn2")
		assert.True(t, errors.Is(err, chaterr.ErrNotFound))

		// expired rows read as absent
		err = dao.Upsert(ctx, Connection{ConnectionID: "conn3", RecipientKey: "room:7", TTL: time.Now().Add(-time.Minute).Unix()})
		assert.Nil(t, err)
		_, err = dao.Get(ctx, "conn3")
		assert.True(t, errors.Is(err, chaterr.ErrNotFound))

		var scanned int
		err = dao.Scan(ctx, func(Connection) error {
			scanned++
			return nil
		})
		assert.Nil(t, err)
		assert.Equal(t, 2, scanned)

		// only expired rows are swept
		removed, err := dao.RemoveExpired(ctx, "conn1", time.Now())
		assert.Nil(t, err)
		assert.False(t, removed)
		removed, err = dao.RemoveExpired(ctx, "conn3", time.Now())
		assert.Nil(t, err)
		assert.True(t, removed)
		removed, err = dao.RemoveExpired(ctx, "conn3", time.Now())
		assert.Nil(t, err)
		assert.False(t, removed)
	})
}
