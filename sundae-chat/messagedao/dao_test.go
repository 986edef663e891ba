package messagedao

import (
	"context"
	"errors"
	"fmt"
	"os"
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
		tableName = fmt.Sprintf("messages-%v", time.Now().UnixNano())
		table     = client.MustTable(tableName, Message{})
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
		file := &FileRef{Key: "uploads/a.png", ContentType: "image/png", OriginalName: "a.png"}
		for i, body := range []string{"one", "two", "three"} {
			_, err := dao.Append(ctx, Message{
				RoomID:     "R",
				Timestamp:  int64(1000 + i),
				SenderID:   "u1",
				SenderName: "Bob",
				Body:       body,
				Kind:       KindText,
				File:       file,
			})
			assert.Nil(t, err)
		}

		_, err := dao.Append(ctx, Message{RoomID: "R", Timestamp: 1000, Body: "dup"})
		assert.True(t, errors.Is(err, chaterr.ErrConflict))

		got, err := dao.Get(ctx, "R", 1001)
		assert.Nil(t, err)
		assert.Equal(t, "two", got.Body)
		assert.Equal(t, file, got.File)

		var bodies []string
		for msg, err := range dao.QueryByRoom(ctx, RoomQuery{RoomID: "R", PageSize: 2}) {
			assert.Nil(t, err)
			bodies = append(bodies, msg.Body)
		}
		assert.Equal(t, []string{"one", "two", "three"}, bodies)

		bodies = nil
		for msg, err := range dao.QueryByRoom(ctx, RoomQuery{RoomID: "R", Since: 1002, Descending: true}) {
			assert.Nil(t, err)
			bodies = append(bodies, msg.Body)
		}
		assert.Equal(t, []string{"two", "one"}, bodies)

		name := "Alice"
		updated, err := dao.Update(ctx, "R", 1000, Update{SenderName: &name})
		assert.Nil(t, err)
		assert.Equal(t, "Alice", updated.SenderName)
		assert.Equal(t, "one", updated.Body)

		_, err = dao.Update(ctx, "R", 5, Update{SenderName: &name})
		assert.True(t, errors.Is(err, chaterr.ErrNotFound))

		deleted, err := dao.Delete(ctx, "R", 1002)
		assert.Nil(t, err)
		assert.Equal(t, "three", deleted.Body)

		_, err = dao.Get(ctx, "R", 1002)
		assert.True(t, errors.Is(err, chaterr.ErrNotFound))
		_, err = dao.Delete(ctx, "R", 1002)
		assert.True(t, errors.Is(err, chaterr.ErrNotFound))
	})
}
