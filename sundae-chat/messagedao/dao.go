package messagedao

import (
	"context"
	"fmt"
	"iter"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"
	"github.com/savaki/ddb"
)

// DAO provides access to the chat messages table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new messages DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Message{}),
		api:       api,
		tableName: tableName,
	}
}

func key(roomID string, ts int64) (map[string]*dynamodb.AttributeValue, error) {
	return dynamodbattribute.MarshalMap(map[string]interface{}{
		"room_id": roomID,
		"ts":      ts,
	})
}

// Append stores msg unless a message already holds the same (room, timestamp)
// slot, in which case the returned error wraps chaterr.ErrConflict.
func (d *DAO) Append(ctx context.Context, msg Message) (Message, error) {
	item, err := dynamodbattribute.MarshalMap(msg)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal message %v/%v: %w", msg.RoomID, msg.Timestamp, err)
	}

	cond := expression.AttributeNotExists(expression.Name("ts"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return Message{}, fmt.Errorf("failed to build append condition: %w", err)
	}

	_, err = d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if sundaeddb.IsConditionalCheckFailed(err) {
			return Message{}, fmt.Errorf("message %v/%v already exists: %w", msg.RoomID, msg.Timestamp, chaterr.ErrConflict)
		}
		return Message{}, chaterr.Unavailable(fmt.Errorf("failed to append message %v/%v: %w", msg.RoomID, msg.Timestamp, err))
	}
	return msg, nil
}

// Get retrieves a single message.
func (d *DAO) Get(ctx context.Context, roomID string, ts int64) (Message, error) {
	var msg Message
	if err := d.table.Get(roomID).Range(ts).ConsistentRead(true).ScanWithContext(ctx, &msg); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return Message{}, chaterr.NotFound("message %v/%v", roomID, ts)
		}
		return Message{}, chaterr.Unavailable(fmt.Errorf("failed to get message %v/%v: %w", roomID, ts, err))
	}
	return msg, nil
}

// Update applies change to an existing message and returns the new record.
func (d *DAO) Update(ctx context.Context, roomID string, ts int64, change Update) (Message, error) {
	var update expression.UpdateBuilder
	var fields int
	if change.Body != nil {
		update = update.Set(expression.Name("body"), expression.Value(*change.Body))
		fields++
	}
	if change.EditedAt != 0 {
		update = update.Set(expression.Name("edited_at"), expression.Value(change.EditedAt))
		fields++
	}
	if change.SenderName != nil {
		update = update.Set(expression.Name("sender_name"), expression.Value(*change.SenderName))
		fields++
	}
	if fields == 0 {
		return d.Get(ctx, roomID, ts)
	}

	k, err := key(roomID, ts)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal key %v/%v: %w", roomID, ts, err)
	}
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("ts"))).
		Build()
	if err != nil {
		return Message{}, fmt.Errorf("failed to build update for message %v/%v: %w", roomID, ts, err)
	}

	output, err := d.api.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       k,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              aws.String(dynamodb.ReturnValueAllNew),
	})
	if err != nil {
		if sundaeddb.IsConditionalCheckFailed(err) {
			return Message{}, chaterr.NotFound("message %v/%v", roomID, ts)
		}
		return Message{}, chaterr.Unavailable(fmt.Errorf("failed to update message %v/%v: %w", roomID, ts, err))
	}

	var msg Message
	if err := dynamodbattribute.UnmarshalMap(output.Attributes, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal message %v/%v: %w", roomID, ts, err)
	}
	return msg, nil
}

// Delete removes a message and returns what was stored.
func (d *DAO) Delete(ctx context.Context, roomID string, ts int64) (Message, error) {
	k, err := key(roomID, ts)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal key %v/%v: %w", roomID, ts, err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("ts"))).
		Build()
	if err != nil {
		return Message{}, fmt.Errorf("failed to build delete condition: %w", err)
	}

	output, err := d.api.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(d.tableName),
		Key:                      k,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
		ReturnValues:             aws.String(dynamodb.ReturnValueAllOld),
	})
	if err != nil {
		if sundaeddb.IsConditionalCheckFailed(err) {
			return Message{}, chaterr.NotFound("message %v/%v", roomID, ts)
		}
		return Message{}, chaterr.Unavailable(fmt.Errorf("failed to delete message %v/%v: %w", roomID, ts, err))
	}

	var msg Message
	if err := dynamodbattribute.UnmarshalMap(output.Attributes, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal message %v/%v: %w", roomID, ts, err)
	}
	return msg, nil
}

// QueryByRoom lazily pages through a room's messages.
func (d *DAO) QueryByRoom(ctx context.Context, q RoomQuery) iter.Seq2[Message, error] {
	cond := expression.Key("room_id").Equal(expression.Value(q.RoomID))
	if q.Since > 0 {
		if q.Descending {
			cond = cond.And(expression.Key("ts").LessThan(expression.Value(q.Since)))
		} else {
			cond = cond.And(expression.Key("ts").GreaterThan(expression.Value(q.Since)))
		}
	}

	expr, err := expression.NewBuilder().WithKeyCondition(cond).Build()
	if err != nil {
		return sundaeddb.Failed[Message](fmt.Errorf("failed to build room query for %v: %w", q.RoomID, err))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!q.Descending),
	}
	if q.PageSize > 0 {
		input.Limit = aws.Int64(q.PageSize)
	}
	return sundaeddb.WrapErr(sundaeddb.QueryAll[Message](ctx, d.api, input), chaterr.Unavailable)
}

// QueryBySender lazily returns every message authored by userID using the
// SenderIndex GSI.
func (d *DAO) QueryBySender(ctx context.Context, userID string) iter.Seq2[Message, error] {
	cond := expression.Key("sender_id").Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithKeyCondition(cond).Build()
	if err != nil {
		return sundaeddb.Failed[Message](fmt.Errorf("failed to build sender query for %v: %w", userID, err))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(SenderIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	return sundaeddb.WrapErr(sundaeddb.QueryAll[Message](ctx, d.api, input), chaterr.Unavailable)
}
