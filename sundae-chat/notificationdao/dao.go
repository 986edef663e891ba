package notificationdao

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"
	"github.com/savaki/ddb"
)

// DAO provides access to the notifications table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new notifications DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Notification{}),
		api:       api,
		tableName: tableName,
	}
}

func key(userID, id string) (map[string]*dynamodb.AttributeValue, error) {
	return dynamodbattribute.MarshalMap(map[string]string{
		"user_id": userID,
		"nid":     id,
	})
}

// Append stores n, assigning an ID when it has none.
func (d *DAO) Append(ctx context.Context, n Notification) (Notification, error) {
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().UnixMilli()
	}
	if n.ID == "" {
		id, err := NewID(time.UnixMilli(n.CreatedAt))
		if err != nil {
			return Notification{}, fmt.Errorf("failed to allocate notification id: %w", err)
		}
		n.ID = id
	}

	item, err := dynamodbattribute.MarshalMap(n)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to marshal notification %v/%v: %w", n.UserID, n.ID, err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("nid"))).
		Build()
	if err != nil {
		return Notification{}, fmt.Errorf("failed to build append condition: %w", err)
	}

	_, err = d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if sundaeddb.IsConditionalCheckFailed(err) {
			return Notification{}, fmt.Errorf("notification %v/%v already exists: %w", n.UserID, n.ID, chaterr.ErrConflict)
		}
		return Notification{}, chaterr.Unavailable(fmt.Errorf("failed to append notification %v/%v: %w", n.UserID, n.ID, err))
	}
	return n, nil
}

// Get retrieves a single notification.
func (d *DAO) Get(ctx context.Context, userID, id string) (Notification, error) {
	var n Notification
	if err := d.table.Get(userID).Range(id).ConsistentRead(true).ScanWithContext(ctx, &n); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return Notification{}, chaterr.NotFound("notification %v/%v", userID, id)
		}
		return Notification{}, chaterr.Unavailable(fmt.Errorf("failed to get notification %v/%v: %w", userID, id, err))
	}
	return n, nil
}

// Update applies change to an existing notification and returns the new record.
func (d *DAO) Update(ctx context.Context, userID, id string, change Update) (Notification, error) {
	var update expression.UpdateBuilder
	var fields int
	if change.IsRead != nil {
		update = update.Set(expression.Name("is_read"), expression.Value(*change.IsRead))
		fields++
	}
	if change.IsSaved != nil {
		update = update.Set(expression.Name("is_saved"), expression.Value(*change.IsSaved))
		fields++
	}
	if change.SenderName != nil {
		update = update.Set(expression.Name("sender_name"), expression.Value(*change.SenderName))
		fields++
	}
	if fields == 0 {
		return d.Get(ctx, userID, id)
	}

	k, err := key(userID, id)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to marshal key %v/%v: %w", userID, id, err)
	}
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("nid"))).
		Build()
	if err != nil {
		return Notification{}, fmt.Errorf("failed to build update for notification %v/%v: %w", userID, id, err)
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
			return Notification{}, chaterr.NotFound("notification %v/%v", userID, id)
		}
		return Notification{}, chaterr.Unavailable(fmt.Errorf("failed to update notification %v/%v: %w", userID, id, err))
	}

	var n Notification
	if err := dynamodbattribute.UnmarshalMap(output.Attributes, &n); err != nil {
		return Notification{}, fmt.Errorf("failed to unmarshal notification %v/%v: %w", userID, id, err)
	}
	return n, nil
}

// Delete removes a notification and returns what was stored.
func (d *DAO) Delete(ctx context.Context, userID, id string) (Notification, error) {
	k, err := key(userID, id)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to marshal key %v/%v: %w", userID, id, err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("nid"))).
		Build()
	if err != nil {
		return Notification{}, fmt.Errorf("failed to build delete condition: %w", err)
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
			return Notification{}, chaterr.NotFound("notification %v/%v", userID, id)
		}
		return Notification{}, chaterr.Unavailable(fmt.Errorf("failed to delete notification %v/%v: %w", userID, id, err))
	}

	var n Notification
	if err := dynamodbattribute.UnmarshalMap(output.Attributes, &n); err != nil {
		return Notification{}, fmt.Errorf("failed to unmarshal notification %v/%v: %w", userID, id, err)
	}
	return n, nil
}

// QueryByUser lazily pages through a user's feed, newest first.
func (d *DAO) QueryByUser(ctx context.Context, q FeedQuery) iter.Seq2[Notification, error] {
	cond := expression.Key("user_id").Equal(expression.Value(q.UserID))
	if q.Before != "" {
		cond = cond.And(expression.Key("nid").LessThan(expression.Value(q.Before)))
	}
	expr, err := expression.NewBuilder().WithKeyCondition(cond).Build()
	if err != nil {
		return sundaeddb.Failed[Notification](fmt.Errorf("failed to build feed query for %v: %w", q.UserID, err))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	}
	if q.PageSize > 0 {
		input.Limit = aws.Int64(q.PageSize)
	}
	return sundaeddb.WrapErr(sundaeddb.QueryAll[Notification](ctx, d.api, input), chaterr.Unavailable)
}

// QueryBySender lazily returns every notification triggered by userID using
// the SenderIndex GSI.
func (d *DAO) QueryBySender(ctx context.Context, userID string) iter.Seq2[Notification, error] {
	cond := expression.Key("sender_id").Equal(expression.Value(userID))
	expr, err := expression.NewBuilder().WithKeyCondition(cond).Build()
	if err != nil {
		return sundaeddb.Failed[Notification](fmt.Errorf("failed to build sender query for %v: %w", userID, err))
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(d.tableName),
		IndexName:                 aws.String(SenderIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	return sundaeddb.WrapErr(sundaeddb.QueryAll[Notification](ctx, d.api, input), chaterr.Unavailable)
}
