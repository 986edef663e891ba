package connectiondao

import (
	"context"
	"fmt"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/expression"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

// DAO provides access to the WebSocket connections table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string

	// Now is the clock used to hide expired rows; defaults to time.Now.
	Now func() time.Time
}

// New creates a new connections DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Connection{}),
		api:       api,
		tableName: tableName,
		Now:       time.Now,
	}
}

// Upsert stores a connection record, replacing any existing row with the same ID.
func (d *DAO) Upsert(ctx context.Context, conn Connection) error {
	if err := d.table.Put(conn).RunWithContext(ctx); err != nil {
		return chaterr.Unavailable(fmt.Errorf("failed to put connection %v: %w", conn.ConnectionID, err))
	}
	return nil
}

// Get retrieves a live connection record by ID.
func (d *DAO) Get(ctx context.Context, connectionID string) (Connection, error) {
	var conn Connection
	if err := d.table.Get(connectionID).ScanWithContext(ctx, &conn); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return Connection{}, chaterr.NotFound("connection %v", connectionID)
		}
		return Connection{}, chaterr.Unavailable(fmt.Errorf("failed to get connection %v: %w", connectionID, err))
	}
	if !conn.Live(d.Now()) {
		return Connection{}, chaterr.NotFound("connection %v", connectionID)
	}
	return conn, nil
}

// Remove deletes a connection record by ID. Removing an absent connection is
// not an error.
func (d *DAO) Remove(ctx context.Context, connectionID string) error {
	if err := d.table.Delete(connectionID).RunWithContext(ctx); err != nil {
		return chaterr.Unavailable(fmt.Errorf("failed to delete connection %v: %w", connectionID, err))
	}
	return nil
}

// RemoveExpired deletes a connection only if it is still expired at now, so a
// row re-upserted under the same ID survives. It reports whether a row was
// removed.
func (d *DAO) RemoveExpired(ctx context.Context, connectionID string, now time.Time) (bool, error) {
	ttl := expression.Name("ttl")
	cond := expression.And(
		expression.AttributeExists(ttl),
		ttl.NotEqual(expression.Value(0)),
		ttl.LessThanEqual(expression.Value(now.Unix())),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return false, fmt.Errorf("failed to build expiry condition: %w", err)
	}

	_, err = d.api.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(d.tableName),
		Key:                       map[string]*dynamodb.AttributeValue{"pk": {S: aws.String(connectionID)}},
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		if sundaeddb.IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, chaterr.Unavailable(fmt.Errorf("failed to delete expired connection %v: %w", connectionID, err))
	}
	return true, nil
}

// ListByRecipient returns the live connections subscribed to recipientKey
// using the RecipientIndex GSI.
func (d *DAO) ListByRecipient(ctx context.Context, recipientKey string) ([]Connection, error) {
	var conns []Connection
	err := d.table.Query("#RecipientKey = ?", recipientKey).
		IndexName(RecipientIndex).
		FindAllWithContext(ctx, &conns)
	if err != nil {
		return nil, chaterr.Unavailable(fmt.Errorf("failed to query connections by recipient %v: %w", recipientKey, err))
	}
	return live(conns, d.Now()), nil
}

// ListByUser returns the live connections opened by userID using the
// UserIndex GSI.
func (d *DAO) ListByUser(ctx context.Context, userID string) ([]Connection, error) {
	var conns []Connection
	err := d.table.Query("#UserID = ?", userID).
		IndexName(UserIndex).
		FindAllWithContext(ctx, &conns)
	if err != nil {
		return nil, chaterr.Unavailable(fmt.Errorf("failed to query connections by user %v: %w", userID, err))
	}
	return live(conns, d.Now()), nil
}

// Scan visits every connection row, including ones past their TTL.
func (d *DAO) Scan(ctx context.Context, fn func(Connection) error) error {
	input := &dynamodb.ScanInput{
		TableName: aws.String(d.tableName),
	}
	if err := sundaeddb.ScanAll(ctx, d.api, input, fn); err != nil {
		return chaterr.Unavailable(err)
	}
	return nil
}
