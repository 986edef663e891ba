package sundaeddb

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/tj/assert"
)

type item struct {
	ID string `dynamodbav:"id"`
}

// pagedAPI serves pages of items, two per page.
type pagedAPI struct {
	dynamodbiface.DynamoDBAPI
	items   []item
	queries int
}

func (p *pagedAPI) QueryWithContext(_ aws.Context, input *dynamodb.QueryInput, _ ...request.Option) (*dynamodb.QueryOutput, error) {
	p.queries++
	start := 0
	if input.ExclusiveStartKey != nil {
		fmt.Sscan(aws.StringValue(input.ExclusiveStartKey["offset"].N), &start)
	}
	end := min(start+2, len(p.items))

	output := &dynamodb.QueryOutput{}
	for _, v := range p.items[start:end] {
		av, err := dynamodbattribute.MarshalMap(v)
		if err != nil {
			return nil, err
		}
		output.Items = append(output.Items, av)
	}
	if end < len(p.items) {
		output.LastEvaluatedKey = map[string]*dynamodb.AttributeValue{
			"offset": {N: aws.String(fmt.Sprint(end))},
		}
	}
	return output, nil
}

func TestQueryAll(t *testing.T) {
	ctx := context.Background()
	api := &pagedAPI{items: []item{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}}

	var ids []string
	for v, err := range QueryAll[item](ctx, api, &dynamodb.QueryInput{TableName: aws.String("t")}) {
		assert.NoError(t, err)
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Equal(t, 3, api.queries)

	// stopping early fetches no further pages
	api.queries = 0
	for v, err := range QueryAll[item](ctx, api, &dynamodb.QueryInput{TableName: aws.String("t")}) {
		assert.NoError(t, err)
		if v.ID == "b" {
			break
		}
	}
	assert.Equal(t, 1, api.queries)
}

func TestIsConditionalCheckFailed(t *testing.T) {
	err := awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "nope", nil)
	assert.True(t, IsConditionalCheckFailed(err))
	assert.True(t, IsConditionalCheckFailed(fmt.Errorf("put: %w", err)))
	assert.False(t, IsConditionalCheckFailed(errors.New("nope")))
}

func TestWrapErr(t *testing.T) {
	sentinel := errors.New("store unavailable")
	seq := WrapErr(Failed[item](errors.New("boom")), func(err error) error {
		return fmt.Errorf("%w: %w", sentinel, err)
	})
	for _, err := range seq {
		assert.True(t, errors.Is(err, sentinel))
	}
}
