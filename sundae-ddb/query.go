package sundaeddb

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// QueryAll lazily walks every page of a query, decoding each item into T. A
// page is only fetched once the consumer has drained the previous one, so
// breaking out of the loop early stops further reads. input is modified as
// pages advance.
func QueryAll[T any](ctx context.Context, api dynamodbiface.DynamoDBAPI, input *dynamodb.QueryInput) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for {
			output, err := api.QueryWithContext(ctx, input)
			if err != nil {
				yield(zero, fmt.Errorf("failed to query table %v: %w", aws.StringValue(input.TableName), err))
				return
			}

			for _, item := range output.Items {
				var v T
				if err := dynamodbattribute.UnmarshalMap(item, &v); err != nil {
					if !yield(zero, fmt.Errorf("unable to unmarshal item: %w", err)) {
						return
					}
					continue
				}
				if !yield(v, nil) {
					return
				}
			}

			if len(output.LastEvaluatedKey) == 0 {
				return
			}
			input.ExclusiveStartKey = output.LastEvaluatedKey
		}
	}
}

// ScanAll walks every item of a table, decoding each into T and handing it to fn.
func ScanAll[T any](ctx context.Context, api dynamodbiface.DynamoDBAPI, input *dynamodb.ScanInput, fn func(T) error) error {
	var callbackErr error
	err := api.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		for _, item := range page.Items {
			var v T
			if err := dynamodbattribute.UnmarshalMap(item, &v); err != nil {
				callbackErr = fmt.Errorf("unable to unmarshal item: %w", err)
				return false
			}
			if err := fn(v); err != nil {
				callbackErr = err
				return false
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to scan table %v: %w", aws.StringValue(input.TableName), err)
	}
	return callbackErr
}

// IsConditionalCheckFailed reports whether err is DynamoDB rejecting a write
// because its condition expression did not hold.
func IsConditionalCheckFailed(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

// Failed returns a sequence that yields err once.
func Failed[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// WrapErr passes every error of seq through wrap.
func WrapErr[T any](seq iter.Seq2[T, error], wrap func(error) error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range seq {
			if err != nil {
				err = wrap(err)
			}
			if !yield(v, err) {
				return
			}
		}
	}
}
