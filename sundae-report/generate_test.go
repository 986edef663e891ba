package sundaereport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/tj/assert"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	put     *s3.PutObjectInput
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.put = input
	f.objects[aws.StringValue(input.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2WithContext(_ aws.Context, input *s3.ListObjectsV2Input, _ ...request.Option) (*s3.ListObjectsV2Output, error) {
	output := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if strings.HasPrefix(key, aws.StringValue(input.Prefix)) {
			output.Contents = append(output.Contents, &s3.Object{Key: aws.String(key)})
		}
	}
	return output, nil
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestReportKey(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	assert.Equal(t, "chat-report/connections/2024-03-09/14/2024-03-09-14:05:06.json", ReportKey("chat-report", "connections", ts))
}

func TestHandler_Generate(t *testing.T) {
	ctx := context.Background()
	store := &fakeS3{objects: map[string][]byte{}}
	now := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

	h := NewHandler(sundaecli.NewService("chat-report"), "connections", func(ctx context.Context) (interface{}, error) {
		return map[string]int{"live": 3}, nil
	})
	h.S3 = store
	h.Now = func() time.Time { return now }

	assert.NoError(t, h.Generate(ctx, nil))
	assert.Equal(t, "application/json", aws.StringValue(store.put.ContentType))
	assert.Equal(t, `{"live":3}`, string(store.objects[ReportKey("chat-report", "connections", now)]))

	data, key, err := GetRawAsOf(ctx, store, "", "chat-report", "connections", now.Add(48*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, ReportKey("chat-report", "connections", now), key)
	assert.Equal(t, `{"live":3}`, string(data))

	_, _, err = GetRawAsOf(ctx, store, "", "chat-report", "connections", now.Add(10*24*time.Hour))
	assert.Error(t, err)
}

func TestHandler_GenerateError(t *testing.T) {
	h := NewHandler(sundaecli.NewService("chat-report"), "connections", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("scan failed")
	})
	h.S3 = &fakeS3{objects: map[string][]byte{}}
	assert.Error(t, h.Generate(context.Background(), nil))
}
