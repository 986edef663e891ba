package publish

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
	"github.com/tj/assert"
)

type fakeKinesis struct {
	kinesisiface.KinesisAPI
	inputs []*kinesis.PutRecordInput
}

func (f *fakeKinesis) PutRecordWithContext(_ aws.Context, input *kinesis.PutRecordInput, _ ...request.Option) (*kinesis.PutRecordOutput, error) {
	f.inputs = append(f.inputs, input)
	return &kinesis.PutRecordOutput{}, nil
}

func TestPublisher(t *testing.T) {
	client := &fakeKinesis{}
	p := New(client, StreamName("dev"))

	err := p.Send(context.Background(), "room:42", []byte(`{"type":"system","body":"maintenance"}`))
	assert.Nil(t, err)
	assert.Len(t, client.inputs, 1)

	input := client.inputs[0]
	assert.Equal(t, "dev-chat--events", aws.StringValue(input.StreamName))
	assert.Equal(t, "room:42", aws.StringValue(input.PartitionKey))

	var envelope Envelope
	assert.Nil(t, json.Unmarshal(input.Data, &envelope))
	assert.Equal(t, "room:42", envelope.RecipientKey)
	assert.Equal(t, `{"type":"system","body":"maintenance"}`, string(envelope.Payload))
}
