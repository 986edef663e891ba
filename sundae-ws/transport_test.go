package sundaews

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	"github.com/tj/assert"
)

type fakeManagementAPI struct {
	apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

	mu     sync.Mutex
	posted map[string][]byte
	err    error
}

func (f *fakeManagementAPI) PostToConnectionWithContext(ctx aws.Context, input *apigatewaymanagementapi.PostToConnectionInput, _ ...request.Option) (*apigatewaymanagementapi.PostToConnectionOutput, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("send is not bounded by a deadline")
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.posted == nil {
		f.posted = map[string][]byte{}
	}
	f.posted[aws.StringValue(input.ConnectionId)] = input.Data
	return &apigatewaymanagementapi.PostToConnectionOutput{}, nil
}

func TestAPIGatewayTransport(t *testing.T) {
	ctx := context.Background()

	newTransport := func(api *fakeManagementAPI) (*APIGatewayTransport, *[]string) {
		var endpoints []string
		return &APIGatewayTransport{
			NewClient: func(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
				endpoints = append(endpoints, endpoint)
				return api
			},
		}, &endpoints
	}

	t.Run("posts and caches clients per endpoint", func(t *testing.T) {
		api := &fakeManagementAPI{}
		transport, endpoints := newTransport(api)

		conn := connectiondao.Connection{ConnectionID: "c1", Endpoint: "https://abc.execute-api/prod"}
		assert.Nil(t, transport.Send(ctx, conn, []byte(`{"type":"pong"}`)))
		assert.Nil(t, transport.Send(ctx, conn, []byte(`{"type":"pong"}`)))

		assert.Equal(t, []string{"https://abc.execute-api/prod"}, *endpoints)
		assert.Equal(t, `{"type":"pong"}`, string(api.posted["c1"]))
	})

	t.Run("endpoint override", func(t *testing.T) {
		transport, endpoints := newTransport(&fakeManagementAPI{})
		transport.Endpoint = "http://localhost:3001"

		conn := connectiondao.Connection{ConnectionID: "c1", Endpoint: "https://abc.execute-api/prod"}
		assert.Nil(t, transport.Send(ctx, conn, []byte(`{}`)))
		assert.Equal(t, []string{"http://localhost:3001"}, *endpoints)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		transport, _ := newTransport(&fakeManagementAPI{})
		err := transport.Send(ctx, connectiondao.Connection{ConnectionID: "c1"}, []byte(`{}`))
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrGone))
	})

	t.Run("gone exception maps to ErrGone", func(t *testing.T) {
		api := &fakeManagementAPI{err: awserr.New(apigatewaymanagementapi.ErrCodeGoneException, "gone", nil)}
		transport, _ := newTransport(api)

		err := transport.Send(ctx, connectiondao.Connection{ConnectionID: "c1", Endpoint: "https://x"}, []byte(`{}`))
		assert.True(t, errors.Is(err, ErrGone))
	})

	t.Run("other errors are not gone", func(t *testing.T) {
		api := &fakeManagementAPI{err: awserr.New("LimitExceededException", "slow down", nil)}
		transport, _ := newTransport(api)

		err := transport.Send(ctx, connectiondao.Connection{ConnectionID: "c1", Endpoint: "https://x"}, []byte(`{}`))
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrGone))
	})
}

func TestIsGoneException(t *testing.T) {
	assert.True(t, isGoneException(awserr.New(apigatewaymanagementapi.ErrCodeGoneException, "gone", nil)))
	assert.True(t, isGoneException(awserr.NewRequestFailure(awserr.New("Unknown", "gone", nil), http.StatusGone, "req")))
	assert.False(t, isGoneException(awserr.NewRequestFailure(awserr.New("InternalServerError", "oops", nil), http.StatusInternalServerError, "req")))
	assert.False(t, isGoneException(errors.New("status 4100 while reading")))
}
