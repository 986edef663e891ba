package sundaews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
)

const DefaultSendTimeout = 5 * time.Second

// ErrGone is returned by a PushTransport when the peer is no longer reachable
// and the connection should be evicted.
var ErrGone = errors.New("connection gone")

// PushTransport delivers a payload to a single connection.
type PushTransport interface {
	Send(ctx context.Context, conn connectiondao.Connection, payload []byte) error
}

// APIGatewayTransport posts to connections through the API Gateway
// Management API.
type APIGatewayTransport struct {
	// Endpoint overrides the endpoint recorded on each connection when set.
	Endpoint string
	Timeout  time.Duration

	// NewClient builds a management client for an endpoint. Defaults to one
	// backed by a fresh AWS session.
	NewClient func(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

	mu      sync.RWMutex
	clients map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
}

// Send posts payload to conn, bounded by the transport timeout.
func (t *APIGatewayTransport) Send(ctx context.Context, conn connectiondao.Connection, payload []byte) error {
	endpoint := conn.Endpoint
	if t.Endpoint != "" {
		endpoint = t.Endpoint
	}
	if endpoint == "" {
		return fmt.Errorf("no management endpoint for connection %v", conn.ConnectionID)
	}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := t.client(endpoint).PostToConnectionWithContext(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(conn.ConnectionID),
		Data:         payload,
	})
	if err != nil {
		if isGoneException(err) {
			return fmt.Errorf("failed to post to connection %v: %w", conn.ConnectionID, ErrGone)
		}
		return fmt.Errorf("failed to post to connection %v: %w", conn.ConnectionID, err)
	}
	return nil
}

func (t *APIGatewayTransport) client(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
	t.mu.RLock()
	if client, ok := t.clients[endpoint]; ok {
		t.mu.RUnlock()
		return client
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if client, ok := t.clients[endpoint]; ok {
		return client
	}
	if t.clients == nil {
		t.clients = make(map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI)
	}

	newClient := t.NewClient
	if newClient == nil {
		newClient = func(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
			sess := session.Must(session.NewSession(aws.NewConfig().WithEndpoint(endpoint)))
			return apigatewaymanagementapi.New(sess)
		}
	}
	client := newClient(endpoint)
	t.clients[endpoint] = client
	return client
}

// isGoneException reports whether err is API Gateway's GoneException (HTTP
// 410) for a connection that no longer exists.
func isGoneException(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusGone {
		return true
	}
	var awsErr awserr.Error
	if errors.As(err, &awsErr) && awsErr.Code() == apigatewaymanagementapi.ErrCodeGoneException {
		return true
	}
	return strings.Contains(err.Error(), apigatewaymanagementapi.ErrCodeGoneException)
}
