package sundaechat

import (
	"context"
	"fmt"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/rs/zerolog"
)

// ConnectionTable is a ConnectionStore that can also be scanned and swept.
type ConnectionTable interface {
	sundaews.ConnectionStore
	sundaews.ConnectionScanner
	RemoveExpired(ctx context.Context, connectionID string, now time.Time) (bool, error)
}

// Stack holds everything a chat binary is assembled from.
type Stack struct {
	Logger        zerolog.Logger
	Session       *session.Session // nil with --memory
	Connections   ConnectionTable
	Messages      MessageStore
	Notifications NotificationStore
	Registry      *sundaews.Registry
	Fanout        *sundaews.Fanout
	Service       *Service
	Metrics       sundaews.MetricsRecorder // nil in console mode
}

// Build assembles the stack from the parsed flags. A nil transport means API
// Gateway.
func Build(service sundaecli.Service, transport sundaews.PushTransport) (*Stack, error) {
	stack := &Stack{Logger: sundaecli.Logger(service)}

	var metrics sundaews.MetricsRecorder
	if ChatOpts.Memory {
		if !sundaecli.CommonOpts.Console {
			return nil, fmt.Errorf("--memory is only supported with --console")
		}
		stack.Connections = connectiondao.NewMemory()
		stack.Messages = messagedao.NewMemory()
		stack.Notifications = notificationdao.NewMemory()
	} else {
		stack.Session = session.Must(session.NewSession(aws.NewConfig()))
		api, err := sundaeddb.DynamoDBAPI(stack.Session)
		if err != nil {
			return nil, err
		}
		env := sundaecli.CommonOpts.Env
		stack.Connections = connectiondao.Build(api, env)
		stack.Messages = messagedao.Build(api, env)
		stack.Notifications = notificationdao.Build(api, env)
		if !sundaecli.CommonOpts.Console {
			metrics = sundaecli.NewMetrics(service, cloudwatch.New(stack.Session))
		}
	}

	stack.Metrics = metrics

	if transport == nil {
		transport = &sundaews.APIGatewayTransport{
			Endpoint: ChatOpts.WSEndpoint,
			Timeout:  ChatOpts.SendTimeout,
		}
	}

	stack.Registry = &sundaews.Registry{
		Connections:   stack.Connections,
		Logger:        stack.Logger,
		TTL:           ChatOpts.ConnTTL,
		SingleSession: ChatOpts.SingleSession,
	}
	stack.Fanout = &sundaews.Fanout{
		Connections: stack.Connections,
		Transport:   transport,
		Logger:      stack.Logger,
		Concurrency: ChatOpts.FanoutConcurrency,
		Metrics:     metrics,
	}
	stack.Service = &Service{
		Messages:      stack.Messages,
		Notifications: stack.Notifications,
		Registry:      stack.Registry,
		Fanout:        stack.Fanout,
		Logger:        stack.Logger,
		InlineFanout:  ChatOpts.InlineFanout || ChatOpts.Memory,
	}
	return stack, nil
}

// RoomLifecycle returns the room seeding reaction bound to this stack.
func (s *Stack) RoomLifecycle() *RoomLifecycle {
	return &RoomLifecycle{Service: s.Service, Logger: s.Logger}
}

// NicknameSyncer returns the display-name propagation bound to this stack.
func (s *Stack) NicknameSyncer() *NicknameSyncer {
	return &NicknameSyncer{
		Messages:      s.Messages,
		Notifications: s.Notifications,
		Logger:        s.Logger,
	}
}

// WebSocketHandler returns the API Gateway route handler bound to this stack.
func (s *Stack) WebSocketHandler() *sundaews.Handler {
	return &sundaews.Handler{
		Registry:  s.Registry,
		Transport: s.Fanout.Transport,
		Actions:   &Actions{Service: s.Service},
		Logger:    s.Logger,
		Endpoint:  ChatOpts.WSEndpoint,
	}
}
