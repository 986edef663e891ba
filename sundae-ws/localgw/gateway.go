// Package localgw emulates the API Gateway WebSocket API for console mode.
// It upgrades plain HTTP requests with gorilla/websocket, turns socket
// lifecycle and frames into $connect, $default and $disconnect route events,
// and delivers pushes straight to the open sockets.
package localgw

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/aws/aws-lambda-go/events"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 128 << 10
	stage          = "local"
)

// RouteHandler is satisfied by *sundaews.Handler.
type RouteHandler interface {
	HandleEvent(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error)
}

// Gateway is an http.Handler serving WebSocket clients and a
// sundaews.PushTransport writing to them.
type Gateway struct {
	Handler  RouteHandler
	Logger   zerolog.Logger
	Upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

// New returns a Gateway dispatching route events to handler.
func New(handler RouteHandler, logger zerolog.Logger) *Gateway {
	return &Gateway{
		Handler: handler,
		Logger:  logger,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

type client struct {
	id     string
	userID string
	conn   *websocket.Conn

	writeMu sync.Mutex
	ready   chan struct{} // closed once conn is set
	done    chan struct{}
	once    sync.Once
}

func (c *client) write(messageType int, data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		select {
		case <-c.ready:
			_ = c.conn.Close()
		default:
		}
	})
}

// ServeHTTP runs $connect, upgrades the request and then serves the socket
// until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := ulid.Make().String()
	query := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	logger := g.Logger.With().Str("connection_id", id).Logger()
	ctx := logger.WithContext(context.Background())

	c := &client{
		id:     id,
		userID: query["userId"],
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}

	connect := g.request(c, "$connect", "")
	connect.QueryStringParameters = query
	resp, err := g.Handler.HandleEvent(ctx, connect)
	if err != nil {
		logger.Error().Err(err).Msg("connect handler failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if resp.StatusCode != http.StatusOK {
		http.Error(w, resp.Body, resp.StatusCode)
		return
	}

	// registered before the upgrade so pushes racing the handshake wait for
	// the socket instead of evicting the new connection
	g.register(c)
	conn, err := g.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to upgrade")
		g.disconnect(ctx, logger, c)
		return
	}
	c.conn = conn
	close(c.ready)
	select {
	case <-c.done:
		_ = conn.Close()
	default:
	}

	go g.pingLoop(logger, c)
	g.readLoop(ctx, logger, c)
	g.disconnect(ctx, logger, c)
}

func (g *Gateway) request(c *client, route, body string) events.APIGatewayWebsocketProxyRequest {
	req := events.APIGatewayWebsocketProxyRequest{
		Body: body,
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			ConnectionID: c.id,
			RouteKey:     route,
			Stage:        stage,
			DomainName:   "localhost",
			ConnectedAt:  time.Now().UnixMilli(),
		},
	}
	if c.userID != "" {
		req.RequestContext.Authorizer = map[string]interface{}{"principalId": c.userID}
	}
	return req
}

func (g *Gateway) register(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c.id] = c
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clients[c.id] == c {
		delete(g.clients, c.id)
	}
}

func (g *Gateway) lookup(id string) (*client, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.clients[id]
	return c, ok
}

func (g *Gateway) disconnect(ctx context.Context, logger zerolog.Logger, c *client) {
	g.unregister(c)
	c.close()
	if _, err := g.Handler.HandleEvent(ctx, g.request(c, "$disconnect", "")); err != nil {
		logger.Error().Err(err).Msg("disconnect handler failed")
	}
}

func (g *Gateway) readLoop(ctx context.Context, logger zerolog.Logger, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Warn().Err(err).Msg("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("unexpected close")
			}
			return
		}
		if _, err := g.Handler.HandleEvent(ctx, g.request(c, "$default", string(data))); err != nil {
			logger.Error().Err(err).Msg("default handler failed")
		}
	}
}

func (g *Gateway) pingLoop(logger zerolog.Logger, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Debug().Err(err).Msg("ping failed")
				c.close()
				return
			}
		}
	}
}

// Send writes payload to an open socket. Unknown or broken sockets report
// sundaews.ErrGone, matching API Gateway's GoneException.
func (g *Gateway) Send(ctx context.Context, conn connectiondao.Connection, payload []byte) error {
	c, ok := g.lookup(conn.ConnectionID)
	if !ok {
		return fmt.Errorf("failed to send to connection %v: %w", conn.ConnectionID, sundaews.ErrGone)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	select {
	case <-c.ready:
	case <-c.done:
		return fmt.Errorf("failed to send to connection %v: %w", conn.ConnectionID, sundaews.ErrGone)
	case <-time.After(time.Until(deadline)):
		return fmt.Errorf("failed to send to connection %v: handshake still pending", conn.ConnectionID)
	}
	if err := c.write(websocket.TextMessage, payload, deadline); err != nil {
		c.close()
		return fmt.Errorf("failed to send to connection %v: %v: %w", conn.ConnectionID, err, sundaews.ErrGone)
	}
	return nil
}

// Close closes every open socket.
func (g *Gateway) Close() {
	g.mu.RLock()
	clients := make([]*client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
