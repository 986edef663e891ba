package sundaews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

// Caller identifies the connection an action arrived on. UserID is the
// identity resolved upstream by the authorizer, if any.
type Caller struct {
	ConnectionID string
	UserID       string
}

// ActionHandler executes application actions received on the $default route.
// The returned value is sent back to the caller inside an ack event.
type ActionHandler interface {
	HandleAction(ctx context.Context, caller Caller, action ClientAction) (interface{}, error)
}

// Handler handles API Gateway WebSocket route events.
type Handler struct {
	Registry  *Registry
	Transport PushTransport
	Actions   ActionHandler
	Logger    zerolog.Logger

	// Endpoint overrides the management endpoint derived from the request.
	Endpoint string
}

// HandleEvent routes an API Gateway WebSocket event to the appropriate handler.
func (h *Handler) HandleEvent(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := h.Logger.With().
		Str("connection_id", req.RequestContext.ConnectionID).
		Str("route", req.RequestContext.RouteKey).
		Logger()
	ctx = logger.WithContext(ctx)

	switch req.RequestContext.RouteKey {
	case "$connect":
		return h.handleConnect(ctx, logger, req)
	case "$disconnect":
		return h.handleDisconnect(ctx, logger, req)
	case "$default":
		return h.handleMessage(ctx, logger, req)
	default:
		logger.Warn().Msg("unknown route")
		return events.APIGatewayProxyResponse{StatusCode: 400}, nil
	}
}

func (h *Handler) endpoint(req events.APIGatewayWebsocketProxyRequest) string {
	if h.Endpoint != "" {
		return h.Endpoint
	}
	return fmt.Sprintf("https://%s/%s", req.RequestContext.DomainName, req.RequestContext.Stage)
}

// authorizedUser returns the user id placed in the request context by the
// upstream authorizer.
func authorizedUser(req events.APIGatewayWebsocketProxyRequest) string {
	claims, ok := req.RequestContext.Authorizer.(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range []string{"userId", "principalId"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// connectInput resolves the recipient for a handshake from its query string:
// an explicit recipientKey, else roomId, else the caller's own user feed.
// The userId query parameter only counts when no authorizer ran, and a user
// feed may only be joined by that user.
func (h *Handler) connectInput(req events.APIGatewayWebsocketProxyRequest) (ConnectInput, error) {
	query := req.QueryStringParameters
	userID := authorizedUser(req)
	if userID == "" && req.RequestContext.Authorizer == nil {
		userID = query["userId"]
	}

	in := ConnectInput{
		ConnectionID: req.RequestContext.ConnectionID,
		UserID:       userID,
		Endpoint:     h.endpoint(req),
	}
	switch {
	case query["recipientKey"] != "":
		in.RecipientKey = query["recipientKey"]
	case query["roomId"] != "":
		in.RecipientKey = RoomKey(query["roomId"])
	case userID != "":
		in.RecipientKey = UserKey(userID)
	default:
		return ConnectInput{}, chaterr.Required("roomId")
	}

	if owner, ok := strings.CutPrefix(in.RecipientKey, UserRecipient+":"); ok && owner != userID {
		return ConnectInput{}, chaterr.Forbidden("feed %v does not belong to the caller", in.RecipientKey)
	}
	return in, nil
}

func (h *Handler) handleConnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	in, err := h.connectInput(req)
	if err != nil {
		logger.Warn().Err(err).Msg("rejected connection")
		return events.APIGatewayProxyResponse{StatusCode: chaterr.HTTPStatus(err), Body: err.Error()}, nil
	}

	conn, err := h.Registry.Connect(ctx, in)
	if err != nil {
		logger.Error().Err(err).Msg("failed to store connection")
		return events.APIGatewayProxyResponse{StatusCode: chaterr.HTTPStatus(err)}, nil
	}

	logger.Info().
		Str("recipient_key", conn.RecipientKey).
		Str("user_id", conn.UserID).
		Msg("connection established")
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) handleDisconnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := h.Registry.Disconnect(ctx, req.RequestContext.ConnectionID); err != nil {
		logger.Error().Err(err).Msg("failed to delete connection")
	}

	logger.Info().Msg("connection closed")
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) handleMessage(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	self := connectiondao.Connection{
		ConnectionID: req.RequestContext.ConnectionID,
		Endpoint:     h.endpoint(req),
	}

	action, err := ParseAction(req.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid message")
		h.reply(ctx, logger, self, ErrorEvent("", err))
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	}
	logger = logger.With().Str("action", action.Action).Logger()

	if action.Action == ActionPing {
		h.reply(ctx, logger, self, PongEvent(action.RequestID))
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	}

	if h.Actions == nil {
		h.reply(ctx, logger, self, ErrorEvent(action.RequestID, chaterr.Invalid("action", fmt.Sprintf("unsupported action %q", action.Action))))
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	}

	caller := Caller{
		ConnectionID: self.ConnectionID,
		UserID:       authorizedUser(req),
	}
	result, err := h.Actions.HandleAction(ctx, caller, action)
	if err != nil {
		if chaterr.HTTPStatus(err) >= 500 {
			logger.Error().Err(err).Msg("action failed")
		} else {
			logger.Info().Err(err).Msg("action rejected")
		}
		h.reply(ctx, logger, self, ErrorEvent(action.RequestID, err))
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	}

	ack, err := AckEvent(action.RequestID, result)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode ack")
		return events.APIGatewayProxyResponse{StatusCode: 200}, nil
	}
	h.reply(ctx, logger, self, ack)
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) reply(ctx context.Context, logger zerolog.Logger, conn connectiondao.Connection, data []byte) {
	err := h.Transport.Send(ctx, conn, data)
	switch {
	case err == nil:
	case errors.Is(err, ErrGone):
		logger.Info().Msg("caller gone before reply")
		if err := h.Registry.Disconnect(ctx, conn.ConnectionID); err != nil {
			logger.Error().Err(err).Msg("failed to delete gone connection")
		}
	default:
		logger.Error().Err(err).Msg("failed to send reply")
	}
}
