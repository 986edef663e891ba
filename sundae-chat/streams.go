package sundaechat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	sundaeddb "github.com/SundaeSwap-finance/sundae-chat/sundae-ddb"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/rs/zerolog"
)

const (
	MessagesSource      = "messages"
	NotificationsSource = "notifications"
)

// StreamFanout pushes change records of the messages and notifications tables
// to connected clients. Undecodable records return an error so the stream
// retries them; delivery problems never do.
type StreamFanout struct {
	Fanout sundaews.Broadcaster
	Logger zerolog.Logger
}

// NewHandler returns a stream handler for the given source table.
func (s *StreamFanout) NewHandler(service sundaecli.Service, source string) (*sundaeddb.Handler, error) {
	var h *sundaeddb.Handler
	switch source {
	case MessagesSource:
		h = sundaeddb.NewHandler(service, s.OnMessageInsert, s.OnMessageModify, s.OnMessageRemove)
	case NotificationsSource:
		h = sundaeddb.NewHandler(service, s.OnNotificationInsert, s.OnNotificationModify, s.OnNotificationRemove)
	default:
		return nil, fmt.Errorf("unknown stream source %q", source)
	}
	h.Logger = s.Logger
	return h, nil
}

func (s *StreamFanout) push(ctx context.Context, recipientKey, eventType string, v interface{}) error {
	payload, err := sundaews.EncodeEvent(eventType, v)
	if err != nil {
		return err
	}
	report := s.Fanout.Broadcast(ctx, recipientKey, payload)
	s.Logger.Debug().
		Str("recipient_key", recipientKey).
		Str("event", eventType).
		Int("delivered", report.Delivered).
		Int("evicted", len(report.Evicted)).
		Msg("pushed stream event")
	return nil
}

func (s *StreamFanout) message(ctx context.Context, eventType string, image map[string]*dynamodb.AttributeValue) error {
	var msg messagedao.Message
	if err := sundaeddb.ParseItem(image, &msg); err != nil {
		return fmt.Errorf("failed to decode message record: %w", err)
	}
	return s.push(ctx, sundaews.RoomKey(msg.RoomID), eventType, msg)
}

func (s *StreamFanout) OnMessageInsert(ctx context.Context, newValue map[string]*dynamodb.AttributeValue) error {
	return s.message(ctx, sundaews.EventNewMessage, newValue)
}

func (s *StreamFanout) OnMessageModify(ctx context.Context, _, newValue map[string]*dynamodb.AttributeValue) error {
	return s.message(ctx, sundaews.EventUpdateMessage, newValue)
}

func (s *StreamFanout) OnMessageRemove(ctx context.Context, oldValue map[string]*dynamodb.AttributeValue) error {
	return s.message(ctx, sundaews.EventDeleteMessage, oldValue)
}

func (s *StreamFanout) notification(ctx context.Context, eventType string, image map[string]*dynamodb.AttributeValue) error {
	var n notificationdao.Notification
	if err := sundaeddb.ParseItem(image, &n); err != nil {
		return fmt.Errorf("failed to decode notification record: %w", err)
	}
	return s.push(ctx, sundaews.UserKey(n.UserID), eventType, n)
}

func (s *StreamFanout) OnNotificationInsert(ctx context.Context, newValue map[string]*dynamodb.AttributeValue) error {
	return s.notification(ctx, sundaews.EventNewNotification, newValue)
}

func (s *StreamFanout) OnNotificationModify(ctx context.Context, _, newValue map[string]*dynamodb.AttributeValue) error {
	return s.notification(ctx, sundaews.EventUpdateNotification, newValue)
}

func (s *StreamFanout) OnNotificationRemove(ctx context.Context, oldValue map[string]*dynamodb.AttributeValue) error {
	return s.notification(ctx, sundaews.EventDeleteNotification, oldValue)
}

// TeamRecord is the part of a teams-table row that room creation needs.
type TeamRecord struct {
	ID   string `dynamodbav:"id"`
	Name string `dynamodbav:"name"`
}

// OnTeamInsert welcomes the room of a newly created team. Malformed rows are
// logged and dropped; store failures are returned so the stream retries.
func (r *RoomLifecycle) OnTeamInsert(ctx context.Context, newValue map[string]*dynamodb.AttributeValue) error {
	var team TeamRecord
	if err := sundaeddb.ParseItem(newValue, &team); err != nil {
		return err
	}
	_, err := r.OnRoomCreated(ctx, team.ID, team.Name)
	if errors.Is(err, chaterr.ErrValidation) {
		r.Logger.Warn().Err(err).Msg("ignoring malformed team record")
		return nil
	}
	return err
}

// ProfileRecord is the part of a users-table row that nickname propagation
// needs.
type ProfileRecord struct {
	ID          string `dynamodbav:"id"`
	DisplayName string `dynamodbav:"display_name"`
}

// OnProfileModify propagates a changed display name. A cleared or blank name
// keeps the names already on messages and notifications.
func (n *NicknameSyncer) OnProfileModify(ctx context.Context, oldValue, newValue map[string]*dynamodb.AttributeValue) error {
	var before, after ProfileRecord
	if err := sundaeddb.ParseItem(oldValue, &before); err != nil {
		return err
	}
	if err := sundaeddb.ParseItem(newValue, &after); err != nil {
		return err
	}
	if after.ID == "" || before.DisplayName == after.DisplayName {
		return nil
	}
	if strings.TrimSpace(after.DisplayName) == "" {
		n.Logger.Info().Str("user_id", after.ID).Msg("display name cleared; keeping existing sender names")
		return nil
	}

	_, err := n.OnDisplayNameChanged(ctx, after.ID, after.DisplayName)
	return err
}
