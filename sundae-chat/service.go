package sundaechat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/rs/zerolog"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200

	// slotAttempts is how many ts+1 retries run before jumping past the
	// newest message in the room.
	slotAttempts = 32
)

// Service is the chat core used by the WebSocket, REST and GraphQL front
// ends.
type Service struct {
	Messages      MessageStore
	Notifications NotificationStore
	Registry      *sundaews.Registry
	Fanout        sundaews.Broadcaster
	Logger        zerolog.Logger

	// InlineFanout pushes events from the request path itself. When false,
	// a stream trigger on the tables is expected to push them.
	InlineFanout bool

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SendMessageInput is a new chat message. Timestamp is optional; when set it
// doubles as an idempotency token for retries.
type SendMessageInput struct {
	RoomID     string              `json:"roomId"`
	SenderID   string              `json:"senderId"`
	SenderName string              `json:"senderName"`
	Body       string              `json:"body"`
	File       *messagedao.FileRef `json:"file,omitempty"`
	Timestamp  int64               `json:"timestamp,omitempty"`
}

func (in SendMessageInput) validate() error {
	switch {
	case strings.TrimSpace(in.RoomID) == "":
		return chaterr.Required("roomId")
	case strings.TrimSpace(in.SenderID) == "":
		return chaterr.Required("senderId")
	case in.Timestamp < 0:
		return chaterr.Invalid("timestamp", "must be positive")
	case in.File != nil && in.File.Key == "":
		return chaterr.Required("file.key")
	case in.File == nil && strings.TrimSpace(in.Body) == "":
		return chaterr.Required("body")
	}
	return nil
}

// SendMessage appends a message to a room. Without a caller timestamp the
// current millisecond is used, moving forward one millisecond per collision.
// With a caller timestamp a collision is either a retry of the same message,
// which returns the stored record, or a conflict.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (messagedao.Message, error) {
	if err := in.validate(); err != nil {
		return messagedao.Message{}, err
	}

	msg := messagedao.Message{
		RoomID:     in.RoomID,
		SenderID:   in.SenderID,
		SenderName: in.SenderName,
		Body:       in.Body,
		Kind:       messagedao.KindText,
		File:       in.File,
	}
	if in.File != nil {
		msg.Kind = messagedao.KindFile
	}

	var (
		stored messagedao.Message
		err    error
	)
	if in.Timestamp > 0 {
		msg.Timestamp = in.Timestamp
		stored, err = s.appendIdempotent(ctx, msg)
	} else {
		msg.Timestamp = s.now().UnixMilli()
		stored, err = s.appendNext(ctx, msg)
	}
	if err != nil {
		return messagedao.Message{}, err
	}

	s.push(ctx, sundaews.RoomKey(stored.RoomID), sundaews.EventNewMessage, stored)
	return stored, nil
}

// appendNext stores msg at the first free timestamp at or after
// msg.Timestamp. It gives up only when ctx is done or the store fails.
func (s *Service) appendNext(ctx context.Context, msg messagedao.Message) (messagedao.Message, error) {
	for attempt := 1; ; attempt++ {
		stored, err := s.Messages.Append(ctx, msg)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, chaterr.ErrConflict) {
			return messagedao.Message{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return messagedao.Message{}, fmt.Errorf("failed to find free timestamp in room %v: %w", msg.RoomID, ctxErr)
		}

		next := max(msg.Timestamp+1, s.now().UnixMilli())
		if attempt%slotAttempts == 0 {
			latest, err := s.latestTimestamp(ctx, msg.RoomID)
			if err != nil {
				return messagedao.Message{}, err
			}
			next = max(next, latest+1)
		}
		msg.Timestamp = next
	}
}

// latestTimestamp returns the timestamp of the newest message in roomID, or
// zero for an empty room.
func (s *Service) latestTimestamp(ctx context.Context, roomID string) (int64, error) {
	q := messagedao.RoomQuery{RoomID: roomID, Descending: true, PageSize: 1}
	for msg, err := range s.Messages.QueryByRoom(ctx, q) {
		if err != nil {
			return 0, fmt.Errorf("failed to read latest message in room %v: %w", roomID, err)
		}
		return msg.Timestamp, nil
	}
	return 0, nil
}

func (s *Service) appendIdempotent(ctx context.Context, msg messagedao.Message) (messagedao.Message, error) {
	stored, err := s.Messages.Append(ctx, msg)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, chaterr.ErrConflict) {
		return messagedao.Message{}, err
	}

	existing, getErr := s.Messages.Get(ctx, msg.RoomID, msg.Timestamp)
	if getErr != nil {
		return messagedao.Message{}, getErr
	}
	if existing.SenderID == msg.SenderID && existing.Body == msg.Body {
		return existing, nil
	}
	return messagedao.Message{}, err
}

// EditMessage replaces the body of a message, leaving its key untouched.
func (s *Service) EditMessage(ctx context.Context, roomID string, ts int64, body string) (messagedao.Message, error) {
	if err := validateKey(roomID, ts); err != nil {
		return messagedao.Message{}, err
	}
	if strings.TrimSpace(body) == "" {
		return messagedao.Message{}, chaterr.Required("body")
	}

	msg, err := s.Messages.Update(ctx, roomID, ts, messagedao.Update{
		Body:     &body,
		EditedAt: s.now().UnixMilli(),
	})
	if err != nil {
		return messagedao.Message{}, err
	}

	s.push(ctx, sundaews.RoomKey(roomID), sundaews.EventUpdateMessage, msg)
	return msg, nil
}

// DeleteMessage removes a message and returns it.
func (s *Service) DeleteMessage(ctx context.Context, roomID string, ts int64) (messagedao.Message, error) {
	if err := validateKey(roomID, ts); err != nil {
		return messagedao.Message{}, err
	}

	msg, err := s.Messages.Delete(ctx, roomID, ts)
	if err != nil {
		return messagedao.Message{}, err
	}

	s.push(ctx, sundaews.RoomKey(roomID), sundaews.EventDeleteMessage, msg)
	return msg, nil
}

// GetMessage returns a single message.
func (s *Service) GetMessage(ctx context.Context, roomID string, ts int64) (messagedao.Message, error) {
	if err := validateKey(roomID, ts); err != nil {
		return messagedao.Message{}, err
	}
	return s.Messages.Get(ctx, roomID, ts)
}

func validateKey(roomID string, ts int64) error {
	if strings.TrimSpace(roomID) == "" {
		return chaterr.Required("roomId")
	}
	if ts <= 0 {
		return chaterr.Invalid("timestamp", "must be positive")
	}
	return nil
}

// Page selects a window of a room's history. Since is an exclusive cursor:
// pass MessagePage.Next to continue.
type Page struct {
	Since      int64
	Limit      int
	Descending bool
}

// MessagePage is one window of a room's history.
type MessagePage struct {
	Messages []messagedao.Message `json:"messages"`
	Next     int64                `json:"next,omitempty"`
	HasMore  bool                 `json:"hasMore"`
}

func pageSize(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, chaterr.Invalid("limit", "must not be negative")
	case limit == 0:
		return DefaultPageSize, nil
	case limit > MaxPageSize:
		return MaxPageSize, nil
	default:
		return limit, nil
	}
}

// ListMessages returns up to page.Limit messages of a room, oldest first
// unless page.Descending is set.
func (s *Service) ListMessages(ctx context.Context, roomID string, page Page) (MessagePage, error) {
	if strings.TrimSpace(roomID) == "" {
		return MessagePage{}, chaterr.Required("roomId")
	}
	if page.Since < 0 {
		return MessagePage{}, chaterr.Invalid("since", "must not be negative")
	}
	limit, err := pageSize(page.Limit)
	if err != nil {
		return MessagePage{}, err
	}

	result := MessagePage{Messages: []messagedao.Message{}}
	query := messagedao.RoomQuery{
		RoomID:     roomID,
		Since:      page.Since,
		Descending: page.Descending,
		PageSize:   int64(limit + 1),
	}
	for msg, err := range s.Messages.QueryByRoom(ctx, query) {
		if err != nil {
			return MessagePage{}, err
		}
		if len(result.Messages) == limit {
			result.HasMore = true
			break
		}
		result.Messages = append(result.Messages, msg)
	}
	if result.HasMore {
		result.Next = result.Messages[len(result.Messages)-1].Timestamp
	}
	return result, nil
}

// Connect registers a connection with the registry.
func (s *Service) Connect(ctx context.Context, in sundaews.ConnectInput) (connectiondao.Connection, error) {
	return s.Registry.Connect(ctx, in)
}

// Disconnect removes a connection from the registry.
func (s *Service) Disconnect(ctx context.Context, connectionID string) error {
	return s.Registry.Disconnect(ctx, connectionID)
}

// Presence reports who is connected under recipientKey.
func (s *Service) Presence(ctx context.Context, recipientKey string) (sundaews.Presence, error) {
	return s.Registry.Presence(ctx, recipientKey)
}

// Broadcast pushes an arbitrary event to a recipient. Only malformed input is
// an error; delivery problems are described by the report.
func (s *Service) Broadcast(ctx context.Context, recipientKey string, payload []byte) (sundaews.DeliveryReport, error) {
	if _, _, err := sundaews.ParseRecipientKey(recipientKey); err != nil {
		return sundaews.DeliveryReport{}, err
	}
	if err := sundaews.ValidatePayload(payload); err != nil {
		return sundaews.DeliveryReport{}, err
	}
	return s.Fanout.Broadcast(ctx, recipientKey, payload), nil
}

// push encodes v as an eventType event and, with inline fan-out enabled,
// broadcasts it to recipientKey.
func (s *Service) push(ctx context.Context, recipientKey, eventType string, v interface{}) {
	if !s.InlineFanout || s.Fanout == nil {
		return
	}

	logger := s.Logger.With().
		Str("recipient_key", recipientKey).
		Str("event", eventType).
		Logger()

	payload, err := sundaews.EncodeEvent(eventType, v)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode event")
		return
	}
	report := s.Fanout.Broadcast(ctx, recipientKey, payload)
	logger.Debug().
		Int("delivered", report.Delivered).
		Int("evicted", len(report.Evicted)).
		Int("failed", len(report.Failed)).
		Msg("pushed event")
}

// NotifyInput is a new entry for a user's notification feed.
type NotifyInput struct {
	UserID     string                 `json:"userId"`
	Type       string                 `json:"type"`
	Body       string                 `json:"body"`
	SenderID   string                 `json:"senderId,omitempty"`
	SenderName string                 `json:"senderName,omitempty"`
	RoomID     string                 `json:"roomId,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Notify appends a notification to a user's feed.
func (s *Service) Notify(ctx context.Context, in NotifyInput) (notificationdao.Notification, error) {
	switch {
	case strings.TrimSpace(in.UserID) == "":
		return notificationdao.Notification{}, chaterr.Required("userId")
	case strings.TrimSpace(in.Type) == "":
		return notificationdao.Notification{}, chaterr.Required("type")
	}

	n, err := s.Notifications.Append(ctx, notificationdao.Notification{
		UserID:     in.UserID,
		Type:       in.Type,
		Body:       in.Body,
		SenderID:   in.SenderID,
		SenderName: in.SenderName,
		RoomID:     in.RoomID,
		CreatedAt:  s.now().UnixMilli(),
		Data:       in.Data,
	})
	if err != nil {
		return notificationdao.Notification{}, err
	}

	s.push(ctx, sundaews.UserKey(n.UserID), sundaews.EventNewNotification, n)
	return n, nil
}

// FeedPage selects a window of a notification feed, newest first. Before is
// an exclusive cursor: pass NotificationFeed.Next to continue.
type FeedPage struct {
	Before string
	Limit  int
}

// NotificationFeed is one window of a user's notifications.
type NotificationFeed struct {
	Notifications []notificationdao.Notification `json:"notifications"`
	Next          string                         `json:"next,omitempty"`
	HasMore       bool                           `json:"hasMore"`
}

// ListNotifications returns a user's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID string, page FeedPage) (NotificationFeed, error) {
	if strings.TrimSpace(userID) == "" {
		return NotificationFeed{}, chaterr.Required("userId")
	}
	limit, err := pageSize(page.Limit)
	if err != nil {
		return NotificationFeed{}, err
	}

	feed := NotificationFeed{Notifications: []notificationdao.Notification{}}
	query := notificationdao.FeedQuery{
		UserID:   userID,
		Before:   page.Before,
		PageSize: int64(limit + 1),
	}
	for n, err := range s.Notifications.QueryByUser(ctx, query) {
		if err != nil {
			return NotificationFeed{}, err
		}
		if len(feed.Notifications) == limit {
			feed.HasMore = true
			break
		}
		feed.Notifications = append(feed.Notifications, n)
	}
	if feed.HasMore {
		feed.Next = feed.Notifications[len(feed.Notifications)-1].ID
	}
	return feed, nil
}

// NotificationUpdate flips the read or saved flags. Nil fields are untouched.
type NotificationUpdate struct {
	IsRead  *bool `json:"isRead,omitempty"`
	IsSaved *bool `json:"isSaved,omitempty"`
}

// UpdateNotification marks a notification read/unread or saved/unsaved.
func (s *Service) UpdateNotification(ctx context.Context, userID, id string, change NotificationUpdate) (notificationdao.Notification, error) {
	if err := validateNotificationKey(userID, id); err != nil {
		return notificationdao.Notification{}, err
	}
	if change.IsRead == nil && change.IsSaved == nil {
		return notificationdao.Notification{}, chaterr.Invalid("update", "one of isRead or isSaved is required")
	}

	n, err := s.Notifications.Update(ctx, userID, id, notificationdao.Update{
		IsRead:  change.IsRead,
		IsSaved: change.IsSaved,
	})
	if err != nil {
		return notificationdao.Notification{}, err
	}

	s.push(ctx, sundaews.UserKey(userID), sundaews.EventUpdateNotification, n)
	return n, nil
}

// DeleteNotification removes a notification and returns it.
func (s *Service) DeleteNotification(ctx context.Context, userID, id string) (notificationdao.Notification, error) {
	if err := validateNotificationKey(userID, id); err != nil {
		return notificationdao.Notification{}, err
	}

	n, err := s.Notifications.Delete(ctx, userID, id)
	if err != nil {
		return notificationdao.Notification{}, err
	}

	s.push(ctx, sundaews.UserKey(userID), sundaews.EventDeleteNotification, n)
	return n, nil
}

func validateNotificationKey(userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return chaterr.Required("userId")
	}
	if strings.TrimSpace(id) == "" {
		return chaterr.Required("id")
	}
	return nil
}
