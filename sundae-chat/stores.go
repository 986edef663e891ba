// Package sundaechat implements the chat service: message and notification
// operations, the room and nickname stream reactions, and the wiring that
// turns stored changes into pushes on the connection registry.
package sundaechat

import (
	"context"
	"iter"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
)

// MessageStore is the chat log. Implemented by messagedao.DAO and
// messagedao.Memory.
type MessageStore interface {
	Append(ctx context.Context, msg messagedao.Message) (messagedao.Message, error)
	Get(ctx context.Context, roomID string, ts int64) (messagedao.Message, error)
	Update(ctx context.Context, roomID string, ts int64, change messagedao.Update) (messagedao.Message, error)
	Delete(ctx context.Context, roomID string, ts int64) (messagedao.Message, error)
	QueryByRoom(ctx context.Context, q messagedao.RoomQuery) iter.Seq2[messagedao.Message, error]
	QueryBySender(ctx context.Context, userID string) iter.Seq2[messagedao.Message, error]
}

// NotificationStore holds per-user notification feeds. Implemented by
// notificationdao.DAO and notificationdao.Memory.
type NotificationStore interface {
	Append(ctx context.Context, n notificationdao.Notification) (notificationdao.Notification, error)
	Get(ctx context.Context, userID, id string) (notificationdao.Notification, error)
	Update(ctx context.Context, userID, id string, change notificationdao.Update) (notificationdao.Notification, error)
	Delete(ctx context.Context, userID, id string) (notificationdao.Notification, error)
	QueryByUser(ctx context.Context, q notificationdao.FeedQuery) iter.Seq2[notificationdao.Notification, error]
	QueryBySender(ctx context.Context, userID string) iter.Seq2[notificationdao.Notification, error]
}
