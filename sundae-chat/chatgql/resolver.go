// Package chatgql is the read-only GraphQL view of rooms, notification feeds
// and presence.
package chatgql

import (
	"context"
	_ "embed"
	"errors"

	sundaechat "github.com/SundaeSwap-finance/sundae-chat/sundae-chat"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
	sundaegql "github.com/SundaeSwap-finance/sundae-chat/sundae-gql"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/graph-gophers/graphql-go"
)

//go:embed schema.gql
var schema string

type Resolver struct {
	config  sundaegql.BaseConfig
	service *sundaechat.Service
}

func New(config sundaegql.BaseConfig, service *sundaechat.Service) *Resolver {
	return &Resolver{config: config, service: service}
}

func (r *Resolver) Schema() string {
	return sundaegql.MergeSchemas(schema, sundaegql.Common)
}

func (r *Resolver) Config() *sundaegql.BaseConfig {
	return &r.config
}

func optionalInt(v *int32) int {
	if v == nil {
		return 0
	}
	return int(*v)
}

func (r *Resolver) Messages(ctx context.Context, args struct {
	RoomID     string
	Since      *sundaegql.Millis
	Limit      *int32
	Descending *bool
}) (*MessagePage, error) {
	page := sundaechat.Page{Limit: optionalInt(args.Limit)}
	if args.Since != nil {
		page.Since = int64(*args.Since)
	}
	if args.Descending != nil {
		page.Descending = *args.Descending
	}

	result, err := r.service.ListMessages(ctx, args.RoomID, page)
	if err != nil {
		return nil, err
	}
	return &MessagePage{page: result}, nil
}

// Message returns null for a missing message.
func (r *Resolver) Message(ctx context.Context, args struct {
	RoomID    string
	Timestamp sundaegql.Millis
}) (*Message, error) {
	msg, err := r.service.GetMessage(ctx, args.RoomID, int64(args.Timestamp))
	if errors.Is(err, chaterr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Message{msg: msg}, nil
}

func (r *Resolver) Notifications(ctx context.Context, args struct {
	UserID string
	Before *string
	Limit  *int32
}) (*NotificationFeed, error) {
	page := sundaechat.FeedPage{Limit: optionalInt(args.Limit)}
	if args.Before != nil {
		page.Before = *args.Before
	}
	feed, err := r.service.ListNotifications(ctx, args.UserID, page)
	if err != nil {
		return nil, err
	}
	return &NotificationFeed{feed: feed}, nil
}

func (r *Resolver) Presence(ctx context.Context, args struct{ RecipientKey string }) (*Presence, error) {
	presence, err := r.service.Presence(ctx, args.RecipientKey)
	if err != nil {
		return nil, err
	}
	return &Presence{presence: presence}, nil
}

type MessagePage struct {
	page sundaechat.MessagePage
}

func (p *MessagePage) Messages() []*Message {
	out := make([]*Message, 0, len(p.page.Messages))
	for _, msg := range p.page.Messages {
		out = append(out, &Message{msg: msg})
	}
	return out
}

func (p *MessagePage) Next() *sundaegql.Millis {
	if !p.page.HasMore {
		return nil
	}
	next := sundaegql.Millis(p.page.Next)
	return &next
}

func (p *MessagePage) HasMore() bool { return p.page.HasMore }

type Message struct {
	msg messagedao.Message
}

func (m *Message) RoomID() string              { return m.msg.RoomID }
func (m *Message) Timestamp() sundaegql.Millis { return sundaegql.Millis(m.msg.Timestamp) }
func (m *Message) SenderID() string            { return m.msg.SenderID }
func (m *Message) SenderName() string          { return m.msg.SenderName }
func (m *Message) Body() string                { return m.msg.Body }
func (m *Message) Kind() string                { return m.msg.Kind }

func (m *Message) File() *File {
	if m.msg.File == nil {
		return nil
	}
	return &File{file: *m.msg.File}
}

func (m *Message) EditedAt() *sundaegql.Millis {
	if m.msg.EditedAt == 0 {
		return nil
	}
	v := sundaegql.Millis(m.msg.EditedAt)
	return &v
}

type File struct {
	file messagedao.FileRef
}

func (f *File) Key() string          { return f.file.Key }
func (f *File) ContentType() string  { return f.file.ContentType }
func (f *File) OriginalName() string { return f.file.OriginalName }

type NotificationFeed struct {
	feed sundaechat.NotificationFeed
}

func (f *NotificationFeed) Notifications() []*Notification {
	out := make([]*Notification, 0, len(f.feed.Notifications))
	for _, n := range f.feed.Notifications {
		out = append(out, &Notification{n: n})
	}
	return out
}

func (f *NotificationFeed) Next() *string {
	if !f.feed.HasMore {
		return nil
	}
	return &f.feed.Next
}

func (f *NotificationFeed) HasMore() bool { return f.feed.HasMore }

type Notification struct {
	n notificationdao.Notification
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (n *Notification) ID() graphql.ID              { return graphql.ID(n.n.ID) }
func (n *Notification) UserID() string              { return n.n.UserID }
func (n *Notification) NotificationType() string    { return n.n.Type }
func (n *Notification) Body() string                { return n.n.Body }
func (n *Notification) SenderID() *string           { return optionalString(n.n.SenderID) }
func (n *Notification) SenderName() *string         { return optionalString(n.n.SenderName) }
func (n *Notification) RoomID() *string             { return optionalString(n.n.RoomID) }
func (n *Notification) IsRead() bool                { return n.n.IsRead }
func (n *Notification) IsSaved() bool               { return n.n.IsSaved }
func (n *Notification) CreatedAt() sundaegql.Millis { return sundaegql.Millis(n.n.CreatedAt) }
func (n *Notification) Data() *sundaegql.JSON       { return sundaegql.FromMap(n.n.Data) }

type Presence struct {
	presence sundaews.Presence
}

func (p *Presence) RecipientKey() string { return p.presence.RecipientKey }
func (p *Presence) Connections() int32   { return int32(p.presence.Connections) }
func (p *Presence) Users() []string      { return p.presence.Users }
