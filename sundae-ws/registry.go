package sundaews

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/rs/zerolog"
)

const (
	RoomRecipient = "room"
	UserRecipient = "user"

	DefaultConnTTL = 2 * time.Hour
)

// ConnectionStore persists the connection registry. Implemented by
// connectiondao.DAO and connectiondao.Memory.
type ConnectionStore interface {
	Upsert(ctx context.Context, conn connectiondao.Connection) error
	Remove(ctx context.Context, connectionID string) error
	ListByRecipient(ctx context.Context, recipientKey string) ([]connectiondao.Connection, error)
	ListByUser(ctx context.Context, userID string) ([]connectiondao.Connection, error)
}

// ConnectionScanner visits every stored connection, expired ones included.
type ConnectionScanner interface {
	Scan(ctx context.Context, fn func(connectiondao.Connection) error) error
}

// RoomKey returns the recipient key for members of a chat room.
func RoomKey(roomID string) string {
	return RoomRecipient + ":" + roomID
}

// UserKey returns the recipient key for an individual user.
func UserKey(userID string) string {
	return UserRecipient + ":" + userID
}

// ParseRecipientKey splits a recipient key into its kind ("room" or "user")
// and id.
func ParseRecipientKey(key string) (kind, id string, err error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return "", "", chaterr.Invalid("recipientKey", fmt.Sprintf("%q is not of the form room:{id} or user:{id}", key))
	}
	switch kind {
	case RoomRecipient, UserRecipient:
		return kind, id, nil
	default:
		return "", "", chaterr.Invalid("recipientKey", fmt.Sprintf("unknown recipient kind %q", kind))
	}
}

// ConnectInput describes a connection handshake. UserID is the resolved
// identity of the caller and may be empty for anonymous room listeners.
type ConnectInput struct {
	ConnectionID string
	RecipientKey string
	UserID       string
	Endpoint     string
}

// Registry maintains the connection registry on top of a ConnectionStore.
type Registry struct {
	Connections ConnectionStore
	Logger      zerolog.Logger
	TTL         time.Duration

	// SingleSession removes every other live connection of the same user
	// when that user connects again. Off by default: users may hold one
	// connection per tab or device.
	SingleSession bool

	Now func() time.Time
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Connect registers a connection. Reconnecting with the same ConnectionID
// overwrites the previous row.
func (r *Registry) Connect(ctx context.Context, in ConnectInput) (connectiondao.Connection, error) {
	if in.ConnectionID == "" {
		return connectiondao.Connection{}, chaterr.Required("connectionId")
	}
	if _, _, err := ParseRecipientKey(in.RecipientKey); err != nil {
		return connectiondao.Connection{}, err
	}

	ttl := r.TTL
	if ttl <= 0 {
		ttl = DefaultConnTTL
	}

	now := r.now()
	conn := connectiondao.Connection{
		ConnectionID: in.ConnectionID,
		RecipientKey: in.RecipientKey,
		UserID:       in.UserID,
		Endpoint:     in.Endpoint,
		ConnectedAt:  now.Unix(),
		TTL:          now.Add(ttl).Unix(),
	}
	if err := r.Connections.Upsert(ctx, conn); err != nil {
		return connectiondao.Connection{}, err
	}

	if r.SingleSession && in.UserID != "" {
		r.evictOtherSessions(ctx, conn)
	}
	return conn, nil
}

// evictOtherSessions is best effort; the new connection is already stored and
// stale siblings expire on their own.
func (r *Registry) evictOtherSessions(ctx context.Context, conn connectiondao.Connection) {
	logger := r.Logger.With().Str("user_id", conn.UserID).Logger()

	others, err := r.Connections.ListByUser(ctx, conn.UserID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list prior sessions")
		return
	}
	for _, other := range others {
		if other.ConnectionID == conn.ConnectionID {
			continue
		}
		if err := r.Connections.Remove(ctx, other.ConnectionID); err != nil {
			logger.Warn().Err(err).Str("connection_id", other.ConnectionID).Msg("failed to remove prior session")
			continue
		}
		logger.Info().Str("connection_id", other.ConnectionID).Msg("removed prior session")
	}
}

// Disconnect removes a connection. Disconnecting an unknown connection is a
// no-op.
func (r *Registry) Disconnect(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return chaterr.Required("connectionId")
	}
	return r.Connections.Remove(ctx, connectionID)
}

// Presence describes who is listening on a recipient key.
type Presence struct {
	RecipientKey string   `json:"recipientKey"`
	Connections  int      `json:"connections"`
	Users        []string `json:"users"`
}

// Presence counts the live connections of recipientKey and lists the distinct
// identified users behind them.
func (r *Registry) Presence(ctx context.Context, recipientKey string) (Presence, error) {
	if _, _, err := ParseRecipientKey(recipientKey); err != nil {
		return Presence{}, err
	}
	conns, err := r.Connections.ListByRecipient(ctx, recipientKey)
	if err != nil {
		return Presence{}, err
	}

	presence := Presence{RecipientKey: recipientKey, Connections: len(conns), Users: []string{}}
	seen := map[string]struct{}{}
	for _, conn := range conns {
		if conn.UserID == "" {
			continue
		}
		if _, ok := seen[conn.UserID]; ok {
			continue
		}
		seen[conn.UserID] = struct{}{}
		presence.Users = append(presence.Users, conn.UserID)
	}
	sort.Strings(presence.Users)
	return presence, nil
}
