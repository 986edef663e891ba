package sundaechat

import (
	"context"
	"fmt"
	"strings"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/rs/zerolog"
)

const (
	SystemSenderID   = "system"
	SystemSenderName = "System"
)

// RoomLifecycle seeds newly created rooms.
type RoomLifecycle struct {
	Service *Service
	Logger  zerolog.Logger
}

// OnRoomCreated appends the welcome message for a new room. Calling it twice
// for the same room leaves two welcome messages.
func (r *RoomLifecycle) OnRoomCreated(ctx context.Context, roomID, displayName string) (messagedao.Message, error) {
	if strings.TrimSpace(roomID) == "" {
		return messagedao.Message{}, chaterr.Required("roomId")
	}
	if strings.TrimSpace(displayName) == "" {
		displayName = roomID
	}

	msg := messagedao.Message{
		RoomID:     roomID,
		Timestamp:  r.Service.now().UnixMilli(),
		SenderID:   SystemSenderID,
		SenderName: SystemSenderName,
		Body:       fmt.Sprintf("Welcome to %v!", displayName),
		Kind:       messagedao.KindSystem,
	}
	stored, err := r.Service.appendNext(ctx, msg)
	if err != nil {
		return messagedao.Message{}, fmt.Errorf("failed to welcome room %v: %w", roomID, err)
	}

	r.Logger.Info().Str("room_id", roomID).Int64("ts", stored.Timestamp).Msg("room welcomed")
	r.Service.push(ctx, sundaews.RoomKey(roomID), sundaews.EventNewMessage, stored)
	return stored, nil
}
