package sundaechat

import (
	"context"
	"errors"
	"strings"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
	"github.com/rs/zerolog"
)

// SyncReport counts the outcome of a display-name propagation.
type SyncReport struct {
	UserID    string `json:"userId"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// NicknameSyncer rewrites the denormalized sender name on everything a user
// has authored.
type NicknameSyncer struct {
	Messages      MessageStore
	Notifications NotificationStore // optional
	Logger        zerolog.Logger
}

// OnDisplayNameChanged updates sender_name on each of the user's messages and
// notifications, one conditional update per record. Records deleted in the
// meantime are skipped; other failures are logged and counted while the rest
// continue. Running it again converges on the new name.
func (n *NicknameSyncer) OnDisplayNameChanged(ctx context.Context, userID, newName string) (SyncReport, error) {
	if strings.TrimSpace(userID) == "" {
		return SyncReport{}, chaterr.Required("userId")
	}
	if strings.TrimSpace(newName) == "" {
		return SyncReport{}, chaterr.Required("displayName")
	}

	report := SyncReport{UserID: userID}
	logger := n.Logger.With().Str("user_id", userID).Logger()

	for msg, err := range n.Messages.QueryBySender(ctx, userID) {
		if err != nil {
			logger.Error().Err(err).Msg("failed to query messages by sender")
			report.Failed++
			break
		}
		if msg.SenderName == newName {
			report.Unchanged++
			continue
		}
		_, updateErr := n.Messages.Update(ctx, msg.RoomID, msg.Timestamp, messagedao.Update{SenderName: &newName})
		n.count(logger.With().Str("room_id", msg.RoomID).Int64("ts", msg.Timestamp).Logger(), &report, updateErr)
	}

	if n.Notifications != nil {
		for item, err := range n.Notifications.QueryBySender(ctx, userID) {
			if err != nil {
				logger.Error().Err(err).Msg("failed to query notifications by sender")
				report.Failed++
				break
			}
			if item.SenderName == newName {
				report.Unchanged++
				continue
			}
			_, updateErr := n.Notifications.Update(ctx, item.UserID, item.ID, notificationdao.Update{SenderName: &newName})
			n.count(logger.With().Str("notification_id", item.ID).Logger(), &report, updateErr)
		}
	}

	logger.Info().
		Int("updated", report.Updated).
		Int("unchanged", report.Unchanged).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("display name propagated")
	return report, nil
}

func (n *NicknameSyncer) count(logger zerolog.Logger, report *SyncReport, err error) {
	switch {
	case err == nil:
		report.Updated++
	case errors.Is(err, chaterr.ErrNotFound):
		report.Skipped++
	default:
		logger.Warn().Err(err).Msg("failed to rewrite sender name")
		report.Failed++
	}
}
