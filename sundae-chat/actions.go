package sundaechat

import (
	"context"
	"fmt"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
)

// Actions serves the chat actions sent as WebSocket frames.
type Actions struct {
	Service *Service
}

type sendMessageAction struct {
	RoomID     string              `json:"roomId"`
	SenderID   string              `json:"senderId"`
	SenderName string              `json:"senderName"`
	Body       string              `json:"body"`
	File       *messagedao.FileRef `json:"file"`
	Timestamp  int64               `json:"timestamp"`
}

type messageKeyAction struct {
	RoomID    string `json:"roomId"`
	Timestamp int64  `json:"timestamp"`
	Body      string `json:"body"`
}

// HandleAction implements sundaews.ActionHandler. The authorizer identity,
// when present, takes precedence over a senderId in the frame.
func (a *Actions) HandleAction(ctx context.Context, caller sundaews.Caller, action sundaews.ClientAction) (interface{}, error) {
	switch action.Action {
	case sundaews.ActionSendMessage:
		var in sendMessageAction
		if err := action.Decode(&in); err != nil {
			return nil, err
		}
		senderID := in.SenderID
		if caller.UserID != "" {
			senderID = caller.UserID
		}
		return a.Service.SendMessage(ctx, SendMessageInput{
			RoomID:     in.RoomID,
			SenderID:   senderID,
			SenderName: in.SenderName,
			Body:       in.Body,
			File:       in.File,
			Timestamp:  in.Timestamp,
		})

	case sundaews.ActionEditMessage:
		var in messageKeyAction
		if err := action.Decode(&in); err != nil {
			return nil, err
		}
		return a.Service.EditMessage(ctx, in.RoomID, in.Timestamp, in.Body)

	case sundaews.ActionDeleteMessage:
		var in messageKeyAction
		if err := action.Decode(&in); err != nil {
			return nil, err
		}
		return a.Service.DeleteMessage(ctx, in.RoomID, in.Timestamp)

	default:
		return nil, chaterr.Invalid("action", fmt.Sprintf("unsupported action %q", action.Action))
	}
}
