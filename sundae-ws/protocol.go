package sundaews

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
)

// Event types pushed to clients. Every outbound frame is a JSON object whose
// "type" field names one of these.
const (
	EventNewMessage         = "newMessage"
	EventUpdateMessage      = "updateMessage"
	EventDeleteMessage      = "deleteMessage"
	EventNewNotification    = "newNotification"
	EventUpdateNotification = "updateNotification"
	EventDeleteNotification = "deleteNotification"
	EventPong               = "pong"
	EventError              = "error"
	EventAck                = "ack"
)

// Actions accepted on the $default route.
const (
	ActionPing          = "ping"
	ActionSendMessage   = "sendMessage"
	ActionEditMessage   = "editMessage"
	ActionDeleteMessage = "deleteMessage"
)

// EncodeEvent marshals v, which must encode as a JSON object, and tags it
// with eventType.
func EncodeEvent(eventType string, v interface{}) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %v event: %w", eventType, err)
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("%v event body is not a JSON object: %w", eventType, err)
		}
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	tag, err := json.Marshal(eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event type: %w", err)
	}
	fields["type"] = tag

	return json.Marshal(fields)
}

// EventType returns the "type" tag of an encoded event.
func EventType(payload []byte) (string, error) {
	var header struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return "", chaterr.Invalid("payload", "must be a JSON object")
	}
	if header.Type == nil || *header.Type == "" {
		return "", chaterr.Invalid("payload", `must carry a non-empty "type"`)
	}
	return *header.Type, nil
}

// ValidatePayload checks that payload is a self-describing event.
func ValidatePayload(payload []byte) error {
	_, err := EventType(payload)
	return err
}

// ClientAction is an inbound frame: {"action": "...", "requestId": "...", ...}.
type ClientAction struct {
	Action    string `json:"action"`
	RequestID string `json:"requestId,omitempty"`

	raw json.RawMessage
}

// ParseAction decodes an inbound frame.
func ParseAction(body string) (ClientAction, error) {
	var action ClientAction
	if err := json.Unmarshal([]byte(body), &action); err != nil {
		return ClientAction{}, chaterr.Invalid("body", "must be a JSON object")
	}
	if action.Action == "" {
		return ClientAction{}, chaterr.Required("action")
	}
	action.raw = json.RawMessage(body)
	return action, nil
}

// Decode unmarshals the full frame into v.
func (a ClientAction) Decode(v interface{}) error {
	if err := json.Unmarshal(a.raw, v); err != nil {
		return chaterr.Invalid("body", fmt.Sprintf("malformed %v action: %v", a.Action, err))
	}
	return nil
}

type replyBody struct {
	RequestID string      `json:"requestId,omitempty"`
	Status    int         `json:"status,omitempty"`
	Message   string      `json:"message,omitempty"`
	Result    interface{} `json:"result,omitempty"`
}

// PongEvent answers a ping.
func PongEvent(requestID string) []byte {
	data, _ := EncodeEvent(EventPong, replyBody{RequestID: requestID})
	return data
}

// AckEvent acknowledges a completed action, carrying its result.
func AckEvent(requestID string, result interface{}) ([]byte, error) {
	return EncodeEvent(EventAck, replyBody{RequestID: requestID, Result: result})
}

// ErrorEvent reports a failed action back to the caller.
func ErrorEvent(requestID string, err error) []byte {
	status := chaterr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	data, _ := EncodeEvent(EventError, replyBody{
		RequestID: requestID,
		Status:    status,
		Message:   message,
	})
	return data
}
