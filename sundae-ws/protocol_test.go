package sundaews

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
	"github.com/tj/assert"
)

func TestEncodeEvent(t *testing.T) {
	t.Run("flattens fields next to the type tag", func(t *testing.T) {
		data, err := EncodeEvent(EventNewMessage, map[string]interface{}{"roomId": "R", "body": "hi"})
		assert.Nil(t, err)
		assert.Equal(t, `{"body":"hi","roomId":"R","type":"newMessage"}`, string(data))

		eventType, err := EventType(data)
		assert.Nil(t, err)
		assert.Equal(t, EventNewMessage, eventType)
	})

	t.Run("type tag wins over a body field", func(t *testing.T) {
		data, err := EncodeEvent(EventDeleteMessage, map[string]string{"type": "bogus"})
		assert.Nil(t, err)
		assert.Equal(t, `{"type":"deleteMessage"}`, string(data))
	})

	t.Run("nil body", func(t *testing.T) {
		data, err := EncodeEvent(EventPong, nil)
		assert.Nil(t, err)
		assert.Equal(t, `{"type":"pong"}`, string(data))
	})

	t.Run("non-object body", func(t *testing.T) {
		_, err := EncodeEvent(EventNewMessage, []string{"a"})
		assert.Error(t, err)
	})
}

func TestValidatePayload(t *testing.T) {
	assert.Nil(t, ValidatePayload([]byte(`{"type":"system","body":"x"}`)))

	for _, payload := range []string{``, `[]`, `"hi"`, `{}`, `{"type":""}`, `{"type":1}`} {
		err := ValidatePayload([]byte(payload))
		assert.True(t, errors.Is(err, chaterr.ErrValidation), payload)
	}
}

func TestParseAction(t *testing.T) {
	t.Run("decodes the whole frame", func(t *testing.T) {
		action, err := ParseAction(`{"action":"sendMessage","requestId":"r1","roomId":"R","body":"hi"}`)
		assert.Nil(t, err)
		assert.Equal(t, ActionSendMessage, action.Action)
		assert.Equal(t, "r1", action.RequestID)

		var body struct {
			RoomID string `json:"roomId"`
			Body   string `json:"body"`
		}
		assert.Nil(t, action.Decode(&body))
		assert.Equal(t, "R", body.RoomID)
		assert.Equal(t, "hi", body.Body)
	})

	t.Run("missing action", func(t *testing.T) {
		_, err := ParseAction(`{"requestId":"r1"}`)
		assert.True(t, errors.Is(err, chaterr.ErrValidation))
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseAction(`ping`)
		assert.True(t, errors.Is(err, chaterr.ErrValidation))
	})
}

func TestReplies(t *testing.T) {
	var reply map[string]interface{}

	assert.Nil(t, json.Unmarshal(PongEvent("r1"), &reply))
	assert.Equal(t, map[string]interface{}{"type": "pong", "requestId": "r1"}, reply)

	reply = nil
	assert.Nil(t, json.Unmarshal(ErrorEvent("r2", chaterr.Required("body")), &reply))
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, float64(400), reply["status"])
	assert.Equal(t, "invalid body: is required", reply["message"])

	reply = nil
	assert.Nil(t, json.Unmarshal(ErrorEvent("", chaterr.Unavailable(errors.New("table missing"))), &reply))
	assert.Equal(t, "internal error", reply["message"])

	reply = nil
	data, err := AckEvent("r3", map[string]int{"ts": 5})
	assert.Nil(t, err)
	assert.Nil(t, json.Unmarshal(data, &reply))
	assert.Equal(t, map[string]interface{}{"type": "ack", "requestId": "r3", "result": map[string]interface{}{"ts": float64(5)}}, reply)
}
