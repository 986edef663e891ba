package localgw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func TestGateway(t *testing.T) {
	ctx := context.Background()
	store := connectiondao.NewMemory()
	handler := &sundaews.Handler{
		Registry: &sundaews.Registry{Connections: store, Logger: zerolog.Nop()},
		Logger:   zerolog.Nop(),
	}
	gateway := New(handler, zerolog.Nop())
	handler.Transport = gateway
	fanout := &sundaews.Fanout{Connections: store, Transport: gateway, Logger: zerolog.Nop()}

	server := httptest.NewServer(gateway)
	defer server.Close()
	defer gateway.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	readEvent := func(t *testing.T, conn *websocket.Conn) map[string]interface{} {
		assert.Nil(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := conn.ReadMessage()
		assert.Nil(t, err)
		var v map[string]interface{}
		assert.Nil(t, json.Unmarshal(data, &v))
		return v
	}

	waitFor := func(t *testing.T, cond func() bool) {
		deadline := time.Now().Add(5 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatal("condition not met in time")
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	roomConnections := func() int {
		conns, err := store.ListByRecipient(ctx, "room:42")
		assert.Nil(t, err)
		return len(conns)
	}

	t.Run("rejected handshake", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		assert.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ping, broadcast and disconnect", func(t *testing.T) {
		alice, _, err := websocket.DefaultDialer.Dial(url+"?roomId=42&userId=alice", nil)
		assert.Nil(t, err)
		defer alice.Close()
		bob, _, err := websocket.DefaultDialer.Dial(url+"?roomId=42&userId=bob", nil)
		assert.Nil(t, err)
		defer bob.Close()

		assert.Equal(t, 2, roomConnections())

		assert.Nil(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"action":"ping","requestId":"p1"}`)))
		pong := readEvent(t, alice)
		assert.Equal(t, "pong", pong["type"])
		assert.Equal(t, "p1", pong["requestId"])

		report := fanout.Broadcast(ctx, "room:42", []byte(`{"type":"newMessage","body":"hi"}`))
		assert.Equal(t, 2, report.Delivered)
		assert.Equal(t, "hi", readEvent(t, alice)["body"])
		assert.Equal(t, "hi", readEvent(t, bob)["body"])

		assert.Nil(t, bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
		waitFor(t, func() bool { return roomConnections() == 1 })
	})

	t.Run("unknown connection is gone", func(t *testing.T) {
		err := gateway.Send(ctx, connectiondao.Connection{ConnectionID: "missing"}, []byte(`{}`))
		assert.True(t, errors.Is(err, sundaews.ErrGone))
	})
}
