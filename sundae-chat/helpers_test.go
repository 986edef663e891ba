package sundaechat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/messagedao"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/notificationdao"
	sundaews "github.com/SundaeSwap-finance/sundae-chat/sundae-ws"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

type recordingTransport struct {
	mu   sync.Mutex
	sent map[string][][]byte
	gone map[string]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		sent: map[string][][]byte{},
		gone: map[string]bool{},
	}
}

func (r *recordingTransport) Send(_ context.Context, conn connectiondao.Connection, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gone[conn.ConnectionID] {
		return sundaews.ErrGone
	}
	r.sent[conn.ConnectionID] = append(r.sent[conn.ConnectionID], payload)
	return nil
}

// events decodes every payload pushed to connectionID.
func (r *recordingTransport) events(t *testing.T, connectionID string) []map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []map[string]interface{}
	for _, payload := range r.sent[connectionID] {
		var v map[string]interface{}
		assert.NoError(t, json.Unmarshal(payload, &v))
		out = append(out, v)
	}
	return out
}

type fixture struct {
	Connections   *connectiondao.Memory
	Messages      *messagedao.Memory
	Notifications *notificationdao.Memory
	Transport     *recordingTransport
	Service       *Service
}

// newFixture wires a Service over in-memory stores with inline fan-out.
func newFixture() *fixture {
	f := &fixture{
		Connections:   connectiondao.NewMemory(),
		Messages:      messagedao.NewMemory(),
		Notifications: notificationdao.NewMemory(),
		Transport:     newRecordingTransport(),
	}
	registry := &sundaews.Registry{
		Connections: f.Connections,
		Logger:      zerolog.Nop(),
	}
	fanout := &sundaews.Fanout{
		Connections: f.Connections,
		Transport:   f.Transport,
		Logger:      zerolog.Nop(),
	}
	f.Service = &Service{
		Messages:      f.Messages,
		Notifications: f.Notifications,
		Registry:      registry,
		Fanout:        fanout,
		Logger:        zerolog.Nop(),
		InlineFanout:  true,
		Now:           func() time.Time { return fixedNow },
	}
	return f
}

func (f *fixture) connect(t *testing.T, connectionID, recipientKey, userID string) {
	_, err := f.Service.Connect(context.Background(), sundaews.ConnectInput{
		ConnectionID: connectionID,
		RecipientKey: recipientKey,
		UserID:       userID,
	})
	assert.NoError(t, err)
}
