package sundaews

import (
	"context"
	"sync"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
)

// recordingTransport remembers every payload and fails sends for the
// connections listed in errs.
type recordingTransport struct {
	mu   sync.Mutex
	sent map[string][][]byte
	errs map[string]error
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		sent: map[string][][]byte{},
		errs: map[string]error{},
	}
}

func (r *recordingTransport) Send(_ context.Context, conn connectiondao.Connection, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.errs[conn.ConnectionID]; err != nil {
		return err
	}
	r.sent[conn.ConnectionID] = append(r.sent[conn.ConnectionID], payload)
	return nil
}

func (r *recordingTransport) payloads(connectionID string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[connectionID]
}

func connectionIDs(conns []connectiondao.Connection) []string {
	ids := []string{}
	for _, conn := range conns {
		ids = append(ids, conn.ConnectionID)
	}
	return ids
}
