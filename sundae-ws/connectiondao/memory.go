package connectiondao

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process connection store with the same semantics as DAO.
// It backs console mode and tests.
type Memory struct {
	mu    sync.Mutex
	conns map[string]Connection

	Now func() time.Time
}

// NewMemory constructs an empty in-memory connection store.
func NewMemory() *Memory {
	return &Memory{
		conns: make(map[string]Connection),
		Now:   time.Now,
	}
}

func (m *Memory) Upsert(ctx context.Context, conn Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn.ConnectionID] = conn
	return nil
}

func (m *Memory) Remove(ctx context.Context, connectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connectionID)
	return nil
}

// RemoveExpired deletes connectionID only if it is expired at now.
func (m *Memory) RemoveExpired(ctx context.Context, connectionID string, now time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[connectionID]
	if !ok || conn.Live(now) {
		return false, nil
	}
	delete(m.conns, connectionID)
	return true, nil
}

func (m *Memory) ListByRecipient(ctx context.Context, recipientKey string) ([]Connection, error) {
	return m.filter(ctx, func(c Connection) bool { return c.RecipientKey == recipientKey })
}

func (m *Memory) ListByUser(ctx context.Context, userID string) ([]Connection, error) {
	return m.filter(ctx, func(c Connection) bool { return userID != "" && c.UserID == userID })
}

// Scan visits every stored connection, expired ones included.
func (m *Memory) Scan(ctx context.Context, fn func(Connection) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	snapshot := make([]Connection, 0, len(m.conns))
	for _, conn := range m.conns {
		snapshot = append(snapshot, conn)
	}
	m.mu.Unlock()
	sortByID(snapshot)

	for _, conn := range snapshot {
		if err := fn(conn); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) filter(ctx context.Context, keep func(Connection) bool) ([]Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Connection{}
	for _, conn := range m.conns {
		if keep(conn) && conn.Live(now) {
			out = append(out, conn)
		}
	}
	sortByID(out)
	return out, nil
}

func sortByID(conns []Connection) {
	sort.Slice(conns, func(i, j int) bool { return conns[i].ConnectionID < conns[j].ConnectionID })
}
