package notificationdao

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
)

// Memory is an in-process notification store with the same semantics as DAO.
type Memory struct {
	mu    sync.Mutex
	feeds map[string]map[string]Notification
}

// NewMemory constructs an empty in-memory notification store.
func NewMemory() *Memory {
	return &Memory{feeds: make(map[string]map[string]Notification)}
}

func (m *Memory) Append(ctx context.Context, n Notification) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().UnixMilli()
	}
	if n.ID == "" {
		id, err := NewID(time.UnixMilli(n.CreatedAt))
		if err != nil {
			return Notification{}, fmt.Errorf("failed to allocate notification id: %w", err)
		}
		n.ID = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	feed := m.feeds[n.UserID]
	if feed == nil {
		feed = make(map[string]Notification)
		m.feeds[n.UserID] = feed
	}
	if _, ok := feed[n.ID]; ok {
		return Notification{}, fmt.Errorf("notification %v/%v already exists: %w", n.UserID, n.ID, chaterr.ErrConflict)
	}
	feed[n.ID] = clone(n)
	return n, nil
}

func (m *Memory) Get(ctx context.Context, userID, id string) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.feeds[userID][id]
	if !ok {
		return Notification{}, chaterr.NotFound("notification %v/%v", userID, id)
	}
	return clone(n), nil
}

func (m *Memory) Update(ctx context.Context, userID, id string, change Update) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.feeds[userID][id]
	if !ok {
		return Notification{}, chaterr.NotFound("notification %v/%v", userID, id)
	}
	if change.IsRead != nil {
		n.IsRead = *change.IsRead
	}
	if change.IsSaved != nil {
		n.IsSaved = *change.IsSaved
	}
	if change.SenderName != nil {
		n.SenderName = *change.SenderName
	}
	m.feeds[userID][id] = n
	return clone(n), nil
}

func (m *Memory) Delete(ctx context.Context, userID, id string) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.feeds[userID][id]
	if !ok {
		return Notification{}, chaterr.NotFound("notification %v/%v", userID, id)
	}
	delete(m.feeds[userID], id)
	return n, nil
}

func (m *Memory) QueryByUser(ctx context.Context, q FeedQuery) iter.Seq2[Notification, error] {
	return m.query(ctx, func(n Notification) bool {
		return n.UserID == q.UserID && (q.Before == "" || n.ID < q.Before)
	}, true)
}

func (m *Memory) QueryBySender(ctx context.Context, userID string) iter.Seq2[Notification, error] {
	return m.query(ctx, func(n Notification) bool { return n.SenderID == userID }, false)
}

func (m *Memory) query(ctx context.Context, keep func(Notification) bool, descending bool) iter.Seq2[Notification, error] {
	return func(yield func(Notification, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Notification{}, err)
			return
		}

		m.mu.Lock()
		var snapshot []Notification
		for _, feed := range m.feeds {
			for _, n := range feed {
				if keep(n) {
					snapshot = append(snapshot, clone(n))
				}
			}
		}
		m.mu.Unlock()

		sort.Slice(snapshot, func(i, j int) bool {
			a, b := snapshot[i], snapshot[j]
			if a.UserID != b.UserID {
				return a.UserID < b.UserID
			}
			if descending {
				return a.ID > b.ID
			}
			return a.ID < b.ID
		})

		for _, n := range snapshot {
			if !yield(n, nil) {
				return
			}
		}
	}
}

func clone(n Notification) Notification {
	if n.Data != nil {
		n.Data = maps.Clone(n.Data)
	}
	return n
}
