package messagedao

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-chat/chaterr"
)

// Memory is an in-process message store with the same semantics as DAO.
type Memory struct {
	mu    sync.Mutex
	rooms map[string]map[int64]Message
}

// NewMemory constructs an empty in-memory message store.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]map[int64]Message)}
}

func (m *Memory) Append(ctx context.Context, msg Message) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.rooms[msg.RoomID]
	if room == nil {
		room = make(map[int64]Message)
		m.rooms[msg.RoomID] = room
	}
	if _, ok := room[msg.Timestamp]; ok {
		return Message{}, fmt.Errorf("message %v/%v already exists: %w", msg.RoomID, msg.Timestamp, chaterr.ErrConflict)
	}
	room[msg.Timestamp] = clone(msg)
	return msg, nil
}

func (m *Memory) Get(ctx context.Context, roomID string, ts int64) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.rooms[roomID][ts]
	if !ok {
		return Message{}, chaterr.NotFound("message %v/%v", roomID, ts)
	}
	return clone(msg), nil
}

func (m *Memory) Update(ctx context.Context, roomID string, ts int64, change Update) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.rooms[roomID][ts]
	if !ok {
		return Message{}, chaterr.NotFound("message %v/%v", roomID, ts)
	}
	if change.Body != nil {
		msg.Body = *change.Body
	}
	if change.EditedAt != 0 {
		msg.EditedAt = change.EditedAt
	}
	if change.SenderName != nil {
		msg.SenderName = *change.SenderName
	}
	m.rooms[roomID][ts] = msg
	return clone(msg), nil
}

func (m *Memory) Delete(ctx context.Context, roomID string, ts int64) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.rooms[roomID][ts]
	if !ok {
		return Message{}, chaterr.NotFound("message %v/%v", roomID, ts)
	}
	delete(m.rooms[roomID], ts)
	return msg, nil
}

func (m *Memory) QueryByRoom(ctx context.Context, q RoomQuery) iter.Seq2[Message, error] {
	return m.query(ctx, func(msg Message) bool {
		if msg.RoomID != q.RoomID {
			return false
		}
		switch {
		case q.Since == 0:
			return true
		case q.Descending:
			return msg.Timestamp < q.Since
		default:
			return msg.Timestamp > q.Since
		}
	}, q.Descending)
}

func (m *Memory) QueryBySender(ctx context.Context, userID string) iter.Seq2[Message, error] {
	return m.query(ctx, func(msg Message) bool { return msg.SenderID == userID }, false)
}

func (m *Memory) query(ctx context.Context, keep func(Message) bool, descending bool) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Message{}, err)
			return
		}

		m.mu.Lock()
		var snapshot []Message
		for _, room := range m.rooms {
			for _, msg := range room {
				if keep(msg) {
					snapshot = append(snapshot, clone(msg))
				}
			}
		}
		m.mu.Unlock()

		sort.Slice(snapshot, func(i, j int) bool {
			a, b := snapshot[i], snapshot[j]
			if a.RoomID != b.RoomID {
				return a.RoomID < b.RoomID
			}
			if descending {
				return a.Timestamp > b.Timestamp
			}
			return a.Timestamp < b.Timestamp
		})

		for _, msg := range snapshot {
			if !yield(msg, nil) {
				return
			}
		}
	}
}

func clone(msg Message) Message {
	if msg.File != nil {
		file := *msg.File
		msg.File = &file
	}
	return msg
}
