package chat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Room is a named broadcast domain. It owns its membership table and its
// message history; nothing outside the Room touches either directly.
//
// Lock order is historyMu before mu. Broadcast holds historyMu for the whole
// fan-out so every member observes messages in history order.
type Room struct {
	name   string
	logger *zap.Logger

	mu      sync.RWMutex
	members map[string]*Member

	historyMu    sync.RWMutex
	history      []Message // oldest first
	historyLimit int
}

// Member is an admitted (room, display name) pair. It is returned by Join
// and released with Leave.
type Member struct {
	room *Room
	name string
	sink Sink
	once sync.Once
}

// RoomInfo summarises a room for listings.
type RoomInfo struct {
	Name       string   `json:"name"`
	Members    []string `json:"members"`
	HistoryLen int      `json:"history_len"`
}

func newRoom(name string, historyLimit int, logger *zap.Logger) *Room {
	return &Room{
		name:         name,
		logger:       logger.With(zap.String("room", name)),
		members:      make(map[string]*Member),
		historyLimit: historyLimit,
	}
}

// Name returns the room's immutable name.
func (r *Room) Name() string {
	return r.name
}

// Join admits name into the room with sink as its outbound path. The
// presence check and the insert happen under one write lock.
//
// Postcondition: returns a *AlreadyTakenError and leaves the room unchanged
// if name is already a member.
func (r *Room) Join(name string, sink Sink) (*Member, error) {
	r.mu.Lock()
	member, count, err := r.admitLocked(name, sink)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.logJoin(name, count)
	return member, nil
}

// JoinWithHistory admits name like Join and pushes the history snapshot into
// sink before the member becomes visible to Broadcast. The history lock is
// held across both steps, so the snapshot frame is always the first frame
// the sink receives and no message appears both in it and as a live frame.
func (r *Room) JoinWithHistory(name string, sink Sink, page Pagination) (*Member, []Message, error) {
	r.historyMu.RLock()
	defer r.historyMu.RUnlock()

	r.mu.Lock()
	if _, exists := r.members[name]; exists {
		r.mu.Unlock()
		return nil, nil, &AlreadyTakenError{Room: r.name, Name: name}
	}

	history := r.snapshotLocked(page)
	frame, err := EncodeMessages(history)
	if err != nil {
		r.mu.Unlock()
		return nil, nil, fmt.Errorf("encoding history: %w", err)
	}
	if err := sink.Push(frame); err != nil {
		r.logger.Debug("history not queued", zap.String("user", name), zap.Error(err))
	}

	member, count, _ := r.admitLocked(name, sink)
	r.mu.Unlock()

	r.logJoin(name, count)
	return member, history, nil
}

// admitLocked must be called with mu held.
func (r *Room) admitLocked(name string, sink Sink) (*Member, int, error) {
	if _, exists := r.members[name]; exists {
		return nil, 0, &AlreadyTakenError{Room: r.name, Name: name}
	}
	member := &Member{room: r, name: name, sink: sink}
	r.members[name] = member
	return member, len(r.members), nil
}

func (r *Room) logJoin(name string, count int) {
	r.logger.Info("member joined",
		zap.String("user", name),
		zap.Int("members", count),
	)
}

// Leave removes name from the room. Removing an absent name is a no-op.
func (r *Room) Leave(name string) {
	r.mu.Lock()
	_, exists := r.members[name]
	delete(r.members, name)
	count := len(r.members)
	r.mu.Unlock()

	if exists {
		r.logger.Info("member left",
			zap.String("user", name),
			zap.Int("members", count),
		)
	}
}

// SnapshotHistory returns a copy of the room's history, newest first.
// Pagination is accepted but not applied; the whole log is returned.
func (r *Room) SnapshotHistory(page Pagination) []Message {
	r.historyMu.RLock()
	defer r.historyMu.RUnlock()
	return r.snapshotLocked(page)
}

// snapshotLocked must be called with historyMu held.
func (r *Room) snapshotLocked(_ Pagination) []Message {
	snapshot := make([]Message, len(r.history))
	for i, msg := range r.history {
		snapshot[len(r.history)-1-i] = msg
	}
	return snapshot
}

// Broadcast records msg in history and pushes it to every member except
// sender. Delivery is best effort: a member whose sink rejects the frame is
// skipped and cleaned up later by its own session.
func (r *Room) Broadcast(sender string, msg Message) {
	frame, err := EncodeMessages([]Message{msg})
	if err != nil {
		r.logger.Error("encoding broadcast", zap.String("user", sender), zap.Error(err))
		return
	}

	r.historyMu.Lock()
	defer r.historyMu.Unlock()

	r.appendHistory(msg)

	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for name, member := range r.members {
		if name == sender {
			continue
		}
		if member.sink.Push(frame) == nil {
			delivered++
		}
	}
	r.logger.Debug("broadcast",
		zap.String("user", sender),
		zap.Int("recipients", delivered),
	)
}

// appendHistory must be called with historyMu held.
func (r *Room) appendHistory(msg Message) {
	r.history = append(r.history, msg)
	if r.historyLimit > 0 && len(r.history) > r.historyLimit {
		excess := len(r.history) - r.historyLimit
		kept := make([]Message, r.historyLimit, r.historyLimit+1)
		copy(kept, r.history[excess:])
		r.history = kept
	}
}

// Members returns the sorted display names currently in the room.
func (r *Room) Members() []string {
	r.mu.RLock()
	names := lo.Keys(r.members)
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// HasMember reports whether name is currently admitted.
func (r *Room) HasMember(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[name]
	return ok
}

// HistoryLen returns the number of messages in history.
func (r *Room) HistoryLen() int {
	r.historyMu.RLock()
	defer r.historyMu.RUnlock()
	return len(r.history)
}

// Info returns a point-in-time summary of the room.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		Name:       r.name,
		Members:    r.Members(),
		HistoryLen: r.HistoryLen(),
	}
}

// Name returns the member's display name.
func (m *Member) Name() string {
	return m.name
}

// Room returns the room the member was admitted to.
func (m *Member) Room() *Room {
	return m.room
}

// Leave releases the member's seat. Only the first call has an effect, and
// it never evicts a later member that reused the same name.
func (m *Member) Leave() {
	m.once.Do(func() {
		r := m.room
		r.mu.Lock()
		current, ok := r.members[m.name]
		if ok && current == m {
			delete(r.members, m.name)
		}
		count := len(r.members)
		r.mu.Unlock()

		if ok && current == m {
			r.logger.Info("member left",
				zap.String("user", m.name),
				zap.Int("members", count),
			)
		}
	})
}
