package chat

import (
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Registry maps room names to rooms. Rooms are created on first use and are
// never removed, so an empty room keeps its history for later joiners.
// All methods are safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	rooms        map[string]*Room
	historyLimit int
	logger       *zap.Logger
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithHistoryLimit caps each room's history at limit messages, dropping the
// oldest first. Zero or a negative value means unbounded.
func WithHistoryLimit(limit int) RegistryOption {
	return func(r *Registry) {
		if limit > 0 {
			r.historyLimit = limit
		}
	}
}

// NewRegistry creates an empty Registry. A nil logger is replaced by a no-op
// logger.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the room called name, creating it if needed.
// Concurrent callers asking for the same unseen name all receive the same
// *Room.
func (r *Registry) GetOrCreate(name string) *Room {
	r.mu.RLock()
	room, ok := r.rooms[name]
	r.mu.RUnlock()
	if ok {
		return room
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[name]; ok {
		return room
	}
	room = newRoom(name, r.historyLimit, r.logger)
	r.rooms[name] = room
	r.logger.Info("room created",
		zap.String("room", name),
		zap.Int("rooms", len(r.rooms)),
	)
	return room
}

// Get returns the room called name if it exists.
func (r *Registry) Get(name string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	return room, ok
}

// Len returns the number of rooms ever created.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Rooms returns a summary of every room, sorted by name.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	rooms := lo.Values(r.rooms)
	r.mu.RUnlock()

	infos := lo.Map(rooms, func(room *Room, _ int) RoomInfo {
		return room.Info()
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
