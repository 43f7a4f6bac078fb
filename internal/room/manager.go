package room

import (
	"math/rand"
	"sync"

	"github.com/lox/bspoker/internal/idgen"
	"github.com/rs/zerolog"
)

// Manager owns the set of live Rooms, creating one on first join to a new
// room ID and destroying it once empty (spec.md §3 "Lifecycles").
type Manager struct {
	mu sync.Mutex

	rooms      map[string]*Room
	ids        *idgen.Generator
	maxPlayers int
	registry   WinRecorder
	logger     zerolog.Logger
	newRNG     func() *rand.Rand
}

// ManagerConfig bundles a Manager's construction-time dependencies.
type ManagerConfig struct {
	MaxPlayers int
	Registry   WinRecorder
	Logger     zerolog.Logger

	// NewRNG constructs a fresh RNG for each created Room. Production
	// callers seed from crypto/rand; tests supply a fixed seed (spec.md §9).
	NewRNG func() *rand.Rand
}

// NewManager constructs an empty Manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		rooms:      make(map[string]*Room),
		ids:        idgen.NewGenerator(nil),
		maxPlayers: cfg.MaxPlayers,
		registry:   cfg.Registry,
		logger:     cfg.Logger.With().Str("component", "room_manager").Logger(),
		newRNG:     cfg.NewRNG,
	}
}

// GetOrCreate returns the Room for roomID, creating it if this is its first
// reference.
func (m *Manager) GetOrCreate(roomID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rm, ok := m.rooms[roomID]; ok {
		return rm
	}

	rm := New(roomID, Config{
		MaxPlayers: m.maxPlayers,
		RNG:        m.newRNG(),
		Registry:   m.registry,
		Logger:     m.logger,
	})
	m.rooms[roomID] = rm
	return rm
}

// NewRoomID mints a fresh room identifier for a default single-room
// deployment or an explicit "create room" flow.
func (m *Manager) NewRoomID() string {
	return m.ids.Room()
}

// Reap removes roomID from the manager if its Room is empty, per spec.md §3
// "destroyed when its last connection leaves and its waiting list is
// empty." Safe to call after every departure; a no-op otherwise.
func (m *Manager) Reap(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rm, ok := m.rooms[roomID]
	if !ok || !rm.IsEmpty() {
		return
	}
	delete(m.rooms, roomID)
}

// Rooms returns a snapshot of all live room IDs.
func (m *Manager) Rooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}
