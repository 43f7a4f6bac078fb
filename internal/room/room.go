// Package room implements the Room / Game State Machine of spec.md §4.4:
// the single writer of its own state, owning players, seating, the turn
// cursor, the deck, dealt hands, the current call, and the round counter.
//
// A Room is a mutex-guarded actor (spec.md §5, design notes choice (b)):
// every exported method takes the Room's lock for its full duration, so
// transitions are atomic with respect to other commands on the same Room.
// Methods never perform I/O themselves; they return a list of Event values
// for the Gateway, the system's sole I/O surface, to deliver.
package room

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/lox/bspoker/internal/cards"
	"github.com/lox/bspoker/internal/handspec"
	"github.com/lox/bspoker/internal/protocol"
	"github.com/rs/zerolog"
)

// Phase is the Room's coarse lifecycle state (spec.md §3).
type Phase int

const (
	Waiting Phase = iota
	Playing
	Ended
)

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// MaxLossCount is the lossCount at which a player is eliminated (spec.md
// §3: "elimination triggers when a player ends a round with 5 cards").
const MaxLossCount = 5

// Failure-mode sentinel errors (spec.md §7). All map to an `error` frame
// sent to the offending sender only, with no state change.
var (
	ErrNotSeated       = errors.New("room: user is not seated")
	ErrWrongPhase      = errors.New("room: wrong phase for this command")
	ErrNotHost         = errors.New("room: only the host may do this")
	ErrNotEnoughPlayers = errors.New("room: at least 2 seated players are required")
	ErrOutOfTurn       = errors.New("room: not your turn")
	ErrNoCurrentCall   = errors.New("room: no current call to bluff")
	ErrCallNotGreater  = errors.New("room: call must strictly exceed the current call")
	ErrRoyalFlushLocked = errors.New("room: a royal flush can only be answered with bluff")
	ErrAlreadySeated   = errors.New("room: user is already seated")
	ErrUserNotFound    = errors.New("room: user not found")
)

// Player is a seated or eliminated occupant of a Room (spec.md §3).
type Player struct {
	UserID       string
	Username     string
	LossCount    int
	IsEliminated bool
	PrivateHand  []cards.Card
}

// CurrentCall is the room's outstanding declaration, identified by the
// user who made it rather than by seat index, so it survives reindexing
// when seating changes mid-round (spec.md §4.4.5a).
type CurrentCall struct {
	ByUserID    string
	Declaration handspec.Declaration
}

type waitingEntry struct {
	UserID   string
	Username string
}

// WinRecorder is the narrow slice of the Registry that the Room touches
// directly, per spec.md §4.3 "incremented by the Room on game end."
type WinRecorder interface {
	RecordWin(ctx context.Context, userID string) error
	RecordGame(ctx context.Context, userID string) error
}

// Room is the per-room authoritative state machine.
type Room struct {
	mu sync.Mutex

	id         string
	hostUserID string
	phase      Phase
	roundNumber int

	seated     []*Player // active, non-eliminated, turn order
	eliminated []*Player // eliminated this game, kept for display and gamesPlayed credit
	waiting    []waitingEntry

	currentPlayerID  string
	currentCall      *CurrentCall
	roundStartUserID string

	previousRoundCards map[string][]cards.Card

	maxPlayers int
	rng        *rand.Rand
	registry   WinRecorder
	logger     zerolog.Logger
}

// Config bundles a Room's construction-time dependencies.
type Config struct {
	MaxPlayers int
	RNG        *rand.Rand
	Registry   WinRecorder
	Logger     zerolog.Logger
}

// New constructs an empty Room in the Waiting phase.
func New(id string, cfg Config) *Room {
	maxPlayers := cfg.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = 8
	}
	return &Room{
		id:         id,
		phase:      Waiting,
		maxPlayers: maxPlayers,
		rng:        cfg.RNG,
		registry:   cfg.Registry,
		logger:     cfg.Logger.With().Str("component", "room").Str("room_id", id).Logger(),
	}
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.id }

// IsEmpty reports whether the room has no seated or waiting occupants,
// the destruction condition of spec.md §3's Room lifecycle.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seated) == 0 && len(r.waiting) == 0
}

func (r *Room) findSeatedIndex(userID string) int {
	for i, p := range r.seated {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (r *Room) findSeated(userID string) *Player {
	if i := r.findSeatedIndex(userID); i >= 0 {
		return r.seated[i]
	}
	return nil
}

func (r *Room) findByUsername(username string) (*Player, bool) {
	for _, p := range r.seated {
		if p.Username == username {
			return p, true
		}
	}
	return nil, false
}

func (r *Room) findWaitingIndex(userID string) int {
	for i, w := range r.waiting {
		if w.UserID == userID {
			return i
		}
	}
	return -1
}

// nextActiveUserID returns the user clockwise of fromUserID within seated,
// which must contain fromUserID.
func (r *Room) nextActiveUserID(fromUserID string) string {
	idx := r.findSeatedIndex(fromUserID)
	if idx < 0 || len(r.seated) == 0 {
		return ""
	}
	next := (idx + 1) % len(r.seated)
	return r.seated[next].UserID
}

func (r *Room) removeSeated(userID string) (*Player, bool) {
	idx := r.findSeatedIndex(userID)
	if idx < 0 {
		return nil, false
	}
	p := r.seated[idx]
	r.seated = append(r.seated[:idx], r.seated[idx+1:]...)
	return p, true
}

// reassignHost picks a new host uniformly at random among seated players,
// satisfying the invariant that the host is always seated and
// non-eliminated (spec.md §3).
func (r *Room) reassignHost() (newHostUserID string, changed bool) {
	if len(r.seated) == 0 {
		r.hostUserID = ""
		return "", false
	}
	if r.findSeated(r.hostUserID) != nil {
		return r.hostUserID, false
	}
	idx := r.rng.Intn(len(r.seated))
	r.hostUserID = r.seated[idx].UserID
	return r.hostUserID, true
}

func (r *Room) hostChangedEvent() Event {
	host := r.findSeated(r.hostUserID)
	username := ""
	if host != nil {
		username = host.Username
	}
	return broadcastFrame(r.frame(protocol.TypeHostChanged, protocol.HostChanged{
		NewHost: username,
		HostID:  r.hostUserID,
	}))
}

// publicGameState snapshots the Room's non-private state for broadcast.
func (r *Room) publicGameState() protocol.GameState {
	players := make([]protocol.PlayerPublic, 0, len(r.seated)+len(r.eliminated))
	for _, p := range r.seated {
		players = append(players, protocol.PlayerPublic{
			UserID:       p.UserID,
			Username:     p.Username,
			CardCount:    len(p.PrivateHand),
			Losses:       p.LossCount,
			IsEliminated: false,
		})
	}
	for _, p := range r.eliminated {
		players = append(players, protocol.PlayerPublic{
			UserID:       p.UserID,
			Username:     p.Username,
			CardCount:    0,
			Losses:       p.LossCount,
			IsEliminated: true,
		})
	}

	gs := protocol.GameState{
		Phase:               r.phase.String(),
		RoundNumber:         r.roundNumber,
		CurrentPlayerID:     r.currentPlayerID,
		Players:             players,
		WaitingPlayersCount: len(r.waiting),
	}
	if r.currentCall != nil {
		gs.CurrentCall = &protocol.CurrentCallView{
			PlayerID: r.currentCall.ByUserID,
			Hand:     r.currentCall.Declaration.String(),
		}
	}
	return gs
}

func (r *Room) gameStateUpdateEvent() Event {
	return broadcastGameState(protocol.GameStateUpdate{GameState: r.publicGameState()})
}

// frame encodes a frame, falling back to a generic error frame on the
// (practically unreachable, given statically typed payloads) encode
// failure, per the Room's transactional-actor contract (spec.md §4.4.6).
func (r *Room) frame(frameType string, data any) *protocol.Frame {
	f, err := protocol.Encode(frameType, data)
	if err != nil {
		r.logger.Error().Err(err).Str("frame_type", frameType).Msg("failed to encode outbound frame")
		f, _ = protocol.Encode(protocol.TypeError, protocol.Error{Message: "internal error"})
	}
	return f
}

func (r *Room) errorf(format string, args ...any) error {
	return fmt.Errorf("room: "+format, args...)
}
