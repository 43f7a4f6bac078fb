package room

import "github.com/lox/bspoker/internal/protocol"

// Event is an outbound projection the Gateway must deliver: either a
// broadcast to every connection in the room, or a private frame to one
// seat. Per spec.md's design notes, the Room never filters a single
// broadcast per recipient — it produces per-seat payloads up front.
//
// GameState carries an un-filled GameStateUpdate payload when set; the
// Gateway (the component that tracks live connections, spec.md §4.5)
// populates OnlineUsers with the usernames of the room's connections and
// encodes it immediately before sending. All other events carry a ready-to-send Frame.
type Event struct {
	Broadcast bool
	UserID    string // recipient, when !Broadcast
	Frame     *protocol.Frame
	GameState *protocol.GameStateUpdate
}

func broadcastFrame(f *protocol.Frame) Event {
	return Event{Broadcast: true, Frame: f}
}

func privateFrame(userID string, f *protocol.Frame) Event {
	return Event{UserID: userID, Frame: f}
}

func broadcastGameState(gs protocol.GameStateUpdate) Event {
	return Event{Broadcast: true, GameState: &gs}
}
