package room

import (
	"context"

	"github.com/lox/bspoker/internal/protocol"
)

// JoinResult reports where userID landed and what the Gateway must do
// besides deliver Events: assemble the user_join reply (spec.md §6).
type JoinResult struct {
	Seated bool
	IsHost bool
	Events []Event
}

// Join admits userID to the room, per spec.md §4.4.1: a free seat while
// Waiting, otherwise the waiting list.
func (r *Room) Join(userID, username string) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findSeated(userID) != nil || r.findWaitingIndex(userID) >= 0 {
		return JoinResult{}
	}

	if r.phase == Waiting && len(r.seated) < r.maxPlayers {
		player := &Player{UserID: userID, Username: username}
		r.seated = append(r.seated, player)
		isHost := false
		if r.hostUserID == "" {
			r.hostUserID = userID
			isHost = true
		}
		return JoinResult{
			Seated: true,
			IsHost: isHost,
			Events: []Event{r.gameStateUpdateEvent()},
		}
	}

	r.waiting = append(r.waiting, waitingEntry{UserID: userID, Username: username})
	return JoinResult{
		Seated: false,
		Events: []Event{
			privateFrame(userID, r.frame(protocol.TypeWaitingForGame, protocol.WaitingForGame{
				Message: "the room is full or a round is in progress; you'll be seated when the next game starts",
			})),
			r.gameStateUpdateEvent(),
		},
	}
}

// Leave removes userID from the room, per spec.md §4.4.1 and, mid-round,
// §4.4.5a.
func (r *Room) Leave(ctx context.Context, userID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(ctx, userID)
}

func (r *Room) leaveLocked(ctx context.Context, userID string) []Event {
	if idx := r.findWaitingIndex(userID); idx >= 0 {
		r.waiting = append(r.waiting[:idx], r.waiting[idx+1:]...)
		return []Event{r.gameStateUpdateEvent()}
	}

	player := r.findSeated(userID)
	if player == nil {
		return nil
	}

	if r.phase == Playing && !player.IsEliminated {
		return r.handleMidRoundDeparture(ctx, userID)
	}

	events := []Event{broadcastFrame(r.frame(protocol.TypeUserLeave, protocol.UserLeave{Username: player.Username}))}
	r.removeSeated(userID)
	if newHost, changed := r.reassignHost(); changed && newHost != "" {
		events = append(events, r.hostChangedEvent())
	}
	events = append(events, r.gameStateUpdateEvent())
	return events
}

// Kick removes targetUsername on behalf of hostUserID, per spec.md §4.4.1:
// only the host may invoke it.
func (r *Room) Kick(ctx context.Context, hostUserID, targetUsername string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hostUserID != r.hostUserID {
		return nil, ErrNotHost
	}

	target, ok := r.findByUsername(targetUsername)
	var targetUserID string
	if ok {
		targetUserID = target.UserID
	} else {
		found := false
		for _, w := range r.waiting {
			if w.Username == targetUsername {
				targetUserID = w.UserID
				found = true
				break
			}
		}
		if !found {
			return nil, ErrUserNotFound
		}
	}

	events := []Event{privateFrame(targetUserID, r.frame(protocol.TypeUserKicked, protocol.UserKicked{
		Message: "you have been removed from the room by the host",
	}))}
	events = append(events, r.leaveLocked(ctx, targetUserID)...)
	return events, nil
}
