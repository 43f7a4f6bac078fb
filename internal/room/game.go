package room

import (
	"context"

	"github.com/lox/bspoker/internal/cards"
	"github.com/lox/bspoker/internal/protocol"
)

// StartGame transitions Waiting -> Playing and deals round 1, per spec.md
// §4.4.2. hostUserID must be the current host; at least two seats must be
// occupied.
func (r *Room) StartGame(ctx context.Context, hostUserID string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != Waiting {
		return nil, ErrWrongPhase
	}
	if hostUserID != r.hostUserID {
		return nil, ErrNotHost
	}
	if len(r.seated) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	for _, p := range r.seated {
		p.LossCount = 0
	}
	r.phase = Playing
	r.roundNumber = 0
	r.roundStartUserID = r.seated[r.rng.Intn(len(r.seated))].UserID

	return r.startRoundLocked(), nil
}

// Restart clears all losses and begins a fresh game, per spec.md §6's
// game_restart: host only, regardless of the room's current phase.
func (r *Room) Restart(ctx context.Context, hostUserID string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hostUserID != r.hostUserID {
		return nil, ErrNotHost
	}
	if len(r.seated) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	for _, p := range r.eliminated {
		p.IsEliminated = false
		p.LossCount = 0
		r.seated = append(r.seated, p)
	}
	r.eliminated = nil
	for _, p := range r.seated {
		p.LossCount = 0
	}

	r.phase = Playing
	r.roundNumber = 0
	r.currentCall = nil
	r.roundStartUserID = r.seated[r.rng.Intn(len(r.seated))].UserID

	return r.startRoundLocked(), nil
}

// startRoundLocked deals a fresh round per spec.md §4.4.3. Caller holds
// r.mu.
func (r *Room) startRoundLocked() []Event {
	r.roundNumber++
	r.currentCall = nil
	r.previousRoundCards = nil
	r.currentPlayerID = r.roundStartUserID

	counts := make([]int, len(r.seated))
	for i, p := range r.seated {
		counts[i] = p.LossCount + 1
	}
	hands := cards.DealHands(r.rng, counts)
	for i, p := range r.seated {
		p.PrivateHand = hands[i]
	}

	events := []Event{broadcastFrame(r.frame(protocol.TypeRoundStart, protocol.RoundStart{RoundNumber: r.roundNumber}))}
	for _, p := range r.seated {
		events = append(events, privateFrame(p.UserID, r.frame(protocol.TypePlayerUpdate, protocol.PlayerUpdate{YourCards: p.PrivateHand})))
	}
	events = append(events, r.gameStateUpdateEvent())
	return events
}

// resolveRound ends the current round per spec.md §4.4.5: increments the
// loser's lossCount, checks for elimination and game end, and either deals
// the next round or transitions to game end.
func (r *Room) resolveRound(ctx context.Context, loserUserID string) []Event {
	reveal := make([]protocol.SeatCards, 0, len(r.seated))
	snapshot := make(map[string][]cards.Card, len(r.seated))
	for _, p := range r.seated {
		reveal = append(reveal, protocol.SeatCards{UserID: p.UserID, Cards: p.PrivateHand})
		snapshot[p.UserID] = p.PrivateHand
	}
	r.previousRoundCards = snapshot

	priorSeating := append([]*Player(nil), r.seated...)

	loser := r.findSeated(loserUserID)
	eliminated := false
	if loser != nil {
		loser.LossCount++
		if loser.LossCount >= MaxLossCount {
			eliminated = true
			loser.IsEliminated = true
		}
	}
	for _, p := range r.seated {
		p.PrivateHand = nil
	}

	events := []Event{
		broadcastFrame(r.frame(protocol.TypeShowCards, protocol.ShowCards{})),
		broadcastFrame(r.frame(protocol.TypeCallBluff, protocol.CallBluffResult{
			Message:            "cards revealed",
			LoserID:            loserUserID,
			PreviousRoundCards: reveal,
		})),
	}

	if eliminated {
		r.removeSeated(loserUserID)
		r.eliminated = append(r.eliminated, loser)
		if newHost, changed := r.reassignHost(); changed && newHost != "" {
			events = append(events, r.hostChangedEvent())
		}
	}

	if len(r.seated) <= 1 {
		return append(events, r.finishGameLocked(ctx)...)
	}

	r.roundStartUserID = r.nextRoundStartUserID(priorSeating)
	return append(events, r.startRoundLocked()...)
}

// nextRoundStartUserID finds the seat clockwise of this round's starting
// seat within priorSeating (the seating as it was going into the round that
// just ended), skipping the player who was just eliminated, per spec.md
// §4.4.5 "the seat immediately clockwise of this round's starting seat
// (skipping eliminated)". priorSeating may contain at most one seat not
// present in r.seated (the just-eliminated player), since only one
// elimination can occur per round.
func (r *Room) nextRoundStartUserID(priorSeating []*Player) string {
	startIdx := -1
	for i, p := range priorSeating {
		if p.UserID == r.roundStartUserID {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		startIdx = 0
	}
	for step := 1; step <= len(priorSeating); step++ {
		candidate := priorSeating[(startIdx+step)%len(priorSeating)]
		if r.findSeated(candidate.UserID) != nil {
			return candidate.UserID
		}
	}
	if len(r.seated) > 0 {
		return r.seated[0].UserID
	}
	return ""
}

// finishGameLocked handles the game-end transition of spec.md §4.4.5: the
// last non-eliminated player wins, counters are recorded, and the room
// cycles Ended -> Waiting, admitting the waiting list. Caller holds r.mu.
func (r *Room) finishGameLocked(ctx context.Context) []Event {
	r.phase = Ended
	var winnerID string
	if len(r.seated) == 1 {
		winnerID = r.seated[0].UserID
	}

	participants := make([]string, 0, len(r.seated)+len(r.eliminated))
	for _, p := range r.seated {
		participants = append(participants, p.UserID)
	}
	for _, p := range r.eliminated {
		participants = append(participants, p.UserID)
	}

	if r.registry != nil {
		if winnerID != "" {
			if err := r.registry.RecordWin(ctx, winnerID); err != nil {
				r.logger.Error().Err(err).Msg("failed to record win")
			}
		}
		for _, id := range participants {
			if err := r.registry.RecordGame(ctx, id); err != nil {
				r.logger.Error().Err(err).Str("user_id", id).Msg("failed to record game played")
			}
		}
	}

	events := []Event{r.gameStateUpdateEvent()} // phase=Ended, winner visible via eliminated/seated split

	r.phase = Waiting
	r.roundNumber = 0
	r.currentCall = nil
	r.currentPlayerID = ""
	r.roundStartUserID = ""
	for _, p := range r.seated {
		p.LossCount = 0
		p.IsEliminated = false
	}
	for _, p := range r.eliminated {
		p.LossCount = 0
		p.IsEliminated = false
		r.seated = append(r.seated, p)
	}
	r.eliminated = nil

	for len(r.waiting) > 0 && len(r.seated) < r.maxPlayers {
		w := r.waiting[0]
		r.waiting = r.waiting[1:]
		r.seated = append(r.seated, &Player{UserID: w.UserID, Username: w.Username})
	}

	if _, changed := r.reassignHost(); changed {
		events = append(events, r.hostChangedEvent())
	}
	events = append(events, r.gameStateUpdateEvent())
	return events
}

// handleMidRoundDeparture implements spec.md §4.4.5a for a seated,
// non-eliminated player leaving or being kicked during Playing.
func (r *Room) handleMidRoundDeparture(ctx context.Context, userID string) []Event {
	player := r.findSeated(userID)
	if player == nil {
		return nil
	}

	if len(r.seated) <= 2 {
		// Only one other non-eliminated seated player remains once userID
		// departs: treat as game end with that player as the winner.
		events := []Event{broadcastFrame(r.frame(protocol.TypeUserLeave, protocol.UserLeave{Username: player.Username}))}
		r.removeSeated(userID)
		events = append(events, r.finishGameLocked(ctx)...)
		return events
	}

	events := []Event{broadcastFrame(r.frame(protocol.TypeUserLeave, protocol.UserLeave{Username: player.Username}))}

	wasTurnHolder := r.currentPlayerID == userID
	var nextTurnUserID string
	if wasTurnHolder {
		nextTurnUserID = r.nextActiveUserID(userID)
	}
	wasRoundStart := r.roundStartUserID == userID
	var nextRoundStart string
	if wasRoundStart {
		nextRoundStart = r.nextActiveUserID(userID)
	}

	r.removeSeated(userID)

	if wasTurnHolder {
		r.currentPlayerID = nextTurnUserID
	}
	if wasRoundStart {
		r.roundStartUserID = nextRoundStart
	}
	// A departed current caller's currentCall stands, per spec.md §4.4.5a:
	// it can still be bluffed by the next player, keyed by the now-absent
	// ByUserID. Bluff resolution treats an unresolvable loser (already
	// departed) as a no-op on loss accounting; see resolveRound.

	if newHost, changed := r.reassignHost(); changed && newHost != "" {
		events = append(events, r.hostChangedEvent())
	}
	events = append(events, r.gameStateUpdateEvent())
	return events
}
