package room

import (
	"context"

	"github.com/lox/bspoker/internal/cards"
	"github.com/lox/bspoker/internal/handspec"
)

// CallHand raises the current call with a parsed hand declaration, per
// spec.md §4.4.4.
func (r *Room) CallHand(ctx context.Context, userID, handSpec string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != Playing {
		return nil, ErrWrongPhase
	}
	if r.findSeated(userID) == nil {
		return nil, ErrNotSeated
	}
	if userID != r.currentPlayerID {
		return nil, ErrOutOfTurn
	}

	decl, err := handspec.Parse(handSpec)
	if err != nil {
		return nil, err
	}

	if r.currentCall != nil {
		if r.currentCall.Declaration.Category == handspec.RoyalFlush {
			return nil, ErrRoyalFlushLocked
		}
		if !handspec.GreaterThan(decl, r.currentCall.Declaration) {
			return nil, ErrCallNotGreater
		}
	}

	r.currentCall = &CurrentCall{ByUserID: userID, Declaration: decl}
	r.currentPlayerID = r.nextActiveUserID(userID)

	return []Event{r.gameStateUpdateEvent()}, nil
}

// CallBluff accuses the current caller of bluffing, resolving the round per
// spec.md §4.4.4 and §4.4.5.
func (r *Room) CallBluff(ctx context.Context, userID string) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != Playing {
		return nil, ErrWrongPhase
	}
	if r.findSeated(userID) == nil {
		return nil, ErrNotSeated
	}
	if userID != r.currentPlayerID {
		return nil, ErrOutOfTurn
	}
	if r.currentCall == nil {
		return nil, ErrNoCurrentCall
	}

	union := make([]cards.Card, 0)
	for _, p := range r.seated {
		union = append(union, p.PrivateHand...)
	}

	var loserUserID string
	if handspec.Holds(r.currentCall.Declaration, union) {
		loserUserID = userID
	} else {
		loserUserID = r.currentCall.ByUserID
	}

	return r.resolveRound(ctx, loserUserID), nil
}
