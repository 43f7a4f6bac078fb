package room

import (
	"context"
	"math/rand"
	"testing"

	"github.com/lox/bspoker/internal/cards"
	"github.com/lox/bspoker/internal/handspec"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	return New("test-room", Config{
		MaxPlayers: 8,
		RNG:        rand.New(rand.NewSource(1)),
		Logger:     zerolog.Nop(),
	})
}

func joinAndStart(t *testing.T, r *Room, ids ...string) {
	t.Helper()
	for _, id := range ids {
		r.Join(id, id)
	}
	_, err := r.StartGame(context.Background(), ids[0])
	require.NoError(t, err)
}

// clearAllTwos overwrites every seated player's current hand with
// rank-three cards (preserving per-seat card counts), guaranteeing that
// "pair of 2s" can never hold against the resulting union.
func clearAllTwos(r *Room) {
	for _, p := range r.seated {
		hand := make([]cards.Card, len(p.PrivateHand))
		for i := range hand {
			hand[i] = cards.New(cards.AllSuits[i%len(cards.AllSuits)], cards.Three)
		}
		p.PrivateHand = hand
	}
}

// TestS1BluffFalseLoserIsCaller exercises spec.md §8 scenario S1: a pair
// declaration that does not hold loses the accused caller the round.
func TestS1BluffFalseLoserIsCaller(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	joinAndStart(t, r, "a", "b")

	caller := r.currentPlayerID
	accuser := r.nextActiveUserID(caller)

	r.findSeated(caller).PrivateHand = []cards.Card{cards.New(cards.Hearts, cards.King)}
	r.findSeated(accuser).PrivateHand = []cards.Card{cards.New(cards.Clubs, cards.Four)}

	_, err := r.CallHand(ctx, caller, "pair of kings")
	require.NoError(t, err)
	assert.Equal(t, accuser, r.currentPlayerID, "turn advances to the accuser")

	_, err = r.CallBluff(ctx, accuser)
	require.NoError(t, err)

	assert.Equal(t, 1, r.findSeated(caller).LossCount, "the caller's pair of kings did not hold")
	assert.Equal(t, 2, r.roundNumber, "round 2 has begun")
	assert.Len(t, r.findSeated(caller).PrivateHand, 2, "loser is dealt lossCount+1 cards")
	assert.Len(t, r.findSeated(accuser).PrivateHand, 1)
}

// TestS2BluffTrueLoserIsAccuser exercises spec.md §8 scenario S2: a
// declaration that does hold loses the accuser the round.
func TestS2BluffTrueLoserIsAccuser(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	joinAndStart(t, r, "a", "b")

	caller := r.currentPlayerID
	accuser := r.nextActiveUserID(caller)

	r.findSeated(caller).PrivateHand = []cards.Card{cards.New(cards.Hearts, cards.Ace)}
	r.findSeated(accuser).PrivateHand = []cards.Card{cards.New(cards.Spades, cards.Ace)}

	_, err := r.CallHand(ctx, caller, "pair of aces")
	require.NoError(t, err)

	_, err = r.CallBluff(ctx, accuser)
	require.NoError(t, err)

	assert.Equal(t, 1, r.findSeated(accuser).LossCount, "two aces exist in the union; the accuser was wrong")
	assert.Equal(t, 0, r.findSeated(caller).LossCount)
}

// TestS3StrictOrdering exercises spec.md §8 scenario S3: an equal call is
// rejected; a strictly greater call is accepted.
func TestS3StrictOrdering(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	joinAndStart(t, r, "a", "b")

	caller := r.currentPlayerID
	accuser := r.nextActiveUserID(caller)

	_, err := r.CallHand(ctx, caller, "pair of kings")
	require.NoError(t, err)

	_, err = r.CallHand(ctx, accuser, "pair of kings")
	assert.ErrorIs(t, err, ErrCallNotGreater)
	assert.Equal(t, accuser, r.currentPlayerID, "rejected call leaves turn and state unchanged")

	_, err = r.CallHand(ctx, accuser, "pair of aces")
	assert.NoError(t, err)
}

// TestS4RoyalFlushForcesBluff exercises spec.md §8 scenario S4: once a
// royal flush stands, any call_hand is rejected; bluff is the only legal
// action.
func TestS4RoyalFlushForcesBluff(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	joinAndStart(t, r, "a", "b")

	caller := r.currentPlayerID
	accuser := r.nextActiveUserID(caller)

	royal, err := handspec.NewRoyalFlush(cards.Hearts)
	require.NoError(t, err)
	r.currentCall = &CurrentCall{ByUserID: caller, Declaration: royal}
	r.currentPlayerID = accuser

	_, err = r.CallHand(ctx, accuser, "four of a kind aces")
	assert.ErrorIs(t, err, ErrRoyalFlushLocked)

	_, err = r.CallHand(ctx, accuser, "royal flush spades")
	assert.ErrorIs(t, err, ErrRoyalFlushLocked)

	assert.NotNil(t, r.currentCall, "rejected calls never clear the standing royal flush")
}

// TestS5JoinDuringPlayQueuesThenPromotes exercises spec.md §8 scenario S5:
// a join mid-round is queued, then promoted into a seat on the next game
// end.
func TestS5JoinDuringPlayQueuesThenPromotes(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	joinAndStart(t, r, "a", "b", "c")

	result := r.Join("d", "d")
	assert.False(t, result.Seated, "room is Playing; new joiner is queued")
	assert.Equal(t, 1, len(r.waiting))

	// Drive the game to completion: repeatedly bluff the current caller's
	// declared hand until game end cycles the room back to Waiting.
	// Losses rotate round-robin across seats, so this takes on the order
	// of players*MaxLossCount rounds per elimination.
	for rounds := 0; r.phase == Playing; rounds++ {
		require.Less(t, rounds, 200, "game did not reach an end within a bounded number of rounds")
		clearAllTwos(r)
		caller := r.currentPlayerID
		accuser := r.nextActiveUserID(caller)
		_, err := r.CallHand(ctx, caller, "pair of 2s")
		require.NoError(t, err)
		_, err = r.CallBluff(ctx, accuser)
		require.NoError(t, err)
	}

	assert.Equal(t, Waiting, r.phase, "game end cycles back to Waiting")
	assert.Equal(t, 0, len(r.waiting), "the waiting list is drained into seats")
	_, isSeated := r.findByUsername("d")
	assert.True(t, isSeated, "the queued joiner is promoted")
}

// TestS6HostDisconnectDuringWaitingReassignsRandomly exercises spec.md §8
// scenario S6.
func TestS6HostDisconnectDuringWaitingReassignsRandomly(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	r.Join("a", "a")
	r.Join("b", "b")
	r.Join("c", "c")
	require.Equal(t, "a", r.hostUserID)

	events := r.Leave(ctx, "a")
	assert.NotEmpty(t, events)
	assert.Contains(t, []string{"b", "c"}, r.hostUserID, "host reassigned to a remaining seated player")
}

// TestEliminationAtFiveLosses verifies spec.md §8 property 6: elimination
// occurs exactly when lossCount reaches 5.
func TestEliminationAtFiveLosses(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	joinAndStart(t, r, "a", "b", "c")

	// Losses rotate round-robin across the 3 seated players (the starting
	// seat advances clockwise each round), so reaching a single
	// elimination takes on the order of players*MaxLossCount rounds.
	for i := 0; i < 4*MaxLossCount && len(r.eliminated) == 0; i++ {
		clearAllTwos(r)
		caller := r.currentPlayerID
		accuser := r.nextActiveUserID(caller)
		_, err := r.CallHand(ctx, caller, "pair of 2s")
		require.NoError(t, err)
		_, err = r.CallBluff(ctx, accuser)
		require.NoError(t, err)
	}

	require.NotEmpty(t, r.eliminated, "repeated false pair-of-twos calls by the rotating callers must eventually eliminate one of them")

	for _, p := range r.eliminated {
		assert.True(t, p.IsEliminated)
		assert.GreaterOrEqual(t, p.LossCount, MaxLossCount)
	}
}

// TestMidRoundDepartureStandingCallSurvives exercises spec.md §4.4.5a: a
// departed current caller's call stands and can still be bluffed.
func TestMidRoundDepartureStandingCallSurvives(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	joinAndStart(t, r, "a", "b", "c")

	caller := r.currentPlayerID
	_, err := r.CallHand(ctx, caller, "pair of 2s")
	require.NoError(t, err)

	nextPlayer := r.currentPlayerID
	if nextPlayer == caller {
		t.Fatal("turn should have advanced past the caller")
	}

	// The caller departs mid-round; their call must stand.
	r.Leave(ctx, caller)
	assert.NotNil(t, r.currentCall, "a departed caller's standing call is preserved")
	assert.Equal(t, caller, r.currentCall.ByUserID)
}

// TestKickOnlyHost verifies spec.md §4.4.1: kick_user is host-only.
func TestKickOnlyHost(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	r.Join("a", "a")
	r.Join("b", "b")

	_, err := r.Kick(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrNotHost)

	_, err = r.Kick(ctx, "a", "b")
	assert.NoError(t, err)
	_, ok := r.findByUsername("b")
	assert.False(t, ok)
}

// TestStartGameRequiresTwoPlayers verifies spec.md §4.4.2's admission
// guard on game_start.
func TestStartGameRequiresTwoPlayers(t *testing.T) {
	ctx := context.Background()
	r := newTestRoom(t)
	r.Join("a", "a")

	_, err := r.StartGame(ctx, "a")
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}
