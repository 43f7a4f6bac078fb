package protocol

import "github.com/lox/bspoker/internal/cards"

// Inbound payloads (client -> server). Field names mirror spec.md §6.

// UserJoinRequest claims a seat or enqueues on the waiting list.
type UserJoinRequest struct {
	Username string `json:"username"`
}

// GameStartRequest starts the game; host only.
type GameStartRequest struct {
	UserID string `json:"user_id"`
}

// GameRestartRequest clears losses and starts fresh; host only.
type GameRestartRequest struct {
	UserID string `json:"user_id"`
}

// KickUserRequest removes a seated player; host only.
type KickUserRequest struct {
	HostID         string `json:"host_id"`
	TargetUsername string `json:"target_username"`
}

// CallHandRequest declares a hand, raising the current call.
type CallHandRequest struct {
	UserID   string `json:"user_id"`
	HandSpec string `json:"hand_spec"`
}

// CallBluffRequest accuses the current caller of bluffing.
type CallBluffRequest struct {
	UserID string `json:"user_id"`
}

// Outbound payloads (server -> client/broadcast).

// LeaderboardEntry is one row of the persistent wins/games-played table.
type LeaderboardEntry struct {
	Username    string `json:"username"`
	Wins        int    `json:"wins"`
	GamesPlayed int    `json:"games_played"`
}

// UserJoinReply answers a UserJoinRequest on success.
type UserJoinReply struct {
	Success     bool               `json:"success"`
	UserID      string             `json:"user_id"`
	Username    string             `json:"username"`
	IsHost      bool               `json:"is_host"`
	Message     string             `json:"message"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// UsernameError answers a UserJoinRequest that failed admission.
type UsernameError struct {
	Message string `json:"message"`
}

// PlayerPublic is a seated player's public projection: never cards.
type PlayerPublic struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	CardCount    int    `json:"card_count"`
	Losses       int    `json:"losses"`
	IsEliminated bool   `json:"is_eliminated"`
}

// CurrentCallView is the public projection of Room.currentCall.
type CurrentCallView struct {
	PlayerID string `json:"player_id"`
	Hand     string `json:"hand"`
}

// GameState is the public (non-private) snapshot of a Room.
type GameState struct {
	Phase               string           `json:"phase"`
	RoundNumber         int              `json:"round_number"`
	CurrentPlayerID     string           `json:"current_player_id,omitempty"`
	CurrentCall         *CurrentCallView `json:"current_call,omitempty"`
	Players             []PlayerPublic   `json:"players"`
	WaitingPlayersCount int              `json:"waiting_players_count"`
}

// SeatCards pairs a user with a revealed hand, used on reveal only.
type SeatCards struct {
	UserID string       `json:"user_id"`
	Cards  []cards.Card `json:"cards"`
}

// GameStateUpdate is the public broadcast on every state transition.
type GameStateUpdate struct {
	GameState         GameState   `json:"game_state"`
	OnlineUsers       []string    `json:"online_users"`
	CurrentRoundCards []SeatCards `json:"current_round_cards,omitempty"`
}

// PlayerUpdate is the private, per-seat projection of a dealt hand.
type PlayerUpdate struct {
	YourCards []cards.Card `json:"your_cards"`
}

// RoundStart announces a new round has been dealt.
type RoundStart struct {
	RoundNumber int `json:"round_number"`
}

// CallBluffResult is broadcast when a bluff call resolves a round.
type CallBluffResult struct {
	Message           string      `json:"message"`
	LoserID           string      `json:"loser_id"`
	PreviousRoundCards []SeatCards `json:"previous_round_cards"`
}

// ShowCards precedes the reveal embedded in CallBluffResult.
type ShowCards struct{}

// HostChanged is broadcast whenever host reassignment occurs.
type HostChanged struct {
	NewHost string `json:"new_host"`
	HostID  string `json:"host_id"`
}

// UserLeave is broadcast when a seated user departs. A user removed from
// the waiting list leaves without one.
type UserLeave struct {
	Username string `json:"username"`
}

// UserKicked is sent to the target of a kick.
type UserKicked struct {
	Message string `json:"message"`
}

// WaitingForGame answers a join while the room is full or a game is in
// progress.
type WaitingForGame struct {
	Message string `json:"message"`
}

// Error is sent to the offending sender only, per §7.
type Error struct {
	Message string `json:"message"`
}
