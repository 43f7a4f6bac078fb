package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lox/bspoker/internal/protocol"
	"github.com/lox/bspoker/internal/room"
)

// dispatch decodes one inbound frame and routes it to the owning room, per
// spec.md §4.5. Malformed frames and unknown types yield an `error` frame to
// the sender only, with the connection preserved (spec.md §7 Validation).
func (g *Gateway) dispatch(c *connection, raw []byte) {
	frame, err := protocol.Decode(raw)
	if err != nil {
		c.enqueue(mustEncode(protocol.TypeError, protocol.Error{Message: "malformed frame"}))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch frame.Type {
	case protocol.TypeUserJoin:
		g.handleUserJoin(ctx, c, frame)
	case protocol.TypeGameStart:
		g.handleGameStart(ctx, c, frame)
	case protocol.TypeGameRestart:
		g.handleGameRestart(ctx, c, frame)
	case protocol.TypeKickUser:
		g.handleKickUser(ctx, c, frame)
	case protocol.TypeCallHand:
		g.handleCallHand(ctx, c, frame)
	case protocol.TypeCallBluff:
		g.handleCallBluff(ctx, c, frame)
	default:
		c.enqueue(mustEncode(protocol.TypeError, protocol.Error{Message: "unknown frame type: " + frame.Type}))
	}
}

func roomIDOf(frame *protocol.Frame) string {
	if frame.SessionID == "" {
		return defaultRoomID
	}
	return frame.SessionID
}

func (g *Gateway) handleUserJoin(ctx context.Context, c *connection, frame *protocol.Frame) {
	var req protocol.UserJoinRequest
	if err := frame.DecodeData(&req); err != nil {
		c.enqueue(mustEncode(protocol.TypeUsernameError, protocol.UsernameError{Message: "malformed user_join"}))
		return
	}

	userID, err := g.registry.Claim(ctx, req.Username)
	if err != nil {
		c.enqueue(mustEncode(protocol.TypeUsernameError, protocol.UsernameError{Message: err.Error()}))
		return
	}

	roomID := roomIDOf(frame)
	rm := g.manager.GetOrCreate(roomID)
	result := rm.Join(userID, req.Username)

	c.setIdentity(userID, roomID, req.Username)
	g.registerConn(roomID, userID, c)

	leaderboard, err := g.registry.SnapshotLeaderboard(ctx, 10)
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to snapshot leaderboard for join reply")
	}
	lbView := make([]protocol.LeaderboardEntry, 0, len(leaderboard))
	for _, e := range leaderboard {
		lbView = append(lbView, protocol.LeaderboardEntry{Username: e.Username, Wins: e.Wins, GamesPlayed: e.GamesPlayed})
	}

	c.enqueue(mustEncode(protocol.TypeUserJoin, protocol.UserJoinReply{
		Success:     true,
		UserID:      userID,
		Username:    req.Username,
		IsHost:      result.IsHost,
		Message:     "joined",
		Leaderboard: lbView,
	}))

	g.deliver(roomID, result.Events)
}

func (g *Gateway) handleGameStart(ctx context.Context, c *connection, frame *protocol.Frame) {
	var req protocol.GameStartRequest
	if err := frame.DecodeData(&req); err != nil {
		g.replyError(c, err)
		return
	}
	roomID := roomIDOf(frame)
	events, err := g.manager.GetOrCreate(roomID).StartGame(ctx, req.UserID)
	if err != nil {
		g.replyError(c, err)
		return
	}
	g.deliver(roomID, events)
}

func (g *Gateway) handleGameRestart(ctx context.Context, c *connection, frame *protocol.Frame) {
	var req protocol.GameRestartRequest
	if err := frame.DecodeData(&req); err != nil {
		g.replyError(c, err)
		return
	}
	roomID := roomIDOf(frame)
	events, err := g.manager.GetOrCreate(roomID).Restart(ctx, req.UserID)
	if err != nil {
		g.replyError(c, err)
		return
	}
	g.deliver(roomID, events)
}

func (g *Gateway) handleKickUser(ctx context.Context, c *connection, frame *protocol.Frame) {
	var req protocol.KickUserRequest
	if err := frame.DecodeData(&req); err != nil {
		g.replyError(c, err)
		return
	}
	roomID := roomIDOf(frame)
	events, err := g.manager.GetOrCreate(roomID).Kick(ctx, req.HostID, req.TargetUsername)
	if err != nil {
		g.replyError(c, err)
		return
	}
	g.deliver(roomID, events)
	g.manager.Reap(roomID)
}

func (g *Gateway) handleCallHand(ctx context.Context, c *connection, frame *protocol.Frame) {
	var req protocol.CallHandRequest
	if err := frame.DecodeData(&req); err != nil {
		g.replyError(c, err)
		return
	}
	roomID := roomIDOf(frame)
	events, err := g.manager.GetOrCreate(roomID).CallHand(ctx, req.UserID, req.HandSpec)
	if err != nil {
		g.replyError(c, err)
		return
	}
	g.deliver(roomID, events)
}

func (g *Gateway) handleCallBluff(ctx context.Context, c *connection, frame *protocol.Frame) {
	var req protocol.CallBluffRequest
	if err := frame.DecodeData(&req); err != nil {
		g.replyError(c, err)
		return
	}
	roomID := roomIDOf(frame)
	events, err := g.manager.GetOrCreate(roomID).CallBluff(ctx, req.UserID)
	if err != nil {
		g.replyError(c, err)
		return
	}
	g.deliver(roomID, events)
}

func (g *Gateway) replyError(c *connection, err error) {
	c.enqueue(mustEncode(protocol.TypeError, protocol.Error{Message: err.Error()}))
}

// handleDisconnect implements spec.md §4.5 "On disconnect: calls
// Room.leave(userId) and Registry.release(userId)."
func (g *Gateway) handleDisconnect(c *connection) {
	userID, roomID := c.identity()
	c.close()
	if userID == "" || roomID == "" {
		return
	}

	g.unregisterConn(roomID, userID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rm := g.manager.GetOrCreate(roomID)
	events := rm.Leave(ctx, userID)
	g.deliver(roomID, events)
	if err := g.registry.Release(ctx, userID); err != nil {
		g.logger.Error().Err(err).Str("user_id", userID).Msg("failed to release username on disconnect")
	}
	g.manager.Reap(roomID)
}

func (g *Gateway) registerConn(roomID, userID string, c *connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	byUser, ok := g.conns[roomID]
	if !ok {
		byUser = make(map[string]*connection)
		g.conns[roomID] = byUser
	}
	byUser[userID] = c
}

func (g *Gateway) unregisterConn(roomID, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if byUser, ok := g.conns[roomID]; ok {
		delete(byUser, userID)
		if len(byUser) == 0 {
			delete(g.conns, roomID)
		}
	}
}

// deliver projects Room events onto live connections: broadcasts reach
// every connection in the room, private events reach only their target
// (spec.md §4.5 and design notes: never filter one broadcast per
// recipient).
func (g *Gateway) deliver(roomID string, events []room.Event) {
	if len(events) == 0 {
		return
	}

	g.mu.Lock()
	byUser := g.conns[roomID]
	recipients := make([]*connection, 0, len(byUser))
	onlineUsernames := make([]string, 0, len(byUser))
	for _, c := range byUser {
		recipients = append(recipients, c)
		if _, _, username := c.snapshot(); username != "" {
			onlineUsernames = append(onlineUsernames, username)
		}
	}
	g.mu.Unlock()

	for _, ev := range events {
		switch {
		case ev.GameState != nil:
			ev.GameState.OnlineUsers = onlineUsernames
			raw := mustEncode(protocol.TypeGameStateUpdate, *ev.GameState)
			for _, c := range recipients {
				c.enqueue(raw)
			}
		case ev.Broadcast:
			raw := encodeFrame(ev.Frame)
			for _, c := range recipients {
				c.enqueue(raw)
			}
		default:
			raw := encodeFrame(ev.Frame)
			for _, c := range recipients {
				if uid, _, _ := c.snapshot(); uid == ev.UserID {
					c.enqueue(raw)
					break
				}
			}
		}
	}
}

func encodeFrame(f *protocol.Frame) []byte {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return raw
}
