// Package gateway implements the Session Gateway of spec.md §4.5: the only
// I/O surface in the system. It accepts long-lived websocket connections,
// demultiplexes inbound frames to the owning room, and projects outbound
// Room events into broadcast or private per-seat frames.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lox/bspoker/internal/protocol"
	"github.com/lox/bspoker/internal/registry"
	"github.com/lox/bspoker/internal/room"
	"github.com/rs/zerolog"
)

// defaultRoomID is used when an inbound frame carries no session_id,
// per spec.md §4.5 "(or a default single-room deployment)".
const defaultRoomID = "lobby"

// Registry is the narrow slice of internal/registry.Registry the Gateway
// depends on.
type Registry interface {
	Claim(ctx context.Context, username string) (string, error)
	Release(ctx context.Context, userID string) error
	Username(userID string) (string, bool)
	SnapshotLeaderboard(ctx context.Context, limit int) ([]registry.LeaderboardEntry, error)
}

// Config bundles a Gateway's construction-time dependencies.
type Config struct {
	Manager  *room.Manager
	Registry Registry
	Logger   zerolog.Logger
}

// Gateway is the server's websocket and HTTP entry point.
type Gateway struct {
	manager  *room.Manager
	registry Registry
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mux        *http.ServeMux
	httpServer *http.Server
	routesOnce sync.Once

	mu    sync.Mutex
	conns map[string]map[string]*connection // roomID -> userID -> connection
}

// New constructs a Gateway.
func New(cfg Config) *Gateway {
	return &Gateway{
		manager:  cfg.Manager,
		registry: cfg.Registry,
		logger:   cfg.Logger.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		mux:   http.NewServeMux(),
		conns: make(map[string]map[string]*connection),
	}
}

func (g *Gateway) ensureRoutes() {
	g.routesOnce.Do(func() {
		g.mux.HandleFunc("/ws", g.handleWebSocket)
		g.mux.HandleFunc("/healthz", g.handleHealthz)
		g.mux.HandleFunc("/leaderboard", g.handleLeaderboard)
	})
}

// Serve starts the HTTP+websocket listener on addr and blocks until it
// stops or errors.
func (g *Gateway) Serve(addr string) error {
	g.ensureRoutes()
	g.httpServer = &http.Server{Addr: addr, Handler: g.mux}
	g.logger.Info().Str("addr", addr).Msg("gateway listening")
	err := g.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains connections and stops the HTTP server, per spec.md §5
// "Shutdown drains in-flight commands, sends a final error/close frame, and
// releases usernames."
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	conns := make([]*connection, 0)
	for _, byUser := range g.conns {
		for _, c := range byUser {
			conns = append(conns, c)
		}
	}
	g.mu.Unlock()

	for _, c := range conns {
		c.enqueue(mustEncode(protocol.TypeError, protocol.Error{Message: "server shutting down"}))
		userID, _ := c.identity()
		if userID != "" {
			_ = g.registry.Release(ctx, userID)
		}
		c.close()
	}

	if g.httpServer == nil {
		return nil
	}
	return g.httpServer.Shutdown(ctx)
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newConnection(g, conn, g.logger.With().Logger())
	go c.writePump()
	go c.readPump()
}

func (g *Gateway) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (g *Gateway) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := g.registry.SnapshotLeaderboard(ctx, 50)
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to snapshot leaderboard")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func mustEncode(frameType string, data any) []byte {
	f, err := protocol.Encode(frameType, data)
	if err != nil {
		return nil
	}
	raw, _ := json.Marshal(f)
	return raw
}
