package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lox/bspoker/internal/registry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry is a minimal Registry stand-in for exercising the Gateway's
// HTTP surface without a real sqlite-backed registry.
type fakeRegistry struct {
	entries []registry.LeaderboardEntry
}

func (f *fakeRegistry) Claim(ctx context.Context, username string) (string, error) { return "", nil }
func (f *fakeRegistry) Release(ctx context.Context, userID string) error           { return nil }
func (f *fakeRegistry) Username(userID string) (string, bool)                      { return "", false }
func (f *fakeRegistry) SnapshotLeaderboard(ctx context.Context, limit int) ([]registry.LeaderboardEntry, error) {
	return f.entries, nil
}

func newTestGateway(reg Registry) *Gateway {
	g := New(Config{Registry: reg, Logger: zerolog.Nop()})
	g.ensureRoutes()
	return g
}

func TestHandleHealthzReturnsOK(t *testing.T) {
	g := newTestGateway(&fakeRegistry{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	g.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleLeaderboardEncodesEntries(t *testing.T) {
	reg := &fakeRegistry{entries: []registry.LeaderboardEntry{
		{Username: "alice", Wins: 3, GamesPlayed: 5},
		{Username: "bob", Wins: 1, GamesPlayed: 2},
	}}
	g := newTestGateway(reg)

	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	rec := httptest.NewRecorder()
	g.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var entries []registry.LeaderboardEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Username)
}

func TestMustEncodeProducesDecodableFrame(t *testing.T) {
	raw := mustEncode("error", map[string]string{"message": "boom"})
	require.NotNil(t, raw)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "error", decoded["type"])
}
