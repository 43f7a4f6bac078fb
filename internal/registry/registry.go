// Package registry implements the persistent username/online registry of
// spec.md §4.3: durable across restarts for usernames and leaderboard
// counters, with online flags reset to offline on startup. It is the only
// component in the system permitted to touch durable storage (spec.md §5).
package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/lox/bspoker/internal/idgen"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const minUsernameLen = 2

const defaultMaxUsernameLen = 20

// Sentinel errors for Claim, matching the concept-level kinds of spec.md §7.
var (
	ErrUsernameInvalid = errors.New("registry: username invalid")
	ErrUsernameTaken   = errors.New("registry: username taken")
)

// LeaderboardEntry is one row of SnapshotLeaderboard's result, ordered by
// wins desc, then games_played asc, then username asc (spec.md §4.3).
type LeaderboardEntry struct {
	Username    string
	Wins        int
	GamesPlayed int
}

// Registry claims/releases usernames and tracks leaderboard counters. A
// userID is a session-scoped handle minted by idgen; the persistent record
// is keyed by username. The sessions map bridges the two for the lifetime
// of a claim.
type Registry struct {
	db             *sql.DB
	logger         zerolog.Logger
	ids            *idgen.Generator
	maxUsernameLen int

	mu       sync.RWMutex
	sessions map[string]string // userID -> username
}

// Open connects to the sqlite database at dsn, applies pending goose
// migrations, and resets every user's is_online flag to false (spec.md §4.3
// "online flags are reset to offline on startup"). maxUsernameLen is the
// configurable knob of spec.md §6's "maximum username length (20)"; a
// value <= 0 falls back to that default.
func Open(ctx context.Context, logger zerolog.Logger, dsn string, maxUsernameLen int) (*Registry, error) {
	if maxUsernameLen <= 0 {
		maxUsernameLen = defaultMaxUsernameLen
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single writer, avoid SQLITE_BUSY

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("registry: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: migrate: %w", err)
	}

	if _, err := db.ExecContext(ctx, `UPDATE users SET is_online = 0`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: reset online flags: %w", err)
	}

	return &Registry{
		db:             db,
		logger:         logger.With().Str("component", "registry").Logger(),
		ids:            idgen.NewGenerator(nil),
		maxUsernameLen: maxUsernameLen,
		sessions:       make(map[string]string),
	}, nil
}

// Close releases the underlying database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) validateUsername(username string) error {
	if len(username) < minUsernameLen || len(username) > r.maxUsernameLen {
		return ErrUsernameInvalid
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// Claim reserves username for a new session, returning a fresh session-scoped
// userID. If the username existed offline, its persistent record (wins,
// games_played, first_seen) is reused; otherwise a new record is created.
// Returns ErrUsernameInvalid or ErrUsernameTaken on rejection.
func (r *Registry) Claim(ctx context.Context, username string) (userID string, err error) {
	if err := r.validateUsername(username); err != nil {
		return "", err
	}

	err = r.withRetry(func() error {
		tx, txErr := r.db.BeginTx(ctx, nil)
		if txErr != nil {
			return txErr
		}
		defer func() { _ = tx.Rollback() }()

		var isOnline bool
		now := time.Now().UTC()
		row := tx.QueryRowContext(ctx, `SELECT is_online FROM users WHERE username = ?`, username)
		switch scanErr := row.Scan(&isOnline); {
		case errors.Is(scanErr, sql.ErrNoRows):
			if _, execErr := tx.ExecContext(ctx,
				`INSERT INTO users (username, first_seen, last_seen, is_online, wins, games_played)
				 VALUES (?, ?, ?, 1, 0, 0)`, username, now, now); execErr != nil {
				return execErr
			}
		case scanErr != nil:
			return scanErr
		case isOnline:
			return ErrUsernameTaken
		default:
			if _, execErr := tx.ExecContext(ctx,
				`UPDATE users SET is_online = 1, last_seen = ? WHERE username = ?`, now, username); execErr != nil {
				return execErr
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", err
	}

	userID = r.ids.User()
	r.mu.Lock()
	r.sessions[userID] = username
	r.mu.Unlock()

	return userID, nil
}

// Release marks userID's username offline, preserving persistent counters.
func (r *Registry) Release(ctx context.Context, userID string) error {
	username, ok := r.username(userID)
	if !ok {
		return nil
	}

	err := r.withRetry(func() error {
		_, execErr := r.db.ExecContext(ctx,
			`UPDATE users SET is_online = 0, last_seen = ? WHERE username = ?`, time.Now().UTC(), username)
		return execErr
	})

	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()

	return err
}

// RecordWin increments the winner's persistent win counter.
func (r *Registry) RecordWin(ctx context.Context, userID string) error {
	username, ok := r.username(userID)
	if !ok {
		return fmt.Errorf("registry: unknown user %s", userID)
	}
	return r.withRetry(func() error {
		_, execErr := r.db.ExecContext(ctx, `UPDATE users SET wins = wins + 1 WHERE username = ?`, username)
		return execErr
	})
}

// RecordGame increments a participant's persistent games-played counter.
func (r *Registry) RecordGame(ctx context.Context, userID string) error {
	username, ok := r.username(userID)
	if !ok {
		return fmt.Errorf("registry: unknown user %s", userID)
	}
	return r.withRetry(func() error {
		_, execErr := r.db.ExecContext(ctx, `UPDATE users SET games_played = games_played + 1 WHERE username = ?`, username)
		return execErr
	})
}

// Username resolves a session-scoped userID to its claimed username.
func (r *Registry) Username(userID string) (string, bool) {
	return r.username(userID)
}

func (r *Registry) username(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.sessions[userID]
	return username, ok
}

// SnapshotLeaderboard returns the top limit users, ordered by wins desc,
// games_played asc, username asc (spec.md §4.3).
func (r *Registry) SnapshotLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, wins, games_played FROM users
		 ORDER BY wins DESC, games_played ASC, username ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("registry: snapshot leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Wins, &e.GamesPlayed); err != nil {
			return nil, fmt.Errorf("registry: scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// withRetry executes fn, retrying exactly once on failure, per spec.md §7's
// "Persistence: retry once; on repeated failure, surface error."
func (r *Registry) withRetry(fn func() error) error {
	if err := fn(); err != nil {
		r.logger.Warn().Err(err).Msg("persistence write failed, retrying once")
		if err := fn(); err != nil {
			return fmt.Errorf("registry: write failed after retry: %w", err)
		}
	}
	return nil
}
