// Command server runs the BS poker authoritative server core: the Session
// Gateway, Room Manager, and persistent Registry wired together per
// spec.md §6's Configuration knobs.
package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	randv1 "math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lox/bspoker/internal/gateway"
	"github.com/lox/bspoker/internal/registry"
	"github.com/lox/bspoker/internal/room"
	"github.com/rs/zerolog"
)

type CLI struct {
	Addr           string `kong:"default=':8080',help='Bind address for the websocket and HTTP server'"`
	Debug          bool   `kong:"help='Enable debug logging'"`
	DataFile       string `kong:"default='bspoker.db',help='Path to the persistent user registry database'"`
	MaxPlayers     int    `kong:"default='8',help='Maximum seated players per room'"`
	MaxUsernameLen int    `kong:"default='20',help='Maximum username length'"`
	TurnTimeout    time.Duration `kong:"help='Per-turn action timeout (testing only; unimplemented, see spec open question)'"`
	Seed           *int64 `kong:"help='Deterministic RNG seed override, for testing only'"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bspoker-server"),
		kong.Description("Authoritative server core for the bluff-call poker game"),
		kong.UsageOnError(),
	)

	level := zerolog.InfoLevel
	if cli.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, err := registry.Open(ctx, logger, cli.DataFile, cli.MaxUsernameLen)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open registry")
	}
	defer reg.Close()

	newRNG := seededRNGFactory(cli.Seed)

	manager := room.NewManager(room.ManagerConfig{
		MaxPlayers: cli.MaxPlayers,
		Registry:   reg,
		Logger:     logger,
		NewRNG:     newRNG,
	})

	gw := gateway.New(gateway.Config{
		Manager:  manager,
		Registry: reg,
		Logger:   logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cli.Addr).
			Str("data_file", cli.DataFile).
			Int("max_players", cli.MaxPlayers).
			Int("max_username_len", cli.MaxUsernameLen).
			Msg("server starting")
		serverErr <- gw.Serve(cli.Addr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			kctx.FatalIfErrorf(err)
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down gracefully")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := gw.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("server exited with error")
		} else {
			logger.Info().Msg("server shutdown complete")
		}
	}
}

// seededRNGFactory returns a room.ManagerConfig.NewRNG function: a
// crypto/rand-seeded source per Room in production (spec.md §9 "must be
// ... cryptographically unpredictable in production"), or a fixed-seed
// source for every Room when --seed is supplied for testing.
func seededRNGFactory(seed *int64) func() *randv1.Rand {
	if seed != nil {
		s := *seed
		return func() *randv1.Rand {
			return randv1.New(randv1.NewSource(s))
		}
	}
	return func() *randv1.Rand {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return randv1.New(randv1.NewSource(time.Now().UnixNano()))
		}
		return randv1.New(randv1.NewSource(int64(binary.LittleEndian.Uint64(buf[:]))))
	}
}
