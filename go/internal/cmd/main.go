package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/milena-rosa/pictionary/go/internal/config"
	"github.com/milena-rosa/pictionary/go/internal/input"
	"github.com/milena-rosa/pictionary/go/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	var path string
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to join game")
	}
	s := services.Session

	// The session outlives ctx so the final canvas can still be read on shutdown
	go func() {
		if err := s.Run(context.Background()); err != nil {
			log.Error().Err(err).Msg("session loop failed")
		}
	}()

	style := input.Style{Color: cfg.Canvas.Color, BrushSize: cfg.Canvas.BrushSize}
	if err := s.SetStyle(ctx, style); err != nil {
		log.Warn().Err(err).Msg("failed to apply pen style")
	}

	server := setupServer(cfg, s)
	if server != nil {
		startServer(server)
	}

	log.Info().
		Str("room_id", services.Membership.RoomID).
		Str("player_id", services.Membership.PlayerID).
		Msg("share the room id with other players, type /quit to leave")

	go readCommands(ctx, newShell(s, style, os.Stdout), stop)

	select {
	case <-ctx.Done():
	case <-s.Done():
	}

	// Save the final canvas before the loop goes away
	if cfg.Canvas.OutputPNG != "" {
		saveCanvas(s, cfg.Canvas.OutputPNG)
	}

	if server != nil {
		stopServer(server)
	}
	services.Close()
	log.Info().Msg("bye")
}

// readCommands feeds stdin to sh until EOF or /quit
func readCommands(ctx context.Context, sh *shell, quit context.CancelFunc) {
	defer quit()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		err := sh.execute(ctx, scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			return
		case errors.Is(err, session.ErrSessionClosed), errors.Is(err, context.Canceled):
			return
		case err != nil:
			log.Warn().Err(err).Msg("command failed")
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("failed to read stdin")
	}
}

func saveCanvas(s *session.Session, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := s.CanvasPNG(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to render canvas")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to write canvas")
		return
	}
	log.Info().Str("path", path).Msg("canvas saved")
}
