package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/milena-rosa/pictionary/go/internal/config"
	"github.com/milena-rosa/pictionary/go/internal/inspect"
	"github.com/rs/zerolog/log"
)

// setupServer returns the inspector server, or nil when no address is configured
func setupServer(cfg *config.Config, src inspect.Source) *http.Server {
	if cfg.Inspect.Addr == "" {
		return nil
	}
	return inspect.NewServer(cfg.Inspect.Addr, src, cfg.Inspect.AllowedOrigins)
}

func startServer(server *http.Server) {
	go func() {
		log.Info().Str("addr", server.Addr).Msg("inspector listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("inspector server failed")
		}
	}()
}

func stopServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("inspector shutdown failed")
	}
}
