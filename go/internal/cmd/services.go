package main

import (
	"context"
	"fmt"

	"github.com/milena-rosa/pictionary/go/clients"
	"github.com/milena-rosa/pictionary/go/internal/config"
	"github.com/milena-rosa/pictionary/go/internal/relay"
	"github.com/milena-rosa/pictionary/go/internal/session"
	"github.com/milena-rosa/pictionary/go/internal/transport"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Rooms      *clients.RoomClient
	Relay      *relay.Relay
	Session    *session.Session
	Membership *clients.Membership
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up dependency chain
	// Room API → membership → transport → session

	rooms := clients.NewRoomClient(cfg.Server.URL)
	rooms.SetTimeout(cfg.Server.RequestTimeout)

	membership, err := enterRoom(ctx, rooms, cfg)
	if err != nil {
		return nil, err
	}

	services := &Services{Rooms: rooms, Membership: membership}

	// Relay is optional
	var mirror session.Mirror
	if cfg.Relay.Enabled() {
		r, err := relay.Connect(cfg.Relay)
		if err != nil {
			return nil, err
		}
		services.Relay = r
		mirror = r
	}

	target := transport.Target{
		BaseURL:    cfg.Server.URL,
		RoomID:     membership.RoomID,
		PlayerID:   membership.PlayerID,
		PlayerName: membership.PlayerName,
	}
	dial := func(ctx context.Context, onClose transport.CloseFunc) (transport.Transport, error) {
		return transport.Dial(ctx, target, cfg.Transport(), onClose)
	}

	s, err := session.Open(ctx, session.Options{
		RoomID:   membership.RoomID,
		SelfID:   membership.PlayerID,
		Width:    cfg.Canvas.Width,
		Height:   cfg.Canvas.Height,
		Listener: newLogListener(),
		Mirror:   mirror,
	}, dial)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Session = s

	return services, nil
}

// enterRoom joins the configured room or creates a new one
func enterRoom(ctx context.Context, rooms *clients.RoomClient, cfg *config.Config) (*clients.Membership, error) {
	if cfg.Player.RoomID == "" {
		return rooms.CreateRoom(ctx, clients.CreateRoomRequest{
			PlayerName:   cfg.Player.Name,
			TotalRounds:  cfg.Player.TotalRounds,
			WordCategory: cfg.Player.WordCategory,
		})
	}

	exists, err := rooms.RoomExists(ctx, cfg.Player.RoomID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("room %s: %w", cfg.Player.RoomID, clients.ErrRoomNotFound)
	}
	return rooms.JoinRoom(ctx, clients.JoinRoomRequest{
		RoomID:     cfg.Player.RoomID,
		PlayerName: cfg.Player.Name,
	})
}

// Close releases the session and the relay connection
func (s *Services) Close() {
	if s.Session != nil {
		if err := s.Session.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close session")
		}
	}
	if s.Relay != nil {
		if err := s.Relay.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close relay")
		}
	}
}
