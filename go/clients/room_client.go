package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrRoomNotFound = errors.New("room not found")

const (
	DefaultTotalRounds  = 5
	DefaultWordCategory = "animals"
)

// RoomClient talks to the game server's room lifecycle endpoints
type RoomClient struct {
	*BaseClient
}

func NewRoomClient(baseURL string) *RoomClient {
	return &RoomClient{BaseClient: NewBaseClient(baseURL)}
}

type CreateRoomRequest struct {
	PlayerName   string `json:"player_name"`
	TotalRounds  int    `json:"total_rounds"`
	WordCategory string `json:"word_category"`
}

type JoinRoomRequest struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
}

type JoinRoomResponse struct {
	PlayerID  string                `json:"player_id"`
	RoomState protocol.SessionState `json:"room_state"`
}

// Membership is what a client needs to open the session channel
type Membership struct {
	RoomID     string
	PlayerID   string
	PlayerName string
	Room       protocol.SessionState
}

// CreateRoom creates a room hosted by playerName. The creator's id is the room's host id.
func (c *RoomClient) CreateRoom(ctx context.Context, req CreateRoomRequest) (*Membership, error) {
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.PlayerName == "" {
		return nil, fmt.Errorf("player name is required")
	}
	if req.TotalRounds <= 0 {
		req.TotalRounds = DefaultTotalRounds
	}
	if req.WordCategory == "" {
		req.WordCategory = DefaultWordCategory
	}

	var room protocol.SessionState
	if err := c.PostJSON(ctx, "/api/create_room", req, &room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	if room.ID == "" || room.HostID == "" {
		return nil, fmt.Errorf("failed to create room: response missing room or host id")
	}

	log.Info().
		Str("room_id", room.ID).
		Str("player_id", room.HostID).
		Int("total_rounds", room.TotalRounds).
		Msg("room created")

	return &Membership{
		RoomID:     room.ID,
		PlayerID:   room.HostID,
		PlayerName: req.PlayerName,
		Room:       room,
	}, nil
}

// JoinRoom adds playerName to an existing room and returns the assigned player id
func (c *RoomClient) JoinRoom(ctx context.Context, req JoinRoomRequest) (*Membership, error) {
	req.RoomID = strings.ToUpper(strings.TrimSpace(req.RoomID))
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if req.RoomID == "" || req.PlayerName == "" {
		return nil, fmt.Errorf("room id and player name are required")
	}

	var resp JoinRoomResponse
	if err := c.PostJSON(ctx, "/api/join_room", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to join room %s: %w", req.RoomID, notFound(err))
	}
	if resp.PlayerID == "" {
		return nil, fmt.Errorf("failed to join room %s: response missing player id", req.RoomID)
	}

	log.Info().
		Str("room_id", req.RoomID).
		Str("player_id", resp.PlayerID).
		Int("players", len(resp.RoomState.Players)).
		Msg("joined room")

	return &Membership{
		RoomID:     req.RoomID,
		PlayerID:   resp.PlayerID,
		PlayerName: req.PlayerName,
		Room:       resp.RoomState,
	}, nil
}

// RoomExists checks whether roomID is open on the server
func (c *RoomClient) RoomExists(ctx context.Context, roomID string) (bool, error) {
	roomID = strings.ToUpper(strings.TrimSpace(roomID))
	if roomID == "" {
		return false, nil
	}

	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.GetJSON(ctx, "/api/room_exists/"+url.PathEscape(roomID), &resp); err != nil {
		return false, fmt.Errorf("failed to check room %s: %w", roomID, err)
	}
	return resp.Exists, nil
}

func notFound(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrRoomNotFound, err)
	}
	return err
}
