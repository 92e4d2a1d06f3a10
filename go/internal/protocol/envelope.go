package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the wire frame used in both directions
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MessageType names the payload carried by an Envelope
type MessageType string

// Inbound (server → client)
const (
	TypeGameStateUpdate MessageType = "GAME_STATE_UPDATE"
	TypeChatMessage     MessageType = "CHAT_MESSAGE"
	TypeDrawingUpdate   MessageType = "DRAWING_UPDATE"
	TypeWordToDraw      MessageType = "WORD_TO_DRAW"
	TypeGameOver        MessageType = "GAME_OVER"
	TypeError           MessageType = "ERROR"
)

// Outbound (client → server)
const (
	TypeStartGame   MessageType = "START_GAME"
	TypeNextRound   MessageType = "NEXT_ROUND"
	TypeChooseWord  MessageType = "CHOOSE_WORD"
	TypeDrawingData MessageType = "DRAWING_DATA"
	TypeGuess       MessageType = "GUESS"
)

var ErrMalformedFrame = errors.New("malformed frame")

// ParseFrame reads one raw websocket message into an Envelope
func ParseFrame(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return env, nil
}

// Decode turns an inbound envelope into a typed Message. Types this client does not know
// decode to Unknown rather than failing, so the protocol can grow.
func Decode(env Envelope) (Message, error) {
	switch env.Type {
	case TypeGameStateUpdate:
		var state SessionState
		if err := unmarshalPayload(env, &state); err != nil {
			return nil, err
		}
		return StateUpdate{State: state}, nil

	case TypeChatMessage:
		var p struct {
			Sender         string `json:"sender"`
			Message        string `json:"message"`
			IsCorrectGuess *bool  `json:"isCorrectGuess"`
			// the reference server serializes the snake_case field name
			IsCorrectGuessSnake *bool `json:"is_correct_guess"`
		}
		if err := unmarshalPayload(env, &p); err != nil {
			return nil, err
		}
		entry := ChatEntry{Sender: p.Sender, Message: p.Message}
		switch {
		case p.IsCorrectGuess != nil:
			entry.IsCorrectGuess = *p.IsCorrectGuess
		case p.IsCorrectGuessSnake != nil:
			entry.IsCorrectGuess = *p.IsCorrectGuessSnake
		}
		return ChatMessage{Entry: entry}, nil

	case TypeDrawingUpdate:
		var point DrawPoint
		if err := unmarshalPayload(env, &point); err != nil {
			return nil, err
		}
		return DrawingUpdate{Point: point}, nil

	case TypeWordToDraw:
		var p struct {
			CurrentDrawerID string   `json:"current_drawer_id"`
			Words           []string `json:"words"`
		}
		if err := unmarshalPayload(env, &p); err != nil {
			return nil, err
		}
		return WordToDraw{CurrentDrawerID: p.CurrentDrawerID, Words: p.Words}, nil

	case TypeGameOver:
		var p struct {
			ID          *string        `json:"id"`
			WinnerID    *string        `json:"winner_id"`
			WinnerName  *string        `json:"winner_name"`
			FinalScores map[string]int `json:"final_scores"`
		}
		if err := unmarshalPayload(env, &p); err != nil {
			return nil, err
		}
		msg := GameOver{WinnerID: p.WinnerID, WinnerName: p.WinnerName, FinalScores: p.FinalScores}
		if p.ID != nil {
			var state SessionState
			if err := unmarshalPayload(env, &state); err != nil {
				return nil, err
			}
			msg.State = &state
		}
		return msg, nil

	case TypeError:
		var p struct {
			Message string `json:"message"`
		}
		if err := unmarshalPayload(env, &p); err != nil {
			return nil, err
		}
		return ServerError{Message: p.Message}, nil

	default:
		return Unknown{Type: env.Type, Payload: env.Payload}, nil
	}
}

// Encode wraps an outbound message into an Envelope
func Encode(msg Outbound) (Envelope, error) {
	payload, err := json.Marshal(msg.payload())
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msg.Type(), err)
	}
	return Envelope{Type: msg.Type(), Payload: payload}, nil
}

func unmarshalPayload(env Envelope, v any) error {
	payload := bytes.TrimSpace(env.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return fmt.Errorf("%w: %s has no payload", ErrMalformedFrame, env.Type)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decode %s payload: %v", ErrMalformedFrame, env.Type, err)
	}
	return nil
}
