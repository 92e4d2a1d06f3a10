package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milena-rosa/pictionary/go/internal/config"
	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	HeaderSession = "Pictionary-Session"
	HeaderType    = "Pictionary-Type"
)

// Publisher is the part of *nats.Conn the relay needs
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Frame is the body published for every mirrored envelope
type Frame struct {
	SessionID  string               `json:"session_id"`
	RoomID     string               `json:"room_id"`
	Type       protocol.MessageType `json:"type"`
	ReceivedAt time.Time            `json:"received_at"`
	Payload    json.RawMessage      `json:"payload"`
}

// Relay mirrors inbound frames to NATS subjects <prefix>.rooms.<room>.<type> so recorders and
// spectators can follow a game without their own websocket
type Relay struct {
	pub       Publisher
	prefix    string
	sessionID string
	now       func() time.Time
	nc        *nats.Conn
}

func New(pub Publisher, prefix string) *Relay {
	if prefix == "" {
		prefix = "pictionary"
	}
	return &Relay{
		pub:       pub,
		prefix:    prefix,
		sessionID: uuid.New().String(),
		now:       time.Now,
	}
}

// Connect dials NATS with reconnect handling and returns a relay publishing on it
func Connect(cfg config.RelayConfig) (*Relay, error) {
	opts := []nats.Option{
		nats.Name("pictionary-relay"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	r := New(nc, cfg.SubjectPrefix)
	r.nc = nc

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("session_id", r.sessionID).
		Msg("relay connected")

	return r, nil
}

// Subject returns where frames of type t for roomID are published
func (r *Relay) Subject(roomID string, t protocol.MessageType) string {
	return fmt.Sprintf("%s.rooms.%s.%s", r.prefix, token(roomID), token(string(t)))
}

// Mirror publishes env. Failures are logged, never returned: the game must not stall on the relay.
func (r *Relay) Mirror(roomID string, env protocol.Envelope) {
	frame := Frame{
		SessionID:  r.sessionID,
		RoomID:     roomID,
		Type:       env.Type,
		ReceivedAt: r.now().UTC(),
		Payload:    env.Payload,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("type", string(env.Type)).Msg("failed to marshal relay frame")
		return
	}

	msg := nats.NewMsg(r.Subject(roomID, env.Type))
	msg.Data = data
	msg.Header.Set(HeaderSession, r.sessionID)
	msg.Header.Set(HeaderType, string(env.Type))

	if err := r.pub.PublishMsg(msg); err != nil {
		log.Warn().
			Err(err).
			Str("subject", msg.Subject).
			Msg("failed to mirror frame")
		return
	}

	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(data)).
		Msg("frame mirrored")
}

// Close drains the NATS connection if the relay owns one
func (r *Relay) Close() error {
	if r.nc == nil {
		return nil
	}
	if err := r.nc.Drain(); err != nil {
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

// token makes s safe as a single subject token
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
