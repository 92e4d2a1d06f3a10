package transport

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds configuration for the session websocket
type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
	SendBuffer       int
	InboundBuffer    int
}

// DefaultConfig returns default websocket configuration
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		// snapshots carry the whole stroke history, so they get large
		MaxMessageSize:  4 << 20,
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		InboundBuffer:   256,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.ReadTimeout {
		c.PingInterval = c.ReadTimeout * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.WriteBufferSize <= 0 {
		c.WriteBufferSize = d.WriteBufferSize
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = d.InboundBuffer
	}
	return c
}

// Target identifies the one channel a participant opens for a game session
type Target struct {
	// BaseURL is the game server root, http(s) or ws(s)
	BaseURL    string
	RoomID     string
	PlayerID   string
	PlayerName string
}

// URL builds ws(s)://host/ws/{room}/{player}/{name}
func (t Target) URL() (string, error) {
	if t.RoomID == "" || t.PlayerID == "" || t.PlayerName == "" {
		return "", fmt.Errorf("room id, player id and player name are required")
	}
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}

	u = u.JoinPath("ws", url.PathEscape(t.RoomID), url.PathEscape(t.PlayerID), url.PathEscape(t.PlayerName))
	return u.String(), nil
}
