package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/milena-rosa/pictionary/go/internal/transport"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds everything the headless client needs
type Config struct {
	LogLevel string `yaml:"log_level"`

	Server struct {
		URL            string        `yaml:"url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	Player struct {
		Name         string `yaml:"name"`
		RoomID       string `yaml:"room_id"`
		TotalRounds  int    `yaml:"total_rounds"`
		WordCategory string `yaml:"word_category"`
	} `yaml:"player"`

	Canvas struct {
		Width     int    `yaml:"width"`
		Height    int    `yaml:"height"`
		Color     string `yaml:"color"`
		BrushSize int    `yaml:"brush_size"`
		OutputPNG string `yaml:"output_png"`
	} `yaml:"canvas"`

	Connection struct {
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		PingInterval     time.Duration `yaml:"ping_interval"`
		MaxMessageSize   int64         `yaml:"max_message_size"`
	} `yaml:"connection"`

	Relay RelayConfig `yaml:"relay"`

	Inspect struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"inspect"`
}

// RelayConfig controls the optional NATS mirror of inbound frames
type RelayConfig struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// Enabled reports whether a NATS server was configured
func (r RelayConfig) Enabled() bool {
	return r.URL != ""
}

// Default returns the settings used when nothing else is configured
func Default() Config {
	var c Config
	c.LogLevel = "info"
	c.Server.URL = "http://localhost:8000"
	c.Server.RequestTimeout = 30 * time.Second
	c.Player.TotalRounds = 5
	c.Player.WordCategory = "animals"
	c.Canvas.Width = 800
	c.Canvas.Height = 600
	c.Canvas.Color = "#000000"
	c.Canvas.BrushSize = 5

	tc := transport.DefaultConfig()
	c.Connection.HandshakeTimeout = tc.HandshakeTimeout
	c.Connection.WriteTimeout = tc.WriteTimeout
	c.Connection.ReadTimeout = tc.ReadTimeout
	c.Connection.PingInterval = tc.PingInterval
	c.Connection.MaxMessageSize = tc.MaxMessageSize

	c.Relay.SubjectPrefix = "pictionary"
	c.Relay.MaxReconnects = -1
	c.Relay.ReconnectWait = 2 * time.Second
	c.Inspect.AllowedOrigins = []string{"*"}
	return c
}

// Load reads .env if present, then the YAML file at path (optional), then PICTIONARY_*
// environment overrides
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if path == "" {
		path = os.Getenv("PICTIONARY_CONFIG")
	}

	config := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("PICTIONARY_LOG_LEVEL", c.LogLevel)
	c.Server.URL = getEnv("PICTIONARY_SERVER_URL", c.Server.URL)
	c.Server.RequestTimeout = getEnvAsDuration("PICTIONARY_REQUEST_TIMEOUT", c.Server.RequestTimeout)

	c.Player.Name = getEnv("PICTIONARY_PLAYER_NAME", c.Player.Name)
	c.Player.RoomID = getEnv("PICTIONARY_ROOM_ID", c.Player.RoomID)
	c.Player.TotalRounds = getEnvAsInt("PICTIONARY_TOTAL_ROUNDS", c.Player.TotalRounds)
	c.Player.WordCategory = getEnv("PICTIONARY_WORD_CATEGORY", c.Player.WordCategory)

	c.Canvas.Width = getEnvAsInt("PICTIONARY_CANVAS_WIDTH", c.Canvas.Width)
	c.Canvas.Height = getEnvAsInt("PICTIONARY_CANVAS_HEIGHT", c.Canvas.Height)
	c.Canvas.OutputPNG = getEnv("PICTIONARY_CANVAS_OUTPUT", c.Canvas.OutputPNG)

	c.Connection.ReadTimeout = getEnvAsDuration("PICTIONARY_READ_TIMEOUT", c.Connection.ReadTimeout)
	c.Connection.PingInterval = getEnvAsDuration("PICTIONARY_PING_INTERVAL", c.Connection.PingInterval)

	c.Relay.URL = getEnv("PICTIONARY_NATS_URL", c.Relay.URL)
	c.Relay.SubjectPrefix = getEnv("PICTIONARY_NATS_SUBJECT_PREFIX", c.Relay.SubjectPrefix)

	c.Inspect.Addr = getEnv("PICTIONARY_INSPECT_ADDR", c.Inspect.Addr)
}

// Validate checks the settings needed to reach a server and join a game
func (c *Config) Validate() error {
	var problems []string
	if c.Server.URL == "" {
		problems = append(problems, "server url is required")
	}
	if strings.TrimSpace(c.Player.Name) == "" {
		problems = append(problems, "player name is required")
	}
	if c.Player.TotalRounds <= 0 {
		problems = append(problems, "total rounds must be positive")
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		problems = append(problems, "canvas size must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.LogLevel))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Level returns the configured zerolog level, info when unset
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Transport converts the connection settings for the websocket dialer
func (c *Config) Transport() transport.Config {
	tc := transport.DefaultConfig()
	tc.HandshakeTimeout = c.Connection.HandshakeTimeout
	tc.WriteTimeout = c.Connection.WriteTimeout
	tc.ReadTimeout = c.Connection.ReadTimeout
	tc.PingInterval = c.Connection.PingInterval
	tc.MaxMessageSize = c.Connection.MaxMessageSize
	return tc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
