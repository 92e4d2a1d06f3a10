package protocol

import (
	"math"
	"time"
)

// Action tags a DrawPoint with what the pen did
type Action string

const (
	ActionStart Action = "start"
	ActionDraw  Action = "draw"
	ActionEnd   Action = "end"
	ActionClear Action = "clear"
)

// Player represents a participant in a room
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	HasGuessed bool   `json:"has_guessed"`
}

// DrawPoint is one sampled coordinate event. Points tagged end or clear are signals and
// carry placeholder coordinates.
type DrawPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Color     string  `json:"color"`
	BrushSize int     `json:"brush_size"`
	Action    Action  `json:"action"`
}

// Stroke is one continuous pen-down-to-pen-up path
type Stroke []DrawPoint

// StrokeHistory is the ordered list of strokes of the current round
type StrokeHistory []Stroke

// SessionState is the authoritative snapshot of a game room as asserted by the server
type SessionState struct {
	ID                string            `json:"id"`
	Players           map[string]Player `json:"players"`
	HostID            string            `json:"host_id"`
	IsGameStarted     bool              `json:"is_game_started"`
	CurrentDrawerID   *string           `json:"current_drawer_id"`
	SecretWord        *string           `json:"secret_word"`
	GuessedWordHint   *string           `json:"guessed_word_hint"`
	TimerExpiresAt    *float64          `json:"timer_expires_at"`
	ActiveConnections map[string]bool   `json:"active_connections,omitempty"`
	RoundNumber       int               `json:"round_number"`
	TotalRounds       int               `json:"total_rounds"`
	DrawingStrokes    StrokeHistory     `json:"drawing_strokes"`
	UsedWords         []string          `json:"used_words"`
	WordCategory      *string           `json:"word_category"`
}

// IsDrawer reports whether playerID is the current drawer
func (s *SessionState) IsDrawer(playerID string) bool {
	if s == nil || s.CurrentDrawerID == nil {
		return false
	}
	return *s.CurrentDrawerID == playerID
}

// ExpiresAt converts the epoch-seconds expiry into a time. ok is false when no timer is set.
func (s *SessionState) ExpiresAt() (time.Time, bool) {
	if s == nil || s.TimerExpiresAt == nil {
		return time.Time{}, false
	}
	return EpochSeconds(*s.TimerExpiresAt), true
}

// PlayerName returns the display name for id, or an empty string
func (s *SessionState) PlayerName(id string) string {
	if s == nil {
		return ""
	}
	return s.Players[id].Name
}

// EpochSeconds converts fractional unix seconds into a time.Time
func EpochSeconds(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}

// ChatEntry is one line of the chat log
type ChatEntry struct {
	Sender         string `json:"sender"`
	Message        string `json:"message"`
	IsCorrectGuess bool   `json:"isCorrectGuess"`
}

// SystemSender is the sender name used for locally synthesized chat lines
const SystemSender = "System"
