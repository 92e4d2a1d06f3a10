package dispatch

import (
	"time"

	"github.com/milena-rosa/pictionary/go/internal/protocol"
)

// State is the client's derived view of one session. Values are treated as immutable:
// Dispatch returns a new State and never writes through the one it was given.
type State struct {
	Session      *protocol.SessionState
	Strokes      protocol.StrokeHistory
	Chat         []protocol.ChatEntry
	PendingWords []string
	Result       *Result
	Connected    bool
}

// Result is the outcome announced by GAME_OVER
type Result struct {
	WinnerID    *string
	WinnerName  *string
	FinalScores map[string]int
}

// Tie reports whether the game ended without a single winner. A tie carries no winner id;
// the server may still fill winner_name with a display label such as "No one (tie)".
func (r *Result) Tie() bool {
	return r == nil || r.WinnerID == nil || r.WinnerName == nil || *r.WinnerName == ""
}

// NewState returns the empty state of a freshly connected client
func NewState() State {
	return State{
		Strokes:      protocol.StrokeHistory{},
		Chat:         []protocol.ChatEntry{},
		PendingWords: nil,
		Connected:    true,
	}
}

// Effect is a side effect the owner of the state must carry out after a transition.
// The set is closed: ReplayStrokes, ApplyPoint, ArmTimer and DisarmTimer.
type Effect interface {
	isEffect()
}

// ReplayStrokes asks the replication engine to redraw History from scratch
type ReplayStrokes struct {
	History protocol.StrokeHistory
}

// ApplyPoint asks the replication engine to render one incremental point
type ApplyPoint struct {
	Point protocol.DrawPoint
}

// ArmTimer re-targets the countdown at ExpiresAt
type ArmTimer struct {
	ExpiresAt time.Time
}

// DisarmTimer stops the countdown and zeroes it
type DisarmTimer struct{}

func (ReplayStrokes) isEffect() {}
func (ApplyPoint) isEffect()    {}
func (ArmTimer) isEffect()      {}
func (DisarmTimer) isEffect()   {}

// IsDrawer reports whether playerID is the current drawer in this state
func (s State) IsDrawer(playerID string) bool {
	return s.Session.IsDrawer(playerID)
}

// Players returns the roster sorted by descending score, then name
func (s State) Players() []protocol.Player {
	if s.Session == nil {
		return nil
	}
	players := make([]protocol.Player, 0, len(s.Session.Players))
	for _, p := range s.Session.Players {
		players = append(players, p)
	}
	sortPlayers(players)
	return players
}
