package session

import "github.com/milena-rosa/pictionary/go/internal/protocol"

// View is a read-only copy of the client state handed to observers outside the loop
type View struct {
	RoomID       string                 `json:"room_id"`
	SelfID       string                 `json:"self_id"`
	Connected    bool                   `json:"connected"`
	IsDrawer     bool                   `json:"is_drawer"`
	Remaining    int                    `json:"remaining"`
	Session      *protocol.SessionState `json:"session,omitempty"`
	Players      []protocol.Player      `json:"players"`
	Chat         []protocol.ChatEntry   `json:"chat"`
	PendingWords []string               `json:"pending_words,omitempty"`
	Result       *ResultView            `json:"result,omitempty"`
	Strokes      int                    `json:"strokes"`
	DroppedDraws int                    `json:"dropped_draws"`
}

// ResultView is the end-of-game outcome
type ResultView struct {
	Tie         bool           `json:"tie"`
	WinnerID    *string        `json:"winner_id,omitempty"`
	WinnerName  *string        `json:"winner_name,omitempty"`
	FinalScores map[string]int `json:"final_scores"`
}

func (s *Session) view() View {
	state := s.state
	v := View{
		RoomID:       s.roomID,
		SelfID:       s.selfID,
		Connected:    state.Connected,
		IsDrawer:     state.IsDrawer(s.selfID),
		Remaining:    s.countdown.Remaining(),
		Session:      state.Session,
		Players:      state.Players(),
		Chat:         append([]protocol.ChatEntry(nil), state.Chat...),
		PendingWords: append([]string(nil), state.PendingWords...),
		Strokes:      len(state.Strokes),
		DroppedDraws: s.replicator.Dropped(),
	}
	if r := state.Result; r != nil {
		v.Result = &ResultView{
			Tie:         r.Tie(),
			WinnerID:    r.WinnerID,
			WinnerName:  r.WinnerName,
			FinalScores: r.FinalScores,
		}
	}
	return v
}

// Hint returns the masked word shown to guessers
func (v View) Hint() string {
	if v.Session == nil || v.Session.GuessedWordHint == nil {
		return ""
	}
	return *v.Session.GuessedWordHint
}
