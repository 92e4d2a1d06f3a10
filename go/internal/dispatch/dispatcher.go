package dispatch

import (
	"fmt"
	"sort"

	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	tieAnnouncement  = "Game over! It's a tie."
	lostConnection   = "Connection lost. Rejoin the room to keep playing."
	defaultLostCause = "connection closed"
)

// Dispatcher reduces inbound messages into State for one local participant
type Dispatcher struct {
	selfID string
}

func NewDispatcher(selfID string) *Dispatcher {
	return &Dispatcher{selfID: selfID}
}

// SelfID returns the local participant id
func (d *Dispatcher) SelfID() string {
	return d.selfID
}

// Dispatch applies one message to state and returns the next state plus the effects the
// caller must run, in order. It never blocks and never mutates state.
func (d *Dispatcher) Dispatch(state State, msg protocol.Message) (State, []Effect) {
	switch m := msg.(type) {
	case protocol.StateUpdate:
		return d.applySnapshot(state, m.State)

	case protocol.ChatMessage:
		state.Chat = appendChat(state.Chat, m.Entry)
		return state, nil

	case protocol.DrawingUpdate:
		// the drawer already rendered its own points optimistically
		if state.IsDrawer(d.selfID) {
			return state, nil
		}
		return state, []Effect{ApplyPoint{Point: m.Point}}

	case protocol.WordToDraw:
		if m.CurrentDrawerID != d.selfID {
			log.Debug().
				Str("drawer_id", m.CurrentDrawerID).
				Str("self_id", d.selfID).
				Msg("ignoring word offer addressed to another player")
			return state, nil
		}
		state.PendingWords = append([]string(nil), m.Words...)
		return state, nil

	case protocol.WordChosen:
		state.PendingWords = nil
		return state, nil

	case protocol.GameOver:
		return d.applyGameOver(state, m)

	case protocol.ServerError:
		state.Chat = appendChat(state.Chat, systemLine(m.Message))
		return state, nil

	case protocol.Disconnected:
		reason := m.Reason
		if reason == "" {
			reason = defaultLostCause
		}
		log.Warn().Str("reason", reason).Msg("session disconnected")
		state.Connected = false
		state.PendingWords = nil
		state.Chat = appendChat(state.Chat, systemLine(lostConnection))
		return state, []Effect{DisarmTimer{}}

	case protocol.Unknown:
		log.Warn().Str("type", string(m.Type)).Msg("ignoring unknown message type")
		return state, nil

	default:
		log.Warn().Str("message", fmt.Sprintf("%T", msg)).Msg("ignoring unhandled message")
		return state, nil
	}
}

func (d *Dispatcher) applySnapshot(state State, snapshot protocol.SessionState) (State, []Effect) {
	session := snapshot
	state.Session = &session

	strokes := snapshot.DrawingStrokes
	if strokes == nil {
		strokes = protocol.StrokeHistory{}
	}
	state.Strokes = strokes

	// an offer only makes sense while this client is still the drawer and no word is set
	if !session.IsDrawer(d.selfID) || session.SecretWord != nil {
		state.PendingWords = nil
	}
	if session.IsGameStarted {
		state.Result = nil
	}

	return state, []Effect{ReplayStrokes{History: strokes}, timerEffect(&session)}
}

func (d *Dispatcher) applyGameOver(state State, m protocol.GameOver) (State, []Effect) {
	var effects []Effect
	if m.State != nil {
		state, effects = d.applySnapshot(state, *m.State)
	}

	result := &Result{
		WinnerID:    m.WinnerID,
		WinnerName:  m.WinnerName,
		FinalScores: m.FinalScores,
	}
	if result.FinalScores == nil && state.Session != nil {
		result.FinalScores = scoresOf(state.Session)
	}
	state.Result = result
	state.PendingWords = nil
	state.Chat = appendChat(state.Chat, systemLine(announce(result)))

	log.Info().
		Bool("tie", result.Tie()).
		Int("players", len(result.FinalScores)).
		Msg("game over")

	if m.State == nil {
		// the round is over regardless of what the last snapshot said
		effects = append(effects, DisarmTimer{})
	}
	return state, effects
}

func timerEffect(session *protocol.SessionState) Effect {
	expiresAt, ok := session.ExpiresAt()
	if !ok {
		return DisarmTimer{}
	}
	return ArmTimer{ExpiresAt: expiresAt}
}

func announce(r *Result) string {
	if r.Tie() {
		return tieAnnouncement
	}
	return fmt.Sprintf("Game over! Winner: %s", *r.WinnerName)
}

func systemLine(message string) protocol.ChatEntry {
	return protocol.ChatEntry{Sender: protocol.SystemSender, Message: message}
}

// appendChat always copies so the caller's slice is never written through
func appendChat(chat []protocol.ChatEntry, entry protocol.ChatEntry) []protocol.ChatEntry {
	out := make([]protocol.ChatEntry, len(chat), len(chat)+1)
	copy(out, chat)
	return append(out, entry)
}

func scoresOf(session *protocol.SessionState) map[string]int {
	scores := make(map[string]int, len(session.Players))
	for id, p := range session.Players {
		scores[id] = p.Score
	}
	return scores
}

func sortPlayers(players []protocol.Player) {
	sort.Slice(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].Name < players[j].Name
	})
}
