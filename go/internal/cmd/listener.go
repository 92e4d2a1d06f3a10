package main

import (
	"strings"

	"github.com/milena-rosa/pictionary/go/internal/session"
	"github.com/rs/zerolog/log"
)

// logListener reports what changed between views. Called from the session loop only.
type logListener struct {
	chatSeen  int
	round     int
	drawerID  string
	pending   string
	connected bool
	finished  bool
}

func newLogListener() *logListener {
	return &logListener{connected: true}
}

func (l *logListener) StateChanged(v session.View) {
	if len(v.Chat) < l.chatSeen {
		l.chatSeen = 0
	}
	for _, entry := range v.Chat[l.chatSeen:] {
		event := log.Info().Str("sender", entry.Sender)
		if entry.IsCorrectGuess {
			event = event.Bool("correct", true)
		}
		event.Msg(entry.Message)
	}
	l.chatSeen = len(v.Chat)

	if s := v.Session; s != nil {
		drawer := ""
		if s.CurrentDrawerID != nil {
			drawer = *s.CurrentDrawerID
		}
		if s.RoundNumber != l.round || drawer != l.drawerID {
			l.round = s.RoundNumber
			l.drawerID = drawer
			if s.IsGameStarted {
				log.Info().
					Int("round", s.RoundNumber).
					Int("total_rounds", s.TotalRounds).
					Str("drawer", s.PlayerName(drawer)).
					Bool("you_draw", v.IsDrawer).
					Msg("round started")
			}
		}
	}

	pending := strings.Join(v.PendingWords, ",")
	if pending != l.pending {
		l.pending = pending
		if pending != "" {
			log.Info().Strs("words", v.PendingWords).Msg("choose a word with /choose <word>")
		}
	}

	if v.Connected != l.connected {
		l.connected = v.Connected
		if !v.Connected {
			log.Warn().Str("room_id", v.RoomID).Msg("disconnected from game")
		}
	}

	if (v.Result != nil) != l.finished {
		l.finished = v.Result != nil
		if r := v.Result; r != nil {
			event := log.Info().Bool("tie", r.Tie)
			if !r.Tie {
				event = event.Str("winner", *r.WinnerName)
			}
			event.Interface("final_scores", r.FinalScores).Msg("game over")
		}
	}
}

// CountdownChanged logs every tenth second and the last five. Zero also comes from a disarm,
// so it is left to CountdownExpired.
func (l *logListener) CountdownChanged(remaining int) {
	if remaining > 0 && (remaining <= 5 || remaining%10 == 0) {
		log.Info().Int("remaining", remaining).Msg("countdown")
	}
}

func (l *logListener) CountdownExpired() {
	log.Info().Msg("time is up")
}
