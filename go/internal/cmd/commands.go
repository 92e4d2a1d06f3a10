package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/milena-rosa/pictionary/go/internal/input"
	"github.com/milena-rosa/pictionary/go/internal/session"
)

var errQuit = errors.New("quit")

// Controller is the part of a session the shell drives
type Controller interface {
	Snapshot(ctx context.Context) (session.View, error)
	StartGame(ctx context.Context) error
	NextRound(ctx context.Context) error
	ChooseWord(ctx context.Context, word string) error
	Guess(ctx context.Context, text string) error
	PointerDown(ctx context.Context, x, y float64) error
	PointerMove(ctx context.Context, x, y float64) error
	PointerUp(ctx context.Context) error
	ClearCanvas(ctx context.Context) error
	SetStyle(ctx context.Context, style input.Style) error
}

// shell turns stdin lines into session calls
type shell struct {
	ctl   Controller
	style input.Style
	out   io.Writer
}

func newShell(ctl Controller, style input.Style, out io.Writer) *shell {
	return &shell{ctl: ctl, style: style, out: out}
}

// execute runs one input line. Lines not starting with a slash are guesses.
func (sh *shell) execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return sh.ctl.Guess(ctx, line)
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "start":
		return sh.ctl.StartGame(ctx)
	case "next":
		return sh.ctl.NextRound(ctx)
	case "choose":
		if rest == "" {
			return fmt.Errorf("usage: /choose <word>")
		}
		return sh.ctl.ChooseWord(ctx, rest)
	case "clear":
		return sh.ctl.ClearCanvas(ctx)
	case "draw":
		points, err := parsePoints(rest)
		if err != nil {
			return err
		}
		return sh.draw(ctx, points)
	case "color":
		if rest == "" {
			return fmt.Errorf("usage: /color <#rrggbb>")
		}
		sh.style.Color = rest
		return sh.ctl.SetStyle(ctx, sh.style)
	case "brush":
		size, err := strconv.Atoi(rest)
		if err != nil || size <= 0 {
			return fmt.Errorf("usage: /brush <size>")
		}
		sh.style.BrushSize = size
		return sh.ctl.SetStyle(ctx, sh.style)
	case "state":
		view, err := sh.ctl.Snapshot(ctx)
		if err != nil {
			return err
		}
		printView(sh.out, view)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command /%s", name)
	}
}

// draw replays points as one stroke
func (sh *shell) draw(ctx context.Context, points [][2]float64) error {
	if err := sh.ctl.PointerDown(ctx, points[0][0], points[0][1]); err != nil {
		return err
	}
	for _, p := range points[1:] {
		if err := sh.ctl.PointerMove(ctx, p[0], p[1]); err != nil {
			return err
		}
	}
	return sh.ctl.PointerUp(ctx)
}

// parsePoints reads "x,y x,y ..." into coordinates
func parsePoints(s string) ([][2]float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("usage: /draw x,y [x,y ...]")
	}

	points := make([][2]float64, 0, len(fields))
	for _, f := range fields {
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf("invalid point %q", f)
		}
		x, err := strconv.ParseFloat(xs, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", f, err)
		}
		y, err := strconv.ParseFloat(ys, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", f, err)
		}
		points = append(points, [2]float64{x, y})
	}
	return points, nil
}

func printView(w io.Writer, v session.View) {
	fmt.Fprintf(w, "room %s as %s", v.RoomID, v.SelfID)
	if !v.Connected {
		fmt.Fprint(w, " (disconnected)")
	}
	fmt.Fprintln(w)

	if s := v.Session; s != nil {
		fmt.Fprintf(w, "round %d/%d, %ds left", s.RoundNumber, s.TotalRounds, v.Remaining)
		if v.IsDrawer && s.SecretWord != nil {
			fmt.Fprintf(w, ", drawing %q", *s.SecretWord)
		} else if hint := v.Hint(); hint != "" {
			fmt.Fprintf(w, ", word %s", hint)
		}
		fmt.Fprintln(w)
	}
	if len(v.PendingWords) > 0 {
		fmt.Fprintf(w, "choose one: %s\n", strings.Join(v.PendingWords, ", "))
	}
	for i, p := range v.Players {
		fmt.Fprintf(w, "%d. %s %d\n", i+1, p.Name, p.Score)
	}
	if r := v.Result; r != nil {
		if r.Tie {
			fmt.Fprintln(w, "game over: tie")
		} else {
			fmt.Fprintf(w, "game over: %s wins\n", *r.WinnerName)
		}
		ids := make([]string, 0, len(r.FinalScores))
		for id := range r.FinalScores {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "  %s %d\n", id, r.FinalScores[id])
		}
	}
}
