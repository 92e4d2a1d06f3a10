package canvas

import (
	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Replicator reproduces the authoritative drawing on its surface, either by replaying a full
// stroke history or by applying live points one at a time.
type Replicator struct {
	surface Surface

	// live is the anchor of the incremental path; replay keeps its own per-stroke anchor
	live *protocol.DrawPoint

	dropped int
}

func NewReplicator(surface Surface) *Replicator {
	return &Replicator{surface: surface}
}

// Replay clears the surface and redraws history from scratch. It also discards the live
// anchor, since the snapshot that carried history supersedes any partial stroke.
func (r *Replicator) Replay(history protocol.StrokeHistory) {
	r.surface.Clear()
	r.live = nil

	segments := 0
	for _, stroke := range history {
		var anchor *protocol.DrawPoint
		for i := range stroke {
			point := stroke[i]
			switch point.Action {
			case protocol.ActionStart:
				anchor = &point
			case protocol.ActionDraw:
				if anchor == nil {
					continue
				}
				r.surface.DrawSegment(toPoint(*anchor), toPoint(point), toStyle(point))
				anchor = &point
				segments++
			case protocol.ActionEnd, protocol.ActionClear:
				// signals never belong inside a stored stroke
				anchor = nil
			}
		}
	}

	log.Debug().
		Int("strokes", len(history)).
		Int("segments", segments).
		Msg("replayed stroke history")
}

// Apply renders one incremental point. A draw with no preceding start is dropped.
func (r *Replicator) Apply(point protocol.DrawPoint) {
	switch point.Action {
	case protocol.ActionStart:
		r.live = &point
	case protocol.ActionDraw:
		if r.live == nil {
			r.dropped++
			return
		}
		r.surface.DrawSegment(toPoint(*r.live), toPoint(point), toStyle(point))
		r.live = &point
	case protocol.ActionEnd:
		r.live = nil
	case protocol.ActionClear:
		r.surface.Clear()
		r.live = nil
	default:
		log.Warn().Str("action", string(point.Action)).Msg("ignoring draw point with unknown action")
	}
}

// DrawLocal renders a segment authored on this client. The author keeps its own anchor, so
// a snapshot replayed mid-stroke does not break the stroke in progress.
func (r *Replicator) DrawLocal(from, to protocol.DrawPoint) {
	r.surface.DrawSegment(toPoint(from), toPoint(to), toStyle(to))
}

// Reset wipes the surface and forgets the live anchor
func (r *Replicator) Reset() {
	r.surface.Clear()
	r.live = nil
}

// Dropped counts draw points discarded for lack of an anchor
func (r *Replicator) Dropped() int {
	return r.dropped
}

func toPoint(p protocol.DrawPoint) Point {
	return Point{X: p.X, Y: p.Y}
}

func toStyle(p protocol.DrawPoint) Style {
	return Style{Color: p.Color, Width: p.BrushSize}
}
