package canvas

import "sync"

// Point is a surface-local coordinate
type Point struct {
	X float64
	Y float64
}

// Style is the pen used for one segment
type Style struct {
	Color string
	Width int
}

// Surface is the drawing target owned by a Replicator. Nothing else writes to it.
type Surface interface {
	Clear()
	DrawSegment(from, to Point, style Style)
}

// Segment is one rendered line as seen by a RecordingSurface
type Segment struct {
	From  Point
	To    Point
	Style Style
}

// RecordingSurface keeps the visible segments in draw order. Clear drops them.
// It may be read from another goroutine while a replicator draws on it.
type RecordingSurface struct {
	mu       sync.Mutex
	segments []Segment
	clears   int
}

func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{segments: make([]Segment, 0)}
}

func (s *RecordingSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = s.segments[:0]
	s.clears++
}

func (s *RecordingSurface) DrawSegment(from, to Point, style Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, Segment{From: from, To: to, Style: style})
}

// Segments returns a copy of what is currently visible
func (s *RecordingSurface) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Clears counts how many times the surface was wiped
func (s *RecordingSurface) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}
