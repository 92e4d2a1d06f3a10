package canvas

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// RasterSurface renders segments into an RGBA bitmap with round caps, the way a browser
// canvas does with lineCap = "round".
type RasterSurface struct {
	ctx        *gg.Context
	background string
}

// NewRasterSurface creates a white surface. Non-positive sizes fall back to the defaults.
func NewRasterSurface(width, height int) *RasterSurface {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	s := &RasterSurface{ctx: gg.NewContext(width, height), background: "#ffffff"}
	s.Clear()
	return s
}

func (s *RasterSurface) Clear() {
	s.ctx.SetHexColor(s.background)
	s.ctx.Clear()
}

func (s *RasterSurface) DrawSegment(from, to Point, style Style) {
	width := style.Width
	if width <= 0 {
		width = 1
	}
	s.ctx.SetHexColor(style.Color)
	s.ctx.SetLineWidth(float64(width))
	s.ctx.SetLineCapRound()
	s.ctx.SetLineJoinRound()
	s.ctx.DrawLine(from.X, from.Y, to.X, to.Y)
	s.ctx.Stroke()
}

// Image exposes the rendered bitmap for reading
func (s *RasterSurface) Image() image.Image {
	return s.ctx.Image()
}

func (s *RasterSurface) EncodePNG(w io.Writer) error {
	if err := s.ctx.EncodePNG(w); err != nil {
		return fmt.Errorf("encode canvas png: %w", err)
	}
	return nil
}

// PNG renders the surface to an in-memory PNG
func (s *RasterSurface) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MultiSurface fans every call out to several surfaces in order
type MultiSurface []Surface

func (m MultiSurface) Clear() {
	for _, s := range m {
		s.Clear()
	}
}

func (m MultiSurface) DrawSegment(from, to Point, style Style) {
	for _, s := range m {
		s.DrawSegment(from, to, style)
	}
}
