package input

import (
	"errors"
	"fmt"

	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotDrawer = errors.New("local participant is not the drawer")
	ErrDisabled  = errors.New("drawing input is disabled")
)

const (
	DefaultColor     = "#000000"
	DefaultBrushSize = 5
)

// Sender is the outbound half of the transport
type Sender interface {
	Send(msg protocol.Outbound) error
}

// Renderer is the local view of the replication engine
type Renderer interface {
	DrawLocal(from, to protocol.DrawPoint)
	Apply(point protocol.DrawPoint)
}

// Style is the pen applied to points authored locally
type Style struct {
	Color     string
	BrushSize int
}

// Capture turns pointer gestures into outbound stroke events, rendering them locally as
// they are sent. Only the authorized drawer may draw.
type Capture struct {
	sender     Sender
	renderer   Renderer
	authorized func() bool

	style   Style
	enabled bool
	last    *protocol.DrawPoint
}

func NewCapture(sender Sender, renderer Renderer, authorized func() bool) *Capture {
	return &Capture{
		sender:     sender,
		renderer:   renderer,
		authorized: authorized,
		style:      Style{Color: DefaultColor, BrushSize: DefaultBrushSize},
		enabled:    true,
	}
}

func (c *Capture) SetStyle(style Style) {
	if style.Color == "" {
		style.Color = DefaultColor
	}
	if style.BrushSize <= 0 {
		style.BrushSize = DefaultBrushSize
	}
	c.style = style
}

func (c *Capture) Style() Style {
	return c.style
}

// Disable drops any stroke in progress without emitting end
func (c *Capture) Disable() {
	c.enabled = false
	c.last = nil
}

func (c *Capture) Enabled() bool {
	return c.enabled
}

// Drawing reports whether the pointer is down
func (c *Capture) Drawing() bool {
	return c.last != nil
}

func (c *Capture) PointerDown(x, y float64) error {
	if err := c.check(); err != nil {
		return err
	}
	point := c.point(x, y, protocol.ActionStart)
	if err := c.emit(point); err != nil {
		return err
	}
	c.renderer.Apply(point)
	c.last = &point
	return nil
}

// PointerMove is ignored unless the pointer is down
func (c *Capture) PointerMove(x, y float64) error {
	if c.last == nil {
		return nil
	}
	if err := c.check(); err != nil {
		c.last = nil
		return err
	}
	point := c.point(x, y, protocol.ActionDraw)
	if err := c.emit(point); err != nil {
		return err
	}
	c.renderer.DrawLocal(*c.last, point)
	c.last = &point
	return nil
}

func (c *Capture) PointerUp() error {
	return c.release("up")
}

func (c *Capture) PointerLeave() error {
	return c.release("leave")
}

func (c *Capture) PointerCancel() error {
	return c.release("cancel")
}

// Clear wipes the local surface first, then tells everyone else
func (c *Capture) Clear() error {
	if err := c.check(); err != nil {
		return err
	}
	c.last = nil
	point := c.point(0, 0, protocol.ActionClear)
	c.renderer.Apply(point)
	return c.emit(point)
}

func (c *Capture) release(gesture string) error {
	if c.last == nil {
		return nil
	}
	c.last = nil
	if err := c.check(); err != nil {
		log.Debug().Str("gesture", gesture).Err(err).Msg("stroke ended without authorization")
		return nil
	}
	point := c.point(0, 0, protocol.ActionEnd)
	c.renderer.Apply(point)
	return c.emit(point)
}

func (c *Capture) check() error {
	if !c.enabled {
		return ErrDisabled
	}
	if c.authorized == nil || !c.authorized() {
		return ErrNotDrawer
	}
	return nil
}

func (c *Capture) point(x, y float64, action protocol.Action) protocol.DrawPoint {
	return protocol.DrawPoint{
		X:         x,
		Y:         y,
		Color:     c.style.Color,
		BrushSize: c.style.BrushSize,
		Action:    action,
	}
}

func (c *Capture) emit(point protocol.DrawPoint) error {
	if err := c.sender.Send(protocol.DrawingData{Point: point}); err != nil {
		return fmt.Errorf("send %s point: %w", point.Action, err)
	}
	return nil
}
