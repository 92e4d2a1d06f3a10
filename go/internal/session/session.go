package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/milena-rosa/pictionary/go/internal/canvas"
	"github.com/milena-rosa/pictionary/go/internal/countdown"
	"github.com/milena-rosa/pictionary/go/internal/dispatch"
	"github.com/milena-rosa/pictionary/go/internal/input"
	"github.com/milena-rosa/pictionary/go/internal/protocol"
	"github.com/milena-rosa/pictionary/go/internal/transport"
	"github.com/rs/zerolog/log"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrUnknownWord   = errors.New("word was not offered")
)

// DialFunc opens the transport for a session. onClose must be handed to the transport so
// the session learns about unexpected closure.
type DialFunc func(ctx context.Context, onClose transport.CloseFunc) (transport.Transport, error)

// Mirror receives a copy of every inbound frame
type Mirror interface {
	Mirror(roomID string, env protocol.Envelope)
}

// Listener is called from the session loop after state changes. Implementations must not block.
type Listener interface {
	StateChanged(view View)
	CountdownChanged(remaining int)
	// CountdownExpired fires when a running countdown reaches zero on its own, never on disarm
	CountdownExpired()
}

type nopListener struct{}

func (nopListener) StateChanged(View)    {}
func (nopListener) CountdownChanged(int) {}
func (nopListener) CountdownExpired()    {}

type nopMirror struct{}

func (nopMirror) Mirror(string, protocol.Envelope) {}

// Options configures a session
type Options struct {
	RoomID string
	SelfID string

	// Width and Height size the raster canvas
	Width  int
	Height int

	// Surfaces receive every segment alongside the raster canvas
	Surfaces []canvas.Surface

	Clock    countdown.Clock
	Listener Listener
	Mirror   Mirror
}

// Session owns one game attendance: the transport, the derived state, the canvas and the
// countdown. All of them are touched only by the goroutine running Run.
type Session struct {
	roomID string
	selfID string

	transport  transport.Transport
	dispatcher *dispatch.Dispatcher
	state      dispatch.State
	raster     *canvas.RasterSurface
	replicator *canvas.Replicator
	countdown  *countdown.Countdown
	capture    *input.Capture
	listener   Listener
	mirror     Mirror

	commands chan command
	dropped  chan error
	stop     chan struct{}
	exited   chan struct{}

	stopOnce  sync.Once
	closeOnce sync.Once
	runOnce   sync.Once

	// set when the transport reported closure but buffered frames are still draining
	dropCause    error
	disconnected bool
}

type command struct {
	fn    func() error
	reply chan error
}

// Open dials the transport and prepares the session. Nothing is processed until Run.
func Open(ctx context.Context, opts Options, dial DialFunc) (*Session, error) {
	if opts.SelfID == "" {
		return nil, fmt.Errorf("self id is required")
	}
	if opts.Listener == nil {
		opts.Listener = nopListener{}
	}
	if opts.Mirror == nil {
		opts.Mirror = nopMirror{}
	}

	s := &Session{
		roomID:     opts.RoomID,
		selfID:     opts.SelfID,
		dispatcher: dispatch.NewDispatcher(opts.SelfID),
		state:      dispatch.NewState(),
		raster:     canvas.NewRasterSurface(opts.Width, opts.Height),
		countdown:  countdown.New(opts.Clock),
		listener:   opts.Listener,
		mirror:     opts.Mirror,
		commands:   make(chan command),
		dropped:    make(chan error, 1),
		stop:       make(chan struct{}),
		exited:     make(chan struct{}),
	}

	surfaces := append(canvas.MultiSurface{s.raster}, opts.Surfaces...)
	s.replicator = canvas.NewReplicator(surfaces)
	s.countdown.OnChange(s.listener.CountdownChanged)
	s.countdown.OnExpire(s.listener.CountdownExpired)

	t, err := dial(ctx, s.notifyDropped)
	if err != nil {
		return nil, fmt.Errorf("open session transport: %w", err)
	}
	s.transport = t
	s.capture = input.NewCapture(t, s.replicator, func() bool {
		return s.state.Connected && s.state.IsDrawer(s.selfID)
	})

	log.Info().
		Str("room_id", s.roomID).
		Str("player_id", s.selfID).
		Msg("session opened")

	return s, nil
}

// notifyDropped runs on a transport goroutine
func (s *Session) notifyDropped(err error) {
	if err == nil {
		err = errors.New("connection closed")
	}
	select {
	case s.dropped <- err:
	default:
	}
}

// Run processes events until ctx is done or Close is called. The countdown is torn down and
// the transport closed on return.
func (s *Session) Run(ctx context.Context) error {
	started := false
	s.runOnce.Do(func() { started = true })
	if !started {
		return fmt.Errorf("session already running")
	}
	defer close(s.exited)
	defer s.teardown()

	inbound := s.transport.Inbound()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stop:
			return nil

		case env, ok := <-inbound:
			if !ok {
				inbound = nil
				s.lost()
				continue
			}
			s.handleFrame(env)

		case cause := <-s.dropped:
			// frames already read keep priority; the inbound close finishes the drop
			s.dropCause = cause

		case <-s.countdown.Chan():
			s.countdown.Tick()

		case cmd := <-s.commands:
			cmd.reply <- cmd.fn()
		}
	}
}

// Close stops the loop and closes the transport. Safe to call repeatedly.
func (s *Session) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	var err error
	s.closeOnce.Do(func() { err = s.transport.Close() })
	return err
}

// Done is closed once Run has returned
func (s *Session) Done() <-chan struct{} {
	return s.exited
}

func (s *Session) teardown() {
	s.countdown.Disarm()
	s.capture.Disable()
	s.closeOnce.Do(func() {
		if err := s.transport.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close transport")
		}
	})
	log.Info().Str("room_id", s.roomID).Msg("session closed")
}

func (s *Session) handleFrame(env protocol.Envelope) {
	s.mirror.Mirror(s.roomID, env)

	msg, err := protocol.Decode(env)
	if err != nil {
		log.Warn().Err(err).Str("type", string(env.Type)).Msg("dropping undecodable frame")
		return
	}
	s.dispatch(msg)
}

func (s *Session) lost() {
	if s.disconnected {
		return
	}
	s.disconnected = true

	select {
	case <-s.stop:
		// closed on purpose
		return
	default:
	}

	cause := s.dropCause
	select {
	case cause = <-s.dropped:
	default:
	}
	reason := "connection closed"
	if cause != nil {
		reason = cause.Error()
	}
	s.capture.Disable()
	s.dispatch(protocol.Disconnected{Reason: reason})
}

func (s *Session) dispatch(msg protocol.Message) {
	next, effects := s.dispatcher.Dispatch(s.state, msg)
	s.state = next
	for _, effect := range effects {
		s.apply(effect)
	}
	// points only touch the surface, which observers read through CanvasPNG
	if _, ok := msg.(protocol.DrawingUpdate); ok {
		return
	}
	s.listener.StateChanged(s.view())
}

func (s *Session) apply(effect dispatch.Effect) {
	switch e := effect.(type) {
	case dispatch.ReplayStrokes:
		s.replicator.Replay(e.History)
	case dispatch.ApplyPoint:
		s.replicator.Apply(e.Point)
	case dispatch.ArmTimer:
		s.countdown.Arm(e.ExpiresAt)
	case dispatch.DisarmTimer:
		s.countdown.Disarm()
	}
}

// do runs fn on the loop and waits for its result
func (s *Session) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-s.exited:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current client view
func (s *Session) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func() error {
		v = s.view()
		return nil
	})
	return v, err
}

// CanvasPNG renders the current canvas
func (s *Session) CanvasPNG(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.do(ctx, func() error {
		var err error
		data, err = s.raster.PNG()
		return err
	})
	return data, err
}

// StartGame asks the server to start; the server only honors it from the host
func (s *Session) StartGame(ctx context.Context) error {
	return s.do(ctx, func() error {
		return s.send(protocol.StartGame{})
	})
}

// NextRound asks the server to advance; the server only honors it from the host
func (s *Session) NextRound(ctx context.Context) error {
	return s.do(ctx, func() error {
		return s.send(protocol.NextRound{})
	})
}

// ChooseWord picks one of the offered words
func (s *Session) ChooseWord(ctx context.Context, word string) error {
	word = strings.TrimSpace(word)
	return s.do(ctx, func() error {
		if !offered(s.state.PendingWords, word) {
			return fmt.Errorf("%w: %q", ErrUnknownWord, word)
		}
		if err := s.send(protocol.ChooseWord{Word: word}); err != nil {
			return err
		}
		s.dispatch(protocol.WordChosen{Word: word})
		return nil
	})
}

// Guess sends a chat line. Blank lines are ignored.
func (s *Session) Guess(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.do(ctx, func() error {
		return s.send(protocol.Guess{Message: text})
	})
}

func (s *Session) PointerDown(ctx context.Context, x, y float64) error {
	return s.do(ctx, func() error { return s.capture.PointerDown(x, y) })
}

func (s *Session) PointerMove(ctx context.Context, x, y float64) error {
	return s.do(ctx, func() error { return s.capture.PointerMove(x, y) })
}

func (s *Session) PointerUp(ctx context.Context) error {
	return s.do(ctx, s.capture.PointerUp)
}

func (s *Session) PointerLeave(ctx context.Context) error {
	return s.do(ctx, s.capture.PointerLeave)
}

func (s *Session) PointerCancel(ctx context.Context) error {
	return s.do(ctx, s.capture.PointerCancel)
}

// ClearCanvas wipes the drawing for everyone; drawer only
func (s *Session) ClearCanvas(ctx context.Context) error {
	return s.do(ctx, s.capture.Clear)
}

// SetStyle changes the pen for subsequent local points
func (s *Session) SetStyle(ctx context.Context, style input.Style) error {
	return s.do(ctx, func() error {
		s.capture.SetStyle(style)
		return nil
	})
}

func (s *Session) send(msg protocol.Outbound) error {
	if err := s.transport.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type(), err)
	}
	return nil
}

func offered(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}
