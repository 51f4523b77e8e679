package session

import (
	"context"
	"errors"

	"github.com/patrickwarner/adunits/internal/models"
)

// Session pairs a Controller with the Loop that serializes it. Its methods
// are safe for concurrent use.
type Session struct {
	loop *Loop
	ctrl *Controller
	done chan struct{}
}

// New creates a session. opts.Dispatch is replaced with the session loop.
// Run must be called for taps and callbacks to take effect.
func New(format models.AdFormat, opts Options) *Session {
	loop := NewLoop()
	opts.Dispatch = func(fn func()) { loop.Post(fn) }
	return &Session{loop: loop, ctrl: NewController(format, opts), done: make(chan struct{})}
}

// Run drives the session until ctx is cancelled, then releases the current
// ad handle.
func (s *Session) Run(ctx context.Context) error {
	err := s.loop.Run(ctx)
	if errors.Is(err, ErrLoopRunning) {
		return err
	}
	s.ctrl.Close()
	close(s.done)
	return err
}

// Tap queues a button tap. It reports false when the session has stopped.
func (s *Session) Tap() bool {
	return s.loop.Post(s.ctrl.Tap)
}

// State returns the current state as seen from the loop.
func (s *Session) State(ctx context.Context) (LoadingState, error) {
	var st LoadingState
	err := s.loop.Do(ctx, func() { st = s.ctrl.State() })
	return st, err
}

// HandleID returns the identifier of the currently owned handle.
func (s *Session) HandleID(ctx context.Context) (string, error) {
	var id string
	err := s.loop.Do(ctx, func() { id = s.ctrl.Handle().ID() })
	return id, err
}

// Format returns the session's ad format.
func (s *Session) Format() models.AdFormat { return s.ctrl.Format() }

// Done is closed once Run has released the session's handle.
func (s *Session) Done() <-chan struct{} { return s.done }
