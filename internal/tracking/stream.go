package tracking

import (
	"errors"
	"sync"

	"github.com/ayusman/vizzy/internal/gesture"
)

// ErrStreamClosed is returned when events are fed to a closed stream.
var ErrStreamClosed = errors.New("stream is closed")

// stream is the in-process Stream shared by MockSource and ReplaySource.
// Events are dispatched with dispatchMu held so that Detach waits for any
// running handler before returning.
type stream struct {
	bodyIndex int

	mu       sync.Mutex
	gestures []gesture.Definition
	id       ID
	paused   bool
	handlers Handlers
	attached bool
	closed   bool

	dispatchMu sync.Mutex
}

func newStream(bodyIndex int) *stream {
	return &stream{
		bodyIndex: bodyIndex,
		paused:    true,
	}
}

func (s *stream) BodyIndex() int {
	return s.bodyIndex
}

func (s *stream) AddGestures(defs []gesture.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures = append(s.gestures, defs...)
}

// Gestures returns the registered gesture definitions.
func (s *stream) Gestures() []gesture.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gesture.Definition, len(s.gestures))
	copy(out, s.gestures)
	return out
}

func (s *stream) TrackingID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *stream) SetTrackingID(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *stream) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

func (s *stream) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *stream) Attach(h Handlers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = h
	s.attached = true
}

func (s *stream) Detach() {
	s.mu.Lock()
	s.handlers = Handlers{}
	s.attached = false
	s.mu.Unlock()

	// Wait out a handler that may already be running.
	s.dispatchMu.Lock()
	s.dispatchMu.Unlock()
}

// Attached reports whether handlers are installed.
func (s *stream) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handlers = Handlers{}
	s.attached = false
	return nil
}

// Closed reports whether Close was called.
func (s *stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// resolve maps a reported gesture name to its registered definition.
// Unregistered names are reported as discrete gestures of that name.
func (s *stream) resolve(name gesture.Name) gesture.Definition {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, def := range s.gestures {
		if def.Name == name {
			return def
		}
	}
	return gesture.Discrete(name)
}

func (s *stream) assign(id ID) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.id = id
	fn := s.handlers.OnTrackingIDAssigned
	s.mu.Unlock()

	if fn != nil {
		fn(id)
	}
	return nil
}

func (s *stream) lose() error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.id = InvalidID
	fn := s.handlers.OnTrackingIDLost
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// deliver announces a frame. It reports whether the frame reached a handler.
func (s *stream) deliver(f Frame) (bool, error) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrStreamClosed
	}
	if s.paused || !s.id.Valid() {
		s.mu.Unlock()
		return false, nil
	}
	fn := s.handlers.OnFrameArrived
	s.mu.Unlock()

	if fn == nil {
		return false, nil
	}
	fn(f)
	return true, nil
}
