// Package session binds a gesture stream to one tracked body and publishes
// the body's gesture state to an observer.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/vizzy/internal/gesture"
	"github.com/ayusman/vizzy/internal/tracking"
	"github.com/google/uuid"
)

var (
	// ErrConfiguration is returned by New when a required collaborator is missing.
	ErrConfiguration = errors.New("invalid session configuration")
	// ErrInvalidTrackingID is returned when binding the sentinel tracking ID.
	ErrInvalidTrackingID = errors.New("invalid tracking id")
	// ErrClosed is returned when binding a closed session.
	ErrClosed = errors.New("session is closed")
)

// Observer receives gesture snapshots. Each call replaces the previous
// snapshot wholesale.
type Observer interface {
	OnStateChanged(s gesture.State)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s gesture.State)

// OnStateChanged calls f(s).
func (f ObserverFunc) OnStateChanged(s gesture.State) {
	f(s)
}

// Status is the lifecycle state of a Session.
type Status int

const (
	// StatusUnbound means no body is tracked and the stream is paused.
	StatusUnbound Status = iota
	// StatusBoundPaused means a body is tracked but frame delivery is held.
	StatusBoundPaused
	// StatusBoundActive means a body is tracked and frames are reduced.
	StatusBoundActive
	// StatusClosed is terminal.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusUnbound:
		return "unbound"
	case StatusBoundPaused:
		return "bound-paused"
	case StatusBoundActive:
		return "bound-active"
	case StatusClosed:
		return "closed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Config holds the collaborators of a Session.
type Config struct {
	Source    tracking.Source
	BodyIndex int
	Gestures  []gesture.Definition
	Observer  Observer
	// PauseOnBind leaves a newly bound session paused instead of active.
	PauseOnBind bool
}

func (c Config) validate() error {
	if c.Source == nil {
		return fmt.Errorf("%w: nil source", ErrConfiguration)
	}
	if c.Observer == nil {
		return fmt.Errorf("%w: nil observer", ErrConfiguration)
	}
	if f, ok := c.Observer.(ObserverFunc); ok && f == nil {
		return fmt.Errorf("%w: nil observer", ErrConfiguration)
	}
	if c.BodyIndex < 0 || c.BodyIndex >= gesture.MaxBodies {
		return fmt.Errorf("%w: body index %d out of range", ErrConfiguration, c.BodyIndex)
	}
	if len(c.Gestures) == 0 {
		return fmt.Errorf("%w: empty gesture set", ErrConfiguration)
	}
	return nil
}

// Session tracks the gestures of the body in one sensor slot.
//
// Stream events for a session are delivered one at a time. Pause, Resume
// and Close may be called from any goroutine. Observer calls are made in
// state order and never overlap; the observer may read from the session but
// must not call Close.
//
// Lock order is notifyMu then mu.
type Session struct {
	id         uuid.UUID
	bodyIndex  int
	stream     tracking.Stream
	observer   Observer
	registered map[gesture.Definition]struct{}

	notifyMu sync.Mutex

	mu          sync.Mutex
	trackingID  tracking.ID
	paused      bool
	pauseOnBind bool
	closed      bool
	state       gesture.State
}

// New opens the gesture stream for cfg.BodyIndex and returns an unbound session.
// Stream errors are returned wrapped, unchanged in kind.
func New(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	stream, err := cfg.Source.OpenGestureStream(cfg.BodyIndex)
	if err != nil {
		return nil, fmt.Errorf("open gesture stream for body %d: %w", cfg.BodyIndex, err)
	}

	registered := make(map[gesture.Definition]struct{}, len(cfg.Gestures))
	for _, def := range cfg.Gestures {
		registered[def] = struct{}{}
	}

	s := &Session{
		id:          uuid.New(),
		bodyIndex:   cfg.BodyIndex,
		stream:      stream,
		observer:    cfg.Observer,
		registered:  registered,
		paused:      true,
		pauseOnBind: cfg.PauseOnBind,
		state:       gesture.ReduceUntracked(),
	}

	stream.Attach(tracking.Handlers{
		OnTrackingIDAssigned: s.onTrackingIDAssigned,
		OnTrackingIDLost:     s.TrackingLost,
		OnFrameArrived:       s.onFrameArrived,
	})
	stream.SetPaused(true)
	stream.AddGestures(cfg.Gestures)

	log.Printf("Session %s opened for body %d with %d gestures", s.id, s.bodyIndex, len(cfg.Gestures))
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// BodyIndex returns the sensor body slot the session is bound to.
func (s *Session) BodyIndex() int {
	return s.bodyIndex
}

// TrackingID returns the bound tracking identity, or tracking.InvalidID.
func (s *Session) TrackingID() tracking.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackingID
}

// State returns the current gesture snapshot.
func (s *Session) State() gesture.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Paused reports whether frame delivery is held.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

func (s *Session) status() Status {
	switch {
	case s.closed:
		return StatusClosed
	case !s.trackingID.Valid():
		return StatusUnbound
	case s.paused:
		return StatusBoundPaused
	default:
		return StatusBoundActive
	}
}

// Bind assigns the tracking identity of the body to follow. Binding an
// unbound session starts frame delivery unless PauseOnBind is set;
// rebinding a bound session to a different identity keeps its pause
// state. Binding the current identity is a no-op.
func (s *Session) Bind(id tracking.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !id.Valid() {
		return ErrInvalidTrackingID
	}
	if id == s.trackingID {
		return nil
	}

	wasUnbound := !s.trackingID.Valid()
	s.trackingID = id
	s.stream.SetTrackingID(id)

	if wasUnbound && !s.pauseOnBind {
		s.paused = false
		s.stream.SetPaused(false)
	}

	log.Printf("Session %s bound body %d to tracking id %d (%s)", s.id, s.bodyIndex, id, s.status())
	return nil
}

// SetPauseOnBind sets whether the next bind from the unbound state leaves
// the session paused. A bound session keeps its current pause state.
func (s *Session) SetPauseOnBind(pause bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseOnBind = pause
}

// TrackingLost unbinds the session, pauses the stream and publishes the
// untracked snapshot.
func (s *Session) TrackingLost() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if s.trackingID.Valid() {
		log.Printf("Session %s lost tracking id %d for body %d", s.id, s.trackingID, s.bodyIndex)
	}
	s.trackingID = tracking.InvalidID
	s.paused = true
	s.stream.SetPaused(true)

	s.publish(gesture.ReduceUntracked())
}

// Pause holds frame delivery. Batches arriving while paused are dropped.
// It has no effect on an unbound session, which is already paused.
func (s *Session) Pause() {
	s.setPaused(true)
}

// Resume restarts frame delivery on a bound session.
func (s *Session) Resume() {
	s.setPaused(false)
}

func (s *Session) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.trackingID.Valid() || s.paused == paused {
		return
	}
	s.paused = paused
	s.stream.SetPaused(paused)
}

// OnDetectionBatch reduces batch into the current snapshot and notifies the
// observer if the snapshot changed. Batches are dropped unless the session
// is bound and active. Entries for gestures outside the registered set are
// ignored.
func (s *Session) OnDetectionBatch(batch gesture.Batch) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.status() != StatusBoundActive {
		s.mu.Unlock()
		return
	}

	s.publish(gesture.Reduce(s.state, s.filter(batch)))
}

// filter drops the batch entries of unregistered gestures.
func (s *Session) filter(batch gesture.Batch) gesture.Batch {
	out := make(gesture.Batch, len(batch))
	for def, result := range batch {
		if _, ok := s.registered[def]; ok {
			out[def] = result
		}
	}
	return out
}

// publish stores next and notifies the observer when it differs from the
// current snapshot. It must be called with s.notifyMu and s.mu held; it
// releases s.mu before calling the observer.
func (s *Session) publish(next gesture.State) {
	if next.Equal(s.state) {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	s.observer.OnStateChanged(next)
}

func (s *Session) onTrackingIDAssigned(id tracking.ID) {
	if err := s.Bind(id); err != nil && !errors.Is(err, ErrClosed) {
		log.Printf("Session %s: bind tracking id %d: %v", s.id, id, err)
	}
}

func (s *Session) onFrameArrived(f tracking.Frame) {
	batch, ok := f.AcquireBatch()
	if !ok {
		return
	}
	s.OnDetectionBatch(batch)
}

// Close detaches the session from its stream and releases the stream.
// No stream event reaches the session after Close returns. Close is
// idempotent; only the first call releases the stream.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.stream.Detach()
	s.stream.SetPaused(true)
	err := s.stream.Close()

	log.Printf("Session %s closed for body %d", s.id, s.bodyIndex)
	if err != nil {
		return fmt.Errorf("close gesture stream: %w", err)
	}
	return nil
}
