package tracking

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ayusman/vizzy/internal/gesture"
)

// Replay event types.
const (
	EventAssigned = "assigned"
	EventLost     = "lost"
	EventFrame    = "frame"
)

// Event is one line of a recorded replay log.
type Event struct {
	AtMs       int64                          `json:"at_ms"`
	Body       int                            `json:"body"`
	Event      string                         `json:"event"`
	TrackingID ID                             `json:"tracking_id,omitempty"`
	Results    map[gesture.Name]gesture.Result `json:"results,omitempty"`
}

func (e Event) validate() error {
	if e.Body < 0 || e.Body >= gesture.MaxBodies {
		return fmt.Errorf("body %d out of range", e.Body)
	}
	if e.AtMs < 0 {
		return fmt.Errorf("negative offset %d", e.AtMs)
	}
	switch e.Event {
	case EventAssigned:
		if !e.TrackingID.Valid() {
			return errors.New("assigned event without tracking_id")
		}
	case EventLost, EventFrame:
	default:
		return fmt.Errorf("unknown event %q", e.Event)
	}
	return nil
}

// ReplaySource plays back a recorded event log as a Source.
type ReplaySource struct {
	events []Event

	mu      sync.Mutex
	streams map[int]*stream
}

// ParseReplay reads a JSON-lines replay log.
func ParseReplay(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var e Event
		if err := json.Unmarshal(text, &e); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return events, nil
}

// NewReplaySource creates a ReplaySource for the given events.
func NewReplaySource(events []Event) *ReplaySource {
	return &ReplaySource{
		events:  events,
		streams: make(map[int]*stream),
	}
}

// OpenReplayFile parses the replay log at path.
func OpenReplayFile(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()

	events, err := ParseReplay(f)
	if err != nil {
		return nil, err
	}
	return NewReplaySource(events), nil
}

// OpenGestureStream opens the stream for a body slot. Each slot has one stream
// at a time; a closed stream may be reopened.
func (r *ReplaySource) OpenGestureStream(bodyIndex int) (Stream, error) {
	if bodyIndex < 0 || bodyIndex >= gesture.MaxBodies {
		return nil, fmt.Errorf("body index %d: %w", bodyIndex, ErrStreamUnavailable)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.streams[bodyIndex]; ok && !s.Closed() {
		return nil, fmt.Errorf("body index %d already open: %w", bodyIndex, ErrStreamUnavailable)
	}

	s := newStream(bodyIndex)
	r.streams[bodyIndex] = s
	return s, nil
}

// Run dispatches the recorded events at their recorded offsets until the log
// ends or ctx is cancelled. With loop set, playback restarts from the first
// event and every open stream first loses tracking.
func (r *ReplaySource) Run(ctx context.Context, loop bool) error {
	if len(r.events) == 0 {
		return nil
	}

	for {
		start := time.Now()
		for _, e := range r.events {
			wait := time.Until(start.Add(time.Duration(e.AtMs) * time.Millisecond))
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			} else if err := ctx.Err(); err != nil {
				return err
			}

			r.dispatch(e)
		}

		if !loop {
			return nil
		}
		r.loseAll()
	}
}

func (r *ReplaySource) lookup(bodyIndex int) *stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[bodyIndex]
	if !ok || s.Closed() {
		return nil
	}
	return s
}

func (r *ReplaySource) dispatch(e Event) {
	s := r.lookup(e.Body)
	if s == nil {
		return
	}

	var err error
	switch e.Event {
	case EventAssigned:
		err = s.assign(e.TrackingID)
	case EventLost:
		err = s.lose()
	case EventFrame:
		batch := make(gesture.Batch, len(e.Results))
		for name, result := range e.Results {
			batch[s.resolve(name)] = result
		}
		_, err = s.deliver(NewFrame(batch))
	}

	if err != nil && !errors.Is(err, ErrStreamClosed) {
		log.Printf("Replay event %s for body %d failed: %v", e.Event, e.Body, err)
	}
}

func (r *ReplaySource) loseAll() {
	r.mu.Lock()
	streams := make([]*stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.Unlock()

	for _, s := range streams {
		if !s.TrackingID().Valid() {
			continue
		}
		if err := s.lose(); err != nil && !errors.Is(err, ErrStreamClosed) {
			log.Printf("Replay loop reset for body %d failed: %v", s.BodyIndex(), err)
		}
	}
}
