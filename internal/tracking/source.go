// Package tracking defines the boundary to the body-tracking and gesture
// classification subsystem, and provides mock and replay implementations.
package tracking

import (
	"errors"

	"github.com/ayusman/vizzy/internal/gesture"
)

// ID is the opaque tracking identity the sensor assigns to a visible body.
type ID uint64

// InvalidID is the sentinel for "no body tracked".
const InvalidID ID = 0

// Valid reports whether id refers to a tracked body.
func (id ID) Valid() bool {
	return id != InvalidID
}

// ErrStreamUnavailable is returned when a gesture stream cannot be opened,
// typically because the sensor is not ready.
var ErrStreamUnavailable = errors.New("gesture stream unavailable")

// Frame is a gesture frame announced by a stream. The batch is pulled on
// demand; ok is false when the frame expired before it was acquired.
type Frame interface {
	AcquireBatch() (batch gesture.Batch, ok bool)
}

// Handlers receives the events of one gesture stream. Nil fields are skipped.
// A stream invokes its handlers from a single goroutine, one at a time.
type Handlers struct {
	OnTrackingIDAssigned func(id ID)
	OnTrackingIDLost     func()
	OnFrameArrived       func(f Frame)
}

// Source opens gesture streams for body slots.
type Source interface {
	// OpenGestureStream opens the gesture stream for a body slot.
	// Returns an error wrapping ErrStreamUnavailable if the sensor is not ready.
	OpenGestureStream(bodyIndex int) (Stream, error)
}

// Stream is a gesture stream bound to one body slot.
type Stream interface {
	BodyIndex() int

	// AddGestures registers the gestures the classifier evaluates.
	AddGestures(defs []gesture.Definition)

	TrackingID() ID
	SetTrackingID(id ID)

	// SetPaused stops or restarts frame delivery. Paused streams drop frames.
	SetPaused(paused bool)
	Paused() bool

	// Attach installs the event handlers, replacing any previous ones.
	Attach(h Handlers)

	// Detach removes the event handlers. Once Detach returns, no handler
	// invocation is started by the stream.
	Detach()

	// Close releases the stream. It is safe to call more than once.
	Close() error
}

type batchFrame struct {
	batch gesture.Batch
}

// AcquireBatch returns a copy of the frame's batch.
func (f batchFrame) AcquireBatch() (gesture.Batch, bool) {
	if f.batch == nil {
		return nil, false
	}
	out := make(gesture.Batch, len(f.batch))
	for def, r := range f.batch {
		out[def] = r
	}
	return out, true
}

// NewFrame wraps a batch as a Frame. A nil batch yields a frame that
// cannot be acquired.
func NewFrame(batch gesture.Batch) Frame {
	return batchFrame{batch: batch}
}
