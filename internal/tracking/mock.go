package tracking

import (
	"fmt"
	"sync"

	"github.com/ayusman/vizzy/internal/gesture"
)

// MockSource is a test implementation of Source.
// Tests drive events through the MockStream returned by Stream.
type MockSource struct {
	mu      sync.Mutex
	streams map[int]*MockStream
	err     error
}

// NewMockSource creates a new MockSource instance.
func NewMockSource() *MockSource {
	return &MockSource{
		streams: make(map[int]*MockStream),
	}
}

// SetError sets the error returned by OpenGestureStream.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// OpenGestureStream returns a new MockStream for the body slot or the configured error.
func (m *MockSource) OpenGestureStream(bodyIndex int) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if bodyIndex < 0 || bodyIndex >= gesture.MaxBodies {
		return nil, fmt.Errorf("body index %d: %w", bodyIndex, ErrStreamUnavailable)
	}

	s := &MockStream{stream: newStream(bodyIndex)}
	m.streams[bodyIndex] = s
	return s, nil
}

// Stream returns the last stream opened for the body slot, or nil.
func (m *MockSource) Stream(bodyIndex int) *MockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streams[bodyIndex]
}

// MockStream is a Stream whose events are triggered by the test.
type MockStream struct {
	*stream
}

// AssignTrackingID fires the tracking-assigned event.
func (s *MockStream) AssignTrackingID(id ID) error {
	return s.assign(id)
}

// LoseTracking fires the tracking-lost event.
func (s *MockStream) LoseTracking() error {
	return s.lose()
}

// DeliverBatch announces a frame holding batch. It reports whether a
// handler received it; paused or untracked streams drop the frame.
func (s *MockStream) DeliverBatch(batch gesture.Batch) (bool, error) {
	return s.deliver(NewFrame(batch))
}
