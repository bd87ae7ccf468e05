package app

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ayusman/vizzy/internal/gesture"
	"github.com/ayusman/vizzy/internal/session"
	"github.com/ayusman/vizzy/internal/store"
	"github.com/ayusman/vizzy/internal/tracking"
)

// recordingSink keeps every published view.
type recordingSink struct {
	mu    sync.Mutex
	views []gesture.View
}

func (s *recordingSink) Publish(v gesture.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, v)
}

func (s *recordingSink) last() gesture.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[len(s.views)-1]
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// seededDatabase creates a gesture database holding the reference set.
func seededDatabase(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "gestures.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	if err := s.Seed(); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return dbPath
}

func newTestApp(t *testing.T, bodies int) (*App, *tracking.MockSource, *recordingSink) {
	t.Helper()

	src := tracking.NewMockSource()
	sink := &recordingSink{}
	a, err := New(Config{
		Source:       src,
		DatabasePath: seededDatabase(t),
		Bodies:       bodies,
		Sinks:        []Sink{sink},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		a.Close()
	})
	return a, src, sink
}

func TestNew_OpensSessionPerBody(t *testing.T) {
	a, src, sink := newTestApp(t, 0)

	if got := len(a.Sessions()); got != gesture.MaxBodies {
		t.Fatalf("len(Sessions()) = %d, want %d", got, gesture.MaxBodies)
	}
	if got := len(a.Gestures()); got != gesture.NumGestures {
		t.Errorf("len(Gestures()) = %d, want %d", got, gesture.NumGestures)
	}
	for i := 0; i < gesture.MaxBodies; i++ {
		if src.Stream(i) == nil {
			t.Errorf("no stream opened for body %d", i)
		}
	}

	// Every body starts with a "not tracked" view.
	if sink.count() != gesture.MaxBodies {
		t.Fatalf("published views = %d, want %d", sink.count(), gesture.MaxBodies)
	}
	if v := sink.last(); v.Tracked || v.Image != "Images/NotTracked.png" || v.SessionID == "" {
		t.Errorf("initial view = %+v, want untracked with session id", v)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Run("nil source", func(t *testing.T) {
		_, err := New(Config{DatabasePath: seededDatabase(t)})
		if !errors.Is(err, session.ErrConfiguration) {
			t.Errorf("New() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("too many bodies", func(t *testing.T) {
		_, err := New(Config{Source: tracking.NewMockSource(), DatabasePath: seededDatabase(t), Bodies: 7})
		if !errors.Is(err, session.ErrConfiguration) {
			t.Errorf("New() error = %v, want ErrConfiguration", err)
		}
	})

	t.Run("missing database", func(t *testing.T) {
		_, err := New(Config{
			Source:       tracking.NewMockSource(),
			DatabasePath: filepath.Join(t.TempDir(), "missing.db"),
		})
		if !errors.Is(err, store.ErrDatabaseLoad) {
			t.Errorf("New() error = %v, want ErrDatabaseLoad", err)
		}
	})

	t.Run("stream unavailable", func(t *testing.T) {
		src := tracking.NewMockSource()
		src.SetError(tracking.ErrStreamUnavailable)

		_, err := New(Config{Source: src, DatabasePath: seededDatabase(t)})
		if !errors.Is(err, tracking.ErrStreamUnavailable) {
			t.Errorf("New() error = %v, want ErrStreamUnavailable", err)
		}
	})
}

func TestApp_PublishesGestureViews(t *testing.T) {
	a, src, sink := newTestApp(t, 2)

	var mu sync.Mutex
	var recognized []gesture.Name
	a.RegisterGestureCallback(func(bodyIndex int, name gesture.Name) {
		mu.Lock()
		defer mu.Unlock()
		if bodyIndex != 1 {
			t.Errorf("callback body = %d, want 1", bodyIndex)
		}
		recognized = append(recognized, name)
	})

	stream := src.Stream(1)
	stream.AssignTrackingID(77)

	wave := gesture.Batch{gesture.Discrete(gesture.HandwaveLeft): {Detected: true, Confidence: 0.6}}
	stream.DeliverBatch(wave)
	stream.DeliverBatch(wave)

	v := sink.last()
	if v.BodyIndex != 1 || v.Active != string(gesture.HandwaveLeft) {
		t.Fatalf("last view = %+v, want body 1 hand wave", v)
	}
	if v.BodyColor != "Orange" {
		t.Errorf("BodyColor = %q, want Orange", v.BodyColor)
	}
	if v.SessionID != a.Sessions()[1].ID().String() {
		t.Errorf("SessionID = %q, want %q", v.SessionID, a.Sessions()[1].ID())
	}

	stream.LoseTracking()
	if v := sink.last(); v.Tracked || v.BodyColor != gesture.BodyColorUntracked {
		t.Errorf("view after loss = %+v, want untracked gray", v)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(recognized) != 1 || recognized[0] != gesture.HandwaveLeft {
		t.Errorf("recognized = %v, want [%s]", recognized, gesture.HandwaveLeft)
	}
}

func TestApp_SetEnabled(t *testing.T) {
	a, src, sink := newTestApp(t, 1)

	stream := src.Stream(0)
	stream.AssignTrackingID(5)

	a.SetEnabled(false)
	if a.IsEnabled() {
		t.Error("IsEnabled() = true, want false")
	}
	if !stream.Paused() {
		t.Error("disabling detection should pause tracked streams")
	}

	before := sink.count()
	stream.DeliverBatch(gesture.Batch{gesture.Discrete(gesture.Box): {Detected: true, Confidence: 1}})
	if sink.count() != before {
		t.Error("no views should be published while disabled")
	}

	a.SetEnabled(true)
	if stream.Paused() {
		t.Error("enabling detection should resume tracked streams")
	}
	stream.DeliverBatch(gesture.Batch{gesture.Discrete(gesture.Box): {Detected: true, Confidence: 1}})
	if sink.last().Active != string(gesture.Box) {
		t.Errorf("Active = %q, want box", sink.last().Active)
	}
}

func TestApp_DisabledHoldsNewBodies(t *testing.T) {
	a, src, sink := newTestApp(t, 2)

	var changes []bool
	a.RegisterEnabledCallback(func(enabled bool) {
		changes = append(changes, enabled)
	})

	a.SetEnabled(false)
	a.SetEnabled(false)

	first, second := src.Stream(0), src.Stream(1)
	first.AssignTrackingID(7)
	if got := a.Sessions()[0].Status(); got != session.StatusBoundPaused {
		t.Errorf("status after bind while disabled = %v, want %v", got, session.StatusBoundPaused)
	}

	before := sink.count()
	first.DeliverBatch(gesture.Batch{gesture.Discrete(gesture.Cool): {Detected: true, Confidence: 1}})
	if sink.count() != before {
		t.Error("no views should be published for a body acquired while disabled")
	}

	a.SetEnabled(true)
	if got := a.Sessions()[0].Status(); got != session.StatusBoundActive {
		t.Errorf("status after enable = %v, want %v", got, session.StatusBoundActive)
	}

	second.AssignTrackingID(8)
	if got := a.Sessions()[1].Status(); got != session.StatusBoundActive {
		t.Errorf("status after bind while enabled = %v, want %v", got, session.StatusBoundActive)
	}

	if len(changes) != 2 || changes[0] || !changes[1] {
		t.Errorf("enabled callbacks = %v, want [false true]", changes)
	}
}

func TestApp_ConcurrentStreamsAndToggles(t *testing.T) {
	a, src, sink := newTestApp(t, 3)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(body int) {
			defer wg.Done()
			stream := src.Stream(body)
			for n := 0; n < 20; n++ {
				stream.AssignTrackingID(tracking.ID(n + 1))
				stream.DeliverBatch(gesture.Batch{gesture.Discrete(gesture.Box): {Detected: n%2 == 0, Confidence: 0.5}})
				stream.LoseTracking()
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < 20; n++ {
			a.SetEnabled(n%2 == 1)
		}
	}()
	wg.Wait()

	ids := make(map[string]bool)
	for _, s := range a.Sessions() {
		ids[s.ID().String()] = true
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, v := range sink.views {
		if !ids[v.SessionID] {
			t.Fatalf("view for body %d has session id %q", v.BodyIndex, v.SessionID)
		}
	}
}

func TestApp_Close(t *testing.T) {
	a, src, _ := newTestApp(t, 3)

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if !src.Stream(i).Closed() {
			t.Errorf("stream %d not closed", i)
		}
	}
	for _, s := range a.Sessions() {
		if s.Status() != session.StatusClosed {
			t.Errorf("session %d status = %v, want closed", s.BodyIndex(), s.Status())
		}
	}
}
