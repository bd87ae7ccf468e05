package tracking

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/vizzy/internal/gesture"
)

const sampleReplay = `{"at_ms":0,"body":0,"event":"assigned","tracking_id":72057594037928000}
{"at_ms":1,"body":0,"event":"frame","results":{"box":{"detected":true,"confidence":0.4},"wave":{"detected":true,"confidence":1}}}

{"at_ms":2,"body":0,"event":"lost"}
{"at_ms":2,"body":3,"event":"assigned","tracking_id":9}
`

func TestParseReplay(t *testing.T) {
	events, err := ParseReplay(strings.NewReader(sampleReplay))
	if err != nil {
		t.Fatalf("ParseReplay() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}
	if events[0].TrackingID != 72057594037928000 {
		t.Errorf("TrackingID = %d, want 72057594037928000", events[0].TrackingID)
	}
	if r := events[1].Results[gesture.Box]; !r.Detected || r.Confidence != 0.4 {
		t.Errorf("box result = %+v, want detected with 0.4", r)
	}
}

func TestParseReplay_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed json", `{"at_ms":0,`},
		{"unknown event", `{"at_ms":0,"body":0,"event":"jump"}`},
		{"body out of range", `{"at_ms":0,"body":6,"event":"lost"}`},
		{"assigned without id", `{"at_ms":0,"body":0,"event":"assigned"}`},
		{"negative offset", `{"at_ms":-5,"body":0,"event":"lost"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseReplay(strings.NewReader(tt.input)); err == nil {
				t.Error("ParseReplay() error = nil, want error")
			}
		})
	}
}

func TestReplaySource_Run(t *testing.T) {
	events, err := ParseReplay(strings.NewReader(sampleReplay))
	if err != nil {
		t.Fatalf("ParseReplay() error = %v", err)
	}
	src := NewReplaySource(events)

	s, err := src.OpenGestureStream(0)
	if err != nil {
		t.Fatalf("OpenGestureStream() error = %v", err)
	}
	s.AddGestures(gesture.DefaultSet())

	var log []string
	var batches []gesture.Batch
	s.Attach(Handlers{
		OnTrackingIDAssigned: func(id ID) {
			log = append(log, "assigned")
			s.SetPaused(false)
		},
		OnTrackingIDLost: func() { log = append(log, "lost") },
		OnFrameArrived: func(f Frame) {
			log = append(log, "frame")
			if b, ok := f.AcquireBatch(); ok {
				batches = append(batches, b)
			}
		},
	})

	if err := src.Run(context.Background(), false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"assigned", "frame", "lost"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", log, want)
	}
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	if _, ok := batches[0][gesture.Discrete(gesture.Box)]; !ok {
		t.Error("box result should resolve to its registered definition")
	}
	if _, ok := batches[0][gesture.Discrete("wave")]; !ok {
		t.Error("unregistered names should pass through as discrete definitions")
	}
}

func TestReplaySource_OpenTwice(t *testing.T) {
	src := NewReplaySource(nil)

	s, err := src.OpenGestureStream(2)
	if err != nil {
		t.Fatalf("OpenGestureStream() error = %v", err)
	}
	if _, err := src.OpenGestureStream(2); !errors.Is(err, ErrStreamUnavailable) {
		t.Errorf("second OpenGestureStream() error = %v, want ErrStreamUnavailable", err)
	}

	s.Close()
	if _, err := src.OpenGestureStream(2); err != nil {
		t.Errorf("OpenGestureStream() after Close error = %v", err)
	}
}

func TestReplaySource_RunCancelled(t *testing.T) {
	src := NewReplaySource([]Event{{AtMs: 60_000, Body: 0, Event: EventLost}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := src.Run(ctx, true); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestReplaySource_LoopResetsTracking(t *testing.T) {
	src := NewReplaySource([]Event{
		{AtMs: 0, Body: 1, Event: EventAssigned, TrackingID: 4},
		{AtMs: 5, Body: 1, Event: EventFrame},
	})

	s, err := src.OpenGestureStream(1)
	if err != nil {
		t.Fatalf("OpenGestureStream() error = %v", err)
	}

	assigned, lost := 0, 0
	s.Attach(Handlers{
		OnTrackingIDAssigned: func(ID) { assigned++ },
		OnTrackingIDLost:     func() { lost++ },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if err := src.Run(ctx, true); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want context.DeadlineExceeded", err)
	}

	if assigned < 2 || lost < assigned-1 {
		t.Errorf("assigned = %d, lost = %d; want each pass to end with a loss", assigned, lost)
	}
}

func TestOpenReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.jsonl")
	if err := os.WriteFile(path, []byte(sampleReplay), 0644); err != nil {
		t.Fatalf("write replay: %v", err)
	}

	if _, err := OpenReplayFile(path); err != nil {
		t.Errorf("OpenReplayFile() error = %v", err)
	}
	if _, err := OpenReplayFile(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("OpenReplayFile(missing) error = nil, want error")
	}
}
