// Package app provides the main application logic for the Vizzy gesture tracker.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/vizzy/internal/gesture"
	"github.com/ayusman/vizzy/internal/session"
	"github.com/ayusman/vizzy/internal/store"
	"github.com/ayusman/vizzy/internal/tracking"
)

// Sink receives the display view of a body whenever its gesture state changes.
type Sink interface {
	Publish(view gesture.View)
}

// Config holds configuration options for the application.
type Config struct {
	Source       tracking.Source
	DatabasePath string
	// Bodies is the number of body slots to track (default: gesture.MaxBodies).
	Bodies int
	Sinks  []Sink
}

// App owns one gesture session per body slot and fans their snapshots out to the sinks.
type App struct {
	config    Config
	gestures  []gesture.Definition
	sessions  []*session.Session
	enabled   bool
	onGesture func(bodyIndex int, name gesture.Name)
	onEnabled func(enabled bool)
	mu        sync.RWMutex
}

// New loads the gesture set and opens a session for every body slot.
// Gesture database and stream errors are returned wrapped.
func New(config Config) (*App, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("%w: nil source", session.ErrConfiguration)
	}
	if config.Bodies <= 0 {
		config.Bodies = gesture.MaxBodies
	}
	if config.Bodies > gesture.MaxBodies {
		return nil, fmt.Errorf("%w: %d bodies exceeds %d slots", session.ErrConfiguration, config.Bodies, gesture.MaxBodies)
	}

	gestures, err := store.LoadGestureSet(config.DatabasePath)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d gestures from %s", len(gestures), config.DatabasePath)

	a := &App{
		config:   config,
		gestures: gestures,
		enabled:  true,
	}

	for i := 0; i < config.Bodies; i++ {
		s, err := session.New(session.Config{
			Source:    config.Source,
			BodyIndex: i,
			Gestures:  gestures,
			Observer:  a.observer(i),
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.mu.Lock()
		a.sessions = append(a.sessions, s)
		a.mu.Unlock()
		a.publish(i, s.State())
	}

	return a, nil
}

// observer returns the session observer for a body slot.
func (a *App) observer(bodyIndex int) session.Observer {
	var last gesture.Name
	return session.ObserverFunc(func(s gesture.State) {
		a.publish(bodyIndex, s)

		if s.Active == last {
			return
		}
		last = s.Active
		if s.HasActive() {
			a.mu.RLock()
			callback := a.onGesture
			a.mu.RUnlock()

			if callback != nil {
				callback(bodyIndex, s.Active)
			}
		}
	})
}

func (a *App) publish(bodyIndex int, s gesture.State) {
	view := gesture.NewView(bodyIndex, s)
	a.mu.RLock()
	if bodyIndex < len(a.sessions) {
		view.SessionID = a.sessions[bodyIndex].ID().String()
	}
	a.mu.RUnlock()
	for _, sink := range a.config.Sinks {
		sink.Publish(view)
	}
}

// RegisterGestureCallback sets the function called when a body's active
// gesture changes to a new gesture.
func (a *App) RegisterGestureCallback(fn func(bodyIndex int, name gesture.Name)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onGesture = fn
}

// RegisterEnabledCallback sets the function called after detection is
// enabled or disabled.
func (a *App) RegisterEnabledCallback(fn func(enabled bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEnabled = fn
}

// SetEnabled pauses or resumes gesture detection on every body. While
// detection is disabled, bodies acquired later stay paused.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	if a.enabled == enabled {
		a.mu.Unlock()
		return
	}
	a.enabled = enabled
	// Held across the loop so concurrent calls apply in order.
	for _, s := range a.sessions {
		s.SetPauseOnBind(!enabled)
		if enabled {
			s.Resume()
		} else {
			s.Pause()
		}
	}
	callback := a.onEnabled
	a.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}

	if enabled {
		log.Println("Gesture detection enabled")
	} else {
		log.Println("Gesture detection disabled")
	}
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Gestures returns the loaded gesture set.
func (a *App) Gestures() []gesture.Definition {
	return a.gestures
}

// Sessions returns the per-body sessions ordered by body index.
func (a *App) Sessions() []*session.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessions
}

// Close closes every session.
func (a *App) Close() error {
	a.mu.Lock()
	sessions := a.sessions
	a.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	log.Println("Gesture sessions closed")
	return errors.Join(errs...)
}
