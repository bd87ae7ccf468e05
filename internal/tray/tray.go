// Package tray provides a system tray menu for the Vizzy gesture tracker.
//
// The menu mirrors the application's detection state: it offers a toggle,
// shows the most recent gesture of any body and links to the display page.
package tray

import (
	"fmt"
	"sync"

	"github.com/ayusman/vizzy/internal/gesture"
	"github.com/getlantern/systray"
)

// Tray is the menu bar front end of a running App.
type Tray struct {
	mu        sync.RWMutex
	enabled   bool
	lastBody  int
	lastName  gesture.Name
	onToggle  func(enabled bool)
	onDisplay func()
	onQuit    func()

	// nil until onReady has built the menu
	toggleItem *systray.MenuItem
	lastItem   *systray.MenuItem
}

// New returns a tray whose toggle starts in the given detection state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled:  enabled,
		lastBody: -1,
	}
}

// OnToggle sets the function called with the new state when the user flips detection.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDisplay sets the function called when the user asks for the display page.
func (t *Tray) OnDisplay(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDisplay = fn
}

// OnQuit sets the function called before the tray exits from its Quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run builds the menu and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Vizzy")
	systray.SetTooltip("Vizzy Gesture Tracker")

	// Titles come from the current state so a change made before the
	// menu existed is not lost.
	t.mu.Lock()
	t.toggleItem = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume gesture detection")
	systray.AddSeparator()
	t.lastItem = systray.AddMenuItem(lastGestureTitle(t.lastBody, t.lastName), "Most recent gesture")
	t.lastItem.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	display := systray.AddMenuItem("Open Display...", "Show the gesture display in a browser")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Quit Vizzy")

	go func() {
		for {
			select {
			case <-t.toggleItem.ClickedCh:
				t.handleToggle()
			case <-display.ClickedCh:
				t.call(func() func() { return t.onDisplay })
			case <-quit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// handleToggle flips the local state and reports it to the owner.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	enabled := !t.enabled
	t.setEnabledLocked(enabled)
	callback := t.onToggle
	t.mu.Unlock()

	// Outside the lock: the owner may call SetEnabled back.
	if callback != nil {
		callback(enabled)
	}
}

// call runs the callback returned by get, read under the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	fn := get()
	t.mu.RUnlock()

	if fn != nil {
		fn()
	}
}

// SetEnabled updates the toggle to a detection state changed elsewhere.
// It does not call the OnToggle function.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setEnabledLocked(enabled)
}

func (t *Tray) setEnabledLocked(enabled bool) {
	t.enabled = enabled
	if t.toggleItem != nil {
		t.toggleItem.SetTitle(toggleTitle(enabled))
	}
}

// SetLastGesture records the newest active gesture and shows it in the menu.
func (t *Tray) SetLastGesture(bodyIndex int, name gesture.Name) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastBody, t.lastName = bodyIndex, name
	if t.lastItem != nil {
		t.lastItem.SetTitle(lastGestureTitle(bodyIndex, name))
	}
}

// IsEnabled reports the detection state the toggle shows.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detection on"
	}
	return "○ Detection off"
}

// Body slots are shown one-based.
func lastGestureTitle(bodyIndex int, name gesture.Name) string {
	if name == "" || bodyIndex < 0 {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s (body %d)", name.Label(), bodyIndex+1)
}
