package gesture

// Flags holds one detected flag per recognized gesture, indexed by Priority.
type Flags [NumGestures]bool

// Get returns the flag for name. Unknown names are never flagged.
func (f Flags) Get(name Name) bool {
	i, ok := Index(name)
	return ok && f[i]
}

// Any reports whether at least one gesture is flagged.
func (f Flags) Any() bool {
	for _, v := range f {
		if v {
			return true
		}
	}
	return false
}

// first returns the highest priority flagged gesture, or "" if none.
func (f Flags) first() Name {
	for i, v := range f {
		if v {
			return Priority[i]
		}
	}
	return ""
}

// State is the aggregated gesture snapshot for one tracked body.
//
// State is a comparable value type: copies never alias, and two snapshots
// are equal exactly when every field is equal. Active is empty when no
// gesture is flagged; otherwise it is the highest priority flagged gesture.
type State struct {
	Tracked    bool
	Flags      Flags
	Active     Name
	Confidence float32
}

// HasActive reports whether a gesture is selected for display.
func (s State) HasActive() bool {
	return s.Active != ""
}

// Detected returns the flag for the named gesture.
func (s State) Detected(name Name) bool {
	return s.Flags.Get(name)
}

// Equal reports whether s and other hold the same values.
func (s State) Equal(other State) bool {
	return s == other
}
