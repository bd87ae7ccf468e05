// Package gesture provides the discrete gesture state model and the reducer
// that folds per-frame detection results into a displayable snapshot.
package gesture

// Kind represents the type of gesture stored in the gesture database.
type Kind string

const (
	// KindDiscrete represents a gesture classified as a single true/false event per frame.
	KindDiscrete Kind = "discrete"
	// KindContinuous represents a gesture reported as a progress value. Not reduced.
	KindContinuous Kind = "continuous"
)

// Name identifies a gesture as it appears in the gesture database.
type Name string

// Recognized gesture names.
const (
	Box            Name = "box"
	Cool           Name = "cool"
	HandshakeLeft  Name = "handshake_Left"
	HandshakeRight Name = "handshake_Right"
	HandwaveLeft   Name = "handwave_Left"
	HandwaveRight  Name = "handwave_Right"
)

// NumGestures is the number of recognized gestures.
const NumGestures = 6

// Priority lists the recognized gestures from highest to lowest display
// priority. When several gestures are flagged at once, the first one in
// this order is the active gesture.
var Priority = [NumGestures]Name{
	HandshakeLeft,
	HandshakeRight,
	HandwaveLeft,
	HandwaveRight,
	Box,
	Cool,
}

// Definition is the identity of a trackable gesture.
type Definition struct {
	Name Name
	Kind Kind
}

// Discrete returns a discrete Definition with the given name.
func Discrete(name Name) Definition {
	return Definition{Name: name, Kind: KindDiscrete}
}

// DefaultSet returns the six reference gestures in priority order.
func DefaultSet() []Definition {
	defs := make([]Definition, 0, NumGestures)
	for _, name := range Priority {
		defs = append(defs, Discrete(name))
	}
	return defs
}

// Index returns the position of name in Priority.
func Index(name Name) (int, bool) {
	for i, n := range Priority {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Known reports whether name is one of the recognized gestures.
func (n Name) Known() bool {
	_, ok := Index(n)
	return ok
}

// Result is the classifier output for one gesture in one frame.
// Confidence is only meaningful when Detected is true.
type Result struct {
	Detected   bool    `json:"detected"`
	Confidence float32 `json:"confidence"`
}

// Batch is one frame's worth of discrete gesture results.
type Batch map[Definition]Result
