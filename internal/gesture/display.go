package gesture

import "path"

// AssetDir is the directory holding the display images, relative to the web root.
const AssetDir = "Images"

// Display images for states without an active gesture.
const (
	ImageNotTracked = "NotTracked.png"
	ImageNoGesture  = "no_gesture.png"
)

// BodyColorUntracked is the color shown for a body that is not tracked.
const BodyColorUntracked = "Gray"

// bodyColors is indexed by body slot.
var bodyColors = [...]string{"Red", "Orange", "Green", "Blue", "Indigo", "Violet"}

// MaxBodies is the number of body slots the tracking sensor exposes.
const MaxBodies = len(bodyColors)

var images = map[Name]string{
	HandshakeLeft:  "hand_shake_left.png",
	HandshakeRight: "hand_shake_right.png",
	HandwaveLeft:   "hand_wave_left.png",
	HandwaveRight:  "hand_wave_right.png",
	Box:            "box.png",
	Cool:           "cool.png",
}

var labels = map[Name]string{
	HandshakeLeft:  "Handshake (left)",
	HandshakeRight: "Handshake (right)",
	HandwaveLeft:   "Hand wave (left)",
	HandwaveRight:  "Hand wave (right)",
	Box:            "Box",
	Cool:           "Cool",
}

// Label returns a human-readable label for name.
func (n Name) Label() string {
	if l, ok := labels[n]; ok {
		return l
	}
	return string(n)
}

// View is the display model of one body's gesture state.
type View struct {
	SessionID  string          `json:"session_id,omitempty"`
	BodyIndex  int             `json:"body_index"`
	BodyColor  string          `json:"body_color"`
	Tracked    bool            `json:"tracked"`
	Gestures   map[string]bool `json:"gestures"`
	Active     string          `json:"active,omitempty"`
	Label      string          `json:"label"`
	Image      string          `json:"image"`
	Confidence float32         `json:"confidence"`
}

// NewView builds the display model for body bodyIndex in state s.
func NewView(bodyIndex int, s State) View {
	v := View{
		BodyIndex:  bodyIndex,
		BodyColor:  BodyColor(bodyIndex, s.Tracked),
		Tracked:    s.Tracked,
		Gestures:   make(map[string]bool, NumGestures),
		Active:     string(s.Active),
		Image:      path.Join(AssetDir, Image(s)),
		Confidence: s.Confidence,
	}

	for i, name := range Priority {
		v.Gestures[string(name)] = s.Flags[i]
	}

	switch {
	case !s.Tracked:
		v.Label = "Not tracked"
	case s.HasActive():
		v.Label = s.Active.Label()
	default:
		v.Label = "No gesture"
	}

	return v
}

// Image returns the asset file name representing s.
func Image(s State) string {
	if !s.Tracked {
		return ImageNotTracked
	}
	if img, ok := images[s.Active]; ok {
		return img
	}
	return ImageNoGesture
}

// BodyColor returns the palette color for a body slot.
// Untracked bodies and out-of-range slots are gray.
func BodyColor(bodyIndex int, tracked bool) string {
	if !tracked || bodyIndex < 0 || bodyIndex >= len(bodyColors) {
		return BodyColorUntracked
	}
	return bodyColors[bodyIndex]
}
