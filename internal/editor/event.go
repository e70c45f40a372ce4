package editor

import "image-annotator/pkg/geometry"

// EventKind is the pointer event type.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	// PointerLeave fires when the pointer leaves the drawing area.
	PointerLeave
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerLeave:
		return "leave"
	default:
		return "unknown"
	}
}

// Button bits, as in the DOM MouseEvent.buttons field.
const (
	ButtonPrimary   = 1
	ButtonSecondary = 2
)

// Event is a pointer event in screen pixels relative to the editor area.
type Event struct {
	Kind    EventKind
	X, Y    float64
	Buttons int
	Ctrl    bool
}

// Screen returns the event position.
func (e Event) Screen() geometry.Point2D { return geometry.Pt(e.X, e.Y) }

// Primary reports whether the primary button is held.
func (e Event) Primary() bool { return e.Buttons&ButtonPrimary != 0 }

// Secondary reports whether the secondary button is held.
func (e Event) Secondary() bool { return e.Buttons&ButtonSecondary != 0 }

// Down builds a primary-button press at (x, y).
func Down(x, y float64) Event { return Event{Kind: PointerDown, X: x, Y: y, Buttons: ButtonPrimary} }

// Drag builds a move with the primary button held.
func Drag(x, y float64) Event { return Event{Kind: PointerMove, X: x, Y: y, Buttons: ButtonPrimary} }

// Move builds a hover move with no buttons held.
func Move(x, y float64) Event { return Event{Kind: PointerMove, X: x, Y: y} }

// Up builds a primary-button release.
func Up(x, y float64) Event { return Event{Kind: PointerUp, X: x, Y: y} }

// Leave builds a leave event.
func Leave(x, y float64) Event { return Event{Kind: PointerLeave, X: x, Y: y} }
