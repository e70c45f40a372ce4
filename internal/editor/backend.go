package editor

import (
	"image-annotator/internal/shape"
	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

// Mode names a drawing backend. The values are persisted in project files.
type Mode string

const (
	ModeCanvas   Mode = "Canvas"
	ModeDeepZoom Mode = "OpenSeaCanvas"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeCanvas || m == ModeDeepZoom }

// Backend is the surface pair and coordinate system the controller edits
// through. Storage holds committed shapes, Drawing holds in-progress work.
type Backend interface {
	Mode() Mode
	// Ready reports whether a background is loaded and events may be handled.
	Ready() bool
	// Resize sizes both surfaces to the background in source pixels.
	Resize(width, height int)

	Storage() surface.Surface
	Drawing() surface.Surface

	// Locate maps a screen point to display space and to surface pixels.
	Locate(screen geometry.Point2D) (display, surfacePt geometry.Point2D)
	// Transform is captured by newly created shapes.
	Transform() geometry.Transform

	Pan(dx, dy float64)
	Zoom(in bool, screen geometry.Point2D)

	// Sync is told the full shape list after every repaint.
	Sync(shapes []shape.Shape)
	// ToolChanged is told the tool after every transition.
	ToolChanged(t Tool)
}
