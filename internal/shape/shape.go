// Package shape implements the annotation shapes drawn over a background image.
//
// A shape stores its geometry in the display space it was drawn in together
// with the geometry.Transform that was in effect, and derives source-image
// coordinates from that pair whenever they are needed.
package shape

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/gogpu/gg"
	"github.com/google/uuid"

	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

// Kind names a shape variant. The value doubles as the id prefix and the
// "name" field of the JSON dump.
type Kind string

const (
	KindRectangle Kind = "Rectangle"
	KindPolygon   Kind = "Polygon"
)

// PointRadius is the default radius, in display pixels, of pending polygon vertices.
const PointRadius = 4.0

// Appearance is the paint used for a shape.
type Appearance struct {
	FillStyle   string  `json:"fillStyle" yaml:"fill_style"`
	StrokeStyle string  `json:"strokeStyle" yaml:"stroke_style"`
	LineWidth   float64 `json:"lineWidth" yaml:"line_width"`
}

// DefaultAppearance is the paint given to new shapes when none is configured.
var DefaultAppearance = Appearance{
	FillStyle:   "rgba(173, 90, 46, 0.5)",
	StrokeStyle: "rgba(173, 90, 46)",
	LineWidth:   3,
}

// DefaultTemporaryAppearance is used for previews and hover highlights.
var DefaultTemporaryAppearance = Appearance{
	FillStyle:   "rgba(46, 129, 173, 0.5)",
	StrokeStyle: "rgba(46, 129, 173)",
	LineWidth:   3,
}

func (a Appearance) withDefaults() Appearance {
	if a.FillStyle == "" {
		a.FillStyle = DefaultAppearance.FillStyle
	}
	if a.StrokeStyle == "" {
		a.StrokeStyle = DefaultAppearance.StrokeStyle
	}
	if a.LineWidth == 0 {
		a.LineWidth = DefaultAppearance.LineWidth
	}
	return a
}

// Shape is the capability set shared by every annotation variant.
type Shape interface {
	ID() string
	Kind() Kind
	Transform() geometry.Transform

	// Draw paints the shape with its current appearance. With self set the
	// shape's own path is painted and kept for IsPointInside; otherwise an
	// equivalent path is built on the surface and nothing is kept.
	Draw(s surface.Surface, self bool)
	// IsPointInside reports whether surface point (x, y) is in the filled region.
	IsPointInside(s surface.Surface, x, y float64) bool

	Appearance() Appearance
	SetAppearance(a Appearance)
	// OriginalAppearance is the snapshot ResetAppearance restores.
	OriginalAppearance() Appearance
	SetOriginalAppearance(a Appearance)
	ResetAppearance()

	// MoveBy shifts the shape by a delta measured in surface pixels.
	MoveBy(delta geometry.Point2D)
	// Bounds is the axis-aligned extent in source-image pixels.
	Bounds() geometry.Rect

	CurrentCentre() (geometry.Point2D, bool)
	SetCurrentCentre(p geometry.Point2D)
	ClearCurrentCentre()

	json.Marshaler
}

// base holds what every variant shares.
type base struct {
	id         string
	kind       Kind
	transform  geometry.Transform
	appearance Appearance
	original   Appearance
	centre     *geometry.Point2D

	// outline is the registered hit-test region; nil means stale.
	outline *gg.Path
}

func newBase(kind Kind, tr geometry.Transform, a Appearance) base {
	if tr == nil {
		tr = geometry.ScaleTransform(1)
	}
	a = a.withDefaults()
	return base{
		id:         NewID(kind),
		kind:       kind,
		transform:  tr,
		appearance: a,
		original:   a,
	}
}

// NewID returns an opaque identifier for a new shape of kind.
func NewID(kind Kind) string {
	return fmt.Sprintf("%s-%s", kind, uuid.NewString())
}

func (b *base) ID() string                     { return b.id }
func (b *base) Kind() Kind                     { return b.kind }
func (b *base) Transform() geometry.Transform  { return b.transform }
func (b *base) Appearance() Appearance         { return b.appearance }
func (b *base) SetAppearance(a Appearance)     { b.appearance = a }
func (b *base) OriginalAppearance() Appearance { return b.original }
func (b *base) ResetAppearance()               { b.appearance = b.original }

func (b *base) SetOriginalAppearance(a Appearance) {
	b.original = a.withDefaults()
}

func (b *base) CurrentCentre() (geometry.Point2D, bool) {
	if b.centre == nil {
		return geometry.Point2D{}, false
	}
	return *b.centre, true
}

func (b *base) SetCurrentCentre(p geometry.Point2D) { b.centre = &p }
func (b *base) ClearCurrentCentre()                 { b.centre = nil }

func (b *base) applyStyle(s surface.Surface) {
	s.SetLineWidth(b.appearance.LineWidth)
	s.SetStrokeStyle(b.appearance.StrokeStyle)
	s.SetFillStyle(b.appearance.FillStyle)
}

// paint strokes then fills, either the registered outline or the surface path.
func (b *base) paint(s surface.Surface, self bool, build func(), outline func() *gg.Path) {
	s.BeginPath()
	b.applyStyle(s)
	if self {
		b.outline = outline()
		s.StrokePath(b.outline)
		s.FillPath(b.outline)
		return
	}
	build()
	s.Stroke()
	s.Fill()
}

func (b *base) hit(s surface.Surface, x, y float64, outline func() *gg.Path) bool {
	if b.outline == nil {
		b.outline = outline()
	}
	return s.IsPointInPath(b.outline, x, y)
}

// DrawTemporaryRectangle paints a drag preview. The rectangle is given in
// display space and may have a negative size.
func DrawTemporaryRectangle(s surface.Surface, r geometry.Rect, tr geometry.Transform, a Appearance) {
	if tr == nil {
		tr = geometry.ScaleTransform(1)
	}
	tl := tr.ToImage(r.TopLeft())
	br := tr.ToImage(r.BottomRight())
	s.BeginPath()
	s.SetLineWidth(a.LineWidth)
	s.SetStrokeStyle(a.StrokeStyle)
	s.SetFillStyle(a.FillStyle)
	s.Rect(tl.X, tl.Y, br.X-tl.X, br.Y-tl.Y)
	s.Stroke()
	s.Fill()
}

// DrawPoint paints a pending polygon vertex given in display space.
func DrawPoint(s surface.Surface, p geometry.Point2D, radius float64, tr geometry.Transform, a Appearance) {
	if tr == nil {
		tr = geometry.ScaleTransform(1)
	}
	c := tr.ToImage(p)
	s.BeginPath()
	s.SetLineWidth(a.LineWidth)
	s.SetStrokeStyle(a.StrokeStyle)
	s.SetFillStyle(a.FillStyle)
	s.Arc(c.X, c.Y, radius/tr.Factor(), 0, 2*math.Pi)
	s.Stroke()
	s.Fill()
}
