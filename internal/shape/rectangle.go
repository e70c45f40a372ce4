package shape

import (
	"encoding/json"

	"github.com/gogpu/gg"

	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

// ScaledRect is a rectangle in whole source-image pixels.
type ScaledRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	RX     int `json:"rx"`
	RY     int `json:"ry"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rectangle is an axis-aligned zone.
type Rectangle struct {
	base
	rect geometry.Rect
}

// NewRectangle creates a rectangle from display-space geometry. A negative
// width or height is normalised so the stored size is never negative.
func NewRectangle(r geometry.Rect, tr geometry.Transform, a Appearance) *Rectangle {
	return &Rectangle{
		base: newBase(KindRectangle, tr, a),
		rect: geometry.NormalizeDrag(r.TopLeft(), r.Width, r.Height),
	}
}

// Rect returns the display-space geometry.
func (r *Rectangle) Rect() geometry.Rect { return r.rect }

// Scaled returns the geometry in source-image pixels.
func (r *Rectangle) Scaled() ScaledRect {
	tl := r.transform.ToImage(r.rect.TopLeft())
	br := r.transform.ToImage(r.rect.BottomRight())
	return ScaledRect{
		X:      geometry.Round(tl.X),
		Y:      geometry.Round(tl.Y),
		RX:     geometry.Round(br.X),
		RY:     geometry.Round(br.Y),
		Width:  geometry.Round(br.X - tl.X),
		Height: geometry.Round(br.Y - tl.Y),
	}
}

// Draw implements Shape.
func (r *Rectangle) Draw(s surface.Surface, self bool) {
	sc := r.Scaled()
	r.paint(s, self, func() {
		s.Rect(float64(sc.X), float64(sc.Y), float64(sc.Width), float64(sc.Height))
	}, r.path)
}

// IsPointInside implements Shape.
func (r *Rectangle) IsPointInside(s surface.Surface, x, y float64) bool {
	return r.hit(s, x, y, r.path)
}

// MoveBy implements Shape.
func (r *Rectangle) MoveBy(delta geometry.Point2D) {
	moved := geometry.MoveInImage(r.transform, []geometry.Point2D{r.rect.TopLeft()}, delta)
	r.rect.X, r.rect.Y = moved[0].X, moved[0].Y
	r.outline = nil
}

// Bounds implements Shape.
func (r *Rectangle) Bounds() geometry.Rect {
	tl := r.transform.ToImage(r.rect.TopLeft())
	br := r.transform.ToImage(r.rect.BottomRight())
	return geometry.RectFromCorners(tl, br)
}

func (r *Rectangle) path() *gg.Path {
	b := r.Bounds()
	p := gg.NewPath()
	p.Rectangle(b.X, b.Y, b.Width, b.Height)
	return p
}

type rectangleJSON struct {
	ID                 string     `json:"id"`
	Name               Kind       `json:"name"`
	X                  float64    `json:"x"`
	Y                  float64    `json:"y"`
	Width              float64    `json:"width"`
	Height             float64    `json:"height"`
	Scale              float64    `json:"scale"`
	Appearance
	OriginalAppearance Appearance `json:"originalAppearance"`
	Scaled             ScaledRect `json:"scaled"`
}

// MarshalJSON implements json.Marshaler.
func (r *Rectangle) MarshalJSON() ([]byte, error) {
	return json.Marshal(rectangleJSON{
		ID:                 r.id,
		Name:               r.kind,
		X:                  r.rect.X,
		Y:                  r.rect.Y,
		Width:              r.rect.Width,
		Height:             r.rect.Height,
		Scale:              r.transform.Factor(),
		Appearance:         r.appearance,
		OriginalAppearance: r.original,
		Scaled:             r.Scaled(),
	})
}
