package shape

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gogpu/gg"

	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

// MinPolygonPoints is the smallest number of vertices a committed polygon has.
const MinPolygonPoints = 3

// Polygon is a free-form closed zone.
type Polygon struct {
	base
	points []geometry.Point2D
}

// NewPolygon creates a polygon from display-space vertices. It returns false
// when fewer than MinPolygonPoints are given.
func NewPolygon(points []geometry.Point2D, tr geometry.Transform, a Appearance) (*Polygon, bool) {
	if len(points) < MinPolygonPoints {
		return nil, false
	}
	return &Polygon{
		base:   newBase(KindPolygon, tr, a),
		points: append([]geometry.Point2D(nil), points...),
	}, true
}

// Points returns a copy of the display-space vertices.
func (p *Polygon) Points() []geometry.Point2D {
	return append([]geometry.Point2D(nil), p.points...)
}

// ScaledPoints returns the vertices in source-image pixels, unrounded.
func (p *Polygon) ScaledPoints() []geometry.Point2D {
	out := make([]geometry.Point2D, len(p.points))
	for i, pt := range p.points {
		out[i] = p.transform.ToImage(pt)
	}
	return out
}

// RoundedPoints returns the vertices in whole source-image pixels.
func (p *Polygon) RoundedPoints() []geometry.PointInt {
	scaled := p.ScaledPoints()
	out := make([]geometry.PointInt, len(scaled))
	for i, pt := range scaled {
		out[i] = pt.Round()
	}
	return out
}

// PointsString renders the rounded vertices as space-separated "x,y" pairs.
func (p *Polygon) PointsString() string {
	pairs := make([]string, 0, len(p.points))
	for _, pt := range p.RoundedPoints() {
		pairs = append(pairs, fmt.Sprintf("%d,%d", pt.X, pt.Y))
	}
	return strings.Join(pairs, " ")
}

// Draw implements Shape.
func (p *Polygon) Draw(s surface.Surface, self bool) {
	scaled := p.ScaledPoints()
	p.paint(s, self, func() {
		s.MoveTo(scaled[0].X, scaled[0].Y)
		for _, pt := range scaled[1:] {
			s.LineTo(pt.X, pt.Y)
		}
		s.ClosePath()
	}, p.path)
}

// IsPointInside implements Shape.
func (p *Polygon) IsPointInside(s surface.Surface, x, y float64) bool {
	return p.hit(s, x, y, p.path)
}

// MoveBy implements Shape.
func (p *Polygon) MoveBy(delta geometry.Point2D) {
	p.points = geometry.MoveInImage(p.transform, p.points, delta)
	p.outline = nil
}

// Bounds implements Shape.
func (p *Polygon) Bounds() geometry.Rect {
	return geometry.BoundingBox(p.ScaledPoints())
}

func (p *Polygon) path() *gg.Path {
	scaled := p.ScaledPoints()
	path := gg.NewPath()
	path.MoveTo(scaled[0].X, scaled[0].Y)
	for _, pt := range scaled[1:] {
		path.LineTo(pt.X, pt.Y)
	}
	path.Close()
	return path
}

type polygonScaledJSON struct {
	Points       []geometry.PointInt `json:"points"`
	PointsString string              `json:"pointsString"`
}

type polygonJSON struct {
	ID                 string             `json:"id"`
	Name               Kind               `json:"name"`
	Points             []geometry.Point2D `json:"points"`
	Scale              float64            `json:"scale"`
	Appearance
	OriginalAppearance Appearance        `json:"originalAppearance"`
	Scaled             polygonScaledJSON `json:"scaled"`
}

// MarshalJSON implements json.Marshaler.
func (p *Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(polygonJSON{
		ID:                 p.id,
		Name:               p.kind,
		Points:             p.points,
		Scale:              p.transform.Factor(),
		Appearance:         p.appearance,
		OriginalAppearance: p.original,
		Scaled: polygonScaledJSON{
			Points:       p.RoundedPoints(),
			PointsString: p.PointsString(),
		},
	})
}
