// Package surface defines the immediate-mode drawing surface shapes paint on.
package surface

import (
	"math"

	"github.com/gogpu/gg"

	"image-annotator/pkg/geometry"
)

// FillRule selects how path membership is decided.
type FillRule int

const (
	NonZero FillRule = iota
	EvenOdd
)

// Surface is a 2D immediate-mode raster surface. Coordinates are surface
// pixels, which are source-image pixels for every backend in this module.
//
// The current path survives Stroke and Fill, so a shape can stroke and then
// fill the same outline. StrokePath and FillPath paint a standalone path and
// leave the current path untouched.
type Surface interface {
	Size() (width, height int)
	Clear(region geometry.Rect)

	SetFillStyle(style string)
	SetStrokeStyle(style string)
	SetLineWidth(width float64)
	SetFillRule(rule FillRule)

	BeginPath()
	Rect(x, y, width, height float64)
	Arc(x, y, radius, startAngle, endAngle float64)
	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()
	Stroke()
	Fill()

	StrokePath(path *gg.Path)
	FillPath(path *gg.Path)
	IsPointInPath(path *gg.Path, x, y float64) bool
}

// Bounds returns the full extent of s.
func Bounds(s Surface) geometry.Rect {
	w, h := s.Size()
	return geometry.NewRect(0, 0, float64(w), float64(h))
}

// ClearAll wipes the whole surface.
func ClearAll(s Surface) {
	s.Clear(Bounds(s))
}

// Contains tests membership of (x, y) in path under rule.
func Contains(path *gg.Path, rule FillRule, x, y float64) bool {
	if path == nil {
		return false
	}
	w := path.Winding(gg.Pt(x, y))
	if rule == EvenOdd {
		return w%2 != 0
	}
	return w != 0
}

// pathState tracks the current path and pen the way a canvas context does.
type pathState struct {
	path *gg.Path
}

func (p *pathState) reset() {
	p.path = gg.NewPath()
}

func (p *pathState) current() *gg.Path {
	if p.path == nil {
		p.reset()
	}
	return p.path
}

func (p *pathState) rect(x, y, w, h float64) {
	p.current().Rectangle(x, y, w, h)
}

// arc joins the pen to the arc start with a line, as canvas contexts do.
func (p *pathState) arc(x, y, r, a1, a2 float64) {
	path := p.current()
	if path.HasCurrentPoint() {
		path.LineTo(x+r*math.Cos(a1), y+r*math.Sin(a1))
	}
	path.Arc(x, y, r, a1, a2)
}
