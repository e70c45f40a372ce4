package surface

import (
	"github.com/gogpu/gg"

	"image-annotator/pkg/geometry"
)

// OpKind names a painting operation captured by a Recorder.
type OpKind string

const (
	OpStroke OpKind = "stroke"
	OpFill   OpKind = "fill"
	OpClear  OpKind = "clear"
)

// Op is one captured painting operation.
type Op struct {
	Kind      OpKind
	Path      *gg.Path
	FillStyle string
	Stroke    string
	LineWidth float64
	Region    geometry.Rect
}

// Recorder is a Surface that keeps painted paths instead of pixels. The
// deep-zoom backend draws on it because the viewer renders the image itself,
// and tests use it to inspect what shapes painted.
type Recorder struct {
	width, height int

	pathState
	fill      string
	stroke    string
	lineWidth float64
	rule      FillRule

	ops []Op
}

// NewRecorder creates a Recorder with a nominal size.
func NewRecorder(width, height int) *Recorder {
	r := &Recorder{width: width, height: height, lineWidth: 1}
	r.reset()
	return r
}

// Resize changes the nominal size and drops every recorded op.
func (r *Recorder) Resize(width, height int) {
	r.width, r.height = width, height
	r.ops = nil
	r.reset()
}

// Ops returns the operations recorded since the last full clear.
func (r *Recorder) Ops() []Op {
	return append([]Op(nil), r.ops...)
}

// Count returns how many ops of kind were recorded.
func (r *Recorder) Count(kind OpKind) int {
	n := 0
	for _, op := range r.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// Size implements Surface.
func (r *Recorder) Size() (int, int) { return r.width, r.height }

// Clear implements Surface. Clearing the whole surface forgets prior ops.
func (r *Recorder) Clear(region geometry.Rect) {
	full := Bounds(r)
	if region.X <= full.X && region.Y <= full.Y &&
		region.X+region.Width >= full.Width && region.Y+region.Height >= full.Height {
		r.ops = nil
		return
	}
	r.ops = append(r.ops, Op{Kind: OpClear, Region: region})
}

// SetFillStyle implements Surface.
func (r *Recorder) SetFillStyle(style string) { r.fill = style }

// SetStrokeStyle implements Surface.
func (r *Recorder) SetStrokeStyle(style string) { r.stroke = style }

// SetLineWidth implements Surface.
func (r *Recorder) SetLineWidth(width float64) { r.lineWidth = width }

// SetFillRule implements Surface.
func (r *Recorder) SetFillRule(rule FillRule) { r.rule = rule }

// BeginPath implements Surface.
func (r *Recorder) BeginPath() { r.reset() }

// Rect implements Surface.
func (r *Recorder) Rect(x, y, width, height float64) { r.rect(x, y, width, height) }

// Arc implements Surface.
func (r *Recorder) Arc(x, y, radius, startAngle, endAngle float64) {
	r.arc(x, y, radius, startAngle, endAngle)
}

// MoveTo implements Surface.
func (r *Recorder) MoveTo(x, y float64) { r.current().MoveTo(x, y) }

// LineTo implements Surface.
func (r *Recorder) LineTo(x, y float64) { r.current().LineTo(x, y) }

// ClosePath implements Surface.
func (r *Recorder) ClosePath() { r.current().Close() }

// Stroke implements Surface.
func (r *Recorder) Stroke() { r.StrokePath(r.current()) }

// Fill implements Surface.
func (r *Recorder) Fill() { r.FillPath(r.current()) }

// StrokePath implements Surface.
func (r *Recorder) StrokePath(path *gg.Path) { r.record(OpStroke, path) }

// FillPath implements Surface.
func (r *Recorder) FillPath(path *gg.Path) { r.record(OpFill, path) }

// IsPointInPath implements Surface.
func (r *Recorder) IsPointInPath(path *gg.Path, x, y float64) bool {
	return Contains(path, r.rule, x, y)
}

func (r *Recorder) record(kind OpKind, path *gg.Path) {
	var snapshot *gg.Path
	if path != nil {
		snapshot = path.Clone()
	}
	r.ops = append(r.ops, Op{
		Kind:      kind,
		Path:      snapshot,
		FillStyle: r.fill,
		Stroke:    r.stroke,
		LineWidth: r.lineWidth,
	})
}
