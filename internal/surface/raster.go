package surface

import (
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/gg"

	"image-annotator/pkg/colorutil"
	"image-annotator/pkg/geometry"
)

// Raster is a Surface backed by a gg software context.
type Raster struct {
	ctx    *gg.Context
	logger *slog.Logger

	pathState
	fill      color.NRGBA
	stroke    color.NRGBA
	lineWidth float64
	rule      FillRule
}

// NewRaster creates a transparent raster of the given size.
func NewRaster(width, height int, logger *slog.Logger) *Raster {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Raster{
		ctx:       gg.NewContext(max(width, 1), max(height, 1)),
		logger:    logger,
		fill:      colorutil.Fallback,
		stroke:    colorutil.Fallback,
		lineWidth: 1,
	}
	r.reset()
	return r
}

// Resize reallocates the pixel buffer. Existing content is discarded.
func (r *Raster) Resize(width, height int) error {
	if err := r.ctx.Resize(max(width, 1), max(height, 1)); err != nil {
		return err
	}
	r.ctx.Clear()
	r.reset()
	return nil
}

// Image exposes the rendered pixels.
func (r *Raster) Image() image.Image {
	return r.ctx.Image()
}

// Close releases renderer resources.
func (r *Raster) Close() error {
	return r.ctx.Close()
}

// Size implements Surface.
func (r *Raster) Size() (int, int) {
	return r.ctx.Width(), r.ctx.Height()
}

// Clear implements Surface.
func (r *Raster) Clear(region geometry.Rect) {
	w, h := r.Size()
	x0 := max(0, int(math.Floor(region.X)))
	y0 := max(0, int(math.Floor(region.Y)))
	x1 := min(w, int(math.Ceil(region.X+region.Width)))
	y1 := min(h, int(math.Ceil(region.Y+region.Height)))
	if x0 == 0 && y0 == 0 && x1 == w && y1 == h {
		r.ctx.Clear()
		return
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			r.ctx.SetPixel(x, y, gg.Transparent)
		}
	}
}

// SetFillStyle implements Surface.
func (r *Raster) SetFillStyle(style string) {
	r.fill = r.parse(style)
}

// SetStrokeStyle implements Surface.
func (r *Raster) SetStrokeStyle(style string) {
	r.stroke = r.parse(style)
}

// SetLineWidth implements Surface.
func (r *Raster) SetLineWidth(width float64) {
	r.lineWidth = width
}

// SetFillRule implements Surface.
func (r *Raster) SetFillRule(rule FillRule) {
	r.rule = rule
}

// BeginPath implements Surface.
func (r *Raster) BeginPath() { r.reset() }

// Rect implements Surface.
func (r *Raster) Rect(x, y, width, height float64) { r.rect(x, y, width, height) }

// Arc implements Surface.
func (r *Raster) Arc(x, y, radius, startAngle, endAngle float64) {
	r.arc(x, y, radius, startAngle, endAngle)
}

// MoveTo implements Surface.
func (r *Raster) MoveTo(x, y float64) { r.current().MoveTo(x, y) }

// LineTo implements Surface.
func (r *Raster) LineTo(x, y float64) { r.current().LineTo(x, y) }

// ClosePath implements Surface.
func (r *Raster) ClosePath() { r.current().Close() }

// Stroke implements Surface.
func (r *Raster) Stroke() { r.StrokePath(r.current()) }

// Fill implements Surface.
func (r *Raster) Fill() { r.FillPath(r.current()) }

// StrokePath implements Surface.
func (r *Raster) StrokePath(path *gg.Path) {
	if r.lineWidth <= 0 {
		return
	}
	r.load(path, r.stroke)
	r.ctx.SetLineWidth(r.lineWidth)
	if err := r.ctx.Stroke(); err != nil {
		r.logger.Warn("stroke failed", "error", err)
	}
}

// FillPath implements Surface.
func (r *Raster) FillPath(path *gg.Path) {
	r.load(path, r.fill)
	if r.rule == EvenOdd {
		r.ctx.SetFillRule(gg.FillRuleEvenOdd)
	} else {
		r.ctx.SetFillRule(gg.FillRuleNonZero)
	}
	if err := r.ctx.Fill(); err != nil {
		r.logger.Warn("fill failed", "error", err)
	}
}

// IsPointInPath implements Surface.
func (r *Raster) IsPointInPath(path *gg.Path, x, y float64) bool {
	return Contains(path, r.rule, x, y)
}

// load copies path into the context's scratch path and selects c.
func (r *Raster) load(path *gg.Path, c color.NRGBA) {
	r.ctx.ClearPath()
	if path != nil {
		replay(r.ctx, path)
	}
	r.ctx.SetRGBA(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
}

func (r *Raster) parse(style string) color.NRGBA {
	c, err := colorutil.Parse(style)
	if err != nil {
		r.logger.Debug("unparseable style", "style", style, "error", err)
		return colorutil.Fallback
	}
	return c
}

func replay(ctx *gg.Context, path *gg.Path) {
	path.Iterate(func(verb gg.PathVerb, c []float64) {
		switch verb {
		case gg.MoveTo:
			ctx.MoveTo(c[0], c[1])
		case gg.LineTo:
			ctx.LineTo(c[0], c[1])
		case gg.QuadTo:
			ctx.QuadraticTo(c[0], c[1], c[2], c[3])
		case gg.CubicTo:
			ctx.CubicTo(c[0], c[1], c[2], c[3], c[4], c[5])
		case gg.Close:
			ctx.ClosePath()
		}
	})
}
