package editor

import (
	"math"
	"sync"

	"image-annotator/pkg/geometry"
)

// RendererOptions tunes a Renderer.
type RendererOptions struct {
	ScaleSensitivity float64
	MinScale         float64
	MaxScale         float64
	FitMargin        float64
}

func (o RendererOptions) withDefaults() RendererOptions {
	if o.ScaleSensitivity <= 0 {
		o.ScaleSensitivity = 50
	}
	if o.MinScale <= 0 {
		o.MinScale = 0.1
	}
	if o.MaxScale < o.MinScale {
		o.MaxScale = 2
	}
	if o.FitMargin < 0 {
		o.FitMargin = 0
	}
	return o
}

// Renderer is the pan/zoom state of a fixed canvas. A screen point equals
// origin + image point * scale.
type Renderer struct {
	mu      sync.RWMutex
	opts    RendererOptions
	originX float64
	originY float64
	scale   float64
}

// NewRenderer creates a renderer at scale 1 with the origin at (0, 0).
func NewRenderer(opts RendererOptions) *Renderer {
	return &Renderer{opts: opts.withDefaults(), scale: 1}
}

// State returns origin and scale.
func (r *Renderer) State() (originX, originY, scale float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.originX, r.originY, r.scale
}

// Scale returns the current scale.
func (r *Renderer) Scale() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scale
}

// View returns the image-to-screen transform.
func (r *Renderer) View() geometry.AffineTransform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return geometry.Translation(r.originX, r.originY).Compose(geometry.Scale(r.scale, r.scale))
}

// PanBy shifts the origin by a screen delta.
func (r *Renderer) PanBy(dx, dy float64) {
	r.mu.Lock()
	r.originX += dx
	r.originY += dy
	r.mu.Unlock()
}

// PanTo places the origin at (x, y).
func (r *Renderer) PanTo(x, y float64) {
	r.mu.Lock()
	r.originX, r.originY = x, y
	r.mu.Unlock()
}

// Zoom changes the scale by deltaScale steps of the configured sensitivity,
// keeping screen point (x, y) fixed. The result is clamped to the limits.
func (r *Renderer) Zoom(deltaScale, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.scale + deltaScale/(r.opts.ScaleSensitivity/r.scale)
	next = math.Min(math.Max(next, r.opts.MinScale), r.opts.MaxScale)
	r.zoomTo(next, x, y)
}

// ZoomTo sets the scale exactly, keeping screen point (x, y) fixed.
func (r *Renderer) ZoomTo(scale, x, y float64) {
	if scale <= 0 {
		return
	}
	r.mu.Lock()
	r.zoomTo(scale, x, y)
	r.mu.Unlock()
}

func (r *Renderer) zoomTo(next, x, y float64) {
	ratio := next / r.scale
	r.originX = x - (x-r.originX)*ratio
	r.originY = y - (y-r.originY)*ratio
	r.scale = next
}

// Fit centres an image of imageW x imageH in a view of viewW x viewH and
// scales it to leave the configured margin. The scale limits do not apply.
func (r *Renderer) Fit(imageW, imageH, viewW, viewH float64) {
	if imageW <= 0 || imageH <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.opts.FitMargin
	s := math.Min((viewW-m)/imageW, (viewH-m)/imageH)
	if s <= 0 {
		s = math.Min(viewW/imageW, viewH/imageH)
	}
	if s <= 0 {
		return
	}
	r.scale = s
	r.originX = viewW/2 - imageW*s/2
	r.originY = viewH/2 - imageH*s/2
}
