package deepzoom

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"gonum.org/v1/gonum/mat"

	"image-annotator/pkg/geometry"
)

// ErrNotOpen is returned for operations that need an opened image.
var ErrNotOpen = errors.New("deep-zoom viewer is not open")

// Viewer is the deep-zoom collaborator the editor depends on. Viewport
// coordinates are normalised so the image spans [0, 1] horizontally.
type Viewer interface {
	IsOpen() bool
	OnOpen(func(width, height int))

	PanBy(dx, dy float64)
	ZoomBy(factor, centerX, centerY float64)
	SetNavigation(pan, zoom bool)

	PointFromPixel(p geometry.Point2D) geometry.Point2D
	ViewportToImageRectangle(r geometry.Rect) geometry.Rect
	ImageToViewportRectangle(r geometry.Rect) geometry.Rect
	ImageTransform() geometry.Transform

	AddOverlay(id string, imageRect geometry.Rect)
	UpdateOverlay(id string, imageRect geometry.Rect)
	RemoveOverlay(id string)
}

// Options tunes a Viewport.
type Options struct {
	MinZoom float64
	MaxZoom float64
}

// Viewport is a headless Viewer. It keeps a homogeneous viewport-to-screen
// matrix and positions overlays from it, so a GUI only has to paint tiles
// and overlay boxes where it is told.
type Viewport struct {
	mu     sync.RWMutex
	logger *slog.Logger
	opts   Options

	desc          *Descriptor
	screenW       float64
	screenH       float64
	view          *mat.Dense // viewport -> screen
	panEnabled    bool
	zoomEnabled   bool
	overlays      map[string]geometry.Rect
	overlayOrder  []string
	openListeners []func(width, height int)
}

// NewViewport creates a viewer for a screen area of the given size.
func NewViewport(screenW, screenH float64, opts Options, logger *slog.Logger) *Viewport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MinZoom <= 0 {
		opts.MinZoom = 0.5
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = 10
	}
	return &Viewport{
		logger:      logger,
		opts:        opts,
		screenW:     screenW,
		screenH:     screenH,
		view:        identity(),
		panEnabled:  true,
		zoomEnabled: true,
		overlays:    make(map[string]geometry.Rect),
	}
}

func identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// Open loads d and fires the open handlers once its content size is known.
// Existing overlays are dropped.
func (v *Viewport) Open(d *Descriptor) {
	v.mu.Lock()
	v.desc = d
	v.overlays = make(map[string]geometry.Rect)
	v.overlayOrder = nil
	v.home()
	listeners := slices.Clone(v.openListeners)
	v.mu.Unlock()

	v.logger.Info("deep-zoom image opened", "url", d.URL, "width", d.Width, "height", d.Height)
	for _, l := range listeners {
		l(d.Width, d.Height)
	}
}

// home fits the image into the screen, centred.
func (v *Viewport) home() {
	aspect := float64(v.desc.Height) / float64(v.desc.Width)
	scale := v.screenW
	if v.screenH > 0 && aspect*scale > v.screenH {
		scale = v.screenH / aspect
	}
	tx := (v.screenW - scale) / 2
	ty := (v.screenH - aspect*scale) / 2
	v.view = mat.NewDense(3, 3, []float64{scale, 0, tx, 0, scale, ty, 0, 0, 1})
}

// Descriptor returns the open source, or nil.
func (v *Viewport) Descriptor() *Descriptor {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.desc
}

// Resize changes the screen area. The view is re-fitted when open.
func (v *Viewport) Resize(w, h float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.screenW, v.screenH = w, h
	if v.desc != nil {
		v.home()
	}
}

// IsOpen implements Viewer.
func (v *Viewport) IsOpen() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.desc != nil
}

// OnOpen implements Viewer.
func (v *Viewport) OnOpen(fn func(width, height int)) {
	v.mu.Lock()
	v.openListeners = append(v.openListeners, fn)
	v.mu.Unlock()
}

// SetNavigation implements Viewer.
func (v *Viewport) SetNavigation(pan, zoom bool) {
	v.mu.Lock()
	v.panEnabled, v.zoomEnabled = pan, zoom
	v.mu.Unlock()
}

// Navigation reports which gestures are enabled.
func (v *Viewport) Navigation() (pan, zoom bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.panEnabled, v.zoomEnabled
}

// Zoom returns screen pixels per image width relative to the screen width.
func (v *Viewport) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom()
}

func (v *Viewport) zoom() float64 {
	if v.screenW == 0 {
		return v.view.At(0, 0)
	}
	return v.view.At(0, 0) / v.screenW
}

// PanBy implements Viewer. dx and dy are screen pixels.
func (v *Viewport) PanBy(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.desc == nil || !v.panEnabled {
		return
	}
	v.premultiply(mat.NewDense(3, 3, []float64{1, 0, dx, 0, 1, dy, 0, 0, 1}))
}

// ZoomBy implements Viewer. The screen point (cx, cy) stays fixed. The
// resulting zoom is clamped to the configured range.
func (v *Viewport) ZoomBy(factor, cx, cy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.desc == nil || !v.zoomEnabled || factor <= 0 {
		return
	}
	current := v.zoom()
	target := min(max(current*factor, v.opts.MinZoom), v.opts.MaxZoom)
	if current == 0 || target == current {
		return
	}
	f := target / current
	v.premultiply(mat.NewDense(3, 3, []float64{f, 0, cx * (1 - f), 0, f, cy * (1 - f), 0, 0, 1}))
}

func (v *Viewport) premultiply(t *mat.Dense) {
	var next mat.Dense
	next.Mul(t, v.view)
	v.view = &next
}

// PointFromPixel implements Viewer, mapping screen pixels to viewport coordinates.
func (v *Viewport) PointFromPixel(p geometry.Point2D) geometry.Point2D {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var inv mat.Dense
	if err := inv.Inverse(v.view); err != nil {
		v.logger.Warn("viewport matrix is singular", "error", err)
		return geometry.Point2D{}
	}
	return apply(&inv, p)
}

// PixelFromPoint maps viewport coordinates to screen pixels.
func (v *Viewport) PixelFromPoint(p geometry.Point2D) geometry.Point2D {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return apply(v.view, p)
}

// contentScale is the number of image pixels per viewport unit.
func (v *Viewport) contentScale() float64 {
	if v.desc == nil {
		return 1
	}
	return float64(v.desc.Width)
}

// ViewportToImageRectangle implements Viewer.
func (v *Viewport) ViewportToImageRectangle(r geometry.Rect) geometry.Rect {
	v.mu.RLock()
	s := v.contentScale()
	v.mu.RUnlock()
	return geometry.NewRect(r.X*s, r.Y*s, r.Width*s, r.Height*s)
}

// ImageToViewportRectangle implements Viewer.
func (v *Viewport) ImageToViewportRectangle(r geometry.Rect) geometry.Rect {
	v.mu.RLock()
	s := v.contentScale()
	v.mu.RUnlock()
	return geometry.NewRect(r.X/s, r.Y/s, r.Width/s, r.Height/s)
}

// ImageTransform implements Viewer.
func (v *Viewport) ImageTransform() geometry.Transform {
	v.mu.RLock()
	s := v.contentScale()
	v.mu.RUnlock()
	tr, ok := geometry.NewAffineImageTransform(geometry.Scale(s, s))
	if !ok {
		return geometry.ScaleTransform(1)
	}
	return tr
}

// AddOverlay implements Viewer.
func (v *Viewport) AddOverlay(id string, imageRect geometry.Rect) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.overlays[id]; !ok {
		v.overlayOrder = append(v.overlayOrder, id)
	}
	v.overlays[id] = imageRect
}

// UpdateOverlay implements Viewer. Unknown ids are ignored.
func (v *Viewport) UpdateOverlay(id string, imageRect geometry.Rect) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.overlays[id]; ok {
		v.overlays[id] = imageRect
	}
}

// RemoveOverlay implements Viewer.
func (v *Viewport) RemoveOverlay(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.overlays[id]; !ok {
		return
	}
	delete(v.overlays, id)
	for i, o := range v.overlayOrder {
		if o == id {
			v.overlayOrder = append(v.overlayOrder[:i], v.overlayOrder[i+1:]...)
			break
		}
	}
}

// Overlay is an attached element positioned on screen.
type Overlay struct {
	ID     string
	Image  geometry.Rect
	Screen geometry.Rect
}

// Overlays returns every attached overlay in attach order with its current
// screen placement.
func (v *Viewport) Overlays() []Overlay {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := v.contentScale()
	out := make([]Overlay, 0, len(v.overlayOrder))
	for _, id := range v.overlayOrder {
		r := v.overlays[id]
		tl := apply(v.view, geometry.Pt(r.X/s, r.Y/s))
		br := apply(v.view, geometry.Pt((r.X+r.Width)/s, (r.Y+r.Height)/s))
		out = append(out, Overlay{ID: id, Image: r, Screen: geometry.RectFromCorners(tl, br)})
	}
	return out
}

func apply(m mat.Matrix, p geometry.Point2D) geometry.Point2D {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{p.X, p.Y, 1}))
	return geometry.Pt(out.AtVec(0), out.AtVec(1))
}
