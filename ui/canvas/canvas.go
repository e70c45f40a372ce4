// Package canvas provides the annotation editor widget: the background and
// shape layers rendered through the active backend, with pointer input
// forwarded to the editing session.
package canvas

import (
	"image"
	"image/color"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"image-annotator/internal/app"
	"image-annotator/internal/editor"
	annimage "image-annotator/internal/image"
	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

const (
	overlayStroke = "rgba(255, 255, 255, 0.9)"
	boundsStroke  = "rgba(120, 120, 120, 1)"
)

// EditorCanvas displays the session and turns mouse input into editor events.
type EditorCanvas struct {
	widget.BaseWidget

	state  *app.State
	logger *slog.Logger
	raster *fynecanvas.Raster

	mu sync.Mutex

	// pixel scale between fyne units and raster pixels
	scale   float32
	buttons int
	last    fyne.Position
	view    image.Point
	// overlay layer for deep-zoom mode
	overlay *surface.Raster

	onPointer func(x, y float64)
}

// New creates the canvas for state.
func New(state *app.State, logger *slog.Logger) *EditorCanvas {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ec := &EditorCanvas{
		state:   state,
		logger:  logger,
		scale:   1,
		overlay: surface.NewRaster(1, 1, logger),
	}
	ec.raster = fynecanvas.NewRaster(ec.draw)
	ec.raster.ScaleMode = fynecanvas.ImageScalePixels
	ec.ExtendBaseWidget(ec)
	return ec
}

// OnPointer registers a callback for the pointer position in raster pixels.
func (ec *EditorCanvas) OnPointer(fn func(x, y float64)) { ec.onPointer = fn }

// Refresh redraws the canvas.
func (ec *EditorCanvas) Refresh() {
	ec.raster.Refresh()
}

// PixelSize returns the drawing area in raster pixels.
func (ec *EditorCanvas) PixelSize() (float64, float64) {
	ec.mu.Lock()
	s := ec.scale
	ec.mu.Unlock()
	size := ec.Size()
	return float64(size.Width * s), float64(size.Height * s)
}

// Centre returns the middle of the drawing area in raster pixels.
func (ec *EditorCanvas) Centre() (float64, float64) {
	w, h := ec.PixelSize()
	return w / 2, h / 2
}

// FitToWindow fits the canvas background into the widget.
func (ec *EditorCanvas) FitToWindow() {
	w, h := ec.PixelSize()
	if err := ec.state.FitToView(w, h); err != nil {
		ec.logger.Debug("fit skipped", "error", err)
		return
	}
	ec.Refresh()
}

// ============================================================================
// Input
// ============================================================================

// MouseDown implements desktop.Mouseable.
func (ec *EditorCanvas) MouseDown(ev *desktop.MouseEvent) {
	ec.mu.Lock()
	ec.buttons |= buttonBits(ev.Button)
	ec.mu.Unlock()
	ec.dispatch(editor.PointerDown, ev)
}

// MouseUp implements desktop.Mouseable.
func (ec *EditorCanvas) MouseUp(ev *desktop.MouseEvent) {
	ec.mu.Lock()
	ec.buttons &^= buttonBits(ev.Button)
	ec.mu.Unlock()
	ec.dispatch(editor.PointerUp, ev)
}

// MouseIn implements desktop.Hoverable.
func (ec *EditorCanvas) MouseIn(ev *desktop.MouseEvent) {
	ec.dispatch(editor.PointerMove, ev)
}

// MouseMoved implements desktop.Hoverable.
func (ec *EditorCanvas) MouseMoved(ev *desktop.MouseEvent) {
	ec.dispatch(editor.PointerMove, ev)
}

// MouseOut implements desktop.Hoverable. A gesture in progress is committed
// at the last position seen inside the widget.
func (ec *EditorCanvas) MouseOut() {
	ec.mu.Lock()
	ec.buttons = 0
	last := ec.last
	ec.mu.Unlock()
	x, y := ec.toPixels(last)
	ec.state.Dispatch(editor.Leave(x, y))
	ec.Refresh()
}

// Scrolled zooms around the pointer.
func (ec *EditorCanvas) Scrolled(ev *fyne.ScrollEvent) {
	x, y := ec.toPixels(ev.Position)
	var err error
	switch {
	case ev.Scrolled.DY > 0:
		err = ec.state.ZoomIn(x, y)
	case ev.Scrolled.DY < 0:
		err = ec.state.ZoomOut(x, y)
	default:
		return
	}
	if err != nil {
		return
	}
	ec.Refresh()
}

// Cursor implements desktop.Cursorable.
func (ec *EditorCanvas) Cursor() desktop.Cursor {
	return cursorFor(ec.state.Cursor())
}

func (ec *EditorCanvas) dispatch(kind editor.EventKind, ev *desktop.MouseEvent) {
	ec.mu.Lock()
	held := ec.buttons
	ec.last = ev.Position
	ec.mu.Unlock()
	x, y := ec.toPixels(ev.Position)
	if ec.onPointer != nil {
		ec.onPointer(x, y)
	}
	ec.state.Dispatch(toEvent(kind, x, y, held, ev.Modifier))
	ec.Refresh()
}

func (ec *EditorCanvas) toPixels(p fyne.Position) (float64, float64) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return float64(p.X * ec.scale), float64(p.Y * ec.scale)
}

// toEvent builds an editor event. Presses report the buttons held after the
// press, releases the buttons still held after the release.
func toEvent(kind editor.EventKind, x, y float64, held int, mod fyne.KeyModifier) editor.Event {
	return editor.Event{
		Kind:    kind,
		X:       x,
		Y:       y,
		Buttons: held,
		Ctrl:    mod&fyne.KeyModifierControl != 0,
	}
}

func buttonBits(b desktop.MouseButton) int {
	bits := 0
	if b&desktop.MouseButtonPrimary != 0 {
		bits |= editor.ButtonPrimary
	}
	if b&desktop.MouseButtonSecondary != 0 {
		bits |= editor.ButtonSecondary
	}
	return bits
}

func cursorFor(name string) desktop.Cursor {
	switch name {
	case editor.CursorCross:
		return desktop.CrosshairCursor
	case editor.CursorPointer, editor.CursorMove, editor.CursorGrab, editor.CursorGrabbing:
		return desktop.PointerCursor
	default:
		return desktop.DefaultCursor
	}
}

// ============================================================================
// Rendering
// ============================================================================

func (ec *EditorCanvas) draw(w, h int) image.Image {
	if size := ec.Size(); size.Width > 0 {
		ec.mu.Lock()
		ec.scale = float32(w) / size.Width
		ec.mu.Unlock()
	}

	if ec.state.Mode() == editor.ModeDeepZoom {
		return ec.drawDeepZoom(w, h)
	}

	comp := annimage.NewComposite(w, h)
	if bg := ec.state.Background(); bg != nil {
		comp.AddLayer(bg.Image)
	}
	cb := ec.state.Canvas()
	comp.AddLayer(cb.StorageRaster().Image())
	comp.AddLayer(cb.DrawingRaster().Image())
	return comp.Render(cb.Renderer().View())
}

// drawDeepZoom outlines the image bounds and every overlay. Tiles are drawn
// by the viewer.
func (ec *EditorCanvas) drawDeepZoom(w, h int) image.Image {
	vp := ec.state.Viewport()

	ec.mu.Lock()
	defer ec.mu.Unlock()
	if size := image.Pt(w, h); size != ec.view {
		ec.view = size
		ec.state.ResizeView(float64(w), float64(h))
	}
	if ow, oh := ec.overlay.Size(); ow != w || oh != h {
		if err := ec.overlay.Resize(w, h); err != nil {
			ec.logger.Error("failed to resize overlay layer", "error", err)
		}
	}
	surface.ClearAll(ec.overlay)

	if desc := vp.Descriptor(); desc != nil {
		bounds := vp.ImageToViewportRectangle(geometry.NewRect(0, 0, float64(desc.Width), float64(desc.Height)))
		tl := vp.PixelFromPoint(bounds.TopLeft())
		br := vp.PixelFromPoint(bounds.BottomRight())
		strokeRect(ec.overlay, geometry.RectFromCorners(tl, br), boundsStroke, 1)
	}
	for _, o := range vp.Overlays() {
		strokeRect(ec.overlay, o.Screen, overlayStroke, 2)
	}

	comp := annimage.NewComposite(w, h)
	comp.BackColor = color.RGBA{24, 24, 24, 255}
	comp.AddLayer(ec.overlay.Image())
	return comp.Render(geometry.Identity())
}

func strokeRect(s surface.Surface, r geometry.Rect, style string, width float64) {
	s.BeginPath()
	s.SetStrokeStyle(style)
	s.SetLineWidth(width)
	s.Rect(r.X, r.Y, r.Width, r.Height)
	s.Stroke()
}

// CreateRenderer implements fyne.Widget.
func (ec *EditorCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &editorCanvasRenderer{canvas: ec}
}

type editorCanvasRenderer struct {
	canvas *EditorCanvas
}

func (r *editorCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *editorCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

func (r *editorCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *editorCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *editorCanvasRenderer) Destroy() {
	_ = r.canvas.overlay.Close()
}
