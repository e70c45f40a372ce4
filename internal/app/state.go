// Package app holds the editing session: background, shapes, active tool,
// backends and the events the UI listens to.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/atotto/clipboard"

	"image-annotator/internal/annotation"
	"image-annotator/internal/config"
	"image-annotator/internal/deepzoom"
	"image-annotator/internal/editor"
	"image-annotator/internal/export"
	annimage "image-annotator/internal/image"
	"image-annotator/internal/logger"
	"image-annotator/internal/project"
	"image-annotator/internal/shape"
	"image-annotator/pkg/colorutil"
)

var (
	// ErrNoBackend is returned when an action needs a loaded background.
	ErrNoBackend = errors.New("no background loaded")
	// ErrClipboardUnavailable is returned when the system has no clipboard.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
)

// EventType identifies session events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventProjectLoaded
	EventProjectSaved
	EventShapesChanged
	EventToolChanged
	EventModeChanged
	EventAppearanceChanged
	EventModified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State is one editing session.
type State struct {
	mu     sync.RWMutex
	logger *slog.Logger
	cfg    *config.Config

	projectPath string
	modified    bool
	mode        editor.Mode
	tool        editor.Tool
	background  *annimage.Layer
	settings    annimage.Settings

	collection *annotation.Collection
	canvas     *editor.CanvasBackend
	viewport   *deepzoom.Viewport
	deepZoom   *editor.DeepZoomBackend

	// ctrl serialises every call into controller
	ctrl       sync.Mutex
	controller *editor.Controller

	// dirty is set by collection changes and flushed once ctrl is released
	dirty atomic.Bool

	httpClient  *http.Client
	copyText    func(string) error
	noClipboard func() bool

	listeners map[EventType][]EventListener
}

// NewState creates a session in canvas mode with the hand tool selected.
func NewState(cfg *config.Config, log *slog.Logger) *State {
	if cfg == nil {
		cfg = config.Defaults()
	}
	log = logger.OrDiscard(log)

	s := &State{
		logger:     log,
		cfg:        cfg,
		mode:       editor.ModeCanvas,
		tool:       editor.DefaultTool,
		collection: annotation.New(),
		httpClient: &http.Client{Timeout: cfg.DeepZoom.FetchTimeout},
		copyText:   clipboard.WriteAll,
		listeners:  make(map[EventType][]EventListener),
	}
	s.noClipboard = func() bool { return clipboard.Unsupported }

	s.canvas = editor.NewCanvasBackend(editor.RendererOptions{
		ScaleSensitivity: cfg.Canvas.ScaleSensitivity,
		MinScale:         cfg.Canvas.MinScale,
		MaxScale:         cfg.Canvas.MaxScale,
		FitMargin:        cfg.Canvas.FitMargin,
	}, cfg.Canvas.ZoomStep, log)
	s.viewport = deepzoom.NewViewport(800, 600, deepzoom.Options{
		MinZoom: cfg.DeepZoom.MinZoom,
		MaxZoom: cfg.DeepZoom.MaxZoom,
	}, log)
	s.deepZoom = editor.NewDeepZoomBackend(s.viewport, cfg.DeepZoom.ZoomPerClick, cfg.DeepZoom.ZoomOutPerClick, log)
	s.controller = editor.NewController(s.collection, s.canvas, editor.Options{
		Appearance:          cfg.Appearance,
		TemporaryAppearance: cfg.TemporaryAppearance,
		PointRadius:         cfg.Canvas.PointRadius,
	}, log)

	s.collection.OnChange(func() { s.dirty.Store(true) })
	return s
}

// flush emits the shape change recorded while the controller was busy.
func (s *State) flush() {
	if !s.dirty.Swap(false) {
		return
	}
	s.setModified(true)
	s.Emit(EventShapesChanged, s.collection.Len())
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

func (s *State) setModified(modified bool) {
	s.mu.Lock()
	changed := s.modified != modified
	s.modified = modified
	s.mu.Unlock()
	if changed {
		s.Emit(EventModified, modified)
	}
}

// Modified reports whether there are unsaved changes.
func (s *State) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// ProjectPath returns the path of the last loaded or saved project.
func (s *State) ProjectPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectPath
}

// Config returns the session configuration.
func (s *State) Config() *config.Config { return s.cfg }

// Collection returns the live shape list.
func (s *State) Collection() *annotation.Collection { return s.collection }

// Canvas returns the fixed-canvas backend.
func (s *State) Canvas() *editor.CanvasBackend { return s.canvas }

// Viewport returns the deep-zoom viewer.
func (s *State) Viewport() *deepzoom.Viewport { return s.viewport }

// Mode returns the active backend mode.
func (s *State) Mode() editor.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Tool returns the active tool.
func (s *State) Tool() editor.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tool
}

// Settings describes the loaded background.
func (s *State) Settings() annimage.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Background returns the canvas background, or nil in deep-zoom mode.
func (s *State) Background() *annimage.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.background
}

// Cursor returns the cursor the UI should show.
func (s *State) Cursor() string {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	return s.controller.Cursor()
}

// Pending returns the pending polygon vertices.
func (s *State) Pending() int {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	return len(s.controller.Pending())
}

// SetTool selects t. Selecting the active polygon tool again closes the
// pending polygon.
func (s *State) SetTool(t editor.Tool) error {
	if !t.Valid() {
		return fmt.Errorf("unknown tool %q", t)
	}
	s.ctrl.Lock()
	s.mu.Lock()
	prev := s.tool
	s.tool = t
	s.mu.Unlock()
	s.controller.Transition(prev, t)
	s.ctrl.Unlock()
	s.flush()

	s.logger.Debug("tool selected", "tool", string(t), "previous", string(prev))
	if prev != t {
		s.Emit(EventToolChanged, t)
	}
	return nil
}

// Dispatch routes a pointer event to the controller under the active tool.
func (s *State) Dispatch(ev editor.Event) {
	s.ctrl.Lock()
	s.mu.RLock()
	tool := s.tool
	s.mu.RUnlock()
	next := s.controller.Dispatch(tool, ev)
	if next != tool {
		s.mu.Lock()
		s.tool = next
		s.mu.Unlock()
		s.controller.Transition(tool, next)
	}
	s.ctrl.Unlock()
	s.flush()

	if next != tool {
		s.Emit(EventToolChanged, next)
	}
}

// ClosePolygon commits the pending polygon, if it has enough vertices.
func (s *State) ClosePolygon() bool {
	s.ctrl.Lock()
	ok := s.controller.ClosePolygon()
	s.ctrl.Unlock()
	s.flush()
	return ok
}

// Appearance returns the paint for new shapes.
func (s *State) Appearance() shape.Appearance {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	return s.controller.Appearance()
}

// SetColour sets the paint for new shapes from a picker hex value. The fill
// is the colour at half opacity.
func (s *State) SetColour(hex string) error {
	fill, err := colorutil.HexToRGBA(hex, 0.5)
	if err != nil {
		return err
	}
	stroke, err := colorutil.HexToRGBA(hex, 1)
	if err != nil {
		return err
	}
	s.ctrl.Lock()
	a := s.controller.Appearance()
	a.FillStyle, a.StrokeStyle = fill, stroke
	s.controller.SetAppearance(a)
	s.ctrl.Unlock()

	s.Emit(EventAppearanceChanged, a)
	return nil
}

func (s *State) backend() editor.Backend {
	if s.Mode() == editor.ModeDeepZoom {
		return s.deepZoom
	}
	return s.canvas
}

func (s *State) setMode(m editor.Mode) {
	s.mu.Lock()
	changed := s.mode != m
	s.mode = m
	s.mu.Unlock()
	if !changed {
		return
	}
	s.ctrl.Lock()
	s.controller.SetBackend(s.backend())
	s.controller.Backend().ToolChanged(s.Tool())
	s.ctrl.Unlock()
	s.logger.Info("mode changed", "mode", string(m))
	s.Emit(EventModeChanged, m)
}

// Ready reports whether a background is loaded in the active mode.
func (s *State) Ready() bool { return s.backend().Ready() }

// ZoomIn zooms one step around a screen point.
func (s *State) ZoomIn(x, y float64) error { return s.zoom(true, x, y) }

// ZoomOut zooms out one step around a screen point.
func (s *State) ZoomOut(x, y float64) error { return s.zoom(false, x, y) }

func (s *State) zoom(in bool, x, y float64) error {
	b := s.backend()
	if !b.Ready() {
		return ErrNoBackend
	}
	if b.Mode() == editor.ModeDeepZoom {
		// toolbar zoom bypasses tool gating
		f := s.cfg.DeepZoom.ZoomPerClick
		if !in {
			f = s.cfg.DeepZoom.ZoomOutPerClick
		}
		pan, zoom := s.viewport.Navigation()
		s.viewport.SetNavigation(pan, true)
		s.viewport.ZoomBy(f, x, y)
		s.viewport.SetNavigation(pan, zoom)
		return nil
	}
	step := s.cfg.Canvas.ZoomStep
	if !in {
		step = -step
	}
	s.canvas.Renderer().Zoom(step, x, y)
	return nil
}

// FitToView fits the canvas background into a view of the given size.
func (s *State) FitToView(viewW, viewH float64) error {
	settings := s.Settings()
	if !s.canvas.Ready() || s.Mode() != editor.ModeCanvas {
		return ErrNoBackend
	}
	s.canvas.Renderer().Fit(float64(settings.SourceWidth), float64(settings.SourceHeight), viewW, viewH)
	return nil
}

// ResizeView tells the deep-zoom viewer the size of its screen area.
func (s *State) ResizeView(w, h float64) { s.viewport.Resize(w, h) }

// LoadImage decodes a local image and makes it the canvas background.
func (s *State) LoadImage(path string) error {
	layer, err := annimage.Load(path)
	if err != nil {
		return err
	}
	s.SetBackground(layer)
	return nil
}

// LoadImageAsync decodes path off the caller's goroutine. The background is
// installed before done is called.
func (s *State) LoadImageAsync(path string, done func(error)) {
	go func() {
		err := s.LoadImage(path)
		if err != nil {
			s.logger.Error("failed to load image", "path", path, "error", err)
		}
		if done != nil {
			done(err)
		}
	}()
}

// SetBackground installs a decoded image as the canvas background: the
// surfaces are sized to it, the settings describe it and previous
// annotations are discarded.
func (s *State) SetBackground(layer *annimage.Layer) {
	s.setMode(editor.ModeCanvas)

	// resize, swap and reset happen under ctrl
	s.ctrl.Lock()
	s.canvas.Resize(layer.Width(), layer.Height())
	s.mu.Lock()
	s.background = layer
	s.settings = layer.Settings()
	s.mu.Unlock()
	s.controller.Reset()
	s.ctrl.Unlock()
	s.flush()

	s.setModified(false)
	s.logger.Info("image loaded", "file", layer.FileName, "width", layer.Width(), "height", layer.Height())
	s.Emit(EventImageLoaded, layer.Settings())
}

// OpenDeepZoom fetches a tiled image descriptor and opens it in deep-zoom mode.
func (s *State) OpenDeepZoom(ctx context.Context, url string) error {
	desc, err := deepzoom.FetchDescriptor(ctx, s.httpClient, url)
	if err != nil {
		return err
	}
	s.OpenDescriptor(desc)
	return nil
}

// OpenDescriptor opens an already fetched descriptor in deep-zoom mode.
func (s *State) OpenDescriptor(desc *deepzoom.Descriptor) {
	s.setMode(editor.ModeDeepZoom)

	settings := annimage.Settings{
		SourceWidth:  desc.Width,
		SourceHeight: desc.Height,
		FileName:     annimage.FileName(desc.URL),
		URL:          desc.URL,
	}
	s.ctrl.Lock()
	s.viewport.Open(desc)
	s.mu.Lock()
	s.background = nil
	s.settings = settings
	s.mu.Unlock()
	s.controller.Reset()
	s.ctrl.Unlock()
	s.flush()

	s.setModified(false)
	s.Emit(EventImageLoaded, settings)
}

func (s *State) reset() {
	s.ctrl.Lock()
	s.controller.Reset()
	s.ctrl.Unlock()
	s.flush()
}

// Reset drops every shape and any gesture in progress.
func (s *State) Reset() { s.reset() }

// LoadProject opens a saved session, replacing the current one.
func (s *State) LoadProject(ctx context.Context, path string) error {
	f, err := project.Load(path)
	if err != nil {
		return err
	}
	shapes, err := f.Shapes(nil)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	switch f.Mode {
	case editor.ModeDeepZoom:
		if err := s.OpenDeepZoom(ctx, f.BackgroundURL); err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
	default:
		layer, err := f.Background()
		if err != nil {
			return fmt.Errorf("failed to load project: %w", err)
		}
		s.SetBackground(layer)
	}

	s.ctrl.Lock()
	for _, sh := range shapes {
		if !s.collection.Add(sh) {
			s.logger.Warn("shape skipped", "id", sh.ID())
		}
	}
	s.controller.Repaint()
	s.ctrl.Unlock()
	s.flush()

	s.mu.Lock()
	s.projectPath = path
	s.mu.Unlock()
	s.setModified(false)

	s.logger.Info("project loaded", "path", path, "shapes", len(shapes), "mode", string(f.Mode))
	s.Emit(EventProjectLoaded, path)
	return nil
}

// SaveProject writes the session to path.
func (s *State) SaveProject(path string) error {
	if !s.Ready() {
		return ErrNoBackend
	}
	mode := s.Mode()
	settings := s.Settings()
	background := settings.URL
	if mode == editor.ModeCanvas {
		if layer := s.Background(); layer != nil {
			background = layer.DataURL()
		}
	}

	f, err := project.New(mode, settings, background, s.collection.Shapes())
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.projectPath = path
	s.mu.Unlock()
	s.setModified(false)

	s.logger.Info("project saved", "path", path, "shapes", len(f.Objects))
	s.Emit(EventProjectSaved, path)
	return nil
}

// XML derives the facsimile from the live shapes.
func (s *State) XML() (string, error) {
	return export.XML(s.Settings(), s.collection.Shapes())
}

// JSON derives the shape dump from the live shapes.
func (s *State) JSON() (string, error) {
	return export.JSON(s.collection.Shapes())
}

// CopyXML puts the facsimile on the system clipboard.
func (s *State) CopyXML() error {
	if s.noClipboard() {
		s.logger.Warn("copy skipped", "reason", "no clipboard utility")
		return ErrClipboardUnavailable
	}
	text, err := s.XML()
	if err != nil {
		return err
	}
	if err := s.copyText(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	s.logger.Debug("xml copied", "bytes", len(text))
	return nil
}

// Close releases the canvas surfaces.
func (s *State) Close() error {
	return s.canvas.Close()
}
