package editor

import (
	"log/slog"
	"sync"

	"image-annotator/internal/deepzoom"
	"image-annotator/internal/shape"
	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

// DeepZoomBackend edits over a tiled viewer. Shapes are mirrored as
// overlays positioned by their source-image bounds.
type DeepZoomBackend struct {
	logger          *slog.Logger
	viewer          deepzoom.Viewer
	zoomPerClick    float64
	zoomOutPerClick float64
	storage         *surface.Recorder
	drawing         *surface.Recorder

	mu       sync.Mutex
	overlays map[string]struct{}
}

// NewDeepZoomBackend wraps viewer. Surfaces are sized when the viewer opens.
func NewDeepZoomBackend(viewer deepzoom.Viewer, zoomPerClick, zoomOutPerClick float64, logger *slog.Logger) *DeepZoomBackend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if zoomPerClick <= 1 {
		zoomPerClick = 1.25
	}
	if zoomOutPerClick <= 0 || zoomOutPerClick >= 1 {
		zoomOutPerClick = 0.75
	}
	b := &DeepZoomBackend{
		logger:          logger,
		viewer:          viewer,
		zoomPerClick:    zoomPerClick,
		zoomOutPerClick: zoomOutPerClick,
		storage:         surface.NewRecorder(1, 1),
		drawing:         surface.NewRecorder(1, 1),
		overlays:        make(map[string]struct{}),
	}
	viewer.OnOpen(func(width, height int) {
		b.Resize(width, height)
		b.mu.Lock()
		b.overlays = make(map[string]struct{})
		b.mu.Unlock()
	})
	return b
}

// Viewer returns the wrapped viewer.
func (b *DeepZoomBackend) Viewer() deepzoom.Viewer { return b.viewer }

func (b *DeepZoomBackend) Mode() Mode  { return ModeDeepZoom }
func (b *DeepZoomBackend) Ready() bool { return b.viewer.IsOpen() }

func (b *DeepZoomBackend) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	b.storage.Resize(width, height)
	b.drawing.Resize(width, height)
}

func (b *DeepZoomBackend) Storage() surface.Surface { return b.storage }
func (b *DeepZoomBackend) Drawing() surface.Surface { return b.drawing }

func (b *DeepZoomBackend) Locate(screen geometry.Point2D) (geometry.Point2D, geometry.Point2D) {
	display := b.viewer.PointFromPixel(screen)
	return display, b.viewer.ImageTransform().ToImage(display)
}

func (b *DeepZoomBackend) Transform() geometry.Transform { return b.viewer.ImageTransform() }

func (b *DeepZoomBackend) Pan(dx, dy float64) { b.viewer.PanBy(dx, dy) }

func (b *DeepZoomBackend) Zoom(in bool, screen geometry.Point2D) {
	f := b.zoomPerClick
	if !in {
		f = b.zoomOutPerClick
	}
	b.viewer.ZoomBy(f, screen.X, screen.Y)
}

// Sync adds, moves and removes overlays so there is one per shape.
func (b *DeepZoomBackend) Sync(shapes []shape.Shape) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]struct{}, len(shapes))
	for _, s := range shapes {
		id := s.ID()
		seen[id] = struct{}{}
		if _, ok := b.overlays[id]; ok {
			b.viewer.UpdateOverlay(id, s.Bounds())
			continue
		}
		b.viewer.AddOverlay(id, s.Bounds())
		b.overlays[id] = struct{}{}
	}
	for id := range b.overlays {
		if _, ok := seen[id]; !ok {
			b.viewer.RemoveOverlay(id)
			delete(b.overlays, id)
		}
	}
}

// ToolChanged lets the viewer pan only under the hand tool and zoom only
// under the zoom tool, so drawing gestures reach the controller.
func (b *DeepZoomBackend) ToolChanged(t Tool) {
	b.viewer.SetNavigation(t == ToolHand, t == ToolZoom)
}
