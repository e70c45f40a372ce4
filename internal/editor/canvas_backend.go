package editor

import (
	"log/slog"
	"sync"

	"image-annotator/internal/shape"
	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

// CanvasBackend draws on two rasters the size of the background image and
// maps screen points through a Renderer.
type CanvasBackend struct {
	logger   *slog.Logger
	renderer *Renderer
	zoomStep float64
	storage  *surface.Raster
	drawing  *surface.Raster

	mu     sync.RWMutex
	loaded bool
}

// NewCanvasBackend creates a backend with 1x1 surfaces. Resize must be
// called once a background is decoded.
func NewCanvasBackend(opts RendererOptions, zoomStep float64, logger *slog.Logger) *CanvasBackend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if zoomStep <= 0 {
		zoomStep = 10
	}
	return &CanvasBackend{
		logger:   logger,
		renderer: NewRenderer(opts),
		zoomStep: zoomStep,
		storage:  surface.NewRaster(1, 1, logger),
		drawing:  surface.NewRaster(1, 1, logger),
	}
}

// Renderer exposes the pan/zoom state for painting.
func (b *CanvasBackend) Renderer() *Renderer { return b.renderer }

// StorageRaster returns the committed-shape layer.
func (b *CanvasBackend) StorageRaster() *surface.Raster { return b.storage }

// DrawingRaster returns the in-progress layer.
func (b *CanvasBackend) DrawingRaster() *surface.Raster { return b.drawing }

func (b *CanvasBackend) Mode() Mode { return ModeCanvas }

func (b *CanvasBackend) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

func (b *CanvasBackend) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	for _, r := range []*surface.Raster{b.storage, b.drawing} {
		if err := r.Resize(width, height); err != nil {
			b.logger.Error("failed to resize surface", "width", width, "height", height, "error", err)
			return
		}
	}
	b.mu.Lock()
	b.loaded = true
	b.mu.Unlock()
	b.logger.Debug("canvas surfaces sized", "width", width, "height", height)
}

func (b *CanvasBackend) Storage() surface.Surface { return b.storage }
func (b *CanvasBackend) Drawing() surface.Surface { return b.drawing }

func (b *CanvasBackend) Locate(screen geometry.Point2D) (geometry.Point2D, geometry.Point2D) {
	ox, oy, s := b.renderer.State()
	display := geometry.Pt(screen.X-ox, screen.Y-oy)
	return display, geometry.ScaleTransform(s).ToImage(display)
}

func (b *CanvasBackend) Transform() geometry.Transform {
	return geometry.ScaleTransform(b.renderer.Scale())
}

func (b *CanvasBackend) Pan(dx, dy float64) { b.renderer.PanBy(dx, dy) }

func (b *CanvasBackend) Zoom(in bool, screen geometry.Point2D) {
	step := b.zoomStep
	if !in {
		step = -step
	}
	b.renderer.Zoom(step, screen.X, screen.Y)
}

func (b *CanvasBackend) Sync([]shape.Shape) {}

func (b *CanvasBackend) ToolChanged(Tool) {}

// Close releases both rasters.
func (b *CanvasBackend) Close() error {
	if err := b.storage.Close(); err != nil {
		return err
	}
	return b.drawing.Close()
}
