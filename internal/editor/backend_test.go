package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-annotator/internal/annotation"
	"image-annotator/internal/deepzoom"
	"image-annotator/internal/shape"
	"image-annotator/pkg/geometry"
)

func TestRendererZoomKeepsPointFixed(t *testing.T) {
	r := NewRenderer(RendererOptions{})
	r.PanTo(100, 50)
	before := r.View().Apply(geometry.Pt(30, 40))

	r.Zoom(10, before.X, before.Y)
	assert.InDelta(t, 1.2, r.Scale(), 1e-9)
	after := r.View().Apply(geometry.Pt(30, 40))
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestRendererZoomClamped(t *testing.T) {
	r := NewRenderer(RendererOptions{})
	for range 50 {
		r.Zoom(10, 0, 0)
	}
	assert.InDelta(t, 2, r.Scale(), 1e-9)
	for range 100 {
		r.Zoom(-10, 0, 0)
	}
	assert.InDelta(t, 0.1, r.Scale(), 1e-9)
}

func TestRendererFit(t *testing.T) {
	r := NewRenderer(RendererOptions{FitMargin: 100})
	r.Fit(2000, 1000, 1100, 600)
	_, _, s := r.State()
	assert.InDelta(t, 0.5, s, 1e-9)
	centre := r.View().Apply(geometry.Pt(1000, 500))
	assert.InDelta(t, 550, centre.X, 1e-9)
	assert.InDelta(t, 300, centre.Y, 1e-9)
}

func TestCanvasBackendLocate(t *testing.T) {
	b := NewCanvasBackend(RendererOptions{}, 10, nil)
	t.Cleanup(func() { _ = b.Close() })
	assert.False(t, b.Ready())
	b.Resize(300, 200)
	require.True(t, b.Ready())
	w, h := b.Storage().Size()
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)

	b.Pan(10, 20)
	b.Renderer().ZoomTo(2, 10, 20)
	display, pt := b.Locate(geometry.Pt(50, 60))
	assert.Equal(t, geometry.Pt(40, 40), display)
	assert.Equal(t, geometry.Pt(20, 20), pt)
	assert.Equal(t, 2.0, b.Transform().Factor())
}

func TestCanvasBackendDrawsRectangle(t *testing.T) {
	b := NewCanvasBackend(RendererOptions{}, 10, nil)
	t.Cleanup(func() { _ = b.Close() })
	b.Resize(100, 100)
	col := annotation.New()
	c := NewController(col, b, Options{}, nil)

	drag(c, ToolRectangle, geometry.Pt(10, 10), geometry.Pt(60, 60))
	require.Equal(t, 1, col.Len())
	_, _, _, a := b.StorageRaster().Image().At(30, 30).RGBA()
	assert.NotZero(t, a)
	_, _, _, a = b.StorageRaster().Image().At(90, 90).RGBA()
	assert.Zero(t, a)
}

func openViewer(t *testing.T) *deepzoom.Viewport {
	t.Helper()
	v := deepzoom.NewViewport(800, 600, deepzoom.Options{}, nil)
	return v
}

func TestDeepZoomBackendOverlaysFollowShapes(t *testing.T) {
	v := openViewer(t)
	b := NewDeepZoomBackend(v, 0, 0, nil)
	assert.False(t, b.Ready())
	v.Open(&deepzoom.Descriptor{Width: 4000, Height: 3000, TileSize: 254})
	require.True(t, b.Ready())
	w, h := b.Storage().Size()
	assert.Equal(t, 4000, w)
	assert.Equal(t, 3000, h)

	col := annotation.New()
	c := NewController(col, b, Options{}, nil)
	c.Transition(ToolHand, ToolRectangle)
	pan, zoom := v.Navigation()
	assert.False(t, pan)
	assert.False(t, zoom)

	next := drag(c, ToolRectangle, geometry.Pt(0, 0), geometry.Pt(80, 60))
	assert.Equal(t, ToolCursor, next)
	require.Equal(t, 1, col.Len())
	s := col.Shapes()[0].(*shape.Rectangle)
	sc := s.Scaled()
	assert.Equal(t, 400, sc.RX)
	assert.Equal(t, 300, sc.RY)

	overlays := v.Overlays()
	require.Len(t, overlays, 1)
	assert.Equal(t, s.ID(), overlays[0].ID)
	assert.InDelta(t, 80, overlays[0].Screen.Width, 1e-6)

	c.Transition(ToolRectangle, ToolErasing)
	c.Dispatch(ToolErasing, Move(40, 30))
	c.Dispatch(ToolErasing, Down(40, 30))
	assert.Zero(t, col.Len())
	assert.Empty(t, v.Overlays())
}

func TestDeepZoomBackendNavigationPerTool(t *testing.T) {
	v := openViewer(t)
	b := NewDeepZoomBackend(v, 0, 0, nil)
	cases := map[Tool][2]bool{
		ToolHand:      {true, false},
		ToolZoom:      {false, true},
		ToolCursor:    {false, false},
		ToolPath:      {false, false},
		ToolErasing:   {false, false},
		ToolRectangle: {false, false},
	}
	for tool, want := range cases {
		b.ToolChanged(tool)
		pan, zoom := v.Navigation()
		assert.Equal(t, want[0], pan, tool)
		assert.Equal(t, want[1], zoom, tool)
	}
}

func TestDeepZoomBackendZoom(t *testing.T) {
	v := openViewer(t)
	v.Open(&deepzoom.Descriptor{Width: 4000, Height: 3000, TileSize: 254})
	b := NewDeepZoomBackend(v, 0, 0, nil)
	b.Zoom(true, geometry.Pt(400, 300))
	assert.InDelta(t, 1.25, v.Zoom(), 1e-9)
	b.Zoom(false, geometry.Pt(400, 300))
	assert.InDelta(t, 0.9375, v.Zoom(), 1e-9)
}
