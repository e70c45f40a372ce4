package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-annotator/internal/annotation"
	"image-annotator/internal/shape"
	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

type fakeBackend struct {
	storage *surface.Recorder
	drawing *surface.Recorder
	scale   float64
	origin  geometry.Point2D
	ready   bool

	pans   []geometry.Point2D
	zooms  []bool
	tools  []Tool
	synced [][]string
}

func newFakeBackend(scale float64) *fakeBackend {
	return &fakeBackend{
		storage: surface.NewRecorder(400, 400),
		drawing: surface.NewRecorder(400, 400),
		scale:   scale,
		ready:   true,
	}
}

func (b *fakeBackend) Mode() Mode                       { return ModeCanvas }
func (b *fakeBackend) Ready() bool                      { return b.ready }
func (b *fakeBackend) Resize(int, int)                  {}
func (b *fakeBackend) Storage() surface.Surface         { return b.storage }
func (b *fakeBackend) Drawing() surface.Surface         { return b.drawing }
func (b *fakeBackend) ToolChanged(t Tool)               { b.tools = append(b.tools, t) }
func (b *fakeBackend) Pan(dx, dy float64)               { b.pans = append(b.pans, geometry.Pt(dx, dy)) }
func (b *fakeBackend) Zoom(in bool, _ geometry.Point2D) { b.zooms = append(b.zooms, in) }

func (b *fakeBackend) Transform() geometry.Transform { return geometry.ScaleTransform(b.scale) }

func (b *fakeBackend) Locate(screen geometry.Point2D) (geometry.Point2D, geometry.Point2D) {
	d := screen.Sub(b.origin)
	return d, geometry.ScaleTransform(b.scale).ToImage(d)
}

func (b *fakeBackend) Sync(shapes []shape.Shape) {
	var ids []string
	for _, s := range shapes {
		ids = append(ids, s.ID())
	}
	b.synced = append(b.synced, ids)
}

func newTestController(scale float64) (*Controller, *annotation.Collection, *fakeBackend) {
	col := annotation.New()
	b := newFakeBackend(scale)
	return NewController(col, b, Options{}, nil), col, b
}

func drag(c *Controller, tool Tool, from, to geometry.Point2D) Tool {
	c.Dispatch(tool, Down(from.X, from.Y))
	c.Dispatch(tool, Drag((from.X+to.X)/2, (from.Y+to.Y)/2))
	c.Dispatch(tool, Drag(to.X, to.Y))
	return c.Dispatch(tool, Up(to.X, to.Y))
}

func TestRectangleDragDirectionsNormalise(t *testing.T) {
	tests := []struct {
		name     string
		from, to geometry.Point2D
	}{
		{"down right", geometry.Pt(10, 20), geometry.Pt(60, 80)},
		{"up left", geometry.Pt(60, 80), geometry.Pt(10, 20)},
		{"down left", geometry.Pt(60, 20), geometry.Pt(10, 80)},
		{"up right", geometry.Pt(10, 80), geometry.Pt(60, 20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, col, _ := newTestController(1)
			next := drag(c, ToolRectangle, tt.from, tt.to)
			assert.Equal(t, ToolCursor, next)
			require.Equal(t, 1, col.Len())
			r := col.Shapes()[0].(*shape.Rectangle)
			assert.Equal(t, geometry.NewRect(10, 20, 50, 60), r.Rect())
		})
	}
}

func TestRectangleKeepsScaleAtCreation(t *testing.T) {
	c, col, _ := newTestController(2)
	drag(c, ToolRectangle, geometry.Pt(20, 40), geometry.Pt(120, 140))
	require.Equal(t, 1, col.Len())
	sc := col.Shapes()[0].(*shape.Rectangle).Scaled()
	assert.Equal(t, shape.ScaledRect{X: 10, Y: 20, RX: 60, RY: 70, Width: 50, Height: 50}, sc)
}

func TestGesturesSurviveViewChanges(t *testing.T) {
	t.Run("rectangle", func(t *testing.T) {
		c, col, b := newTestController(1)
		c.Dispatch(ToolRectangle, Down(10, 20))
		b.scale, b.origin = 2, geometry.Pt(5, 5)
		c.Dispatch(ToolRectangle, Drag(65, 85))
		c.Dispatch(ToolRectangle, Up(125, 165))
		require.Equal(t, 1, col.Len())
		sc := col.Shapes()[0].(*shape.Rectangle).Scaled()
		assert.Equal(t, shape.ScaledRect{X: 10, Y: 20, RX: 60, RY: 80, Width: 50, Height: 60}, sc)
	})
	t.Run("polygon", func(t *testing.T) {
		c, col, b := newTestController(1)
		c.Dispatch(ToolPath, Down(10, 10))
		b.scale, b.origin = 2, geometry.Pt(5, 5)
		c.Dispatch(ToolPath, Down(205, 25))
		b.scale, b.origin = 0.5, geometry.Pt(-20, 0)
		c.Dispatch(ToolPath, Down(5, 40))
		require.True(t, c.ClosePolygon())
		require.Equal(t, 1, col.Len())
		p := col.Shapes()[0].(*shape.Polygon)
		assert.Equal(t, "10,10 100,10 50,80", p.PointsString())
	})
}

func TestDegenerateRectangleIsNotAdded(t *testing.T) {
	c, col, b := newTestController(1)
	next := drag(c, ToolRectangle, geometry.Pt(10, 10), geometry.Pt(10, 50))
	assert.Equal(t, ToolCursor, next)
	assert.Zero(t, col.Len())
	assert.Zero(t, b.drawing.Count(surface.OpFill))
}

func TestRectanglePreviewOnDrawingSurface(t *testing.T) {
	c, col, b := newTestController(1)
	c.Dispatch(ToolRectangle, Down(10, 10))
	c.Dispatch(ToolRectangle, Drag(30, 30))
	assert.Equal(t, 1, b.drawing.Count(surface.OpFill))
	assert.Zero(t, col.Len())

	c.Dispatch(ToolRectangle, Leave(40, 40))
	assert.Equal(t, 1, col.Len())
	assert.Zero(t, b.drawing.Count(surface.OpFill))
}

func TestRectangleMoveWithoutButtonDoesNothing(t *testing.T) {
	c, _, b := newTestController(1)
	c.Dispatch(ToolRectangle, Move(30, 30))
	assert.Empty(t, b.drawing.Ops())
}

func TestPolygonCommittedOnToolChange(t *testing.T) {
	c, col, b := newTestController(1)
	for _, p := range []geometry.Point2D{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 30, Y: 40}} {
		c.Dispatch(ToolPath, Down(p.X, p.Y))
	}
	assert.Len(t, c.Pending(), 3)
	assert.Equal(t, 3, b.drawing.Count(surface.OpFill))

	c.Transition(ToolPath, ToolCursor)
	require.Equal(t, 1, col.Len())
	p := col.Shapes()[0].(*shape.Polygon)
	assert.Equal(t, "10,10 50,10 30,40", p.PointsString())
	assert.Empty(t, c.Pending())
	assert.Empty(t, b.drawing.Ops())
}

func TestPolygonWithTooFewPointsDiscarded(t *testing.T) {
	c, col, _ := newTestController(1)
	c.Dispatch(ToolPath, Down(10, 10))
	c.Dispatch(ToolPath, Down(20, 20))
	c.Transition(ToolPath, ToolHand)
	assert.Zero(t, col.Len())
	assert.Empty(t, c.Pending())
}

func TestReselectingPolygonToolCloses(t *testing.T) {
	c, col, _ := newTestController(1)
	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}} {
		c.Dispatch(ToolPath, Down(p.X, p.Y))
	}
	c.Transition(ToolPath, ToolPath)
	assert.Equal(t, 1, col.Len())

	c.Dispatch(ToolPath, Down(50, 50))
	assert.Len(t, c.Pending(), 1)
}

func TestHoverHighlightsFirstMatchOnly(t *testing.T) {
	c, col, _ := newTestController(1)
	a := shape.NewRectangle(geometry.NewRect(0, 0, 100, 100), geometry.ScaleTransform(1), shape.DefaultAppearance)
	b := shape.NewRectangle(geometry.NewRect(50, 50, 100, 100), geometry.ScaleTransform(1), shape.DefaultAppearance)
	col.Add(a)
	col.Add(b)
	c.Repaint()

	c.Dispatch(ToolCursor, Move(75, 75))
	assert.Same(t, a, c.Highlighted())
	assert.Equal(t, shape.DefaultTemporaryAppearance, a.Appearance())
	assert.Equal(t, shape.DefaultAppearance, b.Appearance())

	c.Dispatch(ToolCursor, Move(140, 140))
	assert.Same(t, b, c.Highlighted())
	assert.Equal(t, shape.DefaultAppearance, a.Appearance())
	assert.Equal(t, shape.DefaultTemporaryAppearance, b.Appearance())

	c.Dispatch(ToolCursor, Move(300, 300))
	assert.Nil(t, c.Highlighted())
	for _, s := range col.Shapes() {
		assert.Equal(t, shape.DefaultAppearance, s.Appearance())
	}
}

func TestDragMovesByFrameDelta(t *testing.T) {
	c, col, b := newTestController(2)
	r := shape.NewRectangle(geometry.NewRect(20, 20, 40, 40), geometry.ScaleTransform(2), shape.DefaultAppearance)
	col.Add(r)
	c.Repaint()
	c.Dispatch(ToolCursor, Move(30, 30))
	require.Same(t, r, c.Highlighted())

	c.Dispatch(ToolCursor, Down(30, 30))
	assert.True(t, c.Dragging())
	centre, ok := r.CurrentCentre()
	assert.True(t, ok)
	assert.Equal(t, geometry.Pt(15, 15), centre)

	c.Dispatch(ToolCursor, Drag(40, 30))
	c.Dispatch(ToolCursor, Drag(50, 50))
	assert.Equal(t, 1, b.drawing.Count(surface.OpFill))

	c.Dispatch(ToolCursor, Up(50, 50))
	assert.False(t, c.Dragging())
	assert.Equal(t, geometry.NewRect(40, 40, 40, 40), r.Rect())
	assert.Equal(t, shape.ScaledRect{X: 20, Y: 20, RX: 40, RY: 40, Width: 20, Height: 20}, r.Scaled())
	assert.Equal(t, shape.DefaultAppearance, r.Appearance())
	_, ok = r.CurrentCentre()
	assert.False(t, ok)
	assert.Equal(t, []string{r.ID()}, []string{col.Shapes()[0].ID()})
	assert.Empty(t, b.drawing.Ops())
}

func TestDragKeepsPaintOrder(t *testing.T) {
	c, col, _ := newTestController(1)
	a := shape.NewRectangle(geometry.NewRect(0, 0, 20, 20), geometry.ScaleTransform(1), shape.DefaultAppearance)
	b := shape.NewRectangle(geometry.NewRect(100, 100, 20, 20), geometry.ScaleTransform(1), shape.DefaultAppearance)
	col.Add(a)
	col.Add(b)
	c.Repaint()

	c.Dispatch(ToolCursor, Move(10, 10))
	drag(c, ToolCursor, geometry.Pt(10, 10), geometry.Pt(60, 60))
	shapes := col.Shapes()
	assert.Equal(t, []string{a.ID(), b.ID()}, []string{shapes[0].ID(), shapes[1].ID()})
}

func TestEraseRemovesHighlighted(t *testing.T) {
	c, col, b := newTestController(1)
	r := shape.NewRectangle(geometry.NewRect(0, 0, 50, 50), geometry.ScaleTransform(1), shape.DefaultAppearance)
	col.Add(r)
	c.Repaint()

	c.Dispatch(ToolErasing, Down(200, 200))
	assert.Equal(t, 1, col.Len())

	c.Dispatch(ToolErasing, Move(10, 10))
	c.Dispatch(ToolErasing, Down(10, 10))
	assert.Zero(t, col.Len())
	assert.Nil(t, c.Highlighted())
	assert.Empty(t, b.synced[len(b.synced)-1])
}

func TestLeavingCursorResetsAppearance(t *testing.T) {
	c, col, _ := newTestController(1)
	r := shape.NewRectangle(geometry.NewRect(0, 0, 50, 50), geometry.ScaleTransform(1), shape.DefaultAppearance)
	col.Add(r)
	c.Dispatch(ToolCursor, Move(10, 10))
	require.Equal(t, shape.DefaultTemporaryAppearance, r.Appearance())

	c.Transition(ToolCursor, ToolHand)
	assert.Equal(t, shape.DefaultAppearance, r.Appearance())
	assert.Nil(t, c.Highlighted())
}

func TestNavigationToolsNeverMutateCollection(t *testing.T) {
	c, col, b := newTestController(1)
	r := shape.NewRectangle(geometry.NewRect(0, 0, 50, 50), geometry.ScaleTransform(1), shape.DefaultAppearance)
	col.Add(r)
	before := r.Rect()

	events := []Event{Down(10, 10), Drag(30, 40), Drag(60, 60), Up(60, 60), Move(5, 5), Leave(0, 0)}
	for _, tool := range []Tool{ToolHand, ToolZoom} {
		for _, ev := range events {
			assert.Equal(t, tool, c.Dispatch(tool, ev))
		}
	}
	assert.Equal(t, 1, col.Len())
	assert.Equal(t, before, r.Rect())
	assert.Equal(t, shape.DefaultAppearance, r.Appearance())
	assert.Equal(t, []geometry.Point2D{{X: 20, Y: 30}, {X: 30, Y: 20}}, b.pans)
	assert.Equal(t, []bool{true}, b.zooms)
}

func TestZoomOutWithCtrlOrSecondary(t *testing.T) {
	c, _, b := newTestController(1)
	c.Dispatch(ToolZoom, Event{Kind: PointerDown, X: 5, Y: 5, Buttons: ButtonPrimary, Ctrl: true})
	assert.Equal(t, CursorZoomOut, c.Cursor())
	c.Dispatch(ToolZoom, Event{Kind: PointerDown, X: 5, Y: 5, Buttons: ButtonSecondary})
	c.Dispatch(ToolZoom, Down(5, 5))
	assert.Equal(t, []bool{false, false, true}, b.zooms)
}

func TestEventsIgnoredBeforeLoad(t *testing.T) {
	c, col, b := newTestController(1)
	b.ready = false
	assert.Equal(t, ToolRectangle, drag(c, ToolRectangle, geometry.Pt(0, 0), geometry.Pt(50, 50)))
	assert.Zero(t, col.Len())
}

func TestTransitionNotifiesBackend(t *testing.T) {
	c, _, b := newTestController(1)
	c.Transition(ToolHand, ToolZoom)
	c.Transition(ToolZoom, ToolZoom)
	assert.Equal(t, []Tool{ToolZoom}, b.tools)
	assert.Equal(t, CursorZoomIn, c.Cursor())
}

func TestResetClearsEverything(t *testing.T) {
	c, col, b := newTestController(1)
	drag(c, ToolRectangle, geometry.Pt(0, 0), geometry.Pt(50, 50))
	c.Dispatch(ToolPath, Down(1, 1))
	c.Reset()
	assert.Zero(t, col.Len())
	assert.Empty(t, c.Pending())
	assert.Empty(t, b.storage.Ops())
}

func TestNewShapesUseConfiguredAppearance(t *testing.T) {
	c, col, _ := newTestController(1)
	a := shape.Appearance{FillStyle: "rgba(1, 2, 3, 0.5)", StrokeStyle: "rgba(1, 2, 3, 1)", LineWidth: 3}
	c.SetAppearance(a)
	drag(c, ToolRectangle, geometry.Pt(0, 0), geometry.Pt(50, 50))
	require.Equal(t, 1, col.Len())
	assert.Equal(t, a, col.Shapes()[0].OriginalAppearance())
}

func TestToolValid(t *testing.T) {
	for _, tool := range Tools() {
		assert.True(t, tool.Valid())
	}
	assert.False(t, Tool("lasso").Valid())
	assert.Equal(t, CursorGrabbing, CursorFor(ToolHand, true))
	assert.Equal(t, CursorDefault, CursorFor(Tool("lasso"), false))
}
