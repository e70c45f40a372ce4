package editor

import (
	"log/slog"

	"image-annotator/internal/annotation"
	"image-annotator/internal/shape"
	"image-annotator/internal/surface"
	"image-annotator/pkg/geometry"
)

// Options configures a Controller.
type Options struct {
	Appearance          shape.Appearance
	TemporaryAppearance shape.Appearance
	PointRadius         float64
}

// Controller applies tool gestures to a collection through a Backend. It
// holds gesture state only; the active tool is passed to every call. A
// Controller is not safe for concurrent use.
type Controller struct {
	logger     *slog.Logger
	collection *annotation.Collection
	backend    Backend
	opts       Options

	// rectangle gesture, display space of anchorTr
	anchor    geometry.Point2D
	anchorTr  geometry.Transform
	rectangle bool

	// pending polygon vertices, display space of pendingTr
	pending   []geometry.Point2D
	pendingTr geometry.Transform

	highlighted shape.Shape
	dragging    bool
	lastSurface geometry.Point2D

	panning    bool
	lastScreen geometry.Point2D

	cursor string
}

// NewController creates a controller editing collection through backend.
func NewController(collection *annotation.Collection, backend Backend, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Appearance == (shape.Appearance{}) {
		opts.Appearance = shape.DefaultAppearance
	}
	if opts.TemporaryAppearance == (shape.Appearance{}) {
		opts.TemporaryAppearance = shape.DefaultTemporaryAppearance
	}
	if opts.PointRadius <= 0 {
		opts.PointRadius = shape.PointRadius
	}
	return &Controller{
		logger:     logger,
		collection: collection,
		backend:    backend,
		opts:       opts,
		cursor:     CursorFor(DefaultTool, false),
	}
}

// Backend returns the current backend.
func (c *Controller) Backend() Backend { return c.backend }

// SetBackend swaps the backend. Gesture state is discarded.
func (c *Controller) SetBackend(b Backend) {
	c.cancelGestures()
	c.backend = b
}

// SetAppearance sets the paint given to shapes created from now on.
func (c *Controller) SetAppearance(a shape.Appearance) { c.opts.Appearance = a }

// Appearance returns the paint for new shapes.
func (c *Controller) Appearance() shape.Appearance { return c.opts.Appearance }

// Cursor returns the cursor for the last handled event.
func (c *Controller) Cursor() string { return c.cursor }

// Highlighted returns the shape under the pointer, if any.
func (c *Controller) Highlighted() shape.Shape { return c.highlighted }

// Dragging reports whether a shape is being moved.
func (c *Controller) Dragging() bool { return c.dragging }

// Pending returns a copy of the pending polygon vertices in display space.
func (c *Controller) Pending() []geometry.Point2D {
	return append([]geometry.Point2D(nil), c.pending...)
}

// Dispatch handles ev under tool and returns the tool that should be active
// afterwards. Events before a background is loaded are ignored.
func (c *Controller) Dispatch(tool Tool, ev Event) Tool {
	if c.backend == nil || !c.backend.Ready() {
		return tool
	}
	_, pt := c.backend.Locate(ev.Screen())
	switch tool {
	case ToolHand:
		c.hand(ev)
	case ToolZoom:
		c.zoom(ev)
	case ToolRectangle:
		return c.rectangleGesture(tool, ev, pt)
	case ToolPath:
		c.pathGesture(ev, pt)
	case ToolCursor:
		c.cursorGesture(ev, pt)
	case ToolErasing:
		c.eraseGesture(ev, pt)
	default:
		c.logger.Warn("event for unknown tool", "tool", string(tool), "event", ev.Kind.String())
	}
	return tool
}

func (c *Controller) hand(ev Event) {
	switch ev.Kind {
	case PointerDown:
		c.panning = true
		c.lastScreen = ev.Screen()
	case PointerMove:
		if !c.panning || !ev.Primary() {
			return
		}
		d := ev.Screen().Sub(c.lastScreen)
		c.lastScreen = ev.Screen()
		c.backend.Pan(d.X, d.Y)
	case PointerUp, PointerLeave:
		c.panning = false
	}
	c.cursor = CursorFor(ToolHand, c.panning)
}

func (c *Controller) zoom(ev Event) {
	out := ev.Ctrl || ev.Secondary()
	switch ev.Kind {
	case PointerDown:
		c.backend.Zoom(!out, ev.Screen())
	case PointerUp:
		out = ev.Ctrl
	}
	c.cursor = CursorFor(ToolZoom, out)
}

// rectangleGesture tracks a drag. Corners are located in surface pixels and
// expressed in the display space of the transform captured at the press.
func (c *Controller) rectangleGesture(tool Tool, ev Event, pt geometry.Point2D) Tool {
	c.cursor = CursorFor(ToolRectangle, false)
	drawing := c.backend.Drawing()
	switch ev.Kind {
	case PointerDown:
		c.anchorTr = c.backend.Transform()
		c.anchor = c.anchorTr.ToDisplay(pt)
		c.rectangle = true
	case PointerMove:
		if !c.rectangle || !ev.Primary() {
			return tool
		}
		surface.ClearAll(drawing)
		d := c.anchorTr.ToDisplay(pt).Sub(c.anchor)
		shape.DrawTemporaryRectangle(drawing, geometry.NewRect(c.anchor.X, c.anchor.Y, d.X, d.Y), c.anchorTr, c.opts.TemporaryAppearance)
	case PointerUp, PointerLeave:
		if !c.rectangle {
			return tool
		}
		c.rectangle = false
		surface.ClearAll(drawing)
		d := c.anchorTr.ToDisplay(pt).Sub(c.anchor)
		r := geometry.NormalizeDrag(c.anchor, d.X, d.Y)
		if r.Width > 0 && r.Height > 0 {
			s := shape.NewRectangle(r, c.anchorTr, c.opts.Appearance)
			c.collection.Add(s)
			c.logger.Debug("rectangle added", "id", s.ID())
			c.Repaint()
		}
		return ToolCursor
	}
	return tool
}

// pathGesture adds a vertex per press, expressed like rectangle corners in
// the transform captured at the first vertex.
func (c *Controller) pathGesture(ev Event, pt geometry.Point2D) {
	c.cursor = CursorFor(ToolPath, false)
	if ev.Kind != PointerDown {
		return
	}
	if len(c.pending) == 0 {
		c.pendingTr = c.backend.Transform()
	}
	c.pending = append(c.pending, c.pendingTr.ToDisplay(pt))
	c.drawPending()
}

func (c *Controller) drawPending() {
	drawing := c.backend.Drawing()
	surface.ClearAll(drawing)
	for _, p := range c.pending {
		shape.DrawPoint(drawing, p, c.opts.PointRadius, c.pendingTr, c.opts.TemporaryAppearance)
	}
}

// ClosePolygon commits the pending vertices as a polygon. Fewer than three
// vertices are discarded. It reports whether a polygon was added.
func (c *Controller) ClosePolygon() bool {
	points, tr := c.pending, c.pendingTr
	c.pending, c.pendingTr = nil, nil
	if c.backend != nil {
		surface.ClearAll(c.backend.Drawing())
	}
	p, ok := shape.NewPolygon(points, tr, c.opts.Appearance)
	if !ok {
		if len(points) > 0 {
			c.logger.Debug("polygon discarded", "points", len(points))
		}
		return false
	}
	c.collection.Add(p)
	c.logger.Debug("polygon added", "id", p.ID(), "points", len(points))
	c.Repaint()
	return true
}

func (c *Controller) cursorGesture(ev Event, pt geometry.Point2D) {
	switch ev.Kind {
	case PointerMove:
		if c.dragging {
			if ev.Primary() {
				c.dragTo(pt)
			}
			break
		}
		c.hover(pt)
	case PointerDown:
		c.hover(pt)
		if c.highlighted == nil {
			break
		}
		c.dragging = true
		c.lastSurface = pt
		c.highlighted.SetCurrentCentre(pt)
		c.Repaint()
	case PointerUp, PointerLeave:
		if c.dragging {
			c.drop()
		}
	}
	c.cursor = CursorFor(ToolCursor, c.dragging || c.highlighted != nil)
}

func (c *Controller) dragTo(pt geometry.Point2D) {
	s := c.highlighted
	s.MoveBy(pt.Sub(c.lastSurface))
	s.SetCurrentCentre(pt)
	c.lastSurface = pt
	drawing := c.backend.Drawing()
	surface.ClearAll(drawing)
	s.Draw(drawing, false)
}

func (c *Controller) drop() {
	s := c.highlighted
	c.dragging = false
	c.highlighted = nil
	surface.ClearAll(c.backend.Drawing())
	if s == nil {
		return
	}
	s.ClearCurrentCentre()
	s.ResetAppearance()
	c.collection.Replace(s.ID(), s)
	c.logger.Debug("shape moved", "id", s.ID())
	c.Repaint()
}

func (c *Controller) eraseGesture(ev Event, pt geometry.Point2D) {
	c.cursor = CursorFor(ToolErasing, false)
	switch ev.Kind {
	case PointerMove:
		c.hover(pt)
	case PointerDown:
		c.hover(pt)
		if c.highlighted == nil {
			return
		}
		id := c.highlighted.ID()
		c.highlighted = nil
		c.collection.Remove(id)
		c.logger.Debug("shape erased", "id", id)
		c.Repaint()
	}
}

// hover highlights the first shape containing pt and restores the previous one.
func (c *Controller) hover(pt geometry.Point2D) {
	hit, ok := c.collection.HitTest(c.backend.Storage(), pt.X, pt.Y)
	if !ok {
		hit = nil
	}
	if hit == c.highlighted {
		return
	}
	if c.highlighted != nil {
		c.highlighted.ResetAppearance()
	}
	if hit != nil {
		hit.SetAppearance(c.opts.TemporaryAppearance)
	}
	c.highlighted = hit
	c.Repaint()
}

// Transition applies the side effects of switching from one tool to
// another. Reselecting the polygon tool closes the pending polygon.
func (c *Controller) Transition(from, to Tool) {
	if from == to {
		if to == ToolPath {
			c.ClosePolygon()
		}
		return
	}
	switch from {
	case ToolPath:
		c.ClosePolygon()
	case ToolRectangle:
		c.rectangle = false
		if c.backend != nil {
			surface.ClearAll(c.backend.Drawing())
		}
	case ToolCursor, ToolErasing:
		if c.dragging {
			c.drop()
		}
		c.highlighted = nil
		c.collection.ResetAllAppearance()
	case ToolHand:
		c.panning = false
	}
	c.cursor = CursorFor(to, false)
	if c.backend != nil {
		c.backend.ToolChanged(to)
	}
	c.Repaint()
}

// Reset drops every shape and all gesture state.
func (c *Controller) Reset() {
	c.cancelGestures()
	c.collection.Clear()
	c.Repaint()
}

func (c *Controller) cancelGestures() {
	c.rectangle = false
	c.pending, c.pendingTr = nil, nil
	c.highlighted = nil
	c.dragging = false
	c.panning = false
	if c.backend != nil {
		surface.ClearAll(c.backend.Drawing())
	}
}

// Repaint redraws the storage surface from the collection. A shape being
// dragged is left out and painted on the drawing surface instead.
func (c *Controller) Repaint() {
	if c.backend == nil {
		return
	}
	storage := c.backend.Storage()
	surface.ClearAll(storage)
	skip := ""
	if c.dragging && c.highlighted != nil {
		skip = c.highlighted.ID()
	}
	c.collection.Draw(storage, skip)
	if skip != "" {
		drawing := c.backend.Drawing()
		surface.ClearAll(drawing)
		c.highlighted.Draw(drawing, false)
	}
	c.backend.Sync(c.collection.Shapes())
}
