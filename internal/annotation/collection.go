// Package annotation holds the ordered list of live shapes.
package annotation

import (
	"sync"

	"image-annotator/internal/shape"
	"image-annotator/internal/surface"
)

// ChangeListener is called after every mutation of a Collection.
type ChangeListener func()

// Collection is an ordered set of shapes. Insertion order is paint order
// and export order. Ids are unique within a collection.
type Collection struct {
	mu        sync.RWMutex
	shapes    []shape.Shape
	listeners []ChangeListener
}

// New creates an empty collection.
func New() *Collection {
	return &Collection{}
}

// OnChange registers a listener for mutations.
func (c *Collection) OnChange(l ChangeListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Add appends s. It returns false, leaving the collection unchanged, if s is
// nil or its id is already present.
func (c *Collection) Add(s shape.Shape) bool {
	if s == nil {
		return false
	}
	c.mu.Lock()
	if c.indexOf(s.ID()) >= 0 {
		c.mu.Unlock()
		return false
	}
	c.shapes = append(c.shapes, s)
	c.mu.Unlock()
	c.notify()
	return true
}

// Remove deletes the shape with id. An absent id is a no-op.
func (c *Collection) Remove(id string) bool {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.shapes = append(c.shapes[:i], c.shapes[i+1:]...)
	c.mu.Unlock()
	c.notify()
	return true
}

// Replace swaps the shape with id for s at the same position. An absent id,
// or an s whose id belongs to a different member, is a no-op.
func (c *Collection) Replace(id string, s shape.Shape) bool {
	if s == nil {
		return false
	}
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	if j := c.indexOf(s.ID()); j >= 0 && j != i {
		c.mu.Unlock()
		return false
	}
	c.shapes[i] = s
	c.mu.Unlock()
	c.notify()
	return true
}

// Clear removes every shape.
func (c *Collection) Clear() {
	c.mu.Lock()
	c.shapes = nil
	c.mu.Unlock()
	c.notify()
}

// ResetAllAppearance restores every member's original appearance.
func (c *Collection) ResetAllAppearance() {
	c.mu.RLock()
	for _, s := range c.shapes {
		s.ResetAppearance()
	}
	c.mu.RUnlock()
	c.notify()
}

// Get returns the shape with id.
func (c *Collection) Get(id string) (shape.Shape, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.shapes[i], true
	}
	return nil, false
}

// Shapes returns a snapshot of the members in paint order.
func (c *Collection) Shapes() []shape.Shape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]shape.Shape(nil), c.shapes...)
}

// Len returns the number of members.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shapes)
}

// HitTest returns the first shape in paint order containing surface point
// (x, y). The scan stops at the first hit.
func (c *Collection) HitTest(s surface.Surface, x, y float64) (shape.Shape, bool) {
	for _, sh := range c.Shapes() {
		if sh.IsPointInside(s, x, y) {
			return sh, true
		}
	}
	return nil, false
}

// Draw paints every member onto s in paint order, registering hit regions.
// Shapes whose id is in skip are left out.
func (c *Collection) Draw(s surface.Surface, skip string) {
	for _, sh := range c.Shapes() {
		if skip != "" && sh.ID() == skip {
			continue
		}
		sh.Draw(s, true)
	}
}

func (c *Collection) indexOf(id string) int {
	for i, s := range c.shapes {
		if s.ID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection) notify() {
	c.mu.RLock()
	listeners := append([]ChangeListener(nil), c.listeners...)
	c.mu.RUnlock()
	for _, l := range listeners {
		l()
	}
}
