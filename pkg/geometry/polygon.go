package geometry

// BoundingBox computes the axis-aligned bounds of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// NormalizeDrag turns an anchor corner and a signed drag extent into a
// rectangle with non-negative size. On an axis with a negative extent the
// top-left corner moves to the far end instead.
func NormalizeDrag(anchor Point2D, width, height float64) Rect {
	r := Rect{X: anchor.X, Y: anchor.Y, Width: width, Height: height}
	if width < 0 {
		r.X = anchor.X + width
		r.Width = -width
	}
	if height < 0 {
		r.Y = anchor.Y + height
		r.Height = -height
	}
	return r
}
