package geometry

// Transform converts between the display space a shape was drawn in and
// source-image pixels. Each surface type supplies one implementation.
type Transform interface {
	// ToImage maps a display-space point to source-image pixels.
	ToImage(p Point2D) Point2D
	// ToDisplay maps source-image pixels back to display space.
	ToDisplay(p Point2D) Point2D
	// Factor is the display-per-image ratio recorded in exports.
	Factor() float64
}

// ScaleTransform is the fixed-canvas transform: image = display / scale.
type ScaleTransform float64

// ToImage implements Transform.
func (s ScaleTransform) ToImage(p Point2D) Point2D {
	f := s.Factor()
	return Point2D{X: p.X / f, Y: p.Y / f}
}

// ToDisplay implements Transform.
func (s ScaleTransform) ToDisplay(p Point2D) Point2D {
	return p.Scale(s.Factor())
}

// Factor implements Transform. A zero or negative scale behaves as 1.
func (s ScaleTransform) Factor() float64 {
	if s <= 0 {
		return 1
	}
	return float64(s)
}

// AffineImageTransform adapts an invertible display-to-image affine matrix.
type AffineImageTransform struct {
	toImage   AffineTransform
	toDisplay AffineTransform
}

// NewAffineImageTransform builds a Transform from a display-to-image matrix.
// It returns false if the matrix cannot be inverted.
func NewAffineImageTransform(toImage AffineTransform) (AffineImageTransform, bool) {
	inv, ok := toImage.Inverse()
	if !ok {
		return AffineImageTransform{}, false
	}
	return AffineImageTransform{toImage: toImage, toDisplay: inv}, true
}

// ToImage implements Transform.
func (t AffineImageTransform) ToImage(p Point2D) Point2D {
	return t.toImage.Apply(p)
}

// ToDisplay implements Transform.
func (t AffineImageTransform) ToDisplay(p Point2D) Point2D {
	return t.toDisplay.Apply(p)
}

// Factor implements Transform using the horizontal display-per-image ratio.
func (t AffineImageTransform) Factor() float64 {
	if t.toImage.A == 0 {
		return 1
	}
	return 1 / t.toImage.A
}

// MoveInImage shifts display-space points by an image-space delta, as seen
// through tr. It is how a drag measured on a surface moves stored geometry.
func MoveInImage(tr Transform, points []Point2D, delta Point2D) []Point2D {
	out := make([]Point2D, len(points))
	for i, p := range points {
		out[i] = tr.ToDisplay(tr.ToImage(p).Add(delta))
	}
	return out
}
