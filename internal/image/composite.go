package image

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"image-annotator/pkg/geometry"
)

// Composite stacks same-sized layers and renders them through a view transform.
type Composite struct {
	Width     int
	Height    int
	BackColor color.Color
	Layers    []image.Image
}

// NewComposite creates a viewport-sized composite with a dark backdrop.
func NewComposite(width, height int) *Composite {
	return &Composite{
		Width:     width,
		Height:    height,
		BackColor: color.RGBA{40, 40, 40, 255},
	}
}

// AddLayer appends a layer above the existing ones. Nil layers are ignored.
func (c *Composite) AddLayer(img image.Image) {
	if img != nil {
		c.Layers = append(c.Layers, img)
	}
}

// Render draws every layer, mapped by view from image pixels to viewport pixels.
func (c *Composite) Render(view geometry.AffineTransform) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, max(c.Width, 1), max(c.Height, 1)))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: c.BackColor}, image.Point{}, draw.Src)

	m := view.Aff3()
	aff := f64.Aff3{m[0], m[1], m[2], m[3], m[4], m[5]}
	for _, layer := range c.Layers {
		draw.ApproxBiLinear.Transform(out, aff, layer, layer.Bounds(), draw.Over, nil)
	}
	return out
}
