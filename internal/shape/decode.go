package shape

import (
	"encoding/json"
	"errors"
	"fmt"

	"image-annotator/pkg/geometry"
)

// ErrUnknownShape is returned by Decode for a record with an unrecognised name.
var ErrUnknownShape = errors.New("unknown shape")

// Decode rebuilds a shape from its JSON dump. When tr is nil the recorded
// scale is used as a fixed-canvas transform. The recorded id is kept.
func Decode(data []byte, tr geometry.Transform) (Shape, error) {
	var head struct {
		ID                 string      `json:"id"`
		Name               Kind        `json:"name"`
		Scale              float64     `json:"scale"`
		OriginalAppearance *Appearance `json:"originalAppearance"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode shape: %w", err)
	}
	if tr == nil {
		tr = geometry.ScaleTransform(head.Scale)
	}

	var s Shape
	switch head.Name {
	case KindRectangle:
		var rec rectangleJSON
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode rectangle: %w", err)
		}
		s = NewRectangle(geometry.NewRect(rec.X, rec.Y, rec.Width, rec.Height), tr, rec.Appearance)
	case KindPolygon:
		var rec polygonJSON
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode polygon: %w", err)
		}
		p, ok := NewPolygon(rec.Points, tr, rec.Appearance)
		if !ok {
			return nil, fmt.Errorf("decode polygon: %d points, need %d", len(rec.Points), MinPolygonPoints)
		}
		s = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, head.Name)
	}

	if head.OriginalAppearance != nil {
		s.SetOriginalAppearance(*head.OriginalAppearance)
	}
	if head.ID != "" {
		setID(s, head.ID)
	}
	return s, nil
}

// Rekey gives s a fresh id of its kind.
func Rekey(s Shape) {
	setID(s, NewID(s.Kind()))
}

func setID(s Shape, id string) {
	switch v := s.(type) {
	case *Rectangle:
		v.id = id
	case *Polygon:
		v.id = id
	}
}
