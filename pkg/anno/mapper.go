package anno

import (
	"github.com/cyclopcam/logs"
)

// ShapeKind is what the rendering surface draws. Masks and polygons collapse
// into the same primitive; the distinction only matters server-side.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapePolygon   ShapeKind = "polygon"
)

// Shape is one annotation, mapped into surface coordinates. The ID is the
// source annotation's ID, so the surface can diff/animate across renders
// instead of rebuilding its layer set.
type Shape struct {
	ID         string    `json:"id"`
	TagID      int       `json:"tagID"`
	Kind       ShapeKind `json:"kind"`
	Vertices   []Vec2    `json:"vertices"` // Surface coordinates (pixels, origin bottom-left)
	Color      string    `json:"color"`    // Stroke and fill color, eg "#f3722c"
	Confidence float32   `json:"confidence"`
}

func (s *Shape) Bounds() Rect {
	return BoundsOf(s.Vertices)
}

// Normalize is the inverse of MapToShapes for one shape: it re-normalizes the
// surface-space vertices against the same asset dimensions, recovering the
// top-left-origin fractional coordinates the annotation arrived with.
func (s *Shape) Normalize(assetWidth, assetHeight int) []Vec2 {
	out := make([]Vec2, len(s.Vertices))
	for i, v := range s.Vertices {
		out[i] = Vec2{
			X: v.X / float32(assetWidth),
			Y: 1 - v.Y/float32(assetHeight),
		}
	}
	return out
}

// MapToShapes converts an asset's annotation list into surface-space shape
// descriptors. The surface's origin is at the bottom-left, so we flip the
// vertical axis per-vertex (1 - y). Flipping per bounding box instead would
// mirror non-axis-aligned polygons.
// Annotations with an unrecognized bound type are skipped, not fatal.
func MapToShapes(log logs.Log, annotations []Annotation, assetWidth, assetHeight int, colorForTag func(tagID int) string) []Shape {
	shapes := make([]Shape, 0, len(annotations))
	for _, a := range annotations {
		var kind ShapeKind
		switch a.BoundType {
		case BoundRectangle:
			kind = ShapeRectangle
		case BoundPolygon, BoundMask:
			kind = ShapePolygon
		default:
			log.Warnf("Dropping annotation %v with unrecognized bound type %q", a.ID, a.BoundType)
			continue
		}
		verts := make([]Vec2, len(a.Vertices))
		for i, v := range a.Vertices {
			verts[i] = Vec2{
				X: v.X * float32(assetWidth),
				Y: (1 - v.Y) * float32(assetHeight),
			}
		}
		shapes = append(shapes, Shape{
			ID:         a.ID,
			TagID:      a.TagID,
			Kind:       kind,
			Vertices:   verts,
			Color:      colorForTag(a.TagID),
			Confidence: a.Confidence,
		})
	}
	return shapes
}
