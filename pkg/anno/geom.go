package anno

import (
	"github.com/chewxy/math32"
)

// Vec2 is a 2D coordinate. In normalized space both components are in [0,1].
// In surface space they are pixels, origin at the bottom-left, y increasing upward.
type Vec2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

func (v Vec2) Distance(b Vec2) float32 {
	return math32.Sqrt((v.X-b.X)*(v.X-b.X) + (v.Y-b.Y)*(v.Y-b.Y))
}

type Rect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

func (r Rect) Area() float32 {
	return r.Width * r.Height
}

func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether the point lies in the rect. Edges are inclusive.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// BoundsOf returns the axis-aligned bounding box of a vertex list.
// Returns a zero Rect for an empty list.
func BoundsOf(verts []Vec2) Rect {
	if len(verts) == 0 {
		return Rect{}
	}
	minX, minY := verts[0].X, verts[0].Y
	maxX, maxY := minX, minY
	for _, v := range verts[1:] {
		minX = math32.Min(minX, v.X)
		minY = math32.Min(minY, v.Y)
		maxX = math32.Max(maxX, v.X)
		maxY = math32.Max(maxY, v.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
