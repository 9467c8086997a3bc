package anno

import (
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func solidColor(tagID int) string {
	return "#ffffff"
}

func TestMapToShapesFlipsY(t *testing.T) {
	logger := logs.NewTestingLog(t)
	annotations := []Annotation{
		{
			ID:        "a1",
			TagID:     3,
			BoundType: BoundRectangle,
			Vertices: []Vec2{
				{X: 0, Y: 0},
				{X: 1, Y: 0},
				{X: 1, Y: 1},
				{X: 0, Y: 1},
			},
			Confidence: 0.9,
		},
	}
	shapes := MapToShapes(logger, annotations, 800, 600, solidColor)
	require.Len(t, shapes, 1)
	s := shapes[0]
	require.Equal(t, "a1", s.ID)
	require.Equal(t, ShapeRectangle, s.Kind)
	// Normalized top-left (0,0) lands at surface (0,600): the surface origin
	// is at the bottom-left.
	require.Equal(t, Vec2{X: 0, Y: 600}, s.Vertices[0])
	require.Equal(t, Vec2{X: 800, Y: 600}, s.Vertices[1])
	require.Equal(t, Vec2{X: 800, Y: 0}, s.Vertices[2])
	require.Equal(t, Vec2{X: 0, Y: 0}, s.Vertices[3])
}

func TestMapToShapesPerVertexFlip(t *testing.T) {
	// A non-axis-aligned triangle. Flipping per-vertex keeps the winding and
	// relative geometry intact, which a bounding-box flip would not.
	logger := logs.NewTestingLog(t)
	annotations := []Annotation{
		{
			ID:        "tri",
			BoundType: BoundPolygon,
			Vertices: []Vec2{
				{X: 0.1, Y: 0.2},
				{X: 0.5, Y: 0.9},
				{X: 0.8, Y: 0.4},
			},
		},
	}
	shapes := MapToShapes(logger, annotations, 100, 200, solidColor)
	require.Len(t, shapes, 1)
	require.Equal(t, ShapePolygon, shapes[0].Kind)
	require.InDelta(t, 10, shapes[0].Vertices[0].X, 1e-4)
	require.InDelta(t, 160, shapes[0].Vertices[0].Y, 1e-4)
	require.InDelta(t, 50, shapes[0].Vertices[1].X, 1e-4)
	require.InDelta(t, 20, shapes[0].Vertices[1].Y, 1e-4)
	require.InDelta(t, 80, shapes[0].Vertices[2].X, 1e-4)
	require.InDelta(t, 120, shapes[0].Vertices[2].Y, 1e-4)
}

func TestMapToShapesRoundTrip(t *testing.T) {
	logger := logs.NewTestingLog(t)
	annotations := []Annotation{
		{
			ID:        "rt",
			BoundType: BoundMask,
			Vertices: []Vec2{
				{X: 0.25, Y: 0.125},
				{X: 0.75, Y: 0.5},
				{X: 0.3125, Y: 0.875},
			},
		},
	}
	shapes := MapToShapes(logger, annotations, 1024, 768, solidColor)
	require.Len(t, shapes, 1)
	back := shapes[0].Normalize(1024, 768)
	for i, v := range back {
		require.InDelta(t, annotations[0].Vertices[i].X, v.X, 1e-5)
		require.InDelta(t, annotations[0].Vertices[i].Y, v.Y, 1e-5)
	}
}

func TestMapToShapesDropsUnknownBoundType(t *testing.T) {
	logger := logs.NewTestingLog(t)
	annotations := []Annotation{
		{ID: "good", BoundType: BoundRectangle, Vertices: []Vec2{{X: 0.5, Y: 0.5}}},
		{ID: "bad", BoundType: "ellipse", Vertices: []Vec2{{X: 0.5, Y: 0.5}}},
	}
	shapes := MapToShapes(logger, annotations, 100, 100, solidColor)
	require.Len(t, shapes, 1)
	require.Equal(t, "good", shapes[0].ID)
}

func TestBoundsOf(t *testing.T) {
	require.Equal(t, Rect{}, BoundsOf(nil))
	r := BoundsOf([]Vec2{{X: 3, Y: 7}, {X: 1, Y: 9}, {X: 5, Y: 8}})
	require.Equal(t, Rect{X: 1, Y: 7, Width: 4, Height: 2}, r)
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 2, Y: 3, Width: 10, Height: 4}
	require.True(t, r.Contains(Vec2{X: 5, Y: 5}))
	// Edges are inclusive.
	require.True(t, r.Contains(Vec2{X: 2, Y: 3}))
	require.True(t, r.Contains(Vec2{X: 12, Y: 7}))
	require.False(t, r.Contains(Vec2{X: 1.9, Y: 5}))
	require.False(t, r.Contains(Vec2{X: 5, Y: 7.1}))
	require.Equal(t, Vec2{X: 7, Y: 5}, r.Center())
	require.Equal(t, float32(5), Vec2{X: 0, Y: 0}.Distance(Vec2{X: 3, Y: 4}))
}

func TestClassifyAsset(t *testing.T) {
	a := ClassifyAsset("folder%2Fcat.jpg")
	require.Equal(t, AssetImage, a.Type)
	require.Equal(t, "cat.jpg", a.Filename)
	require.Equal(t, "folder/cat.jpg", a.LocalPath)
	require.Equal(t, "folder%2Fcat.jpg", a.URL)

	v := ClassifyAsset("clips%2Fdrive.MP4")
	require.Equal(t, AssetVideo, v.Type)
	require.Equal(t, "drive.MP4", v.Filename)

	// Extension matching is case-insensitive and not anchored to the end.
	require.Equal(t, AssetVideo, ClassifyAsset("a.mov.backup").Type)
	require.Equal(t, AssetVideo, ClassifyAsset("b.WMV").Type)
	require.Equal(t, AssetImage, ClassifyAsset("c.png").Type)

	// Windows-style paths split on backslash.
	w := ClassifyAsset("C%3A%5Cdata%5Cdog.jpg")
	require.Equal(t, "dog.jpg", w.Filename)
}
