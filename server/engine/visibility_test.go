package engine

import (
	"testing"

	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/scopelabel/scopelabel/pkg/tagmap"
	"github.com/stretchr/testify/require"
)

func testTags() *tagmap.TagMap {
	return tagmap.New(map[string]int{
		"Person":     0,
		"Car":        1,
		"Dog":        2,
		"Politician": 3,
	})
}

func shape(id string, tagID int, confidence float32) anno.Shape {
	return anno.Shape{
		ID:         id,
		TagID:      tagID,
		Kind:       anno.ShapeRectangle,
		Vertices:   []anno.Vec2{{X: 0, Y: 0}, {X: 10, Y: 10}},
		Confidence: confidence,
	}
}

func visibleIDs(out []StyledShape) []string {
	ids := []string{}
	for _, s := range out {
		ids = append(ids, s.Shape.ID)
	}
	return ids
}

func TestConfidenceThresholdBoundary(t *testing.T) {
	shapes := []anno.Shape{
		shape("low", 0, 0.49),
		shape("exact", 0, 0.5),
		shape("high", 0, 0.51),
	}
	vis := DefaultVisibility()
	out := ComputeVisible(shapes, vis, testTags())
	// The threshold is inclusive: confidence == threshold renders.
	require.Equal(t, []string{"exact", "high"}, visibleIDs(out))

	vis.ConfidenceThreshold = 0
	out = ComputeVisible(shapes, vis, testTags())
	require.Len(t, out, 3)
}

func TestHiddenSet(t *testing.T) {
	shapes := []anno.Shape{
		shape("a", 0, 0.9),
		shape("b", 1, 0.9),
	}
	vis := DefaultVisibility()
	vis.HiddenAnnotationIDs = map[string]bool{"a": true}
	out := ComputeVisible(shapes, vis, testTags())
	require.Equal(t, []string{"b"}, visibleIDs(out))
}

func TestTagFilterIncludeExcludeSymmetry(t *testing.T) {
	shapes := []anno.Shape{
		shape("p", 0, 0.9), // Person
		shape("c", 1, 0.9), // Car
		shape("d", 2, 0.9), // Dog
	}
	vis := DefaultVisibility()

	// Include mode: only matching tags render. Matching is case-insensitive
	// substring.
	vis.TagFilter = TagFilter{Terms: []string{"car"}, IncludeMode: true}
	require.Equal(t, []string{"c"}, visibleIDs(ComputeVisible(shapes, vis, testTags())))

	// Exclude mode with the same terms renders exactly the complement.
	vis.TagFilter = TagFilter{Terms: []string{"car"}, IncludeMode: false}
	require.Equal(t, []string{"p", "d"}, visibleIDs(ComputeVisible(shapes, vis, testTags())))

	// Substring match: "per" hits both Person and... nothing else here.
	vis.TagFilter = TagFilter{Terms: []string{"PER"}, IncludeMode: true}
	require.Equal(t, []string{"p"}, visibleIDs(ComputeVisible(shapes, vis, testTags())))

	// Empty terms pass everything in either mode.
	vis.TagFilter = TagFilter{IncludeMode: false}
	require.Len(t, ComputeVisible(shapes, vis, testTags()), 3)
}

func TestTagFilterSubstringSpansTags(t *testing.T) {
	shapes := []anno.Shape{
		shape("p", 0, 0.9), // Person
		shape("pol", 3, 0.9), // Politician
	}
	vis := DefaultVisibility()
	vis.TagFilter = TagFilter{Terms: []string{"p"}, IncludeMode: true}
	require.Len(t, ComputeVisible(shapes, vis, testTags()), 2)
}

func TestSelectedShapeStyle(t *testing.T) {
	shapes := []anno.Shape{
		shape("a", 0, 0.9),
		shape("b", 1, 0.9),
	}
	vis := DefaultVisibility()
	vis.SelectedAnnotationID = "b"
	out := ComputeVisible(shapes, vis, testTags())
	require.Len(t, out, 2)
	for _, s := range out {
		if s.Shape.ID == "b" {
			require.True(t, s.Selected)
			require.Equal(t, float32(selectedOpacity), s.FillOpacity)
			require.True(t, s.LabelPermanent)
		} else {
			require.False(t, s.Selected)
			require.Equal(t, vis.Style.Opacity, s.FillOpacity)
		}
	}
}

func TestStyleWithoutOutline(t *testing.T) {
	shapes := []anno.Shape{shape("a", 0, 0.9)}
	vis := DefaultVisibility()
	vis.Style.Outline = false
	out := ComputeVisible(shapes, vis, testTags())
	require.Len(t, out, 1)
	require.Equal(t, float32(0), out[0].OutlineWeight)

	vis.Style.Outline = true
	out = ComputeVisible(shapes, vis, testTags())
	require.Equal(t, float32(outlineWeight), out[0].OutlineWeight)
}

func TestComputeVisibleIsPure(t *testing.T) {
	shapes := []anno.Shape{
		shape("a", 0, 0.6),
		shape("b", 1, 0.4),
	}
	vis := DefaultVisibility()
	first := ComputeVisible(shapes, vis, testTags())
	second := ComputeVisible(shapes, vis, testTags())
	require.Equal(t, first, second)
}

func TestShapeLabels(t *testing.T) {
	shapes := []anno.Shape{shape("a", 2, 0.9)}
	vis := DefaultVisibility()
	out := ComputeVisible(shapes, vis, testTags())
	require.Equal(t, "Dog", out[0].Label)
	require.False(t, out[0].LabelPermanent)

	vis.AlwaysShowLabel = true
	out = ComputeVisible(shapes, vis, testTags())
	require.True(t, out[0].LabelPermanent)
}
