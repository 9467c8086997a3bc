package remote

import (
	"strconv"

	"github.com/scopelabel/scopelabel/pkg/anno"
)

// Wire-format DTOs for the inference service. The service nests the tag and
// splits rectangle bounds from polygon contours; we flatten both into
// anno.Annotation before anything else sees them.

type wireTag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type wireAnnotation struct {
	AnnotationID string      `json:"annotationID"`
	Tag          wireTag     `json:"tag"`
	BoundType    string      `json:"boundType"`
	Bound        [][]float32 `json:"bound"`   // Rectangle corners, normalized
	Contour      [][]float32 `json:"contour"` // Polygon/mask outline, normalized
	Confidence   float32     `json:"confidence"`
}

type wireVideoResult struct {
	FPS    float64                     `json:"fps"`
	Frames map[string][]wireAnnotation `json:"frames"`
}

func toVertices(pairs [][]float32) []anno.Vec2 {
	verts := make([]anno.Vec2, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		verts = append(verts, anno.Vec2{X: p[0], Y: p[1]})
	}
	return verts
}

// convertAnnotations flattens wire annotations. IDs are made stable within the
// set by falling back to the list index when the service omits them.
func convertAnnotations(in []wireAnnotation) []anno.Annotation {
	out := make([]anno.Annotation, 0, len(in))
	for i, w := range in {
		id := w.AnnotationID
		if id == "" {
			id = strconv.Itoa(i)
		}
		boundType := anno.BoundType(w.BoundType)
		pairs := w.Bound
		if (boundType == anno.BoundPolygon || boundType == anno.BoundMask) && w.Contour != nil {
			pairs = w.Contour
		}
		out = append(out, anno.Annotation{
			ID:         id,
			TagID:      w.Tag.ID,
			BoundType:  boundType,
			Vertices:   toVertices(pairs),
			Confidence: w.Confidence,
		})
	}
	return out
}

func convertVideoResult(in *wireVideoResult) (*anno.VideoFrames, error) {
	frames := make(map[int64][]anno.Annotation, len(in.Frames))
	for key, anns := range in.Frames {
		ms, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, err
		}
		frames[ms] = convertAnnotations(anns)
	}
	return &anno.VideoFrames{FPS: in.FPS, Frames: frames}, nil
}
