package engine

import (
	"sync"

	"github.com/scopelabel/scopelabel/pkg/anno"
)

// Surface is the rendering sink: the concrete overlay renderer (vector layer
// over the media) that the engine pushes shape and style instructions into.
// The engine never reads state back from the surface.
type Surface interface {
	// SetMedia swaps the displayed media to the given asset.
	SetMedia(asset anno.Asset)
	// FitBounds fits the viewport to the media's pixel dimensions.
	FitBounds(width, height int)
	// Render replaces the rendered shape set. Shape IDs are stable across
	// renders, so the surface can diff instead of rebuilding every layer.
	Render(shapes []StyledShape)
}

// FrameCallback is invoked once per presented video frame with the playback
// position in seconds.
type FrameCallback func(mediaTime float64)

// FrameSource is the video playback runtime's frame-presentation hook. Each
// registration fires exactly once; the callback must re-register to keep
// receiving frames. RequestFrameCallback must not invoke the callback
// synchronously: delivery happens when the next frame is presented.
type FrameSource interface {
	RequestFrameCallback(fn FrameCallback) (handle int64)
	CancelFrameCallback(handle int64)
}

// NullSurface discards everything. Used when the engine runs headless
// (cmd/bulkpredict) and in tests that don't care about rendering.
type NullSurface struct {
	mu       sync.Mutex
	media    anno.Asset
	rendered []StyledShape
}

func (s *NullSurface) SetMedia(asset anno.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.media = asset
}

func (s *NullSurface) FitBounds(width, height int) {}

func (s *NullSurface) Render(shapes []StyledShape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rendered = shapes
}

// Rendered returns the last rendered shape set.
func (s *NullSurface) Rendered() []StyledShape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered
}
