package engine

import (
	"sync"

	"github.com/scopelabel/scopelabel/pkg/anno"
)

// FrameSync binds video playback position to the correct annotation frame
// bucket. On every frame-presentation callback it computes the bucket key for
// the playback position, feeds that bucket's annotations into the store, and
// re-registers itself for the next frame. The chain keeps itself alive until
// Cancel is called.
//
// Cancel exists because the callback chain outlives the inference job that
// created it: without it, a stale job's buckets would keep overwriting the
// overlay after the user switched assets or started a new analysis. The store
// cancels the active FrameSync on every asset switch and on every AttachVideo.
type FrameSync struct {
	store         *Store
	source        FrameSource
	assetURL      string
	frames        *anno.VideoFrames
	frameInterval float64

	mu        sync.Mutex
	handle    int64
	cancelled bool
}

func newFrameSync(store *Store, source FrameSource, assetURL string, frames *anno.VideoFrames, frameInterval int) *FrameSync {
	return &FrameSync{
		store:         store,
		source:        source,
		assetURL:      assetURL,
		frames:        frames,
		frameInterval: float64(frameInterval),
	}
}

func (f *FrameSync) start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelled || f.source == nil {
		return
	}
	f.handle = f.source.RequestFrameCallback(f.onFrame)
}

func (f *FrameSync) onFrame(mediaTime float64) {
	f.mu.Lock()
	if f.cancelled {
		f.mu.Unlock()
		return
	}
	key := anno.BucketKeyMs(mediaTime, f.frameInterval, f.frames.FPS)
	bucket, ok := f.frames.Frames[key]
	// Re-register before delivering, so a re-entrant Cancel from
	// AcceptAnnotations' downstream effects still sees the live handle.
	f.handle = f.source.RequestFrameCallback(f.onFrame)
	f.mu.Unlock()

	if ok {
		f.store.AcceptAnnotations(f.assetURL, bucket)
	}
}

// Cancel detaches the callback chain. Idempotent.
func (f *FrameSync) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelled {
		return
	}
	f.cancelled = true
	if f.source != nil {
		f.source.CancelFrameCallback(f.handle)
	}
}
