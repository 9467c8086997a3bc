package engine

import (
	"testing"

	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/stretchr/testify/require"
)

func testVideoFrames() *anno.VideoFrames {
	return &anno.VideoFrames{
		FPS: 30,
		Frames: map[int64][]anno.Annotation{
			0:    {testAnnotation("f0", 0, 0.9)},
			166:  {testAnnotation("f166", 0, 0.9)},
			333:  {testAnnotation("f333a", 0, 0.9), testAnnotation("f333b", 1, 0.9)},
			1000: {testAnnotation("f1000", 1, 0.9)},
		},
	}
}

func selectVideo(t *testing.T, store *Store) anno.Asset {
	store.SetAssetList([]string{"clip.mp4"}, nil)
	asset := store.Assets()[0]
	require.Equal(t, anno.AssetVideo, asset.Type)
	store.SelectAsset(asset, false)
	store.SetMediaDimensions("clip.mp4", 1280, 720)
	return asset
}

func TestFrameSyncDeliversBuckets(t *testing.T) {
	store, _, source := testStore(t)
	selectVideo(t, store)

	store.AttachVideo("clip.mp4", testVideoFrames(), 5)
	require.Equal(t, 1, source.pendingCount())

	// Playback sits inside the second bucket (1/6s per bucket).
	source.presentFrame(0.2)
	anns := store.Annotations()
	require.Len(t, anns, 1)
	require.Equal(t, "f166", anns[0].ID)

	// The chain re-registered itself for the next frame.
	require.Equal(t, 1, source.pendingCount())

	source.presentFrame(0.4)
	anns = store.Annotations()
	require.Len(t, anns, 2)

	// A position with no analyzed bucket leaves the overlay unchanged.
	source.presentFrame(0.7)
	require.Len(t, store.Annotations(), 2)
	require.Equal(t, 1, source.pendingCount())
}

func TestFrameSyncCancelledOnAssetSwitch(t *testing.T) {
	store, _, source := testStore(t)
	selectVideo(t, store)
	store.AttachVideo("clip.mp4", testVideoFrames(), 5)

	store.SetAssetList([]string{"clip.mp4", "still.jpg"}, nil)
	still := store.Assets()[1]
	store.SelectAsset(still, false)

	// The old chain is detached: presenting a frame delivers nothing, and
	// nothing re-registers.
	require.Equal(t, 0, source.pendingCount())
	source.presentFrame(0.2)
	require.Empty(t, store.Annotations())
	require.Equal(t, 0, source.pendingCount())
}

func TestFrameSyncReplacedOnReattach(t *testing.T) {
	store, _, source := testStore(t)
	selectVideo(t, store)
	store.AttachVideo("clip.mp4", testVideoFrames(), 5)

	// A second analysis of the same asset replaces the chain instead of
	// stacking a duplicate.
	store.AttachVideo("clip.mp4", testVideoFrames(), 5)
	require.Equal(t, 1, source.pendingCount())
}

func TestFrameSyncStaleAfterCancelDoesNotWrite(t *testing.T) {
	store, _, source := testStore(t)
	selectVideo(t, store)
	frames := testVideoFrames()
	store.AttachVideo("clip.mp4", frames, 5)

	// Grab the registered callback, then cancel the chain. A late invocation
	// of the stale callback must not write to the store.
	source.mu.Lock()
	var stale FrameCallback
	for _, fn := range source.pending {
		stale = fn
	}
	source.mu.Unlock()

	store.SetAssetList([]string{"clip.mp4", "still.jpg"}, nil)
	store.SelectAsset(store.Assets()[1], false)

	stale(0.2)
	require.Empty(t, store.Annotations())
}

func TestAttachVideoIgnoredWhenNotCurrent(t *testing.T) {
	store, _, source := testStore(t)
	store.SetAssetList([]string{"clip.mp4", "other.mp4"}, nil)
	store.SelectAsset(store.Assets()[1], false)

	store.AttachVideo("clip.mp4", testVideoFrames(), 5)
	frames, _ := store.VideoFrames()
	require.Nil(t, frames)
	require.Equal(t, 0, source.pendingCount())
}

func TestAnalytics(t *testing.T) {
	store, _, _ := testStore(t)

	// Image assets have no timeline.
	require.Nil(t, store.Analytics())

	selectVideo(t, store)
	frames := &anno.VideoFrames{
		FPS: 30,
		Frames: map[int64][]anno.Annotation{
			0:    {testAnnotation("a", 0, 0.9), testAnnotation("b", 1, 0.3)},
			166:  {testAnnotation("c", 1, 0.8)},
			333:  {testAnnotation("d", 0, 0.9)},
		},
	}
	store.AttachVideo("clip.mp4", frames, 5)

	spans := store.Analytics()
	// The low-confidence detection is filtered, and the final bucket is
	// dropped because nothing bounds it.
	require.Equal(t, []TimelineSpan{
		{Tag: "Person", StartMs: 0, EndMs: 166},
		{Tag: "Car", StartMs: 166, EndMs: 333},
	}, spans)

	// Raising the threshold filters the timeline too.
	store.SetConfidenceThreshold(0.85)
	spans = store.Analytics()
	require.Equal(t, []TimelineSpan{{Tag: "Person", StartMs: 0, EndMs: 166}}, spans)
}
