package anno

import (
	"math"
	"sort"
)

// VideoFrames is the result of video inference: annotation sets keyed by
// frame bucket, where a bucket is a discretized playback interval. Keys are
// integer milliseconds, matching the keys the inference service returns.
type VideoFrames struct {
	FPS    float64                `json:"fps"`
	Frames map[int64][]Annotation `json:"frames"`
}

// BucketKeyMs computes the frame bucket key (in milliseconds) for a playback
// position. frameInterval is the stride, in frames, at which the video was
// analyzed, so one bucket spans frameInterval/fps seconds.
func BucketKeyMs(mediaTime float64, frameInterval, fps float64) int64 {
	interval := frameInterval / fps
	quotient := math.Floor(mediaTime / interval)
	return int64(math.Floor(quotient * interval * 1000))
}

// SortedBucketKeys returns the frame bucket keys in ascending order.
func (v *VideoFrames) SortedBucketKeys() []int64 {
	keys := make([]int64, 0, len(v.Frames))
	for k := range v.Frames {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
