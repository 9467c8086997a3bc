package engine

// Timeline analytics for video assets: which tags appear on screen, and when.
// Feeds the timeline chart display component.

// TimelineSpan says that a tag was detected from StartMs until the start of
// the next analyzed bucket.
type TimelineSpan struct {
	Tag     string `json:"tag"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
}

// Analytics builds the timeline series for the current asset's video frames,
// filtered by the current confidence threshold. Spans in the final bucket are
// dropped, since there is no next bucket to bound them. Returns nil for image
// assets.
func (s *Store) Analytics() []TimelineSpan {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.videoFrames == nil {
		return nil
	}
	keys := s.videoFrames.SortedBucketKeys()
	spans := []TimelineSpan{}
	for i, key := range keys {
		if i == len(keys)-1 {
			break
		}
		for _, a := range s.videoFrames.Frames[key] {
			if a.Confidence < s.vis.ConfidenceThreshold {
				continue
			}
			spans = append(spans, TimelineSpan{
				Tag:     s.tags.NameOf(a.TagID),
				StartMs: key,
				EndMs:   keys[i+1],
			})
		}
	}
	return spans
}
