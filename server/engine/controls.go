package engine

import (
	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/scopelabel/scopelabel/pkg/gen"
)

// User-driven visibility mutations. Each produces a new VisibilityState value
// and triggers a full recompute of the rendered set.

func (s *Store) Visibility() VisibilityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vis
}

// SetConfidenceThreshold sets the minimum confidence for an annotation to
// render. An annotation exactly at the threshold is visible.
func (s *Store) SetConfidenceThreshold(threshold float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	vis.ConfidenceThreshold = gen.Clamp(threshold, 0, 1)
	s.vis = vis
	s.recomputeLocked()
}

func (s *Store) SetTagFilter(terms []string, includeMode bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	vis.TagFilter = TagFilter{Terms: terms, IncludeMode: includeMode}
	s.vis = vis
	s.recomputeLocked()
}

// SetAnnotationVisibility shows (visible=true) or hides the given annotations.
func (s *Store) SetAnnotationVisibility(visible bool, annotationIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	for _, id := range annotationIDs {
		if visible {
			delete(vis.HiddenAnnotationIDs, id)
		} else {
			vis.HiddenAnnotationIDs[id] = true
		}
	}
	s.vis = vis
	s.recomputeLocked()
}

// SetAllVisible shows every annotation (clearing the hidden set) or hides the
// entire current annotation set.
func (s *Store) SetAllVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	if visible {
		vis.HiddenAnnotationIDs = map[string]bool{}
	} else {
		for _, a := range s.annotations {
			vis.HiddenAnnotationIDs[a.ID] = true
		}
	}
	s.vis = vis
	s.recomputeLocked()
}

// SelectAnnotation highlights one annotation (empty ID deselects).
func (s *Store) SelectAnnotation(annotationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	vis.SelectedAnnotationID = annotationID
	s.vis = vis
	s.recomputeLocked()
}

// SelectAnnotationAt selects the visible annotation under a surface-space
// point: the smallest box whose bounds contain it, ties broken by distance to
// the box center. A miss clears the selection.
func (s *Store) SelectAnnotationAt(x, y float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := anno.Vec2{X: x, Y: y}
	bestID := ""
	var bestArea, bestDist float32
	for _, styled := range s.renderedLocked() {
		b := styled.Shape.Bounds()
		if !b.Contains(p) {
			continue
		}
		d := p.Distance(b.Center())
		if bestID == "" || b.Area() < bestArea || (b.Area() == bestArea && d < bestDist) {
			bestID = styled.Shape.ID
			bestArea = b.Area()
			bestDist = d
		}
	}
	vis := s.vis.clone()
	vis.SelectedAnnotationID = bestID
	s.vis = vis
	s.recomputeLocked()
}

func (s *Store) SetAlwaysShowLabel(always bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	vis.AlwaysShowLabel = always
	s.vis = vis
	s.recomputeLocked()
}

func (s *Store) SetOutline(outline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	vis.Style.Outline = outline
	s.vis = vis
	s.recomputeLocked()
}

func (s *Store) SetOpacity(opacity float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	vis.Style.Opacity = gen.Clamp(opacity, 0, 1)
	s.vis = vis
	s.recomputeLocked()
}

// SetVisibility replaces the whole visibility state (used when restoring
// persisted defaults at startup).
func (s *Store) SetVisibility(vis VisibilityState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if vis.HiddenAnnotationIDs == nil {
		vis.HiddenAnnotationIDs = map[string]bool{}
	}
	s.vis = vis.clone()
	s.recomputeLocked()
}
