package engine

import (
	"strings"

	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/scopelabel/scopelabel/pkg/tagmap"
)

// Filtering is always a full rebuild from the authoritative annotation set.
// The rendered shape set is a pure function of {annotations, tag map,
// VisibilityState}; there is no incremental patching to fall out of sync.

const (
	// Fill opacity of the selected annotation, regardless of the configured style.
	selectedOpacity = 0.7
	// Stroke weight when outlines are on.
	outlineWeight = 2
)

// TagFilter restricts rendering by tag name. IncludeMode=true shows only
// matching tags; IncludeMode=false shows only non-matching tags. Matching is
// case-insensitive substring.
type TagFilter struct {
	Terms       []string `json:"terms"`
	IncludeMode bool     `json:"includeMode"`
}

type Style struct {
	Outline bool    `json:"outline"`
	Opacity float32 `json:"opacity"`
}

// VisibilityState is everything the user controls about which annotations
// render and how. Mutated only through Store methods; every mutation produces
// a new value (the hidden set is copied, never shared).
type VisibilityState struct {
	ConfidenceThreshold  float32         `json:"confidenceThreshold"`
	TagFilter            TagFilter       `json:"tagFilter"`
	HiddenAnnotationIDs  map[string]bool `json:"hiddenAnnotationIDs"`
	SelectedAnnotationID string          `json:"selectedAnnotationID"`
	AlwaysShowLabel      bool            `json:"alwaysShowLabel"`
	Style                Style           `json:"style"`
}

// DefaultVisibility mirrors the defaults the UI starts with.
func DefaultVisibility() VisibilityState {
	return VisibilityState{
		ConfidenceThreshold: 0.5,
		TagFilter:           TagFilter{IncludeMode: true},
		HiddenAnnotationIDs: map[string]bool{},
		Style:               Style{Outline: true, Opacity: 0.45},
	}
}

// clone returns a deep copy. VisibilityState is treated as immutable once it
// has been handed to a snapshot, so mutators operate on a clone.
func (v VisibilityState) clone() VisibilityState {
	hidden := make(map[string]bool, len(v.HiddenAnnotationIDs))
	for id := range v.HiddenAnnotationIDs {
		hidden[id] = true
	}
	terms := make([]string, len(v.TagFilter.Terms))
	copy(terms, v.TagFilter.Terms)
	v.HiddenAnnotationIDs = hidden
	v.TagFilter.Terms = terms
	return v
}

// StyledShape is a shape plus its per-render style overrides, ready for the surface.
type StyledShape struct {
	Shape          anno.Shape `json:"shape"`
	FillOpacity    float32    `json:"fillOpacity"`
	OutlineWeight  float32    `json:"outlineWeight"`
	Selected       bool       `json:"selected"`
	Label          string     `json:"label"`
	LabelPermanent bool       `json:"labelPermanent"` // False means show label on hover only
}

// matchesTagFilter applies the symmetric include/exclude rule: with terms
// present, a shape passes iff (any term is a substring of its tag name)
// equals IncludeMode. Empty terms pass everything.
func matchesTagFilter(filter TagFilter, tagName string) bool {
	if len(filter.Terms) == 0 {
		return true
	}
	name := strings.ToLower(tagName)
	matches := false
	for _, term := range filter.Terms {
		if strings.Contains(name, strings.ToLower(term)) {
			matches = true
			break
		}
	}
	return matches == filter.IncludeMode
}

// ComputeVisible filters the full shape set down to what should render, and
// attaches per-shape style. Pure: identical inputs produce identical output.
func ComputeVisible(shapes []anno.Shape, vis VisibilityState, tags *tagmap.TagMap) []StyledShape {
	out := make([]StyledShape, 0, len(shapes))
	for _, shape := range shapes {
		if shape.Confidence < vis.ConfidenceThreshold {
			continue
		}
		if vis.HiddenAnnotationIDs[shape.ID] {
			continue
		}
		tagName := tags.NameOf(shape.TagID)
		if !matchesTagFilter(vis.TagFilter, tagName) {
			continue
		}
		styled := StyledShape{
			Shape:          shape,
			FillOpacity:    vis.Style.Opacity,
			Label:          tagName,
			LabelPermanent: vis.AlwaysShowLabel,
		}
		if vis.Style.Outline {
			styled.OutlineWeight = outlineWeight
		}
		if shape.ID != "" && shape.ID == vis.SelectedAnnotationID {
			styled.Selected = true
			styled.FillOpacity = selectedOpacity
			styled.LabelPermanent = true
		}
		out = append(out, styled)
	}
	return out
}
