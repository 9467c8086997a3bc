package tagmap

import (
	"sort"
	"strings"
)

// Package tagmap maps between tag names and the numeric tag IDs assigned by the
// loaded model, and assigns each tag a deterministic color. A TagMap is a value
// object: it is built wholesale when a model is (re)loaded and never mutated,
// so lookups need no locking.

// Palette assigns colors to tag IDs by modular indexing, which guarantees a tag
// keeps its color across re-renders and sessions without any stored state.
var Palette = []string{
	"#f94144",
	"#f3722c",
	"#f8961e",
	"#f9844a",
	"#f9c74f",
	"#90be6d",
	"#43aa8b",
	"#4d908e",
	"#577590",
	"#277da1",
	"#9c89b8",
	"#b8bedd",
	"#ef476f",
	"#ffd166",
	"#06d6a0",
	"#118ab2",
	"#8338ec",
	"#fb5607",
}

// ColorForTag is a pure function of tagID.
func ColorForTag(tagID int) string {
	idx := tagID % len(Palette)
	if idx < 0 {
		idx += len(Palette)
	}
	return Palette[idx]
}

type TagMap struct {
	byName map[string]int // lowercased name -> id
	byID   map[int]string // id -> name as the model reported it
	names  []string       // tag names as the model reported them
}

// New builds a TagMap from a model's {tagName: tagID} snapshot.
func New(tags map[string]int) *TagMap {
	m := &TagMap{
		byName: make(map[string]int, len(tags)),
		byID:   make(map[int]string, len(tags)),
		names:  make([]string, 0, len(tags)),
	}
	for name, id := range tags {
		m.byName[strings.ToLower(name)] = id
		m.byID[id] = name
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	return m
}

// Empty is the registry state when no model is loaded.
func Empty() *TagMap {
	return New(nil)
}

func (m *TagMap) Len() int {
	return len(m.byID)
}

// NameOf returns the model's name for a tag ID, or "" if unknown.
func (m *TagMap) NameOf(tagID int) string {
	return m.byID[tagID]
}

// IDOf looks up a tag by name, case-insensitively.
func (m *TagMap) IDOf(name string) (int, bool) {
	id, ok := m.byName[strings.ToLower(name)]
	return id, ok
}

// Names returns all tag names known to the loaded model.
func (m *TagMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Snapshot returns the {tagName: tagID} mapping, for API responses.
func (m *TagMap) Snapshot() map[string]int {
	out := make(map[string]int, len(m.byID))
	for id, name := range m.byID {
		out[name] = id
	}
	return out
}
