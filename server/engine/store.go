package engine

import (
	"sync"

	"github.com/cyclopcam/logs"

	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/scopelabel/scopelabel/pkg/gen"
	"github.com/scopelabel/scopelabel/pkg/tagmap"
)

// Store holds the asset list, the current asset, its annotation set, and the
// visibility state. All mutation goes through Store methods; after every
// mutation the rendered shape set is recomputed from scratch and pushed to the
// surface, and a versioned snapshot is broadcast to watchers. Consumers compare
// versions, not object identity.

const watcherChannelSize = 100

// Snapshot is an immutable view of the store at one version. The slices are
// never mutated after publication.
type Snapshot struct {
	Version     int64             `json:"version"`
	Assets      []anno.Asset      `json:"assets"`
	Current     *anno.Asset       `json:"current"`
	Annotations []anno.Annotation `json:"annotations"`
	Visibility  VisibilityState   `json:"visibility"`
	Tags        map[string]int    `json:"tags"`
	Rendered    []StyledShape     `json:"rendered"`
}

type Store struct {
	log         logs.Log
	surface     Surface
	frameSource FrameSource

	mu          sync.Mutex
	version     int64
	assets      []anno.Asset
	current     *anno.Asset
	annotations []anno.Annotation
	vis         VisibilityState
	tags        *tagmap.TagMap

	// Video playback state for the current asset
	videoFrames   *anno.VideoFrames
	frameInterval int
	frameSync     *FrameSync

	// True after a genuine selection change of a cached asset, until the media
	// dimensions arrive and the cached-results fetch has been kicked off.
	pendingAutoFetch bool

	// Called (on its own goroutine) when a cached asset's dimensions become
	// known and its cached inference results should be fetched.
	onCachedSelect func(asset anno.Asset)

	watchersLock sync.Mutex
	watchers     []chan Snapshot
}

func NewStore(log logs.Log, surface Surface, frameSource FrameSource) *Store {
	return &Store{
		log:         log,
		surface:     surface,
		frameSource: frameSource,
		vis:         DefaultVisibility(),
		tags:        tagmap.Empty(),
	}
}

// SetOnCachedSelect installs the hook that fetches cached inference results
// when a cached asset is selected. Must be called before assets are selected.
func (s *Store) SetOnCachedSelect(fn func(asset anno.Asset)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCachedSelect = fn
}

// SetTags replaces the tag registry wholesale (model load or reload).
func (s *Store) SetTags(tags map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = tagmap.New(tags)
	s.recomputeLocked()
}

// ClearTags empties the tag registry (model unload).
func (s *Store) ClearTags() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = tagmap.Empty()
	s.recomputeLocked()
}

func (s *Store) Tags() *tagmap.TagMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tags
}

// SetAssetList replaces the asset list from a fresh folder listing, marking
// cached assets by cross-referencing the cache list. If the currently selected
// asset is still present (by URL), the selection survives; otherwise it is
// cleared along with its annotations.
func (s *Store) SetAssetList(encodedPaths []string, cacheList []string) {
	cached := make(map[string]bool, len(cacheList))
	for _, c := range cacheList {
		cached[c] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assets := make([]anno.Asset, 0, len(encodedPaths))
	for _, p := range encodedPaths {
		a := anno.ClassifyAsset(p)
		a.IsCached = cached[a.URL]
		assets = append(assets, a)
	}
	s.assets = assets

	if s.current != nil {
		found := false
		for i := range assets {
			if assets[i].URL == s.current.URL {
				// Keep dimensions we already learned from the media load
				assets[i].PixelWidth = s.current.PixelWidth
				assets[i].PixelHeight = s.current.PixelHeight
				cur := assets[i]
				s.current = &cur
				found = true
				break
			}
		}
		if !found {
			s.log.Infof("Selected asset %v removed by folder sync", s.current.Filename)
			s.clearSelectionLocked()
		}
	}
	s.recomputeLocked()
}

func (s *Store) Assets() []anno.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]anno.Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

func (s *Store) CurrentAsset() (anno.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return anno.Asset{}, false
	}
	return *s.current, true
}

// clearSelectionLocked drops the current asset and everything derived from it.
func (s *Store) clearSelectionLocked() {
	s.cancelFrameSyncLocked()
	s.current = nil
	s.annotations = nil
	s.videoFrames = nil
	s.pendingAutoFetch = false
}

// SelectAsset makes an asset current. Reselecting the already-current asset
// (URL equality) leaves the viewport alone, but still clears and reloads the
// annotation set when autoFetch is requested. A genuine selection change
// clears the annotation set, cancels any pending video frame callback tied to
// the previous asset, and swaps the surface's media; the viewport fit and
// cached-results fetch happen later, once SetMediaDimensions is called.
func (s *Store) SelectAsset(asset anno.Asset, autoFetch bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.URL == asset.URL {
		if autoFetch {
			s.annotations = nil
			s.recomputeLocked()
			if s.current.IsCached && s.onCachedSelect != nil {
				go s.onCachedSelect(*s.current)
			}
		}
		return
	}

	s.cancelFrameSyncLocked()
	s.annotations = nil
	s.videoFrames = nil

	cur := asset
	s.current = &cur
	s.pendingAutoFetch = autoFetch && asset.IsCached

	s.surface.SetMedia(asset)
	s.recomputeLocked()
}

// SetMediaDimensions reports the natural pixel dimensions of the loaded media.
// This arrives asynchronously after SelectAsset, because it depends on the
// media metadata load. Ignored if the user has already moved on to another
// asset. Fits the viewport and, if the asset has cached inference results and
// this selection asked for them, kicks off the cached fetch.
func (s *Store) SetMediaDimensions(assetURL string, width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.URL != assetURL {
		s.log.Debugf("Discarding media dimensions for %v: no longer current", assetURL)
		return
	}
	s.current.PixelWidth = width
	s.current.PixelHeight = height
	for i := range s.assets {
		if s.assets[i].URL == assetURL {
			s.assets[i].PixelWidth = width
			s.assets[i].PixelHeight = height
		}
	}

	s.surface.FitBounds(width, height)

	if s.pendingAutoFetch {
		s.pendingAutoFetch = false
		if s.onCachedSelect != nil {
			go s.onCachedSelect(*s.current)
		}
	}
	s.recomputeLocked()
}

// AcceptAnnotations replaces the annotation set wholesale, but only if the
// given asset is still current. Responses that arrive after the user navigated
// away are discarded: this guard is what keeps a slow response for asset A
// from painting stale overlays onto asset B.
func (s *Store) AcceptAnnotations(assetURL string, annotations []anno.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.URL != assetURL {
		s.log.Debugf("Discarding stale annotations for %v", assetURL)
		return
	}
	s.annotations = annotations
	s.recomputeLocked()
}

// Annotations returns the current asset's annotation set.
func (s *Store) Annotations() []anno.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.annotations
}

// ResetHidden clears the hidden-annotation set. Called at the start of every
// inference, so fresh results are never invisibly filtered.
func (s *Store) ResetHidden() {
	s.mu.Lock()
	defer s.mu.Unlock()
	vis := s.vis.clone()
	vis.HiddenAnnotationIDs = map[string]bool{}
	s.vis = vis
	s.recomputeLocked()
}

// AttachVideo binds the per-bucket annotation map returned by video inference
// to playback, replacing any previous frame synchronizer. No-op if the asset
// is no longer current.
func (s *Store) AttachVideo(assetURL string, frames *anno.VideoFrames, frameInterval int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.URL != assetURL {
		s.log.Debugf("Discarding video frames for %v: no longer current", assetURL)
		return
	}
	s.cancelFrameSyncLocked()
	s.videoFrames = frames
	s.frameInterval = frameInterval
	// A headless store has no frame source; the bucket map is still queryable
	// through VideoFrames and Analytics.
	if s.frameSource != nil {
		s.frameSync = newFrameSync(s, s.frameSource, assetURL, frames, frameInterval)
		s.frameSync.start()
	}
	s.recomputeLocked()
}

func (s *Store) cancelFrameSyncLocked() {
	if s.frameSync != nil {
		s.frameSync.Cancel()
		s.frameSync = nil
	}
}

// VideoFrames returns the bucket map bound to the current asset, if any.
func (s *Store) VideoFrames() (*anno.VideoFrames, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoFrames, s.frameInterval
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	assets := make([]anno.Asset, len(s.assets))
	copy(assets, s.assets)
	var current *anno.Asset
	if s.current != nil {
		cur := *s.current
		current = &cur
	}
	return Snapshot{
		Version:     s.version,
		Assets:      assets,
		Current:     current,
		Annotations: s.annotations,
		Visibility:  s.vis,
		Tags:        s.tags.Snapshot(),
		Rendered:    s.renderedLocked(),
	}
}

// renderedLocked maps and filters the authoritative annotation set. Until the
// media dimensions are known there is nothing sensible to map into, so the
// rendered set is empty.
func (s *Store) renderedLocked() []StyledShape {
	if s.current == nil || s.current.PixelWidth <= 0 || s.current.PixelHeight <= 0 {
		return nil
	}
	shapes := anno.MapToShapes(s.log, s.annotations, s.current.PixelWidth, s.current.PixelHeight, tagmap.ColorForTag)
	return ComputeVisible(shapes, s.vis, s.tags)
}

// recomputeLocked re-derives the rendered state and publishes it. Called after
// every mutation, while holding mu.
func (s *Store) recomputeLocked() {
	s.version++
	rendered := s.renderedLocked()
	s.surface.Render(rendered)
	s.sendToWatchers(s.snapshotLocked())
}

// AddWatcher registers for snapshot updates. Slow watchers drop snapshots
// rather than stalling the store; only the latest version matters anyway.
func (s *Store) AddWatcher() chan Snapshot {
	s.watchersLock.Lock()
	defer s.watchersLock.Unlock()
	ch := make(chan Snapshot, watcherChannelSize)
	s.watchers = append(s.watchers, ch)
	return ch
}

func (s *Store) RemoveWatcher(ch chan Snapshot) {
	s.watchersLock.Lock()
	defer s.watchersLock.Unlock()
	for i, w := range s.watchers {
		if w == ch {
			s.watchers = gen.DeleteFromSliceUnordered(s.watchers, i)
			return
		}
	}
	s.log.Warnf("Store.RemoveWatcher failed to find channel")
}

func (s *Store) sendToWatchers(snap Snapshot) {
	s.watchersLock.Lock()
	defer s.watchersLock.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
}
