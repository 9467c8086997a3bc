package server

import (
	"sync"

	"github.com/scopelabel/scopelabel/server/engine"
)

// frameGateway bridges frame presentation times reported by the viewer into
// the engine's FrameSource contract. The viewer's video element posts its
// current media time on every presented frame; each registered callback fires
// once per delivery.
type frameGateway struct {
	mu         sync.Mutex
	nextHandle int64
	pending    map[int64]engine.FrameCallback
}

func newFrameGateway() *frameGateway {
	return &frameGateway{
		pending: map[int64]engine.FrameCallback{},
	}
}

func (g *frameGateway) RequestFrameCallback(fn engine.FrameCallback) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextHandle++
	g.pending[g.nextHandle] = fn
	return g.nextHandle
}

func (g *frameGateway) CancelFrameCallback(handle int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, handle)
}

// Deliver fires every pending callback with the given media time. The mutex
// is released before invocation, so callbacks may re-register or touch the
// store freely. Invocation is synchronous: frames posted in order are applied
// in order, and an older frame can never land after a newer one.
func (g *frameGateway) Deliver(mediaTime float64) {
	g.mu.Lock()
	fns := make([]engine.FrameCallback, 0, len(g.pending))
	for _, fn := range g.pending {
		fns = append(fns, fn)
	}
	g.pending = map[int64]engine.FrameCallback{}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(mediaTime)
	}
}
