package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameGatewayDeliversInOrder(t *testing.T) {
	g := newFrameGateway()

	// A callback that re-registers itself, the way a running frame sync does.
	var seen []float64
	var onFrame func(mediaTime float64)
	onFrame = func(mediaTime float64) {
		seen = append(seen, mediaTime)
		g.RequestFrameCallback(onFrame)
	}
	g.RequestFrameCallback(onFrame)

	// Rapid successive posts must apply oldest first; delivery is synchronous,
	// so by the time Deliver returns the frame has been applied.
	g.Deliver(0.2)
	g.Deliver(0.4)
	g.Deliver(0.6)
	require.Equal(t, []float64{0.2, 0.4, 0.6}, seen)
}

func TestFrameGatewayCancel(t *testing.T) {
	g := newFrameGateway()

	fired := 0
	handle := g.RequestFrameCallback(func(mediaTime float64) { fired++ })
	g.CancelFrameCallback(handle)
	g.Deliver(1.0)
	require.Equal(t, 0, fired)

	// Each registration fires once per delivery and is then consumed.
	g.RequestFrameCallback(func(mediaTime float64) { fired++ })
	g.Deliver(1.0)
	g.Deliver(2.0)
	require.Equal(t, 1, fired)
}
