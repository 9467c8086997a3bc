package eta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimatorSteadyRate(t *testing.T) {
	e := NewEstimator(0, 100, 10*time.Second)
	base := time.Now()
	e.StartAt(base)
	require.Negative(t, e.Estimate())

	// 10 units per second, reported once a second.
	for i := 1; i <= 5; i++ {
		e.ReportAt(float64(i*10), base.Add(time.Duration(i)*time.Second))
	}
	est := e.Estimate()
	require.InDelta(t, 5.0, est.Seconds(), 0.1)
	require.False(t, e.Done())
}

func TestEstimatorSmoothsRateChanges(t *testing.T) {
	e := NewEstimator(0, 100, 10*time.Second)
	base := time.Now()
	e.StartAt(base)
	e.ReportAt(10, base.Add(1*time.Second))
	require.InDelta(t, 9.0, e.Estimate().Seconds(), 0.01)

	// One wildly fast observation shouldn't dominate a 10s history.
	e.ReportAt(60, base.Add(2*time.Second))
	slowEstimate := (100.0 - 60.0) / 50.0 // What a naive instant-rate estimate would say
	require.Greater(t, e.Estimate().Seconds(), slowEstimate)
}

func TestEstimatorNoProgress(t *testing.T) {
	e := NewEstimator(0, 100, 10*time.Second)
	base := time.Now()
	e.StartAt(base)
	e.ReportAt(0, base.Add(1*time.Second))
	e.ReportAt(0, base.Add(2*time.Second))
	require.Negative(t, e.Estimate())
}

func TestEstimatorDone(t *testing.T) {
	e := NewEstimator(2, 7, 10*time.Second)
	base := time.Now()
	e.StartAt(base)
	e.ReportAt(7, base.Add(3*time.Second))
	require.True(t, e.Done())
}

func TestEstimatorIgnoresNonMonotonicTime(t *testing.T) {
	e := NewEstimator(0, 100, 10*time.Second)
	base := time.Now()
	e.StartAt(base)
	e.ReportAt(10, base.Add(time.Second))
	before := e.Estimate()
	// A report with a stale timestamp is dropped.
	e.ReportAt(50, base)
	require.Equal(t, before, e.Estimate())
}
