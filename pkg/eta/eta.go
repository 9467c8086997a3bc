package eta

import (
	"math"
	"time"
)

// Package eta estimates time remaining for a job that reports monotonically
// increasing progress. The rate of progress is smoothed exponentially over a
// history time constant, so a brief stall or burst doesn't whipsaw the estimate.

type Estimator struct {
	min          float64 // Progress value at the start of the job
	max          float64 // Progress value when the job is complete
	timeConstant float64 // Smoothing history, in seconds

	startedAt time.Time
	lastAt    time.Time
	lastValue float64
	rate      float64 // Smoothed progress units per second
	started   bool
}

// NewEstimator creates an estimator for progress running from min to max.
// historyTimeConstant controls smoothing: observations older than roughly this
// duration stop influencing the rate.
func NewEstimator(min, max float64, historyTimeConstant time.Duration) *Estimator {
	return &Estimator{
		min:          min,
		max:          max,
		timeConstant: historyTimeConstant.Seconds(),
	}
}

// Start (re)seeds the estimator at the current time.
func (e *Estimator) Start() {
	e.StartAt(time.Now())
}

func (e *Estimator) StartAt(t time.Time) {
	e.startedAt = t
	e.lastAt = t
	e.lastValue = e.min
	e.rate = 0
	e.started = true
}

// Report feeds an observed progress value.
func (e *Estimator) Report(value float64) {
	e.ReportAt(value, time.Now())
}

func (e *Estimator) ReportAt(value float64, t time.Time) {
	if !e.started {
		e.StartAt(t)
	}
	dt := t.Sub(e.lastAt).Seconds()
	if dt <= 0 {
		return
	}
	instantRate := (value - e.lastValue) / dt
	if e.rate == 0 {
		e.rate = instantRate
	} else {
		// Weight decays with the gap between observations, relative to the
		// history time constant.
		w := 1 - math.Exp(-dt/e.timeConstant)
		e.rate = instantRate*w + e.rate*(1-w)
	}
	e.lastValue = value
	e.lastAt = t
}

// Estimate returns the projected time remaining. Returns a negative duration
// if no forward progress has been observed yet (estimate unknown).
func (e *Estimator) Estimate() time.Duration {
	if !e.started || e.rate <= 0 {
		return -time.Second
	}
	remaining := (e.max - e.lastValue) / e.rate
	return time.Duration(remaining * float64(time.Second))
}

// Done reports whether the last observed value has reached max.
func (e *Estimator) Done() bool {
	return e.started && e.lastValue >= e.max
}
