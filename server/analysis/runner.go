package analysis

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/scopelabel/scopelabel/pkg/eta"
	"github.com/scopelabel/scopelabel/server/remote"
)

// runSingle performs one asset's analysis. For videos the blocking inference
// call is accompanied by a progress poller feeding the ETA estimator.
func (o *Orchestrator) runSingle(ctx context.Context, j *job, modelHash string, opts Options, asset anno.Asset, reanalyse bool) error {
	// Fresh results must never be invisibly filtered by leftovers
	o.store.ResetHidden()

	switch asset.Type {
	case anno.AssetImage:
		annotations, err := o.service.ImageInference(ctx, remote.ImageRequest{
			ModelHash: modelHash,
			Path:      asset.LocalPath,
			Reanalyse: reanalyse,
			IOU:       opts.IOU,
		})
		if err != nil {
			return err
		}
		o.store.AcceptAnnotations(asset.URL, annotations)
	case anno.AssetVideo:
		pollDone := make(chan struct{})
		go o.pollVideoProgress(ctx, j, opts, pollDone)
		frames, err := o.service.VideoInference(ctx, remote.VideoRequest{
			ModelHash:     modelHash,
			Path:          asset.LocalPath,
			Reanalyse:     reanalyse,
			FrameInterval: opts.FrameInterval,
			IOU:           opts.IOU,
		})
		close(pollDone)
		if err != nil {
			return err
		}
		o.store.AttachVideo(asset.URL, frames, opts.FrameInterval)
	}
	j.incDone()
	o.notify(j)
	return nil
}

// pollVideoProgress polls the server-reported (progress, total) pair and feeds
// it into an ETA estimator. The estimator is created fresh on the first poll of
// each job; estimates from a previous job never bleed into a new one.
// opts is the copy captured at job start; o.opts may be rewritten mid-job.
func (o *Orchestrator) pollVideoProgress(ctx context.Context, j *job, opts Options, done chan struct{}) {
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	var est *eta.Estimator
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		p, err := o.service.PredictionProgress(ctx)
		if err != nil {
			// The heartbeat owns reconnection; a missed poll is not an event
			o.log.Debugf("Progress poll failed: %v", err)
			continue
		}
		if est == nil {
			if p.Idle() {
				// Job hasn't registered server-side yet
				continue
			}
			est = eta.NewEstimator(float64(p.Progress), float64(p.Total), 10*time.Second)
			est.Start()
			continue
		}
		if p.Idle() {
			// Sentinel: the server-side job is gone
			return
		}
		est.Report(float64(p.Progress))
		if remaining := est.Estimate(); remaining >= 0 {
			j.setETA(int(math.Ceil(remaining.Seconds())))
		}
		if p.Total > 0 {
			j.setPercent(math.Min(float64(p.Progress)/float64(p.Total)*100, 99))
		}
		o.notify(j)
	}
}

// runBulk analyzes assets strictly sequentially. Concurrency would swamp the
// inference service and make progress accounting meaningless; one asset at a
// time with a cooldown in between is the contract.
func (o *Orchestrator) runBulk(ctx context.Context, j *job, modelHash string, opts Options, assets []anno.Asset) error {
	smoothDone := make(chan struct{})
	go o.smoothBulkProgress(j, opts, smoothDone)
	defer close(smoothDone)

	for _, asset := range assets {
		if j.cancelled.Load() {
			// Leave the UI coherent: one final fetch for whatever asset the
			// user is looking at, then stop.
			if cur, ok := o.store.CurrentAsset(); ok {
				if err := o.fetchInto(ctx, modelHash, opts, cur, false); err != nil {
					o.log.Infof("Final fetch after bulk cancel failed: %v", err)
				}
			}
			return nil
		}

		o.store.SelectAsset(asset, false)
		o.store.ResetHidden()
		if err := o.fetchInto(ctx, modelHash, opts, asset, true); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// A single bad asset doesn't abort the batch
			o.log.Errorf("Bulk analysis of %v failed: %v", asset.Filename, err)
		}
		j.incDone()
		o.notify(j)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(opts.Cooldown):
		}
	}
	return nil
}

// fetchInto runs inference for one asset and feeds the result into the store.
// The store's current-asset guard decides whether the result is still wanted.
func (o *Orchestrator) fetchInto(ctx context.Context, modelHash string, opts Options, asset anno.Asset, reanalyse bool) error {
	switch asset.Type {
	case anno.AssetImage:
		annotations, err := o.service.ImageInference(ctx, remote.ImageRequest{
			ModelHash: modelHash,
			Path:      asset.LocalPath,
			Reanalyse: reanalyse,
			IOU:       opts.IOU,
		})
		if err != nil {
			return err
		}
		o.store.AcceptAnnotations(asset.URL, annotations)
	case anno.AssetVideo:
		frames, err := o.service.VideoInference(ctx, remote.VideoRequest{
			ModelHash:     modelHash,
			Path:          asset.LocalPath,
			Reanalyse:     reanalyse,
			FrameInterval: opts.FrameInterval,
			IOU:           opts.IOU,
		})
		if err != nil {
			return err
		}
		o.store.AttachVideo(asset.URL, frames, opts.FrameInterval)
	}
	return nil
}

// smoothBulkProgress advances a synthetic completion percentage while a bulk
// job runs. The server gives us no duration estimate for the whole batch, so
// the percentage is a fiction with two honest properties: it is monotonic, and
// it never reports 100 (or even 98) before the job truly finishes. The random
// increment shrinks as the damping multiplier grows, so the bar decelerates
// instead of pinning.
// advanceSynthetic is one smoothing tick. r is uniform in [0,1).
func (j *job) advanceSynthetic(r float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if actual := float64(j.done) / float64(j.total) * 100; actual > j.percent {
		j.percent = math.Min(actual, 98)
	}
	add := r * 15 / j.multiplier
	if j.percent+add < 98 {
		j.percent += add
	}
	j.multiplier += 0.18
}

func (o *Orchestrator) smoothBulkProgress(j *job, opts Options, done chan struct{}) {
	ticker := time.NewTicker(opts.SmoothingTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			j.advanceSynthetic(rand.Float64())
			o.notify(j)
		}
	}
}
