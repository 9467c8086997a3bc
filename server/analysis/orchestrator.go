package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"

	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/scopelabel/scopelabel/server/engine"
	"github.com/scopelabel/scopelabel/server/remote"
)

// Orchestrator drives single-asset and bulk analysis against the inference
// service. Exactly one job runs at a time; a second start request is rejected
// with ErrJobRunning rather than queued. Cancellation is cooperative: the
// cancelled flag is polled once per bulk iteration, and an in-flight request
// is allowed to complete and have its result discarded by the store's
// current-asset guard.

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

type Mode string

const (
	ModeSingle Mode = "single"
	ModeBulk   Mode = "bulk"
)

// FilterMode restricts which asset types a bulk run analyzes.
type FilterMode string

const (
	FilterImages FilterMode = "image"
	FilterVideos FilterMode = "video"
	FilterBoth   FilterMode = "both"
)

// Precondition failures. Returned synchronously, before any request is sent.
var (
	ErrJobRunning = errors.New("an analysis job is already running")
	ErrNoModel    = errors.New("no model is loaded")
	ErrNoAssets   = errors.New("there are no assets to analyze")
)

// Service is the slice of the inference client the orchestrator needs.
type Service interface {
	ImageInference(ctx context.Context, req remote.ImageRequest) ([]anno.Annotation, error)
	VideoInference(ctx context.Context, req remote.VideoRequest) (*anno.VideoFrames, error)
	KillVideoInference(ctx context.Context) error
	PredictionProgress(ctx context.Context) (remote.Progress, error)
}

// Options are the tunables of a run. The cooldown keeps sequential bulk
// requests from hammering the inference service.
type Options struct {
	IOU           float32
	FrameInterval int
	Cooldown      time.Duration // Pause between bulk assets
	PollInterval  time.Duration // Video progress poll cadence
	SmoothingTick time.Duration // Synthetic bulk progress update cadence
}

func DefaultOptions() Options {
	return Options{
		IOU:           0.8,
		FrameInterval: 1,
		Cooldown:      time.Second,
		PollInterval:  500 * time.Millisecond,
		SmoothingTick: 200 * time.Millisecond,
	}
}

// JobStatus is a point-in-time view of the active (or most recent) job.
type JobStatus struct {
	ID         string  `json:"id"`
	Mode       Mode    `json:"mode"`
	State      State   `json:"state"`
	Done       int     `json:"done"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`    // Monotone; reaches 100 only on true completion
	ETASeconds int     `json:"etaSeconds"` // -1 when unknown
	Message    string  `json:"message"`    // Failure message, if State==failed
}

type Orchestrator struct {
	log     logs.Log
	store   *engine.Store
	service Service
	opts    Options

	// Called after every status change. Optional. Invoked without holding
	// internal locks.
	OnStatus func(JobStatus)

	mu        sync.Mutex
	running   bool
	modelHash string
	job       *job
}

func NewOrchestrator(log logs.Log, store *engine.Store, service Service, opts Options) *Orchestrator {
	o := &Orchestrator{
		log:     log,
		store:   store,
		service: service,
		opts:    opts,
	}
	// Selecting a cached asset pulls its cached results without recomputing
	store.SetOnCachedSelect(func(asset anno.Asset) {
		if err := o.StartSingle(context.Background(), asset, false); err != nil {
			log.Infof("Cached-result fetch for %v not started: %v", asset.Filename, err)
		}
	})
	return o
}

// SetModel tells the orchestrator which loaded model to run against.
// An empty hash means no model is loaded.
func (o *Orchestrator) SetModel(modelHash string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.modelHash = modelHash
}

func (o *Orchestrator) ModelHash() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.modelHash
}

// SetOptions replaces the run tunables (from persisted settings or the API).
func (o *Orchestrator) SetOptions(opts Options) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opts = opts
}

func (o *Orchestrator) Options() Options {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opts
}

// Status reports the active job, or the terminal status of the last one.
func (o *Orchestrator) Status() JobStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil {
		return JobStatus{State: StateIdle, ETASeconds: -1}
	}
	return o.job.status()
}

// StartSingle analyzes one asset. Returns a precondition error synchronously;
// the analysis itself runs on its own goroutine. reanalyse=false fetches
// cached results without recomputing them server-side.
func (o *Orchestrator) StartSingle(ctx context.Context, asset anno.Asset, reanalyse bool) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		o.log.Warnf("Rejecting single analysis of %v: %v", asset.Filename, ErrJobRunning)
		return ErrJobRunning
	}
	if o.modelHash == "" {
		o.mu.Unlock()
		return ErrNoModel
	}
	modelHash := o.modelHash
	opts := o.opts
	j := newJob(ModeSingle, 1)
	o.job = j
	o.running = true
	o.mu.Unlock()

	jobCtx, cancel := context.WithCancel(ctx)
	j.cancelCtx = cancel

	go func() {
		defer cancel()
		err := o.runSingle(jobCtx, j, modelHash, opts, asset, reanalyse)
		o.finish(j, err)
	}()
	return nil
}

// StartBulk analyzes every asset of the given types, sequentially. Returns a
// precondition error synchronously; the run itself is asynchronous.
func (o *Orchestrator) StartBulk(ctx context.Context, filter FilterMode) error {
	assets := filterAssets(o.store.Assets(), filter)

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		o.log.Warnf("Rejecting bulk analysis: %v", ErrJobRunning)
		return ErrJobRunning
	}
	if o.modelHash == "" {
		o.mu.Unlock()
		return ErrNoModel
	}
	if len(assets) == 0 {
		o.mu.Unlock()
		return ErrNoAssets
	}
	modelHash := o.modelHash
	opts := o.opts
	j := newJob(ModeBulk, len(assets))
	o.job = j
	o.running = true
	o.mu.Unlock()

	jobCtx, cancel := context.WithCancel(ctx)
	j.cancelCtx = cancel

	go func() {
		defer cancel()
		err := o.runBulk(jobCtx, j, modelHash, opts, assets)
		o.finish(j, err)
	}()
	return nil
}

// Cancel requests cooperative cancellation of the running job. If the current
// asset is a video, the long-running server-side job is proactively killed as
// well; merely ignoring the response client-side would leave the GPU busy.
func (o *Orchestrator) Cancel(ctx context.Context) {
	o.mu.Lock()
	j := o.job
	running := o.running
	o.mu.Unlock()

	if !running || j == nil {
		o.log.Warnf("Cancel requested with no job running")
		return
	}
	j.cancelled.Store(true)

	if cur, ok := o.store.CurrentAsset(); ok && cur.Type == anno.AssetVideo {
		go func() {
			if err := o.service.KillVideoInference(ctx); err != nil {
				o.log.Errorf("Failed to kill video inference: %v", err)
			}
		}()
	}
	o.notify(j)
}

// finish moves the job to its terminal state and releases the running flag.
func (o *Orchestrator) finish(j *job, err error) {
	o.mu.Lock()
	switch {
	case err == nil && !j.cancelled.Load():
		j.setState(StateCompleted)
		j.setPercent(100)
	case err == nil || errors.Is(err, remote.ErrStopped) || errors.Is(err, context.Canceled):
		j.setState(StateCancelled)
	default:
		j.setState(StateFailed)
		j.setMessage(err.Error())
	}
	o.running = false
	o.mu.Unlock()

	if err != nil && !errors.Is(err, remote.ErrStopped) && !errors.Is(err, context.Canceled) {
		o.log.Errorf("Analysis job %v failed: %v", j.id, err)
	} else {
		o.log.Infof("Analysis job %v done: %v", j.id, j.status().State)
	}
	o.notify(j)
}

func (o *Orchestrator) notify(j *job) {
	if o.OnStatus != nil {
		o.OnStatus(j.status())
	}
}

func filterAssets(assets []anno.Asset, filter FilterMode) []anno.Asset {
	if filter == FilterBoth || filter == "" {
		return assets
	}
	out := []anno.Asset{}
	for _, a := range assets {
		if (filter == FilterImages && a.Type == anno.AssetImage) ||
			(filter == FilterVideos && a.Type == anno.AssetVideo) {
			out = append(out, a)
		}
	}
	return out
}

// job is the mutable state of one analysis run.
type job struct {
	id        string
	mode      Mode
	cancelled atomic.Bool
	cancelCtx context.CancelFunc

	mu         sync.Mutex
	state      State
	done       int
	total      int
	percent    float64
	multiplier float64 // Damping for synthetic progress; grows every tick
	etaSeconds int
	message    string
}

func newJob(mode Mode, total int) *job {
	return &job{
		id:         uuid.NewString(),
		mode:       mode,
		state:      StateRunning,
		total:      total,
		multiplier: 1,
		etaSeconds: -1,
	}
}

func (j *job) status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobStatus{
		ID:         j.id,
		Mode:       j.mode,
		State:      j.state,
		Done:       j.done,
		Total:      j.total,
		Percent:    j.percent,
		ETASeconds: j.etaSeconds,
		Message:    j.message,
	}
}

func (j *job) setState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

func (j *job) setMessage(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.message = msg
}

// setPercent enforces monotonicity: progress never goes backward.
func (j *job) setPercent(p float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if p > j.percent {
		j.percent = p
	}
}

func (j *job) setETA(seconds int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.etaSeconds = seconds
}

func (j *job) incDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.done++
}
