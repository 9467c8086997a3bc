package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/go-resty/resty/v2"

	"github.com/scopelabel/scopelabel/pkg/anno"
)

// Client talks to the inference/model-management service. It is safe for
// concurrent use. Video inference can run for minutes, so the HTTP timeout on
// the underlying client is deliberately generous; callers bound individual
// requests with a context.
type Client struct {
	log logs.Log
	rst *resty.Client
}

func NewClient(log logs.Log, baseURL string) *Client {
	rst := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Minute)
	return &Client{
		log: log,
		rst: rst,
	}
}

// translate maps a resty result into our error taxonomy.
func (c *Client) translate(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if resp.StatusCode() < 300 {
		return nil
	}
	body := errorBody{}
	if jerr := json.Unmarshal(resp.Body(), &body); jerr != nil {
		body.Message = string(resp.Body())
	}
	if body.Error == stoppedProcessCode {
		return fmt.Errorf("%w: %v", ErrStopped, body.Message)
	}
	return &RequestError{
		StatusCode: resp.StatusCode(),
		Code:       body.Error,
		Message:    body.Message,
	}
}

// Heartbeat checks whether the service is up.
func (c *Client) Heartbeat(ctx context.Context) error {
	resp, err := c.rst.R().SetContext(ctx).Get("/heartbeat")
	return c.translate(resp, err)
}

// ListAssets returns the URL-encoded path identifiers of every registered asset.
func (c *Client) ListAssets(ctx context.Context) ([]string, error) {
	var out []string
	resp, err := c.rst.R().SetContext(ctx).SetResult(&out).Get("/api/project/assets")
	if terr := c.translate(resp, err); terr != nil {
		return nil, terr
	}
	return out, nil
}

// SyncFolders asks the service to re-scan all registered folders.
func (c *Client) SyncFolders(ctx context.Context) error {
	resp, err := c.rst.R().SetContext(ctx).Post("/api/project/sync")
	return c.translate(resp, err)
}

// CacheList returns the asset identifiers whose inference results are cached,
// scoped to the given model.
func (c *Client) CacheList(ctx context.Context, modelHash string) ([]string, error) {
	var out []string
	resp, err := c.rst.R().SetContext(ctx).SetResult(&out).
		Get("/api/model/" + modelHash + "/cachelist")
	if terr := c.translate(resp, err); terr != nil {
		return nil, terr
	}
	return out, nil
}

// ModelTags fetches the {tagName: tagID} snapshot for a loaded model.
func (c *Client) ModelTags(ctx context.Context, modelHash string) (map[string]int, error) {
	out := map[string]int{}
	resp, err := c.rst.R().SetContext(ctx).SetResult(&out).
		Get("/api/model/" + modelHash + "/tags")
	if terr := c.translate(resp, err); terr != nil {
		return nil, terr
	}
	return out, nil
}

// ImageRequest are the parameters for single-image inference.
type ImageRequest struct {
	ModelHash string
	Path      string  // Asset's URL-encoded path identifier
	Reanalyse bool    // False fetches cached results without recomputing
	IOU       float32 // NMS intersection-over-union threshold
	Filter    string  // Optional tag filter applied server-side
}

// ImageInference runs (or fetches cached) object detection on one image.
func (c *Client) ImageInference(ctx context.Context, req ImageRequest) ([]anno.Annotation, error) {
	var out []wireAnnotation
	r := c.rst.R().SetContext(ctx).SetResult(&out).
		SetQueryParam("filepath", req.Path).
		SetQueryParam("reanalyse", strconv.FormatBool(req.Reanalyse)).
		SetQueryParam("format", "json")
	if req.IOU != 0 {
		r.SetQueryParam("iou", fmt.Sprintf("%v", req.IOU))
	}
	if req.Filter != "" {
		r.SetQueryParam("filter", req.Filter)
	}
	resp, err := r.Get("/api/model/" + req.ModelHash + "/predict")
	if terr := c.translate(resp, err); terr != nil {
		return nil, terr
	}
	return convertAnnotations(out), nil
}

// VideoRequest are the parameters for video inference.
type VideoRequest struct {
	ModelHash     string
	Path          string
	Reanalyse     bool
	FrameInterval int // Analyze every Nth frame
	IOU           float32
	Confidence    float32
	Filter        string
}

// VideoInference runs (or fetches cached) object detection over a video,
// returning per-frame-bucket annotation sets. This call blocks for the full
// duration of the server-side job; poll PredictionProgress from another
// goroutine for progress.
func (c *Client) VideoInference(ctx context.Context, req VideoRequest) (*anno.VideoFrames, error) {
	out := wireVideoResult{}
	r := c.rst.R().SetContext(ctx).SetResult(&out).
		SetQueryParam("filepath", req.Path).
		SetQueryParam("reanalyse", strconv.FormatBool(req.Reanalyse)).
		SetQueryParam("frameInterval", strconv.Itoa(req.FrameInterval))
	if req.IOU != 0 {
		r.SetQueryParam("iou", fmt.Sprintf("%v", req.IOU))
	}
	if req.Confidence != 0 {
		r.SetQueryParam("confidence", fmt.Sprintf("%v", req.Confidence))
	}
	if req.Filter != "" {
		r.SetQueryParam("filter", req.Filter)
	}
	resp, err := r.Get("/api/model/" + req.ModelHash + "/predict/video")
	if terr := c.translate(resp, err); terr != nil {
		return nil, terr
	}
	return convertVideoResult(&out)
}

// KillVideoInference tells the service to stop the currently running
// server-side video job. Fire-and-forget: an error here is logged by callers
// but does not change job state.
func (c *Client) KillVideoInference(ctx context.Context) error {
	resp, err := c.rst.R().SetContext(ctx).Post("/api/model/predict/video/kill")
	return c.translate(resp, err)
}

// Progress is the service's report of the running prediction job.
// Progress==1 && Total==1 is the sentinel for "no job running".
type Progress struct {
	Progress int `json:"progress"`
	Total    int `json:"total"`
}

// Idle reports the no-job-running sentinel.
func (p Progress) Idle() bool {
	return p.Progress == 1 && p.Total == 1
}

// PredictionProgress polls the (progress, total) pair of the running job.
func (c *Client) PredictionProgress(ctx context.Context) (Progress, error) {
	out := Progress{}
	resp, err := c.rst.R().SetContext(ctx).SetResult(&out).
		Get("/api/model/predict/progress")
	if terr := c.translate(resp, err); terr != nil {
		return Progress{}, terr
	}
	return out, nil
}
