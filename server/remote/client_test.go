package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(logs.NewTestingLog(t), srv.URL), srv
}

func TestImageInference(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/model/abc123/predict", r.URL.Path)
		require.Equal(t, "folder%2Fcat.jpg", r.URL.Query().Get("filepath"))
		require.Equal(t, "true", r.URL.Query().Get("reanalyse"))
		require.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"annotationID":"a1","tag":{"id":2,"name":"Dog"},"boundType":"rectangle",
			 "bound":[[0.1,0.2],[0.5,0.2],[0.5,0.6],[0.1,0.6]],"confidence":0.87},
			{"tag":{"id":0,"name":"Person"},"boundType":"masks",
			 "bound":[[0,0],[1,1]],
			 "contour":[[0.2,0.2],[0.4,0.3],[0.3,0.5]],"confidence":0.6}
		]`))
	}))

	anns, err := client.ImageInference(context.Background(), ImageRequest{
		ModelHash: "abc123",
		Path:      "folder%2Fcat.jpg",
		Reanalyse: true,
		IOU:       0.8,
	})
	require.NoError(t, err)
	require.Len(t, anns, 2)

	require.Equal(t, "a1", anns[0].ID)
	require.Equal(t, 2, anns[0].TagID)
	require.Equal(t, anno.BoundRectangle, anns[0].BoundType)
	require.Len(t, anns[0].Vertices, 4)
	require.Equal(t, float32(0.87), anns[0].Confidence)

	// Omitted annotation ID falls back to the list index, and masks use the
	// contour, not the bound.
	require.Equal(t, "1", anns[1].ID)
	require.Equal(t, anno.BoundMask, anns[1].BoundType)
	require.Len(t, anns[1].Vertices, 3)
	require.Equal(t, anno.Vec2{X: 0.2, Y: 0.2}, anns[1].Vertices[0])
}

func TestVideoInference(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/model/abc123/predict/video", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("frameInterval"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fps":30,"frames":{
			"0":[{"annotationID":"x","tag":{"id":1,"name":"Car"},"boundType":"rectangle","bound":[[0,0],[1,1]],"confidence":0.9}],
			"166":[]
		}}`))
	}))

	frames, err := client.VideoInference(context.Background(), VideoRequest{
		ModelHash:     "abc123",
		Path:          "clip.mp4",
		FrameInterval: 5,
	})
	require.NoError(t, err)
	require.Equal(t, float64(30), frames.FPS)
	require.Len(t, frames.Frames, 2)
	require.Len(t, frames.Frames[0], 1)
	require.Equal(t, "x", frames.Frames[0][0].ID)
	require.Empty(t, frames.Frames[166])
}

func TestStoppedProcessError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte(`{"error":"STOPPEDPROCESS","message":"stopped by user"}`))
	}))

	_, err := client.VideoInference(context.Background(), VideoRequest{ModelHash: "m", Path: "v.mp4", FrameInterval: 1})
	require.ErrorIs(t, err, ErrStopped)
}

func TestRequestError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"error":"INVALIDFILEPATH","message":"no such asset"}`))
	}))

	_, err := client.ImageInference(context.Background(), ImageRequest{ModelHash: "m", Path: "x.jpg"})
	reqErr := &RequestError{}
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, 400, reqErr.StatusCode)
	require.Equal(t, "INVALIDFILEPATH", reqErr.Code)
	require.Equal(t, "no such asset", reqErr.Message)
	require.Equal(t, "no such asset", reqErr.Error())
}

func TestTransientError(t *testing.T) {
	client, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := client.Heartbeat(context.Background())
	require.ErrorIs(t, err, ErrTransient)
}

func TestModelTags(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/model/abc123/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Person":0,"Car":1}`))
	}))

	tags, err := client.ModelTags(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, map[string]int{"Person": 0, "Car": 1}, tags)
}

func TestProgressIdleSentinel(t *testing.T) {
	require.True(t, Progress{Progress: 1, Total: 1}.Idle())
	require.False(t, Progress{Progress: 1, Total: 2}.Idle())
	require.False(t, Progress{Progress: 0, Total: 0}.Idle())

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/model/predict/progress", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"progress":40,"total":120}`))
	}))
	p, err := client.PredictionProgress(context.Background())
	require.NoError(t, err)
	require.Equal(t, Progress{Progress: 40, Total: 120}, p)
	require.False(t, p.Idle())
}

func TestKillVideoInference(t *testing.T) {
	killed := false
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/api/model/predict/video/kill", r.URL.Path)
		killed = true
	}))
	require.NoError(t, client.KillVideoInference(context.Background()))
	require.True(t, killed)
}

func TestNonJSONErrorBody(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(502)
		w.Write([]byte("Bad Gateway"))
	}))
	err := client.Heartbeat(context.Background())
	reqErr := &RequestError{}
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, 502, reqErr.StatusCode)
	require.Equal(t, "Bad Gateway", reqErr.Message)
	require.False(t, errors.Is(err, ErrStopped))
}
