package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/scopelabel/scopelabel/server/analysis"
	"github.com/scopelabel/scopelabel/server/configdb"
	"github.com/scopelabel/scopelabel/server/engine"
	"github.com/scopelabel/scopelabel/server/remote"
)

// Server ties the annotation engine to the outside world. It owns the HTTP API,
// the websocket hub that pushes render state to connected viewers, and the
// background heartbeat that watches the inference service.
type Server struct {
	Log          logs.Log
	Store        *engine.Store
	Orchestrator *analysis.Orchestrator
	Remote       *remote.Client
	ConfigDB     *configdb.ConfigDB

	hub    *wsHub
	frames *frameGateway

	httpServer *http.Server

	// lastHeartbeatOK is updated by the heartbeat loop, read by the status API
	heartbeatLock   sync.Mutex
	lastHeartbeatOK bool
	lastHeartbeatAt time.Time

	shutdown     context.Context
	shutdownDone context.CancelFunc
}

func NewServer(logger logs.Log, remoteClient *remote.Client, cfg *configdb.ConfigDB) (*Server, error) {
	s := &Server{
		Log:      logger,
		Remote:   remoteClient,
		ConfigDB: cfg,
	}
	s.shutdown, s.shutdownDone = context.WithCancel(context.Background())
	s.hub = newWsHub(logger)
	s.frames = newFrameGateway()
	s.Store = engine.NewStore(logger, newWsSurface(s.hub), s.frames)
	s.Orchestrator = analysis.NewOrchestrator(logger, s.Store, remoteClient, s.analysisOptions())
	s.Orchestrator.OnStatus = func(st analysis.JobStatus) {
		s.hub.broadcast(wsMessage{Type: wsTypeJob, Job: &st})
	}
	if err := s.restoreSettings(); err != nil {
		return nil, err
	}
	go s.snapshotPump()
	return s, nil
}

// restoreSettings applies persisted visibility and inference settings, and
// reloads the last model if one was in use.
func (s *Server) restoreSettings() error {
	vis, err := s.ConfigDB.GetVisibilitySettings()
	if err != nil {
		return fmt.Errorf("read visibility settings: %w", err)
	}
	s.Store.SetVisibility(engine.VisibilityState{
		ConfidenceThreshold: vis.ConfidenceThreshold,
		Style: engine.Style{
			Outline: vis.Outline,
			Opacity: vis.Opacity,
		},
		AlwaysShowLabel: vis.AlwaysShowLabel,
		TagFilter:       engine.TagFilter{IncludeMode: true},
	})
	if hash, err := s.ConfigDB.GetLastModelHash(); err == nil && hash != "" {
		// Best effort. The inference service may not be up yet, in which case
		// the user reloads the model by hand once it is.
		if err := s.LoadModel(context.Background(), hash); err != nil {
			s.Log.Warnf("Failed to reload model %v: %v", hash, err)
		}
	}
	return nil
}

func (s *Server) analysisOptions() analysis.Options {
	opts := analysis.DefaultOptions()
	inf, err := s.ConfigDB.GetInferenceSettings()
	if err != nil {
		s.Log.Warnf("Failed to read inference settings, using defaults: %v", err)
		return opts
	}
	opts.IOU = inf.IOU
	opts.FrameInterval = inf.FrameInterval
	return opts
}

// LoadModel fetches the model's tag map from the inference service and makes
// the model current for all subsequent analysis.
func (s *Server) LoadModel(ctx context.Context, modelHash string) error {
	tags, err := s.Remote.ModelTags(ctx, modelHash)
	if err != nil {
		return err
	}
	s.Store.SetTags(tags)
	s.Orchestrator.SetModel(modelHash)
	if err := s.ConfigDB.SetLastModelHash(modelHash); err != nil {
		s.Log.Warnf("Failed to persist model hash: %v", err)
	}
	s.Log.Infof("Loaded model %v with %v tags", modelHash, len(tags))
	return nil
}

func (s *Server) UnloadModel() {
	s.Store.ClearTags()
	s.Orchestrator.SetModel("")
	if err := s.ConfigDB.SetLastModelHash(""); err != nil {
		s.Log.Warnf("Failed to clear persisted model hash: %v", err)
	}
}

// RefreshAssets pulls the asset list and the cached-asset list from the
// inference service and installs them in the store.
func (s *Server) RefreshAssets(ctx context.Context) error {
	urls, err := s.Remote.ListAssets(ctx)
	if err != nil {
		return err
	}
	cached, err := s.Remote.CacheList(ctx, s.Orchestrator.ModelHash())
	if err != nil {
		return err
	}
	s.Store.SetAssetList(urls, cached)
	return nil
}

// SyncFolders asks the inference service to rescan its registered folders,
// then refreshes the asset list.
func (s *Server) SyncFolders(ctx context.Context) error {
	if err := s.Remote.SyncFolders(ctx); err != nil {
		return err
	}
	return s.RefreshAssets(ctx)
}

// RunHeartbeat pings the inference service until ctx is cancelled. Transient
// network failures surface here as a state change that viewers see on the
// status API, and recovery is logged once per transition.
func (s *Server) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok := s.Remote.Heartbeat(ctx) == nil
		s.heartbeatLock.Lock()
		prev := s.lastHeartbeatOK
		s.lastHeartbeatOK = ok
		s.lastHeartbeatAt = time.Now()
		s.heartbeatLock.Unlock()
		if ok && !prev {
			s.Log.Infof("Inference service is reachable")
		} else if !ok && prev {
			s.Log.Warnf("Inference service is unreachable")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) heartbeatStatus() (ok bool, at time.Time) {
	s.heartbeatLock.Lock()
	defer s.heartbeatLock.Unlock()
	return s.lastHeartbeatOK, s.lastHeartbeatAt
}

// snapshotPump forwards engine snapshots to all connected websockets.
func (s *Server) snapshotPump() {
	ch := s.Store.AddWatcher()
	defer s.Store.RemoveWatcher(ch)
	for {
		select {
		case <-s.shutdown.Done():
			return
		case snap := <-ch:
			s.hub.broadcast(wsMessage{Type: wsTypeSnapshot, Snapshot: &snap})
		}
	}
}

// ListenAndServe blocks until Shutdown is called or the listener fails.
func (s *Server) ListenAndServe(port int) error {
	router := s.setupHTTP()
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%v", port),
		Handler: router,
	}
	s.Log.Infof("Listening on %v", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown() {
	s.shutdownDone()
	s.hub.closeAll()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Orchestrator.Cancel(ctx)
}
