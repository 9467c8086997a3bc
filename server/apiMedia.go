package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

// httpMediaDimensions is called by the viewer once the media element has
// decoded the asset and knows its true pixel size.
func (s *Server) httpMediaDimensions(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if req.Width <= 0 || req.Height <= 0 {
		www.PanicBadRequestf("Invalid dimensions %vx%v", req.Width, req.Height)
	}
	s.Store.SetMediaDimensions(req.URL, req.Width, req.Height)
	www.SendOK(w)
}

// httpMediaFrame is the viewer's frame presentation report during video
// playback. mediaTime is the playback position in seconds.
func (s *Server) httpMediaFrame(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		MediaTime float64 `json:"mediaTime"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if req.MediaTime < 0 {
		www.PanicBadRequestf("Invalid media time %v", req.MediaTime)
	}
	s.frames.Deliver(req.MediaTime)
	www.SendOK(w)
}

func (s *Server) httpAnalytics(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.Store.Analytics())
}

func (s *Server) httpSnapshot(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.Store.Snapshot())
}

func (s *Server) httpStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	ok, at := s.heartbeatStatus()
	www.SendJSON(w, struct {
		ServiceReachable bool   `json:"serviceReachable"`
		LastHeartbeat    string `json:"lastHeartbeat"`
		ModelHash        string `json:"modelHash"`
	}{
		ServiceReachable: ok,
		LastHeartbeat:    at.Format(time.RFC3339),
		ModelHash:        s.Orchestrator.ModelHash(),
	})
}
