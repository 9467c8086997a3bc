package server

import (
	"context"
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"github.com/scopelabel/scopelabel/server/analysis"
)

func (s *Server) httpAnalysisStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.Orchestrator.Status())
}

// httpAnalysisSingle analyzes one asset. With no URL given, the currently
// selected asset is analyzed.
func (s *Server) httpAnalysisSingle(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		URL       string `json:"url"`
		Reanalyse bool   `json:"reanalyse"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	asset, ok := s.findAsset(req.URL)
	if req.URL == "" {
		asset, ok = s.Store.CurrentAsset()
	}
	if !ok {
		www.PanicBadRequestf("No asset to analyze")
	}
	// The job outlives this request, so it doesn't inherit the request context.
	www.Check(s.Orchestrator.StartSingle(context.Background(), asset, req.Reanalyse))
	www.SendJSON(w, s.Orchestrator.Status())
}

func (s *Server) httpAnalysisBulk(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		Filter string `json:"filter"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	filter := analysis.FilterMode(req.Filter)
	switch filter {
	case "":
		filter = analysis.FilterBoth
	case analysis.FilterImages, analysis.FilterVideos, analysis.FilterBoth:
	default:
		www.PanicBadRequestf("Invalid filter '%v'. Valid values are 'image', 'video' and 'both'", req.Filter)
	}
	www.Check(s.Orchestrator.StartBulk(context.Background(), filter))
	www.SendJSON(w, s.Orchestrator.Status())
}

func (s *Server) httpAnalysisCancel(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	// The video kill request also outlives this request.
	s.Orchestrator.Cancel(context.Background())
	www.SendJSON(w, s.Orchestrator.Status())
}
