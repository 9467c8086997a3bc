package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) setupHTTP() *httprouter.Router {
	router := httprouter.New()

	handle := func(method, route string, handler httprouter.Handle) {
		www.Handle(s.Log, router, method, route, handler)
	}

	handle("GET", "/api/ping", s.httpPing)
	handle("GET", "/api/status", s.httpStatus)
	handle("GET", "/api/snapshot", s.httpSnapshot)

	handle("GET", "/api/assets", s.httpAssetList)
	handle("POST", "/api/assets/refresh", s.httpAssetRefresh)
	handle("POST", "/api/assets/sync", s.httpAssetSync)
	handle("POST", "/api/assets/select", s.httpAssetSelect)

	handle("POST", "/api/media/dimensions", s.httpMediaDimensions)
	handle("POST", "/api/media/frame", s.httpMediaFrame)
	handle("GET", "/api/analytics", s.httpAnalytics)

	handle("GET", "/api/visibility", s.httpVisibilityGet)
	handle("POST", "/api/visibility/threshold", s.httpVisibilityThreshold)
	handle("POST", "/api/visibility/filter", s.httpVisibilityFilter)
	handle("POST", "/api/visibility/annotations", s.httpVisibilityAnnotations)
	handle("POST", "/api/visibility/all", s.httpVisibilityAll)
	handle("POST", "/api/visibility/select", s.httpVisibilitySelect)
	handle("POST", "/api/visibility/selectAt", s.httpVisibilitySelectAt)
	handle("POST", "/api/visibility/style", s.httpVisibilityStyle)

	handle("GET", "/api/analysis/status", s.httpAnalysisStatus)
	handle("POST", "/api/analysis/single", s.httpAnalysisSingle)
	handle("POST", "/api/analysis/bulk", s.httpAnalysisBulk)
	handle("POST", "/api/analysis/cancel", s.httpAnalysisCancel)

	handle("GET", "/api/model", s.httpModelGet)
	handle("POST", "/api/model/load", s.httpModelLoad)
	handle("POST", "/api/model/unload", s.httpModelUnload)

	handle("GET", "/api/settings/inference", s.httpSettingsInferenceGet)
	handle("POST", "/api/settings/inference", s.httpSettingsInferenceSet)
	handle("GET", "/api/settings/visibility", s.httpSettingsVisibilityGet)
	handle("POST", "/api/settings/visibility", s.httpSettingsVisibilitySet)

	router.GET("/ws", s.httpWS)

	return router
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendText(w, "pong")
}
