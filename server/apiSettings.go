package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"github.com/scopelabel/scopelabel/server/configdb"
)

func (s *Server) httpSettingsInferenceGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	settings, err := s.ConfigDB.GetInferenceSettings()
	www.Check(err)
	www.SendJSON(w, settings)
}

// httpSettingsInferenceSet persists the settings and applies them to the
// orchestrator, so the next run picks them up without a restart.
func (s *Server) httpSettingsInferenceSet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	settings := configdb.InferenceSettings{}
	www.ReadJSON(w, r, &settings, 1024*1024)
	if settings.IOU < 0 || settings.IOU > 1 {
		www.PanicBadRequestf("IOU must be between 0 and 1")
	}
	if settings.FrameInterval < 1 {
		www.PanicBadRequestf("Frame interval must be at least 1")
	}
	switch settings.BulkFilter {
	case "image", "video", "both":
	default:
		www.PanicBadRequestf("Invalid bulk filter '%v'", settings.BulkFilter)
	}
	www.Check(s.ConfigDB.SetInferenceSettings(settings))
	opts := s.Orchestrator.Options()
	opts.IOU = settings.IOU
	opts.FrameInterval = settings.FrameInterval
	s.Orchestrator.SetOptions(opts)
	www.SendOK(w)
}

func (s *Server) httpSettingsVisibilityGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	settings, err := s.ConfigDB.GetVisibilitySettings()
	www.Check(err)
	www.SendJSON(w, settings)
}

// httpSettingsVisibilitySet persists the visibility defaults. The live
// visibility state is unaffected; the defaults apply on the next startup or
// an explicit restore.
func (s *Server) httpSettingsVisibilitySet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	settings := configdb.VisibilitySettings{}
	www.ReadJSON(w, r, &settings, 1024*1024)
	if settings.ConfidenceThreshold < 0 || settings.ConfidenceThreshold > 1 {
		www.PanicBadRequestf("Confidence threshold must be between 0 and 1")
	}
	if settings.Opacity < 0 || settings.Opacity > 1 {
		www.PanicBadRequestf("Opacity must be between 0 and 1")
	}
	www.Check(s.ConfigDB.SetVisibilitySettings(settings))
	www.SendOK(w)
}
