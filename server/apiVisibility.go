package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"github.com/scopelabel/scopelabel/server/engine"
)

func (s *Server) httpVisibilityGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.Store.Visibility())
}

func (s *Server) httpVisibilityThreshold(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		Threshold float32 `json:"threshold"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	s.Store.SetConfidenceThreshold(req.Threshold)
	www.SendOK(w)
}

func (s *Server) httpVisibilityFilter(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := engine.TagFilter{}
	www.ReadJSON(w, r, &req, 1024*1024)
	s.Store.SetTagFilter(req.Terms, req.IncludeMode)
	www.SendOK(w)
}

// httpVisibilityAnnotations hides or shows individual annotations by ID.
func (s *Server) httpVisibilityAnnotations(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		IDs     []string `json:"ids"`
		Visible bool     `json:"visible"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if len(req.IDs) == 0 {
		www.PanicBadRequestf("No annotation IDs given")
	}
	s.Store.SetAnnotationVisibility(req.Visible, req.IDs...)
	www.SendOK(w)
}

func (s *Server) httpVisibilityAll(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		Visible bool `json:"visible"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	s.Store.SetAllVisible(req.Visible)
	www.SendOK(w)
}

// httpVisibilitySelect sets the selected annotation. An empty ID clears the selection.
func (s *Server) httpVisibilitySelect(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		ID string `json:"id"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	s.Store.SelectAnnotation(req.ID)
	www.SendOK(w)
}

// httpVisibilitySelectAt selects the annotation under a surface-space point
// (a click on the rendered media). A miss clears the selection.
func (s *Server) httpVisibilitySelectAt(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		X float32 `json:"x"`
		Y float32 `json:"y"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	s.Store.SelectAnnotationAt(req.X, req.Y)
	www.SendOK(w)
}

func (s *Server) httpVisibilityStyle(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		Opacity         *float32 `json:"opacity"`
		Outline         *bool    `json:"outline"`
		AlwaysShowLabel *bool    `json:"alwaysShowLabel"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if req.Opacity != nil {
		s.Store.SetOpacity(*req.Opacity)
	}
	if req.Outline != nil {
		s.Store.SetOutline(*req.Outline)
	}
	if req.AlwaysShowLabel != nil {
		s.Store.SetAlwaysShowLabel(*req.AlwaysShowLabel)
	}
	www.SendOK(w)
}
