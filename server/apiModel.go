package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) httpModelGet(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, struct {
		ModelHash string   `json:"modelHash"`
		Tags      []string `json:"tags"`
	}{
		ModelHash: s.Orchestrator.ModelHash(),
		Tags:      s.Store.Tags().Names(),
	})
}

func (s *Server) httpModelLoad(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		Hash string `json:"hash"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	if req.Hash == "" {
		www.PanicBadRequestf("Model hash is required")
	}
	www.Check(s.LoadModel(r.Context(), req.Hash))
	www.SendOK(w)
}

func (s *Server) httpModelUnload(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	s.UnloadModel()
	www.SendOK(w)
}
