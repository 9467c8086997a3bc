package server

import (
	"net/http"

	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
	"github.com/scopelabel/scopelabel/pkg/anno"
)

func (s *Server) httpAssetList(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.Store.Assets())
}

func (s *Server) httpAssetRefresh(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.Check(s.RefreshAssets(r.Context()))
	www.SendJSON(w, s.Store.Assets())
}

func (s *Server) httpAssetSync(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.Check(s.SyncFolders(r.Context()))
	www.SendJSON(w, s.Store.Assets())
}

func (s *Server) httpAssetSelect(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	req := struct {
		URL       string `json:"url"`
		AutoFetch bool   `json:"autoFetch"`
	}{}
	www.ReadJSON(w, r, &req, 1024*1024)
	asset, ok := s.findAsset(req.URL)
	if !ok {
		www.PanicBadRequestf("Unknown asset '%v'", req.URL)
	}
	s.Store.SelectAsset(asset, req.AutoFetch)
	www.SendOK(w)
}

func (s *Server) findAsset(url string) (anno.Asset, bool) {
	for _, a := range s.Store.Assets() {
		if a.URL == url {
			return a, true
		}
	}
	return anno.Asset{}, false
}
