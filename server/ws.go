package server

import (
	"net/http"
	"sync"

	"github.com/cyclopcam/logs"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/scopelabel/scopelabel/pkg/anno"
	"github.com/scopelabel/scopelabel/server/analysis"
	"github.com/scopelabel/scopelabel/server/engine"
)

const (
	wsTypeSnapshot = "snapshot"
	wsTypeJob      = "job"
	wsTypeMedia    = "media"
	wsTypeFit      = "fit"
	wsTypeRender   = "render"
)

// wsMessage is the single envelope for everything we push to viewers.
// Exactly one of the payload fields is set, according to Type.
type wsMessage struct {
	Type     string               `json:"type"`
	Snapshot *engine.Snapshot     `json:"snapshot,omitempty"`
	Job      *analysis.JobStatus  `json:"job,omitempty"`
	Media    *anno.Asset          `json:"media,omitempty"`
	Width    int                  `json:"width,omitempty"`
	Height   int                  `json:"height,omitempty"`
	Shapes   []engine.StyledShape `json:"shapes,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage
}

// wsHub fans messages out to all connected viewers. Each client gets a
// dedicated writer goroutine so that one slow browser can't block the engine.
type wsHub struct {
	log     logs.Log
	mu      sync.Mutex
	clients map[*wsClient]bool
}

func newWsHub(logger logs.Log) *wsHub {
	return &wsHub{
		log:     logger,
		clients: map[*wsClient]bool{},
	}
}

func (h *wsHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *wsHub) broadcast(msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Client's queue is full. Drop the message rather than stall;
			// the next snapshot supersedes this one anyway.
		}
	}
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c)
		c.conn.Close()
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// httpWS upgrades the connection and streams engine state to the viewer. The
// first message is always the current snapshot, so a freshly connected viewer
// renders immediately instead of waiting for the next change.
func (s *Server) httpWS(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Errorf("Websocket upgrade failed: %v", err)
		return
	}
	client := &wsClient{
		conn: conn,
		send: make(chan wsMessage, 100),
	}
	s.hub.add(client)

	snap := s.Store.Snapshot()
	client.send <- wsMessage{Type: wsTypeSnapshot, Snapshot: &snap}

	go s.wsWriter(client)
	go s.wsReader(client)
}

func (s *Server) wsWriter(c *wsClient) {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			s.Log.Infof("Websocket write failed, dropping client: %v", err)
			break
		}
	}
	s.hub.remove(c)
	c.conn.Close()
}

// wsReader exists to notice the client going away. Viewers talk to us over
// the regular HTTP API; the websocket is push-only.
func (s *Server) wsReader(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.remove(c)
	c.conn.Close()
}

// wsSurface implements engine.Surface by forwarding render instructions to
// every connected viewer.
type wsSurface struct {
	hub *wsHub
}

func newWsSurface(hub *wsHub) *wsSurface {
	return &wsSurface{hub: hub}
}

func (s *wsSurface) SetMedia(asset anno.Asset) {
	a := asset
	s.hub.broadcast(wsMessage{Type: wsTypeMedia, Media: &a})
}

func (s *wsSurface) FitBounds(width, height int) {
	s.hub.broadcast(wsMessage{Type: wsTypeFit, Width: width, Height: height})
}

func (s *wsSurface) Render(shapes []engine.StyledShape) {
	s.hub.broadcast(wsMessage{Type: wsTypeRender, Shapes: shapes})
}
