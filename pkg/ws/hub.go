package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Peer is a WebSocket connection that may be written from several
// goroutines.
type Peer struct {
	ID   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewPeer(id string, c *websocket.Conn) *Peer {
	return &Peer{ID: id, conn: c}
}

func (p *Peer) WriteJSON(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteJSON(v)
}

func (p *Peer) Ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (p *Peer) Close() error { return p.conn.Close() }

// Hub tracks the open peer of each session. A session has at most one
// peer; adding a second closes the first.
type Hub struct {
	mu    sync.RWMutex
	peers map[string]*Peer
}

func NewHub() *Hub {
	return &Hub{peers: map[string]*Peer{}}
}

func (h *Hub) Add(p *Peer) {
	h.mu.Lock()
	old := h.peers[p.ID]
	h.peers[p.ID] = p
	h.mu.Unlock()
	if old != nil && old != p {
		old.Close()
	}
}

func (h *Hub) Get(id string) (*Peer, bool) {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	return p, ok
}

// Remove drops p if it is still the session's current peer.
func (h *Hub) Remove(p *Peer) {
	h.mu.Lock()
	if h.peers[p.ID] == p {
		delete(h.peers, p.ID)
	}
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// CloseAll closes every peer; used on shutdown since hijacked connections
// outlive http.Server.Shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	peers := h.peers
	h.peers = map[string]*Peer{}
	h.mu.Unlock()
	for _, p := range peers {
		p.Close()
	}
}
