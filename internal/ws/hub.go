package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourname/contest-matchmaker/pkg/types"
)

const writeWait = 5 * time.Second

type delivery struct {
	to []string
	ev types.Event
}

// Hub pushes events to connected players. One player may hold several connections.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]bool

	// outMu guards closing the outbox against concurrent Notify.
	outMu  sync.RWMutex
	closed bool
	outbox chan delivery

	upgrade websocket.Upgrader
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: map[string]map[*websocket.Conn]bool{},
		outbox:  make(chan delivery, 256),
		upgrade: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:     log,
	}
}

// Run delivers queued events until Close.
func (h *Hub) Run() {
	for d := range h.outbox {
		for _, key := range d.to {
			h.send(key, d.ev)
		}
	}
}

// Close stops Run once queued events are delivered. Later Notify calls are
// dropped. Safe to call more than once.
func (h *Hub) Close() {
	h.outMu.Lock()
	defer h.outMu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.outbox)
}

// Notify queues a match_found event for every player in the match. It never
// blocks; events are dropped when the outbox is full or the hub is closed.
func (h *Hub) Notify(m types.Match) {
	d := delivery{to: m.PlayerKeys(), ev: types.Event{Type: types.EventMatchFound, Payload: m}}
	h.outMu.RLock()
	defer h.outMu.RUnlock()
	if h.closed {
		h.log.Debug("ws hub closed, dropping match notification", zap.String("matchId", m.ID))
		return
	}
	select {
	case h.outbox <- d:
	default:
		h.log.Warn("ws outbox full, dropping match notification", zap.String("matchId", m.ID))
	}
}

// Connected reports how many connections a player holds.
func (h *Hub) Connected(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[key])
}

func (h *Hub) send(key string, ev types.Event) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients[key]))
	for c := range h.clients[key] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteJSON(ev); err != nil {
			h.log.Warn("ws write failed", zap.String("player", key), zap.Error(err))
			h.drop(key, c)
		}
	}
}

func (h *Hub) add(key string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[key] == nil {
		h.clients[key] = map[*websocket.Conn]bool{}
	}
	h.clients[key][c] = true
}

func (h *Hub) drop(key string, c *websocket.Conn) {
	h.mu.Lock()
	if conns, ok := h.clients[key]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, key)
		}
	}
	h.mu.Unlock()
	_ = c.Close()
}

// ServeWS upgrades the request and registers the connection under the
// player key from the "player" query parameter.
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("player")
	if key == "" {
		http.Error(w, "missing player", http.StatusBadRequest)
		return
	}
	c, err := h.upgrade.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	h.add(key, c)

	// the read loop only exists to notice the client going away
	go func() {
		defer h.drop(key, c)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
