package automation

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sprite-ai/batchrev/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 16,
	WriteBufferSize: 1024 * 16,
	CheckOrigin: func(r *http.Request) bool {
		return true // listener is loopback-only
	},
}

// eventMessage is the envelope for snapshot pushes to event clients. The
// stream is one-way: clients receive state, they cannot send commands.
type eventMessage struct {
	Type     string         `json:"type"`
	Snapshot model.Snapshot `json:"snapshot"`
}

const eventSnapshot = "snapshot"

// wsClient is one connected event-stream client. Snapshot pushes arrive
// from whichever goroutine mutated the queues, and the connection tolerates
// only a single writer at a time, so every write holds the client lock.
type wsClient struct {
	conn *websocket.Conn

	mu sync.Mutex
}

func (c *wsClient) write(snap model.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(eventMessage{Type: eventSnapshot, Snapshot: snap})
}

// clientSet tracks connected event-stream clients.
type clientSet struct {
	mu    sync.Mutex
	conns map[*wsClient]bool
}

func (c *clientSet) add(cl *wsClient) {
	c.mu.Lock()
	if c.conns == nil {
		c.conns = map[*wsClient]bool{}
	}
	c.conns[cl] = true
	c.mu.Unlock()
}

func (c *clientSet) remove(cl *wsClient) {
	c.mu.Lock()
	delete(c.conns, cl)
	c.mu.Unlock()
}

func (c *clientSet) all() []*wsClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*wsClient, 0, len(c.conns))
	for cl := range c.conns {
		out = append(out, cl)
	}
	return out
}

func (c *clientSet) closeAll() {
	for _, cl := range c.all() {
		cl.conn.Close()
	}
	c.mu.Lock()
	c.conns = nil
	c.mu.Unlock()
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.handleNotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("automation: websocket upgrade: %v", err)
		return
	}
	cl := &wsClient{conn: conn}
	s.clients.add(cl)
	defer func() {
		s.clients.remove(cl)
		conn.Close()
	}()

	// Initial state, then pushes arrive via Broadcast.
	s.send(cl, s.ctrl.Snapshot())

	for {
		// Inbound messages are ignored; the read loop only detects close.
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("automation: websocket read: %v", err)
			}
			return
		}
	}
}

// Broadcast pushes a snapshot to every connected event client.
func (s *Server) Broadcast(snap model.Snapshot) {
	for _, cl := range s.clients.all() {
		s.send(cl, snap)
	}
}

func (s *Server) send(cl *wsClient, snap model.Snapshot) {
	if err := cl.write(snap); err != nil {
		log.Printf("automation: websocket write: %v", err)
	}
}
