// Package feed publishes snapshots to external renderers over WebSocket.
// Renderers are collaborators outside the engine: they only ever see snapshots.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/anggasct/crossing/pkg/core"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// DefaultInterval is the polling period of the feed
const DefaultInterval = 150 * time.Millisecond

const writeTimeout = time.Second

// Source is anything that can produce a snapshot, a simulation or a session
type Source interface {
	Snapshot() core.Snapshot
}

type client struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func (c *client) send(data []byte) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Server polls a source and broadcasts every snapshot as JSON to all connected clients
type Server struct {
	source   Source
	interval time.Duration
	logger   *log.Logger
	upgrader websocket.Upgrader

	latestMu sync.RWMutex
	latest   []byte

	clientsMu sync.Mutex
	clients   map[*client]bool
}

// NewServer creates a feed server. A nil logger uses the default logger.
func NewServer(source Source, interval time.Duration, logger *log.Logger) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		source:   source,
		interval: interval,
		logger:   logger.WithPrefix("feed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
}

// Handler serves /ws for the live feed and /snapshot for the latest snapshot
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	return mux
}

// Clients returns the number of connected clients
func (s *Server) Clients() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Run polls the source until ctx is cancelled, then disconnects every client
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.closeAll()

	s.Poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Poll()
		}
	}
}

// Poll takes one snapshot and broadcasts it
func (s *Server) Poll() {
	data, err := json.Marshal(s.source.Snapshot())
	if err != nil {
		s.logger.Error("encode snapshot", "err", err)
		return
	}

	s.latestMu.Lock()
	s.latest = data
	s.latestMu.Unlock()

	s.broadcast(data)
}

func (s *Server) latestSnapshot() []byte {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest
}

func (s *Server) broadcast(data []byte) {
	s.clientsMu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsMu.Unlock()

	for _, c := range targets {
		if err := c.send(data); err != nil {
			s.logger.Debug("dropping client", "remote", c.conn.RemoteAddr(), "err", err)
			s.remove(c)
		}
	}
}

func (s *Server) remove(c *client) {
	s.clientsMu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.clientsMu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (s *Server) closeAll() {
	s.clientsMu.Lock()
	all := s.clients
	s.clients = make(map[*client]bool)
	s.clientsMu.Unlock()

	for c := range all {
		c.mutex.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed stopped"),
			time.Now().Add(writeTimeout))
		c.mutex.Unlock()
		_ = c.conn.Close()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn}
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()
	s.logger.Debug("client connected", "remote", conn.RemoteAddr())

	if data := s.latestSnapshot(); data != nil {
		if err := c.send(data); err != nil {
			s.remove(c)
			return
		}
	}

	// the feed is one way; reading only detects the client going away
	go func() {
		defer s.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data := s.latestSnapshot()
	if data == nil {
		var err error
		if data, err = json.Marshal(s.source.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
