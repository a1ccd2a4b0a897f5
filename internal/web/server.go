package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guidoenr/dandelion/internal/app"
)

//go:embed index.html
var indexHTML []byte

const (
	statusInterval = 250 * time.Millisecond
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
)

// Controller is the part of the application the web remote drives.
type Controller interface {
	Snapshot() app.Snapshot
	Post(app.Event) bool
	Styles() []string
}

// Server serves the remote page, a small JSON API and a websocket that
// carries pointer moves in and status frames out.
type Server struct {
	mu        sync.RWMutex
	ctrl      Controller
	clients   map[*websocketClient]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
	log       *log.Logger
}

type websocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server
}

// Message is the envelope of every websocket frame, in both directions.
type Message struct {
	Type   string        `json:"type"`
	X      float64       `json:"x,omitempty"`
	Width  float64       `json:"width,omitempty"`
	Name   string        `json:"name,omitempty"`
	Status *app.Snapshot `json:"status,omitempty"`
}

type styleRequest struct {
	Name string `json:"name"`
}

func NewServer(ctrl Controller, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &Server{
		ctrl:      ctrl,
		clients:   make(map[*websocketClient]bool),
		broadcast: make(chan []byte, 256),
		log:       logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the HTTP routes of the remote.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/styles", s.handleStyles)
	mux.HandleFunc("/api/style", s.handleStyle)
	mux.HandleFunc("/api/relayout", s.handleRelayout)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Printf("[web] remote listening on http://0.0.0.0%s", srv.Addr)

	go s.broadcastLoop(ctx)
	go s.statusUpdateLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Styles())
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req styleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if !s.knownStyle(req.Name) {
		http.Error(w, fmt.Sprintf("unknown style %q", req.Name), http.StatusNotFound)
		return
	}
	s.post(w, app.Event{Kind: app.EventSetStyle, Style: req.Name})
}

func (s *Server) handleRelayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.post(w, app.Event{Kind: app.EventRelayout})
}

func (s *Server) post(w http.ResponseWriter, evt app.Event) {
	if !s.ctrl.Post(evt) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) knownStyle(name string) bool {
	for _, n := range s.ctrl.Styles() {
		if n == name {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("[web] websocket upgrade error: %v", err)
		return
	}

	client := &websocketClient{
		conn:   conn,
		send:   make(chan []byte, 64),
		server: s,
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) removeClient(c *websocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case message := <-s.broadcast:
			s.mu.Lock()
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(s.clients, client)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *Server) statusUpdateLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.clientCount() > 0 {
				s.pushStatus()
			}
		}
	}
}

// pushStatus queues the current snapshot for every client. Full queues drop it.
func (s *Server) pushStatus() {
	snap := s.ctrl.Snapshot()
	data, err := json.Marshal(Message{Type: "status", Status: &snap})
	if err != nil {
		s.log.Printf("[web] encode status: %v", err)
		return
	}
	select {
	case s.broadcast <- data:
	default:
	}
}

func (s *Server) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Printf("[web] bad message: %v", err)
		return
	}
	switch msg.Type {
	case "pointer":
		s.ctrl.Post(app.Event{Kind: app.EventPointer, X: msg.X, Width: msg.Width})
	case "style":
		if msg.Name == "" {
			s.ctrl.Post(app.Event{Kind: app.EventNextStyle})
			return
		}
		s.ctrl.Post(app.Event{Kind: app.EventSetStyle, Style: msg.Name})
	case "relayout":
		s.ctrl.Post(app.Event{Kind: app.EventRelayout})
	default:
		s.log.Printf("[web] unknown message type %q", msg.Type)
	}
}

func (c *websocketClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.server.handleMessage(data)
	}
}

func (c *websocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
