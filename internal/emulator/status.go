package emulator

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Buffered status lines per subscriber before it is dropped
	subscriberBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// feed fans status lines out to websocket subscribers
type feed struct {
	mu     sync.Mutex
	subs   map[chan string]struct{}
	closed bool
}

func newFeed() *feed {
	return &feed{subs: make(map[chan string]struct{})}
}

func (f *feed) subscribe() (chan string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, false
	}
	ch := make(chan string, subscriberBuffer)
	f.subs[ch] = struct{}{}
	return ch, true
}

func (f *feed) unsubscribe(ch chan string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

// publish never blocks; slow subscribers are disconnected
func (f *feed) publish(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- line:
		default:
			delete(f.subs, ch)
			close(ch)
		}
	}
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}

// StatusHandler returns the status router
func (s *Server) StatusHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleStatusSocket)
	r.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/requests", s.handleRequests).Methods(http.MethodGet)
	r.HandleFunc("/upload", s.handleLastUpload).Methods(http.MethodGet)
	return r
}

func (s *Server) handleStatusSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	ch, ok := s.feed.subscribe()
	if !ok {
		return
	}
	defer s.feed.unsubscribe(ch)

	logging.LogConnection(r.RemoteAddr, "status_subscribed")

	// Drain client frames so close and ping control frames are handled
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeLine(conn, "state "+string(s.State())); err != nil {
		return
	}

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if err := writeLine(conn, line); err != nil {
				logging.Debug("Status subscriber write failed", zap.Error(err))
				return
			}
		case <-gone:
			logging.LogConnection(r.RemoteAddr, "status_unsubscribed")
			return
		}
	}
}

func writeLine(conn *websocket.Conn, line string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	name, data := s.LastUpload()
	writeJSON(w, map[string]any{
		"state":         s.State(),
		"file_name":     name,
		"file_bytes":    len(data),
		"request_count": len(s.Requests()),
	})
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Requests())
}

func (s *Server) handleLastUpload(w http.ResponseWriter, r *http.Request) {
	name, data := s.LastUpload()
	if name == "" {
		http.Error(w, "no upload", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/x-gcode")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode JSON response", zap.Error(err))
	}
}
