package emulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

// Firmware targets
const (
	UploadTarget = "/upload"
	HoldTarget   = "/set?cmd={P:X}"
	StartTarget  = "/set?code=M565"

	// UploadField is the multipart field holding the G-code
	UploadField = "filedata"
)

// State is the emulated printer state
type State string

const (
	StateIdle     State = "idle"
	StateUploaded State = "uploaded"
	StateHeld     State = "held"
	StatePrinting State = "printing"
)

// Config holds the emulator configuration
type Config struct {
	Host       string
	Port       int // Firmware port; 0 picks a free port
	StatusPort int // Status/websocket port; 0 disables it

	UploadDir      string // Directory to write uploads to (empty = memory only)
	MaxUploadBytes int64  // Upload body limit (0 = DefaultMaxUploadBytes)

	FailUpload bool // Answer uploads with 500
	FailStart  bool // Answer start print with 500
	Stall      bool // Read requests but never answer

	Advertise bool   // Register an mDNS _http._tcp service
	Instance  string // mDNS instance name (default "MPSelectMini")
}

// Request is a request the emulator received
type Request struct {
	Method     string    `json:"method"`
	Target     string    `json:"target"`
	BodyBytes  int       `json:"body_bytes"`
	FileName   string    `json:"file_name,omitempty"`
	FileBytes  int       `json:"file_bytes,omitempty"`
	Status     int       `json:"status"`
	RemoteAddr string    `json:"remote_addr"`
	Received   time.Time `json:"received"`
}

// Server emulates the printer firmware
type Server struct {
	config *Config

	listener       net.Listener
	statusListener net.Listener
	statusServer   *http.Server
	advert         *zeroconf.Server
	feed           *feed

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
	state       State
	requests    []Request
	lastUpload  []byte
	lastName    string
}

// New creates a new emulator
func New(config *Config) *Server {
	if config == nil {
		config = &Config{}
	}
	return &Server{
		config:      config,
		activeConns: make(map[string]net.Conn),
		state:       StateIdle,
		feed:        newFeed(),
	}
}

// Listen binds the firmware port and, when configured, the status port
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	logging.Info("Printer emulator listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("fail_upload", s.config.FailUpload),
		zap.Bool("fail_start", s.config.FailStart),
		zap.Bool("stall", s.config.Stall),
	)

	if s.config.StatusPort != 0 {
		statusAddr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.StatusPort))
		sl, err := net.Listen("tcp", statusAddr)
		if err != nil {
			_ = listener.Close()
			return fmt.Errorf("failed to listen on %s: %w", statusAddr, err)
		}
		s.statusListener = sl
		s.statusServer = &http.Server{
			Handler:           s.StatusHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logging.Info("Status feed listening", zap.String("addr", sl.Addr().String()))
	}

	if s.config.Advertise {
		if err := s.advertise(); err != nil {
			logging.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	return nil
}

// Addr returns the firmware listener address
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound firmware port
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// StatusAddr returns the status listener address, or nil when disabled
func (s *Server) StatusAddr() net.Addr {
	if s.statusListener == nil {
		return nil
	}
	return s.statusListener.Addr()
}

// Serve accepts connections until Shutdown. Listen must be called first.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("emulator is not listening")
	}

	if s.statusServer != nil {
		go func() {
			if err := s.statusServer.Serve(s.statusListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Status server stopped", zap.Error(err))
			}
		}()
	}

	return s.acceptConnections()
}

// Run listens, serves and shuts down when ctx is done
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping emulator...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) acceptConnections() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection serves exactly one request, then closes
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "connection_closed")
	}()

	logging.LogConnection(remoteAddr, "connection_accepted")

	maxBody := s.config.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxUploadBytes
	}

	br := bufio.NewReader(conn)
	req, err := readRequest(br, maxBody)
	if err != nil {
		logging.Error("Failed to read request",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	logging.LogPrinterRequest(remoteAddr, req.Method, req.Target, len(req.Body))

	if s.config.Stall {
		s.record(Request{Method: req.Method, Target: req.Target, BodyBytes: len(req.Body), RemoteAddr: remoteAddr})
		// Hold the connection open until the client gives up or we shut down
		_, _ = io.Copy(io.Discard, br)
		return
	}

	rec := s.dispatch(req, remoteAddr)
	s.record(rec)

	response := statusResponse(rec.Status)
	logging.LogRawBytes("Emulator response", response)
	if _, err := conn.Write(response); err != nil {
		logging.Error("Failed to write response",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// dispatch applies a request to the emulated printer and picks the status
func (s *Server) dispatch(req *rawRequest, remoteAddr string) Request {
	rec := Request{
		Method:     req.Method,
		Target:     req.Target,
		BodyBytes:  len(req.Body),
		RemoteAddr: remoteAddr,
		Status:     http.StatusOK,
	}

	switch {
	case req.Method == "POST" && req.Target == UploadTarget:
		if s.config.FailUpload {
			rec.Status = http.StatusInternalServerError
			return rec
		}
		name, data, err := uploadedFile(req, UploadField)
		if err != nil {
			logging.Error("Rejecting upload", zap.String("remote_addr", remoteAddr), zap.Error(err))
			rec.Status = http.StatusBadRequest
			return rec
		}
		rec.FileName = name
		rec.FileBytes = len(data)
		if err := s.storeUpload(name, data); err != nil {
			logging.Error("Failed to store upload", zap.Error(err))
			rec.Status = http.StatusInternalServerError
			return rec
		}
		s.setState(StateUploaded)

	case req.Method == "GET" && req.Target == HoldTarget:
		s.setState(StateHeld)

	case req.Method == "GET" && req.Target == StartTarget:
		if s.config.FailStart {
			rec.Status = http.StatusInternalServerError
			return rec
		}
		if s.lastUploadName() == "" {
			rec.Status = http.StatusConflict
			return rec
		}
		s.setState(StatePrinting)

	default:
		rec.Status = http.StatusNotFound
	}

	return rec
}

func (s *Server) storeUpload(name string, data []byte) error {
	s.mu.Lock()
	s.lastUpload = data
	s.lastName = name
	s.mu.Unlock()

	s.feed.publish(fmt.Sprintf("upload %s %d", name, len(data)))

	if s.config.UploadDir == "" {
		return nil
	}

	if err := os.MkdirAll(s.config.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "upload.gc"
	}
	path := filepath.Join(s.config.UploadDir, base)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Info("Stored upload", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed {
		logging.Info("Printer state changed", zap.String("state", string(state)))
	}
	s.feed.publish("state " + string(state))
}

func (s *Server) record(rec Request) {
	rec.Received = time.Now()
	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()

	s.feed.publish(fmt.Sprintf("request %s %s %d", rec.Method, rec.Target, rec.Status))
}

// State returns the emulated printer state
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Requests returns a copy of every request received
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastUpload returns the most recently uploaded file name and contents
func (s *Server) LastUpload() (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastName, s.lastUpload
}

func (s *Server) lastUploadName() string {
	name, _ := s.LastUpload()
	return name
}

// Reset clears recorded requests and returns the printer to idle
func (s *Server) Reset() {
	s.mu.Lock()
	s.requests = nil
	s.lastUpload = nil
	s.lastName = ""
	s.state = StateIdle
	s.mu.Unlock()
}

// GetActiveConnections returns the number of open firmware connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Shutdown stops the listeners and closes open connections
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down emulator...")

	if s.advert != nil {
		s.advert.Shutdown()
		s.advert = nil
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	if s.statusServer != nil {
		if err := s.statusServer.Shutdown(ctx); err != nil {
			logging.Warn("Status server shutdown", zap.Error(err))
		}
	}
	s.feed.close()

	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Debug("Closing active connection", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return nil
}
