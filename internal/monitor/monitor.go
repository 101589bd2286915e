package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

const (
	// DefaultPort is the printer's status websocket port
	DefaultPort = 81

	// DefaultDialTimeout bounds the websocket handshake
	DefaultDialTimeout = 10 * time.Second
)

// Message is one status frame from the printer
type Message struct {
	Received time.Time
	Text     string
}

// Monitor connects to a printer's status feed
type Monitor struct {
	// Host is the printer address
	Host string

	// Port is the status websocket port (default: 81)
	Port int

	// Path is the websocket path (default: "/")
	Path string

	// DialTimeout bounds the handshake
	DialTimeout time.Duration
}

// New creates a monitor for host with default settings
func New(host string) *Monitor {
	return &Monitor{
		Host:        host,
		Port:        DefaultPort,
		Path:        "/",
		DialTimeout: DefaultDialTimeout,
	}
}

// URL returns the websocket URL
func (m *Monitor) URL() string {
	port := m.Port
	if port == 0 {
		port = DefaultPort
	}
	path := m.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(m.Host, strconv.Itoa(port)), Path: path}
	return u.String()
}

// Watch streams status messages to fn until ctx is done or the printer
// closes the connection. A normal close or cancellation returns nil.
func (m *Monitor) Watch(ctx context.Context, fn func(Message)) error {
	if m.Host == "" {
		return errors.New("no printer address")
	}

	dialer := websocket.Dialer{HandshakeTimeout: m.DialTimeout}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = DefaultDialTimeout
	}

	target := m.URL()
	conn, _, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	defer func() { _ = conn.Close() }()

	logging.Info("Watching printer status", zap.String("url", target))

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("Status stream closed", zap.String("url", target))
				return nil
			}
			return fmt.Errorf("status stream failed: %w", err)
		}

		if msgType != websocket.TextMessage {
			logging.LogRawBytes("Binary status frame", data)
			continue
		}

		fn(Message{Received: time.Now(), Text: string(data)})
	}
}
