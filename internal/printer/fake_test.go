package printer

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	okResponse       = "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 0\r\n\r\n"
	serverErrorReply = "HTTP/1.1 500 Internal Server Error\r\nContent-Length: 0\r\n\r\n"
)

// fakePrinter is a raw TCP server that captures every request byte for byte
// and answers with whatever the handler returns.
type fakePrinter struct {
	ln      net.Listener
	handler func(target string) string

	mu       sync.Mutex
	conns    int
	requests []string
	targets  []string

	wg sync.WaitGroup
}

func newFakePrinter(t *testing.T, handler func(target string) string) *fakePrinter {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	f := &fakePrinter{ln: ln, handler: handler}
	f.wg.Add(1)
	go f.serve()

	t.Cleanup(func() {
		_ = ln.Close()
		f.wg.Wait()
	})
	return f
}

func (f *fakePrinter) port() int {
	return f.ln.Addr().(*net.TCPAddr).Port
}

func (f *fakePrinter) client() *Client {
	c := NewClient()
	c.SetPort(f.port())
	c.SetTimeout(2 * time.Second)
	return c
}

func (f *fakePrinter) serve() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns++
		f.mu.Unlock()

		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.handle(conn)
		}()
	}
}

func (f *fakePrinter) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	raw, err := readRawRequest(conn)
	if err != nil {
		return
	}

	target := ""
	if fields := strings.Fields(StatusLine(raw)); len(fields) >= 2 {
		target = fields[1]
	}

	f.mu.Lock()
	f.requests = append(f.requests, raw)
	f.targets = append(f.targets, target)
	f.mu.Unlock()

	response := f.handler(target)
	if response != "" {
		_, _ = conn.Write([]byte(response))
	}
}

func (f *fakePrinter) connections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

func (f *fakePrinter) seenTargets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.targets...)
}

func (f *fakePrinter) seenRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// readRawRequest reads until the request is complete. Uploads carry no
// Content-Length, so a POST ends at the closing boundary.
func readRawRequest(conn net.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if requestComplete(string(buf)) {
			return string(buf), nil
		}
		if err != nil {
			return string(buf), err
		}
	}
}

func requestComplete(s string) bool {
	if strings.HasPrefix(s, "POST ") {
		return strings.HasSuffix(s, "--"+Boundary+"--\r\n")
	}
	return strings.HasSuffix(s, "\r\n\r\n")
}

// replyAll answers every request with the same response
func replyAll(response string) func(string) string {
	return func(string) string { return response }
}
