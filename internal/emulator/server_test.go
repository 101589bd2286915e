package emulator

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/selectmini/internal/printer"
)

const sampleGcode = ";LAYER:0\nG28\nG1 X10 Y10 E1\n"

func startEmulator(t *testing.T, cfg *Config) *Server {
	t.Helper()

	cfg.Host = "127.0.0.1"
	srv := New(cfg)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve()
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	})

	return srv
}

func clientFor(srv *Server) *printer.Client {
	c := printer.NewClient()
	c.SetPort(srv.Port())
	c.SetTimeout(2 * time.Second)
	return c
}

// rawExchange sends payload on its own connection and returns the full reply
func rawExchange(t *testing.T, srv *Server, payload string) string {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.WriteString(conn, payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	reply, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(reply)
}

func TestEmulator_UploadAndStart(t *testing.T) {
	srv := startEmulator(t, &Config{})

	result, err := clientFor(srv).Upload(context.Background(), printer.UploadRequest{
		TargetIP:         "127.0.0.1",
		Gcode:            sampleGcode,
		StartAfterUpload: true,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !result.PrintStarted {
		t.Error("PrintStarted should be true")
	}

	if got := srv.State(); got != StatePrinting {
		t.Errorf("State() = %v, want printing", got)
	}

	name, data := srv.LastUpload()
	if name != "cache.gc" {
		t.Errorf("uploaded file name = %q, want cache.gc", name)
	}
	if string(data) != sampleGcode {
		t.Errorf("uploaded data = %q, want %q", data, sampleGcode)
	}

	reqs := srv.Requests()
	if len(reqs) != 3 {
		t.Fatalf("recorded %d requests, want 3", len(reqs))
	}
	wantTargets := []string{UploadTarget, HoldTarget, StartTarget}
	for i, want := range wantTargets {
		if reqs[i].Target != want {
			t.Errorf("request %d target = %q, want %q", i, reqs[i].Target, want)
		}
		if reqs[i].Status != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, reqs[i].Status)
		}
	}
	if reqs[0].FileBytes != len(sampleGcode) {
		t.Errorf("FileBytes = %d, want %d", reqs[0].FileBytes, len(sampleGcode))
	}
}

func TestEmulator_UploadWithoutStart(t *testing.T) {
	srv := startEmulator(t, &Config{})

	result, err := clientFor(srv).Upload(context.Background(), printer.UploadRequest{
		TargetIP: "127.0.0.1",
		Gcode:    sampleGcode,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.Requests != 2 {
		t.Errorf("Requests = %d, want 2", result.Requests)
	}
	if got := srv.State(); got != StateHeld {
		t.Errorf("State() = %v, want held", got)
	}
}

func TestEmulator_FailureModes(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		start     bool
		check     func(error) bool
		wantState State
		wantReqs  int
	}{
		{"fail upload", Config{FailUpload: true}, true, printer.IsUploadFailed, StateIdle, 1},
		{"fail start", Config{FailStart: true}, true, printer.IsStartPrintFailed, StateHeld, 3},
		{"fail start not requested", Config{FailStart: true}, false, func(err error) bool { return err == nil }, StateHeld, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			srv := startEmulator(t, &cfg)

			_, err := clientFor(srv).Upload(context.Background(), printer.UploadRequest{
				TargetIP:         "127.0.0.1",
				Gcode:            sampleGcode,
				StartAfterUpload: tt.start,
			})
			if !tt.check(err) {
				t.Errorf("Upload() error = %v", err)
			}
			if got := srv.State(); got != tt.wantState {
				t.Errorf("State() = %v, want %v", got, tt.wantState)
			}
			if got := len(srv.Requests()); got != tt.wantReqs {
				t.Errorf("recorded %d requests, want %d", got, tt.wantReqs)
			}
		})
	}
}

func TestEmulator_Stall(t *testing.T) {
	srv := startEmulator(t, &Config{Stall: true})

	client := clientFor(srv)
	client.SetTimeout(200 * time.Millisecond)

	_, err := client.Upload(context.Background(), printer.UploadRequest{
		TargetIP: "127.0.0.1",
		Gcode:    sampleGcode,
	})
	if !printer.IsTimeout(err) {
		t.Fatalf("Upload() error = %v, want ConnectionTimeout", err)
	}
	if client.Busy() {
		t.Error("client latch should be released after a timeout")
	}

	// The stalled connection is dropped once the client hangs up
	deadline := time.Now().Add(2 * time.Second)
	for srv.GetActiveConnections() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("GetActiveConnections() = %d, want 0", srv.GetActiveConnections())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEmulator_RawRequests(t *testing.T) {
	srv := startEmulator(t, &Config{})

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"unknown target", "GET /nope HTTP/1.1\r\n\r\n", "HTTP/1.1 404 Not Found"},
		{"start before upload", "GET /set?code=M565 HTTP/1.1\r\n\r\n", "HTTP/1.1 409 Conflict"},
		{"hold", "GET /set?cmd={P:X} HTTP/1.1\r\n\r\n", "HTTP/1.1 200 OK"},
		{
			"upload with content length",
			"POST /upload HTTP/1.1\r\n" +
				"Content-Type: multipart/form-data; boundary=xyz\r\n" +
				"Content-Length: 90\r\n" +
				"\r\n" +
				"--xyz\r\n" +
				"Content-Disposition: form-data; name=\"filedata\"; filename=\"a.gc\"\r\n" +
				"\r\n" +
				"G28\n\r\n" +
				"--xyz--\r\n",
			"HTTP/1.1 200 OK",
		},
		{
			"upload missing field",
			"POST /upload HTTP/1.1\r\n" +
				"Content-Type: multipart/form-data; boundary=xyz\r\n" +
				"\r\n" +
				"--xyz\r\n" +
				"Content-Disposition: form-data; name=\"other\"\r\n" +
				"\r\n" +
				"x\r\n" +
				"--xyz--\r\n",
			"HTTP/1.1 400 Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := rawExchange(t, srv, tt.payload)
			if !strings.HasPrefix(reply, tt.want) {
				t.Errorf("reply = %q, want prefix %q", reply, tt.want)
			}
		})
	}
}

func TestReadRequest_BoundaryInsideLine(t *testing.T) {
	body := "--b\r\n" +
		"Content-Disposition: form-data; name=\"filedata\"; filename=\"cache.gc\"\r\n" +
		"\r\n" +
		"; comment mentioning --b-- mid line\r\n" +
		"--b--\r\n"
	raw := "POST /upload HTTP/1.1\r\nContent-Type: multipart/form-data; boundary=b\r\n\r\n" + body + "trailing"

	req, err := readRequest(bufio.NewReader(strings.NewReader(raw)), DefaultMaxUploadBytes)
	if err != nil {
		t.Fatalf("readRequest() error = %v", err)
	}
	if string(req.Body) != body {
		t.Errorf("Body = %q, want %q", req.Body, body)
	}

	name, data, err := uploadedFile(req, UploadField)
	if err != nil {
		t.Fatalf("uploadedFile() error = %v", err)
	}
	if name != "cache.gc" || string(data) != "; comment mentioning --b-- mid line" {
		t.Errorf("uploadedFile() = %q, %q", name, data)
	}
}

func TestReadRequest_TooLarge(t *testing.T) {
	raw := "POST /upload HTTP/1.1\r\nContent-Type: multipart/form-data; boundary=b\r\n\r\n--b\r\n" +
		strings.Repeat("G1 X1\n", 100)

	_, err := readRequest(bufio.NewReader(strings.NewReader(raw)), 64)
	if err != ErrUploadTooLarge {
		t.Errorf("readRequest() error = %v, want ErrUploadTooLarge", err)
	}
}

func TestEmulator_UploadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	srv := startEmulator(t, &Config{UploadDir: dir})

	if _, err := clientFor(srv).Upload(context.Background(), printer.UploadRequest{
		TargetIP: "127.0.0.1",
		Gcode:    sampleGcode,
	}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "cache.gc"))
	if err != nil {
		t.Fatalf("upload not written: %v", err)
	}
	if string(data) != sampleGcode {
		t.Errorf("stored upload = %q", data)
	}
}

func TestStatusHandler_JSON(t *testing.T) {
	srv := startEmulator(t, &Config{})
	ts := httptest.NewServer(srv.StatusHandler())
	defer ts.Close()

	if _, err := clientFor(srv).Upload(context.Background(), printer.UploadRequest{
		TargetIP: "127.0.0.1",
		Gcode:    sampleGcode,
	}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	resp, err := http.Get(ts.URL + "/requests")
	if err != nil {
		t.Fatalf("GET /requests failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var reqs []Request
	if err := json.NewDecoder(resp.Body).Decode(&reqs); err != nil {
		t.Fatalf("failed to decode /requests: %v", err)
	}
	if len(reqs) != 2 {
		t.Errorf("/requests returned %d entries, want 2", len(reqs))
	}

	upload, err := http.Get(ts.URL + "/upload")
	if err != nil {
		t.Fatalf("GET /upload failed: %v", err)
	}
	defer func() { _ = upload.Body.Close() }()
	body, _ := io.ReadAll(upload.Body)
	if string(body) != sampleGcode {
		t.Errorf("/upload body = %q", body)
	}

	post, err := http.Post(ts.URL+"/requests", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST /requests failed: %v", err)
	}
	_ = post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /requests status = %d, want 405", post.StatusCode)
	}
}

func TestStatusHandler_Websocket(t *testing.T) {
	srv := startEmulator(t, &Config{})
	ts := httptest.NewServer(srv.StatusHandler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, first, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(first) != "state idle" {
		t.Errorf("first message = %q, want state idle", first)
	}

	if _, err := clientFor(srv).Upload(context.Background(), printer.UploadRequest{
		TargetIP: "127.0.0.1",
		Gcode:    sampleGcode,
	}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	var lines []string
	for !contains(lines, "state held") {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read failed after %v: %v", lines, err)
		}
		lines = append(lines, string(msg))
	}

	if !contains(lines, "upload cache.gc 27") {
		t.Errorf("feed = %v, want upload line", lines)
	}
	if !contains(lines, "state uploaded") {
		t.Errorf("feed = %v, want state uploaded", lines)
	}
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}
