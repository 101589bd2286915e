package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

const (
	// DefaultTimeout bounds each blocking connect, send and receive call
	DefaultTimeout = 10 * time.Second

	// writeChunkSize is how much of the upload is written per write deadline
	writeChunkSize = 32 * 1024
)

// Step identifies one network exchange of an upload transaction
type Step int

const (
	// StepUpload sends the G-code as a multipart upload
	StepUpload Step = iota + 1
	// StepHoldPrint stops the printer starting on its own before it has heated
	StepHoldPrint
	// StepStartPrint starts printing the uploaded file
	StepStartPrint
)

// String returns a human-readable name for the step
func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepHoldPrint:
		return "hold print"
	case StepStartPrint:
		return "start print"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// StepStatus is the state reported for a step
type StepStatus int

const (
	StepStarted StepStatus = iota
	StepCompleted
	StepFailed
	StepSkipped
)

// StepEvent is delivered to UploadRequest.OnStep as the transaction progresses
type StepEvent struct {
	Step     Step
	Status   StepStatus
	Response string // Raw response (Completed and response failures)
	Err      error  // Set when Status is StepFailed
}

// StepFunc receives progress events. It is called synchronously on the
// uploading goroutine and must not block.
type StepFunc func(StepEvent)

// UploadRequest describes a single upload transaction
type UploadRequest struct {
	// TargetIP is the printer address (IPv4, IPv6 or hostname)
	TargetIP string

	// Gcode is the fully rendered G-code text
	Gcode string

	// StartAfterUpload issues the start-print command after a successful upload
	StartAfterUpload bool

	// OnStep optionally receives progress events
	OnStep StepFunc
}

// StepResult records the raw response of a completed step
type StepResult struct {
	Step     Step
	Response string
}

// UploadResult describes what happened during an upload transaction.
// It is returned alongside errors too, holding the steps that completed.
type UploadResult struct {
	Steps        []StepResult
	Requests     int
	PrintStarted bool
	Duration     time.Duration
}

// Client uploads G-code to a printer's firmware HTTP server.
// One Client represents one output device: at most one upload may be in
// flight at a time, and overlapping calls fail with DeviceBusy.
type Client struct {
	// Port is the printer HTTP port (default: 80)
	Port int

	// Timeout bounds each connect, write chunk and response read
	Timeout time.Duration

	latch Latch
}

// NewClient creates a new upload client with default settings
func NewClient() *Client {
	return &Client{
		Port:    DefaultPort,
		Timeout: DefaultTimeout,
	}
}

// SetTimeout sets the per-call network timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.Timeout = timeout
}

// SetPort sets the printer HTTP port
func (c *Client) SetPort(port int) {
	c.Port = port
}

// Busy reports whether an upload is currently in flight
func (c *Client) Busy() bool {
	return c.latch.Busy()
}

// Upload performs the upload transaction: upload, hold print, then start
// print when requested. Each step uses a fresh connection and is attempted
// exactly once. The returned error is always a *PrinterError.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	result := &UploadResult{}

	ip := strings.TrimSpace(req.TargetIP)
	if ip == "" {
		return result, NewInvalidAddressError(req.TargetIP)
	}

	if !c.latch.TryAcquire() {
		logging.Warn("Upload rejected, device busy", zap.String("ip", ip))
		return result, NewDeviceBusyError(ip)
	}
	defer c.latch.Release()

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	emit := req.OnStep
	if emit == nil {
		emit = func(StepEvent) {}
	}

	payload, err := BuildUploadRequest(req.Gcode)
	if err != nil {
		return result, &PrinterError{Type: ErrTypeUploadFailed, Message: "failed to build upload request", Step: StepUpload, DeviceIP: ip, Err: err}
	}

	logging.Info("Uploading G-code",
		zap.String("ip", ip),
		zap.Int("port", c.Port),
		zap.Int("gcode_bytes", len(req.Gcode)),
		zap.Bool("start_after_upload", req.StartAfterUpload),
	)

	if err := c.runStep(ctx, ip, StepUpload, payload, true, result, emit); err != nil {
		return result, err
	}

	// The hold response is not checked; only socket failures abort here
	if err := c.runStep(ctx, ip, StepHoldPrint, BuildCommandRequest(HoldPrintPath), false, result, emit); err != nil {
		return result, err
	}

	if !req.StartAfterUpload {
		emit(StepEvent{Step: StepStartPrint, Status: StepSkipped})
		logging.Info("Upload complete", zap.String("ip", ip), zap.Int("requests", result.Requests))
		return result, nil
	}

	if err := c.runStep(ctx, ip, StepStartPrint, BuildCommandRequest(StartPrintPath), true, result, emit); err != nil {
		return result, err
	}
	result.PrintStarted = true

	logging.Info("Upload complete, print started", zap.String("ip", ip), zap.Int("requests", result.Requests))
	return result, nil
}

// runStep performs one request/response exchange and records its outcome
func (c *Client) runStep(ctx context.Context, ip string, step Step, payload []byte, checked bool, result *UploadResult, emit StepFunc) error {
	emit(StepEvent{Step: step, Status: StepStarted})
	result.Requests++

	response, err := c.roundTrip(ctx, ip, payload)
	if err != nil {
		pErr := ClassifyNetworkError(err, step, ip)
		logging.Error("Printer request failed",
			zap.String("ip", ip),
			zap.Stringer("step", step),
			zap.Stringer("type", pErr.Type),
			zap.Error(err),
		)
		emit(StepEvent{Step: step, Status: StepFailed, Response: response, Err: pErr})
		return pErr
	}

	logging.LogPrinterResponse(ip, step.String(), response)

	if checked && !IsSuccessResponse(response) {
		pErr := NewResponseError(step, ip, response)
		logging.Error("Invalid http response from printer",
			zap.String("ip", ip),
			zap.Stringer("step", step),
			zap.String("response", response),
		)
		emit(StepEvent{Step: step, Status: StepFailed, Response: response, Err: pErr})
		return pErr
	}

	result.Steps = append(result.Steps, StepResult{Step: step, Response: response})
	emit(StepEvent{Step: step, Status: StepCompleted, Response: response})
	return nil
}

// roundTrip opens a connection, writes payload, reads one response and closes
func (c *Client) roundTrip(ctx context.Context, ip string, payload []byte) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(ip, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close() }()

	// Unblock pending I/O if the caller's context ends mid-step
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	logging.LogConnection(addr, "connected")
	logging.LogRawBytes("Printer request", payload)

	for off := 0; off < len(payload); off += writeChunkSize {
		end := min(off+writeChunkSize, len(payload))
		if err := conn.SetWriteDeadline(deadline(ctx, timeout)); err != nil {
			return "", err
		}
		if _, err := conn.Write(payload[off:end]); err != nil {
			return "", contextErr(ctx, err)
		}
	}

	if err := conn.SetReadDeadline(deadline(ctx, timeout)); err != nil {
		return "", err
	}

	return readResponse(ctx, conn)
}

// readResponse reads up to ResponseBufferSize bytes. It stops once the
// status line is in, or as soon as the bytes so far cannot begin it. Bytes
// received before a read deadline are returned as the response.
func readResponse(ctx context.Context, r io.Reader) (string, error) {
	buf := make([]byte, ResponseBufferSize)
	n := 0
	for n < len(SuccessStatusLine) {
		m, err := r.Read(buf[n:])
		n += m
		if n > 0 && !strings.HasPrefix(SuccessStatusLine, string(buf[:min(n, len(SuccessStatusLine))])) {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) || (n > 0 && ctx.Err() == nil) {
				break
			}
			return string(buf[:n]), contextErr(ctx, err)
		}
	}

	return string(buf[:n]), nil
}

// deadline returns now+timeout, capped by the context deadline
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// contextErr prefers the context's error when it caused the I/O failure
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
