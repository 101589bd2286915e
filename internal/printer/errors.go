package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// Error types for upload operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeInvalidAddress indicates a missing or empty printer address
	ErrTypeInvalidAddress ErrorType = iota
	// ErrTypeDeviceBusy indicates another upload is already in flight on the device
	ErrTypeDeviceBusy
	// ErrTypeUploadFailed indicates the printer did not accept the G-code upload
	ErrTypeUploadFailed
	// ErrTypeStartPrintFailed indicates the printer did not accept the start-print command
	ErrTypeStartPrintFailed
	// ErrTypeConnectionTimeout indicates a connect, send or receive timed out
	ErrTypeConnectionTimeout
	// ErrTypeNetwork indicates any other socket-level failure (refused, unreachable)
	ErrTypeNetwork
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeInvalidAddress:
		return "Invalid Address"
	case ErrTypeDeviceBusy:
		return "Device Busy"
	case ErrTypeUploadFailed:
		return "Upload Failed"
	case ErrTypeStartPrintFailed:
		return "Start Print Failed"
	case ErrTypeConnectionTimeout:
		return "Connection Timeout"
	case ErrTypeNetwork:
		return "Network Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// PrinterError represents a failed upload transaction.
// Every error returned by Client.Upload is a *PrinterError.
type PrinterError struct {
	Type     ErrorType // Category of error
	Message  string    // Human-readable error message
	Response string    // Raw printer response (UploadFailed, StartPrintFailed)
	Step     Step      // Step that failed (zero if none had started)
	DeviceIP string    // Printer address (for context)
	Err      error     // Underlying error (if any)
}

// Error implements the error interface
func (e *PrinterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *PrinterError) Unwrap() error {
	return e.Err
}

// NewInvalidAddressError creates an error for a missing printer address
func NewInvalidAddressError(ip string) *PrinterError {
	return &PrinterError{
		Type:     ErrTypeInvalidAddress,
		Message:  fmt.Sprintf("invalid printer address %q", ip),
		DeviceIP: ip,
	}
}

// NewDeviceBusyError creates an error for an overlapping upload
func NewDeviceBusyError(ip string) *PrinterError {
	return &PrinterError{
		Type:     ErrTypeDeviceBusy,
		Message:  "an upload is already in progress",
		DeviceIP: ip,
	}
}

// NewResponseError creates an error for a step whose response was not a success status line
func NewResponseError(step Step, ip string, response string) *PrinterError {
	errType := ErrTypeUploadFailed
	if step == StepStartPrint {
		errType = ErrTypeStartPrintFailed
	}
	return &PrinterError{
		Type:     errType,
		Message:  fmt.Sprintf("unexpected response to %s: %q", step, StatusLine(response)),
		Response: response,
		Step:     step,
		DeviceIP: ip,
	}
}

// ClassifyNetworkError maps a socket error to a timeout or generic network error
func ClassifyNetworkError(err error, step Step, deviceIP string) *PrinterError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &PrinterError{
			Type:     ErrTypeConnectionTimeout,
			Message:  fmt.Sprintf("%s timed out", step),
			Step:     step,
			DeviceIP: deviceIP,
			Err:      err,
		}
	}

	message := fmt.Sprintf("%s failed", step)

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			message = "printer refused connection"
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			message = "host unreachable"
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			message = "network unreachable"
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		message = fmt.Sprintf("cannot resolve %s", dnsErr.Name)
	}

	return &PrinterError{
		Type:     ErrTypeNetwork,
		Message:  message,
		Step:     step,
		DeviceIP: deviceIP,
		Err:      err,
	}
}

func errorType(err error) (ErrorType, bool) {
	var pErr *PrinterError
	if errors.As(err, &pErr) {
		return pErr.Type, true
	}
	return 0, false
}

func isType(err error, want ErrorType) bool {
	t, ok := errorType(err)
	return ok && t == want
}

// IsInvalidAddress checks if an error is an invalid address error
func IsInvalidAddress(err error) bool { return isType(err, ErrTypeInvalidAddress) }

// IsDeviceBusy checks if an error is a device busy error
func IsDeviceBusy(err error) bool { return isType(err, ErrTypeDeviceBusy) }

// IsUploadFailed checks if an error is an upload failure
func IsUploadFailed(err error) bool { return isType(err, ErrTypeUploadFailed) }

// IsStartPrintFailed checks if an error is a start-print failure
func IsStartPrintFailed(err error) bool { return isType(err, ErrTypeStartPrintFailed) }

// IsTimeout checks if an error is a connection timeout
func IsTimeout(err error) bool { return isType(err, ErrTypeConnectionTimeout) }

// IsNetworkError checks if an error is a socket-level failure (including timeouts)
func IsNetworkError(err error) bool {
	t, ok := errorType(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeConnectionTimeout)
}

// RawResponse returns the raw printer response attached to err, if any
func RawResponse(err error) string {
	var pErr *PrinterError
	if errors.As(err, &pErr) {
		return pErr.Response
	}
	return ""
}

// GetShortErrorMessage returns the concise user-facing notice for an error
func GetShortErrorMessage(err error) string {
	t, ok := errorType(err)
	if !ok {
		return err.Error()
	}

	switch t {
	case ErrTypeInvalidAddress:
		return "Invalid IP"
	case ErrTypeDeviceBusy:
		return "Printer is busy"
	case ErrTypeUploadFailed:
		return "Upload Failed"
	case ErrTypeStartPrintFailed:
		return "Start Print Failed"
	case ErrTypeConnectionTimeout:
		return "Connection Timeout"
	default:
		return "Network error - check connection"
	}
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) []string {
	var pErr *PrinterError
	if !errors.As(err, &pErr) {
		return []string{"An unexpected error occurred. Please try again."}
	}

	switch pErr.Type {
	case ErrTypeInvalidAddress:
		return []string{
			"No printer IP address is configured",
			"Set one with: selectmini config set ip <address>",
			"Or pass --device <address> to the upload command",
		}
	case ErrTypeDeviceBusy:
		return []string{
			"Another upload to this printer is still running",
			"Wait for it to finish and try again",
		}
	case ErrTypeUploadFailed:
		return []string{
			"The printer rejected the upload",
			"Check that the printer is idle and not already printing",
			"Check the printer has free storage for cache.gc",
			"Run with SELECTMINI_LOG_LEVEL=debug to see the raw response",
		}
	case ErrTypeStartPrintFailed:
		return []string{
			"The file was uploaded but the print did not start",
			"Start the print from the printer's display",
			"Power cycle the printer if it keeps refusing commands",
		}
	case ErrTypeConnectionTimeout:
		return []string{
			"The printer did not respond in time",
			"Check that the printer is powered on and joined to WiFi",
			"Verify the IP address shown on the printer's WiFi screen",
			"Try increasing --timeout",
		}
	default:
		hint := []string{
			"Could not reach the printer",
			"Check your network connection",
			"Verify you're on the same network as the printer",
		}
		if pErr.DeviceIP != "" {
			hint = append(hint, "Try pinging the printer: ping "+pErr.DeviceIP)
		}
		return hint
	}
}

// StatusLine returns the first line of a raw response, without the line terminator
func StatusLine(response string) string {
	line, _, _ := strings.Cut(response, "\n")
	return strings.TrimRight(line, "\r")
}
