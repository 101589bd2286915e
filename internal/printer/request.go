package printer

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// Wire constants for the printer firmware's HTTP surface.
// The firmware matches these byte for byte; do not "fix" them.
const (
	// Boundary is the fixed multipart boundary token used for uploads
	Boundary = "------------------------2d30fc993bb09c6a"

	// UploadPath receives the multipart G-code upload
	UploadPath = "/upload"

	// HoldPrintPath cancels the automatic start that follows an upload, so the
	// printer does not begin moving before the extruder has heated
	HoldPrintPath = "/set?cmd={P:X}"

	// StartPrintPath starts printing the uploaded file
	StartPrintPath = "/set?code=M565"

	// UploadFieldName is the form field carrying the file
	UploadFieldName = "filedata"

	// UploadFileName is the name the printer stores the upload under
	UploadFileName = "cache.gc"

	// SuccessStatusLine is the only response prefix accepted as success
	SuccessStatusLine = "HTTP/1.1 200 OK"

	// ResponseBufferSize is the maximum number of response bytes read per step
	ResponseBufferSize = 1024

	// DefaultPort is the printer's HTTP port
	DefaultPort = 80
)

// BuildUploadRequest renders the complete POST /upload request for a G-code payload.
//
// The request carries no Host or Content-Length header; the printer reads the
// body until the closing boundary. Output is:
//
//	POST /upload HTTP/1.1\r\n
//	Content-Type: multipart/form-data; boundary=<Boundary>\r\n
//	\r\n
//	--<Boundary>\r\n
//	Content-Disposition: form-data; name="filedata"; filename="cache.gc"\r\n
//	Content-Type: application/octet-stream\r\n
//	\r\n
//	<gcode>\r\n
//	--<Boundary>--\r\n
func BuildUploadRequest(gcode string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.SetBoundary(Boundary); err != nil {
		return nil, fmt.Errorf("failed to set multipart boundary: %w", err)
	}

	part, err := mw.CreateFormFile(UploadFieldName, UploadFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file part: %w", err)
	}
	if _, err := io.WriteString(part, gcode); err != nil {
		return nil, fmt.Errorf("failed to write G-code part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	var req bytes.Buffer
	req.Grow(body.Len() + 128)
	req.WriteString("POST " + UploadPath + " HTTP/1.1\r\n")
	req.WriteString("Content-Type: " + mw.FormDataContentType() + "\r\n")
	req.WriteString("\r\n")
	req.Write(body.Bytes())

	return req.Bytes(), nil
}

// BuildCommandRequest renders a bare GET request with no headers
func BuildCommandRequest(path string) []byte {
	return []byte("GET " + path + " HTTP/1.1\r\n\r\n")
}

// IsSuccessResponse reports whether a raw response starts with the success status line
func IsSuccessResponse(response string) bool {
	return strings.HasPrefix(response, SuccessStatusLine)
}
