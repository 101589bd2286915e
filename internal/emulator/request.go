package emulator

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// DefaultMaxUploadBytes caps an upload body
const DefaultMaxUploadBytes = 64 << 20

// ErrUploadTooLarge is returned when an upload exceeds the body limit
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// rawRequest is one request as read off the wire
type rawRequest struct {
	Method string
	Target string
	Proto  string
	Header textproto.MIMEHeader
	Body   []byte
}

// readRequest reads a request line, headers and, for POST, a multipart body.
// Without Content-Length the body ends at the closing boundary line.
func readRequest(br *bufio.Reader, maxBody int64) (*rawRequest, error) {
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed request line %q", line)
	}
	req := &rawRequest{Method: parts[0], Target: parts[1], Proto: parts[2]}

	req.Header, err = tp.ReadMIMEHeader()
	if err != nil && !(errors.Is(err, io.EOF) && req.Method != "POST") {
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}

	if req.Method != "POST" {
		return req, nil
	}

	if cl := req.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", cl)
		}
		if n > maxBody {
			return nil, ErrUploadTooLarge
		}
		req.Body = make([]byte, n)
		if _, err := io.ReadFull(br, req.Body); err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return req, nil
	}

	boundary, err := requestBoundary(req.Header)
	if err != nil {
		return nil, err
	}
	closing := "--" + boundary + "--"

	var body bytes.Buffer
	for {
		chunk, err := br.ReadSlice('\n')
		body.Write(chunk)
		if int64(body.Len()) > maxBody {
			return nil, ErrUploadTooLarge
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("upload ended before closing boundary: %w", err)
		}
		if strings.TrimRight(string(chunk), "\r\n") == closing && lineStart(body.Bytes(), len(chunk)) {
			break
		}
	}
	req.Body = body.Bytes()

	return req, nil
}

// lineStart reports whether the last n bytes of buf begin a line
func lineStart(buf []byte, n int) bool {
	i := len(buf) - n
	return i == 0 || buf[i-1] == '\n'
}

func requestBoundary(h textproto.MIMEHeader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("invalid Content-Type: %w", err)
	}
	if mediaType != "multipart/form-data" || params["boundary"] == "" {
		return "", fmt.Errorf("unsupported Content-Type %q", mediaType)
	}
	return params["boundary"], nil
}

// uploadedFile extracts the named form file from a multipart body
func uploadedFile(req *rawRequest, field string) (name string, data []byte, err error) {
	boundary, err := requestBoundary(req.Header)
	if err != nil {
		return "", nil, err
	}

	mr := multipart.NewReader(bytes.NewReader(req.Body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", nil, fmt.Errorf("form field %q not found", field)
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to parse multipart body: %w", err)
		}
		if part.FormName() != field {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %q: %w", field, err)
		}
		return part.FileName(), data, nil
	}
}

// statusResponse builds a complete response for code
func statusResponse(code int) []byte {
	text := http.StatusText(code)
	return []byte(fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		code, text, len(text), text))
}
