package gcode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

// ErrNoNode is returned when a writer is asked to render an empty node
var ErrNoNode = errors.New("no scene node to render")

// Writer renders a scene node as G-code into w. It blocks until the whole
// program has been written.
type Writer interface {
	Write(w io.Writer, node string) error
}

// FileWriter renders a node by streaming an already sliced G-code file.
// The node is the path to that file.
type FileWriter struct{}

// Write copies the G-code file named by node into w
func (FileWriter) Write(w io.Writer, node string) error {
	if strings.TrimSpace(node) == "" {
		return ErrNoNode
	}

	f, err := os.Open(node)
	if err != nil {
		return fmt.Errorf("failed to open G-code file: %w", err)
	}
	defer func() { _ = f.Close() }()

	n, err := io.Copy(w, f)
	if err != nil {
		return fmt.Errorf("failed to read G-code file %s: %w", node, err)
	}

	logging.Debug("Rendered G-code", zap.String("file", node), zap.Int64("bytes", n))
	return nil
}

// StringWriter renders every node as the same fixed program.
// Useful for piping G-code from stdin.
type StringWriter string

// Write writes the fixed program into w
func (s StringWriter) Write(w io.Writer, _ string) error {
	_, err := io.WriteString(w, string(s))
	return err
}

// Render collects the writer's output for node into a string
func Render(writer Writer, node string) (string, error) {
	if writer == nil {
		return "", errors.New("no G-code writer configured")
	}

	var sb strings.Builder
	if err := writer.Write(&sb, node); err != nil {
		return "", err
	}
	return sb.String(), nil
}
