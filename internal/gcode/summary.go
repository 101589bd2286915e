package gcode

import (
	"bufio"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Summary describes a G-code program
type Summary struct {
	Lines    int // Total lines, including blank ones
	Commands int // Lines carrying a command
	Comments int // Lines that are only a comment
	Bytes    int

	// Layers counts ";LAYER:" markers in the body
	Layers int

	// LayerCount is the ";LAYER_COUNT:" header value, or -1 when absent
	LayerCount int

	// Slicer is the ";Generated with" header value, if present
	Slicer string

	// NonASCII is set when the program contains bytes above 0x7F.
	// They are sent verbatim; the firmware may not handle them.
	NonASCII bool
}

// Summarize scans a G-code program. It never fails: unrecognised lines
// count as commands.
func Summarize(text string) Summary {
	s := Summary{Bytes: len(text), LayerCount: -1}

	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			s.NonASCII = true
			break
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		s.Lines++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
		case strings.HasPrefix(line, ";"):
			s.Comments++
			s.readHeader(line)
		default:
			s.Commands++
		}
	}

	return s
}

func (s *Summary) readHeader(line string) {
	switch {
	case strings.HasPrefix(line, ";LAYER_COUNT:"):
		if n, err := strconv.Atoi(strings.TrimSpace(line[len(";LAYER_COUNT:"):])); err == nil {
			s.LayerCount = n
		}
	case strings.HasPrefix(line, ";LAYER:"):
		s.Layers++
	case strings.HasPrefix(line, ";Generated with") && s.Slicer == "":
		s.Slicer = strings.TrimSpace(line[len(";Generated with"):])
	}
}
