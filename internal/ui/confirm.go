package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm asks a yes/no question on out and reads the answer from in.
// Anything other than y or yes (any case) is a no, as is EOF.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	prompt := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true).
		PaddingLeft(2).
		Render(question + " [y/N]: ")
	_, _ = fmt.Fprint(out, prompt)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConfirmStartPrint asks whether to start printing after the upload
func ConfirmStartPrint(in io.Reader, out io.Writer, target string) bool {
	return Confirm(in, out, fmt.Sprintf("Start printing on %s once the upload completes?", target))
}
