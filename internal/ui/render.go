package ui

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// RunOnceModel is a Bubble Tea model that renders once and exits
type RunOnceModel struct {
	content string
	width   int
	height  int
}

// NewRunOnceModel creates a model that will render the given content and exit
func NewRunOnceModel(content string) RunOnceModel {
	width, height := GetTerminalSize()
	return RunOnceModel{content: content, width: width, height: height}
}

// Init implements tea.Model
func (m RunOnceModel) Init() tea.Cmd {
	return tea.Quit
}

// Update implements tea.Model
func (m RunOnceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = size.Width, size.Height
	}
	return m, nil
}

// View implements tea.Model
func (m RunOnceModel) View() string {
	return m.content
}

// RenderOnce renders content through Bubble Tea and exits immediately
func RenderOnce(out io.Writer, content string) error {
	if out == nil {
		out = os.Stdout
	}
	p := tea.NewProgram(NewRunOnceModel(content), tea.WithOutput(out), tea.WithInput(nil))
	_, err := p.Run()
	return err
}

// Console writes UI components to a writer
type Console struct {
	out   io.Writer
	width int
}

// NewConsole creates a Console writing to w (os.Stdout when nil)
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{out: w, width: GetTerminalWidth()}
}

// SetWidth overrides the detected terminal width
func (c *Console) SetWidth(width int) *Console {
	c.width = width
	return c
}

// Width returns the width used for rendering
func (c *Console) Width() int {
	return c.width
}

// Writer returns the underlying writer
func (c *Console) Writer() io.Writer {
	return c.out
}

// Println writes content with a newline
func (c *Console) Println(content string) {
	_, _ = fmt.Fprintln(c.out, content)
}

// Printf writes formatted content
func (c *Console) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// Newline prints an empty line
func (c *Console) Newline() {
	_, _ = fmt.Fprintln(c.out)
}

// render writes a component. Terminals go through Bubble Tea.
func (c *Console) render(content string) {
	if IsTerminal(c.out) {
		if err := RenderOnce(c.out, content+"\n"); err == nil {
			return
		}
	}
	c.Println(content)
}

// PrintHeader prints a command header box
func (c *Console) PrintHeader(title, command string, params map[string]string) {
	c.render(NewHeader(title, command, params).SetWidth(c.width).Render())
	c.Newline()
}

// PrintSuccess prints a success result box
func (c *Console) PrintSuccess(title string, details map[string]string) {
	c.render(NewSuccessResult(title, details).SetWidth(c.width).Render())
}

// PrintFailure prints an error result box with troubleshooting tips
func (c *Console) PrintFailure(title string, err error, troubleshooting []string) {
	c.render(NewFailureResult(title, err, troubleshooting).SetWidth(c.width).Render())
}

// PrintWarning prints a warning result box
func (c *Console) PrintWarning(title string, details map[string]string) {
	c.render(NewWarningResult(title, details).SetWidth(c.width).Render())
}
