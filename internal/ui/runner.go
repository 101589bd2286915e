package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muurk/selectmini/internal/printer"
)

// UploadRunnerConfig holds configuration for an upload run
type UploadRunnerConfig struct {
	Title   string            // e.g., "Upload"
	Command string            // e.g., "selectmini upload part.gcode"
	Params  map[string]string // Shown in the header
	Plain   bool              // Unstyled output for logs and pipes
	Output  io.Writer         // Output writer (default: os.Stdout)
	Width   int               // Rendering width (default: terminal width)
}

// UploadOperation performs the upload, reporting progress through onStep
type UploadOperation func(onStep printer.StepFunc) (*printer.UploadResult, error)

// UploadRunner prints the header, a line per request step, then the result
type UploadRunner struct {
	config   UploadRunnerConfig
	progress *Progress
	output   io.Writer
	width    int
	live     bool
}

// UploadStepNames names the three requests of an upload
var UploadStepNames = []string{"Upload G-code", "Hold print", "Start print"}

// NewUploadRunner creates a runner
func NewUploadRunner(config UploadRunnerConfig) *UploadRunner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := config.Width
	if width == 0 {
		width = GetTerminalWidth()
	}

	p := NewProgress("", len(UploadStepNames)).SetWidth(width).SetStepNames(UploadStepNames)

	return &UploadRunner{
		config:   config,
		progress: p,
		output:   config.Output,
		width:    width,
		live:     !config.Plain && IsTerminal(config.Output),
	}
}

// Run executes op with UI updates and returns its result
func (r *UploadRunner) Run(ctx context.Context, op UploadOperation) (*printer.UploadResult, error) {
	start := time.Now()

	if r.config.Plain {
		_, _ = fmt.Fprintf(r.output, "%s: %s\n", r.config.Title, r.config.Command)
	} else {
		_, _ = fmt.Fprintln(r.output, NewHeader(r.config.Title, r.config.Command, r.config.Params).SetWidth(r.width).Render())
		_, _ = fmt.Fprintln(r.output)
	}

	result, err := op(r.OnStep)

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	duration := time.Since(start)
	if result != nil && result.Duration > 0 {
		duration = result.Duration
	}

	if err != nil {
		r.printFailure(err)
	} else {
		r.printSuccess(result, duration)
	}

	return result, err
}

// OnStep turns a printer step event into a step line
func (r *UploadRunner) OnStep(ev printer.StepEvent) {
	n := int(ev.Step)
	if n < 1 || n > len(r.progress.Steps) {
		return
	}

	var status StepStatus
	var note string
	switch ev.Status {
	case printer.StepStarted:
		status = StepRunning
	case printer.StepCompleted:
		status = StepComplete
		note = printer.StatusLine(ev.Response)
	case printer.StepFailed:
		status = StepFailed
		note = printer.GetShortErrorMessage(ev.Err)
	case printer.StepSkipped:
		status = StepSkipped
		note = "not requested"
	}

	r.progress.UpdateStep(n, status, note)
	step := r.progress.Step(n)

	if r.config.Plain {
		if status != StepRunning {
			_, _ = fmt.Fprintf(r.output, "[%d/%d] %s: %s\n", n, r.progress.Total, step.Name, plainStatus(status, note))
		}
		return
	}

	switch status {
	case StepRunning:
		// Overwritten in place once the step finishes
		if r.live {
			_, _ = fmt.Fprint(r.output, r.progress.RenderStepLine(step)+"\r")
		}
	default:
		_, _ = fmt.Fprintln(r.output, r.progress.RenderStepLine(step))
	}
}

func plainStatus(status StepStatus, note string) string {
	var s string
	switch status {
	case StepComplete:
		s = "ok"
	case StepFailed:
		s = "failed"
	case StepSkipped:
		s = "skipped"
	default:
		s = "pending"
	}
	if note != "" {
		s += " (" + note + ")"
	}
	return s
}

func (r *UploadRunner) printSuccess(result *printer.UploadResult, duration time.Duration) {
	title := "Upload complete"
	if result != nil && result.PrintStarted {
		title = "Upload complete, printing"
	}

	details := map[string]string{
		"Duration": duration.Round(time.Millisecond).String(),
	}
	if result != nil {
		details["Requests"] = fmt.Sprintf("%d", result.Requests)
	}
	for k, v := range r.config.Params {
		if k == "Printer" || k == "File" {
			details[k] = v
		}
	}

	if r.config.Plain {
		_, _ = fmt.Fprintf(r.output, "%s in %s\n", title, details["Duration"])
		return
	}

	_, _ = fmt.Fprintln(r.output)
	_, _ = fmt.Fprintln(r.output, NewSuccessResult(title, details).SetWidth(r.width).Render())
}

func (r *UploadRunner) printFailure(err error) {
	title := printer.GetShortErrorMessage(err)

	if r.config.Plain {
		_, _ = fmt.Fprintf(r.output, "%s: %v\n", title, err)
		return
	}

	res := NewFailureResult(title, err, printer.GetTroubleshootingHint(err)).SetWidth(r.width)
	if raw := printer.RawResponse(err); raw != "" {
		res.AddDetail("Response", printer.StatusLine(raw))
	}

	_, _ = fmt.Fprintln(r.output)
	_, _ = fmt.Fprintln(r.output, res.Render())
}
