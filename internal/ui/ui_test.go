package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/selectmini/internal/printer"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<b>Printing Started</b>", "Printing Started"},
		{"Upload Success", "Upload Success"},
		{"a <b>b</b> c", "a b c"},
	}
	for _, tt := range tests {
		if got := StripMarkup(tt.in); got != tt.want {
			t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&buf, true)

	n.ShowMessage("Upload Success")
	n.ShowMessage("<b>Printing Started</b>")

	if got := buf.String(); got != "Upload Success\nPrinting Started\n" {
		t.Errorf("plain output = %q", got)
	}

	buf.Reset()
	NewNotifier(&buf, false).ShowMessage("<b>Printing Started</b>")
	if out := buf.String(); !strings.Contains(out, "Printing Started") || strings.Contains(out, "<b>") {
		t.Errorf("styled output = %q", out)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "Start?"); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Errorf("prompt = %q, should show [y/N]", out.String())
		}
	}
}

func TestConfirmStartPrint(t *testing.T) {
	var out bytes.Buffer
	if !ConfirmStartPrint(strings.NewReader("y\n"), &out, "10.0.0.5") {
		t.Error("ConfirmStartPrint should accept y")
	}
	if !strings.Contains(out.String(), "10.0.0.5") {
		t.Errorf("prompt = %q, should name the printer", out.String())
	}
}

func TestHeader_SortedParams(t *testing.T) {
	h := NewHeader("Upload", "selectmini upload part.gcode", map[string]string{
		"Printer": "10.0.0.5",
		"File":    "part.gcode",
	}).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "UPLOAD") {
		t.Error("title should be upper-cased")
	}
	if strings.Index(out, "File:") > strings.Index(out, "Printer:") {
		t.Error("params should be rendered in key order")
	}
}

func TestResult_Render(t *testing.T) {
	out := NewFailureResult("Upload Failed", errors.New("boom"), []string{"check cable"}).
		SetWidth(80).
		AddDetail("Response", "HTTP/1.1 500 Internal Server Error").
		Render()

	for _, want := range []string{"FAILED", "Upload Failed", "Error: boom", "Troubleshooting:", "check cable", "HTTP/1.1 500"} {
		if !strings.Contains(out, want) {
			t.Errorf("failure box missing %q", want)
		}
	}

	out = NewSuccessResult("Upload complete", map[string]string{"Requests": "2"}).SetWidth(80).Render()
	if !strings.Contains(out, "SUCCESS") || !strings.Contains(out, "Requests:") {
		t.Errorf("success box = %q", out)
	}
}

func TestProgress_UpdateStep(t *testing.T) {
	p := NewProgress("", 3).SetStepNames(UploadStepNames)

	p.UpdateStep(1, StepRunning, "")
	if p.Current != 1 {
		t.Errorf("Current = %d, want 1", p.Current)
	}
	p.UpdateStep(1, StepComplete, "HTTP/1.1 200 OK")
	p.UpdateStep(3, StepSkipped, "")
	if p.Percent < 0.66 || p.Percent > 0.67 {
		t.Errorf("Percent = %v, want 2/3", p.Percent)
	}

	p.UpdateStep(0, StepFailed, "ignored")
	p.UpdateStep(4, StepFailed, "ignored")
	if p.Step(4) != (Step{}) {
		t.Error("out of range Step should be zero")
	}

	line := p.RenderStepLine(p.Step(1))
	if !strings.Contains(line, "[1/3]") || !strings.Contains(line, "Upload G-code") || !strings.Contains(line, StepMarkerComplete) {
		t.Errorf("step line = %q", line)
	}
}

func fakeUpload(steps []printer.StepEvent, result *printer.UploadResult, err error) UploadOperation {
	return func(onStep printer.StepFunc) (*printer.UploadResult, error) {
		for _, ev := range steps {
			onStep(ev)
		}
		return result, err
	}
}

func TestUploadRunner_PlainSuccess(t *testing.T) {
	var buf bytes.Buffer
	r := NewUploadRunner(UploadRunnerConfig{
		Title:   "Upload",
		Command: "selectmini upload part.gcode",
		Plain:   true,
		Output:  &buf,
		Width:   80,
	})

	ok := "HTTP/1.1 200 OK\r\n\r\n"
	_, err := r.Run(context.Background(), fakeUpload([]printer.StepEvent{
		{Step: printer.StepUpload, Status: printer.StepStarted},
		{Step: printer.StepUpload, Status: printer.StepCompleted, Response: ok},
		{Step: printer.StepHoldPrint, Status: printer.StepStarted},
		{Step: printer.StepHoldPrint, Status: printer.StepCompleted, Response: ok},
		{Step: printer.StepStartPrint, Status: printer.StepSkipped},
	}, &printer.UploadResult{Requests: 2}, nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"Upload: selectmini upload part.gcode",
		"[1/3] Upload G-code: ok (HTTP/1.1 200 OK)",
		"[2/3] Hold print: ok (HTTP/1.1 200 OK)",
		"[3/3] Start print: skipped (not requested)",
		"Upload complete in",
	}
	out := buf.String()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestUploadRunner_Failure(t *testing.T) {
	var buf bytes.Buffer
	r := NewUploadRunner(UploadRunnerConfig{
		Title:   "Upload",
		Command: "selectmini upload part.gcode",
		Output:  &buf,
		Width:   80,
	})

	resp := "HTTP/1.1 500 Internal Server Error\r\n\r\n"
	pErr := printer.NewResponseError(printer.StepUpload, "10.0.0.5", resp)

	_, err := r.Run(context.Background(), fakeUpload([]printer.StepEvent{
		{Step: printer.StepUpload, Status: printer.StepStarted},
		{Step: printer.StepUpload, Status: printer.StepFailed, Response: resp, Err: pErr},
	}, &printer.UploadResult{Requests: 1}, pErr))
	if !printer.IsUploadFailed(err) {
		t.Fatalf("Run() error = %v, want UploadFailed", err)
	}

	out := buf.String()
	for _, w := range []string{"UPLOAD", "Upload G-code", FailureMarker, "Upload Failed", "HTTP/1.1 500", "Troubleshooting:"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q", w)
		}
	}
	if strings.Contains(out, "\r") {
		t.Error("running lines should not be drawn in place on a non-terminal")
	}
}

func TestConsole_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf).SetWidth(80)

	c.PrintHeader("Configuration", "/tmp/config.yaml", map[string]string{"MPSelectMini/ip": "10.0.0.5"})
	c.PrintWarning("No printers found", map[string]string{"Manual": "config set"})
	c.PrintSuccess("Preference saved", nil)
	c.PrintFailure("Upload Failed", errors.New("boom"), nil)

	out := buf.String()
	for _, want := range []string{"CONFIGURATION", "MPSelectMini/ip:", "WARNING", "No printers found", "SUCCESS", "FAILED"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q", want)
		}
	}
	if c.Writer() != &buf {
		t.Error("Writer() should return the configured writer")
	}
}
