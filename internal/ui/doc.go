// Package ui provides terminal output for the selectmini CLI.
//
// Components follow a "render once and exit" pattern: they print polished,
// styled output with Lipgloss but never take over the terminal.
//
//   - Header: banner with the command and its parameters
//   - Progress: step list for the upload, hold and start requests
//   - Result: success/failure boxes with troubleshooting tips
//   - Notifier: styled one-line notices from the output device
//
// The UploadRunner ties them together: it prints the header, turns
// printer.StepEvent callbacks into step lines, then prints the result.
//
// Example:
//
//	runner := ui.NewUploadRunner(ui.UploadRunnerConfig{
//	    Title:   "Upload",
//	    Command: "selectmini upload part.gcode",
//	    Params:  map[string]string{"Printer": "192.168.1.50"},
//	})
//
//	result, err := runner.Run(ctx, func(onStep printer.StepFunc) (*printer.UploadResult, error) {
//	    return device.RequestWrite(ctx, "part.gcode", outputdevice.WithStepFunc(onStep))
//	})
//
// # Logging Integration
//
// Logging is controlled by the SELECTMINI_LOG_LEVEL environment variable.
// When unset, zap logging is silent so the curated output stays clean.
package ui
