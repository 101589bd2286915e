package outputdevice

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/gcode"
	"github.com/muurk/selectmini/internal/logging"
	"github.com/muurk/selectmini/internal/printer"
)

// Device identity
const (
	DeviceID          = "MPSelectMini"
	DeviceName        = "MP Select Mini"
	DeviceDescription = "Send to MP Select Mini"
	DeviceIcon        = "save"
)

// OutputDevice uploads rendered scene nodes to one printer.
// Only one write request may be in flight; overlapping requests fail with
// a DeviceBusy error.
type OutputDevice struct {
	settings SettingsStore
	writer   gcode.Writer
	notifier Notifier
	client   *printer.Client

	latch printer.Latch
}

// New creates an output device. A nil client uses printer defaults and a
// nil notifier logs notices.
func New(settings SettingsStore, writer gcode.Writer, notifier Notifier, client *printer.Client) *OutputDevice {
	if client == nil {
		client = printer.NewClient()
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &OutputDevice{
		settings: settings,
		writer:   writer,
		notifier: notifier,
		client:   client,
	}
}

// ID returns the device identifier
func (d *OutputDevice) ID() string { return DeviceID }

// Name returns the display name
func (d *OutputDevice) Name() string { return DeviceName }

// ShortDescription returns the action label
func (d *OutputDevice) ShortDescription() string { return DeviceDescription }

// Description returns the tooltip text
func (d *OutputDevice) Description() string { return DeviceDescription }

// IconName returns the icon identifier
func (d *OutputDevice) IconName() string { return DeviceIcon }

// Client returns the upload client used by the device
func (d *OutputDevice) Client() *printer.Client { return d.client }

// Writing reports whether a write request is in flight
func (d *OutputDevice) Writing() bool { return d.latch.Busy() }

// WriteOption overrides stored settings for a single write request
type WriteOption func(*writeOptions)

type writeOptions struct {
	ip     *string
	start  *bool
	onStep printer.StepFunc
}

// WithIP uploads to ip instead of the stored preference
func WithIP(ip string) WriteOption {
	return func(o *writeOptions) { o.ip = &ip }
}

// WithStartPrint overrides the stored start_print preference
func WithStartPrint(start bool) WriteOption {
	return func(o *writeOptions) { o.start = &start }
}

// WithStepFunc receives upload progress events
func WithStepFunc(fn printer.StepFunc) WriteOption {
	return func(o *writeOptions) { o.onStep = fn }
}

// RequestWrite renders node to G-code and uploads it to the printer.
// Success and failure are reported through the Notifier; the returned error
// is a *printer.PrinterError for upload failures.
func (d *OutputDevice) RequestWrite(ctx context.Context, node string, opts ...WriteOption) (*printer.UploadResult, error) {
	if !d.latch.TryAcquire() {
		return nil, printer.NewDeviceBusyError("")
	}
	defer d.latch.Release()

	o := writeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	settings := LoadSettings(d.settings)
	if o.ip != nil {
		settings.IP = strings.TrimSpace(*o.ip)
	}
	if o.start != nil {
		settings.StartAfterUpload = *o.start
	}

	if settings.IP == "" {
		d.notifier.ShowMessage(MsgInvalidIP)
		return nil, printer.NewInvalidAddressError(settings.IP)
	}

	text, err := gcode.Render(d.writer, node)
	if err != nil {
		logging.Error("Failed to render G-code", zap.String("node", node), zap.Error(err))
		return nil, fmt.Errorf("failed to render G-code: %w", err)
	}

	result, err := d.client.Upload(ctx, printer.UploadRequest{
		TargetIP:         settings.IP,
		Gcode:            text,
		StartAfterUpload: settings.StartAfterUpload,
		OnStep:           d.stepNotices(o.onStep),
	})
	if err != nil {
		logging.Error("Write request failed",
			zap.String("ip", settings.IP),
			zap.Error(err),
			zap.String("response", printer.RawResponse(err)),
		)
		d.notifier.ShowMessage(printer.GetShortErrorMessage(err))
		return result, err
	}

	return result, nil
}

// stepNotices shows the success notices as each checked step completes,
// then forwards the event
func (d *OutputDevice) stepNotices(next printer.StepFunc) printer.StepFunc {
	return func(ev printer.StepEvent) {
		if ev.Status == printer.StepCompleted {
			switch ev.Step {
			case printer.StepUpload:
				d.notifier.ShowMessage(MsgUploadSuccess)
			case printer.StepStartPrint:
				d.notifier.ShowMessage(MsgPrintingStarted)
			}
		}
		if next != nil {
			next(ev)
		}
	}
}
