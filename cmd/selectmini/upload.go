package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/config"
	"github.com/muurk/selectmini/internal/discovery"
	"github.com/muurk/selectmini/internal/gcode"
	"github.com/muurk/selectmini/internal/logging"
	"github.com/muurk/selectmini/internal/outputdevice"
	"github.com/muurk/selectmini/internal/printer"
	"github.com/muurk/selectmini/internal/ui"
)

// Upload command flags
var (
	deviceIP      string
	devicePort    int
	uploadTimeout time.Duration
	startPrint    bool
	noStartPrint  bool
	askStart      bool
	scanFirst     bool
	plainOutput   bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.gcode>",
	Short: "Upload a G-code file to the printer",
	Long: `Upload a G-code file to an MP Select Mini printer.

The file is sent with the printer's web upload request, the automatic start
that follows an upload is cancelled, and the print is then started only if
requested (--start, or MPSelectMini/start_print in the configuration file).

The printer address comes from --device, from --scan, or from the
MPSelectMini/ip preference.`,
	Example: `  # Upload to the configured printer
  selectmini upload benchy.gcode

  # Upload to a specific printer and start printing
  selectmini upload benchy.gcode --device 192.168.1.50 --start

  # Find the printer with mDNS first, then ask before printing
  selectmini upload benchy.gcode --scan --ask

  # Unstyled output for scripts
  selectmini upload benchy.gcode --plain`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&deviceIP, "device", "", "Printer IP address (overrides MPSelectMini/ip)")
	uploadCmd.Flags().IntVar(&devicePort, "port", printer.DefaultPort, "Printer HTTP port")
	uploadCmd.Flags().DurationVar(&uploadTimeout, "timeout", printer.DefaultTimeout, "Per-request socket timeout")
	uploadCmd.Flags().BoolVar(&startPrint, "start", false, "Start printing after the upload")
	uploadCmd.Flags().BoolVar(&noStartPrint, "no-start", false, "Do not start printing after the upload")
	uploadCmd.Flags().BoolVar(&askStart, "ask", false, "Ask whether to start printing before uploading")
	uploadCmd.Flags().BoolVar(&scanFirst, "scan", false, "Find the printer with mDNS instead of using the configured address")
	uploadCmd.Flags().BoolVar(&plainOutput, "plain", false, "Plain output without colors or boxes")

	uploadCmd.MarkFlagsMutuallyExclusive("start", "no-start", "ask")
	uploadCmd.MarkFlagsMutuallyExclusive("device", "scan")

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var opts []outputdevice.WriteOption

	ip := deviceIP
	if scanFirst {
		found, err := findPrinter(ctx)
		if err != nil {
			return err
		}
		ip = found.IP
		if !cmd.Flags().Changed("port") && found.Port != 0 {
			devicePort = found.Port
		}
		registry.UpdatePrinterLastSeen(ip)
	}
	if ip != "" {
		opts = append(opts, outputdevice.WithIP(ip))
	} else {
		ip = registry.Group(outputdevice.PreferenceGroup).GetString(outputdevice.KeyIP)
	}

	switch {
	case startPrint:
		opts = append(opts, outputdevice.WithStartPrint(true))
	case noStartPrint:
		opts = append(opts, outputdevice.WithStartPrint(false))
	case askStart && ip != "":
		opts = append(opts, outputdevice.WithStartPrint(ui.ConfirmStartPrint(os.Stdin, os.Stdout, ip)))
	}

	client := printer.NewClient()
	client.SetPort(devicePort)
	client.SetTimeout(uploadTimeout)

	plugin := outputdevice.NewPlugin(
		registry,
		registry.Group(outputdevice.PreferenceGroup),
		gcode.FileWriter{},
		ui.NewNotifier(os.Stdout, plainOutput),
	)
	plugin.Client = client

	manager := outputdevice.NewDeviceManager()
	device := plugin.Start(manager)
	defer plugin.Stop(manager)

	params := uploadParams(path, ip)
	runner := ui.NewUploadRunner(ui.UploadRunnerConfig{
		Title:   "Upload",
		Command: cmd.CommandPath() + " " + path,
		Params:  params,
		Plain:   plainOutput,
	})

	result, err := runner.Run(ctx, func(onStep printer.StepFunc) (*printer.UploadResult, error) {
		return device.RequestWrite(ctx, path, append(opts, outputdevice.WithStepFunc(onStep))...)
	})

	if ip != "" && attemptedUpload(err) {
		recordUpload(registry, ip, path, result, err)
	}

	return err
}

// uploadParams summarizes the file for the header. An unreadable file is
// left to the upload to report.
func uploadParams(path, ip string) map[string]string {
	params := map[string]string{"File": filepath.Base(path)}
	if ip != "" {
		params["Printer"] = ip
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return params
	}

	summary := gcode.Summarize(string(data))
	params["Size"] = fmt.Sprintf("%d bytes", summary.Bytes)
	params["Commands"] = strconv.Itoa(summary.Commands)
	if summary.LayerCount > 0 {
		params["Layers"] = strconv.Itoa(summary.LayerCount)
	} else if summary.Layers > 0 {
		params["Layers"] = strconv.Itoa(summary.Layers)
	}
	if summary.Slicer != "" {
		params["Slicer"] = summary.Slicer
	}
	return params
}

// attemptedUpload reports whether the write got as far as talking to the
// printer. Address, busy and G-code errors stop before any request.
func attemptedUpload(err error) bool {
	return err == nil ||
		printer.IsUploadFailed(err) ||
		printer.IsStartPrintFailed(err) ||
		printer.IsTimeout(err) ||
		printer.IsNetworkError(err)
}

func recordUpload(registry *config.Registry, ip, path string, result *printer.UploadResult, err error) {
	outcome := "ok"
	if err != nil {
		outcome = printer.GetShortErrorMessage(err)
	}
	registry.RecordUpload(ip, filepath.Base(path), outcome)

	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save upload history", zap.Error(err))
	}

	if result != nil {
		logging.Debug("Upload recorded",
			zap.String("ip", ip),
			zap.String("result", outcome),
			zap.Int("requests", result.Requests),
		)
	}
}

func findPrinter(ctx context.Context) (*discovery.Printer, error) {
	fmt.Println("Scanning for printers...")

	p, err := discovery.NewScanner().FindPrinter(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("discovery failed: %w. Use --device to specify the printer address", err)
	}

	fmt.Printf("Found printer: %s\n\n", p)
	return p, nil
}
