// Selectmini-emulator emulates the web interface of an MP Select Mini printer.
//
// It accepts the same upload, hold and start requests as the printer
// firmware, records what it receives, and can be told to fail or stall so
// that upload clients can be exercised without a printer on the network.
//
// Usage:
//
//	selectmini-emulator serve [flags]
//
// See 'selectmini-emulator serve --help' for available options.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/emulator"
	"github.com/muurk/selectmini/internal/logging"
	"github.com/muurk/selectmini/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "selectmini-emulator",
	Short: "MP Select Mini firmware emulator",
	Long: `A stand-in for the MP Select Mini web interface.

The emulator speaks the printer's three-request upload protocol on the
firmware port and serves a status websocket plus JSON views of the
received requests on the status port.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	host       string
	port       int
	statusPort int
	uploadDir  string
	failUpload bool
	failStart  bool
	stall      bool
	advertise  bool
	instance   string
	logLevel   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the emulator",
	Long: `Start the emulator and serve until interrupted.

Uploaded files are kept in memory; use --upload-dir to also write them to
disk. The failure flags make the matching request answer with a 500
(--fail-upload, --fail-start) or never answer at all (--stall).`,
	Example: `  # Emulate a printer on the usual ports (needs privileges for port 80)
  sudo selectmini-emulator serve

  # Unprivileged ports, keep uploads, advertise over mDNS
  selectmini-emulator serve --port 8080 --status-port 8081 --upload-dir ./uploads --advertise

  # Exercise the client's error handling
  selectmini-emulator serve --port 8080 --fail-start --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", 80, "Firmware HTTP port")
	serveCmd.Flags().IntVar(&statusPort, "status-port", 81, "Status websocket port (0 disables it)")
	serveCmd.Flags().StringVar(&uploadDir, "upload-dir", "", "Directory to write uploaded files to")
	serveCmd.Flags().BoolVar(&failUpload, "fail-upload", false, "Answer uploads with 500 Internal Server Error")
	serveCmd.Flags().BoolVar(&failStart, "fail-start", false, "Answer start print with 500 Internal Server Error")
	serveCmd.Flags().BoolVar(&stall, "stall", false, "Read requests but never answer")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the emulator over mDNS")
	serveCmd.Flags().StringVar(&instance, "instance", emulator.DefaultInstance, "mDNS instance name")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	if uploadDir != "" {
		info, err := os.Stat(uploadDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("upload directory does not exist: %s", uploadDir)
		}
		if err != nil {
			return fmt.Errorf("cannot access upload directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("upload path is not a directory: %s", uploadDir)
		}
	}

	config := &emulator.Config{
		Host:       host,
		Port:       port,
		StatusPort: statusPort,
		UploadDir:  uploadDir,
		FailUpload: failUpload,
		FailStart:  failStart,
		Stall:      stall,
		Advertise:  advertise,
		Instance:   instance,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := emulator.New(config)

	logging.Info("Starting printer emulator",
		zap.String("host", host),
		zap.Int("port", port),
		zap.Int("status_port", statusPort),
		zap.Bool("fail_upload", failUpload),
		zap.Bool("fail_start", failStart),
		zap.Bool("stall", stall),
	)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("emulator stopped: %w", err)
	}

	logging.Info("Emulator stopped", zap.Int("requests", len(srv.Requests())))
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("selectmini-emulator %s\n", version.Full())
	},
}
