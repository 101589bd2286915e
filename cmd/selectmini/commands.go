package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/selectmini/internal/config"
	"github.com/muurk/selectmini/internal/discovery"
	"github.com/muurk/selectmini/internal/monitor"
	"github.com/muurk/selectmini/internal/outputdevice"
	"github.com/muurk/selectmini/internal/ui"
)

// Scan, status and config command flags
var (
	scanTimeout  int
	scanSave     bool
	statusDevice string
	statusPort   int
	initForce    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

// scanCmd discovers printers on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for MP Select Mini printers on the network",
	Long: `Scan for printers using mDNS/DNS-SD discovery.

Printers are recognised by an _http._tcp service whose instance or host
name mentions the Select Mini, or whose TXT record carries
model=MPSelectMini.`,
	Example: `  # Scan for 5 seconds (default)
  selectmini scan

  # Longer scan, and remember the printer if exactly one is found
  selectmini scan --timeout 15 --save`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Save the address when exactly one printer is found")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for printers (timeout: %ds)...\n\n", scanTimeout)

	printers, err := discovery.ScanForPrinters(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(printers) == 0 {
		ui.NewConsole(os.Stdout).PrintWarning("No printers found", map[string]string{
			"Check":   "the printer is powered on and joined to your WiFi",
			"Address": "shown on the printer display (WiFi menu)",
			"Timeout": "try a longer --timeout on slow networks",
			"Manual":  "selectmini config set MPSelectMini/ip <ip>",
		})
		return nil
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fmt.Printf("Found %d printer(s):\n\n", len(printers))

	for i, p := range printers {
		fmt.Printf("%d. %s\n", i+1, p.Instance)
		fmt.Printf("   Host:    %s\n", p.Hostname)
		fmt.Printf("   Address: %s\n", p.Address())
		if len(p.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", p.Metadata)
		}
		fmt.Println()
		registry.UpdatePrinterLastSeen(p.IP)
	}

	if scanSave {
		if len(printers) > 1 {
			return errors.New("multiple printers found. Use 'selectmini config set MPSelectMini/ip <ip>' to choose one")
		}
		registry.SetValue(preferenceKey(outputdevice.KeyIP), printers[0].IP)
		fmt.Printf("Saved %s as the printer address\n", printers[0].IP)
	}

	if err := registry.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Println("Use 'selectmini upload <file> --device <ip>' to send a file")
	return nil
}

// statusCmd follows the printer's status websocket
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Follow the printer's status feed",
	Long: `Connect to the printer's status websocket and print every message
until interrupted or the printer closes the connection.

Without --device or a configured address, a short mDNS scan picks the
first printer found.`,
	Example: `  # Follow the configured printer
  selectmini status

  # Follow a specific printer
  selectmini status --device 192.168.1.50`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDevice, "device", "", "Printer IP address (overrides MPSelectMini/ip)")
	statusCmd.Flags().IntVar(&statusPort, "port", monitor.DefaultPort, "Status websocket port")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ip := statusDevice
	if ip == "" {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		ip = registry.Group(outputdevice.PreferenceGroup).GetString(outputdevice.KeyIP)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if ip == "" {
		printers, err := discovery.QuickScan(ctx)
		if err != nil || len(printers) == 0 {
			return errors.New("no printer address. Use --device or 'selectmini config set MPSelectMini/ip <ip>'")
		}
		ip = printers[0].IP
	}

	m := monitor.New(ip)
	m.Port = statusPort

	fmt.Printf("Watching %s (Ctrl+C to stop)\n\n", m.URL())

	return m.Watch(ctx, func(msg monitor.Message) {
		fmt.Printf("%s  %s\n", msg.Received.Format("15:04:05"), msg.Text)
	})
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change preferences",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show preferences and printer history",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		console := ui.NewConsole(os.Stdout)

		prefs := make(map[string]string)
		for _, key := range registry.Keys() {
			prefs[key] = registry.GetValue(key)
			if prefs[key] == "" {
				prefs[key] = "(unset)"
			}
		}
		path, _ := registry.Path()
		console.PrintHeader("Configuration", path, prefs)

		if len(registry.Printers) == 0 {
			return nil
		}

		ips := make([]string, 0, len(registry.Printers))
		for ip := range registry.Printers {
			ips = append(ips, ip)
		}
		sort.Strings(ips)

		for _, ip := range ips {
			p := registry.Printers[ip]
			name := ip
			if p.Nickname != "" {
				name = fmt.Sprintf("%s (%s)", p.Nickname, ip)
			}
			console.Printf("%s\n", name)
			if !p.LastSeen.IsZero() {
				console.Printf("   Last seen:   %s\n", p.LastSeen.Format(time.RFC3339))
			}
			if !p.LastUpload.IsZero() {
				console.Printf("   Last upload: %s %s (%s)\n", p.LastUpload.Format(time.RFC3339), p.LastFile, p.LastResult)
			}
			console.Printf("   Uploads:     %d\n", p.Uploads)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a preference",
	Long: `Set a preference and save the configuration file.

Keys are "group/name"; a key without a group is taken to be in the
MPSelectMini group. An empty value clears the preference.`,
	Example: `  selectmini config set MPSelectMini/ip 192.168.1.50
  selectmini config set start_print true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		key := preferenceKey(args[0])
		registry.SetValue(key, args[1])

		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		path, _ := registry.Path()
		details := map[string]string{
			key:    fmt.Sprintf("%q", args[1]),
			"File": path,
		}
		if key == preferenceKey(outputdevice.KeyStartPrint) {
			settings := outputdevice.LoadSettings(registry.Group(outputdevice.PreferenceGroup))
			details["Start after upload"] = strconv.FormatBool(settings.StartAfterUpload)
		}
		ui.NewConsole(os.Stdout).PrintSuccess("Preference saved", details)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		registry, err := config.CreateDefaultConfig(path)
		if err != nil {
			return err
		}
		ui.NewConsole(os.Stdout).PrintSuccess("Configuration created", map[string]string{
			"File":        path,
			"Preferences": strings.Join(registry.Keys(), ", "),
		})
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
}

// preferenceKey puts bare names in the upload device's group
func preferenceKey(key string) string {
	if strings.Contains(key, "/") {
		return key
	}
	return outputdevice.PreferenceGroup + "/" + key
}
