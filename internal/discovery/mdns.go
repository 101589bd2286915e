package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

const (
	// ServiceType is the mDNS service type printers advertise
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for printer discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the printer's HTTP port
	DefaultPort = 80

	// ModelKey and ModelValue identify a printer through its TXT record
	ModelKey   = "model"
	ModelValue = "MPSelectMini"
)

// namePattern matches instance names and hostnames that identify a printer
var namePattern = regexp.MustCompile(`(?i)(mp[-_ ]?select[-_ ]?mini|select[-_ ]?mini)`)

// Scanner handles mDNS printer discovery
type Scanner struct {
	// Timeout is the maximum time to wait for printer discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForPrinters browses for printers until the timeout or ctx ends.
// Printers are returned in discovery order, one per address.
func (s *Scanner) ScanForPrinters(ctx context.Context) ([]*Printer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	printers := make([]*Printer, 0)
	done := make(chan struct{})

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			p := s.parseServiceEntry(entry)
			if p == nil || seen[p.Address()] {
				continue
			}
			seen[p.Address()] = true
			logging.Debug("Discovered printer", zap.String("printer", p.String()))
			printers = append(printers, p)
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once ctx is done
	select {
	case <-done:
	case <-time.After(time.Second):
		logging.Warn("mDNS resolver did not stop in time")
		return nil, fmt.Errorf("mDNS browse did not finish")
	}

	return printers, nil
}

// FindPrinter returns the first printer found before the timeout
func (s *Scanner) FindPrinter(ctx context.Context) (*Printer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Printer, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if p := s.parseServiceEntry(entry); p != nil {
				select {
				case found <- p:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case p := <-found:
		return p, nil
	case <-ctx.Done():
		select {
		case p := <-found:
			return p, nil
		default:
		}
		return nil, fmt.Errorf("no printer found within %s", s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Printer.
// Returns nil if the entry is not a printer.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Printer {
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	if !isPrinter(entry.Instance, entry.HostName, metadata) {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Printer{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func isPrinter(instance, hostname string, metadata map[string]string) bool {
	if strings.EqualFold(metadata[ModelKey], ModelValue) {
		return true
	}
	return namePattern.MatchString(instance) || namePattern.MatchString(hostname)
}

// ScanForPrinters is a convenience function to scan with a custom timeout
func ScanForPrinters(timeout time.Duration) ([]*Printer, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForPrinters(context.Background())
}

// QuickScan performs a fast scan with a 2-second timeout
func QuickScan(ctx context.Context) ([]*Printer, error) {
	scanner := NewScanner()
	scanner.Timeout = 2 * time.Second
	return scanner.ScanForPrinters(ctx)
}
