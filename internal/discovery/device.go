package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Printer represents a discovered printer on the network
type Printer struct {
	// Instance is the mDNS service instance name (e.g., "MPSelectMini")
	Instance string

	// Hostname is the mDNS hostname (e.g., "selectmini.local.")
	Hostname string

	// IP is the printer address, IPv4 preferred
	IP string

	// Port is the HTTP upload port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the printer was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the printer
func (p *Printer) String() string {
	return fmt.Sprintf("%s (%s) at %s", p.Instance, p.Hostname, p.Address())
}

// Address returns host:port for the upload server
func (p *Printer) Address() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (p *Printer) GetMetadata(key string) string {
	if p.Metadata == nil {
		return ""
	}
	return p.Metadata[key]
}
