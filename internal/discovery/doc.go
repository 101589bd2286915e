// Package discovery finds Select Mini printers on the local network over mDNS.
//
// The stock firmware does not advertise itself, but printers running
// community firmware, or sitting behind a bridge that announces them, show
// up as "_http._tcp" services. A service counts as a printer when its
// instance name or hostname mentions MPSelectMini / Select Mini, or its TXT
// record carries model=MPSelectMini. The emulator advertises itself the same
// way.
//
// # Usage Example
//
//	printers, err := discovery.ScanForPrinters(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range printers {
//	    fmt.Println(p)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Printers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
