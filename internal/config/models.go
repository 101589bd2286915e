package config

import (
	"sort"
	"strings"
	"time"
)

// DefaultGroup holds preferences registered without a "group/" prefix
const DefaultGroup = "general"

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                          `yaml:"version"`
	Preferences map[string]map[string]string `yaml:"preferences,omitempty"` // group -> name -> value
	Printers    map[string]*Printer          `yaml:"printers,omitempty"`    // Keyed by printer IP

	path string // File the registry was loaded from (empty = default path)
}

// Printer represents what selectmini remembers about a printer it has talked to.
type Printer struct {
	Nickname   string    `yaml:"nickname,omitempty"`    // User-friendly name
	LastSeen   time.Time `yaml:"last_seen,omitempty"`   // Last discovery/connection time
	LastUpload time.Time `yaml:"last_upload,omitempty"` // Last upload attempt
	LastFile   string    `yaml:"last_file,omitempty"`   // File sent in the last upload
	LastResult string    `yaml:"last_result,omitempty"` // "ok" or the short error message
	Uploads    int       `yaml:"uploads"`               // Successful uploads
}

// Group is a view of one preference namespace. It satisfies the
// GetString(key) settings-store contract used by the output device.
type Group struct {
	registry *Registry
	name     string
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Preferences: make(map[string]map[string]string),
		Printers:    make(map[string]*Printer),
	}
}

// splitKey splits "group/name" into its parts
func splitKey(key string) (string, string) {
	group, name, ok := strings.Cut(key, "/")
	if !ok {
		return DefaultGroup, key
	}
	return group, name
}

// AddPreference registers a preference with a default value.
// An existing value is left untouched.
func (r *Registry) AddPreference(key, defaultValue string) {
	group, name := splitKey(key)
	if r.Preferences == nil {
		r.Preferences = make(map[string]map[string]string)
	}
	if r.Preferences[group] == nil {
		r.Preferences[group] = make(map[string]string)
	}
	if _, exists := r.Preferences[group][name]; !exists {
		r.Preferences[group][name] = defaultValue
	}
}

// GetValue returns the value stored under key, or "" when unset.
func (r *Registry) GetValue(key string) string {
	group, name := splitKey(key)
	return r.Preferences[group][name]
}

// SetValue stores a value under key, creating the group if needed.
func (r *Registry) SetValue(key, value string) {
	group, name := splitKey(key)
	if r.Preferences == nil {
		r.Preferences = make(map[string]map[string]string)
	}
	if r.Preferences[group] == nil {
		r.Preferences[group] = make(map[string]string)
	}
	r.Preferences[group][name] = value
}

// HasPreference reports whether key has been registered or set.
func (r *Registry) HasPreference(key string) bool {
	group, name := splitKey(key)
	_, ok := r.Preferences[group][name]
	return ok
}

// Keys returns every "group/name" key in sorted order.
func (r *Registry) Keys() []string {
	var keys []string
	for group, values := range r.Preferences {
		for name := range values {
			keys = append(keys, group+"/"+name)
		}
	}
	sort.Strings(keys)
	return keys
}

// Group returns a view of the named preference group.
func (r *Registry) Group(name string) *Group {
	return &Group{registry: r, name: name}
}

// GetString returns the group's value for key, or "" when unset.
func (g *Group) GetString(key string) string {
	return g.registry.GetValue(g.name + "/" + key)
}

// Name returns the group name.
func (g *Group) Name() string {
	return g.name
}

// GetPrinter retrieves printer history by IP.
// Returns nil if the printer is unknown.
func (r *Registry) GetPrinter(ip string) *Printer {
	return r.Printers[ip]
}

// EnsurePrinter ensures a printer entry exists and returns it.
func (r *Registry) EnsurePrinter(ip string) *Printer {
	if r.Printers == nil {
		r.Printers = make(map[string]*Printer)
	}

	if p, exists := r.Printers[ip]; exists {
		return p
	}

	p := &Printer{}
	r.Printers[ip] = p
	return p
}

// UpdatePrinterLastSeen updates the last seen timestamp for a printer.
func (r *Registry) UpdatePrinterLastSeen(ip string) {
	r.EnsurePrinter(ip).LastSeen = time.Now()
}

// SetPrinterNickname sets a user-friendly nickname for a printer.
func (r *Registry) SetPrinterNickname(ip, nickname string) {
	r.EnsurePrinter(ip).Nickname = nickname
}

// RecordUpload stores the outcome of an upload attempt.
// result is "ok" for success, otherwise a short error message.
func (r *Registry) RecordUpload(ip, file, result string) {
	p := r.EnsurePrinter(ip)
	now := time.Now()
	p.LastUpload = now
	p.LastSeen = now
	p.LastFile = file
	p.LastResult = result
	if result == "ok" {
		p.Uploads++
	}
}
