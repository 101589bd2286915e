package outputdevice

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/gcode"
	"github.com/muurk/selectmini/internal/logging"
	"github.com/muurk/selectmini/internal/printer"
)

// Metadata describes the plugin to its host
type Metadata struct {
	Name        string
	Description string
	Author      string
	Version     string
	API         int
}

// PluginMetadata is reported by Plugin.Metadata
var PluginMetadata = Metadata{
	Name:        "MP Select Mini Output Device",
	Description: "Enables uploading to the MonoPrice Select Mini 3D's http server.",
	Author:      "Ryan Tyler",
	Version:     "1.0",
	API:         3,
}

// Device is what a Manager tracks
type Device interface {
	ID() string
	Name() string
}

// Manager holds the host's output devices
type Manager interface {
	AddOutputDevice(d Device)
	RemoveOutputDevice(id string)
}

// PreferenceRegistrar declares a preference and its default. Existing
// values must be left untouched.
type PreferenceRegistrar interface {
	AddPreference(key, defaultValue string)
}

// Plugin adds the MP Select Mini output device to a host
type Plugin struct {
	Settings SettingsStore
	Writer   gcode.Writer
	Notifier Notifier
	Client   *printer.Client

	device *OutputDevice
}

// NewPlugin registers the device preferences with prefs (when non-nil)
// and returns a plugin ready to Start
func NewPlugin(prefs PreferenceRegistrar, settings SettingsStore, writer gcode.Writer, notifier Notifier) *Plugin {
	if prefs != nil {
		prefs.AddPreference(PreferenceGroup+"/"+KeyIP, "")
		prefs.AddPreference(PreferenceGroup+"/"+KeyStartPrint, "")
	}
	return &Plugin{Settings: settings, Writer: writer, Notifier: notifier}
}

// Metadata returns the plugin description
func (p *Plugin) Metadata() Metadata {
	return PluginMetadata
}

// Start adds the output device to m
func (p *Plugin) Start(m Manager) *OutputDevice {
	p.device = New(p.Settings, p.Writer, p.Notifier, p.Client)
	m.AddOutputDevice(p.device)
	logging.Debug("Output device added", zap.String("id", DeviceID))
	return p.device
}

// Stop removes the output device from m
func (p *Plugin) Stop(m Manager) {
	m.RemoveOutputDevice(DeviceID)
	p.device = nil
	logging.Debug("Output device removed", zap.String("id", DeviceID))
}

// DeviceManager is an in-memory Manager
type DeviceManager struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// NewDeviceManager creates an empty manager
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{devices: make(map[string]Device)}
}

// AddOutputDevice adds d, replacing any device with the same ID
func (m *DeviceManager) AddOutputDevice(d Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID()] = d
}

// RemoveOutputDevice removes the device with id, if present
func (m *DeviceManager) RemoveOutputDevice(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.devices, id)
}

// Get returns the device with id
func (m *DeviceManager) Get(id string) (Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	return d, ok
}

// OutputDevice returns the device with id as an *OutputDevice
func (m *DeviceManager) OutputDevice(id string) (*OutputDevice, error) {
	d, ok := m.Get(id)
	if !ok {
		return nil, fmt.Errorf("output device %q not registered", id)
	}
	od, ok := d.(*OutputDevice)
	if !ok {
		return nil, fmt.Errorf("output device %q is a %T", id, d)
	}
	return od, nil
}

// IDs returns the registered device IDs, sorted
func (m *DeviceManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
