// Package outputdevice exposes the printer upload client as a host output
// device.
//
// A host (the selectmini CLI, or any application embedding this package)
// registers the Plugin, which adds one OutputDevice with the ID
// "MPSelectMini". Writing a scene node to that device renders it to G-code,
// uploads it to the address stored under the MPSelectMini/ip preference and,
// when MPSelectMini/start_print is true, starts the print.
//
// The device talks to its host only through three small interfaces:
// SettingsStore for preferences, gcode.Writer for rendering, and Notifier
// for status messages.
package outputdevice
