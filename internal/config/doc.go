// Package config provides the selectmini preference store.
//
// Preferences live in a YAML file and are addressed with namespaced keys of
// the form "group/name", mirroring how slicer plugins register their
// settings. The upload device uses the "MPSelectMini" group:
//
//	preferences:
//	  MPSelectMini:
//	    ip: 192.168.1.50
//	    start_print: "true"
//
// An absent or empty value means "not configured". The file also keeps a
// small per-printer history (last upload, result) keyed by IP address.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/selectmini/config.yaml or $HOME/.config/selectmini/config.yaml
//   - macOS: $HOME/.config/selectmini/config.yaml
//   - Windows: %LOCALAPPDATA%\selectmini\config.yaml
//
// SELECTMINI_CONFIG overrides the full file path.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.AddPreference("MPSelectMini/ip", "")
//	ip := registry.Group("MPSelectMini").GetString("ip")
//
//	registry.SetValue("MPSelectMini/start_print", "true")
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and performed atomically.
package config
