package outputdevice

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/selectmini/internal/logging"
)

// Preference keys, relative to PreferenceGroup
const (
	PreferenceGroup = "MPSelectMini"
	KeyIP           = "ip"
	KeyStartPrint   = "start_print"
)

// SettingsStore reads string preferences from the MPSelectMini group.
// Unset keys read as "".
type SettingsStore interface {
	GetString(key string) string
}

// Settings are the preferences that apply to one write request
type Settings struct {
	IP               string
	StartAfterUpload bool
}

// LoadSettings resolves the device preferences. An unset start_print means
// false. Values strconv.ParseBool rejects ("yes", "on") count as set, so
// they mean true.
func LoadSettings(store SettingsStore) Settings {
	var s Settings
	if store == nil {
		return s
	}

	s.IP = strings.TrimSpace(store.GetString(KeyIP))
	s.StartAfterUpload = parseStartPrint(store.GetString(KeyStartPrint))

	return s
}

// parseStartPrint reads a start_print value
func parseStartPrint(value string) bool {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return false
	}

	start, err := strconv.ParseBool(raw)
	if err != nil {
		logging.Warn("Non-boolean start_print value, treating as true",
			zap.String("key", PreferenceGroup+"/"+KeyStartPrint),
			zap.String("value", raw),
		)
		return true
	}
	return start
}

// MapSettings is a SettingsStore backed by a map
type MapSettings map[string]string

// GetString returns the value for key
func (m MapSettings) GetString(key string) string {
	return m[key]
}
