package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "selectmini") {
		t.Errorf("GetConfigDir() = %v, should contain 'selectmini'", configDir)
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != filepath.Join(xdg, "selectmini") {
		t.Errorf("GetConfigDir() = %v, want %v", configDir, filepath.Join(xdg, "selectmini"))
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestGetConfigPath_Override(t *testing.T) {
	override := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(ConfigPathEnvVar, override)

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if configPath != override {
		t.Errorf("GetConfigPath() = %v, want %v", configPath, override)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	if reg.Preferences == nil {
		t.Error("NewRegistry().Preferences should not be nil")
	}

	if reg.Printers == nil {
		t.Error("NewRegistry().Printers should not be nil")
	}
}

func TestRegistryAddPreference(t *testing.T) {
	reg := NewRegistry()

	reg.AddPreference("MPSelectMini/ip", "")
	if !reg.HasPreference("MPSelectMini/ip") {
		t.Fatal("preference should be registered")
	}
	if got := reg.GetValue("MPSelectMini/ip"); got != "" {
		t.Errorf("default value = %q, want empty", got)
	}

	reg.SetValue("MPSelectMini/ip", "192.168.1.50")
	reg.AddPreference("MPSelectMini/ip", "")

	if got := reg.GetValue("MPSelectMini/ip"); got != "192.168.1.50" {
		t.Errorf("AddPreference overwrote existing value, got %q", got)
	}
}

func TestRegistryGetValue_Unset(t *testing.T) {
	reg := NewRegistry()

	if got := reg.GetValue("MPSelectMini/start_print"); got != "" {
		t.Errorf("GetValue() on unset key = %q, want empty", got)
	}
	if reg.HasPreference("MPSelectMini/start_print") {
		t.Error("HasPreference() should be false for unset key")
	}
}

func TestRegistryKeyWithoutGroup(t *testing.T) {
	reg := NewRegistry()
	reg.SetValue("theme", "dark")

	if got := reg.GetValue(DefaultGroup + "/theme"); got != "dark" {
		t.Errorf("ungrouped key should land in %q, got %q", DefaultGroup, got)
	}
}

func TestRegistryGroup(t *testing.T) {
	reg := NewRegistry()
	reg.SetValue("MPSelectMini/ip", "10.0.0.7")
	reg.SetValue("MPSelectMini/start_print", "true")
	reg.SetValue("Other/ip", "10.0.0.8")

	group := reg.Group("MPSelectMini")
	if group.Name() != "MPSelectMini" {
		t.Errorf("Name() = %q", group.Name())
	}
	if got := group.GetString("ip"); got != "10.0.0.7" {
		t.Errorf("GetString(ip) = %q, want 10.0.0.7", got)
	}
	if got := group.GetString("start_print"); got != "true" {
		t.Errorf("GetString(start_print) = %q, want true", got)
	}
	if got := group.GetString("missing"); got != "" {
		t.Errorf("GetString(missing) = %q, want empty", got)
	}
}

func TestRegistryKeys(t *testing.T) {
	reg := NewRegistry()
	reg.SetValue("b/two", "2")
	reg.SetValue("a/one", "1")
	reg.SetValue("b/one", "1")

	got := strings.Join(reg.Keys(), ",")
	if got != "a/one,b/one,b/two" {
		t.Errorf("Keys() = %v", got)
	}
}

func TestRegistryEnsurePrinter(t *testing.T) {
	reg := NewRegistry()

	p1 := reg.EnsurePrinter("192.168.1.50")
	if p1 == nil {
		t.Fatal("EnsurePrinter() returned nil")
	}

	if p2 := reg.EnsurePrinter("192.168.1.50"); p1 != p2 {
		t.Error("EnsurePrinter() should return same instance for same IP")
	}

	if p3 := reg.EnsurePrinter("192.168.1.51"); p1 == p3 {
		t.Error("EnsurePrinter() should create new instance for different IP")
	}
}

func TestRegistryRecordUpload(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.RecordUpload("192.168.1.50", "benchy.gcode", "ok")
	reg.RecordUpload("192.168.1.50", "cube.gcode", "Upload Failed")
	after := time.Now()

	p := reg.GetPrinter("192.168.1.50")
	if p == nil {
		t.Fatal("printer should exist after RecordUpload()")
	}

	if p.Uploads != 1 {
		t.Errorf("Uploads = %d, want 1 (failures are not counted)", p.Uploads)
	}
	if p.LastFile != "cube.gcode" {
		t.Errorf("LastFile = %q, want cube.gcode", p.LastFile)
	}
	if p.LastResult != "Upload Failed" {
		t.Errorf("LastResult = %q, want Upload Failed", p.LastResult)
	}
	if p.LastUpload.Before(before) || p.LastUpload.After(after) {
		t.Errorf("LastUpload = %v, should be between %v and %v", p.LastUpload, before, after)
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.AddPreference("MPSelectMini/ip", "")
	reg.SetValue("MPSelectMini/start_print", "true")
	reg.SetPrinterNickname("192.168.1.50", "Garage printer")

	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should be renamed away")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	if !loaded.HasPreference("MPSelectMini/ip") {
		t.Error("registered empty preference should survive a round trip")
	}
	if got := loaded.GetValue("MPSelectMini/start_print"); got != "true" {
		t.Errorf("start_print = %q, want true", got)
	}
	if p := loaded.GetPrinter("192.168.1.50"); p == nil || p.Nickname != "Garage printer" {
		t.Errorf("printer = %+v, want nickname Garage printer", p)
	}

	if got, _ := loaded.Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}

func TestLoadRegistryFrom_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Version != 1 {
		t.Errorf("Version = %d, want 1", reg.Version)
	}
	if got, _ := reg.Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}

func TestLoadRegistryFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "version: [1\n", "failed to parse"},
		{"wrong version", "version: 2\n", "unsupported config version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write fixture: %v", err)
			}

			_, err := LoadRegistryFrom(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadRegistryFrom() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRegistryFrom_HandWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
preferences:
  MPSelectMini:
    ip: 192.168.1.77
    start_print: "yes"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	group := reg.Group("MPSelectMini")
	if got := group.GetString("ip"); got != "192.168.1.77" {
		t.Errorf("ip = %q", got)
	}
	if got := group.GetString("start_print"); got != "yes" {
		t.Errorf("start_print = %q", got)
	}
	if reg.Printers == nil {
		t.Error("Printers should be initialized")
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	reg, err := CreateDefaultConfig(path)
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}

	for _, key := range []string{"MPSelectMini/ip", "MPSelectMini/start_print"} {
		if !reg.HasPreference(key) {
			t.Errorf("default config should register %s", key)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# selectmini configuration file") {
		t.Error("config file should start with the header comment")
	}
}

func TestReloadRegistryAndSaveGlobal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(ConfigPathEnvVar, path)

	reg, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	reg.SetValue("MPSelectMini/ip", "10.0.0.9")

	if err := SaveGlobal(); err != nil {
		t.Fatalf("SaveGlobal() error = %v", err)
	}

	reloaded, err := ReloadRegistry()
	if err != nil {
		t.Fatalf("ReloadRegistry() error = %v", err)
	}
	if reloaded == reg {
		t.Error("ReloadRegistry() should read a fresh instance")
	}
	if got := reloaded.GetValue("MPSelectMini/ip"); got != "10.0.0.9" {
		t.Errorf("ip = %q, want 10.0.0.9", got)
	}

	// Leave no global pointing at the temp dir
	t.Cleanup(func() { globalRegistryOnce = sync.Once{} })
}

// Benchmark tests

func BenchmarkGetValue(b *testing.B) {
	reg := NewRegistry()
	reg.SetValue("MPSelectMini/ip", "192.168.1.50")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reg.GetValue("MPSelectMini/ip")
	}
}
