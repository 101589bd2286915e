// Package version reports the build of the selectmini binaries.
//
// Release builds stamp the values with ldflags:
//
//	go build -ldflags "-X github.com/muurk/selectmini/internal/version.Version=v0.3.0 \
//	    -X github.com/muurk/selectmini/internal/version.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/muurk/selectmini/internal/version.Date=$(date -u +%Y-%m-%d)" \
//	    ./cmd/selectmini ./cmd/selectmini-emulator
//
// Unstamped builds fall back to the VCS settings Go embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Stamped at build time; see the package comment.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// Info describes one build
type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
}

func init() {
	info := resolve(Info{Version: Version, Commit: Commit, Date: Date}, readSettings())
	Version, Commit, Date = info.Version, info.Commit, info.Date
}

// readSettings returns the VCS build settings, if any
func readSettings() []debug.BuildSetting {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return bi.Settings
}

// resolve fills the fields ldflags left empty from VCS settings, then
// from fallbacks
func resolve(info Info, settings []debug.BuildSetting) Info {
	var revision, vcsTime string
	modified := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}

	if info.Commit == "" && revision != "" {
		info.Commit = revision[:min(7, len(revision))]
		if modified {
			info.Commit += "-dirty"
		}
	}

	if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
		if info.Date == "" {
			info.Date = t.UTC().Format("2006-01-02")
		}
		if info.Version == "" {
			info.Version = "dev-" + t.UTC().Format("20060102")
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

// Get returns the running build
func Get() Info {
	return Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
}

// String formats the build as "v0.3.0 (commit: abc1234, 2026-10-16, go1.24.10)"
func (i Info) String() string {
	s := fmt.Sprintf("%s (commit: %s", i.Version, i.Commit)
	if i.Date != "" {
		s += ", " + i.Date
	}
	if i.GoVersion != "" {
		s += ", " + i.GoVersion
	}
	return s + ")"
}

// Full returns the version string printed by the version commands
func Full() string {
	return Get().String()
}
