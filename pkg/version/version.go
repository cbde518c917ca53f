// Package version exposes build metadata for the spikefang binary.
package version

import (
	"runtime/debug"
)

// Build metadata, overridden at link time:
//
//	-X github.com/Sumatoshi-tech/spikefang/pkg/version.Version=v1.2.3
//	-X github.com/Sumatoshi-tech/spikefang/pkg/version.Commit=abc1234
//	-X github.com/Sumatoshi-tech/spikefang/pkg/version.Date=2026-01-02
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion fills any metadata the linker left at its default
// from the module build information embedded in the binary.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == "none" && setting.Value != "" {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == "unknown" && setting.Value != "" {
				Date = setting.Value
			}
		}
	}
}
