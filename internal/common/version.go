package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
)

// Build metadata, set with
// -ldflags "-X github.com/ternarybob/mandi/internal/common.Version=1.2.0"
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// VersionFile sits beside the executable and overrides the compiled version
const VersionFile = ".version"

// BuildInfo is the build metadata reported by /api/version and crash reports
type BuildInfo struct {
	Version   string `json:"version"`
	Build     string `json:"build"`
	GitCommit string `json:"git_commit"`
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", b.Version, b.Build, b.GitCommit)
}

// CurrentBuild returns the build metadata. When ldflags left the commit unset
// the toolchain's vcs.revision stamp is used instead.
func CurrentBuild() BuildInfo {
	info := BuildInfo{Version: Version, Build: Build, GitCommit: GitCommit}
	if info.GitCommit != "unknown" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				info.GitCommit = setting.Value[:min(12, len(setting.Value))]
			}
		}
	}
	return info
}

// LoadVersionFromFile applies the version file next to the executable
func LoadVersionFromFile() string {
	exePath, err := os.Executable()
	if err != nil {
		return Version
	}
	return LoadVersionFrom(filepath.Dir(exePath))
}

// LoadVersionFrom sets Version from the first line of dir/.version. A missing
// or blank file leaves Version unchanged.
func LoadVersionFrom(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, VersionFile))
	if err != nil {
		return Version
	}

	line, _, _ := strings.Cut(string(data), "\n")
	if version := strings.TrimSpace(line); version != "" {
		Version = version
	}
	return Version
}
