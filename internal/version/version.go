/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package version provides version information for the touched CLI.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version information, set at build time via ldflags
	Version   = "dev"     // Version string (e.g., "v0.3.0")
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
	GitDirty  = ""        // "dirty" if working directory has uncommitted changes
)

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Info describes the running binary.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"gitCommit" yaml:"gitCommit"`
	BuildTime string `json:"buildTime" yaml:"buildTime"`
	Dirty     bool   `json:"dirty" yaml:"dirty"`
	GoVersion string `json:"goVersion,omitempty" yaml:"goVersion,omitempty"`
}

// Get returns version information, preferring ldflags values and falling
// back to the module and VCS data embedded by the go tool.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		Dirty:     GitDirty == "dirty",
	}
	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			if GitDirty == "" {
				info.Dirty = s.Value == "true"
			}
		}
	}
	return info
}

// GetVersion returns the version string for the application
func GetVersion() string {
	return Get().Version
}

// String formats the version with a short commit suffix.
func (i Info) String() string {
	if i.GitCommit == "unknown" || i.GitCommit == "" {
		return i.Version
	}
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	s := fmt.Sprintf("%s (commit: %s", i.Version, commit)
	if i.Dirty {
		s += ", dirty"
	}
	return s + ")"
}
