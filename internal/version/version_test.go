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
package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestGetFromBuildInfo(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.25.5",
		Main:      debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	info := Get()
	assert.Equal(t, "v1.4.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, "2026-01-01T00:00:00Z", info.BuildTime)
	assert.True(t, info.Dirty)
	assert.Equal(t, "v1.4.0 (commit: 0123456, dirty)", info.String())
}

func TestGetPrefersLdflags(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})
	oldVersion, oldCommit := Version, GitCommit
	Version, GitCommit = "v2.0.0", "abc1234"
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	info := Get()
	assert.Equal(t, "v2.0.0", info.Version)
	assert.Equal(t, "abc1234", info.GitCommit)
	assert.Equal(t, "v2.0.0", GetVersion())
}

func TestGetWithoutBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil)
	info := Get()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "dev", info.String())
}
