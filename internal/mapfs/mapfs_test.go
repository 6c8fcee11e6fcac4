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
package mapfs_test

import (
	"io/fs"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	touchedfs "bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/mapfs"
)

func TestMapFileSystemImplementsFileSystem(t *testing.T) {
	var _ touchedfs.FileSystem = (*mapfs.MapFileSystem)(nil)
}

func TestStatImpliedDirectories(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/repo/a/b/pom.xml", "<project/>")

	info, err := mfs.Stat("/repo/a")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.True(t, mfs.Exists("/repo/a/b/pom.xml"))
	assert.False(t, mfs.Exists("/repo/c"))
}

func TestSubGlob(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/repo/pom.xml", "")
	mfs.AddFile("/repo/child/pom.xml", "")
	mfs.AddFile("/other/pom.xml", "")

	sub, err := mfs.Sub("/repo")
	require.NoError(t, err)

	matches, err := doublestar.Glob(sub, "**/pom.xml")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pom.xml", "child/pom.xml"}, matches)

	data, err := fs.ReadFile(sub, "child/pom.xml")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteThenRead(t *testing.T) {
	mfs := mapfs.New()
	require.NoError(t, mfs.WriteFile("/out/result.json", []byte("{}"), 0o644))

	data, err := mfs.ReadFile("/out/result.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	assert.Equal(t, []string{"/out/result.json"}, mfs.Files())
}
