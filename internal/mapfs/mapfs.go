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
// Package mapfs provides an in-memory filesystem for tests.
package mapfs

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// MapFileSystem implements fs.FileSystem over an fstest.MapFS. Absolute
// paths are stored without their leading slash; directories are implied by
// the files beneath them unless added explicitly.
type MapFileSystem struct {
	mu      sync.RWMutex
	mapFS   fstest.MapFS
	modTime time.Time
}

// New creates an empty in-memory filesystem.
func New() *MapFileSystem {
	return &MapFileSystem{
		mapFS:   make(fstest.MapFS),
		modTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddFile adds a file.
func (mfs *MapFileSystem) AddFile(name string, content string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.mapFS[cleanPath(name)] = &fstest.MapFile{
		Data:    []byte(content),
		Mode:    0o644,
		ModTime: mfs.modTime,
	}
}

// AddDir adds an empty directory.
func (mfs *MapFileSystem) AddDir(name string) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.mapFS[cleanPath(name)] = &fstest.MapFile{
		Mode:    fs.ModeDir | 0o755,
		ModTime: mfs.modTime,
	}
}

// WriteFile implements fs.FileSystem.
func (mfs *MapFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.mapFS[cleanPath(name)] = &fstest.MapFile{
		Data:    append([]byte(nil), data...),
		Mode:    perm,
		ModTime: mfs.modTime,
	}
	return nil
}

// ReadFile implements fs.FileSystem.
func (mfs *MapFileSystem) ReadFile(name string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return fs.ReadFile(mfs.mapFS, cleanPath(name))
}

// ReadDir implements fs.FileSystem.
func (mfs *MapFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return fs.ReadDir(mfs.mapFS, cleanPath(name))
}

// Stat implements fs.FileSystem.
func (mfs *MapFileSystem) Stat(name string) (fs.FileInfo, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return fs.Stat(mfs.mapFS, cleanPath(name))
}

// Exists implements fs.FileSystem.
func (mfs *MapFileSystem) Exists(name string) bool {
	_, err := mfs.Stat(name)
	return err == nil
}

// Sub implements fs.FileSystem. The returned fs.FS is a snapshot; later
// writes are not visible through it.
func (mfs *MapFileSystem) Sub(dir string) (fs.FS, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	prefix := cleanPath(dir)
	snapshot := make(fstest.MapFS, len(mfs.mapFS))
	for name, file := range mfs.mapFS {
		snapshot[name] = file
	}
	if prefix == "." {
		return snapshot, nil
	}
	return fs.Sub(snapshot, prefix)
}

// Files returns the absolute paths of all stored files, in no order.
func (mfs *MapFileSystem) Files() []string {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	out := make([]string, 0, len(mfs.mapFS))
	for name, file := range mfs.mapFS {
		if file.Mode.IsDir() {
			continue
		}
		out = append(out, "/"+name)
	}
	return out
}

func cleanPath(p string) string {
	cleaned := path.Clean(filepath.ToSlash(p))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "."
	}
	return cleaned
}
