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
// Package repository locates and opens the git repository enclosing a
// directory.
package repository

import (
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/touched/fs"
)

const (
	dotGit       = ".git"
	gitdirPrefix = "gitdir:"
	worktreesDir = "worktrees"
)

// Location describes where repository metadata was found.
type Location struct {
	// WorkTree is the directory containing the .git entry.
	WorkTree string
	// GitDir is the metadata directory, after following a gitdir file.
	GitDir string
	// Linked is true when .git is a file pointing elsewhere.
	Linked bool
}

// NotFoundError is returned when no .git entry exists in start or any of
// its parents.
type NotFoundError struct {
	Start string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no git repository found in %s or any parent directory", e.Start)
}

// UnsupportedLayoutError is returned for linked worktrees, whose metadata
// lives under the primary repository's worktrees directory.
type UnsupportedLayoutError struct {
	WorkTree string
	GitDir   string
}

func (e *UnsupportedLayoutError) Error() string {
	return fmt.Sprintf("%s is a linked worktree (metadata in %s), which is not supported", e.WorkTree, e.GitDir)
}

// Locate ascends from start through its parents until it finds a .git
// entry, the way FindWorkspaceRoot walks up to a workspace marker.
func Locate(fsys fs.FileSystem, start string) (Location, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return Location{}, fmt.Errorf("resolving %s: %w", start, err)
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, dotGit)
		if info, err := fsys.Stat(candidate); err == nil {
			loc := Location{WorkTree: dir, GitDir: candidate}
			if !info.IsDir() {
				gitDir, err := readGitFile(fsys, candidate)
				if err != nil {
					return Location{}, err
				}
				loc.GitDir = gitDir
				loc.Linked = true
			}
			if isLinkedWorktree(fsys, loc.GitDir) {
				return Location{}, &UnsupportedLayoutError{WorkTree: dir, GitDir: loc.GitDir}
			}
			return loc, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Location{}, &NotFoundError{Start: abs}
		}
		dir = parent
	}
}

// readGitFile parses a "gitdir: <path>" file. Relative targets are resolved
// against the directory holding the file.
func readGitFile(fsys fs.FileSystem, path string) (string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, gitdirPrefix) {
		return "", fmt.Errorf("%s: malformed gitdir file", path)
	}
	target := strings.TrimSpace(strings.TrimPrefix(line, gitdirPrefix))
	if target == "" {
		return "", fmt.Errorf("%s: empty gitdir", path)
	}
	target = filepath.FromSlash(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), nil
}

// isLinkedWorktree reports whether gitDir is <primary>/worktrees/<name>
// where <primary> is itself a git metadata directory.
func isLinkedWorktree(fsys fs.FileSystem, gitDir string) bool {
	parent := filepath.Dir(gitDir)
	if filepath.Base(parent) != worktreesDir {
		return false
	}
	primary := filepath.Dir(parent)
	if name := filepath.Base(primary); name == dotGit || strings.HasSuffix(name, dotGit) {
		return true
	}
	return fsys.Exists(filepath.Join(primary, "HEAD"))
}
