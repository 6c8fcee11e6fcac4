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
// Package testutil provides testing utilities for touched.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"bennypowers.dev/touched/internal/mapfs"
)

// NewTreeFS returns an in-memory filesystem holding files, keyed by path
// relative to root.
func NewTreeFS(t *testing.T, root string, files map[string]string) *mapfs.MapFileSystem {
	t.Helper()
	mfs := mapfs.New()
	for rel, content := range files {
		mfs.AddFile(filepath.Join(root, filepath.FromSlash(rel)), content)
	}
	return mfs
}

// Repo is a throwaway git repository on disk.
type Repo struct {
	t   *testing.T
	Dir string
	Git *git.Repository
}

// NewRepo initialises an empty repository in a temporary directory.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return &Repo{t: t, Dir: dir, Git: repo}
}

// Path returns the absolute path of a slash-separated relative path.
func (r *Repo) Path(rel string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(rel))
}

// WriteFile writes a file in the work tree, creating parent directories.
func (r *Repo) WriteFile(rel, content string) {
	r.t.Helper()
	path := r.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

// Remove deletes a file from the work tree.
func (r *Repo) Remove(rel string) {
	r.t.Helper()
	if err := os.Remove(r.Path(rel)); err != nil {
		r.t.Fatalf("remove %s: %v", rel, err)
	}
}

// Stage adds a work tree path to the index.
func (r *Repo) Stage(rel string) {
	r.t.Helper()
	wt, err := r.Git.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add(rel); err != nil {
		r.t.Fatalf("stage %s: %v", rel, err)
	}
}

// Unstage drops a path from the index and leaves the work tree file alone,
// like git rm --cached.
func (r *Repo) Unstage(rel string) {
	r.t.Helper()
	idx, err := r.Git.Storer.Index()
	if err != nil {
		r.t.Fatalf("read index: %v", err)
	}
	if _, err := idx.Remove(rel); err != nil {
		r.t.Fatalf("unstage %s: %v", rel, err)
	}
	if err := r.Git.Storer.SetIndex(idx); err != nil {
		r.t.Fatalf("write index: %v", err)
	}
}

// CommitAll stages every change, including deletions, and commits.
func (r *Repo) CommitAll(msg string) plumbing.Hash {
	r.t.Helper()
	wt, err := r.Git.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		r.t.Fatalf("stage all: %v", err)
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.t.Fatalf("commit: %v", err)
	}
	return hash
}

// SetRef points a full reference name at hash.
func (r *Repo) SetRef(name string, hash plumbing.Hash) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), hash)
	if err := r.Git.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("set ref %s: %v", name, err)
	}
}

// AddRemote configures a remote with the given fetch URL.
func (r *Repo) AddRemote(name, url string) {
	r.t.Helper()
	_, err := r.Git.CreateRemote(&gitconfig.RemoteConfig{
		Name:  name,
		URLs:  []string{url},
		Fetch: []gitconfig.RefSpec{gitconfig.RefSpec("+refs/heads/*:refs/remotes/" + name + "/*")},
	})
	if err != nil {
		r.t.Fatalf("add remote %s: %v", name, err)
	}
}

// Head returns the commit HEAD points at.
func (r *Repo) Head() plumbing.Hash {
	r.t.Helper()
	ref, err := r.Git.Head()
	if err != nil {
		r.t.Fatalf("head: %v", err)
	}
	return ref.Hash()
}

// ResetHard moves the current branch and work tree to hash.
func (r *Repo) ResetHard(hash plumbing.Hash) {
	r.t.Helper()
	wt, err := r.Git.Worktree()
	if err != nil {
		r.t.Fatalf("worktree: %v", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset}); err != nil {
		r.t.Fatalf("reset: %v", err)
	}
}
