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
package repository

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/outcome"
)

// ErrClosed is returned by Read and Write after Close.
var ErrClosed = errors.New("repository handle is closed")

// OpenOptions configures Open.
type OpenOptions struct {
	// FailOnMissingGitDir turns a missing repository into a configuration
	// error. Otherwise it becomes a skip.
	FailOnMissingGitDir bool
	Logger              *zap.Logger
}

// Handle is an open repository. Reads may run concurrently; Write (used for
// fetch) excludes every other access. Close waits for in-flight calls.
type Handle struct {
	loc Location

	mu        sync.RWMutex
	repo      *git.Repository
	closed    bool
	closeOnce sync.Once
}

// Open locates the repository enclosing start and opens it.
//
// A missing repository yields an outcome.ConfigError or outcome.SkipError
// according to opts; a linked worktree always yields an outcome.SkipError.
// The typed cause stays reachable with errors.As.
func Open(fsys fs.FileSystem, start string, opts OpenOptions) (*Handle, error) {
	logger := logging.OrNop(opts.Logger)

	loc, err := Locate(fsys, start)
	if err != nil {
		return nil, classify(err, opts)
	}

	repo, err := git.PlainOpenWithOptions(loc.WorkTree, &git.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, classify(&NotFoundError{Start: loc.WorkTree}, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", loc.WorkTree, err)
	}

	logger.Debug("opened repository",
		zap.String("worktree", loc.WorkTree),
		zap.String("gitdir", loc.GitDir))
	return &Handle{loc: loc, repo: repo}, nil
}

func classify(err error, opts OpenOptions) error {
	var layout *UnsupportedLayoutError
	if errors.As(err, &layout) {
		return outcome.Skip("unsupported repository layout", err)
	}
	var missing *NotFoundError
	if errors.As(err, &missing) {
		if opts.FailOnMissingGitDir {
			return &outcome.ConfigError{Msg: "a git repository is required", Err: err}
		}
		return outcome.Skip("no git repository", err)
	}
	return err
}

// WorkTree returns the absolute work tree root.
func (h *Handle) WorkTree() string {
	return h.loc.WorkTree
}

// GitDir returns the absolute metadata directory.
func (h *Handle) GitDir() string {
	return h.loc.GitDir
}

// Read runs fn with shared access to the repository.
func (h *Handle) Read(fn func(*git.Repository) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	return fn(h.repo)
}

// Write runs fn with exclusive access to the repository. Operations that
// update refs or objects, such as fetch, go through Write.
func (h *Handle) Write(fn func(*git.Repository) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	return fn(h.repo)
}

// Close releases the repository storage. Only the first call does
// anything; later calls return nil.
func (h *Handle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true
		if c, ok := h.repo.Storer.(io.Closer); ok {
			err = c.Close()
		}
		h.repo = nil
	})
	return err
}
