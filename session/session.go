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
// Package session ties one run together: it opens the repository once,
// builds the module index once, and answers change and impact queries
// against them.
package session

import (
	"context"
	"sync"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"

	"bennypowers.dev/touched/changeset"
	"bennypowers.dev/touched/config"
	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/impact"
	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/module"
	"bennypowers.dev/touched/repository"
	"bennypowers.dev/touched/sshauth"
)

// Session holds the state shared by every query of one run. It is safe
// for concurrent use.
type Session struct {
	cfg    config.Config
	fs     fs.FileSystem
	logger *zap.Logger

	// DialAgent overrides how the SSH agent is reached. Set before the
	// first fetch.
	DialAgent sshauth.AgentDialer

	openOnce sync.Once
	handle   *repository.Handle
	openErr  error

	indexOnce sync.Once
	index     *module.Index
	indexErr  error

	authOnce sync.Once
	keyring  *sshauth.Keyring
	authErr  error

	closeOnce sync.Once
	closeErr  error
}

// New returns a session for cfg. Nothing is opened until first use.
func New(cfg config.Config, fsys fs.FileSystem, logger *zap.Logger) *Session {
	if fsys == nil {
		fsys = fs.NewOSFileSystem()
	}
	return &Session{cfg: cfg, fs: fsys, logger: logging.OrNop(logger)}
}

// Config returns the configuration the session was built with.
func (s *Session) Config() config.Config {
	return s.cfg
}

// Repository opens the repository enclosing the configured directory. The
// first call decides the outcome; every later call returns the same handle
// or error.
func (s *Session) Repository() (*repository.Handle, error) {
	s.openOnce.Do(func() {
		s.handle, s.openErr = repository.Open(s.fs, s.cfg.Dir, repository.OpenOptions{
			FailOnMissingGitDir: s.cfg.FailOnMissingGitDir,
			Logger:              s.logger,
		})
	})
	return s.handle, s.openErr
}

// ChangedPaths computes the change set selected by the configuration.
func (s *Session) ChangedPaths(ctx context.Context) (changeset.Paths, error) {
	h, err := s.Repository()
	if err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	r := &changeset.Resolver{Logger: s.logger, Auth: s.auth}
	return r.Compute(ctx, h, s.cfg.BaseBranch, s.cfg.ReferenceBranch, changeset.Options{
		FetchBase:               s.cfg.FetchBaseBranch,
		FetchReference:          s.cfg.FetchReferenceBranch,
		CompareToMergeBase:      s.cfg.CompareToMergeBase,
		Uncommitted:             s.cfg.Uncommitted,
		Untracked:               s.cfg.Untracked,
		DisableBranchComparison: s.cfg.DisableBranchComparison,
		Include:                 s.cfg.Include,
		Exclude:                 s.cfg.Exclude,
	})
}

// Modules returns the module index for the configured directory, building
// it on first use.
func (s *Session) Modules(ctx context.Context) (*module.Index, error) {
	s.indexOnce.Do(func() {
		mods, err := module.Discover(ctx, s.fs, s.cfg.Dir, module.DiscoverOptions{
			Descriptors: s.cfg.Descriptors,
			SkipDirs:    s.cfg.SkipDirs,
			Logger:      s.logger,
		})
		if err != nil {
			s.indexErr = err
			return
		}
		s.index = module.NewIndex(mods)
	})
	return s.index, s.indexErr
}

// Impacted returns the modules touched by the configured change set.
func (s *Session) Impacted(ctx context.Context) (impact.Result, error) {
	paths, err := s.ChangedPaths(ctx)
	if err != nil {
		return impact.Result{}, err
	}
	idx, err := s.Modules(ctx)
	if err != nil {
		return impact.Result{}, err
	}
	return impact.Resolve(paths.Sorted(), idx, s.logger), nil
}

// auth loads SSH identities on the first ssh fetch.
func (s *Session) auth(user string) (transport.AuthMethod, error) {
	s.authOnce.Do(func() {
		p := &sshauth.Provider{
			KeyPath:   s.cfg.SSHPrivateKey,
			DialAgent: s.DialAgent,
			FS:        s.fs,
			Logger:    s.logger,
		}
		s.keyring, s.authErr = p.Load()
	})
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.keyring.AuthMethod(user), nil
}

// Close releases the repository and SSH agent connection. A session that
// never opened its repository will not open it afterwards.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.openOnce.Do(func() { s.openErr = repository.ErrClosed })
		s.authOnce.Do(func() { s.authErr = repository.ErrClosed })
		if s.handle != nil {
			s.closeErr = s.handle.Close()
		}
		if s.keyring != nil {
			if err := s.keyring.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}
