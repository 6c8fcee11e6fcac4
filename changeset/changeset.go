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
// Package changeset computes the files that differ between two git refs,
// plus uncommitted and untracked work tree changes.
package changeset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"

	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/outcome"
	"bennypowers.dev/touched/repository"
)

var errNoMergeBase = errors.New("refs have no common ancestor")

// Options selects what goes into a change set.
type Options struct {
	FetchBase          bool
	FetchReference     bool
	CompareToMergeBase bool
	Uncommitted        bool
	Untracked          bool
	// DisableBranchComparison skips the ref diff entirely, leaving only
	// work tree changes.
	DisableBranchComparison bool
	// Include, when non-empty, keeps only paths matching one of these
	// doublestar patterns. Exclude drops matching paths. Both match the
	// slash-separated path relative to the work tree.
	Include []string
	Exclude []string
}

// AuthFunc returns credentials for an SSH fetch as the given user.
type AuthFunc func(user string) (transport.AuthMethod, error)

// Resolver computes change sets.
type Resolver struct {
	Logger *zap.Logger
	// Auth is consulted for ssh remotes only. Optional.
	Auth AuthFunc
}

// RefError reports a ref that could not be resolved.
type RefError struct {
	Ref      string
	NotFound bool
	Err      error
}

func (e *RefError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("ref %q not found in repository", e.Ref)
	}
	return fmt.Sprintf("resolving ref %q: %v", e.Ref, e.Err)
}

func (e *RefError) Unwrap() error {
	return e.Err
}

// TransportError reports a failed fetch.
type TransportError struct {
	Remote string
	Ref    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s from remote %s: %v", e.Ref, e.Remote, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BranchRef is a ref name resolved to its commit.
type BranchRef struct {
	Name   string
	Commit *object.Commit
}

// Tree returns the file tree snapshot of the ref.
func (b BranchRef) Tree() (*object.Tree, error) {
	tree, err := b.Commit.Tree()
	if err != nil {
		return nil, &RefError{Ref: b.Name, Err: err}
	}
	return tree, nil
}

// Resolve resolves name to a commit.
func Resolve(repo *git.Repository, name string) (BranchRef, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return BranchRef{}, &RefError{Ref: name, NotFound: isNotFound(err), Err: err}
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return BranchRef{}, &RefError{Ref: name, NotFound: isNotFound(err), Err: err}
	}
	return BranchRef{Name: name, Commit: commit}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound)
}

// ValidateRefName rejects names that cannot be a single ref or commit id.
func ValidateRefName(name string) error {
	switch {
	case name == "":
		return outcome.Configf("ref", "ref name must not be empty")
	case strings.HasPrefix(name, "-"):
		return outcome.Configf(name, "ref name must not start with '-'")
	case strings.Contains(name, ".."):
		return outcome.Configf(name, "ref name must not contain '..'")
	case strings.IndexFunc(name, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0:
		return outcome.Configf(name, "ref name must not contain whitespace or control characters")
	}
	return nil
}

// Compute returns every path that differs between base and reference,
// unioned with work tree changes as selected by opts.
//
// In merge-base mode the diff runs from merge-base(base, reference) to
// base, so only changes made on base since it diverged are reported.
// Otherwise it runs from reference to base.
func (r *Resolver) Compute(ctx context.Context, h *repository.Handle, base, reference string, opts Options) (Paths, error) {
	logger := logging.OrNop(r.Logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter, err := newPathFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}
	toPath := func(rel string) (string, bool) {
		if rel == "" || !filter.keep(rel) {
			return "", false
		}
		return filepath.Join(h.WorkTree(), filepath.FromSlash(rel)), true
	}

	result := make(Paths)
	if !opts.DisableBranchComparison {
		if err := ValidateRefName(base); err != nil {
			return nil, err
		}
		if err := ValidateRefName(reference); err != nil {
			return nil, err
		}
		if opts.FetchBase {
			if err := r.fetch(ctx, h, base); err != nil {
				return nil, err
			}
		}
		if opts.FetchReference && !(opts.FetchBase && reference == base) {
			if err := r.fetch(ctx, h, reference); err != nil {
				return nil, err
			}
		}

		changes, err := diffRefs(ctx, h, base, reference, opts.CompareToMergeBase)
		if err != nil {
			return nil, err
		}
		for _, change := range changes {
			for _, name := range []string{change.From.Name, change.To.Name} {
				if p, ok := toPath(name); ok {
					result.Add(p)
				}
			}
		}
		logger.Debug("compared refs",
			zap.String("base", base),
			zap.String("reference", reference),
			zap.Bool("mergeBase", opts.CompareToMergeBase),
			zap.Int("changes", len(changes)))
	}

	if opts.Uncommitted || opts.Untracked {
		names, err := worktreeChanges(ctx, h, opts.Uncommitted, opts.Untracked)
		if err != nil {
			return nil, err
		}
		local := make(Paths, len(names))
		for _, name := range names {
			if p, ok := toPath(name); ok {
				local.Add(p)
			}
		}
		logger.Debug("read work tree status", zap.Int("changes", local.Len()))
		result.Union(local)
	}

	logger.Debug("computed change set", zap.Int("paths", result.Len()))
	return result, nil
}

func diffRefs(ctx context.Context, h *repository.Handle, base, reference string, mergeBase bool) (object.Changes, error) {
	var changes object.Changes
	err := h.Read(func(repo *git.Repository) error {
		to, err := Resolve(repo, base)
		if err != nil {
			return err
		}
		from, err := Resolve(repo, reference)
		if err != nil {
			return err
		}
		if mergeBase {
			bases, err := to.Commit.MergeBase(from.Commit)
			if err != nil {
				return &RefError{Ref: base + "..." + reference, Err: err}
			}
			if len(bases) == 0 {
				return &RefError{Ref: base + "..." + reference, Err: errNoMergeBase}
			}
			from = BranchRef{Name: "merge-base(" + base + ", " + reference + ")", Commit: bases[0]}
		}

		fromTree, err := from.Tree()
		if err != nil {
			return err
		}
		toTree, err := to.Tree()
		if err != nil {
			return err
		}
		changes, err = fromTree.DiffContext(ctx, toTree)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("diffing %s against %s: %w", from.Name, to.Name, err)
		}
		return nil
	})
	return changes, err
}

// worktreeChanges lists work tree paths, relative and slash-separated,
// that are uncommitted or untracked as requested.
//
// A file removed from the index but still on disk shows as untracked in
// status; it is reported as uncommitted when HEAD still tracks it.
func worktreeChanges(ctx context.Context, h *repository.Handle, uncommitted, untracked bool) ([]string, error) {
	var names []string
	err := h.Read(func(repo *git.Repository) error {
		wt, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("reading work tree: %w", err)
		}
		status, err := wt.Status()
		if err != nil {
			return fmt.Errorf("reading work tree status: %w", err)
		}
		head, err := headTree(repo)
		if err != nil {
			return err
		}
		for name, st := range status {
			if err := ctx.Err(); err != nil {
				return err
			}
			isUntracked := st.Worktree == git.Untracked || st.Staging == git.Untracked
			switch {
			case isUntracked && untracked:
				names = append(names, name)
			case isUntracked && uncommitted && inTree(head, name):
				names = append(names, name)
			case !isUntracked && uncommitted && (st.Staging != git.Unmodified || st.Worktree != git.Unmodified):
				names = append(names, name)
			}
		}
		return nil
	})
	return names, err
}

// headTree returns the tree HEAD points at, or nil before the first commit.
func headTree(repo *git.Repository) (*object.Tree, error) {
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading HEAD: %w", err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, &RefError{Ref: "HEAD", Err: err}
	}
	return BranchRef{Name: "HEAD", Commit: commit}.Tree()
}

func inTree(tree *object.Tree, name string) bool {
	if tree == nil {
		return false
	}
	_, err := tree.FindEntry(name)
	return err == nil
}

type pathFilter struct {
	include []string
	exclude []string
}

func newPathFilter(include, exclude []string) (pathFilter, error) {
	for _, pattern := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return pathFilter{}, outcome.Configf(pattern, "invalid path pattern")
		}
	}
	return pathFilter{include: include, exclude: exclude}, nil
}

func (f pathFilter) keep(rel string) bool {
	if len(f.include) > 0 && !matchAny(f.include, rel) {
		return false
	}
	return !matchAny(f.exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
