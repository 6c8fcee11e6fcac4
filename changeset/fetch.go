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
package changeset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"go.uber.org/zap"

	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/outcome"
	"bennypowers.dev/touched/repository"
)

const remotesPrefix = "refs/remotes/"

// trackingRef splits a remote-tracking ref into remote and branch. Both
// "refs/remotes/<remote>/<branch>" and "<remote>/<branch>" are accepted
// when <remote> is configured; the longest matching remote name wins.
func trackingRef(repo *git.Repository, name string) (remote, branch string, err error) {
	short := strings.TrimPrefix(name, remotesPrefix)

	remotes, err := repo.Remotes()
	if err != nil {
		return "", "", fmt.Errorf("listing remotes: %w", err)
	}
	for _, r := range remotes {
		rn := r.Config().Name
		if b, ok := strings.CutPrefix(short, rn+"/"); ok && b != "" && len(rn) > len(remote) {
			remote, branch = rn, b
		}
	}
	if remote == "" {
		return "", "", outcome.Configf(name,
			"cannot fetch a ref with no remote: use a remote-tracking ref such as %sorigin/<branch>", remotesPrefix)
	}
	return remote, branch, nil
}

// fetch updates the remote-tracking ref name from its remote. It holds the
// handle's write lock for the duration of the network call.
func (r *Resolver) fetch(ctx context.Context, h *repository.Handle, name string) error {
	logger := logging.OrNop(r.Logger)
	return h.Write(func(repo *git.Repository) error {
		remoteName, branch, err := trackingRef(repo, name)
		if err != nil {
			return err
		}
		remote, err := repo.Remote(remoteName)
		if err != nil {
			return fmt.Errorf("loading remote %s: %w", remoteName, err)
		}
		urls := remote.Config().URLs
		if len(urls) == 0 {
			return outcome.Configf(name, "remote %s has no URL", remoteName)
		}

		var auth transport.AuthMethod
		if ep, err := transport.NewEndpoint(urls[0]); err == nil && ep.Protocol == "ssh" && r.Auth != nil {
			auth, err = r.Auth(ep.User)
			if err != nil {
				return err
			}
		}

		spec := gitconfig.RefSpec(fmt.Sprintf("+%s:%s%s/%s",
			plumbing.NewBranchReferenceName(branch), remotesPrefix, remoteName, branch))
		logger.Info("fetching", zap.String("remote", remoteName), zap.String("refspec", spec.String()))

		err = repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: remoteName,
			RefSpecs:   []gitconfig.RefSpec{spec},
			Auth:       auth,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return &TransportError{Remote: remoteName, Ref: name, Err: err}
		}
		return nil
	})
}
