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
// Package sshauth supplies SSH identities to git fetches.
//
// Identities are gathered once into a Keyring: everything the running
// agent offers, then unencrypted keys from disk. The Keyring is read-only,
// so nothing a connection does can add to it, reorder it, or let a stale
// encrypted key shadow an agent identity.
package sshauth

import (
	"crypto/rand"
	"errors"
	"io"
	"slices"
	"sync"

	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// DefaultUser is the SSH user when the remote URL names none.
const DefaultUser = "git"

var errNoMatchingKey = errors.New("sshauth: no identity for public key")

// Keyring is an immutable, ordered list of identities implementing
// agent.Agent. Mutating methods are accepted and ignored.
type Keyring struct {
	signers []ssh.Signer
	sources []string
	closer  io.Closer

	closeOnce sync.Once
	closeErr  error
}

var _ agent.Agent = (*Keyring)(nil)

// NewKeyring returns a Keyring over signers, in the given order.
func NewKeyring(signers ...ssh.Signer) *Keyring {
	return &Keyring{signers: slices.Clone(signers)}
}

// Len returns the number of identities.
func (k *Keyring) Len() int {
	return len(k.signers)
}

// Sources describes where each identity came from, in lookup order.
func (k *Keyring) Sources() []string {
	return slices.Clone(k.sources)
}

// Signers returns the identities in lookup order.
func (k *Keyring) Signers() ([]ssh.Signer, error) {
	return slices.Clone(k.signers), nil
}

// List returns the public halves of the identities.
func (k *Keyring) List() ([]*agent.Key, error) {
	keys := make([]*agent.Key, 0, len(k.signers))
	for i, s := range k.signers {
		pub := s.PublicKey()
		comment := ""
		if i < len(k.sources) {
			comment = k.sources[i]
		}
		keys = append(keys, &agent.Key{Format: pub.Type(), Blob: pub.Marshal(), Comment: comment})
	}
	return keys, nil
}

// Sign signs data with the identity matching key.
func (k *Keyring) Sign(key ssh.PublicKey, data []byte) (*ssh.Signature, error) {
	want := key.Marshal()
	for _, s := range k.signers {
		if slices.Equal(s.PublicKey().Marshal(), want) {
			return s.Sign(rand.Reader, data)
		}
	}
	return nil, errNoMatchingKey
}

// Add is a no-op.
func (k *Keyring) Add(agent.AddedKey) error { return nil }

// Remove is a no-op.
func (k *Keyring) Remove(ssh.PublicKey) error { return nil }

// RemoveAll is a no-op.
func (k *Keyring) RemoveAll() error { return nil }

// Lock is a no-op.
func (k *Keyring) Lock([]byte) error { return nil }

// Unlock is a no-op.
func (k *Keyring) Unlock([]byte) error { return nil }

// AuthMethod returns a go-git SSH auth method drawing from the keyring.
func (k *Keyring) AuthMethod(user string) *gitssh.PublicKeysCallback {
	if user == "" {
		user = DefaultUser
	}
	return &gitssh.PublicKeysCallback{
		User:     user,
		Callback: k.Signers,
	}
}

// Close releases the agent connection, if any. Only the first call closes
// it; later calls return the same error.
func (k *Keyring) Close() error {
	k.closeOnce.Do(func() {
		if k.closer != nil {
			k.closeErr = k.closer.Close()
		}
	})
	return k.closeErr
}
