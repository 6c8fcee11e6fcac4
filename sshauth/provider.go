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
package sshauth

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"bennypowers.dev/touched/fs"
	"bennypowers.dev/touched/internal/logging"
	"bennypowers.dev/touched/outcome"
)

// DefaultIdentityFiles are the key files looked up under ~/.ssh.
var DefaultIdentityFiles = []string{"id_ed25519", "id_ecdsa", "id_rsa", "id_dsa"}

var errNoAgent = errors.New("SSH_AUTH_SOCK is not set")

// AgentDialer connects to an SSH agent. The closer is released with the
// keyring.
type AgentDialer func() (agent.Agent, io.Closer, error)

// Provider gathers identities into a Keyring.
type Provider struct {
	// KeyPath is an explicit private key file. Optional.
	KeyPath string
	// HomeDir holds the .ssh directory. Defaults to the user's home.
	HomeDir string
	// DialAgent defaults to DialAgent.
	DialAgent AgentDialer
	// FS defaults to the OS filesystem.
	FS     fs.FileSystem
	Logger *zap.Logger
}

// DialAgent connects to the agent listening on SSH_AUTH_SOCK.
func DialAgent() (agent.Agent, io.Closer, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil, errNoAgent
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil, err
	}
	return agent.NewClient(conn), conn, nil
}

// Load builds the keyring.
//
// With an agent reachable the order is: agent identities, the explicit
// key, then unencrypted default identities. Without one, only the explicit
// key is used. Agent failures are logged and never returned.
func (p *Provider) Load() (*Keyring, error) {
	logger := logging.OrNop(p.Logger)
	fsys := p.FS
	if fsys == nil {
		fsys = fs.NewOSFileSystem()
	}
	dial := p.DialAgent
	if dial == nil {
		dial = DialAgent
	}

	ring := &Keyring{}
	add := func(s ssh.Signer, source string) {
		blob := s.PublicKey().Marshal()
		for _, existing := range ring.signers {
			if slices.Equal(existing.PublicKey().Marshal(), blob) {
				return
			}
		}
		ring.signers = append(ring.signers, s)
		ring.sources = append(ring.sources, source)
	}

	var explicit ssh.Signer
	if p.KeyPath != "" {
		s, err := loadExplicitKey(fsys, p.KeyPath)
		if err != nil {
			return nil, err
		}
		explicit = s
	}

	ag, closer, err := dial()
	var agentSigners []ssh.Signer
	if err == nil {
		agentSigners, err = ag.Signers()
		if err != nil && closer != nil {
			_ = closer.Close()
		}
	}
	if err != nil {
		logger.Debug("ssh agent unavailable, using explicit key only", zap.Error(err))
		if explicit != nil {
			add(explicit, p.KeyPath)
		}
		return ring, nil
	}
	ring.closer = closer

	for _, s := range agentSigners {
		add(s, "agent")
	}
	if explicit != nil {
		add(explicit, p.KeyPath)
	}
	for _, path := range p.defaultIdentityPaths() {
		if path == p.KeyPath {
			continue
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			continue
		}
		s, err := ssh.ParsePrivateKey(data)
		var missing *ssh.PassphraseMissingError
		switch {
		case errors.As(err, &missing):
			logger.Debug("skipping encrypted identity", zap.String("path", path))
			continue
		case err != nil:
			logger.Debug("skipping unreadable identity", zap.String("path", path), zap.Error(err))
			continue
		}
		add(s, path)
	}

	logger.Debug("loaded ssh identities", zap.Strings("sources", ring.sources))
	return ring, nil
}

func (p *Provider) defaultIdentityPaths() []string {
	home := p.HomeDir
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		home = h
	}
	paths := make([]string, 0, len(DefaultIdentityFiles))
	for _, name := range DefaultIdentityFiles {
		paths = append(paths, filepath.Join(home, ".ssh", name))
	}
	return paths
}

func loadExplicitKey(fsys fs.FileSystem, path string) (ssh.Signer, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &outcome.ConfigError{Option: "ssh-private-key", Msg: "cannot read " + path, Err: err}
	}
	s, err := ssh.ParsePrivateKey(data)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, outcome.Configf("ssh-private-key", "%s is encrypted; load it into ssh-agent instead", path)
	}
	if err != nil {
		return nil, &outcome.ConfigError{Option: "ssh-private-key", Msg: fmt.Sprintf("cannot parse %s", path), Err: err}
	}
	return s, nil
}
