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
package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/touched/config"
	"bennypowers.dev/touched/outcome"
	"bennypowers.dev/touched/repository"
	"bennypowers.dev/touched/session"
	"bennypowers.dev/touched/testutil"
)

const develop = "refs/remotes/origin/develop"

func pom(artifact string) string {
	return "<project><groupId>com.acme</groupId><artifactId>" + artifact + "</artifactId></project>"
}

func mavenRepo(t *testing.T) *testutil.Repo {
	t.Helper()
	repo := testutil.NewRepo(t)
	repo.WriteFile("parent/pom.xml", pom("parent"))
	repo.WriteFile("parent/child1/pom.xml", pom("child1"))
	repo.WriteFile("parent/child2/pom.xml", pom("child2"))
	repo.WriteFile("parent/child2/subchild1/pom.xml", pom("subchild1"))
	repo.WriteFile("parent/child2/subchild1/src/main/java/Foo.java", "class Foo {}")
	repo.SetRef(develop, repo.CommitAll("initial"))

	repo.WriteFile("parent/child2/subchild1/src/main/java/Foo.java", "class Foo { int x; }")
	repo.CommitAll("change foo")
	return repo
}

func newSession(t *testing.T, dir string) *session.Session {
	t.Helper()
	cfg := config.Default()
	cfg.Dir = dir
	s := session.New(cfg, nil, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestImpactedScenario(t *testing.T) {
	repo := mavenRepo(t)
	s := newSession(t, repo.Dir)

	res, err := s.Impacted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.acme:subchild1"}, res.IDs())
	assert.Empty(t, res.Outside)
}

func TestImpactedIncludesWorkTree(t *testing.T) {
	repo := mavenRepo(t)
	repo.WriteFile("parent/child1/src/New.java", "class New {}")
	repo.WriteFile("NOTES.md", "outside every module")
	s := newSession(t, repo.Dir)

	res, err := s.Impacted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"com.acme:child1", "com.acme:subchild1"}, res.IDs())
	assert.Equal(t, []string{repo.Path("NOTES.md")}, res.Outside)
}

func TestRepositoryOpensOnce(t *testing.T) {
	repo := mavenRepo(t)
	s := newSession(t, repo.Dir)

	var wg sync.WaitGroup
	handles := make([]*repository.Handle, 8)
	for i := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.Repository()
			assert.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
}

func TestModulesBuiltOnce(t *testing.T) {
	repo := mavenRepo(t)
	s := newSession(t, repo.Dir)

	first, err := s.Modules(context.Background())
	require.NoError(t, err)
	repo.WriteFile("late/pom.xml", pom("late"))
	second, err := s.Modules(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 4, second.Len())
}

func TestMissingRepository(t *testing.T) {
	dir := t.TempDir()

	t.Run("skip", func(t *testing.T) {
		cfg := config.Default()
		cfg.Dir = dir
		cfg.FailOnMissingGitDir = false
		s := session.New(cfg, nil, nil)
		defer s.Close()

		_, err := s.Impacted(context.Background())
		assert.True(t, outcome.IsSkip(err))
	})

	t.Run("fail", func(t *testing.T) {
		s := newSession(t, dir)
		_, err := s.Impacted(context.Background())
		assert.True(t, outcome.IsConfig(err))
	})
}

func TestClose(t *testing.T) {
	t.Run("after use", func(t *testing.T) {
		repo := mavenRepo(t)
		s := newSession(t, repo.Dir)
		_, err := s.ChangedPaths(context.Background())
		require.NoError(t, err)

		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		_, err = s.ChangedPaths(context.Background())
		assert.ErrorIs(t, err, repository.ErrClosed)
	})

	t.Run("before use", func(t *testing.T) {
		repo := mavenRepo(t)
		s := newSession(t, repo.Dir)
		require.NoError(t, s.Close())

		_, err := s.Repository()
		assert.ErrorIs(t, err, repository.ErrClosed)
	})
}
