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
package impact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"bennypowers.dev/touched/impact"
	"bennypowers.dev/touched/module"
	"bennypowers.dev/touched/testutil"
)

func mavenIndex() *module.Index {
	return module.NewIndex([]module.Module{
		{ID: "parent", Root: "/repo/parent"},
		{ID: "child2", Root: "/repo/parent/child2"},
		{ID: "subchild1", Root: "/repo/parent/child2/subchild1"},
	})
}

func TestResolveNearestEnclosing(t *testing.T) {
	res := impact.Resolve([]string{"/repo/parent/child2/subchild1/src/main/java/Foo.java"}, mavenIndex(), nil)
	assert.Equal(t, []string{"subchild1"}, res.IDs())
	assert.Empty(t, res.Outside)
}

func TestResolveDeduplicates(t *testing.T) {
	res := impact.Resolve([]string{
		"/repo/parent/child2/a.txt",
		"/repo/parent/child2/b.txt",
		"/repo/parent/child1/c.txt",
	}, mavenIndex(), nil)
	assert.Equal(t, []string{"parent", "child2"}, res.IDs())
	assert.True(t, res.Has("/repo/parent/child2", "child2"))
	assert.False(t, res.Has("/repo/parent/child2/subchild1", "subchild1"))
}

func TestResolveColocatedModules(t *testing.T) {
	idx := module.NewIndex([]module.Module{
		{ID: "tools-go", Root: "/repo/tools"},
		{ID: "tools-npm", Root: "/repo/tools"},
	})
	res := impact.Resolve([]string{"/repo/tools/main.go"}, idx, nil)
	assert.ElementsMatch(t, []string{"tools-go", "tools-npm"}, res.IDs())
}

func TestResolveColocatedModulesWithSameID(t *testing.T) {
	mfs := testutil.NewTreeFS(t, "/repo", map[string]string{
		"web/package.json": `{"private": true}`,
		"web/build.gradle": "",
		"web/src/x.js":     "",
	})
	mods, err := module.Discover(context.Background(), mfs, "/repo", module.DiscoverOptions{
		Descriptors: []string{"package.json", "build.gradle"},
	})
	require.NoError(t, err)
	require.Len(t, mods, 2)

	res := impact.Resolve([]string{"/repo/web/src/x.js", "/repo/web/package.json"}, module.NewIndex(mods), nil)
	require.Len(t, res.Modules, 2)
	assert.Equal(t, []string{"web", "web"}, res.IDs())
	assert.Equal(t, "/repo/web/build.gradle", res.Modules[0].Descriptor)
	assert.Equal(t, "/repo/web/package.json", res.Modules[1].Descriptor)
}

func TestResolveOutsideBuildTree(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	var res impact.Result
	require.NotPanics(t, func() {
		res = impact.Resolve([]string{
			"/repo/README.md",
			"/repo/parent/pom.xml",
			"/",
			"relative/path",
		}, mavenIndex(), logger)
	})

	assert.Equal(t, []string{"parent"}, res.IDs())
	assert.Equal(t, []string{"/", "/repo/README.md", "relative/path"}, res.Outside)
	assert.Equal(t, 3, logs.FilterMessage("changed file is outside the build tree").Len())
}

func TestResolveEmpty(t *testing.T) {
	res := impact.Resolve(nil, module.NewIndex(nil), nil)
	assert.NotNil(t, res.Modules)
	assert.Empty(t, res.Modules)
	assert.Empty(t, res.Outside)
}

func TestResolveReturnsFreshResult(t *testing.T) {
	idx := mavenIndex()
	paths := []string{"/repo/parent/child2/x"}
	first := impact.Resolve(paths, idx, nil)
	first.Modules[0].ID = "mutated"

	second := impact.Resolve(paths, idx, nil)
	assert.Equal(t, []string{"child2"}, second.IDs())
}
