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
package packagejson_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bennypowers.dev/touched/internal/mapfs"
	"bennypowers.dev/touched/packagejson"
)

func TestParseFile(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/repo/package.json", `{"name": "@acme/ui", "version": "1.2.0", "workspaces": ["packages/*"]}`)
	mfs.AddFile("/repo/broken/package.json", `{"name": `)

	pkg, err := packagejson.ParseFile(mfs, "/repo/package.json")
	require.NoError(t, err)
	assert.Equal(t, "@acme/ui", pkg.Name)
	assert.True(t, pkg.HasWorkspaces())

	_, err = packagejson.ParseFile(mfs, "/repo/broken/package.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/repo/broken/package.json")

	_, err = packagejson.ParseFile(mfs, "/repo/missing/package.json")
	assert.Error(t, err)
}

func TestWorkspacePatterns(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []string
	}{
		{"array format", `{"workspaces": ["packages/*", "apps/*"]}`, []string{"packages/*", "apps/*"}},
		{"object format", `{"workspaces": {"packages": ["libs/*"], "nohoist": ["**/react"]}}`, []string{"libs/*"}},
		{"absent", `{"name": "solo"}`, nil},
		{"unrecognised", `{"workspaces": 42}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, err := packagejson.Parse([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, pkg.WorkspacePatterns())
			assert.Equal(t, len(tt.want) > 0, pkg.HasWorkspaces())
		})
	}
}

func TestModuleID(t *testing.T) {
	named, err := packagejson.Parse([]byte(`{"name": "left-pad"}`))
	require.NoError(t, err)
	assert.Equal(t, "left-pad", named.ModuleID("web"))

	anonymous, err := packagejson.Parse([]byte(`{"private": true}`))
	require.NoError(t, err)
	assert.Equal(t, "web", anonymous.ModuleID("web"))
}
