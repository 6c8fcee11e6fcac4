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
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"bennypowers.dev/touched/testutil"
)

func TestMain(m *testing.M) {
	// Build the binary before running tests
	wd := mustGetwd()
	cmd := exec.Command("go", "build", "-o", "touched_test", ".")
	cmd.Dir = wd
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("failed to build test binary: " + err.Error() + "\n" + string(out))
	}
	code := m.Run()
	_ = os.Remove(filepath.Join(wd, "touched_test"))
	os.Exit(code)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return wd
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	binary := filepath.Join(mustGetwd(), "touched_test")
	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("Failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

// mavenRepo builds parent, child2 and child2/subchild1 modules where HEAD
// differs from origin/develop only in subchild1's Foo.java.
func mavenRepo(t *testing.T) *testutil.Repo {
	t.Helper()
	repo := testutil.NewRepo(t)
	pom := func(id string) string {
		return "<project><groupId>com.acme</groupId><artifactId>" + id + "</artifactId></project>"
	}
	repo.WriteFile("parent/pom.xml", pom("parent"))
	repo.WriteFile("parent/child2/pom.xml", pom("child2"))
	repo.WriteFile("parent/child2/subchild1/pom.xml", pom("subchild1"))
	repo.WriteFile("parent/child2/subchild1/src/main/java/Foo.java", "class Foo {}")
	repo.SetRef("refs/remotes/origin/develop", repo.CommitAll("initial"))
	repo.WriteFile("parent/child2/subchild1/src/main/java/Foo.java", "class Foo { int x; }")
	repo.CommitAll("change foo")
	return repo
}

func TestModulesJSON(t *testing.T) {
	repo := mavenRepo(t)

	stdout, stderr, code := runCLI(t, "modules", "-C", repo.Dir, "--format", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}

	var result struct {
		Skipped bool `json:"skipped"`
		Modules []struct {
			ID   string `json:"id"`
			Root string `json:"root"`
		} `json:"modules"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if result.Skipped {
		t.Error("Expected incremental detection to run")
	}
	if len(result.Modules) != 1 || result.Modules[0].ID != "com.acme:subchild1" {
		t.Fatalf("Expected only subchild1, got %+v", result.Modules)
	}
	if result.Modules[0].Root != repo.Path("parent/child2/subchild1") {
		t.Errorf("Unexpected module root %s", result.Modules[0].Root)
	}
}

func TestModulesText(t *testing.T) {
	repo := mavenRepo(t)

	stdout, stderr, code := runCLI(t, "modules", "-C", repo.Dir)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	want := "com.acme:subchild1\t" + repo.Path("parent/child2/subchild1") + "\n"
	if stdout != want {
		t.Errorf("Expected %q, got %q", want, stdout)
	}
}

func TestModulesSkippedWithoutRepository(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte("<project><artifactId>solo</artifactId></project>"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCLI(t, "modules", "-C", dir, "--fail-on-missing-git-dir=false", "-f", "json")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	var result struct {
		Skipped bool `json:"skipped"`
		Modules []struct {
			ID string `json:"id"`
		} `json:"modules"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("Failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}
	if !result.Skipped {
		t.Error("Expected skipped report")
	}
	if len(result.Modules) != 1 || result.Modules[0].ID != "solo" {
		t.Errorf("Expected every module to be listed, got %+v", result.Modules)
	}
}

func TestMissingRepositoryIsConfigError(t *testing.T) {
	stdout, stderr, code := runCLI(t, "modules", "-C", t.TempDir())
	if code != 2 {
		t.Fatalf("Expected exit code 2, got %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}
	if !strings.Contains(stderr, "configuration error") {
		t.Errorf("Expected configuration error on stderr, got: %s", stderr)
	}
}

func TestChangesOutputFile(t *testing.T) {
	repo := mavenRepo(t)
	repo.WriteFile("scratch.txt", "untracked")
	outFile := filepath.Join(t.TempDir(), "changes.txt")

	stdout, stderr, code := runCLI(t, "changes", "-C", repo.Dir, "--output", outFile)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if stdout != "" {
		t.Errorf("Expected no stdout when writing to file, got: %s", stdout)
	}
	content, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Failed to read output file: %v", err)
	}
	want := "parent/child2/subchild1/src/main/java/Foo.java\nscratch.txt\n"
	if string(content) != want {
		t.Errorf("Expected %q, got %q", want, string(content))
	}
}

func TestChangesDeprecatedFlag(t *testing.T) {
	repo := mavenRepo(t)
	repo.WriteFile("parent/pom.xml", "<project><artifactId>edited</artifactId></project>")

	stdout, stderr, code := runCLI(t, "changes", "-C", repo.Dir, "--uncommited=false")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if strings.Contains(stdout, "parent/pom.xml") {
		t.Errorf("Expected uncommitted change to be ignored, got: %s", stdout)
	}
}

func TestFetchLocalRefFails(t *testing.T) {
	repo := mavenRepo(t)

	_, stderr, code := runCLI(t, "changes", "-C", repo.Dir, "--fetch-base-branch")
	if code != 2 {
		t.Fatalf("Expected exit code 2, got %d\nstderr: %s", code, stderr)
	}
	if !strings.Contains(stderr, "HEAD") {
		t.Errorf("Expected error to name the ref, got: %s", stderr)
	}
}

func TestOptions(t *testing.T) {
	stdout, stderr, code := runCLI(t, "options")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	for _, want := range []string{"--base-branch", "TOUCHED_REFERENCE_BRANCH", "refs/remotes/origin/develop", "uncommited"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Expected %q in options table", want)
		}
	}
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCLI(t, "version")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d\nstderr: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "touched ") {
		t.Errorf("Expected version line, got: %s", stdout)
	}
}
