package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"

	"repoclone/internal/output"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var stdout, stderr bytes.Buffer
	code := ExecuteArgs(context.Background(), args, &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// isolateEnv keeps the developer's credentials and gh session out of the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("GITHUB_API_URL", "")
	t.Setenv("GITHUB_SERVER_URL", "")
}

// installStubGit puts a fake git first on PATH. It creates the clone
// destination, and fails for repository names containing "fail".
func installStubGit(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses a shell script git stub")
	}
	bin := t.TempDir()
	script := `#!/bin/sh
for last; do :; done
case "${last##*/}" in
  *fail*) echo "fatal: could not read from remote repository" >&2; exit 128 ;;
esac
mkdir -p "$last"
`
	if err := os.WriteFile(filepath.Join(bin, "git"), []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile git stub: %v", err)
	}
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func fakeGitHub(t *testing.T, repos ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octo-org", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"octo-org","type":"Organization"}`)
	})
	mux.HandleFunc("/users/ghost", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	mux.HandleFunc("/orgs/octo-org/repos", func(w http.ResponseWriter, r *http.Request) {
		items := make([]map[string]string, 0, len(repos))
		for _, n := range repos {
			items = append(items, map[string]string{"name": n})
		}
		_ = json.NewEncoder(w).Encode(items)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	t.Setenv("GITHUB_API_URL", server.URL)
	return server
}

func TestClone_NoArgsPrintsHelp(t *testing.T) {
	isolateEnv(t)
	res := runCLI(t, "clone")
	if res.code != 0 {
		t.Fatalf("exit code = %d, want 0; stderr=%s", res.code, res.stderr)
	}
	for _, want := range []string{"Usage:", "repoclone clone [owner] [flags]", "Exit codes:", "clone.finished", "--concurrency", "GITHUB_TOKEN"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("help missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestClone_HelpFlag(t *testing.T) {
	isolateEnv(t)
	if res := runCLI(t, "clone", "--help"); res.code != 0 || !strings.Contains(res.stdout, "--depth") {
		t.Fatalf("clone --help: code=%d stdout=%s", res.code, res.stdout)
	}
	if res := runCLI(t, "--help"); res.code != 0 || !strings.Contains(res.stdout, "clone") {
		t.Fatalf("--help: code=%d stdout=%s", res.code, res.stdout)
	}
}

func TestClone_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing owner", []string{"clone", "--verbose"}, "owner is required"},
		{"negative depth", []string{"clone", "octocat", "--depth", "-1"}, "--depth must be >= 0"},
		{"zero limit", []string{"clone", "octocat", "--limit", "0"}, "--limit must be >= 1"},
		{"zero concurrency", []string{"clone", "octocat", "--concurrency", "0"}, "--concurrency must be >= 1"},
		{"bad protocol", []string{"clone", "octocat", "--protocol", "ftp"}, "unsupported --protocol"},
		{"owner twice", []string{"clone", "a", "--owner", "b"}, "owner given twice"},
		{"too many args", []string{"clone", "a", "b"}, "accepts at most 1 arg(s)"},
		{"unknown flag", []string{"clone", "octocat", "--bogus"}, "unknown flag: --bogus"},
		{"non-numeric limit", []string{"clone", "octocat", "--limit", "lots"}, "invalid argument"},
		{"out format", []string{"clone", "octocat", "--out", "results.unknown"}, "cannot infer output format"},
		{"partial app credentials", []string{"clone", "octocat", "--app-id", "1"}, "must be provided together"},
		{"missing config file", []string{"clone", "octocat", "--config", "/does/not/exist.yaml"}, "read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			// Config errors must be reported before any network or git activity.
			t.Setenv("GITHUB_API_URL", "http://127.0.0.1:1")
			t.Setenv("PATH", t.TempDir())

			res := runCLI(t, tt.args...)
			if res.code != 1 {
				t.Fatalf("exit code = %d, want 1; stderr=%s", res.code, res.stderr)
			}
			if !strings.Contains(res.stderr, "Error: ") || !strings.Contains(res.stderr, tt.want) {
				t.Fatalf("stderr missing %q:\n%s", tt.want, res.stderr)
			}
			if !strings.Contains(res.stderr, "--help' for usage.") {
				t.Fatalf("stderr missing help hint:\n%s", res.stderr)
			}
		})
	}
}

func TestClone_GitMissing(t *testing.T) {
	isolateEnv(t)
	fakeGitHub(t, "a")
	t.Setenv("PATH", t.TempDir())

	res := runCLI(t, "clone", "octo-org", "--dir", t.TempDir())
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	for _, want := range []string{"git executable not found", "Install git", "Run 'repoclone clone --help' for usage."} {
		if !strings.Contains(res.stderr, want) {
			t.Fatalf("stderr missing %q:\n%s", want, res.stderr)
		}
	}
}

func TestClone_OwnerNotFound(t *testing.T) {
	isolateEnv(t)
	installStubGit(t)
	fakeGitHub(t)

	res := runCLI(t, "clone", "ghost", "--dir", t.TempDir())
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1", res.code)
	}
	for _, want := range []string{"Error: look up owner \"ghost\": GitHub API request failed (404 Not Found)", "Check the owner name"} {
		if !strings.Contains(res.stderr, want) {
			t.Fatalf("stderr missing %q:\n%s", want, res.stderr)
		}
	}
}

func TestClone_EndToEnd(t *testing.T) {
	isolateEnv(t)
	installStubGit(t)
	fakeGitHub(t, "a", "b", "will-fail", "d")

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "b"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	report := filepath.Join(t.TempDir(), "report.json")
	metricsFile := filepath.Join(t.TempDir(), "repoclone.prom")

	res := runCLI(t, "clone", "https://github.com/octo-org", "--dir", dir, "--concurrency", "2", "--out", report, "--metrics-file", metricsFile)
	if res.code != 0 {
		t.Fatalf("a failed clone must not change the exit code; got %d\nstderr=%s", res.code, res.stderr)
	}

	for _, want := range []string{"[CLONED] a", "[CLONED] d", "[FAILED] will-fail - exit status 128: fatal: could not read from remote repository", "Summary for octo-org:", "  Cloned:           2\n", "  Failed:           1\n"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if !strings.Contains(res.stderr, "Found 4 repositories (1 already present, 3 to clone).") {
		t.Fatalf("stderr missing progress line:\n%s", res.stderr)
	}
	for _, name := range []string{"a", "b", "d"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}

	raw, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("ReadFile report: %v", err)
	}
	var rep output.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if rep.Owner != "octo-org" || rep.Result == nil || rep.Result.TotalRemote != 4 || rep.Result.Failed != 1 || len(rep.Clones) != 3 {
		t.Fatalf("unexpected report: %s", raw)
	}

	prom, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("ReadFile metrics: %v", err)
	}
	if !strings.Contains(string(prom), `repoclone_clone_total{success="false"} 1`) {
		t.Fatalf("unexpected metrics:\n%s", prom)
	}

	// Second run: everything that succeeded is skipped, only the failure is retried.
	res = runCLI(t, "clone", "octo-org", "--dir", dir)
	if res.code != 0 || !strings.Contains(res.stderr, "Found 4 repositories (3 already present, 1 to clone).") {
		t.Fatalf("second run: code=%d stderr=%s", res.code, res.stderr)
	}
}

func TestClone_DryRunNeedsNoGit(t *testing.T) {
	isolateEnv(t)
	fakeGitHub(t, "a", "b")
	t.Setenv("PATH", t.TempDir())

	dir := t.TempDir()
	res := runCLI(t, "clone", "octo-org", "--dir", dir, "--dry-run")
	if res.code != 0 {
		t.Fatalf("exit code = %d; stderr=%s", res.code, res.stderr)
	}
	for _, want := range []string{"[PLANNED] a", "[PLANNED] b", "Would clone:      2"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("stdout missing %q:\n%s", want, res.stdout)
		}
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("dry run wrote to the target directory: %v", entries)
	}
}

func TestClone_NDJSONConsole(t *testing.T) {
	isolateEnv(t)
	installStubGit(t)
	fakeGitHub(t, "a")

	res := runCLI(t, "clone", "octo-org", "--dir", t.TempDir(), "--console-format", "ndjson")
	if res.code != 0 {
		t.Fatalf("exit code = %d; stderr=%s", res.code, res.stderr)
	}
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	var types []string
	for _, line := range lines {
		var ev output.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("stdout line is not JSON: %q", line)
		}
		types = append(types, ev.Type)
	}
	want := []string{output.EventRunStarted, output.EventCloneFinished, output.EventRunFinished}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("event types = %v, want %v", types, want)
	}
}

func TestClone_ConfigFile(t *testing.T) {
	isolateEnv(t)
	installStubGit(t)
	fakeGitHub(t, "a", "b", "c")

	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "repoclone.yaml")
	content := fmt.Sprintf("owner: octo-org\ndir: %s\nexclude: [\"b\"]\nlimit: 10\n", dir)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res := runCLI(t, "clone", "--config", cfgPath, "--limit", "1")
	if res.code != 0 {
		t.Fatalf("exit code = %d; stderr=%s", res.code, res.stderr)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "a" {
		t.Fatalf("flag --limit should win over the file: %v", entries)
	}
}

func TestVersion(t *testing.T) {
	SetBuildInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetBuildInfo("dev", "unknown", "unknown") })

	res := runCLI(t, "version")
	if res.code != 0 || !strings.Contains(res.stdout, "repoclone 1.2.3\ncommit: abc123\nbuilt:  2026-01-01\n") {
		t.Fatalf("version: code=%d stdout=%q", res.code, res.stdout)
	}
	res = runCLI(t, "--version")
	if res.code != 0 || strings.TrimSpace(res.stdout) != "1.2.3 (abc123) 2026-01-01" {
		t.Fatalf("--version: code=%d stdout=%q", res.code, res.stdout)
	}
}
