// Package git runs the clone primitive: one `git clone` process per
// repository, optionally depth-limited, writing <targetDir>/<name>.
package git

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"repoclone/internal/errkind"
)

const defaultHost = "github.com"

// LookPath finds the git executable. A missing git is a DependencyMissing error.
func LookPath() (string, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return "", errkind.New(errkind.KindDependencyMissing, "git executable not found on PATH", err)
	}
	return p, nil
}

// Cloner clones repositories of a GitHub owner with the git CLI.
type Cloner struct {
	// GitPath is the git executable. Empty means "git" resolved via PATH.
	GitPath string
	// Protocol is "https" (default) or "ssh".
	Protocol string
	// Host is the git host. Empty means github.com.
	Host string
	// Token authenticates HTTPS clones. It is passed through the environment,
	// never on the command line.
	Token string
	// Env is appended to the process environment of every git command.
	Env []string
	// Log receives "[verbose] git:" trace lines. Nil disables tracing.
	Log io.Writer
}

// Clone runs `git clone [--depth N] <url> <targetDir>/<name>`.
//
// A pre-existing non-empty destination makes git fail; that is reported as a
// CloneFailed error like any other failure.
func (c *Cloner) Clone(ctx context.Context, owner, name, targetDir string, depth int) error {
	dst := filepath.Join(targetDir, name)
	args := cloneArgs(c.RemoteURL(owner, name), dst, depth)

	if _, err := runGitCommand(ctx, c.Log, c.env(), "", c.gitPath(), args...); err != nil {
		return errkind.New(errkind.KindCloneFailed, "clone "+owner+"/"+name, err)
	}
	return nil
}

// RemoteURL returns the clone URL for owner/name in the configured protocol.
func (c *Cloner) RemoteURL(owner, name string) string {
	host := c.host()
	if c.Protocol == "ssh" {
		return fmt.Sprintf("git@%s:%s/%s.git", host, owner, name)
	}
	return fmt.Sprintf("https://%s/%s/%s.git", host, owner, name)
}

func cloneArgs(remote, dst string, depth int) []string {
	args := []string{"clone", "--quiet"}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	// "--" keeps a repository named like an option from being parsed as one.
	return append(args, "--", remote, dst)
}

func (c *Cloner) gitPath() string {
	if c.GitPath != "" {
		return c.GitPath
	}
	return "git"
}

func (c *Cloner) host() string {
	if c.Host != "" {
		return c.Host
	}
	return defaultHost
}

func (c *Cloner) env() []string {
	env := append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	env = append(env, c.Env...)
	if c.Token != "" && c.Protocol != "ssh" {
		env = append(env, credentialEnv(c.host(), c.Token)...)
	}
	return env
}

// credentialEnv injects an Authorization header for the host through git's
// GIT_CONFIG_* environment variables, the same way actions/checkout does.
func credentialEnv(host, token string) []string {
	basic := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
	return []string{
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.https://" + host + "/.extraheader",
		"GIT_CONFIG_VALUE_0=AUTHORIZATION: basic " + basic,
	}
}

func runGitCommand(ctx context.Context, log io.Writer, env []string, cwd, gitPath string, args ...string) (string, error) {
	cmdStr := gitPath + " " + strings.Join(args, " ")
	if log != nil {
		fmt.Fprintf(log, "[verbose] git: %s\n", cmdStr)
	}

	cmd := exec.CommandContext(ctx, gitPath, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	outbuf := bytes.NewBuffer(nil)
	errbuf := bytes.NewBuffer(nil)
	cmd.Stdout = outbuf
	cmd.Stderr = errbuf
	cmd.Env = env

	start := time.Now()
	err := cmd.Run()
	runTime := time.Since(start)

	stdout := strings.TrimSpace(outbuf.String())
	stderr := strings.TrimSpace(errbuf.String())
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = ctx.Err()
	}
	if err != nil {
		if log != nil {
			fmt.Fprintf(log, "[verbose] git: failed after %s: %s\n", runTime.Truncate(time.Millisecond), stderr)
		}
		return "", &CommandError{Args: args, Err: err, Stderr: stderr}
	}
	if log != nil {
		fmt.Fprintf(log, "[verbose] git: done in %s\n", runTime.Truncate(time.Millisecond))
	}
	return stdout, nil
}

// CommandError is a failed git invocation. Error() reports the exit status and
// the last line git printed on stderr, which is usually the actionable one.
type CommandError struct {
	Args   []string
	Err    error
	Stderr string
}

func (e *CommandError) Error() string {
	msg := e.Err.Error()
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		msg = "exit status " + strconv.Itoa(exitErr.ExitCode())
	}
	if last := lastLine(e.Stderr); last != "" {
		return msg + ": " + last
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
