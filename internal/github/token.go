package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGHEnv    AuthTokenSource = "env:GH_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"
	AuthTokenSourceApp      AuthTokenSource = "github-app"
)

// tokenEnv lists the environment variables checked for a token, first match wins.
var tokenEnv = []struct {
	name   string
	source AuthTokenSource
}{
	{"GITHUB_TOKEN", AuthTokenSourceEnv},
	{"GH_TOKEN", AuthTokenSourceGHEnv},
}

// ghTokenTimeout bounds `gh auth token` when ctx has no deadline.
const ghTokenTimeout = 5 * time.Second

// ResolveAuthToken returns the first token found in: provided, GITHUB_TOKEN,
// GH_TOKEN, then `gh auth token -h github.com`.
//
// ("", "", nil) means there are no credentials and the caller lists public
// repositories only. The token itself is never logged.
func ResolveAuthToken(ctx context.Context, provided string) (token string, source AuthTokenSource, err error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}
	for _, e := range tokenEnv {
		if tok := strings.TrimSpace(os.Getenv(e.name)); tok != "" {
			return tok, e.source, nil
		}
	}

	tok, err := ghAuthToken(ctx)
	if err != nil || tok == "" {
		return "", "", err
	}
	return tok, AuthTokenSourceGitHubCL, nil
}

// ghAuthToken asks the gh CLI for its stored token. A missing gh binary or a
// logged-out gh yields "" with no error.
func ghAuthToken(ctx context.Context) (string, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ghTokenTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "gh", "auth", "token", "-h", "github.com")
	cmd.Env = append(slices.DeleteFunc(os.Environ(), func(kv string) bool {
		return strings.HasPrefix(kv, "GH_PAGER=")
	}), "GH_PAGER=cat")

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// gh's stderr may name the account; it is dropped.
		return "", nil
	}

	tok := strings.TrimSpace(string(out))
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, nil
}
