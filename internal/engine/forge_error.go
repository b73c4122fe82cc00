package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"

	"repoclone/internal/errkind"
)

// forgeError carries a GitHub failure with a message that leaves out the
// request URL go-github puts into its error strings.
type forgeError struct {
	msg string
	err error
}

func (e *forgeError) Error() string { return e.msg }
func (e *forgeError) Unwrap() error { return e.err }

// classifyForgeError maps a go-github error to a fatal run error:
//
//	401, 403 (not rate limited)  -> auth
//	404                          -> owner-not-found
//	rate limits, 5xx, transport  -> forge-unavailable
func classifyForgeError(op string, err error) error {
	if err == nil {
		return nil
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		msg := "GitHub API rate limit exceeded"
		if !rle.Rate.Reset.IsZero() {
			msg += fmt.Sprintf(" (resets at %s)", rle.Rate.Reset.UTC().Format(time.TimeOnly+" MST"))
		}
		return errkind.New(errkind.KindForgeUnavailable, op, &forgeError{msg: msg, err: err})
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return errkind.New(errkind.KindForgeUnavailable, op, &forgeError{msg: "GitHub API secondary rate limit exceeded", err: err})
	}

	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		code := er.Response.StatusCode
		fe := &forgeError{msg: presentErrorResponse(er), err: err}
		switch {
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return errkind.New(errkind.KindAuth, op, fe)
		case code == http.StatusNotFound:
			return errkind.New(errkind.KindOwnerNotFound, op, fe)
		default:
			return errkind.New(errkind.KindForgeUnavailable, op, fe)
		}
	}

	msg := strings.TrimSpace(err.Error())
	if scrubbed := scrubGitHubRequestFromErrorString(msg); scrubbed != "" {
		msg = scrubbed
	}
	return errkind.New(errkind.KindForgeUnavailable, op, &forgeError{msg: msg, err: err})
}

func presentErrorResponse(er *github.ErrorResponse) string {
	msg := strings.TrimSpace(er.Message)
	if msg == "" {
		msg = "GitHub API request failed"
	}
	code := er.Response.StatusCode
	return fmt.Sprintf("GitHub API request failed (%d %s): %s", code, http.StatusText(code), msg)
}

func scrubGitHubRequestFromErrorString(s string) string {
	// Typical go-github error format:
	//   GET https://api.github.com/...: 502 Bad Gateway []
	// Drop the leading "GET https://...: " part.
	for _, m := range []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE "} {
		if !strings.HasPrefix(s, m) {
			continue
		}
		if i := strings.Index(s, "://"); i >= 0 {
			if j := strings.Index(s[i:], ": "); j >= 0 {
				return strings.TrimSpace(s[i+j+2:])
			}
		}
		if j := strings.Index(s, ": "); j >= 0 {
			return strings.TrimSpace(s[j+2:])
		}
		break
	}
	return ""
}
