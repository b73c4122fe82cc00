// Package errkind classifies the errors that can end a run.
//
// Every fatal error that reaches the CLI is either an *Error carrying one of the
// Kind values below, or a plain error (treated as KindConfig, since cobra flag
// parsing failures arrive that way). Per-job clone failures use KindCloneFailed
// but never leave the engine as a run error.
package errkind

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig            Kind = "config"
	KindDependencyMissing Kind = "dependency-missing"
	KindForgeUnavailable  Kind = "forge-unavailable"
	KindAuth              Kind = "auth"
	KindOwnerNotFound     Kind = "owner-not-found"
	KindCloneFailed       Kind = "clone-failed"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrConfig            = &Error{Kind: KindConfig}
	ErrDependencyMissing = &Error{Kind: KindDependencyMissing}
	ErrForgeUnavailable  = &Error{Kind: KindForgeUnavailable}
	ErrAuth              = &Error{Kind: KindAuth}
	ErrOwnerNotFound     = &Error{Kind: KindOwnerNotFound}
	ErrCloneFailed       = &Error{Kind: KindCloneFailed}
)

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string // e.g. "validate config", "list repositories"
	Err  error
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain.
// Unclassified errors report KindConfig.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindConfig
}

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// Hint returns a short, kind-specific suggestion printed after a fatal error.
func Hint(err error) string {
	switch KindOf(err) {
	case KindDependencyMissing:
		return "Install git and make sure it is on PATH."
	case KindAuth:
		return "Set GITHUB_TOKEN (or GH_TOKEN), run 'gh auth login', or pass GitHub App credentials."
	case KindOwnerNotFound:
		return "Check the owner name; it must be an existing GitHub user or organization."
	case KindForgeUnavailable:
		return "GitHub could not be reached or rate limited the request; try again later."
	default:
		return ""
	}
}
