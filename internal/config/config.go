package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	DefaultLimit       = 25
	DefaultConcurrency = 5
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep these in sync:
	// - CLI flags in internal/cli/clone.go
	// - the YAML file schema in file.go (File and Apply)
	Targeting Targeting
	Clone     Clone
	Auth      Auth
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Owner is the GitHub user or organization whose repositories are cloned
	// (name or github.com URL; see --owner or the positional argument).
	Owner string

	// Dir is the base directory repositories are cloned into (see --dir).
	// Empty means the current working directory.
	Dir string

	// Limit is the maximum number of repositories to list (see --limit). Must be >= 1.
	Limit int

	// Include keeps only repositories whose name matches at least one pattern
	// (Go path.Match style; see --include).
	Include []string

	// Exclude drops repositories whose name matches any pattern (see --exclude).
	Exclude []string

	// Archived controls how archived repos are handled (see --archived).
	// Allowed values: include, exclude, only.
	Archived string

	// Forks controls how forked repos are handled (see --forks).
	// Allowed values: include, exclude, only.
	Forks string

	// DryRun lists and diffs, prints the plan, and clones nothing (see --dry-run).
	DryRun bool
}

type Clone struct {
	// Depth limits each clone to that many commits (see --depth). 0 means full history.
	Depth int

	// Protocol selects the clone URL form (see --protocol).
	// Allowed values: https, ssh.
	Protocol string
}

type Auth struct {
	// Token is an explicit GitHub access token (see --token). When empty the
	// token is resolved from the environment or the gh CLI.
	Token string

	// GitHub App credentials (see --app-id, --app-installation-id, --app-private-key).
	// All three must be set together; they take precedence over Token.
	AppID             string
	AppInstallationID string
	AppPrivateKey     string
}

type Output struct {
	// ConsoleFormat controls the console sink format (see --console-format).
	// Allowed values: text, ndjson.
	ConsoleFormat string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// MetricsFile writes Prometheus metrics in text exposition format to this
	// path when the run finishes (see --metrics-file).
	MetricsFile string
}

type Runtime struct {
	// Concurrency is the number of clones allowed in flight at once (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// ConfigFile is an optional YAML file supplying defaults (see --config).
	ConfigFile string

	// Verbose enables request and git command tracing on stderr.
	Verbose bool
}

func New() *Config {
	return &Config{
		Targeting: Targeting{
			Limit:    DefaultLimit,
			Archived: "include",
			Forks:    "include",
		},
		Clone: Clone{
			Protocol: "https",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: DefaultConcurrency,
		},
	}
}

func (c *Config) Validate() error {
	c.Targeting.Include = splitCommaList(c.Targeting.Include)
	c.Targeting.Exclude = splitCommaList(c.Targeting.Exclude)

	// Targeting validation
	if strings.TrimSpace(c.Targeting.Owner) == "" {
		return errors.New("owner is required (use --owner or pass it as the first argument)")
	}
	owner, err := NormalizeOwner(c.Targeting.Owner)
	if err != nil {
		return fmt.Errorf("invalid --owner value: %w", err)
	}
	c.Targeting.Owner = owner

	if c.Targeting.Limit < 1 {
		return fmt.Errorf("--limit must be >= 1, got %d", c.Targeting.Limit)
	}
	for _, p := range append(append([]string{}, c.Targeting.Include...), c.Targeting.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	c.Targeting.Archived = normalizeEnumValue(c.Targeting.Archived)
	if c.Targeting.Archived == "" {
		c.Targeting.Archived = "include"
	}
	if c.Targeting.Archived != "include" && c.Targeting.Archived != "exclude" && c.Targeting.Archived != "only" {
		return fmt.Errorf("unsupported --archived: %s (must be one of: include, exclude, only)", c.Targeting.Archived)
	}

	c.Targeting.Forks = normalizeEnumValue(c.Targeting.Forks)
	if c.Targeting.Forks == "" {
		c.Targeting.Forks = "include"
	}
	if c.Targeting.Forks != "include" && c.Targeting.Forks != "exclude" && c.Targeting.Forks != "only" {
		return fmt.Errorf("unsupported --forks: %s (must be one of: include, exclude, only)", c.Targeting.Forks)
	}

	// Clone validation
	if c.Clone.Depth < 0 {
		return fmt.Errorf("--depth must be >= 0 (0 = full history), got %d", c.Clone.Depth)
	}
	c.Clone.Protocol = normalizeEnumValue(c.Clone.Protocol)
	if c.Clone.Protocol == "" {
		c.Clone.Protocol = "https"
	}
	if c.Clone.Protocol != "https" && c.Clone.Protocol != "ssh" {
		return fmt.Errorf("unsupported --protocol: %s (must be one of: https, ssh)", c.Clone.Protocol)
	}

	// Auth validation
	appSet := 0
	for _, v := range []string{c.Auth.AppID, c.Auth.AppInstallationID, c.Auth.AppPrivateKey} {
		if strings.TrimSpace(v) != "" {
			appSet++
		}
	}
	if appSet != 0 && appSet != 3 {
		return errors.New("--app-id, --app-installation-id and --app-private-key must be provided together")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, ndjson)", c.Output.ConsoleFormat)
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency < 1 {
		return fmt.Errorf("--concurrency must be >= 1, got %d", c.Runtime.Concurrency)
	}

	return nil
}

// AppAuth reports whether GitHub App credentials were supplied.
func (c *Config) AppAuth() bool {
	return c.Auth.AppID != "" && c.Auth.AppInstallationID != "" && c.Auth.AppPrivateKey != ""
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeOwner accepts a raw account name, or a GitHub URL like:
//
//	https://github.com/<name>
//	https://github.com/orgs/<name>
//	https://github.com/users/<name>
//	github.com/<name>
func NormalizeOwner(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty owner")
	}
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", fmt.Errorf("%q", raw)
		}
		if parts[0] == "orgs" || parts[0] == "users" {
			if len(parts) < 2 {
				return "", fmt.Errorf("%q", raw)
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious owner/repo or path-like inputs.
	if strings.ContainsAny(raw, "/\\ ") {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
