package engine

import (
	"path"
	"strings"

	"github.com/google/go-github/v81/github"

	"repoclone/internal/config"
)

// Filter selects which listed repositories are cloned. The zero value keeps
// everything.
type Filter struct {
	// Include keeps only names matching at least one pattern (path.Match).
	Include []string
	// Exclude drops names matching any pattern.
	Exclude []string
	// Archived and Forks are include (or empty), exclude or only.
	Archived string
	Forks    string
}

// FilterFromConfig returns the filter for cfg. A nil cfg keeps every repository.
func FilterFromConfig(cfg *config.Config) Filter {
	if cfg == nil {
		return Filter{}
	}
	return Filter{
		Include:  cfg.Targeting.Include,
		Exclude:  cfg.Targeting.Exclude,
		Archived: cfg.Targeting.Archived,
		Forks:    cfg.Targeting.Forks,
	}
}

func (f Filter) Allows(r *github.Repository) bool {
	if !allowsPolicy(f.Archived, r.GetArchived()) {
		return false
	}
	if !allowsPolicy(f.Forks, r.GetFork()) {
		return false
	}

	name := r.GetName()
	if len(f.Include) > 0 && !matchesAnyPattern(f.Include, name) {
		return false
	}
	if len(f.Exclude) > 0 && matchesAnyPattern(f.Exclude, name) {
		return false
	}
	return true
}

func allowsPolicy(policy string, flagged bool) bool {
	switch strings.TrimSpace(policy) {
	case "exclude":
		return !flagged
	case "only":
		return flagged
	default:
		return true
	}
}

func matchesAnyPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if matched, _ := path.Match(p, name); matched {
			return true
		}
	}
	return false
}
