package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v81/github"

	"repoclone/internal/errkind"
	gh "repoclone/internal/github"
)

// Lister enumerates the repositories of an owner.
type Lister interface {
	// ListRepos returns at most limit repository names in forge order, or a
	// forge-unavailable, auth or owner-not-found error.
	ListRepos(ctx context.Context, owner string, limit int) ([]string, error)
}

// GitHubLister lists repositories through the GitHub REST API.
type GitHubLister struct {
	Client *gh.Client
	// Filter is applied while paging, so filtered-out repositories do not
	// count against the limit.
	Filter Filter
}

type listPage func(ctx context.Context, opts github.ListOptions) ([]*github.Repository, *github.Response, error)

func (l *GitHubLister) ListRepos(ctx context.Context, owner string, limit int) ([]string, error) {
	if l == nil || l.Client == nil || l.Client.Client == nil {
		return nil, errkind.New(errkind.KindConfig, "list repositories", fmt.Errorf("github client is nil"))
	}
	if limit < 1 {
		return nil, errkind.New(errkind.KindConfig, "list repositories", fmt.Errorf("limit must be >= 1, got %d", limit))
	}

	account, _, err := l.Client.Client.Users.Get(ctx, owner)
	if err != nil {
		return nil, classifyForgeError(fmt.Sprintf("look up owner %q", owner), err)
	}
	login := account.GetLogin()
	if login == "" {
		login = owner
	}

	op := fmt.Sprintf("list repositories of %s", login)
	names, err := collectNames(ctx, l.pagerFor(ctx, account, login), limit, l.Filter)
	if err != nil {
		return nil, classifyForgeError(op, err)
	}
	return names, nil
}

func (l *GitHubLister) pagerFor(ctx context.Context, account *github.User, login string) listPage {
	repos := l.Client.Client.Repositories

	if account.GetType() == "Organization" {
		return func(ctx context.Context, lo github.ListOptions) ([]*github.Repository, *github.Response, error) {
			return repos.ListByOrg(ctx, login, &github.RepositoryListByOrgOptions{Type: "all", ListOptions: lo})
		}
	}

	// The authenticated endpoint is the only one that returns the caller's
	// private repositories.
	if l.isAuthenticatedAs(ctx, login) {
		return func(ctx context.Context, lo github.ListOptions) ([]*github.Repository, *github.Response, error) {
			return repos.ListByAuthenticatedUser(ctx, &github.RepositoryListByAuthenticatedUserOptions{
				Visibility:  "all",
				Affiliation: "owner",
				ListOptions: lo,
			})
		}
	}

	return func(ctx context.Context, lo github.ListOptions) ([]*github.Repository, *github.Response, error) {
		return repos.ListByUser(ctx, login, &github.RepositoryListByUserOptions{Type: "owner", ListOptions: lo})
	}
}

func (l *GitHubLister) isAuthenticatedAs(ctx context.Context, login string) bool {
	if !l.Client.Authenticated {
		return false
	}
	me, _, err := l.Client.Client.Users.Get(ctx, "")
	if err != nil {
		// App installation tokens cannot call /user; fall back to the public listing.
		return false
	}
	return strings.EqualFold(me.GetLogin(), login)
}

func collectNames(ctx context.Context, page listPage, limit int, filter Filter) ([]string, error) {
	names := make([]string, 0, min(limit, 100))
	seen := make(map[string]struct{}, min(limit, 100))

	opts := github.ListOptions{PerPage: min(limit, 100)}
	for {
		repos, resp, err := page(ctx, opts)
		if err != nil {
			return nil, err
		}
		for _, repo := range repos {
			if len(names) >= limit {
				break
			}
			name := repo.GetName()
			if !validRepoName(name) || !filter.Allows(repo) {
				continue
			}
			key := strings.ToLower(name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, name)
		}
		if len(names) >= limit {
			break
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// validRepoName rejects names that would not map to a single directory
// under the base directory.
func validRepoName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
