package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/hireable/pkg/eval"
	"github.com/mchmarny/hireable/pkg/scoring"
	"golang.org/x/sync/errgroup"
)

const (
	MaxReposDefault       = 300
	ReadmeSampleDefault   = 3
	ReadmeMaxCharsDefault = 2000

	SearchLimitDefault = 30

	pageSize          = 100
	readmeConcurrency = 4
)

// ErrCandidateNotFound is returned when GitHub has no such user.
var ErrCandidateNotFound = errors.New("candidate not found")

// CandidateSource retrieves a developer by username.
type CandidateSource interface {
	GetCandidate(ctx context.Context, username string) (*Candidate, error)
}

// FetchOptions bounds how much is retrieved per candidate.
type FetchOptions struct {
	MaxRepos       int
	ReadmeSample   int
	ReadmeMaxChars int
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.MaxRepos <= 0 {
		o.MaxRepos = MaxReposDefault
	}
	if o.ReadmeSample < 0 {
		o.ReadmeSample = 0
	}
	if o.ReadmeMaxChars <= 0 {
		o.ReadmeMaxChars = ReadmeMaxCharsDefault
	}
	return o
}

// GitHubSource reads candidates from the GitHub REST API.
type GitHubSource struct {
	client *github.Client
	opts   FetchOptions
}

// NewGitHubSource wraps an (optionally authenticated) HTTP client.
func NewGitHubSource(client *http.Client, opts FetchOptions) *GitHubSource {
	return &GitHubSource{
		client: github.NewClient(client),
		opts:   opts.withDefaults(),
	}
}

// GetCandidate loads the profile, owned repositories and a README sample.
func (s *GitHubSource) GetCandidate(ctx context.Context, username string) (*Candidate, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}

	usr, resp, err := s.client.Users.Get(ctx, username)
	if err != nil {
		var ge *github.ErrorResponse
		if errors.As(err, &ge) && ge.Response != nil && ge.Response.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, username)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	slog.Debug("got user", "username", username, "rate", rateInfo(&resp.Rate))
	if err := checkRateLimit(ctx, resp); err != nil {
		return nil, err
	}

	c := mapUserToCandidate(usr)

	repos, err := s.listRepos(ctx, c.Profile.Login)
	if err != nil {
		return nil, err
	}
	c.Repos = repos

	c.Readmes = s.sampleReadmes(ctx, c.Profile.Login, repos)

	slog.Debug("candidate retrieved",
		"username", c.Profile.Login,
		"repos", len(c.Repos),
		"readmes", len(c.Readmes),
	)

	return c, nil
}

// CandidateListItem is one user search hit.
type CandidateListItem struct {
	Username  string `json:"username" yaml:"username"`
	AvatarURL string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
}

// SearchCandidates runs a GitHub user search (e.g. "language:go
// location:lisbon followers:>50") and returns up to limit logins.
func (s *GitHubSource) SearchCandidates(ctx context.Context, query string, limit int) ([]*CandidateListItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	if limit <= 0 {
		limit = SearchLimitDefault
	}
	limit = min(limit, pageSize)

	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{
			PerPage: limit,
		},
	}
	res, resp, err := s.client.Search.Users(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search users for %q: %w", query, err)
	}

	slog.Debug("user search",
		"query", query,
		"matched", res.GetTotal(),
		"incomplete", res.GetIncompleteResults(),
		"returned", len(res.Users),
		"rate", rateInfo(&resp.Rate),
	)

	list := make([]*CandidateListItem, 0, len(res.Users))
	for _, u := range res.Users {
		if u == nil || u.GetLogin() == "" {
			continue
		}
		list = append(list, &CandidateListItem{
			Username:  u.GetLogin(),
			AvatarURL: u.GetAvatarURL(),
			URL:       u.GetHTMLURL(),
		})
		if len(list) == limit {
			break
		}
	}

	return list, nil
}

func (s *GitHubSource) listRepos(ctx context.Context, username string) ([]scoring.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		Type:      "owner",
		Sort:      "pushed",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: pageSize,
		},
	}

	list := make([]scoring.Repository, 0)
	for {
		page, resp, err := s.client.Repositories.ListByUser(ctx, username, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for %s: %w", username, err)
		}

		for _, r := range page {
			if r == nil {
				continue
			}
			list = append(list, mapRepository(r))
			if len(list) >= s.opts.MaxRepos {
				slog.Debug("repository cap reached", "username", username, "max", s.opts.MaxRepos)
				return list, nil
			}
		}

		if err := checkRateLimit(ctx, resp); err != nil {
			return nil, err
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return list, nil
}

// sampleReadmes fetches READMEs of the most starred originals in parallel.
// Missing or unreadable READMEs are skipped.
func (s *GitHubSource) sampleReadmes(ctx context.Context, owner string, repos []scoring.Repository) []eval.Excerpt {
	names := readmeCandidates(repos, s.opts.ReadmeSample)
	if len(names) == 0 {
		return nil
	}

	results := make([]*eval.Excerpt, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readmeConcurrency)

	for i, name := range names {
		g.Go(func() error {
			content, _, err := s.client.Repositories.GetReadme(gctx, owner, name, nil)
			if err != nil {
				slog.Debug("readme not available", "repo", name, "error", err)
				return nil
			}
			text, err := content.GetContent()
			if err != nil {
				slog.Debug("readme not decodable", "repo", name, "error", err)
				return nil
			}
			results[i] = &eval.Excerpt{Repo: name, Text: truncate(text, s.opts.ReadmeMaxChars)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Debug("readme sampling interrupted", "error", err)
	}

	list := make([]eval.Excerpt, 0, len(results))
	for _, r := range results {
		if r != nil {
			list = append(list, *r)
		}
	}
	return list
}

// readmeCandidates returns up to n original repository names by stars.
func readmeCandidates(repos []scoring.Repository, n int) []string {
	if n <= 0 {
		return nil
	}

	originals := make([]scoring.Repository, 0, len(repos))
	for _, r := range repos {
		if !r.Fork {
			originals = append(originals, r)
		}
	}

	sort.SliceStable(originals, func(i, j int) bool {
		return originals[i].Stars > originals[j].Stars
	})

	names := make([]string, 0, n)
	for _, r := range originals {
		if len(names) == n {
			break
		}
		names = append(names, r.Name)
	}
	return names
}

func mapUserToCandidate(u *github.User) *Candidate {
	return &Candidate{
		Profile: scoring.Profile{
			Login:     trim(u.Login),
			CreatedAt: u.GetCreatedAt().Time.UTC(),
			Followers: u.GetFollowers(),
		},
		Name:        trim(u.Name),
		AvatarURL:   trim(u.AvatarURL),
		Bio:         strings.TrimSpace(u.GetBio()),
		Location:    trim(u.Location),
		Following:   u.GetFollowing(),
		PublicRepos: u.GetPublicRepos(),
	}
}

func mapRepository(r *github.Repository) scoring.Repository {
	return scoring.Repository{
		Name:        r.GetName(),
		Description: strings.TrimSpace(r.GetDescription()),
		Stars:       r.GetStargazersCount(),
		Language:    r.GetLanguage(),
		PushedAt:    r.GetPushedAt().Time.UTC(),
		Size:        r.GetSize(),
		Fork:        r.GetFork(),
		HasIssues:   r.GetHasIssues(),
		HasProjects: r.GetHasProjects(),
		HasPages:    r.GetHasPages(),
	}
}

func trim(s *string) string {
	if s != nil {
		return strings.TrimSpace(*s)
	}
	return ""
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
