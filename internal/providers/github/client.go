// Package github wraps the GitHub REST API calls used by the report jobs.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v61/github"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/platops/status-reports/internal/providers/fetch"
)

// Client is a thin wrapper over go-github with retries.
type Client struct {
	gh      *gh.Client
	backoff wait.Backoff
}

// New returns a client. token may be empty for anonymous access. baseURL
// overrides the API root (tests, GitHub Enterprise); empty uses api.github.com.
func New(token, baseURL string, httpClient *http.Client, attempts int) (*Client, error) {
	c := gh.NewClient(httpClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url %q: %w", baseURL, err)
		}
		c.BaseURL = u
	}
	return &Client{gh: c, backoff: fetch.DefaultBackoff(attempts)}, nil
}

// LatestTag returns the first tag listed for owner/repo whose name does not
// contain exclude (case-insensitive), with any leading "v" removed. GitHub
// lists tags newest first.
func (c *Client) LatestTag(ctx context.Context, owner, repo, exclude string) (string, error) {
	exclude = strings.ToLower(exclude)
	opts := &gh.ListOptions{PerPage: 100}
	for {
		var (
			tags []*gh.RepositoryTag
			resp *gh.Response
		)
		err := c.do(func() error {
			var err error
			tags, resp, err = c.gh.Repositories.ListTags(ctx, owner, repo, opts)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("list tags of %s/%s: %w", owner, repo, err)
		}
		for _, t := range tags {
			name := t.GetName()
			if exclude != "" && strings.Contains(strings.ToLower(name), exclude) {
				continue
			}
			return strings.TrimPrefix(name, "v"), nil
		}
		if resp == nil || resp.NextPage == 0 {
			return "", fmt.Errorf("list tags of %s/%s: no matching tag", owner, repo)
		}
		opts.Page = resp.NextPage
	}
}

// PullRequest is an open pull request returned by issue search.
type PullRequest struct {
	Repository string
	Number     int
	Title      string
	URL        string
	Labels     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SearchPullRequests runs an issue search (e.g. "is:pr is:open org:hmcts")
// and returns every page of results.
func (c *Client) SearchPullRequests(ctx context.Context, query string) ([]PullRequest, error) {
	opts := &gh.SearchOptions{Sort: "created", Order: "asc", ListOptions: gh.ListOptions{PerPage: 100}}
	var out []PullRequest
	for {
		var (
			res  *gh.IssuesSearchResult
			resp *gh.Response
		)
		err := c.do(func() error {
			var err error
			res, resp, err = c.gh.Search.Issues(ctx, query, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		for _, is := range res.Issues {
			pr := PullRequest{
				Repository: repoFromAPIURL(is.GetRepositoryURL()),
				Number:     is.GetNumber(),
				Title:      is.GetTitle(),
				URL:        is.GetHTMLURL(),
				CreatedAt:  is.GetCreatedAt().Time,
				UpdatedAt:  is.GetUpdatedAt().Time,
				Labels:     []string{},
			}
			for _, l := range is.Labels {
				pr.Labels = append(pr.Labels, l.GetName())
			}
			out = append(out, pr)
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// repoFromAPIURL turns ".../repos/hmcts/cnp-plum" into "hmcts/cnp-plum".
func repoFromAPIURL(u string) string {
	if _, after, ok := strings.Cut(u, "/repos/"); ok {
		return after
	}
	return u
}

func (c *Client) do(fn func() error) error {
	return retry.OnError(c.backoff, retriable, fn)
}

// retriable retries secondary rate limits and server errors. Primary rate
// limit exhaustion is not retried; the reset may be an hour away.
func retriable(err error) bool {
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return true
	}
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode >= 500
	}
	return false
}
