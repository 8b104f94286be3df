package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"

	"github.com/ahmednasr/repo-recommender/server/internal/models"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
)

// DefaultBaseURL is the public GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

// unknownLanguage replaces a null language in search results.
const unknownLanguage = "Not specified"

const perPage = 100

// SearchQuery selects repositories by topic and star range. MaxStars of zero
// means no upper bound.
type SearchQuery struct {
	Tags     []string
	MinStars int
	MaxStars int
}

// String renders the GitHub search qualifier string, e.g. "stars:>=10 topic:go".
func (q SearchQuery) String() string {
	var b strings.Builder
	if q.MaxStars > 0 {
		fmt.Fprintf(&b, "stars:%d..%d", q.MinStars, q.MaxStars)
	} else {
		fmt.Fprintf(&b, "stars:>=%d", q.MinStars)
	}
	for _, t := range q.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		b.WriteString(" topic:")
		b.WriteString(t)
	}
	return b.String()
}

// ParseTags splits a comma separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Options configure a Client. Zero values fall back to sensible defaults.
type Options struct {
	BaseURL    string
	Token      string
	RatePerSec float64
	Timeout    time.Duration
}

// Client is a minimal wrapper around GitHub's repository search endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

// NewClient returns a ready-to-use GitHub API client.
// An empty token works, but you will be subject to very low rate-limits.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.Token,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// SearchRepositories returns up to 100 repositories matching q, most starred
// first. Every failure is reported as recommender.ErrUpstreamUnavailable.
func (c *Client) SearchRepositories(ctx context.Context, q SearchQuery) ([]models.Repository, error) {
	query := q.String()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(recommender.ErrUpstreamUnavailable, "github rate limiter", goerr.V("query", query), goerr.V("cause", err.Error()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/repositories", nil)
	if err != nil {
		return nil, goerr.Wrap(recommender.ErrUpstreamUnavailable, "build github request", goerr.V("cause", err.Error()))
	}
	params := req.URL.Query()
	params.Set("q", query)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", strconv.Itoa(perPage))
	req.URL.RawQuery = params.Encode()

	c.addHeaders(req)

	var result models.SearchResult
	if err := c.do(req, &result); err != nil {
		return nil, goerr.Wrap(recommender.ErrUpstreamUnavailable, "github repository search", goerr.V("query", query), goerr.V("cause", err.Error()))
	}

	repos := make([]models.Repository, 0, len(result.Items))
	for _, item := range result.Items {
		repos = append(repos, toRepository(item))
	}
	return repos, nil
}

func toRepository(item models.SearchItem) models.Repository {
	r := models.Repository{
		Name:     item.Name,
		URL:      item.HTMLURL,
		Stars:    item.StargazersCount,
		Language: unknownLanguage,
		Topics:   item.Topics,
	}
	if item.Description != nil {
		r.Description = *item.Description
	}
	if item.Language != nil && *item.Language != "" {
		r.Language = *item.Language
	}
	if r.Topics == nil {
		r.Topics = []string{}
	}
	if ts, err := time.Parse(time.RFC3339, item.UpdatedAt); err == nil {
		r.LastUpdated = ts
	}
	return r
}

// addHeaders sets authentication and Accept headers.
func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "repo-recommender-api")
}

// do executes the HTTP request and decodes JSON into v.
func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
