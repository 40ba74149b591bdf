// Package github wraps the GitHub REST and GraphQL APIs with just the calls
// the ingestion pipeline needs: repository metadata, the source archive and
// discussion threads. Every call takes the end user's token, so one Client
// serves all users.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v61/github"
	"golang.org/x/oauth2"

	"github.com/ahmednasr/firstcommit/internal/httpclient"
	"github.com/ahmednasr/firstcommit/internal/models"
)

const perPage = 100

// Options configures a Client.
type Options struct {
	// BaseURL is the REST API root; empty means https://api.github.com/.
	BaseURL string
	// MaxPages bounds pagination of list endpoints. Zero means 3.
	MaxPages int
	// RetryMax is the retry budget for transient transport failures.
	RetryMax int
}

// Client is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	maxPages int
	http     *http.Client
}

// NewClient returns a ready-to-use GitHub API client.
func NewClient(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = "https://api.github.com/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("github: parse base url: %w", err)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 3
	}
	return &Client{
		baseURL:  u,
		maxPages: opts.MaxPages,
		http:     httpclient.NewStandardClient(opts.RetryMax, 0),
	}, nil
}

// api builds a go-github client authenticated as the caller.
func (c *Client) api(ctx context.Context, token string) *gh.Client {
	base := c.http
	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
		base = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	client := gh.NewClient(base)
	client.BaseURL = c.baseURL
	client.UserAgent = "firstcommit-ingest"
	return client
}

// GetMetadata looks the repository up on GitHub.
func (c *Client) GetMetadata(ctx context.Context, owner, repo, token string) (models.RepoMetadata, error) {
	r, _, err := c.api(ctx, token).Repositories.Get(ctx, owner, repo)
	if err != nil {
		return models.RepoMetadata{}, classify("get repository", err)
	}
	return models.RepoMetadata{
		GitHubID:      r.GetID(),
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.GetDescription(),
		DefaultBranch: r.GetDefaultBranch(),
		IsPrivate:     r.GetPrivate(),
		StarsCount:    r.GetStargazersCount(),
	}, nil
}

// DownloadArchive streams the zipball of HEAD into w, following the
// redirect to the download host.
func (c *Client) DownloadArchive(ctx context.Context, owner, repo, token string, w io.Writer) error {
	client := c.api(ctx, token)
	req, err := client.NewRequest(http.MethodGet, fmt.Sprintf("repos/%s/%s/zipball/HEAD", owner, repo), nil)
	if err != nil {
		return classify("download archive", err)
	}
	resp, err := client.BareDo(ctx, req)
	if err != nil {
		return classify("download archive", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("github: download archive: %w", err)
	}
	return nil
}
