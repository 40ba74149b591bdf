package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v61/github"
	"github.com/rs/zerolog/log"

	"github.com/ahmednasr/firstcommit/internal/models"
)

const unknownAuthor = "unknown"

const discussionsQuery = `query($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    discussions(first: 100) {
      nodes {
        id
        title
        body
        url
        author { login }
        createdAt
        number
        comments(first: 100) {
          nodes {
            id
            body
            author { login }
            createdAt
          }
        }
      }
    }
  }
}`

// FetchDiscussions returns every issue, pull request and discussion thread
// of the repository, each with its comments flattened in. Issues and pull
// requests are required; discussions are optional because many repositories
// have them disabled, so a failure there yields no discussion threads rather
// than an error.
func (c *Client) FetchDiscussions(ctx context.Context, owner, repo, token string) ([]models.Discussion, error) {
	client := c.api(ctx, token)

	issues, err := c.fetchIssues(ctx, client, owner, repo)
	if err != nil {
		return nil, err
	}
	prs, err := c.fetchPullRequests(ctx, client, owner, repo)
	if err != nil {
		return nil, err
	}

	out := make([]models.Discussion, 0, len(issues)+len(prs))
	out = append(out, issues...)
	out = append(out, prs...)

	threads, err := c.fetchDiscussionThreads(ctx, client, owner, repo)
	if err != nil {
		log.Warn().Err(err).Str("repo", owner+"/"+repo).Msg("repository might not have discussions enabled")
	} else {
		out = append(out, threads...)
	}

	log.Info().
		Str("repo", owner+"/"+repo).
		Int("issues", len(issues)).
		Int("pull_requests", len(prs)).
		Int("discussions", len(threads)).
		Msg("fetched repository discussions")
	return out, nil
}

// paginate calls list for successive pages until the last page or the
// configured page limit is reached.
func paginate[T any](ctx context.Context, maxPages int, list func(gh.ListOptions) ([]T, *gh.Response, error)) ([]T, error) {
	var all []T
	opts := gh.ListOptions{PerPage: perPage, Page: 1}
	for i := 0; i < maxPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, resp, err := list(opts)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func login(u *gh.User) string {
	if u.GetLogin() == "" {
		return unknownAuthor
	}
	return u.GetLogin()
}

func (c *Client) issueComments(ctx context.Context, client *gh.Client, owner, repo string, number int, prefix string) ([]models.Comment, error) {
	comments, err := paginate(ctx, c.maxPages, func(o gh.ListOptions) ([]*gh.IssueComment, *gh.Response, error) {
		return client.Issues.ListComments(ctx, owner, repo, number, &gh.IssueListCommentsOptions{ListOptions: o})
	})
	if err != nil {
		return nil, classify(fmt.Sprintf("list comments of #%d", number), err)
	}
	out := make([]models.Comment, 0, len(comments))
	for _, cm := range comments {
		out = append(out, models.Comment{
			ID:        fmt.Sprintf("%s_%d", prefix, cm.GetID()),
			Body:      cm.GetBody(),
			Author:    login(cm.GetUser()),
			CreatedAt: cm.GetCreatedAt().Time,
		})
	}
	return out, nil
}

func (c *Client) fetchIssues(ctx context.Context, client *gh.Client, owner, repo string) ([]models.Discussion, error) {
	issues, err := paginate(ctx, c.maxPages, func(o gh.ListOptions) ([]*gh.Issue, *gh.Response, error) {
		return client.Issues.ListByRepo(ctx, owner, repo, &gh.IssueListByRepoOptions{State: "all", ListOptions: o})
	})
	if err != nil {
		return nil, classify("list issues", err)
	}

	var out []models.Discussion
	for _, is := range issues {
		// pull requests show up in the issues list too
		if is.IsPullRequest() {
			continue
		}
		comments, err := c.issueComments(ctx, client, owner, repo, is.GetNumber(), "comment")
		if err != nil {
			return nil, err
		}
		out = append(out, models.Discussion{
			ID:        fmt.Sprintf("issue_%d", is.GetID()),
			Title:     is.GetTitle(),
			Body:      is.GetBody(),
			URL:       is.GetHTMLURL(),
			Author:    login(is.GetUser()),
			CreatedAt: is.GetCreatedAt().Time,
			Kind:      models.DiscussionIssue,
			Number:    is.GetNumber(),
			Comments:  comments,
		})
	}
	return out, nil
}

func (c *Client) fetchPullRequests(ctx context.Context, client *gh.Client, owner, repo string) ([]models.Discussion, error) {
	prs, err := paginate(ctx, c.maxPages, func(o gh.ListOptions) ([]*gh.PullRequest, *gh.Response, error) {
		return client.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{State: "all", ListOptions: o})
	})
	if err != nil {
		return nil, classify("list pull requests", err)
	}

	var out []models.Discussion
	for _, pr := range prs {
		number := pr.GetNumber()
		reviews, err := paginate(ctx, c.maxPages, func(o gh.ListOptions) ([]*gh.PullRequestComment, *gh.Response, error) {
			return client.PullRequests.ListComments(ctx, owner, repo, number, &gh.PullRequestListCommentsOptions{ListOptions: o})
		})
		if err != nil {
			return nil, classify(fmt.Sprintf("list review comments of #%d", number), err)
		}
		comments := make([]models.Comment, 0, len(reviews))
		for _, rc := range reviews {
			comments = append(comments, models.Comment{
				ID:        fmt.Sprintf("review_comment_%d", rc.GetID()),
				Body:      rc.GetBody(),
				Author:    login(rc.GetUser()),
				CreatedAt: rc.GetCreatedAt().Time,
			})
		}
		thread, err := c.issueComments(ctx, client, owner, repo, number, "issue_comment")
		if err != nil {
			return nil, err
		}
		comments = append(comments, thread...)

		out = append(out, models.Discussion{
			ID:        fmt.Sprintf("pr_%d", pr.GetID()),
			Title:     pr.GetTitle(),
			Body:      pr.GetBody(),
			URL:       pr.GetHTMLURL(),
			Author:    login(pr.GetUser()),
			CreatedAt: pr.GetCreatedAt().Time,
			Kind:      models.DiscussionPR,
			Number:    number,
			Comments:  comments,
		})
	}
	return out, nil
}

type graphQLAuthor struct {
	Login string `json:"login"`
}

func (a *graphQLAuthor) name() string {
	if a == nil || a.Login == "" {
		return unknownAuthor
	}
	return a.Login
}

type graphQLDiscussions struct {
	Data struct {
		Repository *struct {
			Discussions struct {
				Nodes []struct {
					ID        string         `json:"id"`
					Title     string         `json:"title"`
					Body      string         `json:"body"`
					URL       string         `json:"url"`
					Author    *graphQLAuthor `json:"author"`
					CreatedAt time.Time      `json:"createdAt"`
					Number    int            `json:"number"`
					Comments  struct {
						Nodes []struct {
							ID        string         `json:"id"`
							Body      string         `json:"body"`
							Author    *graphQLAuthor `json:"author"`
							CreatedAt time.Time      `json:"createdAt"`
						} `json:"nodes"`
					} `json:"comments"`
				} `json:"nodes"`
			} `json:"discussions"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// fetchDiscussionThreads reads the first 100 discussions (with up to 100
// comments each) through the GraphQL API, which is the only API exposing
// them.
func (c *Client) fetchDiscussionThreads(ctx context.Context, client *gh.Client, owner, repo string) ([]models.Discussion, error) {
	body := map[string]any{
		"query":     discussionsQuery,
		"variables": map[string]string{"owner": owner, "name": repo},
	}
	req, err := client.NewRequest(http.MethodPost, "graphql", body)
	if err != nil {
		return nil, classify("discussions", err)
	}
	var res graphQLDiscussions
	if _, err := client.Do(ctx, req, &res); err != nil {
		return nil, classify("discussions", err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("github: discussions: %s", res.Errors[0].Message)
	}
	if res.Data.Repository == nil {
		return nil, fmt.Errorf("github: discussions: repository missing from response")
	}

	var out []models.Discussion
	for _, d := range res.Data.Repository.Discussions.Nodes {
		comments := make([]models.Comment, 0, len(d.Comments.Nodes))
		for _, cm := range d.Comments.Nodes {
			comments = append(comments, models.Comment{
				ID:        "discussion_comment_" + cm.ID,
				Body:      cm.Body,
				Author:    cm.Author.name(),
				CreatedAt: cm.CreatedAt,
			})
		}
		out = append(out, models.Discussion{
			ID:        "discussion_" + d.ID,
			Title:     d.Title,
			Body:      d.Body,
			URL:       d.URL,
			Author:    d.Author.name(),
			CreatedAt: d.CreatedAt,
			Kind:      models.DiscussionForum,
			Number:    d.Number,
			Comments:  comments,
		})
	}
	return out, nil
}
