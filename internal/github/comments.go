package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const commentsPerPage = 100

type IssueComment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

type searchResult struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Number int `json:"number"`
	} `json:"items"`
}

// FindPullRequest searches the pull request of this repository containing
// sha. It returns 0 when there is none.
func (c *Client) FindPullRequest(ctx context.Context, sha string) (int, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("repo:%s/%s is:pr %s", c.owner, c.repo, sha))
	out := searchResult{}
	if err := c.do(ctx, "GET", "/search/issues", q, nil, &out); err != nil {
		return 0, err
	}
	if len(out.Items) == 0 {
		return 0, nil
	}
	return out.Items[0].Number, nil
}

// ListComments returns every comment of an issue or pull request, oldest
// first.
func (c *Client) ListComments(ctx context.Context, number int) ([]IssueComment, error) {
	comments := []IssueComment{}
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(commentsPerPage))
		q.Set("page", strconv.Itoa(page))
		out := []IssueComment{}
		if err := c.do(ctx, "GET", c.repoPath("/issues/%d/comments", number), q, nil, &out); err != nil {
			return nil, err
		}
		comments = append(comments, out...)
		if len(out) < commentsPerPage {
			return comments, nil
		}
	}
}

func (c *Client) CreateComment(ctx context.Context, number int, body string) error {
	return c.do(ctx, "POST", c.repoPath("/issues/%d/comments", number), nil, map[string]string{"body": body}, nil)
}

func (c *Client) UpdateComment(ctx context.Context, id int64, body string) error {
	return c.do(ctx, "PATCH", c.repoPath("/issues/comments/%d", id), nil, map[string]string{"body": body}, nil)
}
