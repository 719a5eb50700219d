package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultRetryMax       = 3
	defaultConnTimeoutSec = 30
	acceptHeader          = "application/vnd.github+json"
	apiVersionHeader      = "2022-11-28"
)

// APIError is a non successful response of the REST API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

// Client is a minimal GitHub REST client scoped to one repository.
type Client struct {
	baseURL string
	token   string
	owner   string
	repo    string
	client  *retryablehttp.Client
}

// NewClient creates a client for repository ("owner/name"). Transient
// transport errors and 5xx responses are retried.
func NewClient(baseURL, token, repository string) (*Client, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository %q, expected owner/name", repository)
	}
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = defaultRetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.HTTPClient.Timeout = defaultConnTimeoutSec * time.Second
	retryLogger := log.New()
	retryLogger.SetLevel(log.WarnLevel)
	retryClient.Logger = retryLogger

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		owner:   owner,
		repo:    repo,
		client:  retryClient,
	}, nil
}

func (c *Client) repoPath(format string, args ...interface{}) string {
	return fmt.Sprintf("/repos/%s/%s", c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// do sends in as the JSON body, when set, and decodes the response into out,
// when set.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "unable to encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrap(err, "error creating request")
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Debugf("%s %s", method, u)
	res, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error sending request to %s", u)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "error reading response body")
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Method: method, URL: u, StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		msg := struct {
			Message string `json:"message"`
		}{}
		if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "unable to decode response of %s", u)
	}
	return nil
}
