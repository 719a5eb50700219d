package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultConnTimeoutSec       = 30
	defaultMaxIdleConns         = 100
	defaultMaxConnsPerHost      = 100
	defaultMaxIddleConnsPerHost = 100
	DefaultBaseURL              = "https://api.testim.io"
	apiPathTests                = "/tests"
)

// Status is the lifecycle state a test carries in the registry.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusQuarantine Status = "quarantine"
	StatusEvaluating Status = "evaluating"
)

// TestRecord is one test item returned by the registry.
type TestRecord struct {
	ID         string `json:"id"`
	TestStatus Status `json:"testStatus"`
}

// TestsResponse is the payload returned by the API endpoint /tests
type TestsResponse struct {
	Tests []TestRecord `json:"tests"`
	Error string       `json:"error,omitempty"`
}

// RemoteLookupError is returned when the registry could not serve the tests of
// a project branch.
type RemoteLookupError struct {
	ProjectID string
	Branch    string
	Message   string
	Err       error
}

func (e *RemoteLookupError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("test registry lookup for project %s branch %s failed: %s", e.ProjectID, e.Branch, msg)
}

func (e *RemoteLookupError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves the tests of a project branch using the project credential.
type Fetcher interface {
	FetchTests(ctx context.Context, projectID, branch, token string) ([]TestRecord, error)
}

// Client is the registry API structure holding the HTTP client.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a new API client setting the http attributes to improve the
// connection reuse.
func NewClient(baseURL string) *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = defaultMaxIdleConns
	t.MaxConnsPerHost = defaultMaxConnsPerHost
	t.MaxIdleConnsPerHost = defaultMaxIddleConnsPerHost

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   defaultConnTimeoutSec * time.Second,
			Transport: t,
		},
	}
}

// FetchTests queries the tests of a branch including their lifecycle status.
func (c *Client) FetchTests(ctx context.Context, projectID, branch, token string) ([]TestRecord, error) {
	lookupErr := func(err error, msg string) error {
		return &RemoteLookupError{ProjectID: projectID, Branch: branch, Message: msg, Err: err}
	}

	baseUrl, err := url.Parse(c.baseURL + apiPathTests)
	if err != nil {
		return nil, lookupErr(err, "malformed URL")
	}
	params := url.Values{}
	params.Add("branch", branch)
	params.Add("includeTestStatus", "true")
	baseUrl.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseUrl.String(), nil)
	if err != nil {
		return nil, lookupErr(err, "couldn't create the request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	log.WithField("project", projectID).Debugf("Fetching test statuses for branch %s", branch)
	res, err := c.client.Do(req)
	if err != nil {
		return nil, lookupErr(fmt.Errorf("couldn't call URL %s: %w", baseUrl.String(), err), "")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, lookupErr(fmt.Errorf("couldn't read response body: %w", err), "")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, lookupErr(nil, fmt.Sprintf("invalid status code: %d", res.StatusCode))
	}

	out := TestsResponse{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, lookupErr(fmt.Errorf("couldn't unmarshal response body: %w", err), "")
	}
	if out.Error != "" {
		return nil, lookupErr(nil, out.Error)
	}
	return out.Tests, nil
}
