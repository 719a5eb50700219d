package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/annotation"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

// fakeAPI records every request and answers with the handler registered for
// "METHOD path", or 404.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	api := &fakeAPI{handlers: map[string]func(w http.ResponseWriter, r *http.Request){}}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, "secret", "octo/repo")
	require.NoError(t, err)
	return api, client
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h, ok := f.handlers[r.Method+" "+r.URL.Path]
	f.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		return
	}
	h(w, r)
}

func (f *fakeAPI) handle(route string, status int, body string) {
	f.handlers[route] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newAnnotations(n int) []annotation.Annotation {
	out := make([]annotation.Annotation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, annotation.Annotation{
			Level:     annotation.LevelFailure,
			Title:     fmt.Sprintf("test %d", i),
			Message:   "boom",
			Path:      annotation.UnknownPath,
			StartLine: 1,
			EndLine:   1,
		})
	}
	return out
}

func annotationCount(r recordedRequest) int {
	output, ok := r.Body["output"].(map[string]interface{})
	if !ok {
		return 0
	}
	list, _ := output["annotations"].([]interface{})
	return len(list)
}

func TestPublishCheckCreate(t *testing.T) {
	tests := []struct {
		name        string
		annotations int
		wantPages   []int
	}{
		{name: "no annotations", annotations: 0, wantPages: []int{0}},
		{name: "single page", annotations: 50, wantPages: []int{50}},
		{name: "paginated", annotations: 120, wantPages: []int{50, 50, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newFakeAPI(t)
			api.handle("POST /repos/octo/repo/check-runs", http.StatusCreated, `{"id": 42}`)
			api.handle("PATCH /repos/octo/repo/check-runs/42", http.StatusOK, `{"id": 42}`)

			err := client.PublishCheck(context.Background(), &CheckRequest{
				Name:        "unit",
				HeadSHA:     "abc",
				Title:       "title",
				Summary:     "summary",
				Conclusion:  "failure",
				Annotations: newAnnotations(tt.annotations),
			})
			require.NoError(t, err)

			require.Len(t, api.requests, len(tt.wantPages))
			assert.Equal(t, "POST", api.requests[0].Method)
			assert.Equal(t, "unit", api.requests[0].Body["name"])
			assert.Equal(t, "abc", api.requests[0].Body["head_sha"])
			assert.Equal(t, "completed", api.requests[0].Body["status"])
			assert.Equal(t, "failure", api.requests[0].Body["conclusion"])
			for i, want := range tt.wantPages {
				assert.Equal(t, want, annotationCount(api.requests[i]), "page %d", i)
			}
		})
	}
}

func TestPublishCheckUpdate(t *testing.T) {
	api, client := newFakeAPI(t)
	api.handle("GET /repos/octo/repo/commits/abc/check-runs", http.StatusOK,
		`{"total_count": 1, "check_runs": [{"id": 7, "name": "build"}]}`)
	api.handle("PATCH /repos/octo/repo/check-runs/7", http.StatusOK, `{}`)

	err := client.PublishCheck(context.Background(), &CheckRequest{
		Name:        "unit",
		HeadSHA:     "abc",
		Title:       "title",
		Annotations: newAnnotations(60),
		UpdateJob:   "build",
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 3)
	assert.Contains(t, api.requests[0].Query, "check_name=build")
	assert.Contains(t, api.requests[0].Query, "status=in_progress")
	assert.Equal(t, 50, annotationCount(api.requests[1]))
	assert.Equal(t, 10, annotationCount(api.requests[2]))
	output := api.requests[1].Body["output"].(map[string]interface{})
	first := output["annotations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "failure", first["annotation_level"])
	assert.Equal(t, "unknown", first["path"])
	assert.EqualValues(t, 1, first["start_line"])
}

func TestPublishCheckUpdateWithoutRun(t *testing.T) {
	api, client := newFakeAPI(t)
	api.handle("GET /repos/octo/repo/commits/abc/check-runs", http.StatusOK, `{"total_count": 0, "check_runs": []}`)

	err := client.PublishCheck(context.Background(), &CheckRequest{Name: "unit", HeadSHA: "abc", UpdateJob: "build"})
	assert.ErrorContains(t, err, `no check run in progress named "build"`)
}

func TestPublishErrorHint(t *testing.T) {
	_, client := newFakeAPI(t)
	err := client.PublishCheck(context.Background(), &CheckRequest{Name: "unit", HeadSHA: "abc"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not Found", apiErr.Message)

	perr := &PublishError{Surface: "checks", Err: err}
	assert.Equal(t, permissionHint, perr.Hint())
	assert.Empty(t, (&PublishError{Surface: "summary", Err: io.EOF}).Hint())
}

func TestComments(t *testing.T) {
	api, client := newFakeAPI(t)
	api.handle("GET /search/issues", http.StatusOK, `{"total_count": 1, "items": [{"number": 12}]}`)
	api.handlers["GET /repos/octo/repo/issues/12/comments"] = func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		comments := []IssueComment{}
		if page == 1 {
			for i := 0; i < commentsPerPage; i++ {
				comments = append(comments, IssueComment{ID: int64(i), Body: "hi"})
			}
		} else {
			comments = append(comments, IssueComment{ID: 1000, Body: "last"})
		}
		_ = json.NewEncoder(w).Encode(comments)
	}
	api.handle("POST /repos/octo/repo/issues/12/comments", http.StatusCreated, `{}`)
	api.handle("PATCH /repos/octo/repo/issues/comments/1000", http.StatusOK, `{}`)

	ctx := context.Background()
	number, err := client.FindPullRequest(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 12, number)
	assert.Contains(t, api.requests[0].Query, "repo%3Aocto%2Frepo")

	comments, err := client.ListComments(ctx, number)
	require.NoError(t, err)
	require.Len(t, comments, commentsPerPage+1)
	assert.Equal(t, "last", comments[commentsPerPage].Body)

	require.NoError(t, client.CreateComment(ctx, number, "new"))
	require.NoError(t, client.UpdateComment(ctx, 1000, "edited"))
	last := api.requests[len(api.requests)-1]
	assert.Equal(t, "PATCH", last.Method)
	assert.Equal(t, "edited", last.Body["body"])
}

func TestFindPullRequestNone(t *testing.T) {
	api, client := newFakeAPI(t)
	api.handle("GET /search/issues", http.StatusOK, `{"total_count": 0, "items": []}`)
	number, err := client.FindPullRequest(context.Background(), "abc")
	require.NoError(t, err)
	assert.Zero(t, number)
}

func TestNewClientInvalidRepository(t *testing.T) {
	for _, repo := range []string{"", "octo", "/repo", "octo/"} {
		_, err := NewClient("", "", repo)
		assert.Error(t, err, repo)
	}
}

func TestLoadContext(t *testing.T) {
	dir := t.TempDir()
	event := filepath.Join(dir, "event.json")
	require.NoError(t, os.WriteFile(event, []byte(`{"pull_request": {"number": 3, "head": {"sha": "prsha"}}}`), 0644))

	t.Setenv("GITHUB_REPOSITORY", "octo/repo")
	t.Setenv("GITHUB_SHA", "mergesha")
	t.Setenv("GITHUB_EVENT_PATH", event)

	ctx, err := LoadContext()
	require.NoError(t, err)
	assert.Equal(t, "octo", ctx.Owner)
	assert.Equal(t, "repo", ctx.Repo)
	require.NotNil(t, ctx.PullRequest)
	assert.Equal(t, 3, ctx.PullRequest.Number)
	assert.Equal(t, "explicit", ctx.HeadSHA("explicit"))
	assert.Equal(t, "prsha", ctx.HeadSHA(""))

	ctx.PullRequest = nil
	assert.Equal(t, "mergesha", ctx.HeadSHA(""))
}

func TestOutputs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "output")
	require.NoError(t, SetOutputs(out, []Output{{"total", "2"}, {"failed", "1"}, {"notes", "a\nb"}}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "total=2\nfailed=1\nnotes<<__EOF__\na\nb\n__EOF__\n", string(data))

	require.NoError(t, SetOutputs("", []Output{{"total", "2"}}))

	summary := filepath.Join(dir, "summary")
	require.NoError(t, AppendSummary(summary, "<h2>one</h2>"))
	require.NoError(t, AppendSummary(summary, "<h2>two</h2>"))
	data, err = os.ReadFile(summary)
	require.NoError(t, err)
	assert.Equal(t, "<h2>one</h2>\n<h2>two</h2>\n", string(data))
	assert.Error(t, AppendSummary("", "x"))
}
