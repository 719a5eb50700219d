package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/artifact"
	vfs "github.com/redhat-openshift-ecosystem/junit-reporter/internal/assets"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/github"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/report"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/api"
)

type fakeChecks struct {
	requests []*github.CheckRequest
	err      error
}

func (f *fakeChecks) PublishCheck(ctx context.Context, req *github.CheckRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

type fakeComments struct {
	pr       int
	comments []github.IssueComment
	created  map[int]string
	updated  map[int64]string
	err      error
}

func (f *fakeComments) FindPullRequest(ctx context.Context, sha string) (int, error) {
	return f.pr, f.err
}

func (f *fakeComments) ListComments(ctx context.Context, number int) ([]github.IssueComment, error) {
	return f.comments, f.err
}

func (f *fakeComments) CreateComment(ctx context.Context, number int, body string) error {
	if f.created == nil {
		f.created = map[int]string{}
	}
	f.created[number] = body
	return f.err
}

func (f *fakeComments) UpdateComment(ctx context.Context, id int64, body string) error {
	if f.updated == nil {
		f.updated = map[int64]string{}
	}
	f.updated[id] = body
	return f.err
}

type fakeArtifacts struct {
	meta artifact.Metadata
}

func (f *fakeArtifacts) Upload(agg *summary.AggregatedResult, meta artifact.Metadata) (string, error) {
	f.meta = meta
	return "s3://bucket/key", nil
}

func newResult() *summary.AggregatedResult {
	sr := summary.NewSuiteResult(summary.Group{CheckName: "unit", Summary: "unit tests"}, &api.Suite{
		Cases: []api.Case{
			{Name: "ok"},
			{Name: "broken", Failed: true, Failure: "boom"},
		},
	}, nil)
	return summary.Aggregate([]*summary.SuiteResult{sr}, 1)
}

func newOptions(t *testing.T) Options {
	dir := t.TempDir()
	return Options{
		Repository:  "octo/repo",
		HeadSHA:     "abc",
		JobName:     "build",
		OutputPath:  filepath.Join(dir, "output"),
		SummaryPath: filepath.Join(dir, "summary"),
	}
}

func loadTemplates(t *testing.T) {
	vfs.UpdateData(os.DirFS("../.."))
	t.Cleanup(func() { vfs.UpdateData(nil) })
}

func TestPublisherRun(t *testing.T) {
	loadTemplates(t)
	opts := newOptions(t)
	checks := &fakeChecks{}
	comments := &fakeComments{pr: 5}
	artifacts := &fakeArtifacts{}

	err := NewPublisher(opts, checks, comments, artifacts).Run(context.Background(), newResult())
	require.NoError(t, err)

	require.Len(t, checks.requests, 1)
	req := checks.requests[0]
	assert.Equal(t, "unit", req.Name)
	assert.Equal(t, "abc", req.HeadSHA)
	assert.Equal(t, "failure", req.Conclusion)
	assert.Equal(t, "unit tests", req.Summary)
	assert.Equal(t, "2 tests run, 1 passed, 0 skipped, 1 failed (0 failed evaluating).", req.Title)
	assert.Len(t, req.Annotations, 1)
	assert.Empty(t, req.UpdateJob)

	outputs, err := os.ReadFile(opts.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "total=2\npassed=1\nskipped=0\nfailed=1\nfailed_evaluating=0\n", string(outputs))

	content, err := os.ReadFile(opts.SummaryPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "<h2>Details</h2>")

	require.Contains(t, comments.created, 5)
	assert.True(t, report.IsReportComment(comments.created[5]))
	assert.Equal(t, "build", artifacts.meta.Job)
}

func TestPublisherUpdatesPriorComment(t *testing.T) {
	loadTemplates(t)
	opts := newOptions(t)
	opts.PullRequest = 9
	opts.SkipChecks = true
	opts.UpdateCheck = true

	prior := report.NewCommentMerger("lint").Merge("", newResult())
	comments := &fakeComments{comments: []github.IssueComment{
		{ID: 1, Body: prior},
		{ID: 2, Body: "unrelated"},
		{ID: 3, Body: prior},
	}}
	require.NoError(t, NewPublisher(opts, nil, comments, nil).Run(context.Background(), newResult()))

	assert.Empty(t, comments.created)
	require.Contains(t, comments.updated, int64(3))
	table, ok := report.ParseCommentTable(comments.updated[3])
	require.True(t, ok)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "lint", table.Rows[0].Name)
	assert.Equal(t, "build", table.Rows[1].Name)
}

func TestPublisherNoPullRequest(t *testing.T) {
	loadTemplates(t)
	comments := &fakeComments{}
	require.NoError(t, NewPublisher(newOptions(t), nil, comments, nil).Run(context.Background(), newResult()))
	assert.Empty(t, comments.created)
	assert.Empty(t, comments.updated)
}

func TestPublisherBestEffort(t *testing.T) {
	loadTemplates(t)
	opts := newOptions(t)
	opts.UpdateCheck = true
	denied := &github.APIError{Method: "POST", StatusCode: 403, Message: "Resource not accessible by integration"}
	checks := &fakeChecks{err: denied}
	comments := &fakeComments{pr: 5}

	err := NewPublisher(opts, checks, comments, nil).Run(context.Background(), newResult())
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 1)
	var perr *github.PublishError
	require.True(t, errors.As(merr.Errors[0], &perr))
	assert.Equal(t, SurfaceChecks, perr.Surface)
	assert.NotEmpty(t, perr.Hint())
	assert.Equal(t, "build", checks.requests[0].UpdateJob)

	// the other surfaces are still published
	assert.Contains(t, comments.created, 5)
	_, statErr := os.Stat(opts.SummaryPath)
	assert.NoError(t, statErr)
}

func TestPublisherSummaryFailure(t *testing.T) {
	opts := newOptions(t)
	opts.SkipComment = true
	err := NewPublisher(opts, nil, nil, nil).Run(context.Background(), newResult())

	var perr *github.PublishError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, SurfaceSummary, perr.Surface)
}
