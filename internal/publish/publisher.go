// Package publish sends an aggregated result to every configured output
// surface. Surfaces are independent: the failure of one is logged and
// collected while the others are still published.
package publish

import (
	"context"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/artifact"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/github"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/report"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
)

const (
	SurfaceOutputs  = "outputs"
	SurfaceChecks   = "checks"
	SurfaceSummary  = "summary"
	SurfaceComment  = "comment"
	SurfaceSheet    = "xlsx"
	SurfaceChart    = "chart"
	SurfaceArtifact = "artifact"
)

type ChecksAPI interface {
	PublishCheck(ctx context.Context, req *github.CheckRequest) error
}

type CommentsAPI interface {
	FindPullRequest(ctx context.Context, sha string) (int, error)
	ListComments(ctx context.Context, number int) ([]github.IssueComment, error)
	CreateComment(ctx context.Context, number int, body string) error
	UpdateComment(ctx context.Context, id int64, body string) error
}

type ArtifactUploader interface {
	Upload(agg *summary.AggregatedResult, meta artifact.Metadata) (string, error)
}

// Options selects and configures the surfaces of a run.
type Options struct {
	Repository  string
	HeadSHA     string
	JobName     string
	UpdateCheck bool
	// PullRequest is the number of the pull request to comment on. When zero,
	// it is searched by HeadSHA.
	PullRequest int

	OutputPath  string
	SummaryPath string
	SheetPath   string
	ChartPath   string

	SkipChecks  bool
	SkipComment bool
	SkipSummary bool
}

type Publisher struct {
	opts      Options
	checks    ChecksAPI
	comments  CommentsAPI
	artifacts ArtifactUploader
}

// NewPublisher creates a publisher. Nil collaborators disable their surface.
func NewPublisher(opts Options, checks ChecksAPI, comments CommentsAPI, artifacts ArtifactUploader) *Publisher {
	return &Publisher{opts: opts, checks: checks, comments: comments, artifacts: artifacts}
}

type step struct {
	surface string
	enabled bool
	run     func(ctx context.Context, agg *summary.AggregatedResult) error
}

// Run publishes agg to every enabled surface and returns the collected
// *github.PublishError failures, if any.
func (p *Publisher) Run(ctx context.Context, agg *summary.AggregatedResult) error {
	steps := []step{
		{SurfaceOutputs, true, p.publishOutputs},
		{SurfaceChecks, !p.opts.SkipChecks && p.checks != nil, p.publishChecks},
		{SurfaceSummary, !p.opts.SkipSummary, p.publishSummary},
		{SurfaceComment, !p.opts.SkipComment && p.comments != nil, p.publishComment},
		{SurfaceSheet, p.opts.SheetPath != "", func(_ context.Context, agg *summary.AggregatedResult) error {
			return report.SaveSheet(agg, p.opts.SheetPath)
		}},
		{SurfaceChart, p.opts.ChartPath != "", func(_ context.Context, agg *summary.AggregatedResult) error {
			return report.SaveChart(agg, p.opts.ChartPath)
		}},
		{SurfaceArtifact, p.artifacts != nil, p.publishArtifact},
	}

	var result *multierror.Error
	for _, s := range steps {
		if !s.enabled {
			log.Debugf("Skipping %s", s.surface)
			continue
		}
		if err := s.run(ctx, agg); err != nil {
			perr := &github.PublishError{Surface: s.surface, Err: err}
			logger := log.WithError(err)
			if hint := perr.Hint(); hint != "" {
				logger = logger.WithField("hint", hint)
			}
			logger.Warnf("Unable to publish %s", s.surface)
			result = multierror.Append(result, perr)
		}
	}
	return result.ErrorOrNil()
}

func (p *Publisher) publishOutputs(_ context.Context, agg *summary.AggregatedResult) error {
	return github.SetOutputs(p.opts.OutputPath, []github.Output{
		{Name: "total", Value: strconv.Itoa(agg.Total)},
		{Name: "passed", Value: strconv.Itoa(agg.Passed)},
		{Name: "skipped", Value: strconv.Itoa(agg.Skipped)},
		{Name: "failed", Value: strconv.Itoa(agg.Failed)},
		{Name: "failed_evaluating", Value: strconv.Itoa(agg.FailedEvaluating)},
	})
}

// publishChecks publishes one check run per suite, carrying on with the
// next suite when one fails.
func (p *Publisher) publishChecks(ctx context.Context, agg *summary.AggregatedResult) error {
	var result *multierror.Error
	for _, s := range agg.Suites {
		annotations := s.FailedAnnotations()
		log.Infof("ℹ️ - %s - %s", s.CheckName, s.Title())
		for _, a := range annotations {
			msg, _, _ := strings.Cut(a.Message, "\n")
			log.Infof("   🧪 - %s", msg)
		}

		req := &github.CheckRequest{
			Name:        s.CheckName,
			HeadSHA:     p.opts.HeadSHA,
			Title:       s.Title(),
			Summary:     s.Summary,
			Conclusion:  string(s.Conclusion()),
			Annotations: annotations,
		}
		if p.opts.UpdateCheck {
			req.UpdateJob = p.opts.JobName
		}
		if err := p.checks.PublishCheck(ctx, req); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func (p *Publisher) publishSummary(_ context.Context, agg *summary.AggregatedResult) error {
	content, err := report.RenderSummary(agg)
	if err != nil {
		return err
	}
	return github.AppendSummary(p.opts.SummaryPath, content)
}

// publishComment updates the latest summary comment of the pull request, or
// creates it.
func (p *Publisher) publishComment(ctx context.Context, agg *summary.AggregatedResult) error {
	number := p.opts.PullRequest
	if number == 0 {
		found, err := p.comments.FindPullRequest(ctx, p.opts.HeadSHA)
		if err != nil {
			return err
		}
		number = found
	}
	if number == 0 {
		log.Infof("No pull request found for %s, skipping the summary comment", p.opts.HeadSHA)
		return nil
	}

	comments, err := p.comments.ListComments(ctx, number)
	if err != nil {
		return err
	}
	var prior *github.IssueComment
	for i := range comments {
		if report.IsReportComment(comments[i].Body) {
			prior = &comments[i]
		}
	}

	merger := report.NewCommentMerger(p.opts.JobName)
	if prior == nil {
		log.Infof("Creating summary comment on pull request #%d", number)
		return p.comments.CreateComment(ctx, number, merger.Merge("", agg))
	}
	log.Infof("Updating summary comment %d on pull request #%d", prior.ID, number)
	return p.comments.UpdateComment(ctx, prior.ID, merger.Merge(prior.Body, agg))
}

func (p *Publisher) publishArtifact(_ context.Context, agg *summary.AggregatedResult) error {
	_, err := p.artifacts.Upload(agg, artifact.Metadata{
		Repository: p.opts.Repository,
		SHA:        p.opts.HeadSHA,
		Job:        p.opts.JobName,
	})
	return err
}
