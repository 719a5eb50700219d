package publish

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/artifact"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/github"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/metrics"
	publisher "github.com/redhat-openshift-ecosystem/junit-reporter/internal/publish"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/registry"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg"
)

func NewCmdPublish() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish JUnit reports to GitHub checks, job summary and pull request comment",
		Example: `  junit-reporter publish --report-paths 'build/test-results/**/TEST-*.xml' --check-name 'Unit tests'
  INPUT_REPORT_PATHS=$'a/*.xml\nb/*.xml' junit-reporter publish --fail-on-failure`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), pkg.NewConfigFromViper())
		},
	}

	flags := cmd.Flags()
	flags.String("token", "", "GitHub token, defaults to GITHUB_TOKEN")
	flags.String("commit", "", "Commit SHA to report on, defaults to the pull request head or GITHUB_SHA")
	flags.String("job-name", "", "Name of the job, used as its row in the summary comment and to find the check run to update")
	flags.StringArray("summary", nil, "Summary of a report group, repeat once per group")
	flags.StringArray("check-name", nil, "Check name of a report group, repeat once per group")
	flags.StringArray("report-paths", []string{pkg.DefaultReportPaths}, "Glob of the JUnit reports of a group, repeat once per group")
	flags.Bool("update-check", false, "Update the in progress check run of the job instead of creating one per suite")
	flags.Bool("require-tests", false, "Fail when no test results are found")
	flags.Bool("fail-on-failure", false, "Fail when a test failed")
	flags.StringArray("project-api-key-map", nil, "projectId:token pairs used to look up test statuses in the registry")
	flags.String("registry-url", registry.DefaultBaseURL, "Base URL of the test registry API")
	flags.String("xlsx-output", "", "Write the result tables to this xlsx workbook")
	flags.String("chart-output", "", "Write a results chart to this HTML file")
	flags.String("artifact-bucket", "", "Upload the aggregated result to this S3 bucket")
	flags.String("artifact-region", "", "Region of the artifact bucket")
	flags.String("artifact-prefix", "", "Object key prefix in the artifact bucket")
	flags.Bool("skip-checks", false, "Do not publish check runs")
	flags.Bool("skip-comment", false, "Do not publish the pull request comment")
	flags.Bool("skip-summary", false, "Do not write the job summary")

	if err := viper.BindPFlags(flags); err != nil {
		log.Warnf("Unable to bind flags of %s: %v", cmd.Name(), err)
	}
	// the action declares the input as github_token
	if err := viper.BindEnv("token", "INPUT_GITHUB_TOKEN", "INPUT_TOKEN"); err != nil {
		log.Warnf("Unable to bind the token input: %v", err)
	}
	return cmd
}

// Run aggregates the configured reports and publishes the result.
func Run(ctx context.Context, cfg *pkg.Config) error {
	timers := metrics.NewTimers()
	defer timers.Log()

	ghctx, err := github.LoadContext()
	if err != nil {
		return err
	}
	token := cfg.Token
	if token == "" {
		token = ghctx.Token
	}
	jobName := cfg.JobName
	if jobName == "" {
		jobName = ghctx.Job
	}
	headSHA := ghctx.HeadSHA(cfg.Commit)
	log.WithFields(log.Fields{"repository": ghctx.Repository, "sha": headSHA, "job": jobName}).Debug("Resolved workflow context")

	timers.Set("aggregate")
	resolver := registry.NewResolver(
		registry.NewClient(cfg.RegistryURL),
		registry.ParseProjectTokens(cfg.ProjectTokens),
		registry.NewCache(),
	)
	groups := summary.NewGroups(cfg.ReportPaths, cfg.CheckNames, cfg.Summaries)
	agg, err := summary.NewAggregator(resolver, nil).Run(ctx, groups, cfg.RequireTests)
	if err != nil {
		timers.Stop()
		return err
	}

	timers.Set("publish")
	var checks publisher.ChecksAPI
	var comments publisher.CommentsAPI
	if ghctx.Repository != "" && token != "" {
		client, err := github.NewClient(ghctx.APIURL, token, ghctx.Repository)
		if err != nil {
			log.WithError(err).Warn("Unable to create the GitHub client, checks and comment are disabled")
		} else {
			checks, comments = client, client
		}
	} else {
		log.Warn("No repository or token available, checks and comment are disabled")
	}

	var uploader publisher.ArtifactUploader
	if cfg.ArtifactBucket != "" {
		u, err := artifact.NewUploader(artifact.Config{
			Bucket: cfg.ArtifactBucket,
			Region: cfg.ArtifactRegion,
			Prefix: cfg.ArtifactPrefix,
		})
		if err != nil {
			log.WithError(err).Warn("Unable to create the artifact uploader")
		} else {
			uploader = u
		}
	}

	opts := publisher.Options{
		Repository:  ghctx.Repository,
		HeadSHA:     headSHA,
		JobName:     jobName,
		UpdateCheck: cfg.UpdateCheck,
		OutputPath:  ghctx.Output,
		SummaryPath: ghctx.StepSummary,
		SheetPath:   cfg.SheetOutput,
		ChartPath:   cfg.ChartOutput,
		SkipChecks:  cfg.SkipChecks,
		SkipComment: cfg.SkipComment,
		SkipSummary: cfg.SkipSummary,
	}
	if ghctx.PullRequest != nil {
		opts.PullRequest = ghctx.PullRequest.Number
	}
	if err := publisher.NewPublisher(opts, checks, comments, uploader).Run(ctx, agg); err != nil {
		if merr, ok := err.(*multierror.Error); ok {
			log.Warnf("%d publishing step(s) failed", merr.Len())
		}
	}
	timers.Stop()

	if cfg.FailOnFailure && agg.Conclusion() == summary.ConclusionFailure {
		return fmt.Errorf("❌ Tests reported %d failures", agg.Failed)
	}
	return nil
}
