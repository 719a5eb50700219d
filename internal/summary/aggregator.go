// Package summary aggregates the JUnit reports of a run into per suite and
// grand total results.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/registry"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/api"
)

// NoTestsFoundError is returned when tests are required but none were found.
type NoTestsFoundError struct {
	CheckNames []string
}

func (e *NoTestsFoundError) Error() string {
	return fmt.Sprintf("No test results found for %s", strings.Join(e.CheckNames, ", "))
}

// StatusResolver looks up the registry lifecycle status of a batch of cases.
type StatusResolver interface {
	Resolve(ctx context.Context, cases []api.Case) (registry.Statuses, error)
}

// Globber expands a report path pattern into file names.
type Globber interface {
	Glob(pattern string) ([]string, error)
}

// FileGlobber expands patterns on the local filesystem, supporting '**'.
type FileGlobber struct{}

func (FileGlobber) Glob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
}

// Aggregator drives the parsing of every report group of a run.
type Aggregator struct {
	resolver StatusResolver
	globber  Globber
}

func NewAggregator(resolver StatusResolver, globber Globber) *Aggregator {
	if globber == nil {
		globber = FileGlobber{}
	}
	return &Aggregator{resolver: resolver, globber: globber}
}

type groupResult struct {
	suites []*SuiteResult
	files  int
}

// Run parses every group concurrently and folds the results in group order.
func (a *Aggregator) Run(ctx context.Context, groups []Group, requireTests bool) (*AggregatedResult, error) {
	log.Infof("Retrieved %d report globs/files to process.", len(groups))

	results := make([]groupResult, len(groups))
	eg, egCtx := errgroup.WithContext(ctx)
	for i := range groups {
		i := i
		eg.Go(func() error {
			res, err := a.processGroup(egCtx, groups[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	suites := []*SuiteResult{}
	files := 0
	for _, res := range results {
		suites = append(suites, res.suites...)
		files += res.files
	}
	agg := Aggregate(suites, files)

	if !agg.Found() && requireTests {
		names := make([]string, 0, len(groups))
		for _, g := range groups {
			names = append(names, g.CheckName)
		}
		return nil, &NoTestsFoundError{CheckNames: names}
	}

	log.WithFields(log.Fields{
		"Total":            agg.Total,
		"Passed":           agg.Passed,
		"Skipped":          agg.Skipped,
		"Failed":           agg.Failed,
		"FailedEvaluating": agg.FailedEvaluating,
	}).Infof("Conclusion: %s", agg.Conclusion())
	return agg, nil
}

func (a *Aggregator) processGroup(ctx context.Context, group Group) (groupResult, error) {
	res := groupResult{}
	logger := log.WithField("checkName", group.CheckName)
	if group.ReportPaths == "" {
		logger.Warn("Empty report path, skipping group")
		return res, nil
	}
	logger.Debugf("Process test report for: %s", group.ReportPaths)

	files, err := a.globber.Glob(group.ReportPaths)
	if err != nil {
		return res, errors.Wrapf(err, "failed to search for files matching %q", group.ReportPaths)
	}
	if len(files) == 0 {
		logger.Warnf("No files found matching %q", group.ReportPaths)
	}

	for _, file := range files {
		logger.Debugf("Parsing report file: %s", file)
		suites, err := api.ParseFile(file)
		if err != nil {
			return res, err
		}
		res.files++

		for _, suite := range suites {
			if len(suite.Cases) == 0 {
				continue
			}
			statuses, err := a.resolveStatuses(ctx, suite)
			if err != nil {
				return res, err
			}
			sr := NewSuiteResult(group, suite, statuses)
			if sr.Total == 0 {
				continue
			}
			logger.Infof("%s - %s", sr.CheckName, sr.Title())
			res.suites = append(res.suites, sr)
		}
	}
	return res, nil
}

// resolveStatuses degrades to draft statuses when the registry lookup fails.
func (a *Aggregator) resolveStatuses(ctx context.Context, suite *api.Suite) (registry.Statuses, error) {
	if a.resolver == nil {
		return registry.Statuses{}, nil
	}
	statuses, err := a.resolver.Resolve(ctx, suite.Cases)
	if err != nil {
		var lerr *registry.RemoteLookupError
		if errors.As(err, &lerr) {
			log.WithError(err).Warnf("Unable to resolve test statuses for suite %q, using %s", suite.Name, registry.StatusDraft)
			return registry.Statuses{}, nil
		}
		return nil, errors.Wrapf(err, "unable to resolve test statuses for suite %q", suite.Name)
	}
	return statuses, nil
}
