package summary

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/annotation"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/registry"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/api"
)

// Conclusion is the verdict of a suite or a whole run.
type Conclusion string

const (
	ConclusionSuccess Conclusion = "success"
	ConclusionFailure Conclusion = "failure"
)

// Counters holds the statistics shared by suites and runs.
type Counters struct {
	Total            int `json:"total"`
	Passed           int `json:"passed"`
	Skipped          int `json:"skipped"`
	Failed           int `json:"failed"`
	FailedEvaluating int `json:"failedEvaluating"`
}

// Add sums the counters of o into c.
func (c *Counters) Add(o Counters) {
	c.Total += o.Total
	c.Passed += o.Passed
	c.Skipped += o.Skipped
	c.Failed += o.Failed
	c.FailedEvaluating += o.FailedEvaluating
}

// Found reports whether any test was run or skipped.
func (c Counters) Found() bool {
	return c.Total > 0 || c.Skipped > 0
}

// Conclusion is a failure only when failures remain after discounting the ones
// still under evaluation.
func (c Counters) Conclusion() Conclusion {
	if c.Failed-c.FailedEvaluating > 0 {
		return ConclusionFailure
	}
	return ConclusionSuccess
}

// Title is the one line description used on check runs.
func (c Counters) Title() string {
	if !c.Found() {
		return "No test results found!"
	}
	return fmt.Sprintf("%d tests run, %d passed, %d skipped, %d failed (%d failed evaluating).",
		c.Total, c.Passed, c.Skipped, c.Failed, c.FailedEvaluating)
}

// SuiteResult is a suite reduced to its counters and annotations.
type SuiteResult struct {
	CheckName string `json:"checkName"`
	Summary   string `json:"summary"`
	SuiteName string `json:"suiteName"`
	FileName  string `json:"fileName"`
	Counters
	Annotations []annotation.Annotation `json:"annotations"`

	durations []float64
}

// NewSuiteResult classifies every case of the suite with its resolved status.
func NewSuiteResult(group Group, suite *api.Suite, statuses registry.Statuses) *SuiteResult {
	sr := &SuiteResult{
		CheckName:   group.CheckName,
		Summary:     group.Summary,
		SuiteName:   suite.Name,
		FileName:    suite.FileName,
		Annotations: make([]annotation.Annotation, 0, len(suite.Cases)),
		durations:   make([]float64, 0, len(suite.Cases)),
	}
	if sr.CheckName == "" {
		sr.CheckName = suite.Name
	}
	sr.FailedEvaluating = suite.FailedEvaluating

	for _, c := range suite.Cases {
		sr.Total++
		if c.Skipped && !c.Failed {
			sr.Skipped++
		}
		a := annotation.Classify(c, statuses.For(c), group.Summary)
		if !a.IsNotice() {
			sr.Failed++
		}
		sr.Annotations = append(sr.Annotations, a)
		sr.durations = append(sr.durations, c.Duration)
	}
	sr.Passed = sr.Total - sr.Failed - sr.Skipped
	return sr
}

// FailedAnnotations returns the annotations of cases that did not pass.
func (sr *SuiteResult) FailedAnnotations() []annotation.Annotation {
	return failedAnnotations(sr.Annotations)
}

// AggregatedResult folds every suite of a run.
type AggregatedResult struct {
	Counters
	Suites      []*SuiteResult          `json:"suites"`
	Annotations []annotation.Annotation `json:"-"`
	FilesParsed int                     `json:"filesParsed"`
	Durations   DurationStats           `json:"durations"`
}

// Aggregate sums the suites in order, concatenating their annotations.
func Aggregate(suites []*SuiteResult, filesParsed int) *AggregatedResult {
	res := &AggregatedResult{
		Suites:      suites,
		Annotations: []annotation.Annotation{},
		FilesParsed: filesParsed,
	}
	durations := []float64{}
	for _, s := range suites {
		res.Add(s.Counters)
		res.Annotations = append(res.Annotations, s.Annotations...)
		durations = append(durations, s.durations...)
	}
	res.Durations = NewDurationStats(durations)
	log.Debugf("Aggregated %d suites from %d files", len(suites), filesParsed)
	return res
}

// FailedAnnotations returns the annotations of cases that did not pass.
func (r *AggregatedResult) FailedAnnotations() []annotation.Annotation {
	return failedAnnotations(r.Annotations)
}

func failedAnnotations(in []annotation.Annotation) []annotation.Annotation {
	out := []annotation.Annotation{}
	for _, a := range in {
		if !a.IsNotice() {
			out = append(out, a)
		}
	}
	return out
}
