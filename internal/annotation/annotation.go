// Package annotation turns parsed test cases into severity tagged annotations
// for the CI surfaces.
package annotation

import (
	"fmt"
	"strings"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/registry"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/api"
)

// Level is the severity of an annotation.
type Level string

const (
	LevelNotice  Level = "notice"
	LevelWarning Level = "warning"
	LevelFailure Level = "failure"

	// UnknownPath is the location used when a case has no output to point at.
	UnknownPath = "unknown"

	linkScheme = "https://"
)

// linkMarkers are searched in priority order to split a failure text into its
// narrative and the trailing diagnostic link.
var linkMarkers = []string{
	"More info at: https://",
	"aborted https://",
	": https://",
}

type Annotation struct {
	Level      Level           `json:"annotation_level"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	RawDetails string          `json:"raw_details"`
	ClassName  string          `json:"classname"`
	Path       string          `json:"path"`
	StartLine  int             `json:"start_line"`
	EndLine    int             `json:"end_line"`
	TestStatus registry.Status `json:"testStatus"`
	// Registry is set when the case points at an entry of the test registry.
	Registry bool `json:"isRegistryTest"`
}

// IsNotice reports whether the annotation describes a case that did not fail.
func (a Annotation) IsNotice() bool {
	return a.Level == LevelNotice
}

// Severity decides the annotation level from the local failure flag and the
// lifecycle status resolved from the registry.
func Severity(failed bool, status registry.Status) Level {
	switch {
	case !failed:
		return LevelNotice
	case status == registry.StatusEvaluating:
		return LevelWarning
	default:
		return LevelFailure
	}
}

// Classify builds the annotation of a case. summary is the human summary of
// the report group the case belongs to.
func Classify(c api.Case, status registry.Status, summary string) Annotation {
	if status == "" {
		status = registry.StatusDraft
	}
	isRegistry := registry.IsRegistryCase(c)
	title := StripEmoji(c.Name)

	a := Annotation{
		Level:      Severity(c.Failed, status),
		Title:      title,
		ClassName:  StripEmoji(c.ClassName),
		Path:       c.Output,
		StartLine:  1,
		EndLine:    1,
		TestStatus: status,
		Registry:   isRegistry,
		RawDetails: fmt.Sprintf("%s - %s:\n(%s)", summary, title, c.Failure),
	}
	if a.Path == "" {
		a.Path = UnknownPath
	}

	switch {
	case c.Failed && isRegistry:
		a.Message = FormatMessage(c.Failure)
	case c.Failed:
		a.Message = strings.TrimSpace(c.Failure)
	default:
		a.Message = strings.TrimSpace(c.Output)
	}
	if a.Message == "" {
		a.Message = c.Name
	}
	return a
}

// FormatMessage separates the narrative of a failure text from its trailing
// diagnostic link, joined by a newline. Texts without a known marker are all
// narrative.
func FormatMessage(text string) string {
	text = strings.TrimSpace(text)
	for _, marker := range linkMarkers {
		idx := strings.Index(text, marker)
		if idx < 0 {
			continue
		}
		cut := idx + len(marker) - len(linkScheme)
		narrative, rest := text[:cut], text[cut:]
		link := linkScheme + rest[strings.LastIndex(rest, linkScheme)+len(linkScheme):]
		return narrative + "\n" + link
	}
	return text
}
