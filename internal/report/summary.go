package report

import (
	"bytes"
	"fmt"
	"html/template"

	vfs "github.com/redhat-openshift-ecosystem/junit-reporter/internal/assets"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
)

const (
	TemplateBasePath    = "data/templates"
	SummaryTemplatePath = TemplateBasePath + "/summary/summary.html"
)

// SummaryData is the view handed to the run summary template.
type SummaryData struct {
	Title       string
	Conclusion  summary.Conclusion
	FilesParsed int
	Overview    *Table
	Details     *Table
	Durations   summary.DurationStats
}

func NewSummaryData(agg *summary.AggregatedResult) *SummaryData {
	return &SummaryData{
		Title:       agg.Title(),
		Conclusion:  agg.Conclusion(),
		FilesParsed: agg.FilesParsed,
		Overview:    NewOverviewTable(agg),
		Details:     NewDetailsTable(agg),
		Durations:   agg.Durations,
	}
}

// RenderSummary renders the run summary HTML document from the
// embedded template.
func RenderSummary(agg *summary.AggregatedResult) (string, error) {
	datS, err := vfs.ReadFile(SummaryTemplatePath)
	if err != nil {
		return "", fmt.Errorf("unable to read file %q from VFS: %v", SummaryTemplatePath, err)
	}

	tmplS, err := template.New("summary").Funcs(template.FuncMap{
		"seconds": func(v float64) string { return fmt.Sprintf("%.2fs", v) },
	}).Parse(string(datS))
	if err != nil {
		return "", fmt.Errorf("unable to create template for %q: %v", SummaryTemplatePath, err)
	}

	var buf bytes.Buffer
	if err := tmplS.Execute(&buf, NewSummaryData(agg)); err != nil {
		return "", fmt.Errorf("unable to process template for %q: %v", SummaryTemplatePath, err)
	}
	return buf.String(), nil
}
