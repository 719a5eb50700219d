// Package report renders aggregated test results into the tabular views
// published on the CI surfaces: run summary tables, the pull request
// comment, and the optional workbook and chart exports.
package report

import (
	"fmt"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/annotation"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/registry"
	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
)

const (
	emptyValue = "-"
	totalLabel = "Total"
)

// statusIndicators maps a registry lifecycle status to its table indicator.
var statusIndicators = map[registry.Status]string{
	registry.StatusDraft:      "🔵",
	registry.StatusActive:     "🟢",
	registry.StatusQuarantine: "🔴",
	registry.StatusEvaluating: "🟡",
}

var (
	overviewHeader = []string{"Name", "Tests", "Passed ✅", "Skipped ↪️", "Failed ❌", "Failed Evaluating ⚠️"}
	detailsHeader  = []string{"Suite", "Test", "Result", "Test Status"}
)

// Cell is one table cell. Link, when set, wraps Data in an anchor.
type Cell struct {
	Data string `json:"data"`
	Link string `json:"link,omitempty"`
}

// Table is a header row and its data rows.
type Table struct {
	Header []string `json:"header"`
	Rows   [][]Cell `json:"rows"`
}

func (t *Table) addRow(cells ...Cell) {
	t.Rows = append(t.Rows, cells)
}

func textCells(values ...string) []Cell {
	cells := make([]Cell, 0, len(values))
	for _, v := range values {
		cells = append(cells, Cell{Data: v})
	}
	return cells
}

func countersRow(name string, c summary.Counters) []Cell {
	return textCells(
		name,
		fmt.Sprintf("%d run", c.Total),
		fmt.Sprintf("%d passed", c.Passed),
		fmt.Sprintf("%d skipped", c.Skipped),
		fmt.Sprintf("%d failed", c.Failed),
		fmt.Sprintf("%d failed evaluating", c.FailedEvaluating),
	)
}

// NewOverviewTable builds one row per suite, plus a grand total row when the
// run has more than one suite.
func NewOverviewTable(agg *summary.AggregatedResult) *Table {
	t := &Table{Header: overviewHeader, Rows: [][]Cell{}}
	for _, s := range agg.Suites {
		t.addRow(countersRow(s.CheckName, s.Counters)...)
	}
	if len(agg.Suites) > 1 {
		t.addRow(countersRow(totalLabel, agg.Counters)...)
	}
	return t
}

// NewDetailsTable builds one row per annotation that is not a notice. A run
// without any gets a single placeholder row.
func NewDetailsTable(agg *summary.AggregatedResult) *Table {
	t := &Table{Header: detailsHeader, Rows: [][]Cell{}}
	for _, s := range agg.Suites {
		for _, a := range s.FailedAnnotations() {
			t.addRow(
				Cell{Data: s.CheckName},
				Cell{Data: a.Title, Link: a.Path},
				Cell{Data: resultLabel(a)},
				Cell{Data: statusLabel(a)},
			)
		}
	}
	if len(t.Rows) == 0 {
		t.addRow(textCells(emptyValue, "No test annotations available", emptyValue, emptyValue)...)
	}
	return t
}

func resultLabel(a annotation.Annotation) string {
	if a.IsNotice() {
		return "✅ pass"
	}
	return fmt.Sprintf("❌ %s", a.Level)
}

// statusLabel is only meaningful for cases tracked by the registry.
func statusLabel(a annotation.Annotation) string {
	if !a.Registry {
		return emptyValue
	}
	return fmt.Sprintf("%s %s", statusIndicators[a.TestStatus], a.TestStatus)
}
