package report

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
)

// CommentMarker leads every comment rendered by the merger and is how a prior
// comment is recognized.
const CommentMarker = "<!-- junit-reporter-summary -->"

const commentHeading = "JUnit Test Report"

var commentHeader = []string{"Job", "Tests", "Passed ✅", "Skipped ↪️", "Failed ❌", "Failed Evaluating ⚠️"}

var (
	tableRe = regexp.MustCompile(`(?s)<table>(.*?)</table>`)
	rowRe   = regexp.MustCompile(`(?s)<tr>(.*?)</tr>`)
	cellRe  = regexp.MustCompile(`(?s)<t[hd]>(.*?)</t[hd]>`)
)

// JobRow is the statistics row of one job in the comment table.
type JobRow struct {
	Name string
	summary.Counters
}

// CommentTable is the typed form of the table embedded in a comment.
type CommentTable struct {
	Rows []JobRow
}

// IsReportComment reports whether body was rendered by the merger.
func IsReportComment(body string) bool {
	return strings.HasPrefix(strings.TrimSpace(body), CommentMarker)
}

// ParseCommentTable tokenizes the table rendered in a prior comment. It
// returns false when the body does not hold a table in the expected shape.
func ParseCommentTable(body string) (*CommentTable, bool) {
	m := tableRe.FindStringSubmatch(body)
	if m == nil {
		return nil, false
	}
	rows := rowRe.FindAllStringSubmatch(m[1], -1)
	if len(rows) == 0 || !equalCells(parseCells(rows[0][1]), commentHeader) {
		return nil, false
	}

	t := &CommentTable{Rows: make([]JobRow, 0, len(rows)-1)}
	for _, r := range rows[1:] {
		row, err := parseJobRow(parseCells(r[1]))
		if err != nil {
			log.WithError(err).Debug("Unexpected row in prior comment table")
			return nil, false
		}
		t.Rows = append(t.Rows, row)
	}
	return t, true
}

func parseCells(row string) []string {
	matches := cellRe.FindAllStringSubmatch(row, -1)
	cells := make([]string, 0, len(matches))
	for _, c := range matches {
		cells = append(cells, html.UnescapeString(strings.TrimSpace(c[1])))
	}
	return cells
}

func equalCells(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func parseJobRow(cells []string) (JobRow, error) {
	if len(cells) != len(commentHeader) {
		return JobRow{}, fmt.Errorf("row has %d cells, want %d", len(cells), len(commentHeader))
	}
	values := make([]int, 0, len(cells)-1)
	for _, c := range cells[1:] {
		v, err := strconv.Atoi(c)
		if err != nil {
			return JobRow{}, fmt.Errorf("invalid statistic %q: %v", c, err)
		}
		values = append(values, v)
	}
	return JobRow{
		Name: cells[0],
		Counters: summary.Counters{
			Total:            values[0],
			Passed:           values[1],
			Skipped:          values[2],
			Failed:           values[3],
			FailedEvaluating: values[4],
		},
	}, nil
}

// Upsert overwrites the statistics of the row named name in place, or
// appends a new row at the end. Names are compared without surrounding
// whitespace, as they are read back from the rendered cells.
func (t *CommentTable) Upsert(name string, c summary.Counters) {
	name = strings.TrimSpace(name)
	for i := range t.Rows {
		if t.Rows[i].Name == name {
			t.Rows[i].Counters = c
			return
		}
	}
	t.Rows = append(t.Rows, JobRow{Name: name, Counters: c})
}

// Conclusion is a failure when any job of the table has hard failures.
func (t *CommentTable) Conclusion() summary.Conclusion {
	for _, r := range t.Rows {
		if r.Conclusion() == summary.ConclusionFailure {
			return summary.ConclusionFailure
		}
	}
	return summary.ConclusionSuccess
}

func (t *CommentTable) render(sb *strings.Builder) {
	sb.WriteString("<table>\n<tr>")
	for _, h := range commentHeader {
		fmt.Fprintf(sb, "<th>%s</th>", html.EscapeString(h))
	}
	sb.WriteString("</tr>\n")
	for _, r := range t.Rows {
		fmt.Fprintf(sb, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td></tr>\n",
			html.EscapeString(r.Name), r.Total, r.Passed, r.Skipped, r.Failed, r.FailedEvaluating)
	}
	sb.WriteString("</table>\n")
}

// CommentMerger folds the result of the current job into the summary comment
// shared by every job of a pull request.
type CommentMerger struct {
	JobName string
}

func NewCommentMerger(jobName string) *CommentMerger {
	return &CommentMerger{JobName: strings.TrimSpace(jobName)}
}

// Merge returns the comment body for agg. prior is the body of the previous
// comment, or empty when there is none.
func (m *CommentMerger) Merge(prior string, agg *summary.AggregatedResult) string {
	table := &CommentTable{}
	if prior != "" {
		if parsed, ok := ParseCommentTable(prior); ok {
			table = parsed
		} else {
			log.Warn("Unable to parse the table of the previous summary comment, rendering a new one")
		}
	}
	table.Upsert(m.JobName, agg.Counters)
	return renderComment(table, agg)
}

func renderComment(table *CommentTable, agg *summary.AggregatedResult) string {
	indicator := "✅"
	if table.Conclusion() == summary.ConclusionFailure {
		indicator = "❌"
	}
	conclusion := cases.Title(language.English).String(string(agg.Conclusion()))

	sb := &strings.Builder{}
	sb.WriteString(CommentMarker + "\n")
	fmt.Fprintf(sb, "<h2>%s %s</h2>\n", indicator, commentHeading)
	fmt.Fprintf(sb, "<p>Parsed %d report %s. Conclusion: %s.</p>\n", agg.FilesParsed, plural(agg.FilesParsed, "file"), conclusion)
	table.render(sb)
	return sb.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
