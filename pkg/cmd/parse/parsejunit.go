package parse

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
	"github.com/redhat-openshift-ecosystem/junit-reporter/pkg/api"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type parseJUnitInput struct {
	output     string
	skipPassed bool
}

// caseView is the printed form of a case.
type caseView struct {
	Name     string  `json:"name" yaml:"name"`
	Class    string  `json:"classname,omitempty" yaml:"classname,omitempty"`
	Status   string  `json:"status" yaml:"status"`
	Duration float64 `json:"duration" yaml:"duration"`
	Failure  string  `json:"failure,omitempty" yaml:"failure,omitempty"`
}

type suiteView struct {
	Name             string     `json:"name" yaml:"name"`
	File             string     `json:"file" yaml:"file"`
	Total            int        `json:"total" yaml:"total"`
	Passed           int        `json:"passed" yaml:"passed"`
	Skipped          int        `json:"skipped" yaml:"skipped"`
	Failed           int        `json:"failed" yaml:"failed"`
	FailedEvaluating int        `json:"failedEvaluating" yaml:"failedEvaluating"`
	Cases            []caseView `json:"cases" yaml:"cases"`
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	statusStyles = map[api.TestStatus]lipgloss.Style{
		api.TestStatusPass:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		api.TestStatusFail:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		api.TestStatusSkipped: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
)

func NewCmdParseJUnit() *cobra.Command {
	args := parseJUnitInput{}
	cmd := &cobra.Command{
		Use:     "parse-junit FILE",
		Example: "junit-reporter parse-junit build/test-results/TEST-unit.xml --output yaml",
		Short:   "Parse a JUnit file and print its suites, without publishing anything.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, files []string) error {
			return parseJUnitRun(cmd.OutOrStdout(), files[0], &args)
		},
	}
	cmd.Flags().StringVarP(&args.output, "output", "o", outputTable, "Output format: table, json or yaml.")
	cmd.Flags().BoolVar(&args.skipPassed, "skip-passed", false, "Skip printing the passed test cases.")
	return cmd
}

func parseJUnitRun(w io.Writer, file string, args *parseJUnitInput) error {
	suites, err := api.ParseFile(file)
	if err != nil {
		return fmt.Errorf("error parsing JUnit file: %v", err)
	}

	views := make([]suiteView, 0, len(suites))
	for _, s := range suites {
		views = append(views, newSuiteView(s, args.skipPassed))
	}

	switch args.output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case outputYAML:
		data, err := yaml.Marshal(views)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case outputTable:
		for _, v := range views {
			printSuite(w, v)
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", args.output)
}

func newSuiteView(s *api.Suite, skipPassed bool) suiteView {
	sr := summary.NewSuiteResult(summary.Group{}, s, nil)
	v := suiteView{
		Name:             s.Name,
		File:             s.FileName,
		Total:            sr.Total,
		Passed:           sr.Passed,
		Skipped:          sr.Skipped,
		Failed:           sr.Failed,
		FailedEvaluating: sr.FailedEvaluating,
		Cases:            []caseView{},
	}
	for _, c := range s.Cases {
		if skipPassed && c.Status() == api.TestStatusPass {
			continue
		}
		v.Cases = append(v.Cases, caseView{
			Name:     c.Name,
			Class:    c.ClassName,
			Status:   string(c.Status()),
			Duration: c.Duration,
			Failure:  c.Failure,
		})
	}
	return v
}

func printSuite(w io.Writer, v suiteView) {
	fmt.Fprintf(w, "Suite: %s (%s)\n", v.Name, v.File)
	fmt.Fprintf(w, "- Total: %d\n- Passed: %d\n- Skipped: %d\n- Failed: %d\n- Failed evaluating: %d\n",
		v.Total, v.Passed, v.Skipped, v.Failed, v.FailedEvaluating)
	if len(v.Cases) == 0 {
		fmt.Fprintln(w)
		return
	}

	rows := make([][]string, 0, len(v.Cases))
	for _, c := range v.Cases {
		rows = append(rows, []string{
			c.Name,
			statusStyles[api.TestStatus(c.Status)].Render(c.Status),
			strconv.FormatFloat(c.Duration, 'f', 2, 64),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Test", "Status", "Seconds").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
}
