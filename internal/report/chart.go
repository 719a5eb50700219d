package report

import (
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
)

// NewResultsChart builds a stacked bar of passed, skipped and failed cases
// per suite.
func NewResultsChart(agg *summary.AggregatedResult) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Test results",
			Subtitle: agg.Title(),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: true}),
	)

	names := make([]string, 0, len(agg.Suites))
	passed := make([]opts.BarData, 0, len(agg.Suites))
	skipped := make([]opts.BarData, 0, len(agg.Suites))
	failed := make([]opts.BarData, 0, len(agg.Suites))
	for _, s := range agg.Suites {
		names = append(names, s.CheckName)
		passed = append(passed, opts.BarData{Value: s.Passed})
		skipped = append(skipped, opts.BarData{Value: s.Skipped})
		failed = append(failed, opts.BarData{Value: s.Failed})
	}

	bar.SetXAxis(names).
		AddSeries("passed", passed).
		AddSeries("skipped", skipped).
		AddSeries("failed", failed).
		SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))
	return bar
}

// SaveChart renders the results chart as an HTML page.
func SaveChart(agg *summary.AggregatedResult, path string) error {
	page := components.NewPage()
	page.PageTitle = "JUnit Test Report"
	page.AddCharts(NewResultsChart(agg))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(io.MultiWriter(f))
}
