package pkg

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix maps the action inputs (INPUT_REPORT_PATHS, ...) to flags.
	EnvPrefix          = "INPUT"
	DefaultReportPaths = "**/junit-reports/TEST-*.xml"
)

// Config is the configuration of a publish run.
type Config struct {
	Token         string
	Commit        string
	JobName       string
	Summaries     []string
	CheckNames    []string
	ReportPaths   []string
	UpdateCheck   bool
	RequireTests  bool
	FailOnFailure bool
	ProjectTokens []string
	RegistryURL   string

	SheetOutput    string
	ChartOutput    string
	ArtifactBucket string
	ArtifactRegion string
	ArtifactPrefix string

	SkipChecks  bool
	SkipComment bool
	SkipSummary bool
}

// NewConfigFromViper reads the run configuration bound to viper.
func NewConfigFromViper() *Config {
	return &Config{
		Token:          viper.GetString("token"),
		Commit:         viper.GetString("commit"),
		JobName:        viper.GetString("job-name"),
		Summaries:      Multiline("summary"),
		CheckNames:     Multiline("check-name"),
		ReportPaths:    Multiline("report-paths"),
		UpdateCheck:    viper.GetBool("update-check"),
		RequireTests:   viper.GetBool("require-tests"),
		FailOnFailure:  viper.GetBool("fail-on-failure"),
		ProjectTokens:  Multiline("project-api-key-map"),
		RegistryURL:    viper.GetString("registry-url"),
		SheetOutput:    viper.GetString("xlsx-output"),
		ChartOutput:    viper.GetString("chart-output"),
		ArtifactBucket: viper.GetString("artifact-bucket"),
		ArtifactRegion: viper.GetString("artifact-region"),
		ArtifactPrefix: viper.GetString("artifact-prefix"),
		SkipChecks:     viper.GetBool("skip-checks"),
		SkipComment:    viper.GetBool("skip-comment"),
		SkipSummary:    viper.GetBool("skip-summary"),
	}
}

// Multiline reads a list input. Flags give one entry per occurrence, the
// environment gives newline separated entries. Blank entries are dropped.
func Multiline(key string) []string {
	var raw []string
	switch v := viper.Get(key).(type) {
	case string:
		raw = []string{v}
	case []string:
		raw = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	out := []string{}
	for _, r := range raw {
		for _, line := range strings.Split(r, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
