package summary

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Group is one declared report group: the glob to expand and how its checks
// are named and described.
type Group struct {
	CheckName   string
	Summary     string
	ReportPaths string
}

// NewGroups builds one group per report path. Check names and summaries are
// matched by position, or broadcast when a single entry is configured.
func NewGroups(reportPaths, checkNames, summaries []string) []Group {
	total := len(reportPaths)
	if total > 1 {
		warnMismatch("checkName", checkNames, total)
		warnMismatch("summary", summaries, total)
	}
	groups := make([]Group, 0, total)
	for i := 0; i < total; i++ {
		groups = append(groups, Group{
			CheckName:   retrieve("checkName", checkNames, i, total),
			Summary:     retrieve("summary", summaries, i, total),
			ReportPaths: retrieve("reportPaths", reportPaths, i, total),
		})
	}
	return groups
}

func warnMismatch(name string, items []string, total int) {
	if len(items) != 0 && len(items) != total {
		log.Warnf("%s has a different number of items than the 'reportPaths' input. This is usually a bug.", name)
	}
}

func retrieve(name string, items []string, index, total int) string {
	if total <= 1 {
		if len(items) == 1 {
			return strings.ReplaceAll(items[0], "\n", "")
		}
		return ""
	}
	switch {
	case len(items) == 0:
		return ""
	case len(items) == 1:
		return strings.ReplaceAll(items[0], "\n", "")
	case len(items) > index:
		return strings.ReplaceAll(items[index], "\n", "")
	}
	log.Errorf("%s has no valid config for position %d.", name, index)
	return ""
}
