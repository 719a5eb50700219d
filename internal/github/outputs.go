package github

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Output is one named step output.
type Output struct {
	Name  string
	Value string
}

// SetOutputs appends the outputs to the runner output file. Outside of a
// runner, path is empty and the outputs are only logged.
func SetOutputs(path string, outputs []Output) error {
	sb := strings.Builder{}
	for _, o := range outputs {
		log.Debugf("Output %s=%s", o.Name, o.Value)
		if strings.Contains(o.Value, "\n") {
			fmt.Fprintf(&sb, "%s<<__EOF__\n%s\n__EOF__\n", o.Name, o.Value)
			continue
		}
		fmt.Fprintf(&sb, "%s=%s\n", o.Name, o.Value)
	}
	if path == "" {
		log.Info("Not running in GitHub Actions, outputs:\n" + sb.String())
		return nil
	}
	return appendFile(path, sb.String())
}

// AppendSummary appends content to the job summary file.
func AppendSummary(path, content string) error {
	if path == "" {
		return errors.New("GITHUB_STEP_SUMMARY is not set, unable to write the job summary")
	}
	return appendFile(path, content+"\n")
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "unable to open %s", path)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}
	return nil
}
