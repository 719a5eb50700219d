// Package github talks to the GitHub Actions runtime and the GitHub REST API:
// the workflow context, check runs, pull request comments and the step
// output files.
package github

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultAPIURL = "https://api.github.com"

// Env holds the variables exported by the Actions runner.
type Env struct {
	Repository  string `envconfig:"GITHUB_REPOSITORY"`
	SHA         string `envconfig:"GITHUB_SHA"`
	Ref         string `envconfig:"GITHUB_REF"`
	EventPath   string `envconfig:"GITHUB_EVENT_PATH"`
	APIURL      string `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`
	StepSummary string `envconfig:"GITHUB_STEP_SUMMARY"`
	Output      string `envconfig:"GITHUB_OUTPUT"`
	Job         string `envconfig:"GITHUB_JOB"`
	Token       string `envconfig:"GITHUB_TOKEN"`
}

// PullRequest is the subset of the pull request event payload in use.
type PullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	Head    struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

type event struct {
	PullRequest *PullRequest `json:"pull_request"`
}

// Context is the workflow context of the current run.
type Context struct {
	Env
	Owner       string
	Repo        string
	PullRequest *PullRequest
}

// LoadContext reads the runner environment and the triggering event payload.
// A missing or unreadable payload leaves PullRequest unset.
func LoadContext() (*Context, error) {
	ctx := &Context{}
	if err := envconfig.Process("", &ctx.Env); err != nil {
		return nil, errors.Wrap(err, "unable to read the GitHub Actions environment")
	}
	ctx.Owner, ctx.Repo, _ = strings.Cut(ctx.Repository, "/")

	if ctx.EventPath == "" {
		return ctx, nil
	}
	data, err := os.ReadFile(ctx.EventPath)
	if err != nil {
		log.WithError(err).Debugf("Unable to read event payload %s", ctx.EventPath)
		return ctx, nil
	}
	ev := event{}
	if err := json.Unmarshal(data, &ev); err != nil {
		log.WithError(err).Debugf("Unable to parse event payload %s", ctx.EventPath)
		return ctx, nil
	}
	ctx.PullRequest = ev.PullRequest
	return ctx, nil
}

// HeadSHA resolves the commit to report on: the explicit commit, else the
// pull request head, else the workflow SHA.
func (c *Context) HeadSHA(commit string) string {
	switch {
	case commit != "":
		return commit
	case c.PullRequest != nil && c.PullRequest.Head.SHA != "":
		return c.PullRequest.Head.SHA
	}
	return c.SHA
}
