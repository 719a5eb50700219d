package github

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/annotation"
)

// MaxAnnotationsPerRequest is the limit of annotations accepted by one
// check run create or update call.
const MaxAnnotationsPerRequest = 50

// CheckAnnotation is the wire form of an annotation.
type CheckAnnotation struct {
	Path            string `json:"path"`
	StartLine       int    `json:"start_line"`
	EndLine         int    `json:"end_line"`
	AnnotationLevel string `json:"annotation_level"`
	Title           string `json:"title,omitempty"`
	Message         string `json:"message"`
	RawDetails      string `json:"raw_details,omitempty"`
}

func newCheckAnnotations(in []annotation.Annotation) []CheckAnnotation {
	out := make([]CheckAnnotation, 0, len(in))
	for _, a := range in {
		out = append(out, CheckAnnotation{
			Path:            a.Path,
			StartLine:       a.StartLine,
			EndLine:         a.EndLine,
			AnnotationLevel: string(a.Level),
			Title:           a.Title,
			Message:         a.Message,
			RawDetails:      a.RawDetails,
		})
	}
	return out
}

type CheckOutput struct {
	Title       string            `json:"title"`
	Summary     string            `json:"summary"`
	Annotations []CheckAnnotation `json:"annotations,omitempty"`
}

type CheckRun struct {
	ID         int64        `json:"id,omitempty"`
	Name       string       `json:"name,omitempty"`
	HeadSHA    string       `json:"head_sha,omitempty"`
	Status     string       `json:"status,omitempty"`
	Conclusion string       `json:"conclusion,omitempty"`
	Output     *CheckOutput `json:"output,omitempty"`
}

type checkRunList struct {
	TotalCount int        `json:"total_count"`
	CheckRuns  []CheckRun `json:"check_runs"`
}

// ListCheckRuns lists the latest check runs of ref with the given name and
// status.
func (c *Client) ListCheckRuns(ctx context.Context, ref, name, status string) ([]CheckRun, error) {
	q := url.Values{}
	q.Set("filter", "latest")
	if name != "" {
		q.Set("check_name", name)
	}
	if status != "" {
		q.Set("status", status)
	}
	out := checkRunList{}
	if err := c.do(ctx, "GET", c.repoPath("/commits/%s/check-runs", url.PathEscape(ref)), q, nil, &out); err != nil {
		return nil, err
	}
	return out.CheckRuns, nil
}

func (c *Client) CreateCheckRun(ctx context.Context, run *CheckRun) (*CheckRun, error) {
	out := &CheckRun{}
	if err := c.do(ctx, "POST", c.repoPath("/check-runs"), nil, run, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateCheckRun(ctx context.Context, id int64, run *CheckRun) error {
	return c.do(ctx, "PATCH", c.repoPath("/check-runs/%d", id), nil, run, nil)
}

// CheckRequest describes the check run of one suite.
type CheckRequest struct {
	Name        string
	HeadSHA     string
	Title       string
	Summary     string
	Conclusion  string
	Annotations []annotation.Annotation
	// UpdateJob, when set, updates the in progress check run of that job
	// instead of creating a new one.
	UpdateJob string
}

// PublishCheck creates, or updates, a check run carrying every annotation of
// req, sent in pages of MaxAnnotationsPerRequest.
func (c *Client) PublishCheck(ctx context.Context, req *CheckRequest) error {
	pages := paginate(newCheckAnnotations(req.Annotations), MaxAnnotationsPerRequest)
	output := func(page []CheckAnnotation) *CheckOutput {
		return &CheckOutput{Title: req.Title, Summary: req.Summary, Annotations: page}
	}

	var id int64
	if req.UpdateJob != "" {
		runs, err := c.ListCheckRuns(ctx, req.HeadSHA, req.UpdateJob, "in_progress")
		if err != nil {
			return errors.Wrapf(err, "unable to list check runs of %q", req.UpdateJob)
		}
		if len(runs) == 0 {
			return errors.Errorf("no check run in progress named %q for %s", req.UpdateJob, req.HeadSHA)
		}
		id = runs[0].ID
		log.Infof("%s - Updating check run %d with %d annotations", req.Name, id, len(req.Annotations))
	} else {
		log.Infof("%s - Creating check run", req.Name)
		run, err := c.CreateCheckRun(ctx, &CheckRun{
			Name:       req.Name,
			HeadSHA:    req.HeadSHA,
			Status:     "completed",
			Conclusion: req.Conclusion,
			Output:     output(pages[0]),
		})
		if err != nil {
			return err
		}
		id = run.ID
		pages = pages[1:]
	}

	for _, page := range pages {
		if err := c.UpdateCheckRun(ctx, id, &CheckRun{Output: output(page)}); err != nil {
			return err
		}
	}
	return nil
}

// paginate always returns at least one page, possibly empty.
func paginate(items []CheckAnnotation, size int) [][]CheckAnnotation {
	pages := [][]CheckAnnotation{}
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		pages = append(pages, items[i:end])
	}
	if len(pages) == 0 {
		pages = append(pages, []CheckAnnotation{})
	}
	return pages
}
