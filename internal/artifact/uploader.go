// Package artifact publishes the aggregated result of a run to an S3 bucket,
// so results of separate jobs can be collected and compared later.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"

	"github.com/redhat-openshift-ecosystem/junit-reporter/internal/summary"
)

const (
	defaultRegion = "us-east-1"
	defaultPrefix = "junit-reporter"
	objectSuffix  = ".json.xz"
)

// Config locates the uploaded objects.
type Config struct {
	Bucket string
	Region string
	Prefix string
}

// Metadata identifies the run an artifact belongs to.
type Metadata struct {
	Repository string
	SHA        string
	Job        string
}

func (m Metadata) objectMeta() map[string]string {
	return map[string]string{
		"repository": m.Repository,
		"sha":        m.SHA,
		"job":        m.Job,
	}
}

// Uploader sends xz compressed JSON results to the bucket.
type Uploader struct {
	config   Config
	uploader s3manageriface.UploaderAPI
}

// NewUploader creates an uploader with a session for the configured region.
func NewUploader(cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("missing bucket name")
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AWS session")
	}
	return NewUploaderWithAPI(cfg, s3manager.NewUploader(sess)), nil
}

// NewUploaderWithAPI creates an uploader over an existing upload manager.
func NewUploaderWithAPI(cfg Config, api s3manageriface.UploaderAPI) *Uploader {
	return &Uploader{config: cfg, uploader: api}
}

// ObjectKey is <prefix>/<owner>/<repo>/<sha>/<job>.json.xz.
func (u *Uploader) ObjectKey(meta Metadata) string {
	job := strings.NewReplacer("/", "-", " ", "_").Replace(meta.Job)
	if job == "" {
		job = "results"
	}
	return path.Join(u.config.Prefix, meta.Repository, meta.SHA, job+objectSuffix)
}

// Upload compresses agg and uploads it, returning the object URI.
func (u *Uploader) Upload(agg *summary.AggregatedResult, meta Metadata) (string, error) {
	data, err := Compress(agg)
	if err != nil {
		return "", err
	}

	key := u.ObjectKey(meta)
	uri := "s3://" + u.config.Bucket + "/" + key
	log.Debugf("Uploading results to %s", uri)
	_, err = u.uploader.Upload(&s3manager.UploadInput{
		Bucket:          aws.String(u.config.Bucket),
		Key:             aws.String(key),
		Metadata:        aws.StringMap(meta.objectMeta()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("xz"),
		Body:            bytes.NewReader(data),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to upload results to bucket %s", u.config.Bucket)
	}
	log.Info("Results published successfully to ", uri)
	return uri, nil
}

// Compress serializes agg to JSON and compresses it with xz.
func Compress(agg *summary.AggregatedResult) ([]byte, error) {
	payload, err := json.Marshal(agg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal results")
	}
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create xz writer")
	}
	if _, err := w.Write(payload); err != nil {
		return nil, errors.Wrap(err, "unable to compress results")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "unable to compress results")
	}
	return buf.Bytes(), nil
}
