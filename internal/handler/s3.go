package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/me/zoorunner/internal/config"
)

// ErrNoBucket is returned when the S3 handler has no destination bucket.
var ErrNoBucket = errors.New("stage-out bucket not configured")

// Uploader matches manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Handler stores artifacts locally like LocalHandler and uploads them to
// s3://<bucket>/<prefix>/<jobid>/.
type S3Handler struct {
	*LocalHandler

	uploader Uploader
	bucket   string
	prefix   string
}

// NewS3Handler creates an S3Handler around local.
func NewS3Handler(local *LocalHandler, uploader Uploader, bucket, prefix string) (*S3Handler, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	return &S3Handler{
		LocalHandler: local,
		uploader:     uploader,
		bucket:       bucket,
		prefix:       prefix,
	}, nil
}

// NewUploader builds an S3 uploader from the stage-out configuration. A
// custom ServiceURL selects an S3-compatible store with path-style
// addressing. Credentials left unset fall back to the default chain.
func NewUploader(ctx context.Context, cfg config.StageOutConfig) (*manager.Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if hasCredential(cfg.AccessKeyID) && hasCredential(cfg.SecretAccessKey) {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ServiceURL != "" {
			o.BaseEndpoint = aws.String(cfg.ServiceURL)
			o.UsePathStyle = true
		}
	})
	return manager.NewUploader(client), nil
}

func hasCredential(v string) bool {
	return v != "" && v != "unset"
}

// HandleOutputs implements runner.Handler.
func (h *S3Handler) HandleOutputs(ctx context.Context, log string, output map[string]any, _ map[string]any, _ []string) error {
	a, err := h.persist(log, output)
	if err != nil {
		return err
	}
	uploads := []struct {
		name        string
		body        []byte
		contentType string
	}{
		{LogFile, a.log, "text/plain"},
		{OutputFile, a.output, "application/json"},
	}
	for _, u := range uploads {
		key := path.Join(h.prefix, h.JobID(), u.name)
		out, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(h.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(u.body),
			ContentType: aws.String(u.contentType),
		})
		if err != nil {
			return fmt.Errorf("upload s3://%s/%s: %w", h.bucket, key, err)
		}
		h.logger.Info("artifact uploaded", "job_id", h.JobID(), "location", out.Location)
	}
	return nil
}
