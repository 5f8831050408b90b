package notifications

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"xritd/internal/services"
)

// S3Options configures the S3 mirror.
type S3Options struct {
	Bucket string
	Prefix string
	// Region is optional; the default AWS chain applies when empty.
	Region string
	// Endpoint is a custom URL for S3-compatible providers.
	Endpoint string
	// UsePathStyle puts the bucket in the path instead of the host name.
	UsePathStyle bool
	Timeout      time.Duration
}

// PutObjectAPI is the subset of *s3.Client used by S3Mirror.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads each product file to a bucket.
type S3Mirror struct {
	client  PutObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3Mirror builds a mirror from the default AWS credential chain.
func NewS3Mirror(ctx context.Context, opts S3Options) (*S3Mirror, error) {
	if opts.Bucket == "" {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "s3 config", "S3 bucket is required", nil)
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "s3 config", "Failed to load AWS config", err)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if opts.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return NewS3MirrorWithClient(s3.NewFromConfig(awsCfg, s3Opts...), opts), nil
}

// NewS3MirrorWithClient wraps an existing client.
func NewS3MirrorWithClient(client PutObjectAPI, opts S3Options) *S3Mirror {
	return &S3Mirror{
		client:  client,
		bucket:  opts.Bucket,
		prefix:  strings.Trim(opts.Prefix, "/"),
		timeout: opts.Timeout,
	}
}

// ObjectKey returns the key a product is uploaded under.
func (m *S3Mirror) ObjectKey(p Product) string {
	name := filepath.Base(p.Path)
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Publish uploads the product file.
func (m *S3Mirror) Publish(ctx context.Context, p Product) error {
	file, err := os.Open(p.Path)
	if err != nil {
		return publishError("s3", p, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return publishError("s3", p, err)
	}

	putCtx, cancel := withTimeout(ctx, m.timeout)
	defer cancel()
	_, err = m.client.PutObject(putCtx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(m.ObjectKey(p)),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("image/png"),
		Metadata: map[string]string{
			"satellite": p.Satellite,
			"region":    p.Region,
			"pipeline":  p.Pipeline,
			"frame":     p.FrameTime.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return publishError("s3", p, fmt.Errorf("put object s3://%s/%s: %w", m.bucket, m.ObjectKey(p), err))
	}
	return nil
}

// Close is a no-op; the SDK client holds no long-lived resources.
func (m *S3Mirror) Close() error { return nil }
