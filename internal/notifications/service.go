package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xritd/internal/config"
)

// Product describes a rendered output that was just written.
type Product struct {
	Folder    string
	GroupKey  int64
	Pipeline  string
	Tag       string
	Satellite string
	Region    string
	Path      string
	FrameTime time.Time
}

// Publisher announces products. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, p Product) error
	Close() error
}

// NewService builds the publishers enabled by cfg. When nothing is configured a
// no-op publisher is returned.
func NewService(ctx context.Context, cfg *config.Config) (Publisher, error) {
	if cfg == nil || !cfg.Publish.Enabled() {
		return Nop(), nil
	}
	pub := cfg.Publish

	var publishers []Publisher
	if pub.NATSURL != "" {
		natsPub, err := DialNATS(pub.NATSURL, pub.SubjectPrefix, pub.Timeout())
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, natsPub)
	}
	if pub.S3Bucket != "" {
		s3Pub, err := NewS3Mirror(ctx, S3Options{
			Bucket:       pub.S3Bucket,
			Prefix:       pub.S3Prefix,
			Region:       pub.S3Region,
			Endpoint:     pub.S3Endpoint,
			UsePathStyle: pub.S3UsePathStyle,
			Timeout:      pub.Timeout(),
		})
		if err != nil {
			for _, p := range publishers {
				_ = p.Close()
			}
			return nil, err
		}
		publishers = append(publishers, s3Pub)
	}
	if len(publishers) == 1 {
		return publishers[0], nil
	}
	return Fanout(publishers), nil
}

// Fanout delivers every product to each publisher in order.
type Fanout []Publisher

// Publish calls every publisher and joins their errors.
func (f Fanout) Publish(ctx context.Context, p Product) error {
	var errs []error
	for _, pub := range f {
		if err := pub.Publish(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, pub := range f {
		if err := pub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop returns a publisher that discards everything.
func Nop() Publisher { return nopPublisher{} }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Product) error { return nil }
func (nopPublisher) Close() error                           { return nil }

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func publishError(publisher string, p Product, err error) error {
	return fmt.Errorf("%s: publish %s: %w", publisher, p.Path, err)
}
