// Package gcs publishes snapshot files to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/metasnap/pkg/destination"
	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/logger"
)

// Config configures the GCS publisher
type Config struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	// Endpoint overrides the storage endpoint, e.g. for fake-gcs-server.
	// Requests are then sent without authentication.
	Endpoint string
}

// Publisher uploads files to one bucket
type Publisher struct {
	bucket string
	prefix string
	client *storage.Client
	handle *storage.BucketHandle
	logger *zap.Logger
}

// New creates a storage client and a Publisher. Close releases the client.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "gcs bucket is required")
	}
	if log == nil {
		log = logger.Get()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}

	return &Publisher{
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		client: client,
		handle: client.Bucket(cfg.Bucket),
		logger: log.With(zap.String("component", "gcs_publisher"), zap.String("bucket", cfg.Bucket)),
	}, nil
}

// URI returns the gs:// URI localPath is published to
func (p *Publisher) URI(localPath string) string {
	return fmt.Sprintf("gs://%s/%s", p.bucket, destination.ObjectKey(p.prefix, localPath))
}

// Publish uploads localPath and returns its gs:// URI
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	start := time.Now()
	key := destination.ObjectKey(p.prefix, localPath)
	uri := p.URI(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return "", p.fail(err, "failed to open snapshot for upload", uri)
	}
	defer func() { _ = f.Close() }()

	writer := p.handle.Object(key).NewWriter(ctx)
	writer.ContentType = destination.ContentType(localPath)
	writer.Metadata = map[string]string{
		"created": time.Now().UTC().Format(time.RFC3339),
	}

	size, err := io.Copy(writer, f)
	if err != nil {
		_ = writer.Close()
		return "", p.fail(err, "failed to write to GCS", uri)
	}
	if err := writer.Close(); err != nil {
		return "", p.fail(err, "failed to close GCS writer", uri)
	}

	p.logger.Info("snapshot uploaded to GCS",
		zap.String("uri", uri),
		zap.Int64("bytes", size),
		zap.Duration("duration", time.Since(start)))
	return uri, nil
}

// Close releases the storage client
func (p *Publisher) Close() error {
	return p.client.Close()
}

func (p *Publisher) fail(cause error, msg, uri string) error {
	err := errors.Wrap(cause, errors.ErrorTypePublish, msg).WithDetail("uri", uri)
	p.logger.Error("publish failed", logger.ErrorFields(err)...)
	return err
}
