// Package s3 publishes snapshot files to Amazon S3 or an S3-compatible store.
package s3

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/metasnap/pkg/destination"
	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/logger"
)

const defaultUploadPartSize = 5 * 1024 * 1024 // 5MB

// Config configures the S3 publisher
type Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint overrides the S3 endpoint, for MinIO or LocalStack. Requests
	// then use path-style addressing.
	Endpoint string
	// AccessKeyID and SecretAccessKey set static credentials. When empty the
	// default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	PartSize        int64
}

// Publisher uploads files to one bucket
type Publisher struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
	logger   *zap.Logger
}

// New loads AWS configuration and creates a Publisher
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "s3 bucket is required")
	}
	if log == nil {
		log = logger.Get()
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	partSize := cfg.PartSize
	if partSize <= 0 {
		partSize = defaultUploadPartSize
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
		u.Concurrency = 1
	})

	return &Publisher{
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		uploader: uploader,
		logger:   log.With(zap.String("component", "s3_publisher"), zap.String("bucket", cfg.Bucket)),
	}, nil
}

// Publish uploads localPath and returns its s3:// URI
func (p *Publisher) Publish(ctx context.Context, localPath string) (string, error) {
	start := time.Now()
	key := destination.ObjectKey(p.prefix, localPath)
	uri := fmt.Sprintf("s3://%s/%s", p.bucket, key)

	f, err := os.Open(localPath)
	if err != nil {
		return "", p.fail(err, "failed to open snapshot for upload", uri)
	}
	defer func() { _ = f.Close() }()

	result, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(destination.ContentType(localPath)),
		Metadata: map[string]string{
			"created": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", p.fail(err, "failed to upload to S3", uri)
	}

	p.logger.Info("snapshot uploaded to S3",
		zap.String("uri", uri),
		zap.String("location", result.Location),
		zap.Duration("duration", time.Since(start)))
	return uri, nil
}

func (p *Publisher) fail(cause error, msg, uri string) error {
	err := errors.Wrap(cause, errors.ErrorTypePublish, msg).WithDetail("uri", uri)
	p.logger.Error("publish failed", logger.ErrorFields(err)...)
	return err
}
