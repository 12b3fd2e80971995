package pipeline

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/metasnap/pkg/clients"
	"github.com/ajitpratap0/metasnap/pkg/config"
	"github.com/ajitpratap0/metasnap/pkg/destination"
	"github.com/ajitpratap0/metasnap/pkg/destination/gcs"
	"github.com/ajitpratap0/metasnap/pkg/destination/s3"
	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/flatten"
	"github.com/ajitpratap0/metasnap/pkg/formats/columnar"
	"github.com/ajitpratap0/metasnap/pkg/metrics"
)

// Build wires a SnapshotPipeline from cfg, normalizing it first. The caller
// must Close the pipeline.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*SnapshotPipeline, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpConfig := clients.DefaultHTTPConfig()
	httpConfig.RequestTimeout = cfg.Source.Timeout
	httpConfig.EnableHTTP2 = cfg.Source.EnableHTTP2
	if cfg.Source.UserAgent != "" {
		httpConfig.UserAgent = cfg.Source.UserAgent
	}
	client := clients.NewHTTPClient(httpConfig, log)

	writerConfig, err := WriterConfig(cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	dest := destination.NewFileDestination(cfg.Output.Path, writerConfig, log)

	opts := []Option{
		WithCloser(client),
		WithMetrics(metrics.NewCollector()),
	}

	publisher, closer, err := newPublisher(ctx, cfg.Publish, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if publisher != nil {
		opts = append(opts, WithPublisher(publisher))
	}
	if closer != nil {
		opts = append(opts, WithCloser(closer))
	}

	return NewSnapshotPipeline(cfg.SourceURL(), client, flatten.New(log), dest, log, opts...), nil
}

// WriterConfig translates the output section into a columnar writer config
func WriterConfig(cfg *config.Config) (*columnar.WriterConfig, error) {
	format, err := columnar.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid output format")
	}

	wc := columnar.DefaultWriterConfig()
	wc.Format = format
	wc.Compression = cfg.Output.Compression
	wc.KeyColumn = cfg.Output.KeyColumn
	wc.ValueColumn = cfg.Output.ValueColumn
	return wc, nil
}

func newPublisher(ctx context.Context, pc config.PublishConfig, log *zap.Logger) (destination.Publisher, io.Closer, error) {
	switch pc.Target {
	case "s3":
		p, err := s3.New(ctx, S3Config(pc), log)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	case "gcs":
		p, err := gcs.New(ctx, gcs.Config{
			Bucket:          pc.Bucket,
			Prefix:          pc.Prefix,
			CredentialsFile: pc.CredentialsFile,
			Endpoint:        pc.Endpoint,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, nil
	}
}

// S3Config translates the publish section into the S3 publisher config
func S3Config(pc config.PublishConfig) s3.Config {
	return s3.Config{
		Bucket:          pc.Bucket,
		Prefix:          pc.Prefix,
		Region:          pc.Region,
		Endpoint:        pc.Endpoint,
		AccessKeyID:     pc.AccessKeyID,
		SecretAccessKey: pc.SecretAccessKey,
	}
}
