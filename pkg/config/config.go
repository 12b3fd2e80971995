package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/formats/columnar"
)

const (
	// DefaultURLTemplate points at the IBGE aggregates metadata endpoint
	DefaultURLTemplate = "https://servicodados.ibge.gov.br/api/v3/agregados/{table}/metadados"
	// DefaultTableID is the IPCA monthly variation aggregate
	DefaultTableID = 1419
	// LatestVersion selects the most recent version of a table
	LatestVersion = -1
	// DefaultTimeout bounds the single fetch
	DefaultTimeout = 30 * time.Second
	// DefaultOutputPath is written relative to the working directory
	DefaultOutputPath = "metadados.parquet"
)

// Config is the complete metasnap configuration
type Config struct {
	Source        SourceConfig        `yaml:"source" mapstructure:"source"`
	Output        OutputConfig        `yaml:"output" mapstructure:"output"`
	Publish       PublishConfig       `yaml:"publish" mapstructure:"publish"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// SourceConfig describes the document to fetch
type SourceConfig struct {
	// URL, when set, is used verbatim and the template is ignored
	URL         string `yaml:"url,omitempty" mapstructure:"url" validate:"omitempty,http_url"`
	URLTemplate string `yaml:"url_template" mapstructure:"url_template" validate:"required_without=URL"`
	TableID     int    `yaml:"table_id" mapstructure:"table_id" validate:"gte=0"`
	// Version -1 selects the latest version
	Version     int           `yaml:"version" mapstructure:"version" validate:"gte=-1"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
	EnableHTTP2 bool          `yaml:"enable_http2" mapstructure:"enable_http2"`
}

// OutputConfig describes the snapshot file
type OutputConfig struct {
	Path        string `yaml:"path" mapstructure:"path" validate:"required"`
	Format      string `yaml:"format" mapstructure:"format" validate:"oneof=parquet arrow"`
	// Compression empty selects the format default: snappy for parquet,
	// uncompressed for arrow. Arrow accepts only zstd, lz4 and none.
	Compression string `yaml:"compression,omitempty" mapstructure:"compression" validate:"omitempty,oneof=snappy gzip zstd lz4 brotli none"`
	KeyColumn   string `yaml:"key_column" mapstructure:"key_column" validate:"required"`
	ValueColumn string `yaml:"value_column" mapstructure:"value_column" validate:"required,nefield=KeyColumn"`
}

// PublishConfig describes the optional upload after a successful write
type PublishConfig struct {
	Target          string `yaml:"target" mapstructure:"target" validate:"oneof=none s3 gcs"`
	Bucket          string `yaml:"bucket,omitempty" mapstructure:"bucket" validate:"required_unless=Target none"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint,omitempty" mapstructure:"endpoint" validate:"omitempty,url"`
	CredentialsFile string `yaml:"credentials_file,omitempty" mapstructure:"credentials_file"`
	// AccessKeyID and SecretAccessKey set static S3 credentials; when empty
	// the default AWS credential chain is used.
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// ObservabilityConfig configures logging, metrics and tracing
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogEncoding string `yaml:"log_encoding" mapstructure:"log_encoding" validate:"oneof=json console"`
	// MetricsFile, when set, receives the run metrics in Prometheus text format
	MetricsFile   string `yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
	EnableTracing bool   `yaml:"enable_tracing" mapstructure:"enable_tracing"`
}

// Default returns the reference configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			URLTemplate: DefaultURLTemplate,
			TableID:     DefaultTableID,
			Version:     LatestVersion,
			Timeout:     DefaultTimeout,
			UserAgent:   "metasnap/1.0",
			EnableHTTP2: true,
		},
		Output: OutputConfig{
			Path:        DefaultOutputPath,
			Format:      "parquet",
			KeyColumn:   "Chave",
			ValueColumn: "Valor",
		},
		Publish: PublishConfig{
			Target: "none",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogEncoding: "console",
		},
	}
}

// SourceURL returns the URL to fetch: Source.URL when set, otherwise the
// template with {table} and {version} substituted.
func (c *Config) SourceURL() string {
	if c.Source.URL != "" {
		return c.Source.URL
	}
	return strings.NewReplacer(
		"{table}", strconv.Itoa(c.Source.TableID),
		"{version}", strconv.Itoa(c.Source.Version),
	).Replace(c.Source.URLTemplate)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// report yaml paths rather than Go field names
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("yaml")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		validate = v
	})
	return validate
}

// Validate checks the configuration and reports every invalid field
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to validate configuration")
		}

		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fieldPath(fe.Namespace()), fe.Tag()))
		}
		return errors.New(errors.ErrorTypeConfig, "invalid configuration: "+strings.Join(fields, ", ")).
			WithDetail("fields", fields)
	}

	u, err := url.Parse(c.SourceURL())
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New(errors.ErrorTypeConfig, "source URL must be an absolute http(s) URL").
			WithDetail("url", c.SourceURL())
	}

	return c.validateOutput()
}

// validateOutput checks the settings that depend on the output format
func (c *Config) validateOutput() error {
	format, err := columnar.ParseFormat(c.Output.Format)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid configuration: output.format")
	}

	if !columnar.SupportsCompression(format, c.Output.Compression) {
		return errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("invalid configuration: output.compression (%s is not available for %s)", c.Output.Compression, format)).
			WithDetail("supported", columnar.ArrowCompressions())
	}

	if ext := filepath.Ext(c.Output.Path); ext != "" {
		if pathFormat, err := columnar.ParseFormat(ext); err == nil && pathFormat != format {
			return errors.New(errors.ErrorTypeConfig,
				fmt.Sprintf("invalid configuration: output.path (%s extension does not match format %s)", ext, format)).
				WithDetail("path", c.Output.Path)
		}
	}
	return nil
}

// Normalize fills in values derived from other settings. An output path
// left at the default takes the extension of the configured format, so
// format arrow writes metadados.arrow.
func (c *Config) Normalize() {
	if c.Output.Path != DefaultOutputPath {
		return
	}
	format, err := columnar.ParseFormat(c.Output.Format)
	if err != nil {
		return
	}
	c.Output.Path = strings.TrimSuffix(DefaultOutputPath, filepath.Ext(DefaultOutputPath)) + columnar.FileExtension(format)
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}
