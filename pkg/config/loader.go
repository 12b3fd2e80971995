package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/metasnap/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. METASNAP_SOURCE_URL
const EnvPrefix = "METASNAP"

// Override adjusts a loaded Config before it is validated, e.g. from CLI flags
type Override func(*Config)

// Load builds a Config from the defaults, the optional YAML file at path,
// METASNAP_* environment variables and overrides, in increasing precedence.
// An empty path skips the file. The result is normalized and validated once,
// after every override has been applied.
func Load(path string, overrides ...Override) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", path)
		}
		content := substituteEnvVars(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse YAML").
				WithDetail("path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	for _, override := range overrides {
		override(cfg)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("source.url", d.Source.URL)
	v.SetDefault("source.url_template", d.Source.URLTemplate)
	v.SetDefault("source.table_id", d.Source.TableID)
	v.SetDefault("source.version", d.Source.Version)
	v.SetDefault("source.timeout", d.Source.Timeout)
	v.SetDefault("source.user_agent", d.Source.UserAgent)
	v.SetDefault("source.enable_http2", d.Source.EnableHTTP2)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.compression", d.Output.Compression)
	v.SetDefault("output.key_column", d.Output.KeyColumn)
	v.SetDefault("output.value_column", d.Output.ValueColumn)

	v.SetDefault("publish.target", d.Publish.Target)
	v.SetDefault("publish.bucket", d.Publish.Bucket)
	v.SetDefault("publish.prefix", d.Publish.Prefix)
	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.endpoint", d.Publish.Endpoint)
	v.SetDefault("publish.credentials_file", d.Publish.CredentialsFile)
	v.SetDefault("publish.access_key_id", d.Publish.AccessKeyID)
	v.SetDefault("publish.secret_access_key", d.Publish.SecretAccessKey)

	v.SetDefault("observability.log_level", d.Observability.LogLevel)
	v.SetDefault("observability.log_encoding", d.Observability.LogEncoding)
	v.SetDefault("observability.metrics_file", d.Observability.MetricsFile)
	v.SetDefault("observability.enable_tracing", d.Observability.EnableTracing)
}

// substituteEnvVars expands ${VAR} and $VAR references in one pass.
// Substituted values are not expanded again.
func substituteEnvVars(content string) string {
	return os.Expand(content, os.Getenv)
}
