// Package columnar provides columnar format support for metasnap snapshots.
//
// A snapshot is always a two-column table of strings. Writers encode a
// models.Table as Apache Parquet (via arrow-go's pqarrow) or as an Apache
// Arrow IPC file; readers load either format back into a models.Table.
package columnar

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/metasnap/pkg/models"
)

// Format represents a columnar storage format
type Format string

const (
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
	// Arrow is the Apache Arrow IPC file format
	Arrow Format = "arrow"
)

const (
	// DefaultKeyColumn names the column holding top-level keys
	DefaultKeyColumn = "Chave"
	// DefaultValueColumn names the column holding rendered values
	DefaultValueColumn = "Valor"
)

// Writer encodes snapshot tables
type Writer interface {
	// WriteTable appends every row of table
	WriteTable(table *models.Table) error
	// Close flushes buffered rows and writes the file footer
	Close() error
	// Format returns the columnar format
	Format() Format
	// RowsWritten returns rows written so far
	RowsWritten() int64
}

// WriterConfig configures columnar writers
type WriterConfig struct {
	Format      Format
	Compression string
	KeyColumn   string
	ValueColumn string
	PageSize    int
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Format:      Parquet,
		Compression: "snappy",
		KeyColumn:   DefaultKeyColumn,
		ValueColumn: DefaultValueColumn,
		PageSize:    1024 * 1024,
	}
}

// NewWriter creates a new columnar writer
func NewWriter(w io.Writer, config *WriterConfig) (Writer, error) {
	if config == nil {
		config = DefaultWriterConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	switch config.Format {
	case Parquet:
		return newParquetWriter(w, config)
	case Arrow:
		return newArrowWriter(w, config)
	default:
		return nil, fmt.Errorf("unsupported columnar format: %s", config.Format)
	}
}

func (c *WriterConfig) validate() error {
	if c.KeyColumn == "" || c.ValueColumn == "" {
		return fmt.Errorf("key and value column names are required")
	}
	if c.KeyColumn == c.ValueColumn {
		return fmt.Errorf("key and value columns must differ, both are %q", c.KeyColumn)
	}
	if !SupportsCompression(c.Format, c.Compression) {
		return fmt.Errorf("compression %q is not supported for %s", c.Compression, c.Format)
	}
	return nil
}

// Schema returns the two-column arrow schema described by config
func Schema(config *WriterConfig) *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: config.KeyColumn, Type: arrow.BinaryTypes.String},
		{Name: config.ValueColumn, Type: arrow.BinaryTypes.String},
	}, nil)
}

// ParseFormat maps a format name or file extension to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "parquet", "pq":
		return Parquet, nil
	case "arrow", "ipc", "feather":
		return Arrow, nil
	default:
		return "", fmt.Errorf("unsupported columnar format: %s", s)
	}
}

// FileExtension returns the conventional extension for format
func FileExtension(format Format) string {
	switch format {
	case Arrow:
		return ".arrow"
	default:
		return ".parquet"
	}
}

// MIMEType returns the content type used when publishing format
func MIMEType(format Format) string {
	switch format {
	case Arrow:
		return "application/vnd.apache.arrow.file"
	default:
		return "application/vnd.apache.parquet"
	}
}

// SupportedCompressions lists the accepted parquet compression names
func SupportedCompressions() []string {
	return []string{"snappy", "gzip", "zstd", "lz4", "brotli", "none"}
}

// ArrowCompressions lists the codecs the Arrow IPC format defines
func ArrowCompressions() []string {
	return []string{"zstd", "lz4", "none"}
}

// SupportsCompression reports whether format can be written with the named
// codec. An empty name selects the format's default: snappy for parquet,
// uncompressed for arrow.
func SupportsCompression(format Format, name string) bool {
	name = strings.ToLower(name)
	if name == "" {
		return true
	}
	switch format {
	case Arrow:
		for _, c := range ArrowCompressions() {
			if c == name {
				return true
			}
		}
		return name == "uncompressed"
	default:
		_, err := parquetCompression(name)
		return err == nil
	}
}
