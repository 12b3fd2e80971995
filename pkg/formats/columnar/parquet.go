package columnar

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/metasnap/pkg/models"
)

// parquetWriter implements Writer for Parquet format
type parquetWriter struct {
	config      *WriterConfig
	arrowSchema *arrow.Schema
	fileWriter  *pqarrow.FileWriter
	pool        memory.Allocator
	rows        int64
	closed      bool
	mu          sync.Mutex
}

func newParquetWriter(w io.Writer, config *WriterConfig) (*parquetWriter, error) {
	codec, err := parquetCompression(config.Compression)
	if err != nil {
		return nil, err
	}

	pool := memory.NewGoAllocator()
	arrowSchema := Schema(config)

	opts := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(false),
		// readers outside arrow expect a required root, not arrow's repeated default
		parquet.WithRootRepetition(parquet.Repetitions.Required),
	}
	if config.PageSize > 0 {
		opts = append(opts, parquet.WithDataPageSize(int64(config.PageSize)))
	}
	props := parquet.NewWriterProperties(opts...)

	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(pool),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(arrowSchema, w, props, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	return &parquetWriter{
		config:      config,
		arrowSchema: arrowSchema,
		fileWriter:  fw,
		pool:        pool,
	}, nil
}

func (pw *parquetWriter) WriteTable(table *models.Table) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return fmt.Errorf("parquet writer is closed")
	}
	if table.Len() == 0 {
		return nil
	}

	record := buildRecord(pw.pool, pw.arrowSchema, table)
	defer record.Release()

	if err := pw.fileWriter.WriteBuffered(record); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	pw.rows += record.NumRows()
	return nil
}

func (pw *parquetWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return nil
	}
	pw.closed = true

	if err := pw.fileWriter.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}

func (pw *parquetWriter) Format() Format {
	return Parquet
}

func (pw *parquetWriter) RowsWritten() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.rows
}

// buildRecord copies table into a single arrow record with the key and
// value columns in schema order. The caller releases the record.
func buildRecord(pool memory.Allocator, schema *arrow.Schema, table *models.Table) arrow.Record {
	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()

	keys := builder.Field(0).(*array.StringBuilder)
	values := builder.Field(1).(*array.StringBuilder)
	keys.Reserve(table.Len())
	values.Reserve(table.Len())

	for _, row := range table.Rows {
		keys.Append(row.Key)
		values.Append(row.Value)
	}
	return builder.NewRecord()
}

func parquetCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported compression: %s", name)
	}
}
