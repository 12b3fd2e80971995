// Package destination persists snapshot tables.
//
// FileDestination writes a table to a local columnar file. Publishers in the
// s3 and gcs subpackages copy a written file to object storage.
package destination

import (
	"bufio"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/formats/columnar"
	"github.com/ajitpratap0/metasnap/pkg/logger"
	"github.com/ajitpratap0/metasnap/pkg/models"
)

// DefaultPath is the output file written when no path is configured
const DefaultPath = "metadados.parquet"

// Publisher copies a written snapshot file somewhere else and returns the
// URI it was published to.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// FileDestination writes tables to a single local file, replacing any
// previous content.
type FileDestination struct {
	path   string
	config *columnar.WriterConfig
	logger *zap.Logger
}

// NewFileDestination creates a destination for path. A nil config writes
// parquet with the default columns.
func NewFileDestination(path string, config *columnar.WriterConfig, log *zap.Logger) *FileDestination {
	if path == "" {
		path = DefaultPath
	}
	if config == nil {
		config = columnar.DefaultWriterConfig()
	}
	if log == nil {
		log = logger.Get()
	}

	return &FileDestination{
		path:   path,
		config: config,
		logger: log.With(zap.String("component", "file_destination"), zap.String("path", path)),
	}
}

// Path returns the output file path
func (d *FileDestination) Path() string {
	return d.path
}

// Write encodes table into the output file.
//
// A nil or empty table is refused with ErrorTypeValidation before the
// filesystem is touched. The file is truncated and rewritten in place, so a
// failure part way through can leave a partial file behind.
func (d *FileDestination) Write(ctx context.Context, table *models.Table) error {
	if table.IsEmpty() {
		err := errors.New(errors.ErrorTypeValidation, "refusing to write an empty table").
			WithDetail("path", d.path)
		d.logger.Warn("nothing to write", zap.Error(err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return d.fail(err, "write cancelled")
	}

	start := time.Now()

	f, err := os.Create(d.path)
	if err != nil {
		return d.fail(err, "failed to create output file")
	}

	if err := d.encode(f, table); err != nil {
		_ = f.Close()
		return d.fail(err, "failed to encode table")
	}

	if err := f.Close(); err != nil {
		return d.fail(err, "failed to close output file")
	}

	d.logger.Info("table written",
		zap.Int("rows", table.Len()),
		zap.String("format", string(d.config.Format)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (d *FileDestination) encode(f *os.File, table *models.Table) error {
	bw := bufio.NewWriter(f)

	w, err := columnar.NewWriter(bw, d.config)
	if err != nil {
		return err
	}
	if err := w.WriteTable(table); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func (d *FileDestination) fail(cause error, msg string) error {
	err := errors.Wrap(cause, errors.ErrorTypeWrite, msg).WithDetail("path", d.path)
	d.logger.Error("write failed", logger.ErrorFields(err)...)
	return err
}

// ObjectKey joins prefix and the base name of localPath into an object key
func ObjectKey(prefix, localPath string) string {
	name := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ContentType guesses the MIME type of a snapshot file from its extension
func ContentType(localPath string) string {
	format, err := columnar.ParseFormat(filepath.Ext(localPath))
	if err != nil {
		return "application/octet-stream"
	}
	return columnar.MIMEType(format)
}
