package columnar

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/ajitpratap0/metasnap/pkg/models"
)

// ParquetReader reads parquet snapshots back as rows.
//
// It keeps both the OS file handle and the parquet file handle so Close can
// release the descriptor.
type ParquetReader struct {
	file   *os.File
	pqFile *parquet.File
}

// OpenParquet opens path and validates it as a parquet file
func OpenParquet(path string) (*ParquetReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	return &ParquetReader{file: file, pqFile: pqFile}, nil
}

// Columns returns the top-level column names in schema order
func (r *ParquetReader) Columns() []string {
	fields := r.pqFile.Schema().Fields()
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name())
	}
	return names
}

// NumRows returns the row count recorded in the file footer
func (r *ParquetReader) NumRows() int64 {
	return r.pqFile.NumRows()
}

// ReadAll reads every row into a map keyed by column name
func (r *ParquetReader) ReadAll() ([]map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, r.NumRows())

	reader := parquet.NewReader(r.pqFile)
	defer func() { _ = reader.Close() }()

	for {
		row := make(map[string]interface{})
		err := reader.Read(&row)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ReadTable reads the key and value columns into a table, in file order
func (r *ParquetReader) ReadTable(keyColumn, valueColumn string) (*models.Table, error) {
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	table := models.NewTable(len(rows))
	for i, row := range rows {
		key, ok := row[keyColumn]
		if !ok {
			return nil, fmt.Errorf("row %d has no column %q", i, keyColumn)
		}
		value, ok := row[valueColumn]
		if !ok {
			return nil, fmt.Errorf("row %d has no column %q", i, valueColumn)
		}
		table.Append(cellText(key), cellText(value))
	}
	return table, nil
}

// Close releases the underlying file
func (r *ParquetReader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// ReadTable loads a snapshot file of the given format
func ReadTable(path string, format Format, keyColumn, valueColumn string) (*models.Table, error) {
	switch format {
	case Arrow:
		return ReadArrowTable(path, keyColumn, valueColumn)
	case Parquet:
		r, err := OpenParquet(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return r.ReadTable(keyColumn, valueColumn)
	default:
		return nil, fmt.Errorf("unsupported columnar format: %s", format)
	}
}

func cellText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
