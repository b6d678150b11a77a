package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// parquetWriter buffers rows in an Arrow record builder and flushes them to a
// Parquet file every batchSize rows.
type parquetWriter struct {
	columns   []column
	builder   *array.RecordBuilder
	fw        *pqarrow.FileWriter
	batchSize int
	pending   int
	rows      int64
}

func newParquetWriter(w io.Writer, columns []column, batchSize int, alloc memory.Allocator) (*parquetWriter, error) {
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c.name, Type: c.typ, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(alloc),
	)
	fw, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(alloc)))
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}

	return &parquetWriter{
		columns:   columns,
		builder:   array.NewRecordBuilder(alloc, schema),
		fw:        fw,
		batchSize: batchSize,
	}, nil
}

// Append adds one row. values must be ordered like the writer's columns.
func (w *parquetWriter) Append(values []any) error {
	for i, v := range values {
		if err := appendValue(w.builder.Field(i), w.columns[i], v); err != nil {
			return err
		}
	}
	w.pending++
	w.rows++
	if w.pending >= w.batchSize {
		return w.flush()
	}
	return nil
}

func (w *parquetWriter) flush() error {
	if w.pending == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	w.pending = 0
	if err := w.fw.Write(rec); err != nil {
		return fmt.Errorf("write row group: %w", err)
	}
	return nil
}

// Close flushes buffered rows and finalises the file footer. A writer that
// received no rows still produces a valid file carrying the schema.
func (w *parquetWriter) Close() error {
	defer w.builder.Release()
	if err := w.flush(); err != nil {
		_ = w.fw.Close()
		return err
	}
	if err := w.fw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// Rows returns the number of rows appended so far.
func (w *parquetWriter) Rows() int64 { return w.rows }
