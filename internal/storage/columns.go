package storage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// column is one named float64 column of a single-record Arrow file.
type column struct {
	name   string
	values []float64
}

func writeColumns(path string, meta map[string]int, cols []column) error {
	keys := make([]string, 0, len(meta))
	vals := make([]string, 0, len(meta))
	for k, v := range meta {
		keys = append(keys, k)
		vals = append(vals, strconv.Itoa(v))
	}
	md := arrow.NewMetadata(keys, vals)

	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.name, Type: arrow.PrimitiveTypes.Float64}
	}
	schema := arrow.NewSchema(fields, &md)

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, c := range cols {
		b.Field(i).(*array.Float64Builder).AppendValues(c.values, nil)
	}

	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w := ipc.NewWriter(bw, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	defer w.Close()

	if err := w.Write(rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return bw.Flush()
}

// readColumns reads the first record of an Arrow file written by writeColumns,
// returning the integer metadata named by keys and every column.
func readColumns(path string, keys ...string) (map[string]int, []column, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader, err := ipc.NewReader(bufio.NewReader(f), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	schema := reader.Schema()
	md := schema.Metadata()
	meta := make(map[string]int, len(keys))
	for _, key := range keys {
		idx := md.FindKey(key)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%s: metadata lacks %q", path, key)
		}
		if meta[key], err = strconv.Atoi(md.Values()[idx]); err != nil {
			return nil, nil, fmt.Errorf("%s: %s: %w", path, key, err)
		}
	}

	if !reader.Next() {
		if reader.Err() != nil {
			return nil, nil, reader.Err()
		}
		return nil, nil, fmt.Errorf("%s: no records", path)
	}
	rec := reader.Record()

	cols := make([]column, rec.NumCols())
	for i := range cols {
		arr, ok := rec.Column(i).(*array.Float64)
		if !ok {
			return nil, nil, fmt.Errorf("%s: column %s is %s", path, schema.Field(i).Name, rec.Column(i).DataType())
		}
		cols[i] = column{name: schema.Field(i).Name, values: append([]float64(nil), arr.Float64Values()...)}
	}
	return meta, cols, nil
}
