package field

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

// Arrow layout: one float64 column per component ("u", "v"), one record batch per
// snapshot with rows in (i, j) order, and the shape in schema metadata.
var componentNames = []string{"u", "v"}

func arrowSchema(ds *Dataset) *arrow.Schema {
	t, ny, nx := ds.Shape()
	md := arrow.NewMetadata(
		[]string{"t", "ny", "nx"},
		[]string{strconv.Itoa(t), strconv.Itoa(ny), strconv.Itoa(nx)},
	)

	comps := ds.Components()
	fields := make([]arrow.Field, len(comps))
	for k := range comps {
		fields[k] = arrow.Field{Name: componentNames[k], Type: arrow.PrimitiveTypes.Float64}
	}
	return arrow.NewSchema(fields, &md)
}

// WriteArrow stores ds as an Arrow IPC stream.
func WriteArrow(path string, ds *Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	mem := memory.NewGoAllocator()
	schema := arrowSchema(ds)

	w := ipc.NewWriter(bw, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	defer w.Close()

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	comps := ds.Components()
	for t := 0; t < ds.U.T; t++ {
		for k, c := range comps {
			b.Field(k).(*array.Float64Builder).AppendValues(c.Snapshot(t), nil)
		}
		rec := b.NewRecord()
		err := w.Write(rec)
		rec.Release()
		if err != nil {
			return fmt.Errorf("write snapshot %d: %w", t, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return bw.Flush()
}

func readArrow(path string, comps int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := ipc.NewReader(bufio.NewReader(f), ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("open ipc stream: %w", err)
	}
	defer r.Release()

	schema := r.Schema()
	dims := make([]int, 3)
	md := schema.Metadata()
	for n, key := range []string{"t", "ny", "nx"} {
		idx := md.FindKey(key)
		if idx < 0 {
			return nil, fmt.Errorf("%w: schema metadata lacks %q", ErrShape, key)
		}
		v, err := strconv.Atoi(md.Values()[idx])
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: bad %s=%q", ErrShape, key, md.Values()[idx])
		}
		dims[n] = v
	}

	if comps < 1 || comps > len(componentNames) {
		return nil, fmt.Errorf("%w: asked for %d", ErrComponents, comps)
	}
	cols := make([]int, comps)
	for k := range cols {
		idx := schema.FieldIndices(componentNames[k])
		if len(idx) == 0 {
			return nil, fmt.Errorf("%w: no %q column", ErrComponents, componentNames[k])
		}
		cols[k] = idx[0]
	}

	fields := make([]*Field, comps)
	for k := range fields {
		fields[k] = NewField(dims[0], dims[1], dims[2])
	}
	total := len(fields[0].Data)

	offset := 0
	for r.Next() {
		rec := r.Record()
		rows := int(rec.NumRows())
		if offset+rows > total {
			return nil, fmt.Errorf("%w: more than %d rows", ErrShape, total)
		}
		for k, ci := range cols {
			col, ok := rec.Column(ci).(*array.Float64)
			if !ok {
				return nil, fmt.Errorf("%w: column %q is %s, want float64", ErrShape,
					componentNames[k], rec.Column(ci).DataType())
			}
			copy(fields[k].Data[offset:offset+rows], col.Float64Values())
		}
		offset += rows
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	if offset != total {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrShape, offset, total)
	}

	ds := &Dataset{U: fields[0]}
	if comps > 1 {
		ds.V = fields[1]
	}
	return ds, nil
}
