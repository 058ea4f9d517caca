package field

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio/npy"
)

func TestGrid(t *testing.T) {
	g := NewGrid(384, 192)

	if len(g.Y) != 384 || len(g.X) != 192 {
		t.Fatalf("expected 384x192 grid, got %dx%d", len(g.Y), len(g.X))
	}
	if g.Y[0] != 0 || g.Y[383] != 1 || g.X[191] != 1 {
		t.Errorf("grid must span [0, 1]: y=[%f, %f] x=[0, %f]", g.Y[0], g.Y[383], g.X[191])
	}
	if math.Abs(g.Y[1]-1.0/383) > 1e-15 {
		t.Errorf("expected dy=1/383, got %g", g.Y[1])
	}

	single := NewGrid(1, 0)
	if len(single.Y) != 1 || single.Y[0] != 0 || single.X != nil {
		t.Errorf("unexpected degenerate grid %+v", single)
	}
}

func TestFieldIndexing(t *testing.T) {
	f := NewField(2, 3, 4)
	f.Set(1, 2, 3, 7)

	if f.At(1, 2, 3) != 7 {
		t.Errorf("expected 7, got %f", f.At(1, 2, 3))
	}
	snap := f.Snapshot(1)
	if len(snap) != 12 || snap[2*4+3] != 7 {
		t.Errorf("snapshot does not alias the field: %v", snap)
	}
}

func TestDatasetValidate(t *testing.T) {
	tests := []struct {
		name string
		ds   *Dataset
		want error
	}{
		{"missing u", &Dataset{}, ErrComponents},
		{"empty", &Dataset{U: NewField(0, 2, 2)}, ErrShape},
		{"mismatched v", &Dataset{U: NewField(2, 2, 2), V: NewField(3, 2, 2)}, ErrShape},
		{"short data", &Dataset{U: &Field{T: 2, Ny: 2, Nx: 2, Data: make([]float64, 3)}}, ErrShape},
		{"ok", &Dataset{U: NewField(2, 2, 2), V: NewField(2, 2, 2)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ds.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// sequence fills a (T, Ny, Nx, C) C-ordered array with value 1000*k + flat (t,i,j) index.
func sequence(t, ny, nx, c int) []float64 {
	raw := make([]float64, t*ny*nx*c)
	for n := range raw {
		raw[n] = float64(1000*(n%c) + n/c)
	}
	return raw
}

func TestFromArray(t *testing.T) {
	raw := sequence(2, 3, 4, 2)

	ds, err := fromArray(raw, []int{2, 3, 4, 2}, false, 2)
	if err != nil {
		t.Fatalf("fromArray failed: %v", err)
	}
	if got := ds.U.At(1, 2, 3); got != 23 {
		t.Errorf("expected U(1,2,3)=23, got %f", got)
	}
	if got := ds.V.At(1, 2, 3); got != 1023 {
		t.Errorf("expected V(1,2,3)=1023, got %f", got)
	}

	one, err := fromArray(raw, []int{2, 3, 4, 2}, false, 1)
	if err != nil {
		t.Fatalf("fromArray failed: %v", err)
	}
	if one.V != nil {
		t.Error("expected single component")
	}
}

func TestFromArrayFortran(t *testing.T) {
	shape := []int{2, 3, 4, 2}
	raw := make([]float64, 48)
	for ti := 0; ti < 2; ti++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 4; j++ {
				for k := 0; k < 2; k++ {
					raw[ti+2*(i+3*(j+4*k))] = float64(1000*k + (ti*3+i)*4 + j)
				}
			}
		}
	}

	ds, err := fromArray(raw, shape, true, 2)
	if err != nil {
		t.Fatalf("fromArray failed: %v", err)
	}
	if got := ds.U.At(1, 2, 3); got != 23 {
		t.Errorf("expected U(1,2,3)=23, got %f", got)
	}
	if got := ds.V.At(0, 1, 2); got != 1006 {
		t.Errorf("expected V(0,1,2)=1006, got %f", got)
	}
}

func TestFromArrayErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   []float64
		shape []int
		comps int
		want  error
	}{
		{"rank 3", make([]float64, 8), []int{2, 2, 2}, 1, ErrShape},
		{"short", make([]float64, 7), []int{1, 2, 2, 2}, 2, ErrShape},
		{"too many comps", make([]float64, 4), []int{1, 2, 2, 1}, 2, ErrComponents},
		{"zero comps", make([]float64, 4), []int{1, 2, 2, 1}, 0, ErrComponents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fromArray(tt.raw, tt.shape, false, tt.comps); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestArrowRoundTrip(t *testing.T) {
	spec := WakeSpec{T: 5, Ny: 6, Nx: 4, Seed: 3, Frequency: 0.1, Noise: 0.05}
	ds := Synthesize(spec)
	path := filepath.Join(t.TempDir(), "wake.arrow")

	if err := WriteArrow(path, ds); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loaded, err := Load(path, 2)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	tt, ny, nx := loaded.Shape()
	if tt != 5 || ny != 6 || nx != 4 {
		t.Fatalf("expected shape 5x6x4, got %dx%dx%d", tt, ny, nx)
	}
	for n := range ds.U.Data {
		if loaded.U.Data[n] != ds.U.Data[n] || loaded.V.Data[n] != ds.V.Data[n] {
			t.Fatalf("value %d differs after round trip", n)
		}
	}

	onlyU, err := Load(path, 1)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if onlyU.V != nil {
		t.Error("expected only U")
	}
}

func writeNPY(t *testing.T, path string, v any) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := npy.Write(f, v); err != nil {
		t.Fatalf("write npy: %v", err)
	}
}

// sequenceArrays returns sequence(2, 3, 4, 2) as nested arrays in both precisions.
func sequenceArrays() (a64 [2][3][4][2]float64, a32 [2][3][4][2]float32) {
	for n, v := range sequence(2, 3, 4, 2) {
		ti, i, j, c := n/24, (n/8)%3, (n/2)%4, n%2
		a64[ti][i][j][c] = v
		a32[ti][i][j][c] = float32(v)
	}
	return a64, a32
}

func TestLoadNPY(t *testing.T) {
	dir := t.TempDir()
	a64, a32 := sequenceArrays()

	tests := []struct {
		name string
		data any
	}{
		{"f8", &a64},
		{"f4", &a32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "flow_"+tt.name+".npy")
			writeNPY(t, path, tt.data)

			ds, err := Load(path, 2)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if got := ds.U.At(1, 2, 3); got != 23 {
				t.Errorf("expected U(1,2,3)=23, got %f", got)
			}
			if got := ds.V.At(0, 0, 1); got != 1001 {
				t.Errorf("expected V(0,0,1)=1001, got %f", got)
			}
		})
	}
}

func TestLoadNPYRejectsRank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.npy")
	writeNPY(t, path, []float64{1, 2, 3, 4})

	if _, err := Load(path, 1); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	_, err := Load("flow_field_data0.mat", 2)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	r := NewRegistry()
	r.Register(".MAT", func(string, int) (*Dataset, error) {
		return Synthesize(WakeSpec{T: 2, Ny: 2, Nx: 2}), nil
	})
	if _, err := r.Load("flow.mat", 2); err != nil {
		t.Errorf("registered format should load: %v", err)
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	spec := DefaultWakeSpec()
	spec.T, spec.Ny, spec.Nx = 10, 8, 6

	a := Synthesize(spec)
	b := Synthesize(spec)
	for n := range a.U.Data {
		if a.U.Data[n] != b.U.Data[n] || a.V.Data[n] != b.V.Data[n] {
			t.Fatal("same seed must give identical data")
		}
	}

	spec.Seed++
	c := Synthesize(spec)
	same := true
	for n := range a.U.Data {
		if a.U.Data[n] != c.U.Data[n] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should differ")
	}
}

// pickleNDArray builds the pickle stream numpy writes for a float64 ndarray,
// with plain GLOBAL opcodes in place of memoized names.
func pickleNDArray(module string, shape []int, fortran bool, values []float64) []byte {
	var b bytes.Buffer
	b.WriteString("\x80\x04")
	b.WriteString("c" + module + "\n_reconstruct\n")
	b.WriteString("cnumpy\nndarray\n")
	b.WriteString("K\x00\x85C\x01b\x87R")

	b.WriteString("(K\x01(")
	for _, d := range shape {
		b.WriteByte('K')
		b.WriteByte(byte(d))
	}
	b.WriteString("t")

	b.WriteString("cnumpy\ndtype\n\x8c\x02f8\x89\x88\x87R")
	b.WriteString("(K\x03\x8c\x01<NNNJ\xff\xff\xff\xffJ\xff\xff\xff\xffK\x00tb")

	if fortran {
		b.WriteByte(0x88)
	} else {
		b.WriteByte(0x89)
	}
	b.WriteByte('B')
	binary.Write(&b, binary.LittleEndian, uint32(8*len(values)))
	binary.Write(&b, binary.LittleEndian, values)

	b.WriteString("tb.")
	return b.Bytes()
}

func TestLoadPickle(t *testing.T) {
	dir := t.TempDir()
	raw := sequence(2, 3, 4, 2)

	fortran := make([]float64, len(raw))
	for n, v := range raw {
		ti, i, j, c := n/24, (n/8)%3, (n/2)%4, n%2
		fortran[ti+2*(i+3*(j+4*c))] = v
	}

	tests := []struct {
		name    string
		file    string
		module  string
		fortran bool
		values  []float64
	}{
		{"c order", "flow_field_data0.pickle", "numpy.core.multiarray", false, raw},
		{"fortran order", "flow_f.pickle", "numpy.core.multiarray", true, fortran},
		{"numpy 2", "flow.pkl", "numpy._core.multiarray", false, raw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			data := pickleNDArray(tt.module, []int{2, 3, 4, 2}, tt.fortran, tt.values)
			if err := os.WriteFile(path, data, 0644); err != nil {
				t.Fatal(err)
			}

			ds, err := Load(path, 2)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			tt2, ny, nx := ds.Shape()
			if tt2 != 2 || ny != 3 || nx != 4 {
				t.Fatalf("expected shape 2x3x4, got %dx%dx%d", tt2, ny, nx)
			}
			if got := ds.U.At(1, 2, 3); got != 23 {
				t.Errorf("expected U(1,2,3)=23, got %f", got)
			}
			if got := ds.V.At(0, 0, 1); got != 1001 {
				t.Errorf("expected V(0,0,1)=1001, got %f", got)
			}
		})
	}
}

func TestLoadPickleRejectsNonArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "int.pickle")
	if err := os.WriteFile(path, []byte("\x80\x04K\x05."), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, 1); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}
