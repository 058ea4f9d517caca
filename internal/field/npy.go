package field

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sbinet/npyio/npy"
)

func readNPY(path string, comps int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npy.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	var raw []float64
	switch r.Header.Descr.Type {
	case "<f8":
		if err := r.Read(&raw); err != nil {
			return nil, err
		}
	case "<f4":
		var raw32 []float32
		if err := r.Read(&raw32); err != nil {
			return nil, err
		}
		raw = make([]float64, len(raw32))
		for i, v := range raw32 {
			raw[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("npy dtype %q not supported, want <f8 or <f4", r.Header.Descr.Type)
	}

	return fromArray(raw, r.Header.Descr.Shape, r.Header.Descr.Fortran, comps)
}
