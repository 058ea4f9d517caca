package field

import (
	"bufio"
	"fmt"
	"os"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/sbinet/npyio/npy"
)

// findNumpyClass resolves the numpy globals an ndarray pickle refers to. NumPy 2
// moved the reconstructor to numpy._core.
func findNumpyClass(module, name string) (any, error) {
	if module == "numpy._core.multiarray" {
		module = "numpy.core.multiarray"
	}
	return npy.ClassLoader(module, name)
}

// readPickle reads a pickled numpy ndarray of shape (T, Ny, Nx, C).
func readPickle(path string, comps int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	u := pickle.NewUnpickler(bufio.NewReader(f))
	u.FindClass = findNumpyClass
	v, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("unpickle: %w", err)
	}

	arr, ok := v.(*npy.Array)
	if !ok {
		return nil, fmt.Errorf("%w: pickle holds %T, want a numpy array", ErrShape, v)
	}

	var raw []float64
	switch data := arr.Data().(type) {
	case []float64:
		raw = data
	case []float32:
		raw = make([]float64, len(data))
		for i, v := range data {
			raw[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("pickled dtype %s not supported, want f8 or f4", arr.Descr())
	}

	return fromArray(raw, arr.Shape(), arr.Fortran(), comps)
}
