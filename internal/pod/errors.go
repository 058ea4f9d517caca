package pod

import (
	"errors"
	"fmt"
)

// Domain errors for decomposition operations.
var (
	// ErrEmpty indicates a dataset or matrix with no snapshots or grid points.
	ErrEmpty = errors.New("pod: empty input")

	// ErrStep indicates a snapshot stride or limit below one.
	ErrStep = errors.New("pod: snapshot stride and limit must be positive")

	// ErrNoModes indicates that no eigenvalue survived the cutoff.
	ErrNoModes = errors.New("pod: no eigenvalue above cutoff")

	// ErrModeRange indicates a mode or snapshot index outside the retained set.
	ErrModeRange = errors.New("pod: index out of range")

	// ErrFactorize indicates the eigen-solver failed to converge.
	ErrFactorize = errors.New("pod: eigen-decomposition failed")
)

// ShapeError reports operands whose dimensions disagree.
type ShapeError struct {
	Op        string
	Want, Got string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("pod: %s: shape mismatch: want %s, got %s", e.Op, e.Want, e.Got)
}
