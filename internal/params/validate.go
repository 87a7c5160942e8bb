package params

import (
	"errors"
	"fmt"
)

// ErrInvalidConstants is wrapped by every validation failure.
var ErrInvalidConstants = errors.New("poseidon254: invalid constants table")

// Validate checks basic shape and sizes of the parameter set.
func Validate(p *Parameters) error {
	if p.Alpha.Inverse {
		return fmt.Errorf("%w: unsupported inverse alpha", ErrInvalidConstants)
	}
	if p.Alpha.Exponent != Exponent {
		return fmt.Errorf("%w: unsupported alpha %d", ErrInvalidConstants, p.Alpha.Exponent)
	}
	if p.FullRounds%2 != 0 {
		return fmt.Errorf("%w: full rounds must be even, got %d", ErrInvalidConstants, p.FullRounds)
	}
	if p.StateSize != Width || p.FullRounds != FullRounds || p.PartialRounds != PartialRounds {
		return fmt.Errorf("%w: unsupported shape t=%d R_f=%d R_p=%d",
			ErrInvalidConstants, p.StateSize, p.FullRounds, p.PartialRounds)
	}
	width := p.StateSize
	if len(p.C) != RoundConstants {
		return fmt.Errorf("%w: round constants length %d, want %d", ErrInvalidConstants, len(p.C), RoundConstants)
	}
	if len(p.M) != width*width {
		return fmt.Errorf("%w: mds length %d, want %d", ErrInvalidConstants, len(p.M), width*width)
	}
	if len(p.P) != width*width {
		return fmt.Errorf("%w: boundary matrix length %d, want %d", ErrInvalidConstants, len(p.P), width*width)
	}
	if len(p.S) != SparseCoefficients {
		return fmt.Errorf("%w: sparse coefficients length %d, want %d", ErrInvalidConstants, len(p.S), SparseCoefficients)
	}
	return nil
}
