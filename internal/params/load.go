package params

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var defaultParams = mustNew(circomT3)

// Default returns the canonical circomlib parameter set. It is built once at
// package initialization and must not be mutated.
func Default() *Parameters {
	return defaultParams
}

func mustNew(raw Raw) *Parameters {
	p, err := New(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// New parses and validates a constants table for the fixed parameter set.
func New(raw Raw) (*Parameters, error) {
	c, err := parseVector("C", raw.C, RoundConstants)
	if err != nil {
		return nil, err
	}
	m, err := parseMatrix("M", raw.M)
	if err != nil {
		return nil, err
	}
	pm, err := parseMatrix("P", raw.P)
	if err != nil {
		return nil, err
	}
	s, err := parseVector("S", raw.S, SparseCoefficients)
	if err != nil {
		return nil, err
	}
	p := &Parameters{
		StateSize:     Width,
		FullRounds:    FullRounds,
		PartialRounds: PartialRounds,
		Alpha:         Alpha{Exponent: Exponent},
		C:             c,
		M:             m,
		P:             pm,
		S:             s,
	}
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseVector(name string, in []string, want int) ([]fr.Element, error) {
	if len(in) != want {
		return nil, fmt.Errorf("%w: %s has %d entries, want %d", ErrInvalidConstants, name, len(in), want)
	}
	out := make([]fr.Element, len(in))
	for i, s := range in {
		if err := parseElement(&out[i], s); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
	}
	return out, nil
}

func parseMatrix(name string, in [][]string) ([]fr.Element, error) {
	if len(in) != Width {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrInvalidConstants, name, len(in), Width)
	}
	out := make([]fr.Element, 0, Width*Width)
	for i, row := range in {
		if len(row) != Width {
			return nil, fmt.Errorf("%w: %s row %d has %d entries, want %d", ErrInvalidConstants, name, i, len(row), Width)
		}
		for j, s := range row {
			var e fr.Element
			if err := parseElement(&e, s); err != nil {
				return nil, fmt.Errorf("%s[%d][%d]: %w", name, i, j, err)
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// parseElement accepts decimal or 0x-prefixed hex and refuses values that
// would be silently reduced.
func parseElement(z *fr.Element, s string) error {
	b, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return fmt.Errorf("%w: cannot parse %q", ErrInvalidConstants, s)
	}
	if b.Sign() < 0 || b.Cmp(fr.Modulus()) >= 0 {
		return fmt.Errorf("%w: %q is not a canonical field element", ErrInvalidConstants, s)
	}
	z.SetBigInt(b)
	return nil
}
