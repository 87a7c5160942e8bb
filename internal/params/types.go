package params

import "github.com/consensys/gnark-crypto/ecc/bn254/fr"

// Fixed parameter set: circomlib Poseidon with one capacity limb and two inputs.
const (
	Width         = 3
	FullRounds    = 8
	PartialRounds = 57
	Exponent      = 5
)

// Offsets into the round constants and sparse coefficients, all derived
// from the parameter set above.
const (
	HalfFullRounds = FullRounds / 2
	SparseStride   = 2*Width - 1

	// BoundaryOffset is the row added right before the boundary mix.
	BoundaryOffset = HalfFullRounds * Width
	// PartialOffset is the first constant of the partial rounds, one per round.
	PartialOffset = (HalfFullRounds + 1) * Width
	// SecondHalfOffset is the first row of the trailing full rounds.
	SecondHalfOffset = PartialOffset + PartialRounds

	RoundConstants     = (FullRounds+1)*Width + PartialRounds
	SparseCoefficients = SparseStride * PartialRounds
)

// Alpha captures the Poseidon S-box exponent.
type Alpha struct {
	Exponent uint32
	Inverse  bool
}

// Raw is the external, hex encoded form of a constants table.
type Raw struct {
	C []string
	M [][]string
	P [][]string
	S []string
}

// Parameters bundles all constants needed by the permutation.
// Matrices are stored row-major: M[i*StateSize+j] is row i, column j.
type Parameters struct {
	StateSize     int
	FullRounds    int
	PartialRounds int
	Alpha         Alpha

	C []fr.Element
	M []fr.Element
	P []fr.Element
	S []fr.Element
}

// MatrixAt returns entry (row, col) of a flat row-major matrix of the
// parameter width.
func (p *Parameters) MatrixAt(m []fr.Element, row, col int) *fr.Element {
	return &m[row*p.StateSize+col]
}
