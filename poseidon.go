package poseidon254

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/vocdoni/poseidon254/internal/params"
)

const width = params.Width

// state is the permutation buffer: slot 0 is the capacity, slots 1 and 2
// carry the inputs.
type state = [width]fr.Element

// permutation implements the circomlib Poseidon permutation over bn254 for t = 3.
type permutation struct {
	params *params.Parameters
}

var defaultPermutation = &permutation{params: params.Default()}

// Hash computes the circomlib-compatible Poseidon hash of two field elements.
func Hash(x, y fr.Element) fr.Element {
	var zero fr.Element
	return HashWithState(zero, x, y)
}

// HashWithState is Hash with a caller supplied capacity element, used for
// domain separation.
func HashWithState(capacity, x, y fr.Element) fr.Element {
	s := state{capacity, x, y}
	return defaultPermutation.hash(&s)
}

// Permute applies the full permutation, including the final dense mix, and
// leaves every output limb in s. Hash returns s[0] of the result.
func Permute(s *[3]fr.Element) {
	p := defaultPermutation
	p.rounds(s)
	p.mixFull(s)
}

func (p *permutation) hash(s *state) fr.Element {
	p.rounds(s)
	return p.project(s, 0)
}

// rounds runs the schedule up to and including the last S-box. The final
// mix is left to the caller so the single output column can be computed
// without the full product.
func (p *permutation) rounds(s *state) {
	p.addRoundConstants(s, 0)

	// First half of full rounds; the last one ends in the boundary mix.
	for k := 0; k < params.HalfFullRounds-1; k++ {
		fullSBox(s)
		p.addRoundConstants(s, (k+1)*width)
		p.mixFull(s)
	}
	fullSBox(s)
	p.addRoundConstants(s, params.BoundaryOffset)
	p.mixBoundary(s)

	for r := 0; r < params.PartialRounds; r++ {
		partialSBox(s)
		s[0].Add(&s[0], &p.params.C[params.PartialOffset+r])
		p.mixPartial(s, r)
	}

	for k := 0; k < params.HalfFullRounds-1; k++ {
		fullSBox(s)
		p.addRoundConstants(s, params.SecondHalfOffset+k*width)
		p.mixFull(s)
	}
	fullSBox(s)
}

func (p *permutation) addRoundConstants(s *state, offset int) {
	for i := range s {
		s[i].Add(&s[i], &p.params.C[offset+i])
	}
}

func (p *permutation) mixFull(s *state) {
	mix(s, p.params.M)
}

func (p *permutation) mixBoundary(s *state) {
	mix(s, p.params.P)
}

// mixPartial applies the sparse matrix of partial round r: the first column
// is dense, the rest is the identity plus a first row.
func (p *permutation) mixPartial(s *state, r int) {
	coeffs := p.params.S[params.SparseStride*r : params.SparseStride*(r+1)]

	var newZero, term fr.Element
	for i := range s {
		term.Mul(&s[i], &coeffs[i])
		newZero.Add(&newZero, &term)
	}
	for j := 1; j < width; j++ {
		term.Mul(&s[0], &coeffs[width+j-1])
		s[j].Add(&s[j], &term)
	}
	s[0] = newZero
}

// project returns column col of state·M.
func (p *permutation) project(s *state, col int) fr.Element {
	var sum, prod fr.Element
	for i := range s {
		prod.Mul(&s[i], p.params.MatrixAt(p.params.M, i, col))
		sum.Add(&sum, &prod)
	}
	return sum
}

// mix computes state·m for a row-major width×width matrix.
func mix(s *state, m []fr.Element) {
	var out state
	var prod fr.Element
	for j := 0; j < width; j++ {
		for i := 0; i < width; i++ {
			prod.Mul(&s[i], &m[i*width+j])
			out[j].Add(&out[j], &prod)
		}
	}
	*s = out
}

func partialSBox(s *state) {
	exp5(&s[0])
}

func fullSBox(s *state) {
	for i := range s {
		exp5(&s[i])
	}
}

func exp5(x *fr.Element) {
	var x2, x4 fr.Element
	x2.Square(x)
	x4.Square(&x2)
	x.Mul(&x4, x)
}
