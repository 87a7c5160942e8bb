package poseidon254

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/emulated"

	"github.com/vocdoni/poseidon254/internal/params"
)

const width = params.Width

type element = emulated.Element[FrParams]

// Hash computes the Poseidon hash of two emulated BN254 scalars.
func Hash(api frontend.API, x, y element) (element, error) {
	field, err := emulated.NewField[FrParams](api)
	if err != nil {
		var zero element
		return zero, err
	}
	return hashWithState(field, field.Zero(), &x, &y), nil
}

// HashWithState is Hash with a caller supplied capacity limb.
func HashWithState(api frontend.API, capacity, x, y element) (element, error) {
	field, err := emulated.NewField[FrParams](api)
	if err != nil {
		var zero element
		return zero, err
	}
	return hashWithState(field, &capacity, &x, &y), nil
}

func hashWithState(field *emulated.Field[FrParams], capacity, x, y *element) element {
	p := params.Default()
	state := []*element{capacity, x, y}
	state = permute(field, p, state)
	// Ensure canonical output.
	out := field.Reduce(project(field, state, p.M, 0))
	return *out
}

// permute runs the schedule up to the last S-box.
func permute(field *emulated.Field[FrParams], p *params.Parameters, state []*element) []*element {
	addRoundConstants(field, state, p.C, 0)
	for k := range params.HalfFullRounds - 1 {
		fullSBox(field, state)
		addRoundConstants(field, state, p.C, (k+1)*width)
		state = mixLayer(field, state, p.M)
	}
	fullSBox(field, state)
	addRoundConstants(field, state, p.C, params.BoundaryOffset)
	state = mixLayer(field, state, p.P)

	for r := range params.PartialRounds {
		state[0] = exp5(field, state[0])
		state[0] = field.Add(state[0], constElement(field, p.C[params.PartialOffset+r]))
		state = sparseMatMul(field, p, state, r)
	}

	for k := range params.HalfFullRounds - 1 {
		fullSBox(field, state)
		addRoundConstants(field, state, p.C, params.SecondHalfOffset+k*width)
		state = mixLayer(field, state, p.M)
	}
	fullSBox(field, state)
	return state
}

func addRoundConstants(field *emulated.Field[FrParams], state []*element, c []fr.Element, offset int) {
	for i := range width {
		state[i] = field.Add(state[i], constElement(field, c[offset+i]))
	}
}

func mixLayer(field *emulated.Field[FrParams], state []*element, matrix []fr.Element) []*element {
	newState := make([]*element, width)
	for j := range width {
		newState[j] = project(field, state, matrix, j)
	}
	return newState
}

func project(field *emulated.Field[FrParams], state []*element, matrix []fr.Element, col int) *element {
	sum := field.Zero()
	for i := range width {
		prod := field.Mul(constElement(field, matrix[i*width+col]), state[i])
		sum = field.Add(sum, prod)
	}
	return sum
}

func sparseMatMul(field *emulated.Field[FrParams], p *params.Parameters, state []*element, round int) []*element {
	coeffs := p.S[params.SparseStride*round : params.SparseStride*(round+1)]

	newState := make([]*element, width)
	newZero := field.Zero()
	for i := range width {
		contrib := field.Mul(constElement(field, coeffs[i]), state[i])
		newZero = field.Add(newZero, contrib)
	}
	for i := 1; i < width; i++ {
		term := field.Mul(constElement(field, coeffs[width+i-1]), state[0])
		newState[i] = field.Add(term, state[i])
	}
	newState[0] = newZero
	return newState
}

func fullSBox(field *emulated.Field[FrParams], state []*element) {
	for i := range state {
		state[i] = exp5(field, state[i])
	}
}

func exp5(field *emulated.Field[FrParams], x *element) *element {
	x2 := field.Mul(x, x)
	x4 := field.Mul(x2, x2)
	return field.Mul(x4, x)
}
