package poseidon254

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"

	"github.com/vocdoni/poseidon254/internal/params"
)

const width = params.Width

// circuitPermutation mirrors the native permutation but emits gnark constraints.
type circuitPermutation struct {
	params *params.Parameters
}

var gadget = &circuitPermutation{params: params.Default()}

// Hash computes H(x, y) inside a gnark circuit over the bn254 scalar field.
func Hash(api frontend.API, x, y frontend.Variable) frontend.Variable {
	return HashWithState(api, 0, x, y)
}

// HashWithState computes H(x, y) with a caller supplied capacity limb.
func HashWithState(api frontend.API, capacity, x, y frontend.Variable) frontend.Variable {
	state := []frontend.Variable{capacity, x, y}
	state = gadget.permute(api, state)
	return circuitProject(api, state, gadget.params.M, 0)
}

// permute runs the schedule up to the last S-box; the caller projects the output.
func (p *circuitPermutation) permute(api frontend.API, state []frontend.Variable) []frontend.Variable {
	c := p.params.C

	circuitAddRoundConstants(api, state, c, 0)
	for k := 0; k < params.HalfFullRounds-1; k++ {
		circuitFullSBox(api, state)
		circuitAddRoundConstants(api, state, c, (k+1)*width)
		state = circuitMix(api, state, p.params.M)
	}
	circuitFullSBox(api, state)
	circuitAddRoundConstants(api, state, c, params.BoundaryOffset)
	state = circuitMix(api, state, p.params.P)

	for r := 0; r < params.PartialRounds; r++ {
		state[0] = circuitExp5(api, state[0])
		state[0] = api.Add(state[0], c[params.PartialOffset+r])
		state = circuitSparse(api, state, p.params, r)
	}

	for k := 0; k < params.HalfFullRounds-1; k++ {
		circuitFullSBox(api, state)
		circuitAddRoundConstants(api, state, c, params.SecondHalfOffset+k*width)
		state = circuitMix(api, state, p.params.M)
	}
	circuitFullSBox(api, state)
	return state
}

func circuitAddRoundConstants(api frontend.API, state []frontend.Variable, c []fr.Element, offset int) {
	for i := 0; i < width; i++ {
		state[i] = api.Add(state[i], c[offset+i])
	}
}

// circuitMix computes state·matrix, matrix being row-major.
func circuitMix(api frontend.API, state []frontend.Variable, matrix []fr.Element) []frontend.Variable {
	out := make([]frontend.Variable, width)
	for j := 0; j < width; j++ {
		out[j] = circuitProject(api, state, matrix, j)
	}
	return out
}

func circuitProject(api frontend.API, state []frontend.Variable, matrix []fr.Element, col int) frontend.Variable {
	sum := api.Mul(state[0], matrix[col])
	for i := 1; i < width; i++ {
		sum = api.Add(sum, api.Mul(state[i], matrix[i*width+col]))
	}
	return sum
}

func circuitSparse(api frontend.API, state []frontend.Variable, p *params.Parameters, round int) []frontend.Variable {
	coeffs := p.S[params.SparseStride*round : params.SparseStride*(round+1)]

	out := make([]frontend.Variable, width)
	newZero := api.Mul(state[0], coeffs[0])
	for i := 1; i < width; i++ {
		newZero = api.Add(newZero, api.Mul(state[i], coeffs[i]))
		out[i] = api.Add(state[i], api.Mul(state[0], coeffs[width+i-1]))
	}
	out[0] = newZero
	return out
}

func circuitFullSBox(api frontend.API, state []frontend.Variable) {
	for i := range state {
		state[i] = circuitExp5(api, state[i])
	}
}

func circuitExp5(api frontend.API, v frontend.Variable) frontend.Variable {
	v2 := api.Mul(v, v)
	v4 := api.Mul(v2, v2)
	return api.Mul(v4, v)
}
