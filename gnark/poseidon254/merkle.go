package poseidon254

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
)

const MaxMerkleLeaves = 256

// MerkleRoot computes the root of the binary tree over leaves, padded with
// zero leaves up to the next power of two. Supports up to MaxMerkleLeaves leaves.
func MerkleRoot(api frontend.API, leaves ...frontend.Variable) (frontend.Variable, error) {
	if len(leaves) == 0 {
		var zero frontend.Variable
		return zero, fmt.Errorf("poseidon254: need at least 1 leaf")
	}
	if len(leaves) > MaxMerkleLeaves {
		var zero frontend.Variable
		return zero, fmt.Errorf("poseidon254: too many leaves (%d > %d)", len(leaves), MaxMerkleLeaves)
	}

	size := 1
	for size < len(leaves) {
		size <<= 1
	}
	current := make([]frontend.Variable, size)
	copy(current, leaves)
	for i := len(leaves); i < size; i++ {
		current[i] = 0
	}

	for len(current) > 1 {
		next := make([]frontend.Variable, 0, len(current)/2)
		for i := 0; i < len(current); i += 2 {
			next = append(next, Hash(api, current[i], current[i+1]))
		}
		current = next
	}
	return current[0], nil
}

// VerifyPath asserts that leaf sits at index in the tree committed by root.
// path lists the siblings from the leaf level up; bit i of index set means
// the node at level i is a right child.
func VerifyPath(api frontend.API, root, leaf, index frontend.Variable, path []frontend.Variable) {
	bits := api.ToBinary(index, len(path))
	cur := leaf
	for i, sibling := range path {
		left := api.Select(bits[i], sibling, cur)
		right := api.Select(bits[i], cur, sibling)
		cur = Hash(api, left, right)
	}
	api.AssertIsEqual(cur, root)
}
