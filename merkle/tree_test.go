package merkle

import (
	"context"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/vocdoni/poseidon254"
	gposeidon "github.com/vocdoni/poseidon254/gnark/poseidon254"
)

func makeLeaves(n int) []fr.Element {
	leaves := make([]fr.Element, n)
	for i := range leaves {
		leaves[i].SetUint64(uint64(i + 1))
	}
	return leaves
}

func TestRootFullTree(t *testing.T) {
	leaves := makeLeaves(4)
	tree, err := New(context.Background(), leaves, 2)
	require.NoError(t, err)

	left := poseidon254.Hash(leaves[0], leaves[1])
	right := poseidon254.Hash(leaves[2], leaves[3])
	want := poseidon254.Hash(left, right)
	got := tree.Root()
	require.True(t, got.Equal(&want), "root %s, want %s", got.String(), want.String())
	require.Equal(t, 2, tree.Depth())
}

func TestRootSparseTree(t *testing.T) {
	leaves := makeLeaves(5)
	tree, err := New(context.Background(), leaves, 3)
	require.NoError(t, err)

	var zero fr.Element
	z1 := poseidon254.Hash(zero, zero)
	n0 := poseidon254.Hash(poseidon254.Hash(leaves[0], leaves[1]), poseidon254.Hash(leaves[2], leaves[3]))
	n1 := poseidon254.Hash(poseidon254.Hash(leaves[4], zero), z1)
	want := poseidon254.Hash(n0, n1)
	got := tree.Root()
	require.True(t, got.Equal(&want))
}

func TestEmptyTree(t *testing.T) {
	tree, err := New(context.Background(), nil, 2)
	require.NoError(t, err)

	var zero fr.Element
	z1 := poseidon254.Hash(zero, zero)
	want := poseidon254.Hash(z1, z1)
	got := tree.Root()
	require.True(t, got.Equal(&want))
}

func TestPathsVerify(t *testing.T) {
	leaves := makeLeaves(11)
	tree, err := New(context.Background(), leaves, 4)
	require.NoError(t, err)
	root := tree.Root()

	for i := uint64(0); i < 16; i++ {
		path, err := tree.Path(i)
		require.NoError(t, err)
		require.Len(t, path, 4)

		var leaf fr.Element
		if i < uint64(len(leaves)) {
			leaf = leaves[i]
		}
		require.True(t, Verify(root, leaf, i, path), "leaf %d", i)

		var tampered fr.Element
		tampered.SetUint64(1000)
		require.False(t, Verify(root, tampered, i, path), "tampered leaf %d", i)
		if !leaf.Equal(&path[0]) {
			require.False(t, Verify(root, leaf, i^1, path), "swapped index %d", i)
		}
	}

	path, err := tree.Path(3)
	require.NoError(t, err)
	require.False(t, Verify(root, leaves[3], 3+16, path))
}

func TestNewErrors(t *testing.T) {
	_, err := New(context.Background(), makeLeaves(1), MaxDepth+1)
	require.ErrorIs(t, err, ErrDepth)

	_, err = New(context.Background(), makeLeaves(5), 2)
	require.ErrorIs(t, err, ErrTooManyLeaves)

	tree, err := New(context.Background(), makeLeaves(2), 1)
	require.NoError(t, err)
	_, err = tree.Path(2)
	require.ErrorIs(t, err, ErrIndex)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(ctx, makeLeaves(8), 3)
	require.ErrorIs(t, err, context.Canceled)
}

type rootCircuit struct {
	Leaves [5]frontend.Variable
	Root   frontend.Variable `gnark:",public"`
}

func (c *rootCircuit) Define(api frontend.API) error {
	root, err := gposeidon.MerkleRoot(api, c.Leaves[:]...)
	if err != nil {
		return err
	}
	api.AssertIsEqual(root, c.Root)
	return nil
}

type pathCircuit struct {
	Root  frontend.Variable `gnark:",public"`
	Leaf  frontend.Variable
	Index frontend.Variable
	Path  [3]frontend.Variable
}

func (c *pathCircuit) Define(api frontend.API) error {
	gposeidon.VerifyPath(api, c.Root, c.Leaf, c.Index, c.Path[:])
	return nil
}

func TestCircuitRootMatchesNative(t *testing.T) {
	assert := test.NewAssert(t)
	leaves := makeLeaves(5)
	tree, err := New(context.Background(), leaves, 3)
	assert.NoError(err)

	var witness rootCircuit
	for i := range leaves {
		witness.Leaves[i] = leaves[i]
	}
	witness.Root = tree.Root()
	assert.NoError(test.IsSolved(&rootCircuit{}, &witness, ecc.BN254.ScalarField()))
}

func TestCircuitPathMatchesNative(t *testing.T) {
	assert := test.NewAssert(t)
	leaves := makeLeaves(6)
	tree, err := New(context.Background(), leaves, 3)
	assert.NoError(err)

	for _, index := range []uint64{0, 3, 5, 7} {
		path, err := tree.Path(index)
		assert.NoError(err)

		var leaf fr.Element
		if index < uint64(len(leaves)) {
			leaf = leaves[index]
		}
		witness := pathCircuit{Root: tree.Root(), Leaf: leaf, Index: index}
		for i := range path {
			witness.Path[i] = path[i]
		}
		assert.NoError(test.IsSolved(&pathCircuit{}, &witness, ecc.BN254.ScalarField()), "index %d", index)

		if leaf.Equal(&path[0]) {
			continue
		}
		witness.Index = index ^ 1
		assert.Error(test.IsSolved(&pathCircuit{}, &witness, ecc.BN254.ScalarField()), "index %d", index)
	}
}
