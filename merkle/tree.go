package merkle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/vocdoni/poseidon254"
)

// MaxDepth bounds the tree height so leaf indices fit in a uint64 comfortably.
const MaxDepth = 32

var (
	ErrDepth         = errors.New("merkle: depth out of range")
	ErrTooManyLeaves = errors.New("merkle: too many leaves for depth")
	ErrIndex         = errors.New("merkle: leaf index out of range")
)

// zeroHashes[l] is the root of an all-zero subtree of height l.
var zeroHashes = sync.OnceValue(func() []fr.Element {
	out := make([]fr.Element, MaxDepth+1)
	for l := 1; l <= MaxDepth; l++ {
		out[l] = poseidon254.Hash(out[l-1], out[l-1])
	}
	return out
})

// Tree is a fixed-depth binary Poseidon tree. Leaves past the populated
// prefix are zero; parent nodes are Hash(left, right).
type Tree struct {
	depth  int
	layers [][]fr.Element
}

// Path lists the siblings of a leaf from the bottom level up.
type Path []fr.Element

// New builds a tree of the given depth over leaves. Each layer is hashed in
// parallel.
func New(ctx context.Context, leaves []fr.Element, depth int) (*Tree, error) {
	if depth < 0 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrDepth, depth)
	}
	if uint64(len(leaves)) > uint64(1)<<depth {
		return nil, fmt.Errorf("%w: %d leaves, depth %d", ErrTooManyLeaves, len(leaves), depth)
	}
	zeros := zeroHashes()

	layers := make([][]fr.Element, 0, depth+1)
	layers = append(layers, append([]fr.Element(nil), leaves...))
	for level := 0; level < depth; level++ {
		cur := layers[level]
		pairs := make([][2]fr.Element, (len(cur)+1)/2)
		for i := range pairs {
			pairs[i][0] = cur[2*i]
			if 2*i+1 < len(cur) {
				pairs[i][1] = cur[2*i+1]
			} else {
				pairs[i][1] = zeros[level]
			}
		}
		next, err := poseidon254.HashPairs(ctx, pairs)
		if err != nil {
			return nil, fmt.Errorf("merkle: level %d: %w", level, err)
		}
		layers = append(layers, next)
	}
	return &Tree{depth: depth, layers: layers}, nil
}

// Depth returns the height of the tree.
func (t *Tree) Depth() int {
	return t.depth
}

// Root returns the tree commitment.
func (t *Tree) Root() fr.Element {
	return t.node(t.depth, 0)
}

// Path returns the authentication path for the leaf at index.
func (t *Tree) Path(index uint64) (Path, error) {
	if index >= uint64(1)<<t.depth {
		return nil, fmt.Errorf("%w: %d", ErrIndex, index)
	}
	path := make(Path, t.depth)
	for level := 0; level < t.depth; level++ {
		path[level] = t.node(level, (index>>level)^1)
	}
	return path, nil
}

func (t *Tree) node(level int, i uint64) fr.Element {
	layer := t.layers[level]
	if i < uint64(len(layer)) {
		return layer[i]
	}
	return zeroHashes()[level]
}

// Verify checks that leaf sits at index under root.
func Verify(root, leaf fr.Element, index uint64, path Path) bool {
	if len(path) > MaxDepth || index>>len(path) != 0 {
		return false
	}
	cur := leaf
	for level, sibling := range path {
		if index>>level&1 == 1 {
			cur = poseidon254.Hash(sibling, cur)
		} else {
			cur = poseidon254.Hash(cur, sibling)
		}
	}
	return cur.Equal(&root)
}
