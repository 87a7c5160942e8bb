package poseidon254

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"
)

// pairsPerTask bounds how many pairs a single worker hashes before yielding
// to the group, so cancellation is observed promptly on large batches.
const pairsPerTask = 64

// HashBigInt hashes two integers that must already be canonical field elements.
func HashBigInt(x, y *big.Int) (*big.Int, error) {
	var ex, ey fr.Element
	if err := setCanonical(&ex, x); err != nil {
		return nil, fmt.Errorf("poseidon254: x: %w", err)
	}
	if err := setCanonical(&ey, y); err != nil {
		return nil, fmt.Errorf("poseidon254: y: %w", err)
	}
	out := Hash(ex, ey)
	return out.BigInt(new(big.Int)), nil
}

func setCanonical(z *fr.Element, v *big.Int) error {
	if v == nil {
		return errors.New("nil input")
	}
	if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return fmt.Errorf("%s not inside the field", v.String())
	}
	z.SetBigInt(v)
	return nil
}

// ElementFromBEBytes interprets data as a big-endian integer reduced modulo
// the bn254 scalar field.
func ElementFromBEBytes(data []byte) fr.Element {
	var out fr.Element
	out.SetBytes(data)
	return out
}

// HashPairs hashes independent (x, y) pairs concurrently. The output is in
// input order.
func HashPairs(ctx context.Context, pairs [][2]fr.Element) ([]fr.Element, error) {
	out := make([]fr.Element, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for start := 0; start < len(pairs); start += pairsPerTask {
		end := min(start+pairsPerTask, len(pairs))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = Hash(pairs[i][0], pairs[i][1])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
