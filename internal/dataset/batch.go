package dataset

import (
	"fmt"
	"math/rand"
)

// Batch is one minibatch of inputs and their label rows.
type Batch struct {
	X [][]float64
	Y [][]float64
}

// Shuffle applies one random permutation to both x and y and returns the
// permuted copies. The inputs are not modified.
func Shuffle(x, y [][]float64, r *rand.Rand) ([][]float64, [][]float64, error) {
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("lengths don't match: %d inputs, %d labels", len(x), len(y))
	}
	perm := r.Perm(len(x))
	xs := make([][]float64, len(x))
	ys := make([][]float64, len(y))
	for i, p := range perm {
		xs[i] = x[p]
		ys[i] = y[p]
	}
	return xs, ys, nil
}

// Minibatches splits x and y into consecutive batches of size rows. A trailing
// partial batch is dropped.
func Minibatches(x, y [][]float64, size int) ([]Batch, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("shapes don't match: %d inputs, %d labels", len(x), len(y))
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid minibatch size %d", size)
	}
	n := ReduceLength(len(x), size)
	out := make([]Batch, 0, n/size)
	for i := 0; i < n; i += size {
		out = append(out, Batch{X: x[i : i+size], Y: y[i : i+size]})
	}
	return out, nil
}

// ReduceLength trims n down to a multiple of nrInputs.
func ReduceLength(n, nrInputs int) int {
	if nrInputs <= 0 {
		return n
	}
	return n - n%nrInputs
}
