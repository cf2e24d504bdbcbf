package dataset

import (
	"math/rand"
	"testing"
)

func indexed(n int) ([][]float64, [][]float64) {
	x := make([][]float64, n)
	y := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{float64(i)}
		y[i] = []float64{float64(i * 10)}
	}
	return x, y
}

func TestShuffleKeepsPairs(t *testing.T) {
	x, y := indexed(20)

	xs, ys, err := Shuffle(x, y, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Shuffle failed: %v", err)
	}
	if len(xs) != 20 || len(ys) != 20 {
		t.Fatalf("Expected 20 rows, got %d/%d", len(xs), len(ys))
	}

	seen := map[float64]bool{}
	moved := false
	for i := range xs {
		if ys[i][0] != xs[i][0]*10 {
			t.Errorf("Row %d: input %v paired with label %v", i, xs[i][0], ys[i][0])
		}
		if xs[i][0] != float64(i) {
			moved = true
		}
		seen[xs[i][0]] = true
	}
	if len(seen) != 20 {
		t.Errorf("Expected a permutation, saw %d distinct rows", len(seen))
	}
	if !moved {
		t.Log("Permutation happened to be the identity")
	}
	if x[0][0] != 0 || x[19][0] != 19 {
		t.Error("Shuffle modified its input")
	}
}

func TestShuffleLengthMismatch(t *testing.T) {
	x, _ := indexed(3)
	_, y := indexed(2)
	if _, _, err := Shuffle(x, y, rand.New(rand.NewSource(1))); err == nil {
		t.Error("Expected error for mismatched lengths")
	}
}

func TestMinibatches(t *testing.T) {
	x, y := indexed(10)

	batches, err := Minibatches(x, y, 4)
	if err != nil {
		t.Fatalf("Minibatches failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("Expected 2 full batches, got %d", len(batches))
	}
	if batches[1].X[0][0] != 4 || len(batches[1].Y) != 4 {
		t.Errorf("Unexpected second batch: %+v", batches[1])
	}

	if _, err := Minibatches(x, y, 0); err == nil {
		t.Error("Expected error for zero batch size")
	}
	if _, err := Minibatches(x, y[:3], 2); err == nil {
		t.Error("Expected error for mismatched shapes")
	}
}

func TestReduceLength(t *testing.T) {
	tests := []struct {
		n, nrInputs, expected int
	}{
		{650000, 260, 650000},
		{650100, 260, 650000},
		{520, 260, 520},
		{259, 260, 0},
		{100, 0, 100},
	}
	for _, tt := range tests {
		if got := ReduceLength(tt.n, tt.nrInputs); got != tt.expected {
			t.Errorf("ReduceLength(%d, %d) = %d, expected %d", tt.n, tt.nrInputs, got, tt.expected)
		}
	}
}
