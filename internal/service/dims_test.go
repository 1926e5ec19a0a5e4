package service

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func sequence(n int) []float32 {
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = float32(i)
	}
	return vec
}

func TestReconcileDimensionality(t *testing.T) {
	const dim = 64

	log := testLogger()

	tests := []struct {
		name  string
		input []float32
		check func(t *testing.T, out []float32)
	}{
		{
			name:  "exact length passes through",
			input: sequence(dim),
			check: func(t *testing.T, out []float32) {
				for i, v := range out {
					if v != float32(i) {
						t.Fatalf("out[%d] = %v, want %v", i, v, float32(i))
					}
				}
			},
		},
		{
			name:  "double length subsamples even indices",
			input: sequence(2 * dim),
			check: func(t *testing.T, out []float32) {
				for i, v := range out {
					if v != float32(2*i) {
						t.Fatalf("out[%d] = %v, want %v (even-index subsample)", i, v, float32(2*i))
					}
				}
			},
		},
		{
			name:  "slightly short pads with epsilon",
			input: sequence(dim - 5),
			check: func(t *testing.T, out []float32) {
				if out[dim-6] != float32(dim-6) {
					t.Fatalf("original values not preserved")
				}
				for i := dim - 5; i < dim; i++ {
					if out[i] == 0 {
						t.Fatalf("out[%d] = 0, padding must be non-zero", i)
					}
				}
			},
		},
		{
			name:  "slightly long truncates",
			input: sequence(dim + 5),
			check: func(t *testing.T, out []float32) {
				if out[dim-1] != float32(dim-1) {
					t.Fatalf("out[%d] = %v, want %v", dim-1, out[dim-1], float32(dim-1))
				}
			},
		},
		{
			name:  "wildly mismatched returns filler",
			input: sequence(7),
			check: func(t *testing.T, out []float32) {
				for i, v := range out {
					if v == 0 {
						t.Fatalf("out[%d] = 0, filler must be non-zero", i)
					}
				}
			},
		},
		{
			name:  "empty returns filler",
			input: nil,
			check: func(t *testing.T, out []float32) {
				if out[0] == 0 {
					t.Fatal("filler must be non-zero")
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := ReconcileDimensionality(tc.input, dim, log)
			if len(out) != dim {
				t.Fatalf("len(out) = %d, want %d", len(out), dim)
			}
			tc.check(t, out)
		})
	}
}

func TestFillerVector(t *testing.T) {
	vec := FillerVector(16)
	if len(vec) != 16 {
		t.Fatalf("len = %d, want 16", len(vec))
	}

	for i, v := range vec {
		if v == 0 {
			t.Errorf("vec[%d] = 0; filler values must be non-zero", i)
		}
	}
}
