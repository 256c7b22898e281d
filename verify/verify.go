// Package verify computes host-side reference results for the addition
// kernel and compares device output against them.
package verify

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// SumInt32 returns the element-wise reference sum of two equal-length vectors
func SumInt32(a, b []int32) ([]int32, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	out := make([]int32, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out, nil
}

// CheckInt32 compares device output against the reference sum of a and b.
// The output must match element for element and must not be truncated or
// padded relative to the inputs.
func CheckInt32(got, a, b []int32) error {
	want, err := SumInt32(a, b)
	if err != nil {
		return err
	}
	if len(got) != len(want) {
		return fmt.Errorf("output length %d, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("element %d: got %d, expected %d", i, got[i], want[i])
		}
	}
	return nil
}

// SumFloat64 returns the element-wise reference sum of two equal-length
// float vectors
func SumFloat64(a, b []float64) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	out := make([]float64, len(a))
	copy(out, a)
	floats.Add(out, b)
	return out, nil
}

// CheckFloat64 compares device output against the reference sum of a and b
// within tol
func CheckFloat64(got, a, b []float64, tol float64) error {
	want, err := SumFloat64(a, b)
	if err != nil {
		return err
	}
	if len(got) != len(want) {
		return fmt.Errorf("output length %d, expected %d", len(got), len(want))
	}
	if !floats.EqualApprox(got, want, tol) {
		for i := range want {
			if diff := got[i] - want[i]; diff > tol || diff < -tol {
				return fmt.Errorf("element %d: got %g, expected %g", i, got[i], want[i])
			}
		}
		return fmt.Errorf("output differs from reference beyond tolerance %g", tol)
	}
	return nil
}
