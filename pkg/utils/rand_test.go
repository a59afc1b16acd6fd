package utils

import (
	"math"
	"testing"
)

func TestRandSourceDeterministic(t *testing.T) {
	a := NewRandSource(12345)
	b := NewRandSource(12345)

	for i := 0; i < 50; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("sources with equal seeds diverged at draw %d", i)
		}
	}
}

func TestRandSourceComplexStdNormVariance(t *testing.T) {
	rng := NewRandSource(11)
	const n = 20000

	var re, im float64
	for i := 0; i < n; i++ {
		z := rng.ComplexStdNorm()
		re += real(z) * real(z)
		im += imag(z) * imag(z)
	}
	re /= n
	im /= n

	if math.Abs(re-1.0) > 0.05 || math.Abs(im-1.0) > 0.05 {
		t.Errorf("expected unit variance per part, got re=%f im=%f", re, im)
	}
}

func TestRandSourceComplexNormVariance(t *testing.T) {
	rng := NewRandSource(7)
	const n = 20000

	power := 0.0
	var mean complex128
	for i := 0; i < n; i++ {
		z := rng.ComplexNorm()
		mean += z
		power += real(z)*real(z) + imag(z)*imag(z)
	}
	power /= n
	mean /= n

	if math.Abs(power-1.0) > 0.05 {
		t.Errorf("expected unit power, got %f", power)
	}
	if math.Abs(real(mean)) > 0.03 || math.Abs(imag(mean)) > 0.03 {
		t.Errorf("expected zero mean, got %v", mean)
	}
}

func TestRandSourceNormFloat64(t *testing.T) {
	rng := NewRandSource(99)
	const n = 5000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		v := rng.NormFloat64(3.0, 0.5)
		sum += v
		sumSq += v * v
	}
	m := sum / n
	s := math.Sqrt(sumSq/n - m*m)

	if math.Abs(m-3.0) > 0.05 {
		t.Errorf("mean = %f, want ~3.0", m)
	}
	if math.Abs(s-0.5) > 0.05 {
		t.Errorf("stddev = %f, want ~0.5", s)
	}
}

func TestSetSeed(t *testing.T) {
	SetSeed(42)
	first := Float64()
	SetSeed(42)
	if second := Float64(); first != second {
		t.Errorf("SetSeed did not reset default source: %f vs %f", first, second)
	}
}
