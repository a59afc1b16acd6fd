package utils

import (
	"math"
	"math/rand"
	"time"
)

// RandSource is a seedable random number generator. It is not safe for
// concurrent use; give each goroutine its own source.
type RandSource struct {
	rng *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed draws one from the wall clock.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// NormFloat64 returns a normally distributed random number with mean and stddev
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	return r.rng.NormFloat64()*stddev + mean
}

// ComplexNorm returns a circularly-symmetric complex Gaussian sample with
// unit total variance, so each part has variance 1/2. Use it for noise
// scaled to a target SNR.
func (r *RandSource) ComplexNorm() complex128 {
	re := r.rng.NormFloat64() * math.Sqrt2 / 2
	im := r.rng.NormFloat64() * math.Sqrt2 / 2
	return complex(re, im)
}

// ComplexStdNorm returns a complex sample whose real and imaginary parts
// are independent standard normals, for a total variance of 2.
func (r *RandSource) ComplexStdNorm() complex128 {
	return complex(r.rng.NormFloat64(), r.rng.NormFloat64())
}

// Global default random source
var defaultRand = NewRandSource(0)

// SetSeed sets the seed for the default random source
func SetSeed(seed int64) {
	defaultRand = NewRandSource(seed)
}

// Float64 returns a random float64 from the default source
func Float64() float64 {
	return defaultRand.Float64()
}
