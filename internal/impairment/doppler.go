package impairment

import "math"

// dopplerTaps returns the Doppler filter length used for a buffer of n
// samples.
func dopplerTaps(n int) int {
	return max(4, int(0.0425*float64(n)))
}

// dopplerFilter designs a Doppler spectrum shaping filter of n taps for
// normalised Doppler frequency fd and Rice factor k, with line-of-sight
// angle theta. Taps are normalised to unit energy.
func dopplerFilter(n int, fd, k, theta float64) []float64 {
	const beta = 4.0
	h := make([]float64, n)
	energy := 0.0
	for i := range h {
		t := float64(i) - float64(n-1)/2
		j := 1.5 * math.J0(2*math.Pi*fd*t)
		r := 1.5 * k / (k + 1) * math.Cos(2*math.Pi*fd*t*math.Cos(theta))
		h[i] = (j + r) * kaiser(i, n, beta)
		energy += h[i] * h[i]
	}
	norm := math.Sqrt(energy)
	for i := range h {
		h[i] /= norm
	}
	return h
}

func kaiser(i, n int, beta float64) float64 {
	t := float64(i) - float64(n-1)/2
	r := 2 * t / float64(n)
	a := besselI0(beta * math.Sqrt(1-r*r))
	return a / besselI0(beta)
}

// besselI0 evaluates the zeroth-order modified Bessel function of the first
// kind by its power series.
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	half := x / 2
	for k := 1; k < 64; k++ {
		term *= half / float64(k)
		sq := term * term
		sum += sq
		if sq < 1e-16*sum {
			break
		}
	}
	return sum
}

// fir is a direct-form FIR filter with real taps over complex samples.
type fir struct {
	taps []float64
	hist []complex128
	pos  int
}

func newFIR(taps []float64) *fir {
	return &fir{taps: taps, hist: make([]complex128, len(taps))}
}

// push inserts x and returns sum(taps[k] * x[n-k]).
func (f *fir) push(x complex128) complex128 {
	f.hist[f.pos] = x
	var y complex128
	idx := f.pos
	for _, h := range f.taps {
		y += complex(h, 0) * f.hist[idx]
		idx--
		if idx < 0 {
			idx = len(f.hist) - 1
		}
	}
	f.pos = (f.pos + 1) % len(f.hist)
	return y
}
