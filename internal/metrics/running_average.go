package metrics

// RunningAverage is the mean of the last N samples, updated in O(1).
// The window starts zero-filled, so the first N results are biased toward 0.
type RunningAverage struct {
	window []float64
	pos    int
	mean   float64
}

// NewRunningAverage returns an average over n samples. n must be positive.
func NewRunningAverage(n int) RunningAverage {
	if n <= 0 {
		panic("metrics: running average window must be positive")
	}
	return RunningAverage{window: make([]float64, n)}
}

// Update pushes x into the window and returns the new mean.
func (r *RunningAverage) Update(x float64) float64 {
	n := float64(len(r.window))
	r.mean -= r.window[r.pos] / n
	r.window[r.pos] = x
	r.mean += x / n
	r.pos = (r.pos + 1) % len(r.window)
	return r.mean
}

// Value returns the current mean.
func (r *RunningAverage) Value() float64 {
	return r.mean
}

// Len returns the window size.
func (r *RunningAverage) Len() int {
	return len(r.window)
}
