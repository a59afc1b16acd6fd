package harness

import (
	"fmt"
	"io"
	"sync"

	"github.com/cognitive-radio/crts/internal/engine"
	"github.com/cognitive-radio/crts/internal/metrics"
	"github.com/cognitive-radio/crts/pkg/models"
)

// Row is one line of the per-frame data log.
type Row struct {
	Key        metrics.Key
	Metrics    engine.Metrics
	Feedback   models.FeedbackRecord
	Received   bool
	Params     models.ParameterSet
	Throughput float64
	Adapted    bool
}

// DataLog writes fixed-width per-frame rows, one header line per test.
type DataLog struct {
	mu sync.Mutex
	w  io.Writer
}

// NewDataLog creates a data log writing to w. A nil w discards every row.
func NewDataLog(w io.Writer) *DataLog {
	return &DataLog{w: w}
}

// Begin writes the column header for a test.
func (d *DataLog) Begin(k metrics.Key) error {
	if d == nil || d.w == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := fmt.Fprintf(d.w, "# engine %d scenario %d\n%-8s%-8s%-6s%-6s%-10s%-10s%-10s%-10s%-10s%-12s%-14s%-10s%-14s%-8s%-6s%-10s\n",
		k.Engine+1, k.Scenario+1,
		"frame", "rxframe", "hdr", "pay", "evm", "rssi", "per", "ber", "goal",
		"throughput", "spectral_eff", "mod", "outer_fec", "len", "adpt", "state")
	return err
}

// Write appends one frame's row.
func (d *DataLog) Write(r Row) error {
	if d == nil || d.w == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	evm, rssi := "-", "-"
	if r.Received {
		evm = fmt.Sprintf("%.2f", r.Feedback.EVM)
		rssi = fmt.Sprintf("%.2f", r.Feedback.RSSI)
	}
	spectral := 0.0
	if r.Params.Bandwidth > 0 {
		spectral = r.Throughput / r.Params.Bandwidth
	}
	_, err := fmt.Fprintf(d.w, "%-8d%-8d%-6t%-6t%-10s%-10s%-10.4f%-10.4g%-10.3f%-12.2f%-14.2f%-10s%-14s%-8d%-6t%-10s\n",
		r.Metrics.Frame, r.Feedback.Iteration,
		r.Feedback.HeaderValid, r.Feedback.PayloadValid,
		evm, rssi,
		r.Metrics.PER, r.Metrics.BER, r.Metrics.LatestGoal,
		r.Throughput, spectral,
		r.Params.Modulation, r.Params.OuterFEC, r.Params.PayloadLen,
		r.Adapted, r.Metrics.State)
	return err
}
