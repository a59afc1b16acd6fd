package impairment

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cognitive-radio/crts/pkg/logger"
)

// RxWorker impairs received buffers on its own goroutine, fed through a
// Handshake.
type RxWorker struct {
	hs       *Handshake
	pipeline *Pipeline
	logger   *slog.Logger

	mu     sync.Mutex
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRxWorker creates a worker that impairs with p. p must not be used by
// any other goroutine.
func NewRxWorker(p *Pipeline) *RxWorker {
	return &RxWorker{
		hs:       NewHandshake(),
		pipeline: p,
		logger:   logger.Default,
	}
}

// SetLogger sets a custom logger for the worker
func (w *RxWorker) SetLogger(l *slog.Logger) {
	w.logger = l
}

// Handshake returns the hand-off the producer submits buffers through.
func (w *RxWorker) Handshake() *Handshake {
	return w.hs
}

// Start launches the worker goroutine. Cancelling ctx or calling Stop shuts
// it down and closes the handshake.
func (w *RxWorker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	stop := context.AfterFunc(ctx, w.hs.Close)

	go func() {
		defer close(w.done)
		defer stop()

		w.logger.Debug("Rx impairment worker started")
		err := w.hs.serve(func(j Job) error {
			return w.pipeline.Apply(j.Samples, j.Scenario, j.Params, Receive)
		})
		if err != nil {
			w.logger.Error("Rx impairment failed", "error", err)
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
		}
		w.hs.Close()
		w.logger.Debug("Rx impairment worker stopped")
	}()
}

// Submit hands samples to the worker and waits for them to be impaired.
func (w *RxWorker) Submit(job Job) error {
	if err := w.hs.Submit(job); err != nil {
		if werr := w.Err(); werr != nil {
			return werr
		}
		return err
	}
	return nil
}

// Stop shuts the worker down and waits for it to exit. It returns the error
// that stopped the worker, if any.
func (w *RxWorker) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	<-w.done
	return w.Err()
}

// Err returns the impairment error that terminated the worker.
func (w *RxWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
