package impairment

import (
	"errors"
	"sync"

	"github.com/cognitive-radio/crts/pkg/models"
)

// ErrHandshakeClosed is returned by Submit and WaitReady once the handshake
// has been shut down.
var ErrHandshakeClosed = errors.New("impairment handshake closed")

// HandshakeState is the position of the shared buffer in its hand-off cycle.
type HandshakeState int

// A buffer moves Idle -> Filled -> Modified and back to Idle.
const (
	Idle HandshakeState = iota
	Filled
	Modified
)

func (s HandshakeState) String() string {
	switch s {
	case Filled:
		return "FILLED"
	case Modified:
		return "MODIFIED"
	default:
		return "IDLE"
	}
}

// Job is one buffer handed to the receive-side worker together with the
// configuration to impair it with.
type Job struct {
	Samples  []complex128
	Scenario *models.ScenarioConfig
	Params   *models.ParameterSet
}

// Handshake passes one buffer at a time from a producer to a worker.
// The producer fills it (IDLE to FILLED) and blocks until the worker has
// impaired it (FILLED to MODIFIED), after which it returns to IDLE. It
// supports a single producer.
type Handshake struct {
	mu       sync.Mutex
	ready    *sync.Cond
	filled   *sync.Cond
	modified *sync.Cond

	state       HandshakeState
	workerReady bool
	closed      bool
	job         Job
}

// NewHandshake returns an idle handshake.
func NewHandshake() *Handshake {
	h := &Handshake{}
	h.ready = sync.NewCond(&h.mu)
	h.filled = sync.NewCond(&h.mu)
	h.modified = sync.NewCond(&h.mu)
	return h
}

// State returns the current hand-off state.
func (h *Handshake) State() HandshakeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// WaitReady blocks until a worker is waiting for buffers.
func (h *Handshake) WaitReady() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for !h.workerReady && !h.closed {
		h.ready.Wait()
	}
	if h.closed {
		return ErrHandshakeClosed
	}
	return nil
}

// Submit hands job to the worker and blocks until its samples are impaired.
func (h *Handshake) Submit(job Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandshakeClosed
	}

	h.job = job
	h.state = Filled
	h.filled.Signal()
	for h.state != Modified && !h.closed {
		h.modified.Wait()
	}

	done := h.state == Modified
	h.state = Idle
	h.job = Job{}
	if !done {
		return ErrHandshakeClosed
	}
	return nil
}

// Close wakes every waiter and makes further hand-offs fail.
func (h *Handshake) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.ready.Broadcast()
	h.filled.Broadcast()
	h.modified.Broadcast()
}

// serve runs the worker side: it announces readiness, then applies fn to
// each filled job until the handshake is closed or fn fails.
func (h *Handshake) serve(fn func(Job) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.workerReady = true
	h.ready.Broadcast()
	for {
		for h.state != Filled && !h.closed {
			h.filled.Wait()
		}
		if h.closed {
			return nil
		}
		if err := fn(h.job); err != nil {
			return err
		}
		h.state = Modified
		h.modified.Signal()
	}
}
