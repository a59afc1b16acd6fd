package harness

import (
	"context"
	"sync"

	"github.com/cognitive-radio/crts/pkg/models"
	"github.com/cognitive-radio/crts/pkg/utils"
)

// RunManager tracks the lifecycle of one harness run
type RunManager struct {
	run    *models.Run
	clock  utils.Clock
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunManager creates a pending run derived from parent. An empty runID
// gets a generated one.
func NewRunManager(parent context.Context, runID, master string) *RunManager {
	if runID == "" {
		runID = utils.GenerateRunID()
	}
	ctx, cancel := context.WithCancel(parent)
	clock := utils.Clock(utils.SystemClock{})

	return &RunManager{
		run: &models.Run{
			ID:        runID,
			Status:    models.RunStatusPending,
			Master:    master,
			StartTime: clock.Now(),
			Metadata:  make(map[string]string),
		},
		clock:  clock,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetClock replaces the clock used for timestamps.
func (rm *RunManager) SetClock(c utils.Clock) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.clock = c
}

// Start marks the run as started
func (rm *RunManager) Start() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.run.Status = models.RunStatusRunning
	rm.run.StartTime = rm.clock.Now()
}

// RecordTest counts a finished (engine, scenario) test.
func (rm *RunManager) RecordTest(frames uint32, converged bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.run.Tests++
	rm.run.Frames += uint64(frames)
	if converged {
		rm.run.Converged++
	}
}

// Complete marks the run as completed
func (rm *RunManager) Complete() {
	rm.finish(models.RunStatusCompleted, "")
}

// Fail marks the run as failed
func (rm *RunManager) Fail(err error) {
	rm.finish(models.RunStatusFailed, err.Error())
}

func (rm *RunManager) finish(status models.RunStatus, msg string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.run.Status = status
	rm.run.Error = msg
	rm.run.EndTime = rm.clock.Now()
	rm.run.Duration = rm.run.EndTime.Sub(rm.run.StartTime)
	rm.cancel()
}

// Cancel cancels the run's context
func (rm *RunManager) Cancel() {
	rm.cancel()
}

// Context returns the run's context
func (rm *RunManager) Context() context.Context {
	return rm.ctx
}

// GetRun returns a copy of the current run state
func (rm *RunManager) GetRun() models.Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	run := *rm.run
	run.Metadata = make(map[string]string, len(rm.run.Metadata))
	for k, v := range rm.run.Metadata {
		run.Metadata[k] = v
	}
	return run
}

// SetMetadata sets a metadata value
func (rm *RunManager) SetMetadata(key, value string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.run.Metadata[key] = value
}

// GetMetadata gets a metadata value
func (rm *RunManager) GetMetadata(key string) (string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	value, ok := rm.run.Metadata[key]
	return value, ok
}

// Stats returns log-friendly run statistics.
func (rm *RunManager) Stats() []any {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	elapsed := rm.run.Duration
	if rm.run.EndTime.IsZero() {
		elapsed = rm.clock.Now().Sub(rm.run.StartTime)
	}
	return []any{
		"run_id", rm.run.ID,
		"status", string(rm.run.Status),
		"elapsed", utils.FormatDuration(elapsed),
		"tests", rm.run.Tests,
		"converged", rm.run.Converged,
		"frames", rm.run.Frames,
	}
}
