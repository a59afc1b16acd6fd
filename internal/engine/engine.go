// Package engine implements the cognitive engine: the closed-loop controller
// that turns per-frame receiver feedback into link metrics, checks them
// against a goal and mutates the physical-layer parameter set by its
// configured condition/action rule.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognitive-radio/crts/internal/metrics"
	"github.com/cognitive-radio/crts/internal/phy"
	"github.com/cognitive-radio/crts/internal/policy"
	"github.com/cognitive-radio/crts/pkg/config"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
	"github.com/cognitive-radio/crts/pkg/utils"
)

var (
	// ErrNoFrame is returned when feedback is processed before any frame
	// has been started.
	ErrNoFrame = errors.New("no frame in progress")
	// ErrUnknownGoal is returned for a goal metric the engine cannot compute.
	ErrUnknownGoal = errors.New("unknown goal metric")
)

// State is the convergence state of a test.
type State int

// Warmup lasts until the goal window has filled; Converged ends the test.
const (
	Warmup State = iota
	Adapting
	Converged
)

func (s State) String() string {
	switch s {
	case Adapting:
		return "ADAPTING"
	case Converged:
		return "CONVERGED"
	default:
		return "WARMUP"
	}
}

// OverrideLoader reads the parameter set named by an external override.
type OverrideLoader func(path string) (*models.ParameterSet, error)

// Engine is the adaptive controller for one test at a time. It is owned by
// a single goroutine and is not safe for concurrent use.
type Engine struct {
	params   models.ParameterSet
	scenario models.ScenarioConfig
	state    State

	perAvg       metrics.RunningAverage
	berAvg       metrics.RunningAverage
	validAvg     metrics.RunningAverage
	errorFreeAvg metrics.RunningAverage

	goalMem []float64
	goalPos int

	frameNumber       uint32
	iteration         uint64
	validPayloads     uint32
	errorFreePayloads uint32
	per               float64
	ber               float64
	latestGoal        float64
	averagedGoal      float64
	lastFrame         uint32

	outerFECPrev phy.FEC
	fecOn        bool

	started      time.Time
	clock        utils.Clock
	loadOverride OverrideLoader
	logger       *slog.Logger
}

// New creates an engine configured with params. Call Reset before each test.
func New(params models.ParameterSet) *Engine {
	e := &Engine{
		clock:        utils.SystemClock{},
		loadOverride: config.LoadParameterSet,
		logger:       logger.Default,
	}
	e.Reset(params, models.DefaultScenario())
	return e
}

// SetLogger sets the engine's logger
func (e *Engine) SetLogger(l *slog.Logger) {
	e.logger = l
}

// SetClock replaces the clock used for the elapsed-time goal.
func (e *Engine) SetClock(c utils.Clock) {
	e.clock = c
	e.started = c.Now()
}

// SetOverrideLoader replaces how the user-specified override file is read.
func (e *Engine) SetOverrideLoader(l OverrideLoader) {
	e.loadOverride = l
}

// Reset installs a fresh parameter set and scenario and clears all
// per-test state. params must already be validated.
func (e *Engine) Reset(params models.ParameterSet, scenario models.ScenarioConfig) {
	e.params = params
	e.scenario = scenario
	e.state = Warmup

	e.perAvg = metrics.NewRunningAverage(params.PERAveraging)
	e.berAvg = metrics.NewRunningAverage(params.BERAveraging)
	e.validAvg = metrics.NewRunningAverage(params.ValidPayloadsAveraging)
	e.errorFreeAvg = metrics.NewRunningAverage(params.ErrorFreePayloadsAveraging)

	e.goalMem = make([]float64, params.GoalAveraging)
	e.goalPos = 0

	e.frameNumber = 0
	e.iteration = 0
	e.validPayloads = 0
	e.errorFreePayloads = 0
	e.per, e.ber = 0, 0
	e.latestGoal, e.averagedGoal = 0, 0
	e.lastFrame = 0

	e.outerFECPrev = params.OuterFEC
	e.fecOn = true

	if e.clock != nil {
		e.started = e.clock.Now()
	}
}

// Params returns the current parameter set.
func (e *Engine) Params() *models.ParameterSet {
	return &e.params
}

// Scenario returns the scenario of the current test.
func (e *Engine) Scenario() *models.ScenarioConfig {
	return &e.scenario
}

// State returns the convergence state.
func (e *Engine) State() State {
	return e.state
}

// FrameNumber returns the sequence number of the current frame; 0 before
// the first StartFrame.
func (e *Engine) FrameNumber() uint32 {
	return e.frameNumber
}

// StartFrame advances to the next frame and returns its sequence number,
// starting at 1.
func (e *Engine) StartFrame() uint32 {
	e.frameNumber++
	e.iteration++
	return e.frameNumber
}

// ProcessFeedback folds one frame's feedback into the link metrics and
// refreshes the latest goal value.
func (e *Engine) ProcessFeedback(rec models.FeedbackRecord) error {
	if e.frameNumber == 0 {
		return ErrNoFrame
	}

	valid := 0.0
	if rec.PayloadValid {
		e.validPayloads++
		valid = 1
	}
	errorFree := 0.0
	if rec.ErrorFree() {
		e.errorFreePayloads++
		errorFree = 1
	}

	frames := float64(e.frameNumber)
	e.per = (frames - float64(e.errorFreePayloads)) / frames
	e.ber = 0
	if rec.PayloadLen > 0 {
		e.ber = float64(rec.PayloadBitErrors) / (float64(rec.PayloadLen) * 8)
	}
	e.lastFrame = rec.Iteration

	e.berAvg.Update(e.ber)
	e.perAvg.Update(e.per)
	e.validAvg.Update(valid)
	e.errorFreeAvg.Update(errorFree)

	goal, err := e.goalValue(valid)
	if err != nil {
		return err
	}
	e.latestGoal = goal

	e.logger.Debug("Feedback processed",
		"frame", e.frameNumber,
		"received_frame", rec.Iteration,
		"payload_valid", rec.PayloadValid,
		"bit_errors", rec.PayloadBitErrors,
		"per", e.per,
		"ber", e.ber)
	return nil
}

func (e *Engine) goalValue(valid float64) (float64, error) {
	switch e.params.Goal {
	case policy.GoalPayloadValid:
		return valid, nil
	case policy.GoalValidPayloads:
		return float64(e.validPayloads), nil
	case policy.GoalErrorFreePayloads:
		return float64(e.errorFreePayloads), nil
	case policy.GoalFrames:
		return float64(e.frameNumber), nil
	case policy.GoalSeconds:
		return e.clock.Now().Sub(e.started).Seconds(), nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownGoal, e.params.Goal)
	}
}

// EvaluateGoal pushes the latest goal value into the goal window and
// decides the convergence state. A test cannot converge until more frames
// than the goal window have been seen. Converged is terminal until Reset.
func (e *Engine) EvaluateGoal() State {
	if e.state == Converged {
		return e.state
	}

	n := len(e.goalMem)
	e.averagedGoal -= e.goalMem[e.goalPos] / float64(n)
	e.goalMem[e.goalPos] = e.latestGoal
	e.averagedGoal += e.latestGoal / float64(n)
	e.goalPos = (e.goalPos + 1) % n

	switch {
	case int(e.frameNumber) <= n:
		e.state = Warmup
	case e.latestGoal >= e.params.Threshold:
		e.state = Converged
		e.logger.Info("Goal reached",
			"goal", e.params.Goal.String(),
			"value", e.latestGoal,
			"threshold", e.params.Threshold,
			"frame", e.frameNumber)
	default:
		e.state = Adapting
	}
	return e.state
}

// Metrics is a snapshot of the engine's link metrics.
type Metrics struct {
	Frame             uint32
	LastReceivedFrame uint32
	ValidPayloads     uint32
	ErrorFreePayloads uint32
	PER               float64
	BER               float64
	AvgPER            float64
	AvgBER            float64
	AvgValid          float64
	AvgErrorFree      float64
	LatestGoal        float64
	AveragedGoal      float64
	State             State
}

// Metrics returns the current link metrics.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		Frame:             e.frameNumber,
		LastReceivedFrame: e.lastFrame,
		ValidPayloads:     e.validPayloads,
		ErrorFreePayloads: e.errorFreePayloads,
		PER:               e.per,
		BER:               e.ber,
		AvgPER:            e.perAvg.Value(),
		AvgBER:            e.berAvg.Value(),
		AvgValid:          e.validAvg.Value(),
		AvgErrorFree:      e.errorFreeAvg.Value(),
		LatestGoal:        e.latestGoal,
		AveragedGoal:      e.averagedGoal,
		State:             e.state,
	}
}
