// Package harness drives cognitive engines through channel scenarios: it
// frames and transmits test traffic, waits for receiver feedback, lets the
// engine adapt and records what happened.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cognitive-radio/crts/internal/engine"
	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/internal/impairment"
	"github.com/cognitive-radio/crts/internal/metrics"
	"github.com/cognitive-radio/crts/pkg/config"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
	"github.com/cognitive-radio/crts/pkg/utils"
)

// FeedbackSource yields receiver feedback. feedback.Channel implements it.
type FeedbackSource interface {
	Await(ctx context.Context, deadline time.Time) (models.FeedbackRecord, bool)
}

// Options configures an Orchestrator.
type Options struct {
	// MaxFrames bounds every test; 0 runs each test until it converges.
	MaxFrames int
	Seed      int64
	Exporter  *metrics.Exporter
	DataLog   io.Writer
	Logger    *slog.Logger
	Clock     utils.Clock
	// Run, when set, is told about every finished test.
	Run *RunManager
}

// Test is one engine configuration run against one scenario.
type Test struct {
	Key      metrics.Key
	Params   models.ParameterSet
	Scenario models.ScenarioConfig
}

// Result is the outcome of a single test.
type Result struct {
	Frames    uint32
	Lost      int
	Converged bool
	Final     engine.Metrics
	Params    models.ParameterSet
}

// Orchestrator runs tests one at a time on a single goroutine. It owns the
// engine and the transmit-side impairment pipeline.
type Orchestrator struct {
	txcvr    Transceiver
	source   FeedbackSource
	engine   *engine.Engine
	txPipe   *impairment.Pipeline
	prbs     *PRBS
	summary  *metrics.Collector
	exporter *metrics.Exporter
	datalog  *DataLog
	opts     Options
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator transmitting through txcvr and
// reading feedback from source.
func NewOrchestrator(txcvr Transceiver, source FeedbackSource, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logger.Default
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	eng := engine.New(models.DefaultParameterSet())
	eng.SetLogger(opts.Logger)
	eng.SetClock(opts.Clock)

	return &Orchestrator{
		txcvr:    txcvr,
		source:   source,
		engine:   eng,
		txPipe:   impairment.NewPipeline(utils.NewRandSource(opts.Seed)),
		prbs:     NewPRBS(),
		summary:  metrics.NewCollector(),
		exporter: opts.Exporter,
		datalog:  NewDataLog(opts.DataLog),
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Engine exposes the engine, mainly so callers can inject an override
// loader.
func (o *Orchestrator) Engine() *engine.Engine {
	return o.engine
}

// Summary returns the statistics gathered so far.
func (o *Orchestrator) Summary() *metrics.Collector {
	return o.summary
}

// Run loads every engine and scenario named by m and runs each engine
// against each scenario. All files are loaded before the first frame is
// sent, so a bad file fails the run up front.
func (o *Orchestrator) Run(ctx context.Context, m *config.Master) error {
	params := make([]*models.ParameterSet, len(m.Engines))
	for i, path := range m.Engines {
		p, err := config.LoadParameterSet(path)
		if err != nil {
			return err
		}
		params[i] = p
	}
	scenarios := make([]*models.ScenarioConfig, len(m.Scenarios))
	for i, path := range m.Scenarios {
		sc, err := config.LoadScenario(path)
		if err != nil {
			return err
		}
		scenarios[i] = sc
	}

	if m.MaxFrames > 0 && o.opts.MaxFrames == 0 {
		o.opts.MaxFrames = m.MaxFrames
	}

	o.logger.Info("Starting tests",
		"engines", len(params),
		"scenarios", len(scenarios),
		"max_frames", o.opts.MaxFrames)

	for i, p := range params {
		for j, sc := range scenarios {
			t := Test{Key: metrics.Key{Engine: i, Scenario: j}, Params: *p, Scenario: *sc}
			res, err := o.RunTest(ctx, t)
			if err != nil {
				return fmt.Errorf("engine %d scenario %d: %w", i+1, j+1, err)
			}
			o.logScenario(t.Key, m, res)
		}
		o.logEngine(i, m)
	}
	return nil
}

// RunTest resets the engine to t and exchanges frames until the goal is
// reached, MaxFrames is hit or ctx is done.
func (o *Orchestrator) RunTest(ctx context.Context, t Test) (Result, error) {
	e := o.engine
	e.Reset(t.Params, t.Scenario)
	k := t.Key
	o.summary.Start(k, o.opts.Clock.Now())
	if err := o.datalog.Begin(k); err != nil {
		o.logger.Warn("Failed to write data log", "error", err)
	}

	var (
		res   Result
		last  models.FeedbackRecord
		state = e.State()
	)
	for state != engine.Converged {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if o.opts.MaxFrames > 0 && int(e.FrameNumber()) >= o.opts.MaxFrames {
			break
		}

		frame := e.StartFrame()
		params := *e.Params()
		scenario := *e.Scenario()

		f := Frame{
			Header:   feedback.FrameHeader{Engine: k.Engine, Scenario: k.Scenario, Frame: frame}.Encode(),
			Payload:  make([]byte, params.PayloadLen),
			Params:   &params,
			Scenario: &scenario,
		}
		o.prbs.Fill(f.Payload)

		hook := func(buf []complex128) error {
			return o.txPipe.Apply(buf, &scenario, &params, impairment.Transmit)
		}
		if err := o.txcvr.Transmit(ctx, f, hook); err != nil {
			return res, fmt.Errorf("frame %d: %w", frame, err)
		}

		deadline := time.Now().Add(params.FeedbackTimeout)
		rec, ok := o.source.Await(ctx, deadline)
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if ok {
			if err := e.ProcessFeedback(rec); err != nil {
				return res, fmt.Errorf("frame %d: %w", frame, err)
			}
			o.summary.Observe(k, rec)
			o.exporter.ObserveFrame(k, rec)
			last = rec
		} else {
			res.Lost++
			o.summary.MarkLost(k)
			o.exporter.ObserveLost(k)
			o.logger.Warn("No feedback before deadline",
				"engine", k.Engine+1,
				"scenario", k.Scenario+1,
				"frame", frame,
				"timeout", params.FeedbackTimeout)
		}

		state = e.EvaluateGoal()
		adapted := false
		if state != engine.Converged {
			var err error
			adapted, err = e.ApplyAdaptation(last)
			if err != nil {
				return res, fmt.Errorf("frame %d: %w", frame, err)
			}
			if adapted {
				o.exporter.ObserveAdaptation(k.Engine, params.Action.String())
			}
		}

		m := e.Metrics()
		throughput := Throughput(&params)
		o.exporter.SetProgress(k, m.PER, m.AveragedGoal, throughput)
		err := o.datalog.Write(Row{
			Key:        k,
			Metrics:    m,
			Feedback:   rec,
			Received:   ok,
			Params:     params,
			Throughput: throughput,
			Adapted:    adapted,
		})
		if err != nil {
			o.logger.Warn("Failed to write data log", "error", err)
		}
	}

	res.Final = e.Metrics()
	res.Frames = res.Final.Frame
	res.Converged = state == engine.Converged
	res.Params = *e.Params()
	o.summary.Finish(k, res.Final.PER, res.Converged, o.opts.Clock.Now())
	if o.opts.Run != nil {
		o.opts.Run.RecordTest(res.Frames, res.Converged)
	}
	return res, nil
}

func (o *Orchestrator) logScenario(k metrics.Key, m *config.Master, res Result) {
	s, _ := o.summary.Scenario(k)
	o.logger.Info("Scenario summary",
		"engine", m.Engines[k.Engine],
		"scenario", m.Scenarios[k.Scenario],
		"frames", s.TotalFrames,
		"lost", s.LostFrames,
		"valid_headers", s.ValidHeaders,
		"valid_payloads", s.ValidPayloads,
		"avg_evm_db", utils.Round(s.AvgEVM(), 2),
		"avg_rssi_db", utils.Round(s.AvgRSSI(), 2),
		"per", utils.Round(s.FinalPER, 4),
		"ber", s.BER(),
		"converged", res.Converged,
		"modulation", res.Params.Modulation.String(),
		"outer_fec", res.Params.OuterFEC.String(),
		"payload_len", res.Params.PayloadLen,
		"elapsed", utils.FormatDuration(s.Finished.Sub(s.Started)))
}

func (o *Orchestrator) logEngine(i int, m *config.Master) {
	s, ok := o.summary.Engine(i)
	if !ok {
		return
	}
	o.logger.Info("Engine summary",
		"engine", m.Engines[i],
		"scenarios", s.Scenarios,
		"frames", s.TotalFrames,
		"valid_payloads", s.ValidPayloads,
		"avg_evm_db", utils.Round(s.AvgEVM, 2),
		"avg_rssi_db", utils.Round(s.AvgRSSI, 2),
		"avg_per", utils.Round(s.AvgPER, 4),
		"avg_ber", s.AvgBER)
}
