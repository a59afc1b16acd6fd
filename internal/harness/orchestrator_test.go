package harness

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cognitive-radio/crts/internal/engine"
	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/internal/metrics"
	"github.com/cognitive-radio/crts/internal/phy"
	"github.com/cognitive-radio/crts/internal/policy"
	"github.com/cognitive-radio/crts/pkg/config"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
)

type silentSource struct{ calls int }

func (s *silentSource) Await(ctx context.Context, deadline time.Time) (models.FeedbackRecord, bool) {
	s.calls++
	return models.FeedbackRecord{}, false
}

type nopTransceiver struct{}

func (nopTransceiver) Transmit(ctx context.Context, f Frame, hook TxHook) error { return nil }

func newLoopbackOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	ch := feedback.NewChannel()
	lb := NewLoopback(ch, nil)
	lb.SetLogger(logger.New("error", io.Discard))
	if opts.Logger == nil {
		opts.Logger = logger.New("error", io.Discard)
	}
	return NewOrchestrator(lb, ch, opts)
}

func TestRunTestConvergesOnCleanLink(t *testing.T) {
	var buf bytes.Buffer
	o := newLoopbackOrchestrator(t, Options{DataLog: &buf, Seed: 1})

	k := metrics.Key{Engine: 0, Scenario: 0}
	res, err := o.RunTest(context.Background(), Test{
		Key:      k,
		Params:   models.DefaultParameterSet(),
		Scenario: models.DefaultScenario(),
	})
	if err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	if !res.Converged {
		t.Fatal("expected payload_valid goal to converge on a clean link")
	}
	// Frame 1 is warm-up for a goal window of 1.
	if res.Frames != 2 {
		t.Errorf("Frames = %d, want 2", res.Frames)
	}
	if res.Lost != 0 {
		t.Errorf("Lost = %d, want 0", res.Lost)
	}

	s, ok := o.Summary().Scenario(k)
	if !ok {
		t.Fatal("summary missing")
	}
	if s.TotalFrames != 2 || s.ValidPayloads != 2 || !s.Converged {
		t.Errorf("summary = %+v", s)
	}
	if s.BER() != 0 {
		t.Errorf("BER = %g, want 0", s.BER())
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("data log has %d lines, want 2 header + 2 rows:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "# engine 1 scenario 1") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[3], "CONVERGED") {
		t.Errorf("last row should report convergence: %q", lines[3])
	}
}

func TestRunTestLostFramesHitMaxFrames(t *testing.T) {
	src := &silentSource{}
	o := NewOrchestrator(nopTransceiver{}, src, Options{
		MaxFrames: 3,
		Logger:    logger.New("error", io.Discard),
	})

	p := models.DefaultParameterSet()
	res, err := o.RunTest(context.Background(), Test{Params: p, Scenario: models.DefaultScenario()})
	if err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	if res.Converged {
		t.Error("cannot converge without feedback")
	}
	if res.Frames != 3 || res.Lost != 3 || src.calls != 3 {
		t.Errorf("frames=%d lost=%d awaits=%d, want 3/3/3", res.Frames, res.Lost, src.calls)
	}
	if res.Params.Modulation != p.Modulation {
		t.Errorf("stale empty feedback must not trigger PER>0.5, modulation moved to %v", res.Params.Modulation)
	}
	s, _ := o.Summary().Scenario(metrics.Key{})
	if s.LostFrames != 3 {
		t.Errorf("LostFrames = %d, want 3", s.LostFrames)
	}
}

func TestRunTestAdaptsUnderNoise(t *testing.T) {
	o := newLoopbackOrchestrator(t, Options{MaxFrames: 5, Seed: 3})

	p := models.DefaultParameterSet()
	p.OuterFEC = phy.FECNone
	p.Condition = policy.Condition{Kind: policy.PERAbove, Threshold: 0.5}
	p.Action = policy.Action{Kind: policy.SetOuterFEC, FEC: phy.Hamming74}
	sc := models.DefaultScenario()
	sc.Tx.AWGN = true
	sc.NoiseSNR = -10

	res, err := o.RunTest(context.Background(), Test{Params: p, Scenario: sc})
	if err != nil {
		t.Fatalf("RunTest: %v", err)
	}
	if res.Params.OuterFEC != phy.Hamming74 {
		t.Errorf("outer FEC = %v, want Hamming74 after PER exceeded 0.5", res.Params.OuterFEC)
	}
	if res.Final.PER <= 0.5 {
		t.Errorf("PER = %f, expected a lossy link", res.Final.PER)
	}
}

func TestRunTestContextCancelled(t *testing.T) {
	o := newLoopbackOrchestrator(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RunTest(ctx, Test{Params: models.DefaultParameterSet(), Scenario: models.DefaultScenario()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunTestInvalidFadingIsFatal(t *testing.T) {
	o := newLoopbackOrchestrator(t, Options{})
	sc := models.DefaultScenario()
	sc.Tx.Fading = true
	sc.FadeK = 1

	_, err := o.RunTest(context.Background(), Test{Params: models.DefaultParameterSet(), Scenario: sc})
	if err == nil {
		t.Fatal("expected an error for K <= 1.5")
	}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunMasterFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.yaml", "mod_scheme: BPSK\n")
	writeTestFile(t, dir, "b.yaml", "mod_scheme: QPSK\ngoal: X_frames\nthreshold: 3\n")
	writeTestFile(t, dir, "clean.yaml", "tx: {awgn: false}\n")
	writeTestFile(t, dir, "cw.yaml", "rx: {cw: true}\ncw_pow: -30\ncw_freq: 1000\n")
	path := writeTestFile(t, dir, "master.yaml", "engines: [a.yaml, b.yaml]\nscenarios: [clean.yaml, cw.yaml]\nmax_frames: 10\n")

	m, err := config.LoadMaster(path)
	if err != nil {
		t.Fatalf("LoadMaster: %v", err)
	}
	rm := NewRunManager(context.Background(), "", path)
	o := newLoopbackOrchestrator(t, Options{Run: rm})
	rm.Start()
	if err := o.Run(rm.Context(), m); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rm.Complete()

	keys := o.Summary().Keys()
	if len(keys) != 4 {
		t.Fatalf("got %d tests, want 4", len(keys))
	}
	for _, k := range keys {
		s, _ := o.Summary().Scenario(k)
		if !s.Converged {
			t.Errorf("test %+v did not converge", k)
		}
	}
	es, ok := o.Summary().Engine(1)
	if !ok || es.Scenarios != 2 {
		t.Errorf("engine roll-up = %+v, %v", es, ok)
	}
	run := rm.GetRun()
	if run.Tests != 4 || run.Converged != 4 || run.Status != models.RunStatusCompleted {
		t.Errorf("run = %+v", run)
	}
}

func TestRunFailsOnBadEngineFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "bad.yaml", "mod_scheme: 3PSK\n")
	writeTestFile(t, dir, "sc.yaml", "noise_snr: 10\n")
	m := &config.Master{
		Engines:   []string{filepath.Join(dir, "bad.yaml")},
		Scenarios: []string{filepath.Join(dir, "sc.yaml")},
	}

	o := newLoopbackOrchestrator(t, Options{})
	err := o.Run(context.Background(), m)
	if !errors.Is(err, phy.ErrUnknownScheme) {
		t.Fatalf("err = %v, want ErrUnknownScheme", err)
	}
	if len(o.Summary().Keys()) != 0 {
		t.Error("no test should start when a file fails to load")
	}
}

func TestEngineStateAfterConvergence(t *testing.T) {
	o := newLoopbackOrchestrator(t, Options{})
	if _, err := o.RunTest(context.Background(), Test{Params: models.DefaultParameterSet(), Scenario: models.DefaultScenario()}); err != nil {
		t.Fatal(err)
	}
	if o.Engine().State() != engine.Converged {
		t.Errorf("engine state = %v, want CONVERGED", o.Engine().State())
	}
}
