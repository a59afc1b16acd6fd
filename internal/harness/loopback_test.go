package harness

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/internal/impairment"
	"github.com/cognitive-radio/crts/internal/phy"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
	"github.com/cognitive-radio/crts/pkg/utils"
)

type recorder struct {
	recs []models.FeedbackRecord
	err  error
}

func (r *recorder) Publish(rec models.FeedbackRecord) error {
	r.recs = append(r.recs, rec)
	return r.err
}

func testFrame(p *models.ParameterSet, sc *models.ScenarioConfig, gen *PRBS, n uint32) Frame {
	f := Frame{
		Header:   feedback.FrameHeader{Engine: 0, Scenario: 1, Frame: n}.Encode(),
		Payload:  make([]byte, p.PayloadLen),
		Params:   p,
		Scenario: sc,
	}
	gen.Fill(f.Payload)
	return f
}

func TestLoopbackCleanLink(t *testing.T) {
	out := &recorder{}
	lb := NewLoopback(out, nil)
	lb.SetLogger(logger.New("error", io.Discard))

	p := models.DefaultParameterSet()
	sc := models.DefaultScenario()
	gen := NewPRBS()

	calls := 0
	hook := func(buf []complex128) error {
		calls++
		if len(buf) != p.SymbolLen() {
			t.Errorf("buffer length = %d, want %d", len(buf), p.SymbolLen())
		}
		return nil
	}
	for n := uint32(1); n <= 3; n++ {
		if err := lb.Transmit(context.Background(), testFrame(&p, &sc, gen, n), hook); err != nil {
			t.Fatalf("Transmit: %v", err)
		}
	}

	if len(out.recs) != 3 {
		t.Fatalf("published %d records, want 3", len(out.recs))
	}
	if want := 3 * FrameSymbols(&p, p.PayloadLen); calls != want {
		t.Errorf("hook called %d times, want %d", calls, want)
	}
	for i, rec := range out.recs {
		if !rec.HeaderValid || !rec.PayloadValid {
			t.Errorf("frame %d: header/payload valid = %v/%v", i+1, rec.HeaderValid, rec.PayloadValid)
		}
		if rec.PayloadBitErrors != 0 || rec.PayloadByteErrors != 0 {
			t.Errorf("frame %d: %d bit errors on a clean link", i+1, rec.PayloadBitErrors)
		}
		if rec.Iteration != uint32(i+1) {
			t.Errorf("frame %d: iteration = %d", i+1, rec.Iteration)
		}
		if rec.PayloadLen != uint32(p.PayloadLen) {
			t.Errorf("frame %d: payload len = %d", i+1, rec.PayloadLen)
		}
		if rec.EVM > -90 {
			t.Errorf("frame %d: EVM = %f dB on a clean link", i+1, rec.EVM)
		}
		if rec.RSSI < -0.01 || rec.RSSI > 0.01 {
			t.Errorf("frame %d: RSSI = %f dB, want 0", i+1, rec.RSSI)
		}
	}
}

func TestLoopbackNoisyReceiver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rx := impairment.NewRxWorker(impairment.NewPipeline(utils.NewRandSource(7)))
	rx.SetLogger(logger.New("error", io.Discard))
	rx.Start(ctx)
	defer rx.Stop()

	out := &recorder{}
	lb := NewLoopback(out, rx)
	lb.SetLogger(logger.New("error", io.Discard))

	p := models.DefaultParameterSet()
	p.CRC = phy.CRC32
	sc := models.DefaultScenario()
	sc.Rx.AWGN = true
	sc.NoiseSNR = -10

	if err := lb.Transmit(ctx, testFrame(&p, &sc, NewPRBS(), 1), nil); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	rec := out.recs[0]
	if rec.PayloadBitErrors == 0 {
		t.Fatal("expected bit errors at -10 dB SNR")
	}
	if rec.PayloadValid {
		t.Error("payload with bit errors must be invalid when a CRC is configured")
	}
	if rec.PayloadByteErrors > rec.PayloadBitErrors {
		t.Errorf("byte errors %d exceed bit errors %d", rec.PayloadByteErrors, rec.PayloadBitErrors)
	}
	if rec.EVM < 0 {
		t.Errorf("EVM = %f dB, expected noise-dominated", rec.EVM)
	}
}

func TestLoopbackHookError(t *testing.T) {
	out := &recorder{}
	lb := NewLoopback(out, nil)
	p := models.DefaultParameterSet()
	sc := models.DefaultScenario()
	boom := errors.New("boom")

	err := lb.Transmit(context.Background(), testFrame(&p, &sc, NewPRBS(), 1), func([]complex128) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if len(out.recs) != 0 {
		t.Error("no feedback expected for a frame that failed to transmit")
	}
}

func TestLoopbackPublishFailureIsNotFatal(t *testing.T) {
	out := &recorder{err: errors.New("unreachable")}
	lb := NewLoopback(out, nil)
	lb.SetLogger(logger.New("error", io.Discard))
	p := models.DefaultParameterSet()
	sc := models.DefaultScenario()

	if err := lb.Transmit(context.Background(), testFrame(&p, &sc, NewPRBS(), 1), nil); err != nil {
		t.Fatalf("Transmit: %v", err)
	}
}

func TestLoopbackStoppedWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rx := impairment.NewRxWorker(impairment.NewPipeline(utils.NewRandSource(1)))
	rx.SetLogger(logger.New("error", io.Discard))
	rx.Start(ctx)
	cancel()
	rx.Stop()

	lb := NewLoopback(&recorder{}, rx)
	p := models.DefaultParameterSet()
	sc := models.DefaultScenario()
	err := lb.Transmit(context.Background(), testFrame(&p, &sc, NewPRBS(), 1), nil)
	if !errors.Is(err, impairment.ErrHandshakeClosed) {
		t.Fatalf("err = %v, want ErrHandshakeClosed", err)
	}
}

func TestThroughput(t *testing.T) {
	p := models.DefaultParameterSet()
	p.Modulation = phy.QPSK
	p.PayloadLen = 120
	p.NumSubcarriers = 64
	p.Bandwidth = 1e6

	symbols := FrameSymbols(&p, p.PayloadLen)
	if symbols != 16 {
		t.Fatalf("FrameSymbols = %d, want 16", symbols)
	}
	want := 2 * 1e6 * ((120.0 / 2) / 16)
	if got := Throughput(&p); got != want {
		t.Errorf("Throughput = %f, want %f", got, want)
	}

	p.NumSubcarriers = 0
	if Throughput(&p) != 0 {
		t.Error("throughput without subcarriers should be 0")
	}
}
