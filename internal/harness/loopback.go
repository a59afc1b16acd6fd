package harness

import (
	"context"
	"fmt"
	"log/slog"
	"math/bits"
	"math/cmplx"

	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/internal/impairment"
	"github.com/cognitive-radio/crts/internal/phy"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
	"github.com/cognitive-radio/crts/pkg/utils"
)

// Loopback is a simulated link: frames are BPSK modulated, pass through
// the transmit hook and an optional receive-side impairment worker, and are
// demodulated on the spot. One feedback record is published per frame.
//
// Each symbol buffer starts with CPLen known pilot samples (at least one)
// followed by NumSubcarriers data samples. The receiver equalises every
// buffer with the mean of its pilots.
type Loopback struct {
	out    feedback.Publisher
	rx     *impairment.RxWorker
	prbs   *PRBS
	ready  bool
	logger *slog.Logger
}

// NewLoopback creates a loopback that reports to out. rx may be nil, in
// which case no receive-side impairments are applied. rx must already be
// started.
func NewLoopback(out feedback.Publisher, rx *impairment.RxWorker) *Loopback {
	return &Loopback{
		out:    out,
		rx:     rx,
		prbs:   NewPRBS(),
		logger: logger.Default,
	}
}

// SetLogger sets a custom logger for the loopback
func (l *Loopback) SetLogger(lg *slog.Logger) {
	l.logger = lg
}

// evmFloor bounds the reported EVM of a noiseless link at -100 dB.
const evmFloor = 1e-10

type demod struct {
	bits     []byte
	errPower float64
	rxPower  float64
	samples  int
	cfoAcc   complex128
}

// Transmit sends f through the simulated link and publishes the receiver's
// report on it.
func (l *Loopback) Transmit(ctx context.Context, f Frame, hook TxHook) error {
	p := f.Params
	if p.NumSubcarriers <= 0 {
		return fmt.Errorf("invalid num_subcarriers: %d", p.NumSubcarriers)
	}
	if l.rx != nil && !l.ready {
		if err := l.rx.Handshake().WaitReady(); err != nil {
			return err
		}
		l.ready = true
	}

	sent := make([]byte, 0, feedback.HeaderLen+len(f.Payload))
	sent = append(sent, f.Header[:]...)
	sent = append(sent, f.Payload...)
	txBits := unpack(sent)

	pilots := max(p.CPLen, 1)
	d := demod{bits: make([]byte, 0, len(txBits))}
	for pos := 0; pos < len(txBits); pos += p.NumSubcarriers {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf := make([]complex128, pilots+p.NumSubcarriers)
		for i := 0; i < pilots; i++ {
			buf[i] = 1
		}
		for i := 0; i < p.NumSubcarriers; i++ {
			buf[pilots+i] = 1
			if pos+i < len(txBits) && txBits[pos+i] == 0 {
				buf[pilots+i] = -1
			}
		}

		if hook != nil {
			if err := hook(buf); err != nil {
				return fmt.Errorf("tx impairment failed: %w", err)
			}
		}
		if l.rx != nil {
			err := l.rx.Submit(impairment.Job{Samples: buf, Scenario: f.Scenario, Params: p})
			if err != nil {
				return fmt.Errorf("rx impairment failed: %w", err)
			}
		}

		n := min(p.NumSubcarriers, len(txBits)-pos)
		d.symbol(buf[:pilots], buf[pilots:pilots+n])
	}

	rec := l.report(f, d)
	if err := l.out.Publish(rec); err != nil {
		// The controller sees an undelivered record as a lost frame.
		l.logger.Warn("Failed to publish feedback", "frame", rec.Iteration, "error", err)
	}
	return nil
}

// symbol equalises one buffer against its pilots and hard-decides data.
func (d *demod) symbol(pilots, data []complex128) {
	var h complex128
	for i, s := range pilots {
		h += s
		if i > 0 {
			d.cfoAcc += s * cmplx.Conj(pilots[i-1])
		}
	}
	h /= complex(float64(len(pilots)), 0)
	g := real(h)*real(h) + imag(h)*imag(h)
	if g == 0 {
		h, g = 1, 1
	}
	for _, s := range data {
		eq := s * cmplx.Conj(h) / complex(g, 0)
		ideal := complex(-1, 0)
		bit := byte(0)
		if real(eq) >= 0 {
			ideal, bit = 1, 1
		}
		e := eq - ideal
		d.errPower += real(e)*real(e) + imag(e)*imag(e)
		d.rxPower += real(s)*real(s) + imag(s)*imag(s)
		d.samples++
		d.bits = append(d.bits, bit)
	}
}

func (l *Loopback) report(f Frame, d demod) models.FeedbackRecord {
	got := pack(d.bits)
	var hdr [feedback.HeaderLen]byte
	copy(hdr[:], got)

	payloadLen := len(f.Payload)
	expected := make([]byte, payloadLen)
	l.prbs.Fill(expected)

	rec := models.FeedbackRecord{
		HeaderValid: hdr == f.Header,
		PayloadLen:  uint32(payloadLen),
	}
	for i := 0; i < payloadLen; i++ {
		var b byte
		if feedback.HeaderLen+i < len(got) {
			b = got[feedback.HeaderLen+i]
		}
		if diff := b ^ expected[i]; diff != 0 {
			rec.PayloadByteErrors++
			rec.PayloadBitErrors += uint32(bits.OnesCount8(diff))
		}
	}
	rec.PayloadValid = rec.HeaderValid
	if f.Params.CRC != phy.CRCNone {
		rec.PayloadValid = rec.HeaderValid && rec.PayloadBitErrors == 0
	}
	if rec.HeaderValid {
		rec.Iteration = feedback.DecodeHeader(hdr).Frame
	}
	if d.samples > 0 {
		n := float64(d.samples)
		rec.EVM = float32(utils.PowerToDB(max(d.errPower/n, evmFloor)))
		rec.RSSI = float32(utils.PowerToDB(d.rxPower / n))
	}
	if d.cfoAcc != 0 {
		rec.CFO = float32(cmplx.Phase(d.cfoAcc))
	}
	return rec
}

// unpack expands bytes to bits, most significant first.
func unpack(b []byte) []byte {
	out := make([]byte, 0, len(b)*8)
	for _, v := range b {
		for i := 7; i >= 0; i-- {
			out = append(out, (v>>i)&1)
		}
	}
	return out
}

// pack reverses unpack; a trailing partial byte is dropped.
func pack(b []byte) []byte {
	out := make([]byte, len(b)/8)
	for i := range out {
		var v byte
		for _, bit := range b[i*8 : i*8+8] {
			v = v<<1 | bit
		}
		out[i] = v
	}
	return out
}
