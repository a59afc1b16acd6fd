// Package impairment corrupts baseband sample buffers with emulated channel
// effects: Rician fading, a continuous-wave interferer and additive white
// Gaussian noise.
package impairment

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cognitive-radio/crts/pkg/models"
	"github.com/cognitive-radio/crts/pkg/utils"
)

// ErrInvalidFading is returned when fading parameters are out of range.
var ErrInvalidFading = errors.New("invalid fading parameters")

// Direction selects which set of scenario impairments applies.
type Direction int

const (
	Transmit Direction = iota
	Receive
)

func (d Direction) String() string {
	if d == Receive {
		return "rx"
	}
	return "tx"
}

// Pipeline applies impairments in the fixed order fading, CW, AWGN. A
// Pipeline owns its random source and must not be shared between goroutines.
type Pipeline struct {
	rng *utils.RandSource
}

// NewPipeline creates a pipeline drawing randomness from rng.
func NewPipeline(rng *utils.RandSource) *Pipeline {
	return &Pipeline{rng: rng}
}

// Apply impairs buf in place with the effects sc enables for dir.
func (p *Pipeline) Apply(buf []complex128, sc *models.ScenarioConfig, params *models.ParameterSet, dir Direction) error {
	imp := sc.Tx
	if dir == Receive {
		imp = sc.Rx
	}
	if imp.Fading {
		if err := p.Fade(buf, sc); err != nil {
			return err
		}
	}
	if imp.CW {
		Interfere(buf, sc, params.Bandwidth)
	}
	if imp.AWGN {
		p.AddNoise(buf, sc)
	}
	return nil
}

// Fade applies Rician fading with Doppler spread sc.FadeFd and a carrier
// phase drift of sc.FadeDPhi per sample.
func (p *Pipeline) Fade(buf []complex128, sc *models.ScenarioConfig) error {
	const omega = 1.0
	k, fd := sc.FadeK, sc.FadeFd
	switch {
	case k <= 1.5:
		return fmt.Errorf("%w: K=%g (must be > 1.5)", ErrInvalidFading, k)
	case fd <= 0 || fd >= 0.5:
		return fmt.Errorf("%w: fd=%g (must be in (0, 0.5))", ErrInvalidFading, fd)
	case len(buf) == 0:
		return fmt.Errorf("%w: empty buffer", ErrInvalidFading)
	}

	s := math.Sqrt(omega * k / (k + 1))
	sig := math.Sqrt(0.5 * omega / (k + 1))

	filt := newFIR(dopplerFilter(dopplerTaps(len(buf)), fd, k, 0))
	gain := make([]complex128, len(buf))
	for i := range gain {
		y := filt.push(p.rng.ComplexStdNorm())
		gain[i] = complex(real(y)*sig, imag(y)*sig+s)
	}

	phi := 0.0
	for i := range buf {
		buf[i] *= cmplx.Exp(complex(0, phi))
		phi += sc.FadeDPhi
		buf[i] *= gain[i]
	}
	return nil
}

// Interfere adds a real sinusoid of power sc.CWPower dB at sc.CWFreq Hz,
// sampled at sampleRate.
func Interfere(buf []complex128, sc *models.ScenarioConfig, sampleRate float64) {
	k := utils.AmplitudeFromDB(sc.CWPower)
	w := 2 * math.Pi * sc.CWFreq / sampleRate
	for i := range buf {
		buf[i] += complex(k*math.Sin(w*float64(i)), 0)
	}
}

// AddNoise rotates buf by a phase drifting sc.NoiseDPhi per sample, then
// adds complex Gaussian noise for an SNR of sc.NoiseSNR dB.
func (p *Pipeline) AddNoise(buf []complex128, sc *models.ScenarioConfig) {
	nstd := utils.AmplitudeFromDB(-sc.NoiseSNR)
	phi := 0.0
	for i := range buf {
		buf[i] *= cmplx.Exp(complex(0, phi))
		phi += sc.NoiseDPhi
		buf[i] += complex(nstd, 0) * p.rng.ComplexNorm()
	}
}
