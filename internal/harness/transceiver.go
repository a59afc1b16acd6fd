package harness

import (
	"context"

	"github.com/cognitive-radio/crts/internal/feedback"
	"github.com/cognitive-radio/crts/pkg/models"
)

// Frame is one unit handed to a transceiver: the user header, the payload
// and the configuration it is sent with.
type Frame struct {
	Header   [feedback.HeaderLen]byte
	Payload  []byte
	Params   *models.ParameterSet
	Scenario *models.ScenarioConfig
}

// TxHook is invoked on every symbol buffer after modulation and before it
// leaves the transmitter. It may modify the samples in place.
type TxHook func(samples []complex128) error

// Transceiver sends frames. Receivers report decoded frames out of band,
// through a feedback.Publisher.
type Transceiver interface {
	Transmit(ctx context.Context, f Frame, hook TxHook) error
}

// FrameSymbols is the number of symbol buffers a frame of payloadLen bytes
// occupies at one bit per subcarrier.
func FrameSymbols(p *models.ParameterSet, payloadLen int) int {
	if p.NumSubcarriers <= 0 {
		return 0
	}
	bits := (feedback.HeaderLen + payloadLen) * 8
	return (bits + p.NumSubcarriers - 1) / p.NumSubcarriers
}

// Throughput estimates the link rate of p in bits per second: the
// modulation rate scaled by the share of the frame spent on payload.
func Throughput(p *models.ParameterSet) float64 {
	bps := p.Modulation.BitsPerSymbol()
	total := FrameSymbols(p, p.PayloadLen)
	if bps == 0 || total == 0 {
		return 0
	}
	payloadSymbols := float64(p.PayloadLen) / float64(bps)
	return float64(bps) * p.Bandwidth * (payloadSymbols / float64(total))
}
