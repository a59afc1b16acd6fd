package models

import (
	"fmt"
	"time"

	"github.com/cognitive-radio/crts/internal/phy"
	"github.com/cognitive-radio/crts/internal/policy"
)

// ParameterSet is the complete physical-layer and adaptation configuration
// of one cognitive engine.
type ParameterSet struct {
	Modulation     phy.Modulation
	CRC            phy.CRC
	InnerFEC       phy.FEC
	OuterFEC       phy.FEC
	NumSubcarriers int
	CPLen          int
	TaperLen       int

	PayloadLen          int
	PayloadLenIncrement int
	PayloadLenMin       int
	PayloadLenMax       int

	DefaultTxPower float64
	TxGainDB       float64
	UHDTxGainDB    float64
	UHDRxGainDB    float64
	FrequencyTx    float64
	FrequencyRx    float64
	Bandwidth      float64

	Condition     policy.Condition
	Action        policy.Action
	Goal          policy.GoalMetric
	GoalAveraging int
	Threshold     float64

	PERAveraging               int
	BERAveraging               int
	ValidPayloadsAveraging     int
	ErrorFreePayloadsAveraging int

	FeedbackTimeout time.Duration
	OverrideFile    string
}

// DefaultParameterSet returns the engine configuration used when a file
// leaves fields unset.
func DefaultParameterSet() ParameterSet {
	return ParameterSet{
		Modulation:     phy.QPSK,
		CRC:            phy.CRCNone,
		InnerFEC:       phy.FECNone,
		OuterFEC:       phy.Hamming74,
		NumSubcarriers: 64,
		CPLen:          16,
		TaperLen:       4,

		PayloadLen:          120,
		PayloadLenIncrement: 2,
		PayloadLenMin:       20,
		PayloadLenMax:       500,

		DefaultTxPower: 10,
		TxGainDB:       -12,
		UHDTxGainDB:    25,
		FrequencyTx:    460e6,
		FrequencyRx:    460e6,
		Bandwidth:      1e6,

		Condition:     policy.Condition{Kind: policy.PERAbove, Threshold: 0.5},
		Action:        policy.Action{Kind: policy.SetModulation, Modulation: phy.BPSK},
		Goal:          policy.GoalPayloadValid,
		GoalAveraging: 1,
		Threshold:     1.0,

		PERAveraging:               1,
		BERAveraging:               1,
		ValidPayloadsAveraging:     1,
		ErrorFreePayloadsAveraging: 1,

		FeedbackTimeout: time.Second,
		OverrideFile:    "userEngine.yaml",
	}
}

// Validate checks ranges that cannot be expressed by the enum types.
func (p *ParameterSet) Validate() error {
	if p.Modulation.BitsPerSymbol() == 0 {
		return fmt.Errorf("invalid modulation: %v", p.Modulation)
	}
	if p.NumSubcarriers <= 0 {
		return fmt.Errorf("invalid num_subcarriers: %d (must be > 0)", p.NumSubcarriers)
	}
	if p.CPLen < 0 || p.TaperLen < 0 {
		return fmt.Errorf("invalid cp_len/taper_len: %d/%d (must be >= 0)", p.CPLen, p.TaperLen)
	}
	if p.PayloadLenMin <= 0 || p.PayloadLenMin > p.PayloadLenMax {
		return fmt.Errorf("invalid payload bounds: [%d, %d]", p.PayloadLenMin, p.PayloadLenMax)
	}
	if p.PayloadLen < p.PayloadLenMin || p.PayloadLen > p.PayloadLenMax {
		return fmt.Errorf("invalid payload_len: %d (must be within [%d, %d])", p.PayloadLen, p.PayloadLenMin, p.PayloadLenMax)
	}
	if p.PayloadLenIncrement < 0 {
		return fmt.Errorf("invalid payload_len_increment: %d (must be >= 0)", p.PayloadLenIncrement)
	}
	if p.Bandwidth <= 0 {
		return fmt.Errorf("invalid bandwidth: %g (must be > 0)", p.Bandwidth)
	}
	windows := map[string]int{
		"goal_averaging":                p.GoalAveraging,
		"per_averaging":                 p.PERAveraging,
		"ber_averaging":                 p.BERAveraging,
		"valid_payloads_averaging":      p.ValidPayloadsAveraging,
		"error_free_payloads_averaging": p.ErrorFreePayloadsAveraging,
	}
	for name, n := range windows {
		if n <= 0 {
			return fmt.Errorf("invalid %s: %d (must be > 0)", name, n)
		}
	}
	if p.FeedbackTimeout <= 0 {
		return fmt.Errorf("invalid feedback_timeout: %v (must be > 0)", p.FeedbackTimeout)
	}
	return nil
}

// SymbolLen is the number of baseband samples in one OFDM symbol.
func (p *ParameterSet) SymbolLen() int {
	return p.NumSubcarriers + p.CPLen
}

// Impairments selects which channel impairments are active in one direction.
type Impairments struct {
	Fading bool `yaml:"fading"`
	CW     bool `yaml:"cw"`
	AWGN   bool `yaml:"awgn"`
}

// Any reports whether at least one impairment is enabled.
func (i Impairments) Any() bool {
	return i.Fading || i.CW || i.AWGN
}

// ScenarioConfig describes the channel a test runs through.
type ScenarioConfig struct {
	Tx Impairments
	Rx Impairments

	NoiseSNR  float64 // dB
	NoiseDPhi float64 // rad/sample

	FadeK    float64
	FadeFd   float64
	FadeDPhi float64

	CWPower float64 // dB
	CWFreq  float64 // Hz
}

// DefaultScenario returns a scenario with every impairment disabled.
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{
		NoiseSNR:  7,
		NoiseDPhi: 0.001,
		FadeK:     30,
		FadeFd:    0.2,
		FadeDPhi:  0.001,
	}
}

// Validate enforces the fading parameter constraints when fading is used.
func (s *ScenarioConfig) Validate() error {
	if !s.Tx.Fading && !s.Rx.Fading {
		return nil
	}
	if s.FadeK <= 1.5 {
		return fmt.Errorf("invalid fade_k: %g (must be > 1.5)", s.FadeK)
	}
	if s.FadeFd <= 0 || s.FadeFd >= 0.5 {
		return fmt.Errorf("invalid fade_fd: %g (must be in (0, 0.5))", s.FadeFd)
	}
	return nil
}

// FeedbackRecord is the receiver's report on one decoded frame.
type FeedbackRecord struct {
	HeaderValid       bool
	PayloadValid      bool
	PayloadLen        uint32
	PayloadByteErrors uint32
	PayloadBitErrors  uint32
	Iteration         uint32
	EVM               float32
	RSSI              float32
	CFO               float32
}

// ErrorFree reports whether the payload arrived valid with no bit errors.
func (r FeedbackRecord) ErrorFree() bool {
	return r.PayloadValid && r.PayloadBitErrors == 0
}

// RunStatus represents the status of a test run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of the harness over a master test list.
type Run struct {
	ID        string            `json:"id"`
	Status    RunStatus         `json:"status"`
	Master    string            `json:"master"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Tests     int               `json:"tests"`
	Converged int               `json:"converged"`
	Frames    uint64            `json:"frames"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
