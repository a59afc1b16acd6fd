package config

import (
	"time"

	"github.com/cognitive-radio/crts/internal/phy"
	"github.com/cognitive-radio/crts/pkg/models"
)

// EngineFile is the on-disk form of a cognitive engine configuration.
// Scheme fields resolve through their TextUnmarshaler while decoding; the
// rule strings are resolved by ToParameterSet.
type EngineFile struct {
	ModScheme      phy.Modulation `yaml:"mod_scheme"`
	CRCScheme      phy.CRC        `yaml:"crc_scheme"`
	InnerFEC       phy.FEC        `yaml:"inner_fec"`
	OuterFEC       phy.FEC        `yaml:"outer_fec"`
	NumSubcarriers int            `yaml:"num_subcarriers"`
	CPLen          int            `yaml:"cp_len"`
	TaperLen       int            `yaml:"taper_len"`

	PayloadLen          int `yaml:"payload_len"`
	PayloadLenIncrement int `yaml:"payload_len_increment"`
	PayloadLenMin       int `yaml:"payload_len_min"`
	PayloadLenMax       int `yaml:"payload_len_max"`

	DefaultTxPower float64 `yaml:"default_tx_power"`
	TxGainDB       float64 `yaml:"txgain_db"`
	UHDTxGainDB    float64 `yaml:"uhd_txgain_db"`
	UHDRxGainDB    float64 `yaml:"uhd_rxgain_db"`
	FrequencyTx    float64 `yaml:"frequency_tx"`
	FrequencyRx    float64 `yaml:"frequency_rx"`
	Bandwidth      float64 `yaml:"bandwidth"`

	AdaptationCondition              string  `yaml:"adaptation_condition"`
	Adaptation                       string  `yaml:"adaptation"`
	Goal                             string  `yaml:"goal"`
	GoalAveraging                    int     `yaml:"goal_averaging"`
	Threshold                        float64 `yaml:"threshold"`
	PERThreshold                     float64 `yaml:"per_threshold"`
	BERThreshold                     float64 `yaml:"ber_threshold"`
	WeightedAvgPayloadValidThreshold float64 `yaml:"weighted_avg_payload_valid_threshold"`

	PERAveraging               int `yaml:"per_averaging"`
	BERAveraging               int `yaml:"ber_averaging"`
	ValidPayloadsAveraging     int `yaml:"valid_payloads_averaging"`
	ErrorFreePayloadsAveraging int `yaml:"error_free_payloads_averaging"`

	FeedbackTimeout time.Duration `yaml:"feedback_timeout"`
	OverrideFile    string        `yaml:"override_file"`
}

func defaultEngineFile() EngineFile {
	p := models.DefaultParameterSet()
	return EngineFile{
		ModScheme:      p.Modulation,
		CRCScheme:      p.CRC,
		InnerFEC:       p.InnerFEC,
		OuterFEC:       p.OuterFEC,
		NumSubcarriers: p.NumSubcarriers,
		CPLen:          p.CPLen,
		TaperLen:       p.TaperLen,

		PayloadLen:          p.PayloadLen,
		PayloadLenIncrement: p.PayloadLenIncrement,
		PayloadLenMin:       p.PayloadLenMin,
		PayloadLenMax:       p.PayloadLenMax,

		DefaultTxPower: p.DefaultTxPower,
		TxGainDB:       p.TxGainDB,
		UHDTxGainDB:    p.UHDTxGainDB,
		UHDRxGainDB:    p.UHDRxGainDB,
		FrequencyTx:    p.FrequencyTx,
		FrequencyRx:    p.FrequencyRx,
		Bandwidth:      p.Bandwidth,

		AdaptationCondition:              p.Condition.String(),
		Adaptation:                       p.Action.String(),
		Goal:                             p.Goal.String(),
		GoalAveraging:                    p.GoalAveraging,
		Threshold:                        p.Threshold,
		PERThreshold:                     0.5,
		BERThreshold:                     0.5,
		WeightedAvgPayloadValidThreshold: 0.5,

		PERAveraging:               p.PERAveraging,
		BERAveraging:               p.BERAveraging,
		ValidPayloadsAveraging:     p.ValidPayloadsAveraging,
		ErrorFreePayloadsAveraging: p.ErrorFreePayloadsAveraging,

		FeedbackTimeout: p.FeedbackTimeout,
		OverrideFile:    p.OverrideFile,
	}
}

// ScenarioFile is the on-disk form of a channel scenario.
type ScenarioFile struct {
	Tx models.Impairments `yaml:"tx"`
	Rx models.Impairments `yaml:"rx"`

	NoiseSNR  float64 `yaml:"noise_snr"`
	NoiseDPhi float64 `yaml:"noise_dphi"`

	FadeK    float64 `yaml:"fade_k"`
	FadeFd   float64 `yaml:"fade_fd"`
	FadeDPhi float64 `yaml:"fade_dphi"`

	CWPower float64 `yaml:"cw_pow"`
	CWFreq  float64 `yaml:"cw_freq"`
}

// Master lists the engines and scenarios of a run. Every engine is tested
// against every scenario.
type Master struct {
	Engines   []string `yaml:"engines"`
	Scenarios []string `yaml:"scenarios"`
	// MaxFrames bounds each test; 0 runs until the goal is reached.
	MaxFrames int   `yaml:"max_frames"`
	Seed      int64 `yaml:"seed"`
}
