package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cognitive-radio/crts/internal/policy"
	"github.com/cognitive-radio/crts/pkg/models"
)

// decodeStrict decodes YAML into out, rejecting unknown keys. An empty
// document leaves out untouched.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ParseParameterSetYAML parses an engine configuration, resolving every
// identifier and validating ranges. Unset fields take their defaults.
func ParseParameterSetYAML(data []byte) (*models.ParameterSet, error) {
	file := defaultEngineFile()
	if err := decodeStrict(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse engine yaml: %w", err)
	}

	p, err := file.ToParameterSet()
	if err != nil {
		return nil, fmt.Errorf("invalid engine: %w", err)
	}
	return p, nil
}

// ParseParameterSetYAMLString parses an engine configuration from a string.
func ParseParameterSetYAMLString(yamlText string) (*models.ParameterSet, error) {
	return ParseParameterSetYAML([]byte(yamlText))
}

// ToParameterSet resolves the rule identifiers and validates the result.
func (f *EngineFile) ToParameterSet() (*models.ParameterSet, error) {
	cond, err := policy.ParseCondition(f.AdaptationCondition, policy.Thresholds{
		PER:              f.PERThreshold,
		BER:              f.BERThreshold,
		WeightedAvgValid: f.WeightedAvgPayloadValidThreshold,
	})
	if err != nil {
		return nil, err
	}
	action, err := policy.ParseAction(f.Adaptation)
	if err != nil {
		return nil, err
	}
	goal, err := policy.ParseGoal(f.Goal)
	if err != nil {
		return nil, err
	}

	p := &models.ParameterSet{
		Modulation:     f.ModScheme,
		CRC:            f.CRCScheme,
		InnerFEC:       f.InnerFEC,
		OuterFEC:       f.OuterFEC,
		NumSubcarriers: f.NumSubcarriers,
		CPLen:          f.CPLen,
		TaperLen:       f.TaperLen,

		PayloadLen:          f.PayloadLen,
		PayloadLenIncrement: f.PayloadLenIncrement,
		PayloadLenMin:       f.PayloadLenMin,
		PayloadLenMax:       f.PayloadLenMax,

		DefaultTxPower: f.DefaultTxPower,
		TxGainDB:       f.TxGainDB,
		UHDTxGainDB:    f.UHDTxGainDB,
		UHDRxGainDB:    f.UHDRxGainDB,
		FrequencyTx:    f.FrequencyTx,
		FrequencyRx:    f.FrequencyRx,
		Bandwidth:      f.Bandwidth,

		Condition:     cond,
		Action:        action,
		Goal:          goal,
		GoalAveraging: f.GoalAveraging,
		Threshold:     f.Threshold,

		PERAveraging:               f.PERAveraging,
		BERAveraging:               f.BERAveraging,
		ValidPayloadsAveraging:     f.ValidPayloadsAveraging,
		ErrorFreePayloadsAveraging: f.ErrorFreePayloadsAveraging,

		FeedbackTimeout: f.FeedbackTimeout,
		OverrideFile:    f.OverrideFile,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseScenarioYAML parses and validates a channel scenario.
func ParseScenarioYAML(data []byte) (*models.ScenarioConfig, error) {
	d := models.DefaultScenario()
	file := ScenarioFile{
		NoiseSNR:  d.NoiseSNR,
		NoiseDPhi: d.NoiseDPhi,
		FadeK:     d.FadeK,
		FadeFd:    d.FadeFd,
		FadeDPhi:  d.FadeDPhi,
		CWPower:   d.CWPower,
		CWFreq:    d.CWFreq,
	}
	if err := decodeStrict(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
	}

	sc := &models.ScenarioConfig{
		Tx:        file.Tx,
		Rx:        file.Rx,
		NoiseSNR:  file.NoiseSNR,
		NoiseDPhi: file.NoiseDPhi,
		FadeK:     file.FadeK,
		FadeFd:    file.FadeFd,
		FadeDPhi:  file.FadeDPhi,
		CWPower:   file.CWPower,
		CWFreq:    file.CWFreq,
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

// ParseScenarioYAMLString parses a channel scenario from a string.
func ParseScenarioYAMLString(yamlText string) (*models.ScenarioConfig, error) {
	return ParseScenarioYAML([]byte(yamlText))
}

// ParseMasterYAML parses and validates a master test list. Paths are
// returned as written.
func ParseMasterYAML(data []byte) (*Master, error) {
	var m Master
	if err := decodeStrict(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse master yaml: %w", err)
	}
	if err := validateMaster(&m); err != nil {
		return nil, fmt.Errorf("invalid master: %w", err)
	}
	return &m, nil
}

func validateMaster(m *Master) error {
	if len(m.Engines) == 0 {
		return fmt.Errorf("at least one engine must be listed")
	}
	if len(m.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario must be listed")
	}
	for _, list := range [][]string{m.Engines, m.Scenarios} {
		for _, path := range list {
			if path == "" {
				return fmt.Errorf("empty file path in test list")
			}
		}
	}
	if len(m.Engines) > 255 || len(m.Scenarios) > 255 {
		return fmt.Errorf("at most 255 engines and 255 scenarios fit the frame header")
	}
	if m.MaxFrames < 0 {
		return fmt.Errorf("invalid max_frames: %d (must be >= 0)", m.MaxFrames)
	}
	return nil
}
