package engine

import (
	"fmt"

	"github.com/cognitive-radio/crts/internal/phy"
	"github.com/cognitive-radio/crts/internal/policy"
	"github.com/cognitive-radio/crts/pkg/models"
)

// ApplyAdaptation evaluates the configured condition against rec and the
// current metrics and, when it holds, executes the configured action. It
// reports whether the condition fired. Boundary moves (payload length at
// its limit, the end of a ladder) are silent no-ops.
func (e *Engine) ApplyAdaptation(rec models.FeedbackRecord) (bool, error) {
	obs := policy.Observation{
		LastPayloadValid: rec.PayloadValid,
		LastBitErrors:    rec.PayloadBitErrors,
		WeightedAvgValid: e.validAvg.Value(),
		PER:              e.per,
		BERLastPacket:    e.ber,
	}
	cond := e.params.Condition
	if !cond.Holds(obs) {
		return false, nil
	}

	if cond.Kind == policy.UserSpecified {
		if err := e.applyOverride(); err != nil {
			return true, err
		}
	}

	before := e.params
	if err := e.execute(e.params.Action); err != nil {
		return true, err
	}

	e.logger.Debug("Adaptation applied",
		"condition", cond.String(),
		"action", e.params.Action.String(),
		"frame", e.frameNumber,
		"modulation", e.params.Modulation.String(),
		"outer_fec", e.params.OuterFEC.String(),
		"payload_len", e.params.PayloadLen,
		"changed", before != e.params)
	return true, nil
}

// applyOverride replaces the parameter set with the override file while
// keeping the rule that triggered it, so the override can fire again.
func (e *Engine) applyOverride() error {
	next, err := e.loadOverride(e.params.OverrideFile)
	if err != nil {
		return fmt.Errorf("failed to load override %q: %w", e.params.OverrideFile, err)
	}
	cond, overrideFile := e.params.Condition, e.params.OverrideFile
	e.params = *next
	e.params.Condition = cond
	if e.params.OverrideFile == "" {
		e.params.OverrideFile = overrideFile
	}
	e.logger.Info("User override loaded", "file", overrideFile)
	return nil
}

func (e *Engine) execute(a policy.Action) error {
	p := &e.params
	switch a.Kind {
	case policy.IncreasePayloadLen:
		if next := p.PayloadLen + p.PayloadLenIncrement; next <= p.PayloadLenMax {
			p.PayloadLen = next
		}
	case policy.DecreasePayloadLen:
		if next := p.PayloadLen - p.PayloadLenIncrement; next >= p.PayloadLenMin {
			p.PayloadLen = next
		}
	case policy.IncreaseModPSK:
		p.Modulation, _ = phy.Step(phy.PSKLadder, p.Modulation, 1)
	case policy.DecreaseModPSK:
		p.Modulation, _ = phy.Step(phy.PSKLadder, p.Modulation, -1)
	case policy.IncreaseModASK:
		p.Modulation, _ = phy.Step(phy.ASKLadder, p.Modulation, 1)
	case policy.DecreaseModASK:
		p.Modulation, _ = phy.Step(phy.ASKLadder, p.Modulation, -1)
	case policy.ToggleOuterFEC:
		if e.fecOn {
			e.outerFECPrev = p.OuterFEC
			p.OuterFEC = phy.FECNone
		} else {
			p.OuterFEC = e.outerFECPrev
		}
		e.fecOn = !e.fecOn
	case policy.DisableOuterFEC:
		p.OuterFEC = phy.FECNone
	case policy.IncreaseOuterFEC:
		p.OuterFEC, _ = phy.Step(phy.FECLadder, p.OuterFEC, 1)
	case policy.DecreaseOuterFEC:
		p.OuterFEC, _ = phy.Step(phy.FECLadder, p.OuterFEC, -1)
	case policy.SetModulation:
		p.Modulation = a.Modulation
	case policy.SetOuterFEC:
		p.OuterFEC = a.FEC
	default:
		return fmt.Errorf("%w: %v", policy.ErrUnknownAction, a)
	}
	return nil
}
