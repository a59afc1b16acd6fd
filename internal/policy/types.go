// Package policy holds the closed vocabularies a cognitive engine is
// configured with: the condition that triggers adaptation, the action it
// takes, and the goal metric that decides convergence. All identifiers are
// resolved when configuration is loaded.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cognitive-radio/crts/internal/phy"
)

var (
	ErrUnknownCondition = errors.New("unknown adaptation condition")
	ErrUnknownAction    = errors.New("unknown adaptation action")
	ErrUnknownGoal      = errors.New("unknown goal metric")
)

// ConditionKind enumerates the adaptation triggers.
type ConditionKind int

const (
	CondUnknown ConditionKind = iota
	UserSpecified
	LastPayloadInvalid
	WeightedAvgValidBelow
	WeightedAvgValidAbove
	PERBelow
	PERAbove
	BERBelow
	BERAbove
	LastPacketErrorFree
)

var conditionNames = map[ConditionKind]string{
	UserSpecified:         "user_specified",
	LastPayloadInvalid:    "last_payload_invalid",
	WeightedAvgValidBelow: "weighted_avg_payload_valid<X",
	WeightedAvgValidAbove: "weighted_avg_payload_valid>X",
	PERBelow:              "PER<X",
	PERAbove:              "PER>X",
	BERBelow:              "BER_lastPacket<X",
	BERAbove:              "BER_lastPacket>X",
	LastPacketErrorFree:   "last_packet_error_free",
}

// Thresholds supplies the X of the comparison conditions.
type Thresholds struct {
	PER              float64
	BER              float64
	WeightedAvgValid float64
}

// Condition is an adaptation trigger with its comparison threshold bound in.
type Condition struct {
	Kind      ConditionKind
	Threshold float64
}

// ParseCondition resolves a condition name and binds the matching threshold.
func ParseCondition(name string, th Thresholds) (Condition, error) {
	for kind, n := range conditionNames {
		if n != name {
			continue
		}
		c := Condition{Kind: kind}
		switch kind {
		case PERBelow, PERAbove:
			c.Threshold = th.PER
		case BERBelow, BERAbove:
			c.Threshold = th.BER
		case WeightedAvgValidBelow, WeightedAvgValidAbove:
			c.Threshold = th.WeightedAvgValid
		}
		return c, nil
	}
	return Condition{}, fmt.Errorf("%w: %q", ErrUnknownCondition, name)
}

func (c Condition) String() string {
	if n, ok := conditionNames[c.Kind]; ok {
		return n
	}
	return fmt.Sprintf("Condition(%d)", int(c.Kind))
}

// Observation is the slice of engine state a condition reads.
type Observation struct {
	LastPayloadValid bool
	LastBitErrors    uint32
	WeightedAvgValid float64
	PER              float64
	BERLastPacket    float64
}

// Holds reports whether the condition fires for o. UserSpecified always fires.
func (c Condition) Holds(o Observation) bool {
	switch c.Kind {
	case UserSpecified:
		return true
	case LastPayloadInvalid:
		return !o.LastPayloadValid
	case WeightedAvgValidBelow:
		return o.WeightedAvgValid < c.Threshold
	case WeightedAvgValidAbove:
		return o.WeightedAvgValid > c.Threshold
	case PERBelow:
		return o.PER < c.Threshold
	case PERAbove:
		return o.PER > c.Threshold
	case BERBelow:
		return o.BERLastPacket < c.Threshold
	case BERAbove:
		return o.BERLastPacket > c.Threshold
	case LastPacketErrorFree:
		return o.LastBitErrors == 0
	default:
		return false
	}
}

// ActionKind enumerates the parameter mutations.
type ActionKind int

const (
	ActUnknown ActionKind = iota
	IncreasePayloadLen
	DecreasePayloadLen
	IncreaseModPSK
	DecreaseModPSK
	IncreaseModASK
	DecreaseModASK
	ToggleOuterFEC
	DisableOuterFEC
	IncreaseOuterFEC
	DecreaseOuterFEC
	SetModulation
	SetOuterFEC
)

var actionNames = map[ActionKind]string{
	IncreasePayloadLen: "increase_payload_len",
	DecreasePayloadLen: "decrease_payload_len",
	IncreaseModPSK:     "increase_mod_scheme_PSK",
	DecreaseModPSK:     "decrease_mod_scheme_PSK",
	IncreaseModASK:     "increase_mod_scheme_ASK",
	DecreaseModASK:     "decrease_mod_scheme_ASK",
	ToggleOuterFEC:     "Outer FEC On/Off",
	DisableOuterFEC:    "no_fec",
	IncreaseOuterFEC:   "increase_fec",
	DecreaseOuterFEC:   "decrease_fec",
}

const (
	setModPrefix = "mod_scheme->"
	setFECPrefix = "outer_fec->"
)

// Action is a parameter mutation. Modulation and FEC carry the target of
// SetModulation and SetOuterFEC respectively.
type Action struct {
	Kind       ActionKind
	Modulation phy.Modulation
	FEC        phy.FEC
}

// ParseAction resolves an action name, including the "mod_scheme->X" and
// "outer_fec->X" set forms.
func ParseAction(name string) (Action, error) {
	if target, ok := strings.CutPrefix(name, setModPrefix); ok {
		m, err := phy.ParseModulation(target)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q: %w", ErrUnknownAction, name, err)
		}
		return Action{Kind: SetModulation, Modulation: m}, nil
	}
	if target, ok := strings.CutPrefix(name, setFECPrefix); ok {
		f, err := phy.ParseFEC(target)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q: %w", ErrUnknownAction, name, err)
		}
		return Action{Kind: SetOuterFEC, FEC: f}, nil
	}
	for kind, n := range actionNames {
		if n == name {
			return Action{Kind: kind}, nil
		}
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}

func (a Action) String() string {
	switch a.Kind {
	case SetModulation:
		return setModPrefix + a.Modulation.String()
	case SetOuterFEC:
		return setFECPrefix + a.FEC.String()
	}
	if n, ok := actionNames[a.Kind]; ok {
		return n
	}
	return fmt.Sprintf("Action(%d)", int(a.Kind))
}

// GoalMetric selects the quantity compared against the engine threshold.
type GoalMetric int

const (
	GoalUnknown GoalMetric = iota
	GoalPayloadValid
	GoalValidPayloads
	GoalErrorFreePayloads
	GoalFrames
	GoalSeconds
)

var goalNames = map[GoalMetric]string{
	GoalPayloadValid:      "payload_valid",
	GoalValidPayloads:     "X_valid_payloads",
	GoalErrorFreePayloads: "X_errorFreePayloads",
	GoalFrames:            "X_frames",
	GoalSeconds:           "X_seconds",
}

// ParseGoal resolves a goal metric name.
func ParseGoal(name string) (GoalMetric, error) {
	for g, n := range goalNames {
		if n == name {
			return g, nil
		}
	}
	return GoalUnknown, fmt.Errorf("%w: %q", ErrUnknownGoal, name)
}

func (g GoalMetric) String() string {
	if n, ok := goalNames[g]; ok {
		return n
	}
	return fmt.Sprintf("GoalMetric(%d)", int(g))
}
