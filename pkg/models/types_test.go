package models

import (
	"strings"
	"testing"
)

func TestDefaultParameterSetIsValid(t *testing.T) {
	p := DefaultParameterSet()
	if err := p.Validate(); err != nil {
		t.Fatalf("default parameter set invalid: %v", err)
	}
	if p.SymbolLen() != 80 {
		t.Errorf("SymbolLen() = %d, want 80", p.SymbolLen())
	}
}

func TestParameterSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *ParameterSet)
		wantErr string
	}{
		{"payload below min", func(p *ParameterSet) { p.PayloadLen = 10 }, "payload_len"},
		{"inverted bounds", func(p *ParameterSet) { p.PayloadLenMin = 600 }, "payload bounds"},
		{"zero goal window", func(p *ParameterSet) { p.GoalAveraging = 0 }, "goal_averaging"},
		{"zero per window", func(p *ParameterSet) { p.PERAveraging = 0 }, "per_averaging"},
		{"no subcarriers", func(p *ParameterSet) { p.NumSubcarriers = 0 }, "num_subcarriers"},
		{"no timeout", func(p *ParameterSet) { p.FeedbackTimeout = 0 }, "feedback_timeout"},
		{"zero bandwidth", func(p *ParameterSet) { p.Bandwidth = 0 }, "bandwidth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameterSet()
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestScenarioValidate(t *testing.T) {
	s := DefaultScenario()
	s.FadeK = 1.0
	if err := s.Validate(); err != nil {
		t.Errorf("fading disabled: expected no error, got %v", err)
	}

	s.Rx.Fading = true
	if err := s.Validate(); err == nil {
		t.Error("expected error for K <= 1.5 with rx fading")
	}

	s.FadeK = 30
	s.FadeFd = 0.5
	if err := s.Validate(); err == nil {
		t.Error("expected error for fd >= 0.5")
	}

	s.FadeFd = 0.2
	if err := s.Validate(); err != nil {
		t.Errorf("valid fading scenario rejected: %v", err)
	}
}

func TestFeedbackRecordErrorFree(t *testing.T) {
	if !(FeedbackRecord{PayloadValid: true}).ErrorFree() {
		t.Error("valid payload without bit errors should be error free")
	}
	if (FeedbackRecord{PayloadValid: true, PayloadBitErrors: 1}).ErrorFree() {
		t.Error("bit errors must clear error free")
	}
	if (FeedbackRecord{PayloadValid: false}).ErrorFree() {
		t.Error("invalid payload is never error free")
	}
}

func TestImpairmentsAny(t *testing.T) {
	if (Impairments{}).Any() {
		t.Error("empty impairments should report none")
	}
	if !(Impairments{CW: true}).Any() {
		t.Error("cw should count")
	}
}

func TestRunStatus(t *testing.T) {
	run := &Run{ID: "run-1", Status: RunStatusPending}
	for _, s := range []RunStatus{RunStatusRunning, RunStatusCompleted, RunStatusFailed} {
		run.Status = s
		if run.Status != s {
			t.Errorf("Expected status %s, got %s", s, run.Status)
		}
	}
	if string(RunStatusPending) != "pending" {
		t.Errorf("unexpected pending status text %q", RunStatusPending)
	}
}
