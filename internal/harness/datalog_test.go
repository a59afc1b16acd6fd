package harness

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cognitive-radio/crts/internal/engine"
	"github.com/cognitive-radio/crts/internal/metrics"
	"github.com/cognitive-radio/crts/pkg/models"
)

func TestDataLogRows(t *testing.T) {
	var buf bytes.Buffer
	d := NewDataLog(&buf)
	k := metrics.Key{Engine: 1, Scenario: 2}
	if err := d.Begin(k); err != nil {
		t.Fatal(err)
	}

	p := models.DefaultParameterSet()
	err := d.Write(Row{
		Key:        k,
		Metrics:    engine.Metrics{Frame: 7, PER: 0.25, State: engine.Adapting},
		Feedback:   models.FeedbackRecord{HeaderValid: true, Iteration: 7, EVM: -21.5},
		Received:   true,
		Params:     p,
		Throughput: 5e5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Write(Row{Key: k, Metrics: engine.Metrics{Frame: 8}, Params: p}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != "# engine 2 scenario 3" {
		t.Errorf("title = %q", lines[0])
	}
	row := strings.Fields(lines[2])
	if row[0] != "7" || row[4] != "-21.50" || row[6] != "0.2500" {
		t.Errorf("row fields = %v", row)
	}
	if row[len(row)-1] != "ADAPTING" {
		t.Errorf("state column = %q", row[len(row)-1])
	}
	// spectral efficiency = throughput / bandwidth
	if row[10] != "0.50" {
		t.Errorf("spectral efficiency = %q, want 0.50", row[10])
	}
	if lost := strings.Fields(lines[3]); lost[4] != "-" {
		t.Errorf("lost frame should have no EVM, got %q", lost[4])
	}
}

func TestNilDataLog(t *testing.T) {
	d := NewDataLog(nil)
	if err := d.Begin(metrics.Key{}); err != nil {
		t.Fatal(err)
	}
	if err := d.Write(Row{}); err != nil {
		t.Fatal(err)
	}
}
