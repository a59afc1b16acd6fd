package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/cognitive-radio/crts/pkg/models"
)

// Key identifies one test: an engine run against a scenario.
type Key struct {
	Engine   int
	Scenario int
}

// ScenarioSummary accumulates the outcome of one (engine, scenario) test.
type ScenarioSummary struct {
	TotalFrames   int
	LostFrames    int
	ValidHeaders  int
	ValidPayloads int
	TotalBits     uint64
	BitErrors     uint64
	EVMSum        float64
	RSSISum       float64
	FinalPER      float64
	Converged     bool
	Started       time.Time
	Finished      time.Time
}

// AvgEVM is the mean EVM over frames that produced feedback.
func (s ScenarioSummary) AvgEVM() float64 {
	if n := s.TotalFrames - s.LostFrames; n > 0 {
		return s.EVMSum / float64(n)
	}
	return 0
}

// AvgRSSI is the mean RSSI over frames that produced feedback.
func (s ScenarioSummary) AvgRSSI() float64 {
	if n := s.TotalFrames - s.LostFrames; n > 0 {
		return s.RSSISum / float64(n)
	}
	return 0
}

// BER is the overall bit error ratio of the test.
func (s ScenarioSummary) BER() float64 {
	if s.TotalBits == 0 {
		return 0
	}
	return float64(s.BitErrors) / float64(s.TotalBits)
}

// EngineSummary rolls up every scenario an engine ran.
type EngineSummary struct {
	Scenarios     int
	TotalFrames   int
	ValidPayloads int
	AvgEVM        float64
	AvgRSSI       float64
	AvgPER        float64
	AvgBER        float64
}

// Collector gathers summary statistics keyed by (engine, scenario).
type Collector struct {
	mu    sync.RWMutex
	tests map[Key]*ScenarioSummary
}

// NewCollector creates an empty summary collector
func NewCollector() *Collector {
	return &Collector{tests: make(map[Key]*ScenarioSummary)}
}

func (c *Collector) entry(k Key) *ScenarioSummary {
	s, ok := c.tests[k]
	if !ok {
		s = &ScenarioSummary{}
		c.tests[k] = s
	}
	return s
}

// Start marks the beginning of a test.
func (c *Collector) Start(k Key, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry(k).Started = at
}

// Observe records one frame's feedback.
func (c *Collector) Observe(k Key, rec models.FeedbackRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.entry(k)
	s.TotalFrames++
	if rec.HeaderValid {
		s.ValidHeaders++
	}
	if rec.PayloadValid {
		s.ValidPayloads++
	}
	s.TotalBits += uint64(rec.PayloadLen) * 8
	s.BitErrors += uint64(rec.PayloadBitErrors)
	s.EVMSum += float64(rec.EVM)
	s.RSSISum += float64(rec.RSSI)
}

// MarkLost records a frame whose feedback never arrived.
func (c *Collector) MarkLost(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.entry(k)
	s.TotalFrames++
	s.LostFrames++
}

// Finish closes a test with its final PER and convergence outcome.
func (c *Collector) Finish(k Key, per float64, converged bool, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.entry(k)
	s.FinalPER = per
	s.Converged = converged
	s.Finished = at
}

// Scenario returns a copy of one test's summary.
func (c *Collector) Scenario(k Key) (ScenarioSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.tests[k]
	if !ok {
		return ScenarioSummary{}, false
	}
	return *s, true
}

// Engine averages every scenario summary of one engine.
func (c *Collector) Engine(engine int) (EngineSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out EngineSummary
	for k, s := range c.tests {
		if k.Engine != engine {
			continue
		}
		out.Scenarios++
		out.TotalFrames += s.TotalFrames
		out.ValidPayloads += s.ValidPayloads
		out.AvgEVM += s.AvgEVM()
		out.AvgRSSI += s.AvgRSSI()
		out.AvgPER += s.FinalPER
		out.AvgBER += s.BER()
	}
	if out.Scenarios == 0 {
		return out, false
	}
	n := float64(out.Scenarios)
	out.AvgEVM /= n
	out.AvgRSSI /= n
	out.AvgPER /= n
	out.AvgBER /= n
	return out, true
}

// Keys returns every recorded test in (engine, scenario) order.
func (c *Collector) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]Key, 0, len(c.tests))
	for k := range c.tests {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Engine != keys[j].Engine {
			return keys[i].Engine < keys[j].Engine
		}
		return keys[i].Scenario < keys[j].Scenario
	})
	return keys
}
