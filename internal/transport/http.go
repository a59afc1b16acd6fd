package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cognitive-radio/crts/internal/metrics"
	"github.com/cognitive-radio/crts/pkg/logger"
	"github.com/cognitive-radio/crts/pkg/models"
)

// RunSource reports the state of the current run.
type RunSource interface {
	GetRun() models.Run
}

// HTTPServer exposes run status, per-test summaries and Prometheus
// metrics while a run is in progress.
type HTTPServer struct {
	mux     *http.ServeMux
	run     RunSource
	summary *metrics.Collector
}

// NewHTTPServer creates the status server. exporter may be nil, in which
// case /metrics serves the default registry.
func NewHTTPServer(run RunSource, summary *metrics.Collector, exporter *metrics.Exporter) *HTTPServer {
	s := &HTTPServer{
		mux:     http.NewServeMux(),
		run:     run,
		summary: summary,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/run", s.handleRun)
	s.mux.HandleFunc("/v1/summary", s.handleSummary)
	s.mux.Handle("/metrics", exporter.Handler())

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.run == nil {
		s.writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	s.writeJSON(w, http.StatusOK, s.run.GetRun())
}

type testSummary struct {
	Engine        int     `json:"engine"`
	Scenario      int     `json:"scenario"`
	Frames        int     `json:"frames"`
	LostFrames    int     `json:"lost_frames"`
	ValidHeaders  int     `json:"valid_headers"`
	ValidPayloads int     `json:"valid_payloads"`
	AvgEVM        float64 `json:"avg_evm_db"`
	AvgRSSI       float64 `json:"avg_rssi_db"`
	PER           float64 `json:"per"`
	BER           float64 `json:"ber"`
	Converged     bool    `json:"converged"`
}

func (s *HTTPServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	out := []testSummary{}
	if s.summary != nil {
		for _, k := range s.summary.Keys() {
			sum, _ := s.summary.Scenario(k)
			out = append(out, testSummary{
				Engine:        k.Engine + 1,
				Scenario:      k.Scenario + 1,
				Frames:        sum.TotalFrames,
				LostFrames:    sum.LostFrames,
				ValidHeaders:  sum.ValidHeaders,
				ValidPayloads: sum.ValidPayloads,
				AvgEVM:        sum.AvgEVM(),
				AvgRSSI:       sum.AvgRSSI(),
				PER:           sum.FinalPER,
				BER:           sum.BER(),
				Converged:     sum.Converged,
			})
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tests": out})
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}
