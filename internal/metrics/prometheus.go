package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/cognitive-radio/crts/pkg/models"
)

// Frame outcomes used as the "outcome" label of crts_frames_total.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeLost    = "lost"
)

// Exporter publishes live test progress as Prometheus metrics.
type Exporter struct {
	gatherer prometheus.Gatherer

	Frames      *prometheus.CounterVec
	BitErrors   *prometheus.CounterVec
	Adaptations *prometheus.CounterVec
	PER         *prometheus.GaugeVec
	Goal        *prometheus.GaugeVec
	Throughput  *prometheus.GaugeVec

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

// NewExporter registers the CRTS metrics against reg, defaulting to the
// global registry when nil. Registering twice on the same registry returns
// the existing collectors.
func NewExporter(reg prometheus.Registerer) (*Exporter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	testLabels := []string{"engine", "scenario"}
	e := &Exporter{gatherer: gatherer}
	var err error

	if e.Frames, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crts_frames_total",
		Help: "Frames transmitted, labeled by engine, scenario and outcome.",
	}, []string{"engine", "scenario", "outcome"})); err != nil {
		return nil, err
	}
	if e.BitErrors, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crts_payload_bit_errors_total",
		Help: "Payload bit errors reported by the receiver.",
	}, testLabels)); err != nil {
		return nil, err
	}
	if e.Adaptations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crts_adaptations_total",
		Help: "Adaptation actions executed, labeled by action.",
	}, []string{"engine", "action"})); err != nil {
		return nil, err
	}
	if e.PER, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crts_packet_error_rate",
		Help: "Current packet error rate of the running test.",
	}, testLabels)); err != nil {
		return nil, err
	}
	if e.Goal, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crts_goal_value",
		Help: "Averaged goal value of the running test.",
	}, testLabels)); err != nil {
		return nil, err
	}
	if e.Throughput, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crts_throughput_bps",
		Help: "Nominal throughput of the last frame's parameters.",
	}, testLabels)); err != nil {
		return nil, err
	}
	if e.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crts_rpc_requests_total",
		Help: "Handled feedback RPCs, labeled by method and gRPC status code.",
	}, []string{"method", "code"})); err != nil {
		return nil, err
	}
	if e.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crts_rpc_duration_seconds",
		Help:    "Feedback RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method"})); err != nil {
		return nil, err
	}
	return e, nil
}

func labels(k Key) (string, string) {
	return strconv.Itoa(k.Engine), strconv.Itoa(k.Scenario)
}

// ObserveFrame counts one frame outcome. A nil Exporter is a no-op.
func (e *Exporter) ObserveFrame(k Key, rec models.FeedbackRecord) {
	if e == nil {
		return
	}
	engine, scenario := labels(k)
	outcome := OutcomeInvalid
	if rec.PayloadValid {
		outcome = OutcomeValid
	}
	e.Frames.WithLabelValues(engine, scenario, outcome).Inc()
	e.BitErrors.WithLabelValues(engine, scenario).Add(float64(rec.PayloadBitErrors))
}

// ObserveLost counts a frame whose feedback timed out.
func (e *Exporter) ObserveLost(k Key) {
	if e == nil {
		return
	}
	engine, scenario := labels(k)
	e.Frames.WithLabelValues(engine, scenario, OutcomeLost).Inc()
}

// ObserveAdaptation counts an executed action.
func (e *Exporter) ObserveAdaptation(engine int, action string) {
	if e == nil {
		return
	}
	e.Adaptations.WithLabelValues(strconv.Itoa(engine), action).Inc()
}

// SetProgress updates the per-test gauges.
func (e *Exporter) SetProgress(k Key, per, goal, throughput float64) {
	if e == nil {
		return
	}
	engine, scenario := labels(k)
	e.PER.WithLabelValues(engine, scenario).Set(per)
	e.Goal.WithLabelValues(engine, scenario).Set(goal)
	e.Throughput.WithLabelValues(engine, scenario).Set(throughput)
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (e *Exporter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if e == nil {
			return resp, err
		}

		method := "unknown"
		if info != nil {
			if i := strings.LastIndex(info.FullMethod, "/"); i >= 0 && i+1 < len(info.FullMethod) {
				method = info.FullMethod[i+1:]
			}
		}
		e.RPCRequests.WithLabelValues(method, status.Code(err).String()).Inc()
		e.RPCDurations.WithLabelValues(method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (e *Exporter) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if e != nil && e.gatherer != nil {
		gatherer = e.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}
