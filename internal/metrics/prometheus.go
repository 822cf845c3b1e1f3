package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Collector backed by Prometheus. Metrics are
// registered on first use.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	candidates *prometheus.CounterVec
	windows    *prometheus.CounterVec
	targets    prometheus.Histogram
}

// Compile-time assertion that Prometheus implements Collector.
var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates a Prometheus-backed collector. A nil reg means
// prometheus.DefaultRegisterer; an empty namespace means "readcns".
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "readcns"
	}
	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.candidates = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "worker",
			Name:      "candidates_total",
			Help:      "Candidates processed by outcome (added,rejected,failed,dropped,invalid).",
		}, []string{"outcome"})

		p.windows = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consensus",
			Name:      "windows_total",
			Help:      "Window retrievals from the alignment pool by outcome.",
		}, []string{"outcome"})

		p.targets = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "worker",
			Name:      "target_seconds",
			Help:      "Time spent aligning and tallying one target read.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4min
		})

		p.reg.MustRegister(p.candidates)
		p.reg.MustRegister(p.windows)
		p.reg.MustRegister(p.targets)
	})
}

// CandidateOutcome increments the candidate counter for outcome.
func (p *Prometheus) CandidateOutcome(outcome string) {
	p.ensureRegistered()
	p.candidates.WithLabelValues(outcome).Inc()
}

// WindowOutcome increments the window counter for outcome.
func (p *Prometheus) WindowOutcome(outcome string) {
	p.ensureRegistered()
	p.windows.WithLabelValues(outcome).Inc()
}

// TargetDone observes the time spent on one target.
func (p *Prometheus) TargetDone(seconds float64) {
	p.ensureRegistered()
	p.targets.Observe(seconds)
}
