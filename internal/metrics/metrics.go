package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder captures the counters the service emits. Components accept a
// Recorder rather than touching a registry directly so tests can run
// against Noop without process-wide side effects.
type Recorder interface {
	IncDownload(outcome string)
	IncArtifactServed(mode string)
	IncEviction(reason string)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) IncDownload(string)       {}
func (Noop) IncArtifactServed(string) {}
func (Noop) IncEviction(string)       {}

// Prom implements Recorder backed by Prometheus counters.
type Prom struct {
	downloads *prometheus.CounterVec
	served    *prometheus.CounterVec
	evictions *prometheus.CounterVec
	once      sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download requests by outcome",
		}, []string{"outcome"}),
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_served_total",
			Help:      "Artifact retrievals by mode (inline/forced)",
		}, []string{"mode"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Artifact evictions by reason",
		}, []string{"reason"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.downloads, p.served, p.evictions)
	})
}

func (p *Prom) IncDownload(outcome string) {
	p.downloads.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncArtifactServed(mode string) {
	p.served.WithLabelValues(mode).Inc()
}

func (p *Prom) IncEviction(reason string) {
	p.evictions.WithLabelValues(reason).Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
