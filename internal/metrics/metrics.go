// Package metrics holds the Prometheus counters of the analysis pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "semantica"

// Metrics groups every counter the pipeline updates.
type Metrics struct {
	Fetches     *prometheus.CounterVec
	Searches    *prometheus.CounterVec
	Analyses    *prometheus.CounterVec
	Generations *prometheus.CounterVec
	Corpus      *prometheus.CounterVec
}

// New creates the counters and registers them on reg. A nil reg leaves them
// unregistered, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Harvested URLs by outcome (ok, thin, failed).",
		}, []string{"outcome"}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Keyword searches by outcome (cache_hit, fetched, failed).",
		}, []string{"outcome"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyze requests by outcome (cached, created, degraded, rate_limited, failed).",
		}, []string{"outcome"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation loops by terminal state and whether a repair ran.",
		}, []string{"state", "repaired"}),
		Corpus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_documents_total",
			Help:      "Documents entering analysis corpora by source type.",
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(m.Fetches, m.Searches, m.Analyses, m.Generations, m.Corpus)
	}
	return m
}

// Fetch counts one harvested URL.
func (m *Metrics) Fetch(outcome string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(outcome).Inc()
}

// Search counts one keyword lookup.
func (m *Metrics) Search(outcome string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
}

// Analysis counts one analyze request.
func (m *Metrics) Analysis(outcome string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
}

// Generation counts one finished generation loop.
func (m *Metrics) Generation(state string, repaired bool) {
	if m == nil {
		return
	}
	r := "false"
	if repaired {
		r = "true"
	}
	m.Generations.WithLabelValues(state, r).Inc()
}

// CorpusDocuments adds n documents of one source type.
func (m *Metrics) CorpusDocuments(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Corpus.WithLabelValues(source).Add(float64(n))
}
