// Package metrics exposes pipeline counters to Prometheus.
//
// Pipelines only see the Recorder interface. Nop is used when metrics are
// disabled (tests, the CLI), Prometheus by the server and the worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rag"

// Retrieval stages.
const (
	StageEntity       = "entity"
	StageStructured   = "structured"
	StageUnstructured = "unstructured"
	StageHybrid       = "hybrid"
)

// Ingest chunk results.
const (
	ChunkExtracted = "extracted"
	ChunkFailed    = "failed"
	ChunkCommitted = "committed"
)

// Recorder receives pipeline events.
type Recorder interface {
	RetrievalAttempt(stage string)
	RetrievalFailure(stage string)
	ContextEmpty()
	IngestChunk(result string)
	CommitFailure()
	Duplicate()
	ObserveLLMCall(op string, d time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RetrievalAttempt(string) {}
func (Nop) RetrievalFailure(string) {}
func (Nop) ContextEmpty() {}
func (Nop) IngestChunk(string) {}
func (Nop) CommitFailure() {}
func (Nop) Duplicate() {}
func (Nop) ObserveLLMCall(string, time.Duration) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Prometheus implements Recorder on its own registry so that several
// instances (one per test) never collide on registration.
type Prometheus struct {
	registry *prometheus.Registry

	RetrievalAttempts *prometheus.CounterVec
	RetrievalFailures *prometheus.CounterVec
	ContextsEmpty     prometheus.Counter
	IngestChunks      *prometheus.CounterVec
	CommitFailures    prometheus.Counter
	Duplicates        prometheus.Counter
	LLMCallSeconds    *prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		RetrievalAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_attempts_total",
			Help:      "Retrieval attempts by stage",
		}, []string{"stage"}),
		RetrievalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Failed retrieval attempts by stage",
		}, []string{"stage"}),
		ContextsEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_empty_total",
			Help:      "Chat turns answered without retrieval context",
		}),
		IngestChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Ingested chunks by result",
		}, []string{"result"}),
		CommitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_commit_failures_total",
			Help:      "Graph documents that could not be written",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_duplicates_total",
			Help:      "Ingestions skipped because the source was already known",
		}),
		LLMCallSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_seconds",
			Help:      "LLM call latency by operation",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"op"}),
	}

	p.registry.MustRegister(
		p.RetrievalAttempts,
		p.RetrievalFailures,
		p.ContextsEmpty,
		p.IngestChunks,
		p.CommitFailures,
		p.Duplicates,
		p.LLMCallSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Registry is the registry all collectors are registered on.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) RetrievalAttempt(stage string) {
	p.RetrievalAttempts.WithLabelValues(stage).Inc()
}

func (p *Prometheus) RetrievalFailure(stage string) {
	p.RetrievalFailures.WithLabelValues(stage).Inc()
}

func (p *Prometheus) ContextEmpty() {
	p.ContextsEmpty.Inc()
}

func (p *Prometheus) IngestChunk(result string) {
	p.IngestChunks.WithLabelValues(result).Inc()
}

func (p *Prometheus) CommitFailure() {
	p.CommitFailures.Inc()
}

func (p *Prometheus) Duplicate() {
	p.Duplicates.Inc()
}

func (p *Prometheus) ObserveLLMCall(op string, d time.Duration) {
	p.LLMCallSeconds.WithLabelValues(op).Observe(d.Seconds())
}

var (
	_ Recorder = Nop{}
	_ Recorder = (*Prometheus)(nil)
)
