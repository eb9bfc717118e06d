package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	articlesGenerated  *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	creditsDebited     *prometheus.CounterVec
	pollerPasses       prometheus.Counter
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		articlesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "articles_generated_total",
			Help: "Articles generated, by tier.",
		}, []string{"tier"}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_failures_total",
			Help: "Generation failures, by tier.",
		}, []string{"tier"}),
		creditsDebited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "credits_debited_total",
			Help: "Credits debited, by pool.",
		}, []string{"pool"}),
		pollerPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poller_passes_total",
			Help: "Completion poller passes.",
		}),
	}
	reg.MustRegister(m.articlesGenerated, m.generationFailures, m.creditsDebited, m.pollerPasses)
	return m
}

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

func (m *Metrics) ArticleGenerated(tier string) {
	m.articlesGenerated.WithLabelValues(tier).Inc()
}

func (m *Metrics) GenerationFailed(tier string) {
	m.generationFailures.WithLabelValues(tier).Inc()
}

func (m *Metrics) CreditsDebited(pool string, amount float64) {
	m.creditsDebited.WithLabelValues(pool).Add(amount)
}

func (m *Metrics) PollerPass() {
	m.pollerPasses.Inc()
}

var Module = fx.Module("metrics",
	fx.Provide(NewRegistry),
	fx.Provide(New),
)
