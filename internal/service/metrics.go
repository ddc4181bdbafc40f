package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics prometheus collectors of the record engine
// Metrics 修订记录引擎的 prometheus 指标
type Metrics struct {
	RevisionsWritten *prometheus.CounterVec
	CascadeFailures  prometheus.Counter
	RecomputeSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg, nil reg leaves them unregistered
// NewMetrics 创建指标并注册到 reg，reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RevisionsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edu_revisions_written_total",
			Help: "Revision snapshots written, by record kind and action.",
		}, []string{"kind", "action"}),
		CascadeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edu_summary_cascade_failures_total",
			Help: "Summary recomputations that failed and were queued for retry.",
		}),
		RecomputeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edu_summary_recompute_seconds",
			Help:    "Duration of one institution summary recomputation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RevisionsWritten, m.CascadeFailures, m.RecomputeSeconds)
	}
	return m
}
