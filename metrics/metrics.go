// Package metrics exports Prometheus metrics for a strictus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reoring/strictus"
)

const namespace = "strictus"

// Observer implements strictus.Observer and records schema resolutions,
// record constructions and the issues they produced.
type Observer struct {
	SchemaResolutions *prometheus.CounterVec
	ResolveDuration   *prometheus.HistogramVec

	RecordsTotal   *prometheus.CounterVec
	RecordDuration *prometheus.HistogramVec
	IssuesTotal    *prometheus.CounterVec
}

var _ strictus.Observer = (*Observer)(nil)

// New creates an Observer registered with the default Prometheus registerer.
func New() *Observer {
	return NewObserver(prometheus.DefaultRegisterer)
}

// NewObserver creates an Observer whose metrics are registered with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	factory := promauto.With(reg)
	return &Observer{
		SchemaResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_resolutions_total",
				Help:      "Total number of record schema resolutions",
			},
			[]string{"record", "result"},
		),
		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "schema_resolve_duration_seconds",
				Help:      "Schema resolution duration in seconds",
				Buckets:   []float64{.00001, .0001, .001, .01, .1},
			},
			[]string{"record"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_total",
				Help:      "Total number of record constructions",
			},
			[]string{"record", "result"},
		),
		RecordDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "record_duration_seconds",
				Help:      "Record construction duration in seconds",
				Buckets:   []float64{.000001, .00001, .0001, .001, .01, .1},
			},
			[]string{"record"},
		),
		IssuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "issues_total",
				Help:      "Total number of issues reported, by code",
			},
			[]string{"record", "code"},
		),
	}
}

// SchemaResolved implements strictus.Observer.
func (o *Observer) SchemaResolved(record string, d time.Duration, err error) {
	o.SchemaResolutions.WithLabelValues(record, result(err)).Inc()
	o.ResolveDuration.WithLabelValues(record).Observe(d.Seconds())
	o.countIssues(record, err)
}

// RecordConstructed implements strictus.Observer.
func (o *Observer) RecordConstructed(record string, d time.Duration, err error) {
	o.RecordsTotal.WithLabelValues(record, result(err)).Inc()
	o.RecordDuration.WithLabelValues(record).Observe(d.Seconds())
	o.countIssues(record, err)
}

func (o *Observer) countIssues(record string, err error) {
	iss, ok := strictus.AsIssues(err)
	if !ok {
		return
	}
	for _, it := range iss {
		o.IssuesTotal.WithLabelValues(record, it.Code).Inc()
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
