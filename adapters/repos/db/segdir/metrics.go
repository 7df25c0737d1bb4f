//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package segdir

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the CommitEngine counters/gauge this package exposes,
// mirroring the grouping-by-component convention in lsmkv/metrics.go,
// scaled down to a self-registering struct since this module has no
// shared application-wide metrics registry to curry labels from.
type Metrics struct {
	Commits      prometheus.Counter
	Rollbacks    prometheus.Counter
	CurrentGen   prometheus.Gauge
	CommitErrors prometheus.Counter
}

// NewMetrics constructs a Metrics instance and registers it with reg. A
// nil reg is valid and yields unregistered (but still usable) collectors,
// for tests and for callers that don't run a Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segdir_commits_total",
			Help: "Number of segments_N generations successfully committed.",
		}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segdir_rollbacks_total",
			Help: "Number of prepare attempts that were rolled back.",
		}),
		CurrentGen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "segdir_current_generation",
			Help: "Generation of the last successfully committed manifest.",
		}),
		CommitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "segdir_commit_errors_total",
			Help: "Number of prepare/finish attempts that failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Commits, m.Rollbacks, m.CurrentGen, m.CommitErrors)
	}
	return m
}
