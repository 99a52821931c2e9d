// Package controllers implements the Service controller and its supporting metrics.
package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robotlb",
			Subsystem: "controller",
			Name:      "reconcile_total",
			Help:      "Total number of Service reconciliations by result",
		},
		[]string{"result"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "robotlb",
			Subsystem: "controller",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a Service reconciliation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"result"},
	)

	hcloudAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "robotlb",
			Subsystem: "hcloud",
			Name:      "api_calls_total",
			Help:      "Total number of Hetzner Cloud reconcile and cleanup passes, by step and result",
		},
		[]string{"step", "result"},
	)
)

func init() {
	metrics.Registry.MustRegister(reconcileTotal, reconcileDuration, hcloudAPICallsTotal)
}

func recordReconcile(result string, seconds float64) {
	reconcileTotal.WithLabelValues(result).Inc()
	reconcileDuration.WithLabelValues(result).Observe(seconds)
}

func recordHCloudAPICall(step, result string) {
	hcloudAPICallsTotal.WithLabelValues(step, result).Inc()
}
