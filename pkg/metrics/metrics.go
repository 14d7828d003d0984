/*
Copyright © 2026 Deutsche Telekom AG
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	// Namespace is the Prometheus metrics namespace for aws-auth-operator
	Namespace = "aws_auth_operator"
)

var (
	// ReconcileTotal counts the total number of reconciliations per controller
	ReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconcile_total",
			Help:      "Total number of reconciliations per controller",
		},
		[]string{"controller", "result"},
	)

	// ReconcileDuration measures the duration of reconciliations in seconds
	ReconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliations per controller in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"controller"},
	)

	// ReconcileErrors counts the total number of reconciliation errors per controller
	ReconcileErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconcile_errors_total",
			Help:      "Total number of reconciliation errors per controller",
		},
		[]string{"controller", "error_type"},
	)

	// MappingOutcomes counts apply and cleanup passes by their outcome
	MappingOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mapping_outcomes_total",
			Help:      "Total number of apply and cleanup passes against aws-auth by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// SharedRecordPatchDuration measures conditional patch round trips in seconds
	SharedRecordPatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "shared_record_patch_duration_seconds",
			Help:      "Duration of conditional patches against the aws-auth ConfigMap in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SharedRecordEntries tracks the number of mapRoles entries last observed
	SharedRecordEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "shared_record_entries",
			Help:      "Number of mapRoles entries in the aws-auth ConfigMap as last observed",
		},
	)

	// SharedRecordDuplicateKeys tracks role ARNs listed more than once
	SharedRecordDuplicateKeys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "shared_record_duplicate_keys",
			Help:      "Number of role ARNs that appear more than once in mapRoles as last observed",
		},
	)

	// CRDWaitDuration measures how long startup waited for CRDs in seconds
	CRDWaitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "crd_wait_duration_seconds",
			Help:      "Duration of waiting for CRDs to become established in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register all metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		ReconcileTotal,
		ReconcileDuration,
		ReconcileErrors,
		MappingOutcomes,
		SharedRecordPatchDuration,
		SharedRecordEntries,
		SharedRecordDuplicateKeys,
		CRDWaitDuration,
	)
}

// ReconcileResult constants for labeling reconcile outcomes
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultRequeue   = "requeue"
	ResultSkipped   = "skipped"
	ResultFinalized = "finalized"
)

// ErrorType constants for categorizing reconciliation errors
const (
	ErrorTypeAPI       = "api"
	ErrorTypeConflict  = "conflict"
	ErrorTypeTransient = "transient"
	ErrorTypeFatal     = "fatal"
)

// Operation constants for MappingOutcomes
const (
	OperationApply   = "apply"
	OperationCleanup = "cleanup"
)

// ControllerName constants
const (
	ControllerMapRole = "MapRole"
)
