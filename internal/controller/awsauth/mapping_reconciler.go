// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package awsauth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/telekom/aws-auth-operator/pkg/mapping"
	"github.com/telekom/aws-auth-operator/pkg/metrics"
	"github.com/telekom/aws-auth-operator/pkg/sharedrecord"
	"github.com/telekom/aws-auth-operator/pkg/tracing"
)

type mergeFunc func([]mapping.Entry, mapping.Entry) ([]mapping.Entry, bool)

// MappingReconciler runs single apply and cleanup passes against the shared
// record. It never retries on its own; the returned Outcome tells the
// caller what to do next.
type MappingReconciler struct {
	store  sharedrecord.Store
	tracer trace.Tracer
}

// NewMappingReconciler creates a MappingReconciler for store.
func NewMappingReconciler(store sharedrecord.Store, opts ...ReconcilerOption) *MappingReconciler {
	r := &MappingReconciler{
		store:  store,
		tracer: noop.NewTracerProvider().Tracer(tracing.TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MappingReconciler) setTracer(t trace.Tracer) {
	r.tracer = t
}

// Ref returns the name of the shared record.
func (r *MappingReconciler) Ref() string {
	return r.store.Ref()
}

// Apply makes sure the shared record holds desired.
// It returns Applied, AlreadyUpToDate or one of the error outcomes.
func (r *MappingReconciler) Apply(ctx context.Context, desired mapping.Entry) (Outcome, error) {
	return r.run(ctx, metrics.OperationApply, desired, mapping.ApplyMerge, OutcomeApplied, OutcomeAlreadyUpToDate)
}

// Cleanup makes sure the shared record holds no entry keyed like desired.
// It returns Removed, NoOpAlreadyAbsent or one of the error outcomes.
func (r *MappingReconciler) Cleanup(ctx context.Context, desired mapping.Entry) (Outcome, error) {
	return r.run(ctx, metrics.OperationCleanup, desired, mapping.CleanupMerge, OutcomeRemoved, OutcomeNoOpAlreadyAbsent)
}

// run performs fetch, decode, merge, encode, conditional patch and
// classification. The text that was fetched is the precondition of the
// patch, so a concurrent writer makes the patch fail instead of being
// overwritten.
func (r *MappingReconciler) run(
	ctx context.Context,
	operation string,
	desired mapping.Entry,
	merge mergeFunc,
	changed, unchanged Outcome,
) (outcome Outcome, err error) {
	ctx, span := r.tracer.Start(ctx, "MappingReconciler."+operation,
		trace.WithAttributes(
			tracing.AttrOperation.String(operation),
			tracing.AttrRoleARN.String(desired.RoleARN),
			tracing.AttrSharedRecord.String(r.store.Ref()),
		),
	)
	logger := log.FromContext(ctx).WithValues("operation", operation, "rolearn", desired.RoleARN)

	defer func() {
		metrics.MappingOutcomes.WithLabelValues(operation, string(outcome)).Inc()
		span.SetAttributes(tracing.AttrOutcome.String(string(outcome)))
		if outcome == OutcomeFatalError {
			tracing.Fail(span, err)
		}
		span.End()
	}()

	record, err := r.store.Get(ctx)
	if err != nil {
		return outcomeForStoreError(err), fmt.Errorf("fetch shared record: %w", err)
	}

	entries, err := mapping.Decode(record.Text)
	if err != nil {
		return OutcomeFatalError, fmt.Errorf("decode %s of %s: %w", record.Key, record.Ref, err)
	}
	observe(logger, entries)
	span.SetAttributes(tracing.AttrEntryCount.Int(len(entries)))

	next, isChanged := merge(entries, desired)
	if !isChanged {
		logger.V(1).Info("shared record already in desired state", "record", record.Ref)
		return unchanged, nil
	}

	text, err := mapping.Encode(next)
	if err != nil {
		return OutcomeFatalError, err
	}

	start := time.Now()
	err = r.store.ConditionalPatch(ctx, record.Patch(text))
	metrics.SharedRecordPatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome = outcomeForStoreError(err)
		if outcome == OutcomeConflictRetry {
			logger.V(1).Info("shared record changed since it was read, will retry", "record", record.Ref)
		}
		return outcome, fmt.Errorf("patch shared record: %w", err)
	}

	metrics.SharedRecordEntries.Set(float64(len(next)))
	logger.V(1).Info("shared record patched", "record", record.Ref, "entries", len(next))
	return changed, nil
}

// observe publishes the state of the entry list and warns about duplicate
// keys, which only other writers can introduce.
func observe(logger logr.Logger, entries []mapping.Entry) {
	dups := mapping.DuplicateKeys(entries)
	metrics.SharedRecordEntries.Set(float64(len(entries)))
	metrics.SharedRecordDuplicateKeys.Set(float64(len(dups)))
	if len(dups) > 0 {
		logger.Info("mapRoles lists some role ARNs more than once, only the first entry is managed", "duplicates", dups)
	}
}

func outcomeForStoreError(err error) Outcome {
	switch {
	case sharedrecord.IsConflict(err):
		return OutcomeConflictRetry
	case sharedrecord.IsTransient(err):
		return OutcomeTransientError
	default:
		return OutcomeFatalError
	}
}
