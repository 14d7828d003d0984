// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package awsauth

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/events"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	awsauthv1 "github.com/telekom/aws-auth-operator/api/awsauth/v1"
	"github.com/telekom/aws-auth-operator/pkg/conditions"
	"github.com/telekom/aws-auth-operator/pkg/indexer"
	"github.com/telekom/aws-auth-operator/pkg/mapping"
	"github.com/telekom/aws-auth-operator/pkg/metrics"
	"github.com/telekom/aws-auth-operator/pkg/sharedrecord"
	"github.com/telekom/aws-auth-operator/pkg/tracing"
)

// +kubebuilder:rbac:groups=aws-auth.t-caas.telekom.com,resources=maproles,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=aws-auth.t-caas.telekom.com,resources=maproles/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=aws-auth.t-caas.telekom.com,resources=maproles/finalizers,verbs=update
// +kubebuilder:rbac:groups="",resources=configmaps,verbs=get;patch
// +kubebuilder:rbac:groups="events.k8s.io",resources=events,verbs=create;patch;update

// MapRoleReconciler reconciles a MapRole object into the aws-auth ConfigMap.
//
// A MapRole only ever gets its entry applied after it carries the
// finalizer, and the finalizer is only removed after its entry is known to
// be gone from aws-auth.
type MapRoleReconciler struct {
	client   client.Client
	mapping  *MappingReconciler
	recorder events.EventRecorder
	policy   RequeuePolicy
	tracer   trace.Tracer
}

// NewMapRoleReconciler creates a new MapRole reconciler writing to store.
func NewMapRoleReconciler(
	c client.Client,
	store sharedrecord.Store,
	recorder events.EventRecorder,
	policy RequeuePolicy,
	opts ...ReconcilerOption,
) *MapRoleReconciler {
	r := &MapRoleReconciler{
		client:   c,
		mapping:  NewMappingReconciler(store),
		recorder: recorder,
		policy:   policy,
		tracer:   noop.NewTracerProvider().Tracer(tracing.TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MapRoleReconciler) setTracer(t trace.Tracer) {
	r.tracer = t
	r.mapping.setTracer(t)
}

// SetupWithManager sets up the controller with the Manager. The rolearn
// field index from pkg/indexer must be registered on the manager.
func (r *MapRoleReconciler) SetupWithManager(mgr ctrl.Manager, concurrency int) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&awsauthv1.MapRole{}, builder.WithPredicates(predicate.Or(
			predicate.GenerationChangedPredicate{},
			deletionStartedPredicate(),
		))).
		Watches(
			&awsauthv1.MapRole{},
			handler.EnqueueRequestsFromMapFunc(r.mapRolesSharingRoleARN),
			builder.WithPredicates(deletedPredicate()),
		).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: concurrency,
			RateLimiter:             NewRateLimiter(),
		}).
		Complete(r)
}

// Reconcile handles the reconciliation loop for MapRole resources.
//
// The reconciliation flow:
//  1. Fetch the MapRole (return early if not found)
//  2. If it is being deleted, remove its entry from aws-auth and then the finalizer
//  3. Otherwise make sure the finalizer is set, then apply its entry to aws-auth
//  4. Record the outcome in status, events and metrics
//  5. Map the outcome to a requeue decision
func (r *MapRoleReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	startTime := time.Now()
	ctx, span := r.tracer.Start(ctx, "MapRoleReconciler.Reconcile",
		trace.WithAttributes(
			tracing.AttrController.String(metrics.ControllerMapRole),
			tracing.AttrNamespace.String(req.Namespace),
			tracing.AttrResource.String(req.Name),
		),
	)
	defer span.End()
	logger := log.FromContext(ctx)

	logger.V(1).Info("=== Reconcile START ===",
		"mapRole", req.NamespacedName)

	defer func() {
		duration := time.Since(startTime)
		metrics.ReconcileDuration.WithLabelValues(metrics.ControllerMapRole).Observe(duration.Seconds())
		logger.V(1).Info("=== Reconcile END ===",
			"mapRole", req.NamespacedName,
			"duration", duration.String())
	}()

	mr := &awsauthv1.MapRole{}
	if err := r.client.Get(ctx, req.NamespacedName, mr); err != nil {
		if apierrors.IsNotFound(err) {
			logger.V(1).Info("MapRole not found (deleted), skipping reconcile",
				"mapRole", req.NamespacedName)
			metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultSkipped).Inc()
			return ctrl.Result{}, nil
		}
		logger.Error(err, "failed to fetch MapRole",
			"mapRole", req.NamespacedName)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultError).Inc()
		metrics.ReconcileErrors.WithLabelValues(metrics.ControllerMapRole, metrics.ErrorTypeAPI).Inc()
		tracing.Fail(span, err)
		return ctrl.Result{}, fmt.Errorf("fetch MapRole %s: %w", req.NamespacedName, err)
	}
	span.SetAttributes(tracing.AttrRoleARN.String(mr.Spec.RoleARN))

	var (
		result ctrl.Result
		err    error
	)
	if mr.IsBeingDeleted() {
		result, err = r.reconcileDelete(ctx, mr)
	} else {
		result, err = r.reconcileApply(ctx, mr)
	}
	tracing.Fail(span, err)
	return result, err
}

// reconcileApply registers the finalizer and then materializes the entry.
// If the finalizer cannot be registered nothing is written to aws-auth.
func (r *MapRoleReconciler) reconcileApply(ctx context.Context, mr *awsauthv1.MapRole) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	if !controllerutil.ContainsFinalizer(mr, awsauthv1.MapRoleFinalizer) {
		controllerutil.AddFinalizer(mr, awsauthv1.MapRoleFinalizer)
		if err := r.client.Update(ctx, mr); err != nil {
			logger.Error(err, "failed to add finalizer, not applying mapping",
				"mapRole", client.ObjectKeyFromObject(mr))
			metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultError).Inc()
			metrics.ReconcileErrors.WithLabelValues(metrics.ControllerMapRole, metrics.ErrorTypeAPI).Inc()
			return ctrl.Result{}, fmt.Errorf("add finalizer to MapRole %s: %w", client.ObjectKeyFromObject(mr), err)
		}
		r.recorder.Eventf(mr, nil, corev1.EventTypeNormal,
			awsauthv1.EventReasonFinalizer, awsauthv1.EventActionFinalizerAdd,
			"Added finalizer %s", awsauthv1.MapRoleFinalizer)
	}

	base := mr.DeepCopy()
	conditions.MarkTrue(mr, awsauthv1.FinalizerCondition, mr.Generation,
		awsauthv1.FinalizerReason, awsauthv1.FinalizerMessage)
	r.markRoleARNShared(ctx, mr)

	outcome, err := r.mapping.Apply(ctx, desiredEntry(mr))
	r.recordOutcome(ctx, mr, metrics.OperationApply, outcome, err)
	r.patchStatus(ctx, base, mr, outcome, err)

	return r.policy.Result(outcome, err)
}

// reconcileDelete removes the entry and then the finalizer. On any outcome
// other than Removed or NoOpAlreadyAbsent the finalizer stays and the
// MapRole remains terminating.
func (r *MapRoleReconciler) reconcileDelete(ctx context.Context, mr *awsauthv1.MapRole) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	key := client.ObjectKeyFromObject(mr)

	if !controllerutil.ContainsFinalizer(mr, awsauthv1.MapRoleFinalizer) {
		logger.V(1).Info("MapRole is being deleted and has no finalizer, nothing to clean up",
			"mapRole", key)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultSkipped).Inc()
		return ctrl.Result{}, nil
	}

	outcome, err := r.mapping.Cleanup(ctx, desiredEntry(mr))
	r.recordOutcome(ctx, mr, metrics.OperationCleanup, outcome, err)
	if !outcome.CleanedUp() {
		r.patchStatus(ctx, mr.DeepCopy(), mr, outcome, err)
		return r.policy.Result(outcome, err)
	}

	controllerutil.RemoveFinalizer(mr, awsauthv1.MapRoleFinalizer)
	if err := r.client.Update(ctx, mr); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		logger.Error(err, "failed to remove finalizer",
			"mapRole", key)
		metrics.ReconcileErrors.WithLabelValues(metrics.ControllerMapRole, metrics.ErrorTypeAPI).Inc()
		return ctrl.Result{}, fmt.Errorf("remove finalizer from MapRole %s: %w", key, err)
	}
	r.recorder.Eventf(mr, nil, corev1.EventTypeNormal,
		awsauthv1.EventReasonFinalizerRemoved, awsauthv1.EventActionFinalizerRemove,
		"Removed finalizer %s", awsauthv1.MapRoleFinalizer)
	logger.V(1).Info("MapRole cleaned up",
		"mapRole", key,
		"outcome", outcome)

	return ctrl.Result{}, nil
}

// recordOutcome emits an event and counts the outcome. Lost races are
// expected under contention and are not reported as failures.
func (r *MapRoleReconciler) recordOutcome(
	ctx context.Context,
	mr *awsauthv1.MapRole,
	operation string,
	outcome Outcome,
	err error,
) {
	logger := log.FromContext(ctx)
	ref := r.mapping.Ref()
	action := awsauthv1.EventActionApply
	if operation == metrics.OperationCleanup {
		action = awsauthv1.EventActionCleanup
	}

	switch outcome {
	case OutcomeApplied:
		r.recorder.Eventf(mr, nil, corev1.EventTypeNormal, awsauthv1.EventReasonApplied, action,
			"Mapped role %s to user %s in %s", mr.Spec.RoleARN, mr.Spec.Username, ref)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultSuccess).Inc()
	case OutcomeAlreadyUpToDate:
		r.recorder.Eventf(mr, nil, corev1.EventTypeNormal, awsauthv1.EventReasonUpToDate, action,
			"Role %s is already mapped in %s", mr.Spec.RoleARN, ref)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultSuccess).Inc()
	case OutcomeRemoved:
		r.recorder.Eventf(mr, nil, corev1.EventTypeNormal, awsauthv1.EventReasonRemoved, action,
			"Removed role %s from %s", mr.Spec.RoleARN, ref)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultFinalized).Inc()
	case OutcomeNoOpAlreadyAbsent:
		r.recorder.Eventf(mr, nil, corev1.EventTypeNormal, awsauthv1.EventReasonAlreadyAbsent, action,
			"Role %s was not present in %s", mr.Spec.RoleARN, ref)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultFinalized).Inc()
	case OutcomeConflictRetry:
		logger.V(1).Info("lost race on shared record, retrying",
			"mapRole", client.ObjectKeyFromObject(mr),
			"operation", operation)
		r.recorder.Eventf(mr, nil, corev1.EventTypeNormal, awsauthv1.EventReasonConflict, action,
			"%s was modified concurrently, retrying", ref)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultRequeue).Inc()
		metrics.ReconcileErrors.WithLabelValues(metrics.ControllerMapRole, metrics.ErrorTypeConflict).Inc()
	case OutcomeTransientError:
		logger.Info("shared record temporarily unavailable, retrying",
			"mapRole", client.ObjectKeyFromObject(mr),
			"operation", operation,
			"error", err.Error())
		r.recorder.Eventf(mr, nil, corev1.EventTypeWarning, awsauthv1.EventReasonTransientError, action,
			"Temporary failure on %s: %v", ref, err)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultRequeue).Inc()
		metrics.ReconcileErrors.WithLabelValues(metrics.ControllerMapRole, metrics.ErrorTypeTransient).Inc()
	default:
		logger.Error(err, "reconciliation failed",
			"mapRole", client.ObjectKeyFromObject(mr),
			"operation", operation)
		r.recorder.Eventf(mr, nil, corev1.EventTypeWarning, awsauthv1.EventReasonFatalError, action,
			"Failed to %s role %s on %s: %v", operation, mr.Spec.RoleARN, ref, err)
		metrics.ReconcileTotal.WithLabelValues(metrics.ControllerMapRole, metrics.ResultError).Inc()
		metrics.ReconcileErrors.WithLabelValues(metrics.ControllerMapRole, metrics.ErrorTypeFatal).Inc()
	}
}

// patchStatus writes observedGeneration, lastOutcome and the kstatus
// conditions for outcome. Failures are logged only; the outcome already
// decides the requeue.
func (r *MapRoleReconciler) patchStatus(
	ctx context.Context,
	base, mr *awsauthv1.MapRole,
	outcome Outcome,
	err error,
) {
	logger := log.FromContext(ctx)
	ref := r.mapping.Ref()

	mr.Status.ObservedGeneration = mr.Generation
	mr.Status.LastOutcome = string(outcome)

	switch {
	case outcome == OutcomeApplied:
		conditions.MarkReady(mr, mr.Generation, awsauthv1.ReadyReasonApplied,
			awsauthv1.ReadyMessageApplied, mr.Spec.RoleARN, mr.Spec.Username, ref)
	case outcome == OutcomeAlreadyUpToDate:
		conditions.MarkReady(mr, mr.Generation, awsauthv1.ReadyReasonUpToDate,
			awsauthv1.ReadyMessageUpToDate, mr.Spec.RoleARN, mr.Spec.Username, ref)
	case outcome.Retryable() && mr.IsBeingDeleted():
		conditions.MarkReconciling(mr, mr.Generation, awsauthv1.ReadyReasonCleaningUp,
			awsauthv1.ReadyMessageCleaningUp, mr.Spec.RoleARN, ref)
	case outcome.Retryable():
		conditions.MarkReconciling(mr, mr.Generation, awsauthv1.ReconcilingReasonRetry,
			awsauthv1.ReconcilingMessageRetry, outcome, errorMessage(err))
	case outcome == OutcomeFatalError:
		conditions.MarkStalled(mr, mr.Generation, awsauthv1.StalledReasonFatal,
			awsauthv1.StalledMessageFatal, errorMessage(err))
	}

	if equality.Semantic.DeepEqual(base.Status, mr.Status) {
		return
	}
	if patchErr := r.client.Status().Patch(ctx, mr, client.MergeFrom(base)); patchErr != nil {
		if apierrors.IsNotFound(patchErr) {
			return
		}
		logger.Error(patchErr, "failed to patch MapRole status",
			"mapRole", client.ObjectKeyFromObject(mr))
		metrics.ReconcileErrors.WithLabelValues(metrics.ControllerMapRole, metrics.ErrorTypeAPI).Inc()
	}
}

// markRoleARNShared flags MapRoles whose role ARN is claimed by another
// live MapRole. Both write the same aws-auth entry and the last writer wins.
func (r *MapRoleReconciler) markRoleARNShared(ctx context.Context, mr *awsauthv1.MapRole) {
	logger := log.FromContext(ctx)

	others, err := r.mapRolesWithRoleARN(ctx, mr.Spec.RoleARN)
	if err != nil {
		logger.Error(err, "failed to look up MapRoles sharing the role ARN",
			"mapRole", client.ObjectKeyFromObject(mr))
		return
	}

	var names []string
	for i := range others {
		other := &others[i]
		if other.Namespace == mr.Namespace && other.Name == mr.Name {
			continue
		}
		if other.IsBeingDeleted() {
			continue
		}
		names = append(names, client.ObjectKeyFromObject(other).String())
	}
	if len(names) == 0 {
		conditions.Delete(mr, awsauthv1.RoleARNSharedCondition)
		return
	}

	slices.Sort(names)
	claimants := strings.Join(names, ", ")
	if conditions.GetMessage(mr, awsauthv1.RoleARNSharedCondition) != fmt.Sprintf(string(awsauthv1.RoleARNSharedMessage), claimants) {
		r.recorder.Eventf(mr, nil, corev1.EventTypeWarning,
			awsauthv1.EventReasonDuplicateRoleARN, awsauthv1.EventActionApply,
			"Role %s is also claimed by %s", mr.Spec.RoleARN, claimants)
	}
	conditions.MarkTrue(mr, awsauthv1.RoleARNSharedCondition, mr.Generation,
		awsauthv1.RoleARNSharedReason, awsauthv1.RoleARNSharedMessage, claimants)
}

// mapRolesSharingRoleARN enqueues the other MapRoles that claim the role
// ARN of a deleted MapRole, so that a surviving claimant restores the entry
// the deleted one removed.
func (r *MapRoleReconciler) mapRolesSharingRoleARN(ctx context.Context, obj client.Object) []reconcile.Request {
	mr, ok := obj.(*awsauthv1.MapRole)
	if !ok || mr.Spec.RoleARN == "" {
		return nil
	}

	others, err := r.mapRolesWithRoleARN(ctx, mr.Spec.RoleARN)
	if err != nil {
		log.FromContext(ctx).Error(err, "failed to list MapRoles sharing the role ARN",
			"rolearn", mr.Spec.RoleARN)
		return nil
	}

	requests := make([]reconcile.Request, 0, len(others))
	for _, other := range others {
		if other.Namespace == mr.Namespace && other.Name == mr.Name {
			continue
		}
		requests = append(requests, reconcile.Request{
			NamespacedName: types.NamespacedName{Namespace: other.Namespace, Name: other.Name},
		})
	}
	return requests
}

func (r *MapRoleReconciler) mapRolesWithRoleARN(ctx context.Context, roleARN string) ([]awsauthv1.MapRole, error) {
	list := &awsauthv1.MapRoleList{}
	if err := r.client.List(ctx, list, client.MatchingFields{indexer.MapRoleRoleARNField: roleARN}); err != nil {
		return nil, fmt.Errorf("list MapRoles with rolearn %s: %w", roleARN, err)
	}
	return list.Items, nil
}

// deletionStartedPredicate passes updates that set the deletion timestamp.
func deletionStartedPredicate() predicate.Funcs {
	return predicate.Funcs{
		UpdateFunc: func(e event.UpdateEvent) bool {
			return e.ObjectOld.GetDeletionTimestamp().IsZero() && !e.ObjectNew.GetDeletionTimestamp().IsZero()
		},
		CreateFunc:  func(event.CreateEvent) bool { return false },
		DeleteFunc:  func(event.DeleteEvent) bool { return false },
		GenericFunc: func(event.GenericEvent) bool { return false },
	}
}

// deletedPredicate passes delete events only.
func deletedPredicate() predicate.Funcs {
	return predicate.Funcs{
		CreateFunc:  func(event.CreateEvent) bool { return false },
		UpdateFunc:  func(event.UpdateEvent) bool { return false },
		DeleteFunc:  func(event.DeleteEvent) bool { return true },
		GenericFunc: func(event.GenericEvent) bool { return false },
	}
}

func desiredEntry(mr *awsauthv1.MapRole) mapping.Entry {
	return mapping.Entry{
		RoleARN:  mr.Spec.RoleARN,
		Username: mr.Spec.Username,
		Groups:   mr.Spec.Groups,
	}
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
