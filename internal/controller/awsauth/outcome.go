// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package awsauth

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// Outcome is the result of one apply or cleanup pass against aws-auth.
type Outcome string

const (
	OutcomeApplied           Outcome = "Applied"
	OutcomeAlreadyUpToDate   Outcome = "AlreadyUpToDate"
	OutcomeRemoved           Outcome = "Removed"
	OutcomeNoOpAlreadyAbsent Outcome = "NoOpAlreadyAbsent"
	OutcomeConflictRetry     Outcome = "ConflictRetry"
	OutcomeTransientError    Outcome = "TransientError"
	OutcomeFatalError        Outcome = "FatalError"
)

// Succeeded reports whether the pass left aws-auth in the desired state.
func (o Outcome) Succeeded() bool {
	switch o {
	case OutcomeApplied, OutcomeAlreadyUpToDate, OutcomeRemoved, OutcomeNoOpAlreadyAbsent:
		return true
	default:
		return false
	}
}

// CleanedUp reports whether the entry is known to be gone, which is the
// only state in which the finalizer may be removed.
func (o Outcome) CleanedUp() bool {
	return o == OutcomeRemoved || o == OutcomeNoOpAlreadyAbsent
}

// Retryable reports whether the pass should simply be repeated.
func (o Outcome) Retryable() bool {
	return o == OutcomeConflictRetry || o == OutcomeTransientError
}

const (
	// DefaultHeartbeat is how often a materialized mapping is rechecked for drift.
	DefaultHeartbeat = 5 * time.Minute
	// DefaultConflictDelay is the base delay after losing a race on aws-auth.
	DefaultConflictDelay = time.Second
	// DefaultTransientDelay is the delay after the API server was unavailable.
	DefaultTransientDelay = 5 * time.Second

	// conflictJitter spreads retries of writers that lost the same race.
	conflictJitter = 1.0

	fatalBaseDelay = 5 * time.Second
	fatalMaxDelay  = 15 * time.Minute
)

// RequeuePolicy decides when a MapRole is reconciled next.
type RequeuePolicy struct {
	// Heartbeat follows a pass that changed aws-auth.
	Heartbeat time.Duration
	// NoOpHeartbeat follows a pass that found aws-auth already correct.
	NoOpHeartbeat time.Duration
	// ConflictDelay follows a lost compare-and-swap. It is jittered up to 2x.
	ConflictDelay time.Duration
	// TransientDelay follows an unavailable or throttling API server.
	TransientDelay time.Duration
}

// DefaultRequeuePolicy returns the default requeue intervals.
func DefaultRequeuePolicy() RequeuePolicy {
	return RequeuePolicy{
		Heartbeat:      DefaultHeartbeat,
		NoOpHeartbeat:  DefaultHeartbeat,
		ConflictDelay:  DefaultConflictDelay,
		TransientDelay: DefaultTransientDelay,
	}
}

// Validate rejects non-positive intervals.
func (p RequeuePolicy) Validate() error {
	for name, d := range map[string]time.Duration{
		"heartbeat":       p.Heartbeat,
		"no-op heartbeat": p.NoOpHeartbeat,
		"conflict delay":  p.ConflictDelay,
		"transient delay": p.TransientDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}

// Result maps an outcome to a controller-runtime result. Only FatalError
// yields an error, which hands the retry to the controller's rate limiter
// so that the delay grows with every failure.
func (p RequeuePolicy) Result(outcome Outcome, err error) (ctrl.Result, error) {
	switch outcome {
	case OutcomeApplied, OutcomeRemoved:
		return ctrl.Result{RequeueAfter: p.Heartbeat}, nil
	case OutcomeAlreadyUpToDate, OutcomeNoOpAlreadyAbsent:
		return ctrl.Result{RequeueAfter: p.NoOpHeartbeat}, nil
	case OutcomeConflictRetry:
		return ctrl.Result{RequeueAfter: wait.Jitter(p.ConflictDelay, conflictJitter)}, nil
	case OutcomeTransientError:
		return ctrl.Result{RequeueAfter: p.TransientDelay}, nil
	default:
		if err == nil {
			err = fmt.Errorf("reconciliation ended with outcome %s", outcome)
		}
		return ctrl.Result{}, err
	}
}

// NewRateLimiter returns the rate limiter for the MapRole controller: per
// item exponential backoff for repeated fatal errors, capped by an overall
// token bucket.
func NewRateLimiter() workqueue.TypedRateLimiter[reconcile.Request] {
	return workqueue.NewTypedMaxOfRateLimiter(
		workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](fatalBaseDelay, fatalMaxDelay),
		&workqueue.TypedBucketRateLimiter[reconcile.Request]{Limiter: rate.NewLimiter(rate.Limit(10), 100)},
	)
}
