// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package v1

// Event reasons emitted by the MapRole controller. Every reconcile outcome,
// including no-ops, is published for audit.
const (
	EventReasonFinalizer        = "Finalizer"
	EventReasonFinalizerRemoved = "FinalizerRemoved"
	EventReasonApplied          = "Applied"
	EventReasonUpToDate         = "UpToDate"
	EventReasonRemoved          = "Removed"
	EventReasonAlreadyAbsent    = "AlreadyAbsent"
	EventReasonConflict         = "Conflict"
	EventReasonTransientError   = "TransientError"
	EventReasonFatalError       = "FatalError"
	EventReasonDuplicateRoleARN = "DuplicateRoleARN"
)

// Event actions, as required by the events.k8s.io/v1 recorder.
const (
	EventActionFinalizerAdd    = "AddFinalizer"
	EventActionFinalizerRemove = "RemoveFinalizer"
	EventActionApply           = "Apply"
	EventActionCleanup         = "Cleanup"
)
