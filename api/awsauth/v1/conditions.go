// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package v1

import "github.com/telekom/aws-auth-operator/pkg/conditions"

// kstatus-compliant condition types.
// See: https://github.com/kubernetes-sigs/cli-utils/blob/master/pkg/kstatus/README.md
const (
	// ReadyCondition is True when the mapping entry in the aws-auth ConfigMap
	// matches the MapRole spec.
	ReadyCondition conditions.ConditionType = "Ready"

	// ReconcilingCondition is present and True while a retry is pending.
	ReconcilingCondition conditions.ConditionType = "Reconciling"

	// StalledCondition is present and True when reconciliation hit an error
	// that needs operator intervention.
	StalledCondition conditions.ConditionType = "Stalled"
)

// Ready condition reasons.
const (
	// ReadyReasonApplied indicates the entry was written to the aws-auth ConfigMap.
	ReadyReasonApplied conditions.ConditionReason = "Applied"
	// ReadyReasonUpToDate indicates the entry already matched the spec.
	ReadyReasonUpToDate conditions.ConditionReason = "UpToDate"
	// ReadyReasonCleaningUp indicates the entry is being removed.
	ReadyReasonCleaningUp conditions.ConditionReason = "CleaningUp"
)

// Ready condition messages.
const (
	// ReadyMessageApplied is the message format after a successful write.
	ReadyMessageApplied conditions.ConditionMessage = "Role %s mapped to user %s in %s"
	// ReadyMessageUpToDate is the message format when nothing had to change.
	ReadyMessageUpToDate conditions.ConditionMessage = "Role %s already mapped to user %s in %s"
	// ReadyMessageCleaningUp is the message format while the entry is removed.
	ReadyMessageCleaningUp conditions.ConditionMessage = "Removing role %s from %s"
)

// Reconciling condition reasons and messages.
const (
	// ReconcilingReasonRetry indicates a retry has been scheduled.
	ReconcilingReasonRetry conditions.ConditionReason = "Retrying"
	// ReconcilingMessageRetry is the message format for a scheduled retry.
	ReconcilingMessageRetry conditions.ConditionMessage = "Retrying after %s: %s"
)

// Stalled condition reasons and messages.
const (
	// StalledReasonFatal indicates an error that is not retried quickly.
	StalledReasonFatal conditions.ConditionReason = "FatalError"
	// StalledMessageFatal is the message format for a fatal error.
	StalledMessageFatal conditions.ConditionMessage = "Reconciliation failed: %s"
)

// Finalizer-related condition constants.
const (
	// FinalizerCondition indicates whether the finalizer has been set.
	FinalizerCondition conditions.ConditionType = "Finalizer"
	// FinalizerReason is the reason for finalizer condition.
	FinalizerReason conditions.ConditionReason = "OrphanPrevention"
	// FinalizerMessage is the message for finalizer condition.
	FinalizerMessage conditions.ConditionMessage = "Set finalizer to prevent orphaned aws-auth entries"
)

// RoleARN sharing condition constants.
const (
	// RoleARNSharedCondition is True when another MapRole claims the same role ARN.
	// Only one entry per ARN exists in the aws-auth ConfigMap, so the last
	// writer wins.
	RoleARNSharedCondition conditions.ConditionType = "RoleARNShared"
	// RoleARNSharedReason is the reason for the shared ARN condition.
	RoleARNSharedReason conditions.ConditionReason = "DuplicateRoleARN"
	// RoleARNSharedMessage lists the other MapRoles claiming the ARN.
	RoleARNSharedMessage conditions.ConditionMessage = "Role ARN is also claimed by %s"
)
