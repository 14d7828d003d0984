// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package conditions

// kstatus condition types as defined by:
// https://github.com/kubernetes-sigs/cli-utils/blob/master/pkg/kstatus/README.md
const (
	// ReadyConditionType is the kstatus Ready condition type.
	ReadyConditionType ConditionType = "Ready"
	// ReconcilingConditionType is the kstatus Reconciling condition type (abnormal-true).
	ReconcilingConditionType ConditionType = "Reconciling"
	// StalledConditionType is the kstatus Stalled condition type (abnormal-true).
	StalledConditionType ConditionType = "Stalled"
)

// MarkReady sets Ready to True and removes Reconciling/Stalled.
func MarkReady(to Setter, gen int64, reason ConditionReason, message ConditionMessage, args ...any) {
	MarkTrue(to, ReadyConditionType, gen, reason, message, args...)
	Delete(to, ReconcilingConditionType)
	Delete(to, StalledConditionType)
}

// MarkReconciling sets Reconciling to True, Ready to False and clears Stalled.
func MarkReconciling(to Setter, gen int64, reason ConditionReason, message ConditionMessage, args ...any) {
	MarkTrue(to, ReconcilingConditionType, gen, reason, message, args...)
	MarkFalse(to, ReadyConditionType, gen, reason, message, args...)
	Delete(to, StalledConditionType)
}

// MarkStalled sets Stalled to True, Ready to False and clears Reconciling.
func MarkStalled(to Setter, gen int64, reason ConditionReason, message ConditionMessage, args ...any) {
	MarkTrue(to, StalledConditionType, gen, reason, message, args...)
	MarkFalse(to, ReadyConditionType, gen, reason, message, args...)
	Delete(to, ReconcilingConditionType)
}

// IsReady returns true if the Ready condition is True.
func IsReady(from Getter) bool {
	return IsTrue(from, ReadyConditionType)
}

// IsReconciling returns true if the Reconciling condition is True.
func IsReconciling(from Getter) bool {
	return IsTrue(from, ReconcilingConditionType)
}

// IsStalled returns true if the Stalled condition is True.
func IsStalled(from Getter) bool {
	return IsTrue(from, StalledConditionType)
}
