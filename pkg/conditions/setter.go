package conditions

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Setter is an object whose status conditions can be replaced.
type Setter interface {
	Getter
	SetConditions([]metav1.Condition)
}

// Set sets or updates a condition on the object. LastTransitionTime only
// moves when the status changes.
func Set(to Setter, condition metav1.Condition) {
	if to == nil {
		return
	}
	conds := to.GetConditions()
	meta.SetStatusCondition(&conds, condition)
	to.SetConditions(conds)
}

// MarkTrue sets a condition with status True on the object.
func MarkTrue(to Setter, t ConditionType, gen int64, reason ConditionReason, message ConditionMessage, args ...any) {
	Set(to, newCondition(t, metav1.ConditionTrue, gen, reason, message, args...))
}

// MarkFalse sets a condition with status False on the object.
func MarkFalse(to Setter, t ConditionType, gen int64, reason ConditionReason, message ConditionMessage, args ...any) {
	Set(to, newCondition(t, metav1.ConditionFalse, gen, reason, message, args...))
}

// MarkUnknown sets a condition with status Unknown on the object.
func MarkUnknown(to Setter, t ConditionType, gen int64, reason ConditionReason, message ConditionMessage, args ...any) {
	Set(to, newCondition(t, metav1.ConditionUnknown, gen, reason, message, args...))
}

// Delete removes a condition with the given type from the object.
func Delete(to Setter, t ConditionType) {
	if to == nil {
		return
	}
	conds := to.GetConditions()
	if meta.RemoveStatusCondition(&conds, string(t)) {
		to.SetConditions(conds)
	}
}

func newCondition(
	t ConditionType, status metav1.ConditionStatus, gen int64, reason ConditionReason, message ConditionMessage, args ...any,
) metav1.Condition {
	msg := string(message)
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return metav1.Condition{
		Type:               string(t),
		Status:             status,
		ObservedGeneration: gen,
		Reason:             string(reason),
		Message:            msg,
	}
}
