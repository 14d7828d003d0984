package conditions

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Getter is an object exposing its status conditions.
type Getter interface {
	client.Object
	GetConditions() []metav1.Condition
}

// Get returns a copy of the condition with the given type, or nil.
func Get(from Getter, t ConditionType) *metav1.Condition {
	c := meta.FindStatusCondition(from.GetConditions(), string(t))
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Has reports whether a condition of the given type is present.
func Has(from Getter, t ConditionType) bool {
	return Get(from, t) != nil
}

// IsTrue reports whether the condition is present with status True.
func IsTrue(from Getter, t ConditionType) bool {
	return meta.IsStatusConditionTrue(from.GetConditions(), string(t))
}

// IsFalse reports whether the condition is present with status False.
func IsFalse(from Getter, t ConditionType) bool {
	return meta.IsStatusConditionFalse(from.GetConditions(), string(t))
}

// GetReason returns the reason of the condition, or "" if absent.
func GetReason(from Getter, t ConditionType) string {
	if c := Get(from, t); c != nil {
		return c.Reason
	}
	return ""
}

// GetMessage returns the message of the condition, or "" if absent.
func GetMessage(from Getter, t ConditionType) string {
	if c := Get(from, t); c != nil {
		return c.Message
	}
	return ""
}
