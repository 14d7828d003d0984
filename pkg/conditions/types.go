package conditions

// ConditionType is the type of a status condition.
type ConditionType string

// ConditionReason is a CamelCase reason for a condition's last transition.
type ConditionReason string

// ConditionMessage is a printf-style message template for a condition.
type ConditionMessage string
