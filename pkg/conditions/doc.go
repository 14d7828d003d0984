// Package conditions provides typed helpers for reading and writing
// metav1.Condition slices on custom resource status, including the kstatus
// Ready/Reconciling/Stalled conventions.
package conditions
