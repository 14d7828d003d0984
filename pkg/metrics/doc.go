// Package metrics defines and registers Prometheus metrics for the
// aws-auth-operator, covering reconciliation counts and durations, the
// outcome of every apply and cleanup pass, and the state of the shared
// aws-auth record.
package metrics
