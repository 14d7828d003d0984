// Package sharedrecord reads and conditionally patches the aws-auth
// ConfigMap that many MapRole objects write to.
//
// Store errors are classified into ErrConflict, ErrTransient and ErrFatal
// so callers can decide between an immediate retry, a delayed retry and
// backing off.
package sharedrecord
