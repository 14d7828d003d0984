// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package sharedrecord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"
)

var (
	// ErrConflict means the record changed between read and write.
	ErrConflict = errors.New("shared record changed concurrently")
	// ErrTransient means the store could not be reached or was overloaded.
	ErrTransient = errors.New("shared record temporarily unavailable")
	// ErrFatal means retrying right away will not help.
	ErrFatal = errors.New("shared record operation failed")
	// ErrRecordNotFound means the record does not exist. It is always
	// reported together with ErrFatal.
	ErrRecordNotFound = errors.New("shared record not found")
)

// testFailedMessage is part of the message of a failed JSON patch test
// operation, both locally and as relayed by the API server in a 422.
const testFailedMessage = "testing value"

// Error is a classified store error.
type Error struct {
	// Op is the store operation that failed, "get" or "patch".
	Op string
	// Ref identifies the record, e.g. "kube-system/aws-auth".
	Ref string
	// Kind is one of ErrConflict, ErrTransient or ErrFatal.
	Kind error
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Ref, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Classify wraps err into an *Error whose Kind reflects how the caller
// should retry. A nil err stays nil.
func Classify(op, ref string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if apierrors.IsNotFound(err) {
		return &Error{Op: op, Ref: ref, Kind: ErrFatal, Err: fmt.Errorf("%w: %w", ErrRecordNotFound, err)}
	}
	return &Error{Op: op, Ref: ref, Kind: kindOf(op, err), Err: err}
}

// IsConflict reports whether err is a lost optimistic concurrency race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsTransient reports whether err is worth retrying after a short delay.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func kindOf(op string, err error) error {
	switch {
	case isTestFailure(err), apierrors.IsConflict(err):
		return ErrConflict
	case op == "patch" && isPatchApplyFailure(err):
		return ErrConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTransient
	case apierrors.IsTooManyRequests(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err),
		apierrors.IsUnexpectedServerError(err):
		return ErrTransient
	case isServerSideFailure(err), isNetworkFailure(err):
		return ErrTransient
	default:
		return ErrFatal
	}
}

func isTestFailure(err error) bool {
	return errors.Is(err, jsonpatch.ErrTestFailed) || strings.Contains(err.Error(), testFailedMessage)
}

// isPatchApplyFailure matches the 422 the API server answers with when a
// JSON patch does not apply to the current object, e.g. because a path
// tested or replaced no longer exists. Validation errors carry field causes.
func isPatchApplyFailure(err error) bool {
	if !apierrors.IsInvalid(err) {
		return false
	}
	var status apierrors.APIStatus
	if !errors.As(err, &status) {
		return false
	}
	details := status.Status().Details
	return details == nil || len(details.Causes) == 0
}

func isServerSideFailure(err error) bool {
	var status apierrors.APIStatus
	if !errors.As(err, &status) {
		return false
	}
	code := status.Status().Code
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func isNetworkFailure(err error) bool {
	if utilnet.IsConnectionRefused(err) || utilnet.IsConnectionReset(err) || utilnet.IsProbableEOF(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
