/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Lookup errors - Referenced entity does not exist. These are sharp
     failures: callers get an error value, not a soft message.
  2. Validation failures - Business rule violations (bad schedule, bad
     status, future cursor date). These are reported to callers as a
     (ok, message) result pair; the typed failure carries a stable code.
  3. Generation errors - Invoice generation attempted without a usable
     billing schedule.

USAGE:
  ok, msg := acct.ChangeBillingSchedule(ctx, policyID, schedule)
  // vs.
  if errors.Is(err, billing.ErrPolicyNotFound) { ... }
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPolicyNotFound is returned when a referenced policy doesn't exist.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrContactNotFound is returned when a referenced contact doesn't exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrInvalidScheduleKind is returned when invoice generation runs against
	// a policy whose billing schedule is unset or unrecognized.
	ErrInvalidScheduleKind = errors.New("invalid billing schedule kind")
)

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrContactNotFound) ||
		errors.Is(err, ErrInvoiceNotFound)
}

// =============================================================================
// VALIDATION FAILURES - Soft failures surfaced as (ok, message) pairs
// =============================================================================

// FailureCode classifies why a validation rejected an operation.
type FailureCode string

const (
	CodeMissingSchedule   FailureCode = "missing_schedule"
	CodeUnchangedSchedule FailureCode = "unchanged_schedule"
	CodeUnknownSchedule   FailureCode = "unknown_schedule"
	CodeMissingStatus     FailureCode = "missing_status"
	CodeUnknownStatus     FailureCode = "unknown_status"
	CodeUnchangedStatus   FailureCode = "unchanged_status"
	CodeFutureDate        FailureCode = "future_date"
	CodeNotCancelable     FailureCode = "not_cancelable"
)

// ValidationFailure is a business-rule rejection. It is an error so it can
// travel through error returns, but callers are expected to unwrap it into
// a result pair rather than treat it as a fault.
type ValidationFailure struct {
	Code    FailureCode
	Message string
}

func (f *ValidationFailure) Error() string { return f.Message }

func failf(code FailureCode, format string, args ...any) *ValidationFailure {
	return &ValidationFailure{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsFailure extracts a ValidationFailure from an error chain.
func AsFailure(err error) (*ValidationFailure, bool) {
	var vf *ValidationFailure
	if errors.As(err, &vf) {
		return vf, true
	}
	return nil, false
}
