/*
status.go - Policy status lifecycle

PURPOSE:
  Validates and applies status changes between Active, Canceled, and
  Expired. This is a flat three-state machine: any status may move to any
  other, subject only to "the value exists" and "the value differs". No
  stricter transition graph is enforced; keeping it flat matches how the
  book of business is actually administered.

VALIDATION ORDER:
  1. missing status
  2. unknown status
  3. unchanged status
  Then, for the change itself: an explicitly future cursor date is rejected.
*/
package billing

import "context"

// ValidateStatus checks whether the policy can move to the given status.
func (a *Accounting) ValidateStatus(ctx context.Context, policyID PolicyID, status PolicyStatus) (bool, string) {
	policy, err := a.store.GetPolicy(ctx, policyID)
	if err != nil {
		return false, err.Error()
	}
	if vf := validateStatus(policy, status); vf != nil {
		return false, vf.Message
	}
	return true, ""
}

func validateStatus(policy Policy, status PolicyStatus) *ValidationFailure {
	if status == "" {
		return failf(CodeMissingStatus, "You need to specify a status.")
	}
	if !status.Valid() {
		return failf(CodeUnknownStatus,
			`Invalid status. Choices are "Active", "Canceled" and "Expired".`)
	}
	if status == policy.Status {
		return failf(CodeUnchangedStatus, "Policy already has %s status.", status)
	}
	return nil
}

// ChangeStatus applies a status transition at the cursor date (today when
// asOf is zero). An explicitly future date is rejected. On success the
// status, status-change date, and description commit together; on any
// failure the policy is left untouched.
func (a *Accounting) ChangeStatus(ctx context.Context, policyID PolicyID, asOf Date, status PolicyStatus, description string) (bool, string) {
	policy, err := a.store.GetPolicy(ctx, policyID)
	if err != nil {
		return false, err.Error()
	}
	if vf := validateStatus(policy, status); vf != nil {
		return false, vf.Message
	}

	cursor := asOf.OrToday()
	if cursor.After(Today()) {
		return false, failf(CodeFutureDate, "You cannot change a policy's status in the future!").Message
	}

	err = a.store.WithTx(ctx, func(s Store) error {
		policy.Status = status
		policy.StatusChangeDate = cursor
		policy.StatusChangeNote = description
		return s.UpdatePolicy(ctx, policy)
	})
	if err != nil {
		return false, err.Error()
	}

	return true, "Policy status changed."
}
