/*
cancellation.go - Non-payment cancellation decision procedure

PURPOSE:
  Decides whether a policy should be canceled for non-payment, and flags
  policies that are overdue but not yet past the hard cancel boundary.

THE GRACE WINDOW:
  Every invoice has a due date (bill + 1 month) and a cancel date (due +
  14 days). Between the two, the policy is "cancellation pending": overdue,
  still recoverable. At or past the cancel date, an unpaid invoice makes
  the policy cancelable.

FIRST QUALIFYING BREACH WINS:
  CancelPolicy scans cancel-eligible invoices oldest first and cancels on
  the first one whose balance at its own cancel date was still positive.
  A policy is canceled for its earliest unpaid obligation past the grace
  period, not the most recent one.
*/
package billing

import "context"

// NonPayCancellationPending reports whether the policy is overdue without
// having reached a cancel boundary: balance as of the cursor date is
// positive and some live invoice has due date < cursor < cancel date.
func (a *Accounting) NonPayCancellationPending(ctx context.Context, policyID PolicyID, asOf Date) (bool, error) {
	cursor := asOf.OrToday()

	balance, err := a.Balance(ctx, policyID, cursor)
	if err != nil {
		return false, err
	}
	if !balance.IsPositive() {
		return false, nil
	}

	invoices, err := a.store.InvoicesByPolicy(ctx, policyID)
	if err != nil {
		return false, err
	}
	for _, inv := range LiveInvoices(invoices) {
		if inv.DueDate.Before(cursor) && cursor.Before(inv.CancelDate) {
			return true, nil
		}
	}
	return false, nil
}

// CancelPolicy cancels the policy for non-payment if conditions are met.
// Live invoices with cancel date on/before the cursor date are scanned in
// bill-date order; the first one left unpaid at its own cancel date
// triggers the status change to Canceled at the cursor date. When every
// cancel-eligible invoice was paid in time (or none are eligible yet) the
// policy is left untouched and the conditions-not-met message is returned.
func (a *Accounting) CancelPolicy(ctx context.Context, policyID PolicyID, asOf Date, description string) (bool, string) {
	if _, err := a.store.GetPolicy(ctx, policyID); err != nil {
		return false, err.Error()
	}

	cursor := asOf.OrToday()
	if cursor.After(Today()) {
		return false, failf(CodeFutureDate, "You cannot cancel a policy in the future!").Message
	}

	invoices, err := a.store.InvoicesByPolicy(ctx, policyID)
	if err != nil {
		return false, err.Error()
	}

	for _, inv := range LiveInvoices(invoices) {
		if inv.CancelDate.After(cursor) {
			continue
		}
		balance, err := a.Balance(ctx, policyID, inv.CancelDate)
		if err != nil {
			return false, err.Error()
		}
		if balance.IsPositive() {
			ok, msg := a.ChangeStatus(ctx, policyID, cursor, StatusCanceled, description)
			if !ok {
				return false, msg
			}
			return true, "Policy canceled."
		}
	}

	return false, failf(CodeNotCancelable, "Policy does not meet cancellation conditions.").Message
}
