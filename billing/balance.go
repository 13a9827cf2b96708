/*
balance.go - Account balance as of a cursor date

PURPOSE:
  Answers "how much does this policy owe?" at any calendar date. Balance is
  always computed by replaying invoices and payments - there is no stored
  balance field that can drift out of sync.

DEFINITION:
  balance(asOf) =   sum of amount due over live invoices billed on/before asOf
                  - sum of amount paid over payments made on/before asOf

  Retired invoices are excluded, which is what keeps balances at past dates
  reproducible after a schedule change. Positive means amount owed, zero
  means paid through the cursor date, negative means overpayment.
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Balance computes the policy's outstanding balance as of the cursor date
// (today when asOf is zero). Pure read: no side effects.
func (a *Accounting) Balance(ctx context.Context, policyID PolicyID, asOf Date) (decimal.Decimal, error) {
	cursor := asOf.OrToday()

	if _, err := a.store.GetPolicy(ctx, policyID); err != nil {
		return decimal.Zero, err
	}

	invoices, err := a.store.InvoicesByPolicy(ctx, policyID)
	if err != nil {
		return decimal.Zero, err
	}

	due := decimal.Zero
	for _, inv := range LiveInvoices(invoices) {
		if inv.BillDate.BeforeOrEqual(cursor) {
			due = due.Add(inv.AmountDue)
		}
	}

	payments, err := a.store.PaymentsByPolicy(ctx, policyID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, p := range payments {
		if p.TransactionDate.BeforeOrEqual(cursor) {
			due = due.Sub(p.Amount)
		}
	}

	return due, nil
}
