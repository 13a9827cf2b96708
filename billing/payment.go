/*
payment.go - Payment recording

PURPOSE:
  Appends a payment against a policy. Payments are deliberately permissive:
  they are not matched to invoices, and no validation runs against the
  outstanding balance. Overpayments and unrelated amounts are accepted
  as-is; stricter matching would be a product extension, not a fix.
*/
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// MakePayment creates and persists one payment against the policy and
// returns the created record. The contact defaults to the policy's named
// insured and the transaction date defaults to today.
func (a *Accounting) MakePayment(ctx context.Context, policyID PolicyID, contactID ContactID, asOf Date, amount decimal.Decimal) (Payment, error) {
	policy, err := a.store.GetPolicy(ctx, policyID)
	if err != nil {
		return Payment{}, err
	}

	if contactID == "" {
		contactID = policy.NamedInsured
	}

	payment := Payment{
		ID:              newPaymentID(),
		PolicyID:        policyID,
		ContactID:       contactID,
		Amount:          amount,
		TransactionDate: asOf.OrToday(),
	}
	if err := a.store.CreatePayment(ctx, payment); err != nil {
		return Payment{}, err
	}
	return payment, nil
}
