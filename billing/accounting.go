/*
accounting.go - Per-policy accounting engine

PURPOSE:
  Accounting is the entry point for every billing operation. All operations
  are scoped to one policy loaded by identifier: generate its installment
  invoices, compute its balance, change its billing schedule or status,
  record payments, and run the non-payment cancellation procedure.

CONTROL FLOW:
  Callers invoke EnsureInvoices before the first balance or payment
  operation on a policy. Everything else reads and writes through the
  Store, recomputing the balance as needed. Nothing is cached between
  operations; each one reloads what it needs.

SEE ALSO:
  - schedule.go: Invoice generation and schedule transitions
  - balance.go:  Balance computation
  - status.go:   Status lifecycle and cancellation
  - payment.go:  Payment recording
*/
package billing

import (
	"context"

	"github.com/google/uuid"
)

// Accounting executes billing operations against one policy at a time,
// persisting through a transactional store.
type Accounting struct {
	store TxStore
}

func NewAccounting(store TxStore) *Accounting {
	return &Accounting{store: store}
}

// Store exposes the underlying store for read-only collaborators
// (serialization, seeding).
func (a *Accounting) Store() TxStore { return a.store }

// EnsureInvoices generates the policy's installment set if the policy has
// never had any invoices. It is idempotent: retired invoices count as
// existing, so a policy whose invoices were all retired by a schedule
// change is never regenerated here.
func (a *Accounting) EnsureInvoices(ctx context.Context, policyID PolicyID) error {
	policy, err := a.store.GetPolicy(ctx, policyID)
	if err != nil {
		return err
	}

	existing, err := a.store.InvoicesByPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	invoices, err := GenerateInvoices(policy)
	if err != nil {
		return err
	}
	return a.store.CreateInvoices(ctx, invoices)
}

func newInvoiceID() InvoiceID { return InvoiceID(uuid.NewString()) }
func newPaymentID() PaymentID { return PaymentID(uuid.NewString()) }
