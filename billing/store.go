/*
store.go - Persistence interfaces for the billing entities

PURPOSE:
  Defines the interface between the accounting logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Per-entity reads and writes (policies, contacts, invoices, payments)
  TxStore: Transactional boundary for atomic multi-row mutations

MUTATION CONTRACT:
  - Invoices: created in batches, and later only ever flipped to retired.
    There is NO delete and NO amount/date update. Ever.
  - Payments: append-only. No update, no delete.
  - Policies: schedule and status fields are updated in place; identity
    fields (number, premium, effective date, contacts) never change here.

ATOMICITY:
  Compound mutations - generating an installment set, retiring + regenerating
  on a schedule change, a status transition - run inside WithTx. Either every
  constituent write lands or none do; a partially generated installment set
  must never be observable.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - billing/store/memory.go: In-memory for testing

SEE ALSO:
  - accounting.go: The engine operating through these interfaces
*/
package billing

import "context"

// =============================================================================
// STORE - Durable records for the four billing entities
// =============================================================================

type Store interface {
	// Policies.
	CreatePolicy(ctx context.Context, p Policy) error
	// GetPolicy returns ErrPolicyNotFound for an unknown id.
	GetPolicy(ctx context.Context, id PolicyID) (Policy, error)
	ListPolicies(ctx context.Context) ([]Policy, error)
	// UpdatePolicy persists schedule/status mutations on an existing policy.
	UpdatePolicy(ctx context.Context, p Policy) error

	// Contacts.
	CreateContact(ctx context.Context, c Contact) error
	// GetContact returns ErrContactNotFound for an unknown id.
	GetContact(ctx context.Context, id ContactID) (Contact, error)
	ListContacts(ctx context.Context) ([]Contact, error)

	// Invoices.
	// CreateInvoices persists a batch atomically: all rows or none.
	CreateInvoices(ctx context.Context, invs []Invoice) error
	// InvoicesByPolicy returns every invoice of the policy, retired
	// included, ordered by bill date ascending.
	InvoicesByPolicy(ctx context.Context, id PolicyID) ([]Invoice, error)
	// RetireInvoice flips the retired flag. The only permitted invoice
	// mutation.
	RetireInvoice(ctx context.Context, id InvoiceID) error

	// Payments.
	CreatePayment(ctx context.Context, p Payment) error
	// PaymentsByPolicy returns payments ordered by transaction date ascending.
	PaymentsByPolicy(ctx context.Context, id PolicyID) ([]Payment, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic boundary for compound mutations
// =============================================================================

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back, otherwise committed.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// LiveInvoices filters out retired invoices. Order is preserved.
func LiveInvoices(invs []Invoice) []Invoice {
	var live []Invoice
	for _, inv := range invs {
		if !inv.Retired {
			live = append(live, inv)
		}
	}
	return live
}
