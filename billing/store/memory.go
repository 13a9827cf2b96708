// Package store provides billing.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/policy-billing/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	policies map[billing.PolicyID]billing.Policy
	contacts map[billing.ContactID]billing.Contact
	invoices map[billing.PolicyID][]billing.Invoice
	payments map[billing.PolicyID][]billing.Payment
}

func NewMemory() *Memory {
	return &Memory{
		policies: make(map[billing.PolicyID]billing.Policy),
		contacts: make(map[billing.ContactID]billing.Contact),
		invoices: make(map[billing.PolicyID][]billing.Invoice),
		payments: make(map[billing.PolicyID][]billing.Payment),
	}
}

// =============================================================================
// POLICIES
// =============================================================================

func (m *Memory) CreatePolicy(_ context.Context, p billing.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = p
	return nil
}

func (m *Memory) GetPolicy(_ context.Context, id billing.PolicyID) (billing.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return billing.Policy{}, billing.ErrPolicyNotFound
	}
	return p, nil
}

func (m *Memory) ListPolicies(_ context.Context) ([]billing.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.Policy, 0, len(m.policies))
	for _, p := range m.policies {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (m *Memory) UpdatePolicy(_ context.Context, p billing.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatePolicyLocked(p)
}

func (m *Memory) updatePolicyLocked(p billing.Policy) error {
	if _, ok := m.policies[p.ID]; !ok {
		return billing.ErrPolicyNotFound
	}
	m.policies[p.ID] = p
	return nil
}

// =============================================================================
// CONTACTS
// =============================================================================

func (m *Memory) CreateContact(_ context.Context, c billing.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.ID] = c
	return nil
}

func (m *Memory) GetContact(_ context.Context, id billing.ContactID) (billing.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contacts[id]
	if !ok {
		return billing.Contact{}, billing.ErrContactNotFound
	}
	return c, nil
}

func (m *Memory) ListContacts(_ context.Context) ([]billing.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// =============================================================================
// INVOICES
// =============================================================================

func (m *Memory) CreateInvoices(_ context.Context, invs []billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createInvoicesLocked(invs)
	return nil
}

func (m *Memory) createInvoicesLocked(invs []billing.Invoice) {
	for _, inv := range invs {
		list := m.invoices[inv.PolicyID]

		// Insert in bill-date order so reads never have to sort.
		i := sort.Search(len(list), func(i int) bool {
			return list[i].BillDate.After(inv.BillDate)
		})
		list = append(list, billing.Invoice{})
		copy(list[i+1:], list[i:])
		list[i] = inv
		m.invoices[inv.PolicyID] = list
	}
}

func (m *Memory) InvoicesByPolicy(_ context.Context, id billing.PolicyID) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.Invoice, len(m.invoices[id]))
	copy(result, m.invoices[id])
	return result, nil
}

func (m *Memory) RetireInvoice(_ context.Context, id billing.InvoiceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retireInvoiceLocked(id)
}

func (m *Memory) retireInvoiceLocked(id billing.InvoiceID) error {
	for policyID, list := range m.invoices {
		for i := range list {
			if list[i].ID == id {
				list[i].Retired = true
				m.invoices[policyID] = list
				return nil
			}
		}
	}
	return billing.ErrInvoiceNotFound
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createPaymentLocked(p)
	return nil
}

func (m *Memory) createPaymentLocked(p billing.Payment) {
	list := m.payments[p.PolicyID]
	i := sort.Search(len(list), func(i int) bool {
		return list[i].TransactionDate.After(p.TransactionDate)
	})
	list = append(list, billing.Payment{})
	copy(list[i+1:], list[i:])
	list[i] = p
	m.payments[p.PolicyID] = list
}

func (m *Memory) PaymentsByPolicy(_ context.Context, id billing.PolicyID) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.Payment, len(m.payments[id]))
	copy(result, m.payments[id])
	return result, nil
}

// Reset wipes all data. Dev/demo use only; not part of billing.Store.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies = make(map[billing.PolicyID]billing.Policy)
	m.contacts = make(map[billing.ContactID]billing.Contact)
	m.invoices = make(map[billing.PolicyID][]billing.Invoice)
	m.payments = make(map[billing.PolicyID][]billing.Payment)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	policies map[billing.PolicyID]billing.Policy
	contacts map[billing.ContactID]billing.Contact
	invoices map[billing.PolicyID][]billing.Invoice
	payments map[billing.PolicyID][]billing.Payment
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		policies: make(map[billing.PolicyID]billing.Policy, len(tm.policies)),
		contacts: make(map[billing.ContactID]billing.Contact, len(tm.contacts)),
		invoices: make(map[billing.PolicyID][]billing.Invoice, len(tm.invoices)),
		payments: make(map[billing.PolicyID][]billing.Payment, len(tm.payments)),
	}
	for k, v := range tm.policies {
		s.policies[k] = v
	}
	for k, v := range tm.contacts {
		s.contacts[k] = v
	}
	for k, v := range tm.invoices {
		s.invoices[k] = append([]billing.Invoice{}, v...)
	}
	for k, v := range tm.payments {
		s.payments[k] = append([]billing.Payment{}, v...)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.policies = s.policies
	tm.contacts = s.contacts
	tm.invoices = s.invoices
	tm.payments = s.payments
}

// txMemoryView bypasses the parent's mutex (already held by WithTx).
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) CreatePolicy(_ context.Context, p billing.Policy) error {
	tv.parent.policies[p.ID] = p
	return nil
}

func (tv *txMemoryView) GetPolicy(_ context.Context, id billing.PolicyID) (billing.Policy, error) {
	p, ok := tv.parent.policies[id]
	if !ok {
		return billing.Policy{}, billing.ErrPolicyNotFound
	}
	return p, nil
}

func (tv *txMemoryView) ListPolicies(ctx context.Context) ([]billing.Policy, error) {
	result := make([]billing.Policy, 0, len(tv.parent.policies))
	for _, p := range tv.parent.policies {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (tv *txMemoryView) UpdatePolicy(_ context.Context, p billing.Policy) error {
	return tv.parent.updatePolicyLocked(p)
}

func (tv *txMemoryView) CreateContact(_ context.Context, c billing.Contact) error {
	tv.parent.contacts[c.ID] = c
	return nil
}

func (tv *txMemoryView) GetContact(_ context.Context, id billing.ContactID) (billing.Contact, error) {
	c, ok := tv.parent.contacts[id]
	if !ok {
		return billing.Contact{}, billing.ErrContactNotFound
	}
	return c, nil
}

func (tv *txMemoryView) ListContacts(ctx context.Context) ([]billing.Contact, error) {
	result := make([]billing.Contact, 0, len(tv.parent.contacts))
	for _, c := range tv.parent.contacts {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (tv *txMemoryView) CreateInvoices(_ context.Context, invs []billing.Invoice) error {
	tv.parent.createInvoicesLocked(invs)
	return nil
}

func (tv *txMemoryView) InvoicesByPolicy(_ context.Context, id billing.PolicyID) ([]billing.Invoice, error) {
	result := make([]billing.Invoice, len(tv.parent.invoices[id]))
	copy(result, tv.parent.invoices[id])
	return result, nil
}

func (tv *txMemoryView) RetireInvoice(_ context.Context, id billing.InvoiceID) error {
	return tv.parent.retireInvoiceLocked(id)
}

func (tv *txMemoryView) CreatePayment(_ context.Context, p billing.Payment) error {
	tv.parent.createPaymentLocked(p)
	return nil
}

func (tv *txMemoryView) PaymentsByPolicy(_ context.Context, id billing.PolicyID) ([]billing.Payment, error) {
	result := make([]billing.Payment, len(tv.parent.payments[id]))
	copy(result, tv.parent.payments[id])
	return result, nil
}
