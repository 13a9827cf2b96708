/*
Package sqlite provides a SQLite-backed implementation of the billing store.

PURPOSE:
  Implements billing.Store and billing.TxStore using SQLite. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

MUTATION CONTRACT:
  The store enforces the engine's immutability rules at the SQL level:
  - invoices: INSERT and a single UPDATE that flips the retired flag.
    No DELETE, no amount/date updates.
  - payments: INSERT only.
  - policies: schedule/status columns update in place.

KEY TABLES:
  contacts:  Agents and named insureds
  policies:  The insured contracts (premium, schedule, status)
  invoices:  Installments, logically deleted via the retired flag
  payments:  Append-only payment records

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): multiple readers don't
  block, single writer at a time, better crash recovery.

CONCURRENCY:
  A sync.RWMutex serializes access on top of SQLite's own locking. WithTx
  holds the write lock for the whole transaction, so every operation runs
  through unexported lock-free helpers that both the Store methods and the
  transaction view share.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  acct := billing.NewAccounting(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/policy-billing/billing"
)

// Store implements billing.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		annual_premium TEXT NOT NULL,
		billing_schedule TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		status_change_date TEXT,
		status_change_note TEXT,
		named_insured TEXT REFERENCES contacts(id),
		agent TEXT REFERENCES contacts(id)
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		bill_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		cancel_date TEXT NOT NULL,
		amount_due TEXT NOT NULL,
		retired INTEGER NOT NULL DEFAULT 0
	);

	-- Balance calculation hot path: live invoices of a policy by bill date.
	CREATE INDEX IF NOT EXISTS idx_invoices_policy_bill_date
		ON invoices(policy_id, bill_date);
	CREATE INDEX IF NOT EXISTS idx_invoices_policy_retired
		ON invoices(policy_id, retired);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL REFERENCES policies(id),
		contact_id TEXT REFERENCES contacts(id),
		amount TEXT NOT NULL,
		transaction_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_policy_date
		ON payments(policy_id, transaction_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query helper can
// run against either the pooled connection or an open transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// POLICIES
// =============================================================================

func (s *Store) CreatePolicy(ctx context.Context, p billing.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPolicy(ctx, s.db, p)
}

func createPolicy(ctx context.Context, db dbtx, p billing.Policy) error {
	query := `
		INSERT INTO policies
		(id, number, effective_date, annual_premium, billing_schedule, status,
		 status_change_date, status_change_note, named_insured, agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		p.ID,
		p.Number,
		p.EffectiveDate.String(),
		p.AnnualPremium.String(),
		p.BillingSchedule,
		p.Status,
		nullDate(p.StatusChangeDate),
		nullString(p.StatusChangeNote),
		nullString(string(p.NamedInsured)),
		nullString(string(p.Agent)),
	)
	if err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, id billing.PolicyID) (billing.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPolicy(ctx, s.db, id)
}

const policyColumns = `id, number, effective_date, annual_premium, billing_schedule, status,
	status_change_date, status_change_note, named_insured, agent`

func getPolicy(ctx context.Context, db dbtx, id billing.PolicyID) (billing.Policy, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = ?`, id)

	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return billing.Policy{}, billing.ErrPolicyNotFound
	}
	if err != nil {
		return billing.Policy{}, fmt.Errorf("failed to get policy: %w", err)
	}
	return p, nil
}

func (s *Store) ListPolicies(ctx context.Context) ([]billing.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPolicies(ctx, s.db)
}

func listPolicies(ctx context.Context, db dbtx) ([]billing.Policy, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM policies ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []billing.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Store) UpdatePolicy(ctx context.Context, p billing.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePolicy(ctx, s.db, p)
}

func updatePolicy(ctx context.Context, db dbtx, p billing.Policy) error {
	query := `
		UPDATE policies SET
			billing_schedule = ?,
			status = ?,
			status_change_date = ?,
			status_change_note = ?
		WHERE id = ?
	`
	res, err := db.ExecContext(ctx, query,
		p.BillingSchedule,
		p.Status,
		nullDate(p.StatusChangeDate),
		nullString(p.StatusChangeNote),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.ErrPolicyNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPolicy(row scannable) (billing.Policy, error) {
	var (
		p                billing.Policy
		effectiveDate    string
		annualPremium    string
		statusChangeDate sql.NullString
		statusChangeNote sql.NullString
		namedInsured     sql.NullString
		agent            sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.Number, &effectiveDate, &annualPremium,
		&p.BillingSchedule, &p.Status,
		&statusChangeDate, &statusChangeNote, &namedInsured, &agent,
	)
	if err != nil {
		return p, err
	}

	if p.EffectiveDate, err = billing.ParseDate(effectiveDate); err != nil {
		return p, fmt.Errorf("bad effective_date: %w", err)
	}
	if p.AnnualPremium, err = decimal.NewFromString(annualPremium); err != nil {
		return p, fmt.Errorf("bad annual_premium: %w", err)
	}
	if statusChangeDate.Valid && statusChangeDate.String != "" {
		if p.StatusChangeDate, err = billing.ParseDate(statusChangeDate.String); err != nil {
			return p, fmt.Errorf("bad status_change_date: %w", err)
		}
	}
	p.StatusChangeNote = statusChangeNote.String
	p.NamedInsured = billing.ContactID(namedInsured.String)
	p.Agent = billing.ContactID(agent.String)
	return p, nil
}

// =============================================================================
// CONTACTS
// =============================================================================

func (s *Store) CreateContact(ctx context.Context, c billing.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createContact(ctx, s.db, c)
}

func createContact(ctx context.Context, db dbtx, c billing.Contact) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO contacts (id, name, role) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Role)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (s *Store) GetContact(ctx context.Context, id billing.ContactID) (billing.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getContact(ctx, s.db, id)
}

func getContact(ctx context.Context, db dbtx, id billing.ContactID) (billing.Contact, error) {
	var c billing.Contact
	err := db.QueryRowContext(ctx,
		`SELECT id, name, role FROM contacts WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Role)
	if err == sql.ErrNoRows {
		return billing.Contact{}, billing.ErrContactNotFound
	}
	if err != nil {
		return billing.Contact{}, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

func (s *Store) ListContacts(ctx context.Context) ([]billing.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listContacts(ctx, s.db)
}

func listContacts(ctx context.Context, db dbtx) ([]billing.Contact, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, role FROM contacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []billing.Contact
	for rows.Next() {
		var c billing.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Role); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// =============================================================================
// INVOICES
// =============================================================================

// CreateInvoices persists an installment batch atomically. When called
// outside WithTx it opens its own transaction so a partial batch is never
// observable.
func (s *Store) CreateInvoices(ctx context.Context, invs []billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := createInvoices(ctx, sqlTx, invs); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func createInvoices(ctx context.Context, db dbtx, invs []billing.Invoice) error {
	query := `
		INSERT INTO invoices
		(id, policy_id, bill_date, due_date, cancel_date, amount_due, retired)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, inv := range invs {
		_, err := db.ExecContext(ctx, query,
			inv.ID,
			inv.PolicyID,
			inv.BillDate.String(),
			inv.DueDate.String(),
			inv.CancelDate.String(),
			inv.AmountDue.String(),
			inv.Retired,
		)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
	}
	return nil
}

func (s *Store) InvoicesByPolicy(ctx context.Context, id billing.PolicyID) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return invoicesByPolicy(ctx, s.db, id)
}

func invoicesByPolicy(ctx context.Context, db dbtx, id billing.PolicyID) ([]billing.Invoice, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, policy_id, bill_date, due_date, cancel_date, amount_due, retired
		FROM invoices
		WHERE policy_id = ?
		ORDER BY bill_date ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		var (
			inv        billing.Invoice
			billDate   string
			dueDate    string
			cancelDate string
			amountDue  string
		)
		if err := rows.Scan(&inv.ID, &inv.PolicyID, &billDate, &dueDate, &cancelDate, &amountDue, &inv.Retired); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if inv.BillDate, err = billing.ParseDate(billDate); err != nil {
			return nil, err
		}
		if inv.DueDate, err = billing.ParseDate(dueDate); err != nil {
			return nil, err
		}
		if inv.CancelDate, err = billing.ParseDate(cancelDate); err != nil {
			return nil, err
		}
		if inv.AmountDue, err = decimal.NewFromString(amountDue); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *Store) RetireInvoice(ctx context.Context, id billing.InvoiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return retireInvoice(ctx, s.db, id)
}

func retireInvoice(ctx context.Context, db dbtx, id billing.InvoiceID) error {
	res, err := db.ExecContext(ctx,
		`UPDATE invoices SET retired = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to retire invoice: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.ErrInvoiceNotFound
	}
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (s *Store) CreatePayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPayment(ctx, s.db, p)
}

func createPayment(ctx context.Context, db dbtx, p billing.Payment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (id, policy_id, contact_id, amount, transaction_date)
		VALUES (?, ?, ?, ?, ?)
	`,
		p.ID,
		p.PolicyID,
		nullString(string(p.ContactID)),
		p.Amount.String(),
		p.TransactionDate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsByPolicy(ctx context.Context, id billing.PolicyID) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paymentsByPolicy(ctx, s.db, id)
}

func paymentsByPolicy(ctx context.Context, db dbtx, id billing.PolicyID) ([]billing.Payment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, policy_id, contact_id, amount, transaction_date
		FROM payments
		WHERE policy_id = ?
		ORDER BY transaction_date ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		var (
			p         billing.Payment
			contactID sql.NullString
			amount    string
			txDate    string
		)
		if err := rows.Scan(&p.ID, &p.PolicyID, &contactID, &amount, &txDate); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.ContactID = billing.ContactID(contactID.String)
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if p.TransactionDate, err = billing.ParseDate(txDate); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// RESET (dev/demo only)
// =============================================================================

// Reset wipes all data. Used by the demo scenario loader; deliberately not
// part of billing.Store, which never deletes.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM payments;
		DELETE FROM invoices;
		DELETE FROM policies;
		DELETE FROM contacts;
	`)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (billing.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store billing.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every operation through the open *sql.Tx, so reads inside
// WithTx observe the transaction's own uncommitted writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreatePolicy(ctx context.Context, p billing.Policy) error {
	return createPolicy(ctx, ts.tx, p)
}

func (ts *txStore) GetPolicy(ctx context.Context, id billing.PolicyID) (billing.Policy, error) {
	return getPolicy(ctx, ts.tx, id)
}

func (ts *txStore) ListPolicies(ctx context.Context) ([]billing.Policy, error) {
	return listPolicies(ctx, ts.tx)
}

func (ts *txStore) UpdatePolicy(ctx context.Context, p billing.Policy) error {
	return updatePolicy(ctx, ts.tx, p)
}

func (ts *txStore) CreateContact(ctx context.Context, c billing.Contact) error {
	return createContact(ctx, ts.tx, c)
}

func (ts *txStore) GetContact(ctx context.Context, id billing.ContactID) (billing.Contact, error) {
	return getContact(ctx, ts.tx, id)
}

func (ts *txStore) ListContacts(ctx context.Context) ([]billing.Contact, error) {
	return listContacts(ctx, ts.tx)
}

func (ts *txStore) CreateInvoices(ctx context.Context, invs []billing.Invoice) error {
	return createInvoices(ctx, ts.tx, invs)
}

func (ts *txStore) InvoicesByPolicy(ctx context.Context, id billing.PolicyID) ([]billing.Invoice, error) {
	return invoicesByPolicy(ctx, ts.tx, id)
}

func (ts *txStore) RetireInvoice(ctx context.Context, id billing.InvoiceID) error {
	return retireInvoice(ctx, ts.tx, id)
}

func (ts *txStore) CreatePayment(ctx context.Context, p billing.Payment) error {
	return createPayment(ctx, ts.tx, p)
}

func (ts *txStore) PaymentsByPolicy(ctx context.Context, id billing.PolicyID) ([]billing.Payment, error) {
	return paymentsByPolicy(ctx, ts.tx, id)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(d billing.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
