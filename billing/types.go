/*
Package billing is the policy accounting engine.

PURPOSE:
  This package contains the domain types and algorithms for insurance-policy
  billing: splitting an annual premium into dated installment invoices,
  computing the outstanding balance as of any date, migrating a policy to a
  different billing schedule without losing financial history, and driving
  status transitions (activation, cancellation) from payment behavior.

KEY CONCEPTS IN THIS FILE (types.go):
  - Policy: The insured contract being billed (premium, schedule, status)
  - Invoice: A dated installment with bill/due/cancel dates
  - Payment: Money received against a policy
  - Contact: An agent or named insured, referenced by ID
  - BillingSchedule: How many installments the premium splits into

DESIGN PRINCIPLES:
  1. Immutability: Invoices are never edited or deleted. A superseded invoice
     is flagged retired so the ledger stays reproducible at any past date.
  2. Precision: Uses decimal.Decimal for money to avoid floating-point errors.
  3. Type Safety: Strong typing for IDs prevents mixing policy/contact IDs.
  4. Dates, not timestamps: billing operates on calendar days (see date.go).

SEE ALSO:
  - schedule.go: Installment generation from premium + schedule
  - balance.go:  Balance computation as of a cursor date
  - status.go:   Status lifecycle and validations
  - store.go:    Persistence interfaces
*/
package billing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PolicyID string
type InvoiceID string
type PaymentID string
type ContactID string

// =============================================================================
// BILLING SCHEDULE - Installment count and cadence
// =============================================================================

type BillingSchedule string

const (
	ScheduleAnnual    BillingSchedule = "Annual"
	ScheduleTwoPay    BillingSchedule = "Two-Pay"
	ScheduleQuarterly BillingSchedule = "Quarterly"
	ScheduleMonthly   BillingSchedule = "Monthly"
)

// Schedules lists the supported billing schedules in display order.
var Schedules = []BillingSchedule{ScheduleAnnual, ScheduleTwoPay, ScheduleQuarterly, ScheduleMonthly}

// Installments returns how many invoices one billing cycle produces,
// or 0 for an unset/unknown schedule.
func (s BillingSchedule) Installments() int {
	switch s {
	case ScheduleAnnual:
		return 1
	case ScheduleTwoPay:
		return 2
	case ScheduleQuarterly:
		return 4
	case ScheduleMonthly:
		return 12
	default:
		return 0
	}
}

// MonthsBetween returns the spacing between consecutive bill dates.
func (s BillingSchedule) MonthsBetween() int {
	switch s {
	case ScheduleAnnual:
		return 12
	case ScheduleTwoPay:
		return 6
	case ScheduleQuarterly:
		return 3
	case ScheduleMonthly:
		return 1
	default:
		return 0
	}
}

func (s BillingSchedule) Valid() bool { return s.Installments() > 0 }

// =============================================================================
// POLICY STATUS
// =============================================================================

type PolicyStatus string

const (
	StatusActive   PolicyStatus = "Active"
	StatusCanceled PolicyStatus = "Canceled"
	StatusExpired  PolicyStatus = "Expired"
)

// Statuses lists the supported policy statuses.
var Statuses = []PolicyStatus{StatusActive, StatusCanceled, StatusExpired}

func (s PolicyStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusExpired:
		return true
	default:
		return false
	}
}

// =============================================================================
// CONTACT - Agent or named insured (owned externally, read-only here)
// =============================================================================

type ContactRole string

const (
	RoleAgent        ContactRole = "Agent"
	RoleNamedInsured ContactRole = "Named Insured"
)

type Contact struct {
	ID   ContactID
	Name string
	Role ContactRole
}

// =============================================================================
// POLICY
// =============================================================================

// Policy is the insured contract being billed. The billing schedule, once
// set, determines the count and cadence of the policy's live invoices.
type Policy struct {
	ID            PolicyID
	Number        string // display name, e.g. "Policy One"
	EffectiveDate Date
	AnnualPremium decimal.Decimal

	BillingSchedule BillingSchedule // empty = not yet set
	Status          PolicyStatus

	// Set by status changes; zero/empty until the first transition.
	StatusChangeDate Date
	StatusChangeNote string

	NamedInsured ContactID
	Agent        ContactID
}

// =============================================================================
// INVOICE - One installment of the annual premium
// =============================================================================

// Invoice is immutable once created, except for the Retired flag. A billing
// schedule change retires the old installment set instead of deleting it,
// so balances at past dates remain reproducible.
type Invoice struct {
	ID       InvoiceID
	PolicyID PolicyID

	BillDate   Date // installment issued
	DueDate    Date // bill date + 1 month
	CancelDate Date // bill date + 1 month + 14 days

	AmountDue decimal.Decimal
	Retired   bool
}

// =============================================================================
// PAYMENT - Money received against a policy
// =============================================================================

// Payment is append-only: never mutated, never retired. Payments are linked
// to the policy and a date, not to specific invoices.
type Payment struct {
	ID        PaymentID
	PolicyID  PolicyID
	ContactID ContactID

	Amount          decimal.Decimal
	TransactionDate Date
}
