/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and in the billing engine, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/policy-billing/billing"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PolicyDTO represents a policy in API responses. AccountBalance is only
// populated on the detail endpoint, where a cursor date is known.
type PolicyDTO struct {
	ID               string  `json:"id"`
	Number           string  `json:"number"`
	EffectiveDate    string  `json:"effective_date"`
	AnnualPremium    string  `json:"annual_premium"`
	BillingSchedule  string  `json:"billing_schedule"`
	Status           string  `json:"status"`
	StatusChangeDate string  `json:"status_change_date,omitempty"`
	StatusChangeNote string  `json:"status_change_note,omitempty"`
	NamedInsured     string  `json:"named_insured,omitempty"`
	Agent            string  `json:"agent,omitempty"`
	AccountBalance   *string `json:"account_balance,omitempty"`
}

type InvoiceDTO struct {
	ID         string `json:"id"`
	BillDate   string `json:"bill_date"`
	DueDate    string `json:"due_date"`
	CancelDate string `json:"cancel_date"`
	AmountDue  string `json:"amount_due"`
	Retired    bool   `json:"retired"`
}

type PaymentDTO struct {
	ID              string `json:"id"`
	ContactID       string `json:"contact_id,omitempty"`
	Amount          string `json:"amount"`
	TransactionDate string `json:"transaction_date"`
}

type ContactDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// PolicyDetailDTO is the full per-policy view: the policy with its balance,
// every invoice (retired included, for history), and every payment.
type PolicyDetailDTO struct {
	Policy   PolicyDTO    `json:"policy"`
	Invoices []InvoiceDTO `json:"invoices"`
	Payments []PaymentDTO `json:"payments"`
}

// BalanceDTO reports the balance as of a cursor date.
type BalanceDTO struct {
	PolicyID string `json:"policy_id"`
	AsOf     string `json:"as_of"`
	Balance  string `json:"balance"`
}

// ResultDTO is the outcome of a change operation: a success flag plus a
// human-readable message. Callers must check ok before trusting that any
// mutation occurred.
type ResultDTO struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type PendingCancellationDTO struct {
	PolicyID string `json:"policy_id"`
	AsOf     string `json:"as_of"`
	Pending  bool   `json:"pending"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateContactRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type CreatePolicyRequest struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	EffectiveDate   string          `json:"effective_date"`
	AnnualPremium   decimal.Decimal `json:"annual_premium"`
	BillingSchedule string          `json:"billing_schedule"`
	NamedInsured    string          `json:"named_insured"`
	Agent           string          `json:"agent"`
}

type ChangeScheduleRequest struct {
	BillingSchedule string `json:"billing_schedule"`
}

type ChangeStatusRequest struct {
	Status      string `json:"status"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

type CancelPolicyRequest struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}

type MakePaymentRequest struct {
	ContactID string          `json:"contact_id,omitempty"`
	Date      string          `json:"date,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPolicyDTO(p billing.Policy) PolicyDTO {
	dto := PolicyDTO{
		ID:               string(p.ID),
		Number:           p.Number,
		EffectiveDate:    p.EffectiveDate.String(),
		AnnualPremium:    p.AnnualPremium.String(),
		BillingSchedule:  string(p.BillingSchedule),
		Status:           string(p.Status),
		StatusChangeNote: p.StatusChangeNote,
		NamedInsured:     string(p.NamedInsured),
		Agent:            string(p.Agent),
	}
	if !p.StatusChangeDate.IsZero() {
		dto.StatusChangeDate = p.StatusChangeDate.String()
	}
	return dto
}

func toInvoiceDTOs(invs []billing.Invoice) []InvoiceDTO {
	dtos := make([]InvoiceDTO, len(invs))
	for i, inv := range invs {
		dtos[i] = InvoiceDTO{
			ID:         string(inv.ID),
			BillDate:   inv.BillDate.String(),
			DueDate:    inv.DueDate.String(),
			CancelDate: inv.CancelDate.String(),
			AmountDue:  inv.AmountDue.String(),
			Retired:    inv.Retired,
		}
	}
	return dtos
}

func toPaymentDTOs(payments []billing.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = PaymentDTO{
			ID:              string(p.ID),
			ContactID:       string(p.ContactID),
			Amount:          p.Amount.String(),
			TransactionDate: p.TransactionDate.String(),
		}
	}
	return dtos
}
