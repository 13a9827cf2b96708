/*
handlers.go - HTTP API handlers for the policy billing engine

PURPOSE:
  Exposes the billing engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the accounting logic.

ENDPOINTS:
  Policies:
    GET    /api/policies                      List all policies
    POST   /api/policies                      Create policy
    GET    /api/policies/{id}                 Policy + invoices + payments + balance
    GET    /api/policies/{id}/balance         Balance as of a cursor date
    POST   /api/policies/{id}/schedule        Change billing schedule
    POST   /api/policies/{id}/schedule/validate  Dry-run schedule validation
    POST   /api/policies/{id}/status          Change policy status
    POST   /api/policies/{id}/cancel          Non-payment cancellation
    GET    /api/policies/{id}/cancellation-pending  Overdue-but-not-cancelable flag
    POST   /api/policies/{id}/payments        Record a payment

  Contacts:
    GET    /api/contacts                      List contacts
    POST   /api/contacts                      Create contact

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Reset + load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. EnsureInvoices for the addressed policy (first access generates them)
  3. Call accounting logic
  4. Serialize response

ERROR HANDLING:
  Validation outcomes of change operations are 200 responses carrying an
  {ok, message} result - the flag is the contract, not the HTTP status.
  Unknown policy/contact IDs are 404s; malformed input is 400; store
  failures are 500.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/policy-billing/billing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      billing.TxStore
	Accounting *billing.Accounting

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler on top of the given store.
func NewHandler(store billing.TxStore) *Handler {
	return &Handler{
		Store:      store,
		Accounting: billing.NewAccounting(store),
	}
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns all policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy creates a new policy.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	effective, err := billing.ParseDate(req.EffectiveDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_date format (use YYYY-MM-DD)", err)
		return
	}
	if req.AnnualPremium.IsNegative() {
		writeError(w, http.StatusBadRequest, "annual_premium must not be negative", nil)
		return
	}

	policy := billing.Policy{
		ID:              billing.PolicyID(req.ID),
		Number:          req.Number,
		EffectiveDate:   effective,
		AnnualPremium:   req.AnnualPremium,
		BillingSchedule: billing.BillingSchedule(req.BillingSchedule),
		Status:          billing.StatusActive,
		NamedInsured:    billing.ContactID(req.NamedInsured),
		Agent:           billing.ContactID(req.Agent),
	}

	if err := h.Store.CreatePolicy(r.Context(), policy); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPolicyDTO(policy))
}

// GetPolicy returns the full per-policy view: the record itself, its
// invoices (generated on first access), its payments, and the balance as
// of the optional as_of query parameter.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	asOf, ok := dateParam(w, r, "as_of")
	if !ok {
		return
	}

	if err := h.Accounting.EnsureInvoices(ctx, policyID); err != nil {
		h.writeAccountingError(w, err)
		return
	}

	policy, err := h.Store.GetPolicy(ctx, policyID)
	if err != nil {
		h.writeAccountingError(w, err)
		return
	}
	balance, err := h.Accounting.Balance(ctx, policyID, asOf)
	if err != nil {
		h.writeAccountingError(w, err)
		return
	}
	invoices, err := h.Store.InvoicesByPolicy(ctx, policyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load invoices", err)
		return
	}
	payments, err := h.Store.PaymentsByPolicy(ctx, policyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load payments", err)
		return
	}

	dto := toPolicyDTO(policy)
	balanceStr := balance.String()
	dto.AccountBalance = &balanceStr

	writeJSON(w, http.StatusOK, PolicyDetailDTO{
		Policy:   dto,
		Invoices: toInvoiceDTOs(invoices),
		Payments: toPaymentDTOs(payments),
	})
}

// GetBalance returns the outstanding balance as of the as_of query
// parameter (today when omitted).
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	asOf, ok := dateParam(w, r, "as_of")
	if !ok {
		return
	}

	if err := h.Accounting.EnsureInvoices(ctx, policyID); err != nil {
		h.writeAccountingError(w, err)
		return
	}
	balance, err := h.Accounting.Balance(ctx, policyID, asOf)
	if err != nil {
		h.writeAccountingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		PolicyID: string(policyID),
		AsOf:     asOf.OrToday().String(),
		Balance:  balance.String(),
	})
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// ChangeSchedule migrates the policy to a new billing schedule.
func (h *Handler) ChangeSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	var req ChangeScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// A policy created without a schedule has no invoices to generate yet;
	// the change below is what gives it its first schedule.
	if err := h.Accounting.EnsureInvoices(ctx, policyID); err != nil && !errors.Is(err, billing.ErrInvalidScheduleKind) {
		h.writeAccountingError(w, err)
		return
	}
	ok, msg := h.Accounting.ChangeBillingSchedule(ctx, policyID, billing.BillingSchedule(req.BillingSchedule))
	writeJSON(w, http.StatusOK, ResultDTO{OK: ok, Message: msg})
}

// ValidateSchedule dry-runs schedule validation without mutating anything.
func (h *Handler) ValidateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	var req ChangeScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ok, msg := h.Accounting.ValidateBillingSchedule(ctx, policyID, billing.BillingSchedule(req.BillingSchedule))
	writeJSON(w, http.StatusOK, ResultDTO{OK: ok, Message: msg})
}

// =============================================================================
// STATUS HANDLERS
// =============================================================================

// ChangeStatus applies a status transition.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	asOf, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}

	okRes, msg := h.Accounting.ChangeStatus(ctx, policyID, asOf, billing.PolicyStatus(req.Status), req.Description)
	writeJSON(w, http.StatusOK, ResultDTO{OK: okRes, Message: msg})
}

// CancelPolicy runs the non-payment cancellation procedure.
func (h *Handler) CancelPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	var req CancelPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	asOf, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}

	if err := h.Accounting.EnsureInvoices(ctx, policyID); err != nil {
		h.writeAccountingError(w, err)
		return
	}
	okRes, msg := h.Accounting.CancelPolicy(ctx, policyID, asOf, req.Description)
	writeJSON(w, http.StatusOK, ResultDTO{OK: okRes, Message: msg})
}

// CancellationPending reports whether the policy is overdue but not yet
// past a cancel boundary.
func (h *Handler) CancellationPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	asOf, ok := dateParam(w, r, "as_of")
	if !ok {
		return
	}

	if err := h.Accounting.EnsureInvoices(ctx, policyID); err != nil {
		h.writeAccountingError(w, err)
		return
	}
	pending, err := h.Accounting.NonPayCancellationPending(ctx, policyID, asOf)
	if err != nil {
		h.writeAccountingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PendingCancellationDTO{
		PolicyID: string(policyID),
		AsOf:     asOf.OrToday().String(),
		Pending:  pending,
	})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// MakePayment records a payment against the policy.
func (h *Handler) MakePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := billing.PolicyID(chi.URLParam(r, "id"))

	var req MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	asOf, ok := parseOptionalDate(w, req.Date)
	if !ok {
		return
	}

	if err := h.Accounting.EnsureInvoices(ctx, policyID); err != nil {
		h.writeAccountingError(w, err)
		return
	}
	payment, err := h.Accounting.MakePayment(ctx, policyID, billing.ContactID(req.ContactID), asOf, req.Amount)
	if err != nil {
		h.writeAccountingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentDTOs([]billing.Payment{payment})[0])
}

// =============================================================================
// CONTACT HANDLERS
// =============================================================================

// ListContacts returns all contacts.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.Store.ListContacts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contacts", err)
		return
	}

	dtos := make([]ContactDTO, len(contacts))
	for i, c := range contacts {
		dtos[i] = ContactDTO{ID: string(c.ID), Name: c.Name, Role: string(c.Role)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContact creates a new contact.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	contact := billing.Contact{
		ID:   billing.ContactID(req.ID),
		Name: req.Name,
		Role: billing.ContactRole(req.Role),
	}
	if err := h.Store.CreateContact(r.Context(), contact); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, ContactDTO{ID: req.ID, Name: req.Name, Role: req.Role})
}

// =============================================================================
// HELPERS
// =============================================================================

// dateParam parses an optional YYYY-MM-DD query parameter. A zero Date
// means "not supplied"; the engine defaults it to today.
func dateParam(w http.ResponseWriter, r *http.Request, name string) (billing.Date, bool) {
	return parseOptionalDate(w, r.URL.Query().Get(name))
}

func parseOptionalDate(w http.ResponseWriter, value string) (billing.Date, bool) {
	if value == "" {
		return billing.Date{}, true
	}
	d, err := billing.ParseDate(value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return billing.Date{}, false
	}
	return d, true
}

// writeAccountingError maps engine errors to HTTP statuses: missing
// entities are 404, an unusable billing schedule is 400, anything else
// is a 500.
func (h *Handler) writeAccountingError(w http.ResponseWriter, err error) {
	switch {
	case billing.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, billing.ErrInvalidScheduleKind):
		writeError(w, http.StatusBadRequest, "Policy has no usable billing schedule", err)
	default:
		writeError(w, http.StatusInternalServerError, "Accounting operation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
