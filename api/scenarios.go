/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with a realistic
  book of business for demos. Loading a scenario resets the store, creates
  contacts and policies, generates their installment invoices, and records
  any seed payments.

AVAILABLE SCENARIOS:
  book-of-business:  Four policies covering every billing schedule, with
                     one partial payment
  overdue-policy:    A monthly policy with no payments, deep in arrears

NOTE:
  Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler context and JSON helpers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/policy-billing/billing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "book-of-business",
		Name:        "Book of Business",
		Description: "Four policies covering every billing schedule, one partial payment",
	},
	{
		ID:          "overdue-policy",
		Name:        "Overdue Policy",
		Description: "A monthly policy with no payments, past several cancel dates",
	},
}

// Resetter is implemented by stores that can wipe all data. It is kept out
// of billing.Store on purpose: the core never deletes.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the store and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	resetter, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Store does not support scenario loading", nil)
		return
	}
	if err := resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "book-of-business":
		err = h.loadBookOfBusiness(ctx)
	case "overdue-policy":
		err = h.loadOverduePolicy(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadBookOfBusiness seeds the classic demo dataset: six contacts and four
// policies, one per billing schedule, plus a partial payment on the
// quarterly policy.
func (h *Handler) loadBookOfBusiness(ctx context.Context) error {
	contacts := []billing.Contact{
		{ID: "agent-john-doe", Name: "John Doe", Role: billing.RoleAgent},
		{ID: "insured-john-doe", Name: "John Doe", Role: billing.RoleNamedInsured},
		{ID: "agent-bob-smith", Name: "Bob Smith", Role: billing.RoleAgent},
		{ID: "insured-anna-white", Name: "Anna White", Role: billing.RoleNamedInsured},
		{ID: "agent-joe-lee", Name: "Joe Lee", Role: billing.RoleAgent},
		{ID: "insured-ryan-bucket", Name: "Ryan Bucket", Role: billing.RoleNamedInsured},
	}
	for _, c := range contacts {
		if err := h.Store.CreateContact(ctx, c); err != nil {
			return err
		}
	}

	policies := []billing.Policy{
		{
			ID:              "policy-one",
			Number:          "Policy One",
			EffectiveDate:   billing.NewDate(2015, time.January, 1),
			AnnualPremium:   decimal.NewFromInt(365),
			BillingSchedule: billing.ScheduleAnnual,
			Status:          billing.StatusActive,
			NamedInsured:    "insured-john-doe",
			Agent:           "agent-bob-smith",
		},
		{
			ID:              "policy-two",
			Number:          "Policy Two",
			EffectiveDate:   billing.NewDate(2015, time.February, 1),
			AnnualPremium:   decimal.NewFromInt(1600),
			BillingSchedule: billing.ScheduleQuarterly,
			Status:          billing.StatusActive,
			NamedInsured:    "insured-anna-white",
			Agent:           "agent-joe-lee",
		},
		{
			ID:              "policy-three",
			Number:          "Policy Three",
			EffectiveDate:   billing.NewDate(2015, time.January, 1),
			AnnualPremium:   decimal.NewFromInt(1200),
			BillingSchedule: billing.ScheduleMonthly,
			Status:          billing.StatusActive,
			NamedInsured:    "insured-ryan-bucket",
			Agent:           "agent-john-doe",
		},
		{
			ID:              "policy-four",
			Number:          "Policy Four",
			EffectiveDate:   billing.NewDate(2015, time.February, 1),
			AnnualPremium:   decimal.NewFromInt(500),
			BillingSchedule: billing.ScheduleTwoPay,
			Status:          billing.StatusActive,
			NamedInsured:    "insured-ryan-bucket",
			Agent:           "agent-john-doe",
		},
	}
	for _, p := range policies {
		if err := h.Store.CreatePolicy(ctx, p); err != nil {
			return err
		}
		if err := h.Accounting.EnsureInvoices(ctx, p.ID); err != nil {
			return err
		}
	}

	_, err := h.Accounting.MakePayment(ctx, "policy-two", "insured-anna-white",
		billing.NewDate(2015, time.February, 1), decimal.NewFromInt(400))
	return err
}

// loadOverduePolicy seeds one monthly policy with no payments, so several
// invoices sit past their cancel dates.
func (h *Handler) loadOverduePolicy(ctx context.Context) error {
	contacts := []billing.Contact{
		{ID: "agent-mary-major", Name: "Mary Major", Role: billing.RoleAgent},
		{ID: "insured-paul-late", Name: "Paul Late", Role: billing.RoleNamedInsured},
	}
	for _, c := range contacts {
		if err := h.Store.CreateContact(ctx, c); err != nil {
			return err
		}
	}

	policy := billing.Policy{
		ID:              "policy-overdue",
		Number:          "Policy Overdue",
		EffectiveDate:   billing.Today().AddMonths(-6),
		AnnualPremium:   decimal.NewFromInt(1200),
		BillingSchedule: billing.ScheduleMonthly,
		Status:          billing.StatusActive,
		NamedInsured:    "insured-paul-late",
		Agent:           "agent-mary-major",
	}
	if err := h.Store.CreatePolicy(ctx, policy); err != nil {
		return err
	}
	return h.Accounting.EnsureInvoices(ctx, policy.ID)
}
