package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/policy-billing/api"
	"github.com/warp/policy-billing/billing"
	"github.com/warp/policy-billing/billing/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(mem)))
	t.Cleanup(srv.Close)
	return srv, mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// seedQuarterly creates contacts and one quarterly 1200 policy directly in
// the store, without invoices; the API generates them on first access.
func seedQuarterly(t *testing.T, mem *store.TxMemory) billing.Policy {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, mem.CreateContact(ctx, billing.Contact{ID: "agent-1", Name: "Test Agent", Role: billing.RoleAgent}))
	require.NoError(t, mem.CreateContact(ctx, billing.Contact{ID: "insured-1", Name: "Test Insured", Role: billing.RoleNamedInsured}))

	policy := billing.Policy{
		ID:              "policy-1",
		Number:          "Test Policy",
		EffectiveDate:   billing.NewDate(2015, time.January, 1),
		AnnualPremium:   decimal.NewFromInt(1200),
		BillingSchedule: billing.ScheduleQuarterly,
		Status:          billing.StatusActive,
		NamedInsured:    "insured-1",
		Agent:           "agent-1",
	}
	require.NoError(t, mem.CreatePolicy(ctx, policy))
	return policy
}

type resultBody struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// =============================================================================
// POLICY ENDPOINTS
// =============================================================================

func TestAPI_GetPolicy_DetailWithBalance(t *testing.T) {
	// GIVEN: A quarterly policy with no invoices yet
	// WHEN: The detail endpoint is hit with a cursor date
	// THEN: Invoices are generated on first access and the balance as of
	//       the cursor is included

	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/policies/%s?as_of=2015-04-01", srv.URL, policy.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	detail := decode[struct {
		Policy struct {
			ID             string  `json:"id"`
			AccountBalance *string `json:"account_balance"`
		} `json:"policy"`
		Invoices []struct {
			AmountDue string `json:"amount_due"`
			Retired   bool   `json:"retired"`
		} `json:"invoices"`
		Payments []json.RawMessage `json:"payments"`
	}](t, resp)

	assert.Equal(t, "policy-1", detail.Policy.ID)
	require.NotNil(t, detail.Policy.AccountBalance)
	assert.Equal(t, "600", *detail.Policy.AccountBalance, "two installments billed by 2015-04-01")
	assert.Len(t, detail.Invoices, 4)
	assert.Empty(t, detail.Payments)
}

func TestAPI_CreatePolicyAndContact(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/contacts", map[string]string{
		"id": "insured-9", "name": "New Insured", "role": "Named Insured",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/policies", map[string]any{
		"id":               "policy-9",
		"number":           "Policy Nine",
		"effective_date":   "2015-03-01",
		"annual_premium":   "730",
		"billing_schedule": "Two-Pay",
		"named_insured":    "insured-9",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/policies/policy-9?as_of=2015-09-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_CreatePolicy_BadDate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/policies", map[string]any{
		"id": "p", "number": "P", "effective_date": "01/03/2015", "annual_premium": "100",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GetPolicy_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/policies/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetBalance(t *testing.T) {
	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/policies/%s/balance?as_of=2015-10-01", srv.URL, policy.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		PolicyID string `json:"policy_id"`
		AsOf     string `json:"as_of"`
		Balance  string `json:"balance"`
	}](t, resp)
	assert.Equal(t, "policy-1", body.PolicyID)
	assert.Equal(t, "2015-10-01", body.AsOf)
	assert.Equal(t, "1200", body.Balance)
}

func TestAPI_GetBalance_BadDate(t *testing.T) {
	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/policies/%s/balance?as_of=bogus", srv.URL, policy.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// CHANGE OPERATIONS
// =============================================================================

func TestAPI_ChangeSchedule(t *testing.T) {
	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/policies/%s/schedule", srv.URL, policy.ID),
		map[string]string{"billing_schedule": "Monthly"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[resultBody](t, resp)
	assert.True(t, result.OK)
	assert.Equal(t, "Policy billing schedule changed.", result.Message)

	invoices, err := mem.InvoicesByPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 16, "4 retired + 12 regenerated")
}

func TestAPI_ChangeSchedule_FirstScheduleOnUnsetPolicy(t *testing.T) {
	// GIVEN: A policy created without a billing schedule (and so without
	//        invoices)
	// WHEN: A schedule is assigned through the API
	// THEN: The change succeeds and the first installment set is generated

	srv, mem := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, mem.CreatePolicy(ctx, billing.Policy{
		ID:            "policy-unset",
		Number:        "Unset Policy",
		EffectiveDate: billing.NewDate(2015, time.January, 1),
		AnnualPremium: decimal.NewFromInt(1200),
		Status:        billing.StatusActive,
	}))

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/policies/policy-unset/schedule",
		map[string]string{"billing_schedule": "Monthly"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[resultBody](t, resp)
	assert.True(t, result.OK)
	assert.Equal(t, "Policy billing schedule changed.", result.Message)

	invoices, err := mem.InvoicesByPolicy(ctx, "policy-unset")
	require.NoError(t, err)
	require.Len(t, invoices, 12)
	for _, inv := range invoices {
		assert.False(t, inv.Retired)
	}
}

func TestAPI_ChangeSchedule_ValidationFailureIs200(t *testing.T) {
	// Validation outcomes ride in the result body, not the HTTP status.

	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/policies/%s/schedule", srv.URL, policy.ID),
		map[string]string{"billing_schedule": "Quarterly"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[resultBody](t, resp)
	assert.False(t, result.OK)
	assert.Equal(t, "Policy already has Quarterly billing schedule.", result.Message)
}

func TestAPI_ValidateSchedule_DryRun(t *testing.T) {
	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/policies/%s/schedule/validate", srv.URL, policy.ID),
		map[string]string{"billing_schedule": "Monthly"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[resultBody](t, resp)
	assert.True(t, result.OK)

	stored, err := mem.GetPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.ScheduleQuarterly, stored.BillingSchedule, "dry run must not mutate")
}

func TestAPI_ChangeStatus(t *testing.T) {
	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/policies/%s/status", srv.URL, policy.ID),
		map[string]string{"status": "Expired", "date": "2016-01-01", "description": "term ended"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[resultBody](t, resp)
	assert.True(t, result.OK)

	stored, err := mem.GetPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusExpired, stored.Status)
	assert.Equal(t, "term ended", stored.StatusChangeNote)
}

func TestAPI_CancelPolicy(t *testing.T) {
	// The quarterly policy has never been paid and its first cancel date
	// (2015-02-15) is long past.

	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/policies/%s/cancel", srv.URL, policy.ID),
		map[string]string{"date": "2015-04-01", "description": "nonpayment"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[resultBody](t, resp)
	assert.True(t, result.OK)
	assert.Equal(t, "Policy canceled.", result.Message)

	stored, err := mem.GetPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCanceled, stored.Status)
}

func TestAPI_CancellationPending(t *testing.T) {
	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/policies/%s/cancellation-pending?as_of=2015-02-10", srv.URL, policy.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Pending bool `json:"pending"`
	}](t, resp)
	assert.True(t, body.Pending)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestAPI_MakePayment(t *testing.T) {
	srv, mem := newTestServer(t)
	policy := seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/policies/%s/payments", srv.URL, policy.ID),
		map[string]string{"amount": "300", "date": "2015-01-15"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	payment := decode[struct {
		ID              string `json:"id"`
		ContactID       string `json:"contact_id"`
		Amount          string `json:"amount"`
		TransactionDate string `json:"transaction_date"`
	}](t, resp)
	assert.NotEmpty(t, payment.ID)
	assert.Equal(t, "insured-1", payment.ContactID, "defaults to the named insured")
	assert.Equal(t, "300", payment.Amount)
	assert.Equal(t, "2015-01-15", payment.TransactionDate)

	payments, err := mem.PaymentsByPolicy(context.Background(), policy.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestAPI_MakePayment_UnknownPolicy(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/policies/nope/payments",
		map[string]string{"amount": "300"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestAPI_ListScenarios(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/scenarios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decode[[]struct {
		ID string `json:"id"`
	}](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, "book-of-business", list[0].ID)
	assert.Equal(t, "overdue-policy", list[1].ID)
}

func TestAPI_LoadScenario_BookOfBusiness(t *testing.T) {
	srv, mem := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		map[string]string{"scenario_id": "book-of-business"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx := context.Background()
	policies, err := mem.ListPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 4)

	// Every seeded policy already has its installment set.
	for _, p := range policies {
		invoices, err := mem.InvoicesByPolicy(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.BillingSchedule.Installments(), len(invoices), "policy %s", p.ID)
	}

	// The quarterly policy carries its seed payment.
	payments, err := mem.PaymentsByPolicy(ctx, "policy-two")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(400)))
}

func TestAPI_LoadScenario_ResetsPreviousData(t *testing.T) {
	srv, mem := newTestServer(t)
	seedQuarterly(t, mem)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		map[string]string{"scenario_id": "overdue-policy"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := mem.GetPolicy(context.Background(), "policy-1")
	assert.ErrorIs(t, err, billing.ErrPolicyNotFound)

	policy, err := mem.GetPolicy(context.Background(), "policy-overdue")
	require.NoError(t, err)
	assert.Equal(t, billing.ScheduleMonthly, policy.BillingSchedule)
}

func TestAPI_LoadScenario_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		map[string]string{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
