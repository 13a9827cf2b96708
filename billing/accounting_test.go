/*
accounting_test.go - Shared test infrastructure for the billing engine

Tests run against the in-memory store; the SQLite store has its own suite
under store/sqlite. Helpers here build the standard fixture policy (annual
premium 1200, effective 2015-01-01) used throughout.
*/
package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/policy-billing/billing"
	"github.com/warp/policy-billing/billing/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newTestAccounting(t *testing.T) (*billing.Accounting, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	return billing.NewAccounting(mem), mem
}

// newTestPolicy seeds contacts and one policy with the given schedule and
// premium, effective 2015-01-01, and generates its invoices.
func newTestPolicy(t *testing.T, acct *billing.Accounting, mem *store.TxMemory, schedule billing.BillingSchedule, premium int64) billing.Policy {
	t.Helper()
	ctx := context.Background()

	agent := billing.Contact{ID: "agent-1", Name: "Test Agent", Role: billing.RoleAgent}
	insured := billing.Contact{ID: "insured-1", Name: "Test Insured", Role: billing.RoleNamedInsured}
	require.NoError(t, mem.CreateContact(ctx, agent))
	require.NoError(t, mem.CreateContact(ctx, insured))

	policy := billing.Policy{
		ID:              "policy-1",
		Number:          "Test Policy",
		EffectiveDate:   billing.NewDate(2015, time.January, 1),
		AnnualPremium:   decimal.NewFromInt(premium),
		BillingSchedule: schedule,
		Status:          billing.StatusActive,
		NamedInsured:    insured.ID,
		Agent:           agent.ID,
	}
	require.NoError(t, mem.CreatePolicy(ctx, policy))
	require.NoError(t, acct.EnsureInvoices(ctx, policy.ID))
	return policy
}

func d(year int, month time.Month, day int) billing.Date {
	return billing.NewDate(year, month, day)
}

func money(v string) decimal.Decimal {
	dec, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return dec
}

// balanceAt is a shorthand that fails the test on error.
func balanceAt(t *testing.T, acct *billing.Accounting, policyID billing.PolicyID, asOf billing.Date) decimal.Decimal {
	t.Helper()
	bal, err := acct.Balance(context.Background(), policyID, asOf)
	require.NoError(t, err)
	return bal
}
