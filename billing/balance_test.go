package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/policy-billing/billing"
)

// =============================================================================
// BALANCE AS OF A CURSOR DATE
// =============================================================================

func TestBalance_AnnualOnEffectiveDate(t *testing.T) {
	// GIVEN: An annual 1200 policy effective 2015-01-01, no payments
	// WHEN: Balance is computed on the effective date
	// THEN: The full premium is owed

	acct, mem := newTestAccounting(t)
	policy := newTestPolicy(t, acct, mem, billing.ScheduleAnnual, 1200)

	bal := balanceAt(t, acct, policy.ID, d(2015, time.January, 1))
	assert.True(t, money("1200").Equal(bal), "got %s", bal)
}

func TestBalance_QuarterlyOnEffectiveDate(t *testing.T) {
	// GIVEN: A quarterly 1200 policy, no payments
	// WHEN: Balance is computed on the effective date
	// THEN: Only the first installment has billed

	acct, mem := newTestAccounting(t)
	policy := newTestPolicy(t, acct, mem, billing.ScheduleQuarterly, 1200)

	bal := balanceAt(t, acct, policy.ID, d(2015, time.January, 1))
	assert.True(t, money("300").Equal(bal), "got %s", bal)
}

func TestBalance_QuarterlyOnLastInstallmentBillDate(t *testing.T) {
	// GIVEN: A quarterly 1200 policy, no payments
	// WHEN: Balance is computed on the last installment's bill date
	// THEN: The whole premium has billed

	acct, mem := newTestAccounting(t)
	policy := newTestPolicy(t, acct, mem, billing.ScheduleQuarterly, 1200)

	bal := balanceAt(t, acct, policy.ID, d(2015, time.October, 1))
	assert.True(t, money("1200").Equal(bal), "got %s", bal)
}

func TestBalance_BeforeEffectiveDateIsZero(t *testing.T) {
	acct, mem := newTestAccounting(t)
	policy := newTestPolicy(t, acct, mem, billing.ScheduleMonthly, 1200)

	bal := balanceAt(t, acct, policy.ID, d(2014, time.December, 31))
	assert.True(t, bal.IsZero(), "nothing billed before the effective date, got %s", bal)
}

func TestBalance_PaymentOnSecondInstallmentDate(t *testing.T) {
	// GIVEN: A quarterly 1200 policy (4 x 300)
	// WHEN: 600 is paid on the second installment's bill date
	// THEN: Balance on that date is zero

	acct, mem := newTestAccounting(t)
	ctx := context.Background()
	policy := newTestPolicy(t, acct, mem, billing.ScheduleQuarterly, 1200)

	april1 := d(2015, time.April, 1)
	_, err := acct.MakePayment(ctx, policy.ID, policy.NamedInsured, april1, decimal.NewFromInt(600))
	require.NoError(t, err)

	bal := balanceAt(t, acct, policy.ID, april1)
	assert.True(t, bal.IsZero(), "got %s", bal)
}

func TestBalance_OverpaymentGoesNegative(t *testing.T) {
	// GIVEN: An annual 1200 policy
	// WHEN: 1500 is paid on the effective date
	// THEN: Balance is -300 (overpayment is accepted, not rejected)

	acct, mem := newTestAccounting(t)
	ctx := context.Background()
	policy := newTestPolicy(t, acct, mem, billing.ScheduleAnnual, 1200)

	_, err := acct.MakePayment(ctx, policy.ID, policy.NamedInsured, d(2015, time.January, 1), decimal.NewFromInt(1500))
	require.NoError(t, err)

	bal := balanceAt(t, acct, policy.ID, d(2015, time.January, 1))
	assert.True(t, money("-300").Equal(bal), "got %s", bal)
}

func TestBalance_IgnoresRetiredInvoices(t *testing.T) {
	// GIVEN: A quarterly policy with one invoice retired by hand
	// WHEN: Balance is computed past every bill date
	// THEN: The retired invoice's amount is excluded

	acct, mem := newTestAccounting(t)
	ctx := context.Background()
	policy := newTestPolicy(t, acct, mem, billing.ScheduleQuarterly, 1200)

	invoices, err := mem.InvoicesByPolicy(ctx, policy.ID)
	require.NoError(t, err)
	require.NoError(t, mem.RetireInvoice(ctx, invoices[0].ID))

	bal := balanceAt(t, acct, policy.ID, d(2015, time.December, 1))
	assert.True(t, money("900").Equal(bal), "got %s", bal)
}

func TestBalance_UnknownPolicy(t *testing.T) {
	acct, _ := newTestAccounting(t)
	_, err := acct.Balance(context.Background(), "missing", d(2015, time.January, 1))
	assert.ErrorIs(t, err, billing.ErrPolicyNotFound)
}

// =============================================================================
// PAYMENT RECORDER
// =============================================================================

func TestMakePayment_DefaultsToNamedInsured(t *testing.T) {
	// GIVEN: A policy with a named insured
	// WHEN: A payment is made without a contact
	// THEN: The payment is attributed to the named insured

	acct, mem := newTestAccounting(t)
	ctx := context.Background()
	policy := newTestPolicy(t, acct, mem, billing.ScheduleMonthly, 1200)

	payment, err := acct.MakePayment(ctx, policy.ID, "", d(2015, time.March, 1), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, policy.NamedInsured, payment.ContactID)
	assert.NotEmpty(t, payment.ID)
	assert.True(t, payment.TransactionDate.Equal(d(2015, time.March, 1)))

	stored, err := mem.PaymentsByPolicy(ctx, policy.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, payment.ID, stored[0].ID)
}

func TestMakePayment_AnyAmountAccepted(t *testing.T) {
	// Payments are not matched to invoices: amounts exceeding or unrelated
	// to any installment are recorded as-is.

	acct, mem := newTestAccounting(t)
	ctx := context.Background()
	policy := newTestPolicy(t, acct, mem, billing.ScheduleAnnual, 1200)

	_, err := acct.MakePayment(ctx, policy.ID, policy.NamedInsured, d(2015, time.June, 15), money("12345.67"))
	require.NoError(t, err)

	bal := balanceAt(t, acct, policy.ID, d(2015, time.June, 15))
	assert.True(t, money("-11145.67").Equal(bal), "got %s", bal)
}

func TestMakePayment_UnknownPolicy(t *testing.T) {
	acct, _ := newTestAccounting(t)
	_, err := acct.MakePayment(context.Background(), "missing", "", billing.Date{}, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, billing.ErrPolicyNotFound)
}
