package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/policy-billing/billing"
)

func TestDate_ParseAndString(t *testing.T) {
	parsed, err := billing.ParseDate("2015-02-01")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(d(2015, time.February, 1)))
	assert.Equal(t, "2015-02-01", parsed.String())

	_, err = billing.ParseDate("02/01/2015")
	assert.Error(t, err)
}

func TestDate_Ordering(t *testing.T) {
	a := d(2015, time.January, 1)
	b := d(2015, time.January, 2)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.BeforeOrEqual(a))
	assert.True(t, a.AfterOrEqual(a))
	assert.False(t, a.Equal(b))
}

func TestDate_Arithmetic(t *testing.T) {
	start := d(2015, time.January, 1)
	assert.True(t, start.AddDays(14).Equal(d(2015, time.January, 15)))
	assert.True(t, start.AddMonths(3).Equal(d(2015, time.April, 1)))
	assert.True(t, start.AddYears(1).Equal(d(2016, time.January, 1)))

}

func TestDate_AddMonthsClampsToMonthEnd(t *testing.T) {
	// Overflow days clamp to the last day of the target month rather than
	// rolling into the next one.
	assert.True(t, d(2015, time.January, 31).AddMonths(1).Equal(d(2015, time.February, 28)))
	assert.True(t, d(2016, time.January, 31).AddMonths(1).Equal(d(2016, time.February, 29)), "leap year keeps the 29th")
	assert.True(t, d(2015, time.March, 31).AddMonths(1).Equal(d(2015, time.April, 30)))
	assert.True(t, d(2015, time.January, 31).AddMonths(2).Equal(d(2015, time.March, 31)), "months with room keep the day")

	assert.True(t, d(2016, time.February, 29).AddYears(1).Equal(d(2017, time.February, 28)))
}

func TestDate_OrToday(t *testing.T) {
	assert.True(t, billing.Date{}.OrToday().Equal(billing.Today()))

	set := d(2015, time.June, 1)
	assert.True(t, set.OrToday().Equal(set))
}
