package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/railzwaylabs/waterline/internal/clock"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRunSchedule_MaterializesDueCustomer(t *testing.T) {
	f := newFixture(t)
	staff := snowflake.ID(77)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
		c.Balance = decimal.NewFromInt(120)
		c.BottleBalance = 4
		c.UserID = &staff
	})

	created, err := f.svc.RunSchedule(context.Background(), targetDay.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, created, 1)

	d := created[0]
	assert.Equal(t, c.ID, d.CustomerID)
	assert.Equal(t, domain.StatusScheduled, d.Status)
	assert.True(t, d.Date.Equal(targetDay))
	require.NotNil(t, d.ScheduledDate)
	assert.True(t, d.ScheduledDate.Equal(targetDay))
	require.NotNil(t, d.DeliveryPersonID)
	assert.Equal(t, staff, *d.DeliveryPersonID)
	require.NotNil(t, d.Customer)

	require.Len(t, d.Entries, 1)
	entry := d.Entries[0]
	assert.Equal(t, 0, entry.DeliveredBottles)
	assert.Equal(t, 0, entry.EmptyBottle)
	assert.Equal(t, 4, entry.BottleBalance)
	requireDecimal(t, "120", entry.BalanceAmount)

	stored, err := f.repo.FindByID(context.Background(), f.db, d.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, stored.Entries, 1)

	assert.Equal(t, float64(1), counterValue(t, f.metrics.DeliveriesScheduled()))
}

func TestRunSchedule_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})

	first, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.Equal(t, int64(1), f.countDeliveries(t, c.ID))
	got := f.customer(t, c.ID)
	require.NotNil(t, got.NextDeliveryDate)
	assert.True(t, got.NextDeliveryDate.Equal(targetDay.AddDate(0, 0, 7)), got.NextDeliveryDate.String())
}

func TestRunSchedule_WeekdayFallbackForUnscheduledWeekly(t *testing.T) {
	f := newFixture(t)
	weekly := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.DeliveryDay = "Monday"
	})
	otherDay := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.DeliveryDay = "tuesday"
	})
	monthly := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.DeliverySchedule = customerdomain.ScheduleMonthly
	})

	created, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, weekly.ID, created[0].CustomerID)

	got := f.customer(t, weekly.ID)
	require.NotNil(t, got.NextDeliveryDate)
	assert.True(t, got.NextDeliveryDate.Equal(targetDay.AddDate(0, 0, 7)))

	assert.Nil(t, f.customer(t, otherDay.ID).NextDeliveryDate)
	assert.Nil(t, f.customer(t, monthly.ID).NextDeliveryDate)
}

func TestRunSchedule_Recurrence(t *testing.T) {
	cases := []struct {
		name     string
		schedule customerdomain.Schedule
		days     int
	}{
		{"weekly", customerdomain.ScheduleWeekly, 7},
		{"biweekly", customerdomain.ScheduleBiweekly, 14},
		{"monthly", customerdomain.ScheduleMonthly, 30},
		{"unknown", customerdomain.Schedule("FORTNIGHTLY"), 7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.addCustomer(t, func(c *customerdomain.Customer) {
				c.NextDeliveryDate = datePtr(targetDay)
				c.DeliverySchedule = tc.schedule
			})

			_, err := f.svc.RunSchedule(context.Background(), targetDay)
			require.NoError(t, err)

			got := f.customer(t, c.ID)
			require.NotNil(t, got.NextDeliveryDate)
			assert.True(t, got.NextDeliveryDate.Equal(targetDay.AddDate(0, 0, tc.days)), got.NextDeliveryDate.String())
		})
	}
}

func TestRunSchedule_CatchesUpMissedCustomer(t *testing.T) {
	f := newFixture(t)
	yesterday := targetDay.AddDate(0, 0, -1)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(yesterday)
	})

	created, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.True(t, created[0].ScheduledDate.Equal(targetDay))

	got := f.customer(t, c.ID)
	require.NotNil(t, got.NextDeliveryDate)
	assert.True(t, got.NextDeliveryDate.Equal(yesterday.AddDate(0, 0, 7)), got.NextDeliveryDate.String())
}

func TestRunSchedule_CancelledDeliveryDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})
	f.addDelivery(t, c.ID, targetDay, domain.StatusCancelled)

	created, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, int64(2), f.countDeliveries(t, c.ID))
}

func TestRunSchedule_ExistingDeliveryAdvancesWithoutCreating(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})
	f.addDelivery(t, c.ID, targetDay.Add(9*time.Hour), domain.StatusPending)

	created, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, int64(1), f.countDeliveries(t, c.ID))

	got := f.customer(t, c.ID)
	assert.True(t, got.NextDeliveryDate.Equal(targetDay.AddDate(0, 0, 7)))
}

func TestScheduleCustomer_NoPrematureAdvance(t *testing.T) {
	f := newFixture(t)
	future := targetDay.AddDate(0, 0, 3)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(future)
	})
	f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)

	created, err := f.svc.scheduleCustomer(context.Background(), c.ID, targetDay)
	require.NoError(t, err)
	assert.Nil(t, created)

	got := f.customer(t, c.ID)
	assert.True(t, got.NextDeliveryDate.Equal(future), got.NextDeliveryDate.String())
	assert.Equal(t, int64(1), f.countDeliveries(t, c.ID))
}

func TestRunSchedule_FailingCustomerIsSkipped(t *testing.T) {
	f := newFixture(t)
	healthy := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})
	broken := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})
	f.svc.repo = failingInsertRepo{Repository: f.repo, customerID: broken.ID}

	created, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, healthy.ID, created[0].CustomerID)

	// The failed unit rolled back, so the customer stays due.
	got := f.customer(t, broken.ID)
	assert.True(t, got.NextDeliveryDate.Equal(targetDay))
	assert.Equal(t, int64(0), f.countDeliveries(t, broken.ID))
	assert.Equal(t, float64(1), counterValue(t, f.metrics.CustomerFailures()))
}

func TestRunSchedule_ReturnsOnlyNewDeliveries(t *testing.T) {
	f := newFixture(t)
	a := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})
	b := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})
	f.addDelivery(t, a.ID, targetDay, domain.StatusScheduled)

	created, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, b.ID, created[0].CustomerID)
}

func TestCustomerUpdatesUseServiceClock(t *testing.T) {
	at := time.Date(2025, 3, 9, 22, 30, 0, 0, time.UTC)
	f := newFixture(t, withClock(clock.Fixed{At: at}))
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.NextDeliveryDate = datePtr(targetDay)
	})

	created, err := f.svc.RunSchedule(context.Background(), targetDay)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.True(t, f.customer(t, c.ID).UpdatedAt.Equal(at))

	later := at.Add(36 * time.Hour)
	f.svc.clock = clock.Fixed{At: later}
	_, err = f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID: created[0].ID,
		Entries:    []domain.EntryInput{entry(1, 0, "80", "80")},
	})
	require.NoError(t, err)
	assert.True(t, f.customer(t, c.ID).UpdatedAt.Equal(later))
}
