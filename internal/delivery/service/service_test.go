package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_DefaultsToPendingOnDate(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, nil)

	d, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID: c.ID,
		Date:       targetDay,
		Entries:    []domain.EntryInput{entry(2, 1, "40", "40")},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, d.Status)
	require.NotNil(t, d.ScheduledDate)
	assert.True(t, d.ScheduledDate.Equal(targetDay))
	require.Len(t, d.Entries, 1)
	requireDecimal(t, "40", d.Entries[0].AmountDue)
	require.NotNil(t, d.Customer)
	assert.Equal(t, c.Name, d.Customer.Name)
}

func TestCreate_RejectsUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID: snowflake.ID(404),
		Date:       targetDay,
	})
	require.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestCreate_RejectsSecondDeliveryOnSameDay(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, nil)
	f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: c.ID, Date: targetDay})
	require.ErrorIs(t, err, domain.ErrDuplicateDelivery)

	cancelled := domain.StatusCancelled
	_, err = f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: c.ID, Date: targetDay, Status: &cancelled})
	require.NoError(t, err)
}

func TestList_FiltersByStatusRangeAndAssignee(t *testing.T) {
	f := newFixture(t)
	staff := snowflake.ID(55)
	mine := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.Name = "Budi Santoso"
		c.UserID = &staff
	})
	other := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.Name = "Siti Aminah"
	})

	today := targetDay.AddDate(0, 0, -1) // clock reports 2025-03-09
	tomorrow := f.addDelivery(t, mine.ID, targetDay, domain.StatusScheduled)
	require.NoError(t, f.db.Model(&domain.Delivery{}).Where("id = ?", tomorrow.ID).Update("delivery_person_id", staff).Error)
	f.addDelivery(t, other.ID, today, domain.StatusPending)
	f.addDelivery(t, other.ID, targetDay.AddDate(0, 0, 3), domain.StatusScheduled)
	f.addDelivery(t, other.ID, targetDay.AddDate(0, 0, 1), domain.StatusDelivered)

	all, err := f.svc.List(context.Background(), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].ScheduledDate.Before(*all[i-1].ScheduledDate))
	}

	tmr, err := f.svc.List(context.Background(), domain.ListRequest{Range: domain.RangeTomorrow})
	require.NoError(t, err)
	require.Len(t, tmr, 1)
	assert.Equal(t, tomorrow.ID, tmr[0].ID)

	week, err := f.svc.List(context.Background(), domain.ListRequest{Range: domain.RangeWeek})
	require.NoError(t, err)
	assert.Len(t, week, 3)

	assigned, err := f.svc.List(context.Background(), domain.ListRequest{DeliveryPersonID: &staff})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, mine.ID, assigned[0].CustomerID)

	delivered, err := f.svc.List(context.Background(), domain.ListRequest{Statuses: []domain.Status{domain.StatusDelivered}})
	require.NoError(t, err)
	assert.Len(t, delivered, 1)

	searched, err := f.svc.List(context.Background(), domain.ListRequest{Search: "budi"})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, mine.ID, searched[0].CustomerID)

	_, err = f.svc.List(context.Background(), domain.ListRequest{Range: "decade"})
	require.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestUpdate_ReplacesEntriesWholesale(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, nil)
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)
	notes := "  ring twice  "
	skipped := domain.StatusSkipped

	updated, err := f.svc.Update(context.Background(), domain.UpdateRequest{
		ID:      d.ID,
		Notes:   &notes,
		Status:  &skipped,
		Entries: []domain.EntryInput{entry(1, 0, "10", "0"), entry(2, 2, "20", "30")},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSkipped, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "ring twice", *updated.Notes)
	require.Len(t, updated.Entries, 2)
	assert.Equal(t, 2, updated.Entries[1].DeliveredBottles)

	var n int64
	require.NoError(t, f.db.Model(&domain.Entry{}).Where("delivery_id = ?", d.ID).Count(&n).Error)
	assert.Equal(t, int64(2), n)

	_, err = f.svc.Update(context.Background(), domain.UpdateRequest{ID: snowflake.ID(1)})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdate_GuardsDuplicateDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addCustomer(t, nil)
	f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)
	next := f.addDelivery(t, c.ID, targetDay.AddDate(0, 0, 1), domain.StatusScheduled)

	moved := targetDay.Add(9 * time.Hour)
	_, err := f.svc.Update(ctx, domain.UpdateRequest{ID: next.ID, ScheduledDate: &moved})
	require.ErrorIs(t, err, domain.ErrDuplicateDelivery)

	stored, err := f.svc.Get(ctx, next.ID)
	require.NoError(t, err)
	assert.True(t, stored.ScheduledDate.Equal(targetDay.AddDate(0, 0, 1)))

	notes := "ring twice"
	_, err = f.svc.Update(ctx, domain.UpdateRequest{ID: next.ID, Notes: &notes})
	require.NoError(t, err)

	cancelled := domain.StatusCancelled
	_, err = f.svc.Update(ctx, domain.UpdateRequest{ID: next.ID, ScheduledDate: &moved, Status: &cancelled})
	require.NoError(t, err)

	scheduled := domain.StatusScheduled
	_, err = f.svc.Update(ctx, domain.UpdateRequest{ID: next.ID, Status: &scheduled})
	require.ErrorIs(t, err, domain.ErrDuplicateDelivery)
}

func TestDelete_RemovesEntriesAndInvoices(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.Balance = decimal.NewFromInt(10)
	})
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)
	_, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID: d.ID,
		Entries:    []domain.EntryInput{entry(1, 0, "10", "0")},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), d.ID))

	_, err = f.svc.Get(context.Background(), d.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	var entries, invoices int64
	require.NoError(t, f.db.Model(&domain.Entry{}).Where("delivery_id = ?", d.ID).Count(&entries).Error)
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("delivery_id = ?", d.ID).Count(&invoices).Error)
	assert.Zero(t, entries)
	assert.Zero(t, invoices)

	require.ErrorIs(t, f.svc.Delete(context.Background(), d.ID), domain.ErrNotFound)
}

func TestHistory_LatestDeliveredByDate(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, nil)
	for i := 0; i < 7; i++ {
		f.addDelivery(t, c.ID, targetDay.AddDate(0, 0, -i), domain.StatusDelivered)
	}
	f.addDelivery(t, c.ID, targetDay.AddDate(0, 0, 1), domain.StatusScheduled)

	items, err := f.svc.History(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, items, domain.HistoryLimit)
	assert.True(t, items[0].Date.Equal(targetDay))
	assert.True(t, items[4].Date.Equal(targetDay.AddDate(0, 0, -4)))
}
