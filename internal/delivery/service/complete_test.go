package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func entry(delivered, empty int, due, received string) domain.EntryInput {
	return domain.EntryInput{
		EntryDate:        targetDay,
		DeliveredBottles: delivered,
		EmptyBottle:      empty,
		AmountDue:        decimal.RequireFromString(due),
		AmountReceived:   decimal.RequireFromString(received),
	}
}

func TestComplete_UpdatesBalancesAndEmitsUnpaidInvoice(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.Balance = decimal.NewFromInt(100)
		c.BottleBalance = 10
	})
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)
	actor := snowflake.ID(900)
	cash := domain.PaymentCash

	res, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID:  d.ID,
		Entries:     []domain.EntryInput{entry(3, 2, "50", "20")},
		PaymentType: &cash,
		UserID:      &actor,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDelivered, res.Delivery.Status)
	requireDecimal(t, "100", res.Delivery.PreviousBalance)
	requireDecimal(t, "130", res.Delivery.CurrentBalance)
	assert.Equal(t, 10, res.Delivery.PreviousBottleBalance)
	assert.Equal(t, 11, res.Delivery.CurrentBottleBalance)
	requireDecimal(t, "50", res.Delivery.AmountDue)
	requireDecimal(t, "20", res.Delivery.AmountReceived)
	require.NotNil(t, res.Delivery.PaymentType)
	assert.Equal(t, domain.PaymentCash, *res.Delivery.PaymentType)
	require.NotNil(t, res.Delivery.ActualDate)
	assert.True(t, res.Delivery.ActualDate.Equal(time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)))
	require.Len(t, res.Delivery.Entries, 1)
	assert.Equal(t, 3, res.Delivery.Entries[0].DeliveredBottles)

	requireDecimal(t, "50", res.Invoice.Amount)
	assert.Equal(t, invoicedomain.StatusUnpaid, res.Invoice.Status)
	assert.Equal(t, c.ID, res.Invoice.CustomerID)
	require.NotNil(t, res.Invoice.CreatedByID)
	assert.Equal(t, actor, *res.Invoice.CreatedByID)
	assert.Regexp(t, `^INV-[0-9A-Z]{26}$`, res.Invoice.Number)

	requireDecimal(t, "130", res.Customer.Balance)
	assert.Equal(t, 11, res.Customer.BottleBalance)

	stored := f.customer(t, c.ID)
	requireDecimal(t, "130", stored.Balance)
	assert.Equal(t, 11, stored.BottleBalance)
	assert.Nil(t, stored.NextDeliveryDate)

	var invoices int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("delivery_id = ?", d.ID).Count(&invoices).Error)
	assert.Equal(t, int64(1), invoices)
}

func TestComplete_SettledBalanceIsPaid(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.Balance = decimal.NewFromInt(30)
	})
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)

	res, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID: d.ID,
		Entries:    []domain.EntryInput{entry(1, 1, "50", "90")},
	})
	require.NoError(t, err)

	requireDecimal(t, "-10", res.Customer.Balance)
	assert.Equal(t, invoicedomain.StatusPaid, res.Invoice.Status)
}

func TestComplete_BottleConservationAcrossEntries(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.BottleBalance = 6
	})
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)

	res, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID: d.ID,
		Entries: []domain.EntryInput{
			entry(5, 2, "100", "0"),
			entry(3, 4, "60", "60"),
			entry(0, 1, "0", "40.50"),
		},
	})
	require.NoError(t, err)

	// 6 + (5+3+0) - (2+4+1)
	assert.Equal(t, 7, res.Customer.BottleBalance)
	assert.Equal(t, 7, res.Delivery.CurrentBottleBalance)
	requireDecimal(t, "59.5", res.Customer.Balance)
	require.Len(t, res.Delivery.Entries, 3)
	assert.Equal(t, 5, res.Delivery.Entries[0].DeliveredBottles)
	assert.Equal(t, 1, res.Delivery.Entries[2].EmptyBottle)
}

func TestComplete_RollsBackWhenInvoiceInsertFails(t *testing.T) {
	invoices := new(mockInvoiceRepo)
	invoices.On("Insert", mock.Anything, mock.Anything, mock.AnythingOfType("*domain.Invoice")).
		Return(errors.New("disk full")).Once()

	f := newFixture(t, withInvoiceRepo(invoices))
	c := f.addCustomer(t, func(c *customerdomain.Customer) {
		c.Balance = decimal.NewFromInt(100)
		c.BottleBalance = 10
	})
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)

	_, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID: d.ID,
		Entries:    []domain.EntryInput{entry(3, 2, "50", "20"), entry(1, 0, "10", "0")},
	})
	require.Error(t, err)
	invoices.AssertExpectations(t)

	stored := f.customer(t, c.ID)
	requireDecimal(t, "100", stored.Balance)
	assert.Equal(t, 10, stored.BottleBalance)

	after, err := f.repo.FindByID(context.Background(), f.db, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, after.Status)
	assert.Nil(t, after.ActualDate)
	require.Len(t, after.Entries, 1)
	assert.Equal(t, 0, after.Entries[0].DeliveredBottles)
}

func TestComplete_HistoryIsLatestFiveByActualDate(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, nil)
	for i := 1; i <= 6; i++ {
		f.addDelivery(t, c.ID, targetDay.AddDate(0, 0, -7*i), domain.StatusDelivered)
	}
	f.addDelivery(t, c.ID, targetDay.AddDate(0, 0, -1), domain.StatusSkipped)
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)

	res, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID: d.ID,
		Entries:    []domain.EntryInput{entry(1, 1, "10", "10")},
		ActualDate: datePtr(targetDay.Add(11 * time.Hour)),
	})
	require.NoError(t, err)

	require.Len(t, res.History, domain.HistoryLimit)
	assert.Equal(t, d.ID, res.History[0].ID)
	for i := 1; i < len(res.History); i++ {
		assert.True(t, res.History[i-1].ActualDate.After(*res.History[i].ActualDate))
		assert.Equal(t, domain.StatusDelivered, res.History[i].Status)
	}
}

func TestComplete_Rejections(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, nil)
	scheduled := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)
	cancelled := f.addDelivery(t, c.ID, targetDay.AddDate(0, 0, 1), domain.StatusCancelled)
	bogus := domain.PaymentType("cheque")

	cases := []struct {
		name string
		req  domain.CompleteRequest
		want error
	}{
		{
			name: "no entries",
			req:  domain.CompleteRequest{DeliveryID: scheduled.ID},
			want: domain.ErrNoEntries,
		},
		{
			name: "negative amount",
			req:  domain.CompleteRequest{DeliveryID: scheduled.ID, Entries: []domain.EntryInput{entry(1, 0, "-5", "0")}},
			want: domain.ErrNegativeAmount,
		},
		{
			name: "negative count",
			req:  domain.CompleteRequest{DeliveryID: scheduled.ID, Entries: []domain.EntryInput{entry(-1, 0, "5", "0")}},
			want: domain.ErrNegativeAmount,
		},
		{
			name: "missing entry date",
			req:  domain.CompleteRequest{DeliveryID: scheduled.ID, Entries: []domain.EntryInput{{DeliveredBottles: 1}}},
			want: domain.ErrEntryDateRequired,
		},
		{
			name: "unknown payment type",
			req:  domain.CompleteRequest{DeliveryID: scheduled.ID, Entries: []domain.EntryInput{entry(1, 0, "5", "0")}, PaymentType: &bogus},
			want: domain.ErrInvalidPayment,
		},
		{
			name: "missing delivery",
			req:  domain.CompleteRequest{DeliveryID: snowflake.ID(1), Entries: []domain.EntryInput{entry(1, 0, "5", "0")}},
			want: domain.ErrNotFound,
		},
		{
			name: "cancelled delivery",
			req:  domain.CompleteRequest{DeliveryID: cancelled.ID, Entries: []domain.EntryInput{entry(1, 0, "5", "0")}},
			want: domain.ErrDeliveryCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Complete(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	stored := f.customer(t, c.ID)
	assert.True(t, stored.Balance.IsZero())
}

func TestComplete_FieldErrorNamesEntry(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, nil)
	d := f.addDelivery(t, c.ID, targetDay, domain.StatusScheduled)

	_, err := f.svc.Complete(context.Background(), domain.CompleteRequest{
		DeliveryID: d.ID,
		Entries:    []domain.EntryInput{entry(1, 0, "5", "0"), entry(1, 0, "5", "-1")},
	})

	var fieldErr *domain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "entries[1].amountReceived", fieldErr.Field)
}
