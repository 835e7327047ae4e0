package service

import (
	"context"
	"errors"

	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type totals struct {
	delivered int
	empty     int
	due       decimal.Decimal
	received  decimal.Decimal
}

func sumEntries(entries []domain.Entry) totals {
	t := totals{due: decimal.Zero, received: decimal.Zero}
	for _, e := range entries {
		t.delivered += e.DeliveredBottles
		t.empty += e.EmptyBottle
		t.due = t.due.Add(e.AmountDue)
		t.received = t.received.Add(e.AmountReceived)
	}
	return t
}

func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) (*domain.CompleteResult, error) {
	ctx, span := s.tracer.Start(ctx, "delivery.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("delivery_id", req.DeliveryID.String()))

	if req.PaymentType != nil && !req.PaymentType.Valid() {
		return nil, domain.ErrInvalidPayment
	}
	entries, err := s.buildEntries(req.Entries, true)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	actual := now
	if req.ActualDate != nil {
		actual = req.ActualDate.UTC()
	}
	for i := range entries {
		entries[i].CreatedAt = now
	}

	var (
		invoice  invoicedomain.Invoice
		customer customerdomain.Customer
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := s.repo.FindByIDForUpdate(ctx, tx, req.DeliveryID)
		if err != nil {
			return err
		}
		if delivery == nil {
			return domain.ErrNotFound
		}
		if delivery.Status == domain.StatusCancelled {
			return domain.ErrDeliveryCancelled
		}

		c, err := s.customerRepo.FindByIDForUpdate(ctx, tx, delivery.CustomerID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrCustomerNotFound
		}

		sum := sumEntries(entries)
		prevBalance := c.Balance
		prevBottles := c.BottleBalance
		newBalance := prevBalance.Add(sum.due).Sub(sum.received).Round(2)
		newBottles := prevBottles + sum.delivered - sum.empty

		delivery.Status = domain.StatusDelivered
		delivery.ActualDate = &actual
		delivery.PreviousBalance = prevBalance
		delivery.CurrentBalance = newBalance
		delivery.PreviousBottleBalance = prevBottles
		delivery.CurrentBottleBalance = newBottles
		delivery.AmountDue = sum.due.Round(2)
		delivery.AmountReceived = sum.received.Round(2)
		if req.PaymentType != nil {
			delivery.PaymentType = req.PaymentType
		}
		delivery.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, delivery); err != nil {
			return err
		}
		if err := s.repo.ReplaceEntries(ctx, tx, delivery.ID, entries); err != nil {
			return err
		}
		if err := s.customerRepo.UpdateBalances(ctx, tx, c.ID, newBalance, newBottles, now); err != nil {
			return err
		}
		c.Balance = newBalance
		c.BottleBalance = newBottles
		c.UpdatedAt = now

		deliveryID := delivery.ID
		invoice = invoicedomain.Invoice{
			ID:          s.genID.Generate(),
			Number:      invoicedomain.NewNumber(now),
			CustomerID:  c.ID,
			DeliveryID:  &deliveryID,
			Amount:      sum.due.Round(2),
			Status:      invoicedomain.StatusForBalance(newBalance),
			Date:        actual,
			CreatedByID: req.UserID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.invoiceRepo.Insert(ctx, tx, &invoice); err != nil {
			return err
		}

		customer = *c
		return nil
	})
	if err != nil {
		var fieldErr *domain.FieldError
		if !errors.As(err, &fieldErr) && !errors.Is(err, domain.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "complete delivery")
		}
		return nil, s.translate("complete", err)
	}

	delivery, err := s.repo.FindByID(ctx, s.db, req.DeliveryID)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, domain.ErrNotFound
	}
	history, err := s.repo.History(ctx, s.db, customer.ID, domain.HistoryByActualDate, domain.HistoryLimit)
	if err != nil {
		s.log.Error("failed to load delivery history",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	if history == nil {
		history = []domain.Delivery{}
	}

	s.metrics.IncDeliveryCompleted(string(invoice.Status))
	s.log.Info("delivery completed",
		zap.String("delivery_id", delivery.ID.String()),
		zap.String("customer_id", customer.ID.String()),
		zap.String("invoice_number", invoice.Number),
		zap.String("invoice_status", string(invoice.Status)),
	)

	invoice.Customer = delivery.Customer
	return &domain.CompleteResult{
		Delivery: *delivery,
		Invoice:  invoice,
		Customer: customer,
		History:  history,
	}, nil
}
