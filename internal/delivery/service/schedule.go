package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/clock"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) RunSchedule(ctx context.Context, target time.Time) ([]domain.Delivery, error) {
	day := clock.StartOfDay(target)

	ctx, span := s.tracer.Start(ctx, "delivery.RunSchedule")
	defer span.End()
	span.SetAttributes(attribute.String("target_day", day.Format(time.DateOnly)))

	due, err := s.customerRepo.FindDue(ctx, s.db, day)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select due customers")
		s.log.Error("failed to select due customers", zap.Time("target", day), zap.Error(err))
		return nil, err
	}

	created := make([]domain.Delivery, 0, len(due))
	failures := 0
	for _, c := range due {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		delivery, err := s.scheduleCustomer(ctx, c.ID, day)
		if err != nil {
			failures++
			s.metrics.IncCustomerFailure()
			s.log.Error("failed to schedule customer",
				zap.String("customer_id", c.ID.String()),
				zap.Time("target", day),
				zap.Error(err),
			)
			continue
		}
		if delivery != nil {
			created = append(created, *delivery)
		}
	}

	s.metrics.AddDeliveriesScheduled(len(created))
	span.SetAttributes(
		attribute.Int("due_customers", len(due)),
		attribute.Int("created", len(created)),
		attribute.Int("failures", failures),
	)
	s.log.Info("schedule run finished",
		zap.Time("target", day),
		zap.Int("due", len(due)),
		zap.Int("created", len(created)),
		zap.Int("failures", failures),
	)
	return created, nil
}

// scheduleCustomer runs the guard, materializer and date advance for one
// customer under a row lock. It returns nil when nothing was created.
func (s *Service) scheduleCustomer(ctx context.Context, customerID snowflake.ID, day time.Time) (*domain.Delivery, error) {
	var created *domain.Delivery

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}

		baseline := day
		if customer.NextDeliveryDate != nil {
			baseline = clock.StartOfDay(*customer.NextDeliveryDate)
		}
		// Another run advanced the customer past day after it was selected.
		if baseline.After(day) {
			return nil
		}
		next := customer.DeliverySchedule.NextDue(baseline)

		now := s.clock.Now(ctx)
		exists, err := s.repo.ExistsOnDay(ctx, tx, customer.ID, day, 0)
		if err != nil {
			return err
		}
		if exists {
			return s.customerRepo.UpdateNextDeliveryDate(ctx, tx, customer.ID, next, now)
		}

		delivery := s.materialize(ctx, customer, day)
		if err := s.repo.Insert(ctx, tx, delivery); err != nil {
			return err
		}
		if err := s.customerRepo.UpdateNextDeliveryDate(ctx, tx, customer.ID, next, now); err != nil {
			return err
		}

		customer.NextDeliveryDate = &next
		delivery.Customer = customer
		created = delivery
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// materialize builds a SCHEDULED delivery for day with a single zeroed entry that
// snapshots the customer's running balances.
func (s *Service) materialize(ctx context.Context, customer *customerdomain.Customer, day time.Time) *domain.Delivery {
	now := s.clock.Now(ctx)
	scheduled := day
	zeroBottles := 0
	zeroAmount := decimal.Zero

	return &domain.Delivery{
		ID:                  s.genID.Generate(),
		CustomerID:          customer.ID,
		DeliveryPersonID:    customer.UserID,
		Date:                day,
		ScheduledDate:       &scheduled,
		Status:              domain.StatusScheduled,
		PreviousMonthAmount: decimal.Zero,
		CurrentMonthPaid:    decimal.Zero,
		PreviousOutstanding: decimal.Zero,
		CurrentOutstanding:  decimal.Zero,
		PreviousBalance:     decimal.Zero,
		CurrentBalance:      decimal.Zero,
		AmountDue:           decimal.Zero,
		AmountReceived:      decimal.Zero,
		Entries: []domain.Entry{{
			ID:             s.genID.Generate(),
			EntryDate:      day,
			BottleBalance:  customer.BottleBalance,
			AmountDue:      decimal.Zero,
			AmountReceived: decimal.Zero,
			BalanceAmount:  customer.Balance,
			AvBottles:      &zeroBottles,
			VanAmount:      &zeroAmount,
			CreatedAt:      now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
