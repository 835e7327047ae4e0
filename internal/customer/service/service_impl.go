package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/clock"
	"github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/pkg/db"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	day, err := normalizeWeekday(req.DeliveryDay)
	if err != nil {
		return nil, err
	}

	schedule := req.DeliverySchedule
	if schedule == "" {
		schedule = domain.ScheduleWeekly
	}

	now := s.clock.Now(ctx)
	customer := &domain.Customer{
		ID:               s.genID.Generate(),
		Name:             name,
		Address:          strings.TrimSpace(req.Address),
		PhoneNumber:      strings.TrimSpace(req.PhoneNumber),
		Email:            normalizeEmail(req.Email),
		PricingPlan:      strings.TrimSpace(req.PricingPlan),
		DeliverySchedule: schedule,
		DeliveryDay:      day,
		NextDeliveryDate: initialNextDelivery(now, schedule, day, req.NextDeliveryDate),
		Balance:          decimal.Zero,
		UserID:           req.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.Balance != nil {
		customer.Balance = req.Balance.Round(2)
	}
	if req.BottleBalance != nil {
		customer.BottleBalance = *req.BottleBalance
	}
	if req.EmptyBottles != nil {
		customer.EmptyBottles = *req.EmptyBottles
	}

	if err := s.repo.Insert(ctx, s.db, customer); err != nil {
		return nil, s.translate("create", customer.ID, err)
	}
	return customer, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	page := req.Page.Normalize()
	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Search: req.Search,
		UserID: req.UserID,
	}, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	if items == nil {
		items = []domain.Customer{}
	}
	return domain.ListResponse{
		Customers: items,
		PageInfo:  pagination.NewPageInfo(page, total),
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Customer, error) {
	var updated *domain.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.repo.FindByIDForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			customer.Name = name
		}
		if req.Address != nil {
			customer.Address = strings.TrimSpace(*req.Address)
		}
		if req.PhoneNumber != nil {
			customer.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
		}
		if req.Email != nil {
			customer.Email = normalizeEmail(req.Email)
		}
		if req.PricingPlan != nil {
			customer.PricingPlan = strings.TrimSpace(*req.PricingPlan)
		}
		if req.DeliverySchedule != nil {
			customer.DeliverySchedule = *req.DeliverySchedule
		}
		if req.DeliveryDay != nil {
			day, err := normalizeWeekday(*req.DeliveryDay)
			if err != nil {
				return err
			}
			customer.DeliveryDay = day
		}
		if req.NextDeliveryDate != nil {
			next := clock.StartOfDay(*req.NextDeliveryDate)
			customer.NextDeliveryDate = &next
		}
		if req.Balance != nil {
			customer.Balance = req.Balance.Round(2)
		}
		if req.BottleBalance != nil {
			customer.BottleBalance = *req.BottleBalance
		}
		if req.EmptyBottles != nil {
			customer.EmptyBottles = *req.EmptyBottles
		}
		if req.UserID != nil {
			customer.UserID = req.UserID
		}
		customer.UpdatedAt = s.clock.Now(ctx)

		if err := s.repo.Update(ctx, tx, customer); err != nil {
			return err
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, s.translate("update", req.ID, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if customer == nil {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, s.db, id); err != nil {
		if errors.Is(err, db.ErrInvalidReference) {
			return domain.ErrHasDeliveries
		}
		return s.translate("delete", id, err)
	}
	return nil
}

func (s *Service) translate(op string, id snowflake.ID, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrInvalidDay):
		return err
	case errors.Is(err, db.ErrConstraintViolation):
		return domain.ErrEmailExists
	case errors.Is(err, db.ErrInvalidReference):
		return domain.ErrInvalidUser
	}
	s.log.Error("customer "+op+" failed", zap.Error(err), zap.String("customer_id", id.String()))
	return err
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeWeekday(day string) (string, error) {
	day = strings.ToLower(strings.TrimSpace(day))
	if day == "" {
		return "", nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == day {
			return day, nil
		}
	}
	return "", domain.ErrInvalidDay
}

// initialNextDelivery anchors non-weekly customers on the first occurrence of
// their delivery weekday. Weekly customers without an explicit date stay on the
// weekday match path until their first scheduling pass.
func initialNextDelivery(now time.Time, schedule domain.Schedule, day string, explicit *time.Time) *time.Time {
	if explicit != nil {
		next := clock.StartOfDay(*explicit)
		return &next
	}
	if schedule == domain.ScheduleWeekly || day == "" {
		return nil
	}
	next := clock.StartOfDay(now)
	for strings.ToLower(next.Weekday().String()) != day {
		next = next.AddDate(0, 0, 1)
	}
	return &next
}
