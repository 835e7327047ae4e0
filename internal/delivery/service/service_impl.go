package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/internal/clock"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/railzwaylabs/waterline/internal/observability"
	"github.com/railzwaylabs/waterline/pkg/db"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "github.com/railzwaylabs/waterline/internal/delivery"

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	InvoiceRepo  invoicedomain.Repository
	Metrics      *observability.Metrics `optional:"true"`
	Tracer       trace.TracerProvider   `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	invoiceRepo  invoicedomain.Repository
	metrics      *observability.Metrics
	tracer       trace.Tracer
}

func New(p Params) domain.Service {
	tp := p.Tracer
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("delivery.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		invoiceRepo:  p.InvoiceRepo,
		metrics:      p.Metrics,
		tracer:       tp.Tracer(tracerName),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Delivery, error) {
	status := domain.StatusPending
	if req.Status != nil {
		status = *req.Status
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if req.PaymentType != nil && !req.PaymentType.Valid() {
		return nil, domain.ErrInvalidPayment
	}
	if req.Date.IsZero() {
		return nil, &domain.FieldError{Field: "date", Err: errors.New("required")}
	}

	date := req.Date.UTC()
	scheduled := date
	if req.ScheduledDate != nil {
		scheduled = req.ScheduledDate.UTC()
	}

	entries, err := s.buildEntries(req.Entries, false)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now(ctx)
	delivery := &domain.Delivery{
		ID:                    s.genID.Generate(),
		CustomerID:            req.CustomerID,
		DeliveryPersonID:      req.DeliveryPersonID,
		Date:                  date,
		ScheduledDate:         &scheduled,
		ActualDate:            utcPtr(req.ActualDate),
		Status:                status,
		TicketNumber:          trimPtr(req.TicketNumber),
		Code:                  trimPtr(req.Code),
		Rate:                  roundPtr(req.Rate),
		PaymentType:           req.PaymentType,
		PreviousMonthAmount:   amountOrZero(req.PreviousMonthAmount),
		CurrentMonthPaid:      amountOrZero(req.CurrentMonthPaid),
		PreviousOutstanding:   amountOrZero(req.PreviousOutstanding),
		CurrentOutstanding:    amountOrZero(req.CurrentOutstanding),
		PreviousBalance:       amountOrZero(req.PreviousBalance),
		CurrentBalance:        amountOrZero(req.CurrentBalance),
		PreviousBottleBalance: intOrZero(req.PreviousBottleBalance),
		CurrentBottleBalance:  intOrZero(req.CurrentBottleBalance),
		AmountDue:             amountOrZero(req.AmountDue),
		AmountReceived:        amountOrZero(req.AmountReceived),
		Notes:                 trimPtr(req.Notes),
		Entries:               entries,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	for i := range delivery.Entries {
		delivery.Entries[i].CreatedAt = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrInvalidReference
		}

		if status != domain.StatusCancelled {
			exists, err := s.repo.ExistsOnDay(ctx, tx, req.CustomerID, clock.StartOfDay(scheduled), 0)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateDelivery
			}
		}

		return s.repo.Insert(ctx, tx, delivery)
	})
	if err != nil {
		return nil, s.translate("create", err)
	}

	return s.Get(ctx, delivery.ID)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Delivery, error) {
	delivery, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if delivery == nil {
		return nil, domain.ErrNotFound
	}
	return delivery, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Delivery, error) {
	filter := domain.ListFilter{
		Search:           req.Search,
		Statuses:         req.Statuses,
		DeliveryPersonID: req.DeliveryPersonID,
	}
	if len(filter.Statuses) == 0 {
		filter.Statuses = []domain.Status{domain.StatusPending, domain.StatusScheduled}
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, domain.ErrInvalidStatus
		}
	}

	switch {
	case req.Date != nil:
		from := clock.StartOfDay(*req.Date)
		to := from.AddDate(0, 0, 1)
		filter.From, filter.To = &from, &to
	case req.Range != "":
		today := clock.StartOfDay(s.clock.Now(ctx))
		var from, to time.Time
		switch req.Range {
		case domain.RangeToday:
			from, to = today, today.AddDate(0, 0, 1)
		case domain.RangeTomorrow:
			from, to = today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)
		case domain.RangeWeek:
			from, to = today, today.AddDate(0, 0, 7)
		default:
			return nil, domain.ErrInvalidRange
		}
		filter.From, filter.To = &from, &to
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Delivery{}
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Delivery, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if req.PaymentType != nil && !req.PaymentType.Valid() {
		return nil, domain.ErrInvalidPayment
	}

	var entries []domain.Entry
	if req.Entries != nil {
		built, err := s.buildEntries(req.Entries, false)
		if err != nil {
			return nil, err
		}
		entries = built
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := s.repo.FindByIDForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if delivery == nil {
			return domain.ErrNotFound
		}

		before := guardedDay(delivery)
		wasLive := delivery.Status != domain.StatusCancelled

		now := s.clock.Now(ctx)
		applyUpdate(delivery, req)
		delivery.UpdatedAt = now

		after := guardedDay(delivery)
		if delivery.Status != domain.StatusCancelled && (!wasLive || !after.Equal(before)) {
			exists, err := s.repo.ExistsOnDay(ctx, tx, delivery.CustomerID, after, delivery.ID)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrDuplicateDelivery
			}
		}
		if err := s.repo.Update(ctx, tx, delivery); err != nil {
			return err
		}

		if req.Entries == nil {
			return nil
		}
		for i := range entries {
			entries[i].CreatedAt = now
		}
		return s.repo.ReplaceEntries(ctx, tx, delivery.ID, entries)
	})
	if err != nil {
		return nil, s.translate("update", err)
	}

	return s.Get(ctx, req.ID)
}

// guardedDay is the day the duplicate guard keys on: scheduled_date, or date
// when no scheduled date is set.
func guardedDay(d *domain.Delivery) time.Time {
	if d.ScheduledDate != nil {
		return clock.StartOfDay(*d.ScheduledDate)
	}
	return clock.StartOfDay(d.Date)
}

func applyUpdate(d *domain.Delivery, req domain.UpdateRequest) {
	if req.DeliveryPersonID != nil {
		d.DeliveryPersonID = req.DeliveryPersonID
	}
	if req.Date != nil {
		d.Date = req.Date.UTC()
	}
	if req.ScheduledDate != nil {
		d.ScheduledDate = utcPtr(req.ScheduledDate)
	}
	if req.ActualDate != nil {
		d.ActualDate = utcPtr(req.ActualDate)
	}
	if req.Status != nil {
		d.Status = *req.Status
	}
	if req.TicketNumber != nil {
		d.TicketNumber = trimPtr(req.TicketNumber)
	}
	if req.Code != nil {
		d.Code = trimPtr(req.Code)
	}
	if req.Rate != nil {
		d.Rate = roundPtr(req.Rate)
	}
	if req.PaymentType != nil {
		d.PaymentType = req.PaymentType
	}
	if req.Notes != nil {
		d.Notes = trimPtr(req.Notes)
	}
	setAmount(&d.PreviousMonthAmount, req.PreviousMonthAmount)
	setAmount(&d.CurrentMonthPaid, req.CurrentMonthPaid)
	setAmount(&d.PreviousOutstanding, req.PreviousOutstanding)
	setAmount(&d.CurrentOutstanding, req.CurrentOutstanding)
	setAmount(&d.PreviousBalance, req.PreviousBalance)
	setAmount(&d.CurrentBalance, req.CurrentBalance)
	setAmount(&d.AmountDue, req.AmountDue)
	setAmount(&d.AmountReceived, req.AmountReceived)
	if req.PreviousBottleBalance != nil {
		d.PreviousBottleBalance = *req.PreviousBottleBalance
	}
	if req.CurrentBottleBalance != nil {
		d.CurrentBottleBalance = *req.CurrentBottleBalance
	}
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		delivery, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if delivery == nil {
			return domain.ErrNotFound
		}
		if err := s.invoiceRepo.DeleteByDelivery(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return s.translate("delete", err)
	}
	return nil
}

func (s *Service) History(ctx context.Context, customerID snowflake.ID) ([]domain.Delivery, error) {
	items, err := s.repo.History(ctx, s.db, customerID, domain.HistoryByDate, domain.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Delivery{}
	}
	return items, nil
}

// buildEntries validates inputs and turns them into entry rows. requireOne is set
// for completion, which cannot settle a delivery without any exchange.
func (s *Service) buildEntries(inputs []domain.EntryInput, requireOne bool) ([]domain.Entry, error) {
	if requireOne && len(inputs) == 0 {
		return nil, domain.ErrNoEntries
	}

	entries := make([]domain.Entry, 0, len(inputs))
	for i, in := range inputs {
		if err := validateEntry(i, in); err != nil {
			return nil, err
		}
		entry := domain.Entry{
			ID:               s.genID.Generate(),
			Position:         i,
			EntryDate:        in.EntryDate.UTC(),
			DeliveredBottles: in.DeliveredBottles,
			DropBottle:       in.DropBottle,
			EmptyBottle:      in.EmptyBottle,
			BottleBalance:    in.BottleBalance,
			AmountDue:        in.AmountDue.Round(2),
			AmountReceived:   in.AmountReceived.Round(2),
			BalanceAmount:    in.BalanceAmount.Round(2),
			AvBottles:        in.AvBottles,
			VanAmount:        roundPtr(in.VanAmount),
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func validateEntry(i int, in domain.EntryInput) error {
	field := func(name string) string {
		return "entries[" + strconv.Itoa(i) + "]." + name
	}

	if in.EntryDate.IsZero() {
		return &domain.FieldError{Field: field("entryDate"), Err: domain.ErrEntryDateRequired}
	}
	counts := []struct {
		name  string
		value int
	}{
		{"deliveredBottles", in.DeliveredBottles},
		{"dropBottle", in.DropBottle},
		{"emptyBottle", in.EmptyBottle},
		{"bottleBalance", in.BottleBalance},
	}
	for _, c := range counts {
		if c.value < 0 {
			return &domain.FieldError{Field: field(c.name), Err: domain.ErrNegativeAmount}
		}
	}
	if in.AvBottles != nil && *in.AvBottles < 0 {
		return &domain.FieldError{Field: field("avBottles"), Err: domain.ErrNegativeAmount}
	}

	amounts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"amountDue", in.AmountDue},
		{"amountReceived", in.AmountReceived},
		{"balanceAmount", in.BalanceAmount},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			return &domain.FieldError{Field: field(a.name), Err: domain.ErrNegativeAmount}
		}
	}
	if in.VanAmount != nil && in.VanAmount.IsNegative() {
		return &domain.FieldError{Field: field("vanAmount"), Err: domain.ErrNegativeAmount}
	}
	return nil
}

func (s *Service) translate(op string, err error) error {
	var fieldErr *domain.FieldError
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrDuplicateDelivery),
		errors.Is(err, domain.ErrDeliveryCancelled),
		errors.Is(err, domain.ErrCustomerNotFound),
		errors.As(err, &fieldErr):
		return err
	case errors.Is(err, db.ErrInvalidReference):
		return domain.ErrInvalidReference
	case errors.Is(err, db.ErrConstraintViolation):
		return domain.ErrDuplicateDelivery
	}
	s.log.Error("delivery operation failed", zap.String("op", op), zap.Error(err))
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func roundPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := d.Round(2)
	return &v
}

func amountOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Round(2)
}

func setAmount(dst *decimal.Decimal, src *decimal.Decimal) {
	if src != nil {
		*dst = src.Round(2)
	}
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
