package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/railzwaylabs/waterline/internal/clock"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	customerrepo "github.com/railzwaylabs/waterline/internal/customer/repository"
	"github.com/railzwaylabs/waterline/internal/delivery/domain"
	"github.com/railzwaylabs/waterline/internal/delivery/repository"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	invoicerepo "github.com/railzwaylabs/waterline/internal/invoice/repository"
	"github.com/railzwaylabs/waterline/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Monday.
var targetDay = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	metrics *observability.Metrics
	repo    domain.Repository
	svc     *Service
}

type fixtureOption func(*Params)

func withRepo(repo domain.Repository) fixtureOption {
	return func(p *Params) { p.Repo = repo }
}

func withClock(c clock.Clock) fixtureOption {
	return func(p *Params) { p.Clock = c }
}

func withInvoiceRepo(repo invoicedomain.Repository) fixtureOption {
	return func(p *Params) { p.InvoiceRepo = repo }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(
		&customerdomain.Customer{},
		&domain.Delivery{},
		&domain.Entry{},
		&invoicedomain.Invoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		db:      conn,
		node:    node,
		metrics: observability.NewMetrics(),
		repo:    repository.Provide(),
	}
	p := Params{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.Fixed{At: time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)},
		Repo:         f.repo,
		CustomerRepo: customerrepo.Provide(),
		InvoiceRepo:  invoicerepo.Provide(),
		Metrics:      f.metrics,
	}
	for _, opt := range opts {
		opt(&p)
	}
	f.svc = New(p).(*Service)
	return f
}

func (f *fixture) addCustomer(t *testing.T, mutate func(c *customerdomain.Customer)) *customerdomain.Customer {
	t.Helper()
	c := &customerdomain.Customer{
		ID:               f.node.Generate(),
		Name:             "Customer",
		Address:          "Jl. Merdeka 1",
		DeliverySchedule: customerdomain.ScheduleWeekly,
		DeliveryDay:      "monday",
		Balance:          decimal.Zero,
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) customer(t *testing.T, id snowflake.ID) customerdomain.Customer {
	t.Helper()
	var c customerdomain.Customer
	require.NoError(t, f.db.Where("id = ?", id).Take(&c).Error)
	return c
}

func (f *fixture) addDelivery(t *testing.T, customerID snowflake.ID, day time.Time, status domain.Status) *domain.Delivery {
	t.Helper()
	d := &domain.Delivery{
		ID:            f.node.Generate(),
		CustomerID:    customerID,
		Date:          day,
		ScheduledDate: &day,
		Status:        status,
		Entries: []domain.Entry{{
			ID:        f.node.Generate(),
			EntryDate: day,
		}},
	}
	if status == domain.StatusDelivered {
		d.ActualDate = &day
	}
	require.NoError(t, f.repo.Insert(context.Background(), f.db, d))
	return d
}

func (f *fixture) countDeliveries(t *testing.T, customerID snowflake.ID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Delivery{}).Where("customer_id = ?", customerID).Count(&n).Error)
	return n
}

func datePtr(t time.Time) *time.Time {
	return &t
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// failingInsertRepo fails Insert for one customer and delegates everything else.
type failingInsertRepo struct {
	domain.Repository
	customerID snowflake.ID
}

func (r failingInsertRepo) Insert(ctx context.Context, db *gorm.DB, d *domain.Delivery) error {
	if d.CustomerID == r.customerID {
		return gorm.ErrInvalidDB
	}
	return r.Repository.Insert(ctx, db, d)
}

type mockInvoiceRepo struct {
	mock.Mock
}

func (m *mockInvoiceRepo) Insert(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) error {
	args := m.Called(ctx, db, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	args := m.Called(ctx, db, id)
	inv, _ := args.Get(0).(*invoicedomain.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceRepo) List(ctx context.Context, db *gorm.DB, filter invoicedomain.ListFilter) ([]invoicedomain.Invoice, error) {
	args := m.Called(ctx, db, filter)
	items, _ := args.Get(0).([]invoicedomain.Invoice)
	return items, args.Error(1)
}

func (m *mockInvoiceRepo) FindEntries(ctx context.Context, db *gorm.DB, deliveryID snowflake.ID) ([]invoicedomain.EntryLine, error) {
	args := m.Called(ctx, db, deliveryID)
	lines, _ := args.Get(0).([]invoicedomain.EntryLine)
	return lines, args.Error(1)
}

func (m *mockInvoiceRepo) DeleteByDelivery(ctx context.Context, db *gorm.DB, deliveryID snowflake.ID) error {
	args := m.Called(ctx, db, deliveryID)
	return args.Error(0)
}
