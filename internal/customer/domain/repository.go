package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ListFilter struct {
	Search string
	UserID *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	// FindByIDForUpdate locks the row for the rest of the transaction where the
	// dialect supports it.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Customer, int64, error)
	Update(ctx context.Context, db *gorm.DB, customer *Customer) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// FindDue returns every customer due on day: either their next delivery date
	// is on or before day, or they have never been scheduled and are a weekly
	// customer whose delivery weekday matches day.
	FindDue(ctx context.Context, db *gorm.DB, day time.Time) ([]Customer, error)
	UpdateNextDeliveryDate(ctx context.Context, db *gorm.DB, id snowflake.ID, next, now time.Time) error
	UpdateBalances(ctx context.Context, db *gorm.DB, id snowflake.ID, balance decimal.Decimal, bottleBalance int, now time.Time) error
}
