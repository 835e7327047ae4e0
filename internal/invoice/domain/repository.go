package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Invoice, error)
	FindEntries(ctx context.Context, db *gorm.DB, deliveryID snowflake.ID) ([]EntryLine, error)
	DeleteByDelivery(ctx context.Context, db *gorm.DB, deliveryID snowflake.ID) error
}
