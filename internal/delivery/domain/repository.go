package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Search           string
	Statuses         []Status
	From             *time.Time
	To               *time.Time
	DeliveryPersonID *snowflake.ID
	CustomerID       *snowflake.ID
}

type HistoryOrder string

const (
	HistoryByDate       HistoryOrder = "date"
	HistoryByActualDate HistoryOrder = "actual_date"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, delivery *Delivery) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Delivery, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Delivery, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Delivery, error)
	Update(ctx context.Context, db *gorm.DB, delivery *Delivery) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// ReplaceEntries deletes every entry of the delivery and inserts entries in order.
	ReplaceEntries(ctx context.Context, db *gorm.DB, deliveryID snowflake.ID, entries []Entry) error

	// ExistsOnDay reports whether a non-cancelled delivery for the customer is
	// scheduled within [day, day+1). A non-zero exclude skips that delivery.
	ExistsOnDay(ctx context.Context, db *gorm.DB, customerID snowflake.ID, day time.Time, exclude snowflake.ID) (bool, error)

	// History returns the customer's latest delivered deliveries.
	History(ctx context.Context, db *gorm.DB, customerID snowflake.ID, order HistoryOrder, limit int) ([]Delivery, error)
}
