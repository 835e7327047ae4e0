package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Customer, error)
	Get(ctx context.Context, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, req UpdateRequest) (*Customer, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

type CreateRequest struct {
	Name             string           `json:"name" binding:"required,min=1"`
	Address          string           `json:"address"`
	PhoneNumber      string           `json:"phoneNumber"`
	Email            *string          `json:"email" binding:"omitempty,email"`
	PricingPlan      string           `json:"pricingPlan"`
	DeliverySchedule Schedule         `json:"deliverySchedule"`
	DeliveryDay      string           `json:"deliveryDay"`
	NextDeliveryDate *time.Time       `json:"nextDeliveryDate"`
	Balance          *decimal.Decimal `json:"balance"`
	BottleBalance    *int             `json:"bottleBalance" binding:"omitempty,min=0"`
	EmptyBottles     *int             `json:"emptyBottles" binding:"omitempty,min=0"`
	UserID           *snowflake.ID    `json:"userId"`
}

type UpdateRequest struct {
	ID               snowflake.ID     `json:"-"`
	Name             *string          `json:"name" binding:"omitempty,min=1"`
	Address          *string          `json:"address"`
	PhoneNumber      *string          `json:"phoneNumber"`
	Email            *string          `json:"email" binding:"omitempty,email"`
	PricingPlan      *string          `json:"pricingPlan"`
	DeliverySchedule *Schedule        `json:"deliverySchedule"`
	DeliveryDay      *string          `json:"deliveryDay"`
	NextDeliveryDate *time.Time       `json:"nextDeliveryDate"`
	Balance          *decimal.Decimal `json:"balance"`
	BottleBalance    *int             `json:"bottleBalance" binding:"omitempty,min=0"`
	EmptyBottles     *int             `json:"emptyBottles" binding:"omitempty,min=0"`
	UserID           *snowflake.ID    `json:"userId"`
}

type ListRequest struct {
	Search string
	UserID *snowflake.ID
	Page   pagination.Pagination
}

type ListResponse struct {
	Customers []Customer          `json:"customers"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

var (
	ErrNotFound      = errors.New("customer_not_found")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidDay    = errors.New("invalid_delivery_day")
	ErrEmailExists   = errors.New("customer_email_exists")
	ErrInvalidUser   = errors.New("invalid_user_reference")
	ErrHasDeliveries = errors.New("customer_has_deliveries")
)
