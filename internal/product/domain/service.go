package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Product, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id snowflake.ID) (*Product, error)
	Update(ctx context.Context, req UpdateRequest) (*Product, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

type ListRequest struct {
	Name   string
	Active *bool
	Page   pagination.Pagination
}

type ListResponse struct {
	Products []Product           `json:"products"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type CreateRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name" binding:"required"`
	Description *string         `json:"description"`
	Quantity    int             `json:"quantity" binding:"min=0"`
	Price       decimal.Decimal `json:"price"`
	Active      *bool           `json:"active"`
}

type UpdateRequest struct {
	ID          snowflake.ID     `json:"-"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Quantity    *int             `json:"quantity,omitempty" binding:"omitempty,min=0"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Active      *bool            `json:"active,omitempty"`
}

var (
	ErrInvalidCode     = errors.New("invalid_code")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrCodeExists      = errors.New("product_code_exists")
	ErrNotFound        = errors.New("product_not_found")
)
