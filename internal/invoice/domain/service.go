package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	Get(ctx context.Context, id snowflake.ID) (*Detail, error)
	RenderPDF(ctx context.Context, id snowflake.ID) ([]byte, error)
}

type ListFilter struct {
	CustomerID *snowflake.ID
	Status     *Status
	Limit      int
}

const DefaultListLimit = 100

var (
	ErrNotFound = errors.New("invoice_not_found")
)
