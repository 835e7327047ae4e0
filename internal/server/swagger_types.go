package server

import (
	deliverydomain "github.com/railzwaylabs/waterline/internal/delivery/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/railzwaylabs/waterline/pkg/db/pagination"
)

// Generic Swagger response envelopes to match API shape.
type DataResponse struct {
	Data any `json:"data"`
}

type ListResponse struct {
	Data     any                  `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}

type ErrorResponse struct {
	Error errorBody `json:"error"`
}

// CompleteResponse is returned by the completion endpoint and replayed verbatim
// for repeated Idempotency-Keys.
type CompleteResponse struct {
	Data    deliverydomain.Delivery   `json:"data"`
	Invoice invoicedomain.Invoice     `json:"invoice"`
	History []deliverydomain.Delivery `json:"history"`
}
