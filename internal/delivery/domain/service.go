package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	invoicedomain "github.com/railzwaylabs/waterline/internal/invoice/domain"
	"github.com/shopspring/decimal"
)

const HistoryLimit = 5

type Service interface {
	// RunSchedule materializes deliveries for every customer due on target and
	// returns only the deliveries created by this call.
	RunSchedule(ctx context.Context, target time.Time) ([]Delivery, error)
	Complete(ctx context.Context, req CompleteRequest) (*CompleteResult, error)

	Create(ctx context.Context, req CreateRequest) (*Delivery, error)
	Get(ctx context.Context, id snowflake.ID) (*Delivery, error)
	List(ctx context.Context, req ListRequest) ([]Delivery, error)
	Update(ctx context.Context, req UpdateRequest) (*Delivery, error)
	Delete(ctx context.Context, id snowflake.ID) error
	History(ctx context.Context, customerID snowflake.ID) ([]Delivery, error)
}

type EntryInput struct {
	EntryDate        time.Time        `json:"entryDate" binding:"required"`
	DeliveredBottles int              `json:"deliveredBottles" binding:"min=0"`
	DropBottle       int              `json:"dropBottle" binding:"min=0"`
	EmptyBottle      int              `json:"emptyBottle" binding:"min=0"`
	BottleBalance    int              `json:"bottleBalance" binding:"min=0"`
	AmountDue        decimal.Decimal  `json:"amountDue"`
	AmountReceived   decimal.Decimal  `json:"amountReceived"`
	BalanceAmount    decimal.Decimal  `json:"balanceAmount"`
	AvBottles        *int             `json:"avBottles,omitempty" binding:"omitempty,min=0"`
	VanAmount        *decimal.Decimal `json:"vanAmount,omitempty"`
}

type CompleteRequest struct {
	DeliveryID  snowflake.ID  `json:"-"`
	Entries     []EntryInput  `json:"entries" binding:"required,min=1,dive"`
	PaymentType *PaymentType  `json:"paymentType,omitempty"`
	ActualDate  *time.Time    `json:"actualDate,omitempty"`
	UserID      *snowflake.ID `json:"-"`
}

type CompleteResult struct {
	Delivery Delivery                `json:"delivery"`
	Invoice  invoicedomain.Invoice   `json:"invoice"`
	Customer customerdomain.Customer `json:"customer"`
	History  []Delivery              `json:"history"`
}

type CreateRequest struct {
	CustomerID            snowflake.ID     `json:"customerId" binding:"required"`
	DeliveryPersonID      *snowflake.ID    `json:"deliveryPerson,omitempty"`
	Date                  time.Time        `json:"date" binding:"required"`
	ScheduledDate         *time.Time       `json:"scheduledDate,omitempty"`
	ActualDate            *time.Time       `json:"actualDate,omitempty"`
	Status                *Status          `json:"status,omitempty"`
	TicketNumber          *string          `json:"ticketNumber,omitempty"`
	Code                  *string          `json:"code,omitempty"`
	Rate                  *decimal.Decimal `json:"rate,omitempty"`
	PaymentType           *PaymentType     `json:"paymentType,omitempty"`
	PreviousMonthAmount   *decimal.Decimal `json:"previousMonthAmount,omitempty"`
	CurrentMonthPaid      *decimal.Decimal `json:"currentMonthPaid,omitempty"`
	PreviousOutstanding   *decimal.Decimal `json:"previousOutstanding,omitempty"`
	CurrentOutstanding    *decimal.Decimal `json:"currentOutstanding,omitempty"`
	PreviousBalance       *decimal.Decimal `json:"previousBalance,omitempty"`
	CurrentBalance        *decimal.Decimal `json:"currentBalance,omitempty"`
	PreviousBottleBalance *int             `json:"previousBottleBalance,omitempty" binding:"omitempty,min=0"`
	CurrentBottleBalance  *int             `json:"currentBottleBalance,omitempty" binding:"omitempty,min=0"`
	AmountDue             *decimal.Decimal `json:"amountDue,omitempty"`
	AmountReceived        *decimal.Decimal `json:"amountReceived,omitempty"`
	Notes                 *string          `json:"notes,omitempty"`
	Entries               []EntryInput     `json:"entries" binding:"dive"`
}

type UpdateRequest struct {
	ID                    snowflake.ID     `json:"-"`
	DeliveryPersonID      *snowflake.ID    `json:"deliveryPerson,omitempty"`
	Date                  *time.Time       `json:"date,omitempty"`
	ScheduledDate         *time.Time       `json:"scheduledDate,omitempty"`
	ActualDate            *time.Time       `json:"actualDate,omitempty"`
	Status                *Status          `json:"status,omitempty"`
	TicketNumber          *string          `json:"ticketNumber,omitempty"`
	Code                  *string          `json:"code,omitempty"`
	Rate                  *decimal.Decimal `json:"rate,omitempty"`
	PaymentType           *PaymentType     `json:"paymentType,omitempty"`
	PreviousMonthAmount   *decimal.Decimal `json:"previousMonthAmount,omitempty"`
	CurrentMonthPaid      *decimal.Decimal `json:"currentMonthPaid,omitempty"`
	PreviousOutstanding   *decimal.Decimal `json:"previousOutstanding,omitempty"`
	CurrentOutstanding    *decimal.Decimal `json:"currentOutstanding,omitempty"`
	PreviousBalance       *decimal.Decimal `json:"previousBalance,omitempty"`
	CurrentBalance        *decimal.Decimal `json:"currentBalance,omitempty"`
	PreviousBottleBalance *int             `json:"previousBottleBalance,omitempty" binding:"omitempty,min=0"`
	CurrentBottleBalance  *int             `json:"currentBottleBalance,omitempty" binding:"omitempty,min=0"`
	AmountDue             *decimal.Decimal `json:"amountDue,omitempty"`
	AmountReceived        *decimal.Decimal `json:"amountReceived,omitempty"`
	Notes                 *string          `json:"notes,omitempty"`
	// Entries, when non-nil, replaces the whole entry collection.
	Entries []EntryInput `json:"entries,omitempty" binding:"omitempty,dive"`
}

type DateRange string

const (
	RangeToday    DateRange = "today"
	RangeTomorrow DateRange = "tomorrow"
	RangeWeek     DateRange = "week"
)

type ListRequest struct {
	Search   string
	Date     *time.Time
	Range    DateRange
	Statuses []Status
	// DeliveryPersonID restricts the list to one staff member's deliveries.
	DeliveryPersonID *snowflake.ID
}

var (
	ErrNotFound          = errors.New("delivery_not_found")
	ErrCustomerNotFound  = errors.New("customer_not_found")
	ErrNoEntries         = errors.New("entries_required")
	ErrEntryDateRequired = errors.New("entry_date_required")
	ErrInvalidReference  = errors.New("invalid_customer_or_user_reference")
	ErrDuplicateDelivery = errors.New("delivery_already_scheduled")
	ErrDeliveryCancelled = errors.New("delivery_cancelled")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidPayment    = errors.New("invalid_payment_type")
	ErrInvalidRange      = errors.New("invalid_range")
	ErrNegativeAmount    = errors.New("must_not_be_negative")
)

// FieldError ties a validation failure to the offending request field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
