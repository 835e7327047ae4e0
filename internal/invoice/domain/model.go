package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPaid   Status = "PAID"
	StatusUnpaid Status = "UNPAID"
)

// StatusForBalance settles an invoice when the customer owes nothing after it.
func StatusForBalance(balance decimal.Decimal) Status {
	if balance.LessThanOrEqual(decimal.Zero) {
		return StatusPaid
	}
	return StatusUnpaid
}

type Invoice struct {
	ID          snowflake.ID             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Number      string                   `gorm:"uniqueIndex;not null" json:"number"`
	CustomerID  snowflake.ID             `gorm:"not null;index" json:"customerId"`
	Customer    *customerdomain.Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	DeliveryID  *snowflake.ID            `gorm:"index" json:"deliveryId,omitempty"`
	Amount      decimal.Decimal          `gorm:"type:numeric(14,2);not null" json:"amount"`
	Status      Status                   `gorm:"type:varchar(16);not null" json:"status"`
	Date        time.Time                `gorm:"not null" json:"date"`
	CreatedByID *snowflake.ID            `json:"createdById,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

func (Invoice) TableName() string { return "invoices" }

// NewNumber returns a sortable, human-readable invoice number.
func NewNumber(at time.Time) string {
	return "INV-" + ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}

// EntryLine is the invoice's view of a delivery entry.
type EntryLine struct {
	EntryDate        time.Time       `json:"entryDate"`
	DeliveredBottles int             `json:"deliveredBottles"`
	EmptyBottle      int             `json:"emptyBottle"`
	AmountDue        decimal.Decimal `json:"amountDue"`
	AmountReceived   decimal.Decimal `json:"amountReceived"`
	BalanceAmount    decimal.Decimal `json:"balanceAmount"`
}

type Detail struct {
	Invoice
	Entries []EntryLine `json:"entries"`
}
