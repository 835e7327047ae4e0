package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/railzwaylabs/waterline/internal/customer/domain"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusScheduled Status = "SCHEDULED"
	StatusDelivered Status = "DELIVERED"
	StatusSkipped   Status = "SKIPPED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusDelivered, StatusSkipped, StatusCancelled:
		return true
	default:
		return false
	}
}

type PaymentType string

const (
	PaymentCash   PaymentType = "cash"
	PaymentOnline PaymentType = "online"
	PaymentCard   PaymentType = "card"
)

func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCash, PaymentOnline, PaymentCard:
		return true
	default:
		return false
	}
}

type Delivery struct {
	ID                    snowflake.ID             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CustomerID            snowflake.ID             `gorm:"not null;index" json:"customerId"`
	Customer              *customerdomain.Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	DeliveryPersonID      *snowflake.ID            `gorm:"index" json:"deliveryPerson,omitempty"`
	Date                  time.Time                `gorm:"not null" json:"date"`
	ScheduledDate         *time.Time               `gorm:"index" json:"scheduledDate,omitempty"`
	ActualDate            *time.Time               `json:"actualDate,omitempty"`
	Status                Status                   `gorm:"type:varchar(16);not null;index" json:"status"`
	TicketNumber          *string                  `json:"ticketNumber,omitempty"`
	Code                  *string                  `json:"code,omitempty"`
	Rate                  *decimal.Decimal         `gorm:"type:numeric(14,2)" json:"rate,omitempty"`
	PaymentType           *PaymentType             `gorm:"type:varchar(16)" json:"paymentType,omitempty"`
	PreviousMonthAmount   decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"previousMonthAmount"`
	CurrentMonthPaid      decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"currentMonthPaid"`
	PreviousOutstanding   decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"previousOutstanding"`
	CurrentOutstanding    decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"currentOutstanding"`
	PreviousBalance       decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"previousBalance"`
	CurrentBalance        decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"currentBalance"`
	PreviousBottleBalance int                      `gorm:"not null;default:0" json:"previousBottleBalance"`
	CurrentBottleBalance  int                      `gorm:"not null;default:0" json:"currentBottleBalance"`
	AmountDue             decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"amountDue"`
	AmountReceived        decimal.Decimal          `gorm:"type:numeric(14,2);not null;default:0" json:"amountReceived"`
	Notes                 *string                  `json:"notes,omitempty"`
	Entries               []Entry                  `gorm:"foreignKey:DeliveryID" json:"entries"`
	CreatedAt             time.Time                `json:"createdAt"`
	UpdatedAt             time.Time                `json:"updatedAt"`
}

func (Delivery) TableName() string { return "deliveries" }

// Entry is one physical exchange within a delivery. The collection is always
// replaced as a whole.
type Entry struct {
	ID               snowflake.ID     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DeliveryID       snowflake.ID     `gorm:"not null;index" json:"deliveryId"`
	Position         int              `gorm:"not null" json:"-"`
	EntryDate        time.Time        `gorm:"not null" json:"entryDate"`
	DeliveredBottles int              `gorm:"not null;default:0" json:"deliveredBottles"`
	DropBottle       int              `gorm:"not null;default:0" json:"dropBottle"`
	EmptyBottle      int              `gorm:"not null;default:0" json:"emptyBottle"`
	BottleBalance    int              `gorm:"not null;default:0" json:"bottleBalance"`
	AmountDue        decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0" json:"amountDue"`
	AmountReceived   decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0" json:"amountReceived"`
	BalanceAmount    decimal.Decimal  `gorm:"type:numeric(14,2);not null;default:0" json:"balanceAmount"`
	AvBottles        *int             `json:"avBottles,omitempty"`
	VanAmount        *decimal.Decimal `gorm:"type:numeric(14,2)" json:"vanAmount,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
}

func (Entry) TableName() string { return "delivery_entries" }
