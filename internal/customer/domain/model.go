package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID               snowflake.ID    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name             string          `gorm:"not null" json:"name"`
	Address          string          `json:"address"`
	PhoneNumber      string          `json:"phoneNumber"`
	Email            *string         `gorm:"uniqueIndex" json:"email,omitempty"`
	PricingPlan      string          `json:"pricingPlan"`
	DeliverySchedule Schedule        `gorm:"type:varchar(16);not null;default:'WEEKLY'" json:"deliverySchedule"`
	DeliveryDay      string          `json:"deliveryDay"`
	NextDeliveryDate *time.Time      `gorm:"index" json:"nextDeliveryDate"`
	Balance          decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	BottleBalance    int             `gorm:"not null;default:0" json:"bottleBalance"`
	EmptyBottles     int             `gorm:"not null;default:0" json:"emptyBottles"`
	UserID           *snowflake.ID   `gorm:"index" json:"userId,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (Customer) TableName() string { return "customers" }
