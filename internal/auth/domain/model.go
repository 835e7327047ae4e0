package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleDeliveryPerson Role = "DELIVERY_PERSON"
	// RoleScheduler is carried by automation callers authenticated with an API key.
	RoleScheduler Role = "SCHEDULER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeliveryPerson:
		return true
	default:
		return false
	}
}

type User struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name         string       `gorm:"not null" json:"name"`
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string       `gorm:"not null" json:"-"`
	Role         Role         `gorm:"type:varchar(32);not null" json:"role"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (User) TableName() string { return "users" }
