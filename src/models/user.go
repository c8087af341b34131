package models

import (
	"rentals/src/types"
)

type User struct {
	ID    uint       `gorm:"primarykey" json:"id"`
	Name  string     `json:"name,omitempty"`
	Email string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Role  types.Role `gorm:"default:guest" json:"role,omitempty"`

	Bookings []Booking `gorm:"foreignKey:renter_id" json:"bookings,omitempty"`

	types.Timestamps
}
