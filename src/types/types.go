package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

// StringList is stored as a jsonb array.
type StringList []string

func (a StringList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *StringList) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, a)
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case nil:
		return []byte("null"), nil
	}
	return nil, errors.New("type assertion to []byte failed")
}

type Environment string

const (
	Local      Environment = "local"
	Test       Environment = "test"
	Production Environment = "production"
)

type RentalType string

const (
	RENTAL_HOUSE RentalType = "house"
	RENTAL_HOTEL RentalType = "hotel"
	RENTAL_CAR   RentalType = "car"
)

func (r RentalType) Valid() bool {
	switch r {
	case RENTAL_HOUSE, RENTAL_HOTEL, RENTAL_CAR:
		return true
	}
	return false
}

type BookingStatus string

const (
	BOOKING_PENDING   BookingStatus = "pending"
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
	BOOKING_EXPIRED   BookingStatus = "expired"
)

type Role string

const (
	ROLE_GUEST Role = "guest"
	ROLE_OWNER Role = "owner"
	ROLE_ADMIN Role = "admin"
)

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	ID   uint
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == ROLE_ADMIN
}

type SimpleRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type SessionRequestParams struct {
	SessionID string `uri:"sessionId" binding:"required"`
}

type CheckoutRequestBody struct {
	RentalType string `json:"rentalType" binding:"required,rentaltype"`
	RentalID   uint   `json:"rentalId" binding:"required"`
	StartDate  string `json:"startDate" binding:"required,isodate"`
	EndDate    string `json:"endDate" binding:"required,isodate,afterdate=StartDate"`
	Guests     uint   `json:"guests" binding:"required,min=1"`
}

type UpdateBookingDatesRequestBody struct {
	StartDate *string `json:"startDate,omitempty" binding:"omitempty,isodate"`
	EndDate   *string `json:"endDate,omitempty" binding:"omitempty,isodate"`
}
