package models

import (
	"rentals/src/types"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Booking struct {
	ID                  uuid.UUID           `gorm:"primarykey;type:uuid" json:"id"`
	RenterID            uint                `gorm:"index" json:"renter_id"`
	RentalType          types.RentalType    `gorm:"index:idx_booking_rental" json:"rental_type"`
	RentalID            uint                `gorm:"index:idx_booking_rental" json:"rental_id"`
	StartDate           time.Time           `gorm:"type:date" json:"start_date"`
	EndDate             time.Time           `gorm:"type:date" json:"end_date"`
	Guests              uint                `json:"guests"`
	TotalPrice          decimal.Decimal     `gorm:"type:numeric(12,2)" json:"total_price"`
	Currency            string              `json:"currency"`
	Status              types.BookingStatus `gorm:"index;default:pending" json:"status"`
	CheckoutSessionID   *string             `gorm:"uniqueIndex" json:"checkout_session_id,omitempty"`
	PaymentID           *string             `json:"payment_id,omitempty"`
	PaidAt              *time.Time          `json:"paid_at,omitempty"`
	RefundAmount        *decimal.Decimal    `gorm:"type:numeric(12,2)" json:"refund_amount,omitempty"`
	RefundPercentage    *int                `json:"refund_percentage,omitempty"`
	RefundReference     *string             `json:"refund_reference,omitempty"`
	CancelledAt         *time.Time          `json:"cancelled_at,omitempty"`
	NeedsReconciliation bool                `gorm:"default:false" json:"needs_reconciliation,omitempty"`
	ReconciliationNote  *string             `json:"reconciliation_note,omitempty"`

	Renter *User `gorm:"foreignKey:renter_id" json:"renter,omitempty"`

	types.Timestamps
}

// BookingChanges holds the columns written together with a status transition.
type BookingChanges struct {
	Status           types.BookingStatus
	PaymentID        *string
	PaidAt           *time.Time
	RefundAmount     *decimal.Decimal
	RefundPercentage *int
	RefundReference  *string
	CancelledAt      *time.Time
}

// Apply copies the changes onto b.
func (c BookingChanges) Apply(b *Booking) {
	b.Status = c.Status
	if c.PaymentID != nil {
		b.PaymentID = c.PaymentID
	}
	if c.PaidAt != nil {
		b.PaidAt = c.PaidAt
	}
	if c.RefundAmount != nil {
		b.RefundAmount = c.RefundAmount
	}
	if c.RefundPercentage != nil {
		b.RefundPercentage = c.RefundPercentage
	}
	if c.RefundReference != nil {
		b.RefundReference = c.RefundReference
	}
	if c.CancelledAt != nil {
		b.CancelledAt = c.CancelledAt
	}
}

// Columns maps the changes to the column names used by the update.
func (c BookingChanges) Columns() map[string]any {
	cols := map[string]any{"status": c.Status}
	if c.PaymentID != nil {
		cols["payment_id"] = *c.PaymentID
	}
	if c.PaidAt != nil {
		cols["paid_at"] = *c.PaidAt
	}
	if c.RefundAmount != nil {
		cols["refund_amount"] = *c.RefundAmount
	}
	if c.RefundPercentage != nil {
		cols["refund_percentage"] = *c.RefundPercentage
	}
	if c.RefundReference != nil {
		cols["refund_reference"] = *c.RefundReference
	}
	if c.CancelledAt != nil {
		cols["cancelled_at"] = *c.CancelledAt
	}
	return cols
}

// BookingView is a booking joined with the display data of its rental.
type BookingView struct {
	Booking
	Rental *Snapshot `json:"rental,omitempty"`
}
