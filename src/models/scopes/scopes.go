package scopes

import (
	"rentals/src/types"
	"time"

	"gorm.io/gorm"
)

func WithID(id any) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id = ?", id)
	}
}

func WithStatus(statuses ...types.BookingStatus) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(statuses) == 1 {
			return db.Where("status = ?", statuses[0])
		}
		return db.Where("status IN ?", statuses)
	}
}

func WithPendingStatus(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", types.BOOKING_PENDING)
}

// Active bookings hold or are about to hold inventory.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", []types.BookingStatus{types.BOOKING_PENDING, types.BOOKING_CONFIRMED})
}

func ForRenter(renterID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("renter_id = ?", renterID)
	}
}

func ForRental(kind types.RentalType, rentalID uint) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("rental_type = ? AND rental_id = ?", kind, rentalID)
	}
}

func Reconciled(db *gorm.DB) *gorm.DB {
	return db.Where("needs_reconciliation = ?", false)
}

func CreatedBefore(t time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at < ?", t)
	}
}
