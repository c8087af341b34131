package models

import (
	"rentals/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// House is booked per night over the range [start, end).
type House struct {
	ID             uint             `gorm:"primarykey" json:"id"`
	OwnerID        uint             `gorm:"index" json:"owner_id"`
	Title          string           `json:"title"`
	Location       string           `json:"location,omitempty"`
	Images         types.StringList `gorm:"type:jsonb" json:"images,omitempty"`
	PricePerNight  decimal.Decimal  `gorm:"type:numeric(12,2)" json:"price_per_night"`
	MaxGuests      uint             `json:"max_guests"`
	AvailableDates types.StringList `gorm:"type:jsonb" json:"available_dates"`
	Version        uint             `gorm:"not null;default:0" json:"-"`

	types.Timestamps
}

func (h *House) Kind() types.RentalType     { return types.RENTAL_HOUSE }
func (h *House) ItemID() uint               { return h.ID }
func (h *House) Owner() uint                { return h.OwnerID }
func (h *House) UnitPrice() decimal.Decimal { return h.PricePerNight }
func (h *House) GuestCapacity() uint        { return h.MaxGuests }
func (h *House) Revision() uint             { return h.Version }

func (h *House) Units(start, end time.Time) int {
	return len(Nights(start, end))
}

func (h *House) Availability() Availability {
	return Availability{Dates: h.AvailableDates}
}

func (h *House) Covers(start, end time.Time) bool {
	return containsAll(h.AvailableDates, Nights(start, end))
}

func (h *House) Reserve(start, end time.Time) error {
	remaining, err := removeDates(h.AvailableDates, Nights(start, end))
	if err != nil {
		return err
	}
	h.AvailableDates = remaining
	return nil
}

func (h *House) Release(start, end time.Time) {
	h.AvailableDates = addDates(h.AvailableDates, Nights(start, end))
}

func (h *House) Reschedule(oldStart, oldEnd, newStart, newEnd time.Time) error {
	moved, err := moveDates(h.AvailableDates, Nights(oldStart, oldEnd), Nights(newStart, newEnd))
	if err != nil {
		return err
	}
	h.AvailableDates = moved
	return nil
}

func (h *House) Snapshot() Snapshot {
	return Snapshot{
		RentalType: types.RENTAL_HOUSE,
		RentalID:   h.ID,
		Title:      h.Title,
		Location:   h.Location,
		Image:      firstImage(h.Images),
	}
}
