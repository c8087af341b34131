package models

import (
	"rentals/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// Hotel rooms are interchangeable, a booking holds one room for its nights.
type Hotel struct {
	ID               uint             `gorm:"primarykey" json:"id"`
	OwnerID          uint             `gorm:"index" json:"owner_id"`
	Name             string           `json:"name"`
	Location         string           `json:"location,omitempty"`
	Images           types.StringList `gorm:"type:jsonb" json:"images,omitempty"`
	PricePerNight    decimal.Decimal  `gorm:"type:numeric(12,2)" json:"price_per_night"`
	MaxGuestsPerRoom uint             `json:"max_guests_per_room"`
	TotalRooms       uint             `json:"total_rooms"`
	RoomsAvailable   uint             `json:"rooms_available"`
	Version          uint             `gorm:"not null;default:0" json:"-"`

	types.Timestamps
}

func (h *Hotel) Kind() types.RentalType     { return types.RENTAL_HOTEL }
func (h *Hotel) ItemID() uint               { return h.ID }
func (h *Hotel) Owner() uint                { return h.OwnerID }
func (h *Hotel) UnitPrice() decimal.Decimal { return h.PricePerNight }
func (h *Hotel) GuestCapacity() uint        { return h.MaxGuestsPerRoom }
func (h *Hotel) Revision() uint             { return h.Version }

func (h *Hotel) Units(start, end time.Time) int {
	return len(Nights(start, end))
}

func (h *Hotel) Availability() Availability {
	rooms := h.RoomsAvailable
	return Availability{Rooms: &rooms}
}

func (h *Hotel) Covers(start, end time.Time) bool {
	return h.RoomsAvailable > 0
}

func (h *Hotel) Reserve(start, end time.Time) error {
	if h.RoomsAvailable == 0 {
		return ErrOutOfInventory
	}
	h.RoomsAvailable--
	return nil
}

// Release gives a room back. A zero TotalRooms means the room count is
// not capped.
func (h *Hotel) Release(start, end time.Time) {
	if h.TotalRooms == 0 || h.RoomsAvailable < h.TotalRooms {
		h.RoomsAvailable++
	}
}

// Reschedule keeps the held room, hotel rooms are not tracked per date.
func (h *Hotel) Reschedule(oldStart, oldEnd, newStart, newEnd time.Time) error {
	return nil
}

func (h *Hotel) Snapshot() Snapshot {
	return Snapshot{
		RentalType: types.RENTAL_HOTEL,
		RentalID:   h.ID,
		Title:      h.Name,
		Location:   h.Location,
		Image:      firstImage(h.Images),
	}
}
