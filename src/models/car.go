package models

import (
	"rentals/src/types"
	"time"

	"github.com/shopspring/decimal"
)

// Car is rented per day, both the pickup and the return date are booked.
type Car struct {
	ID             uint             `gorm:"primarykey" json:"id"`
	OwnerID        uint             `gorm:"index" json:"owner_id"`
	Make           string           `json:"make"`
	Model          string           `json:"model"`
	Location       string           `json:"location,omitempty"`
	Images         types.StringList `gorm:"type:jsonb" json:"images,omitempty"`
	PricePerDay    decimal.Decimal  `gorm:"type:numeric(12,2)" json:"price_per_day"`
	Seats          uint             `json:"seats"`
	AvailableDates types.StringList `gorm:"type:jsonb" json:"available_dates"`
	Version        uint             `gorm:"not null;default:0" json:"-"`

	types.Timestamps
}

func (c *Car) Kind() types.RentalType     { return types.RENTAL_CAR }
func (c *Car) ItemID() uint               { return c.ID }
func (c *Car) Owner() uint                { return c.OwnerID }
func (c *Car) UnitPrice() decimal.Decimal { return c.PricePerDay }
func (c *Car) GuestCapacity() uint        { return c.Seats }
func (c *Car) Revision() uint             { return c.Version }

func (c *Car) Units(start, end time.Time) int {
	return len(Days(start, end))
}

func (c *Car) Availability() Availability {
	return Availability{Dates: c.AvailableDates}
}

func (c *Car) Covers(start, end time.Time) bool {
	return containsAll(c.AvailableDates, Days(start, end))
}

func (c *Car) Reserve(start, end time.Time) error {
	remaining, err := removeDates(c.AvailableDates, Days(start, end))
	if err != nil {
		return err
	}
	c.AvailableDates = remaining
	return nil
}

func (c *Car) Release(start, end time.Time) {
	c.AvailableDates = addDates(c.AvailableDates, Days(start, end))
}

func (c *Car) Reschedule(oldStart, oldEnd, newStart, newEnd time.Time) error {
	moved, err := moveDates(c.AvailableDates, Days(oldStart, oldEnd), Days(newStart, newEnd))
	if err != nil {
		return err
	}
	c.AvailableDates = moved
	return nil
}

func (c *Car) Snapshot() Snapshot {
	return Snapshot{
		RentalType: types.RENTAL_CAR,
		RentalID:   c.ID,
		Title:      c.Make + " " + c.Model,
		Location:   c.Location,
		Image:      firstImage(c.Images),
	}
}
