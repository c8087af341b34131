package models

import (
	"errors"
	"rentals/src/config"
	"rentals/src/types"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var ErrOutOfInventory = errors.New("rental is not available for the requested dates")

// RentalItem is implemented by every bookable listing. Reserve and Release
// only mutate the value in memory, persisting it is up to the caller.
type RentalItem interface {
	Kind() types.RentalType
	ItemID() uint
	Owner() uint
	UnitPrice() decimal.Decimal
	// GuestCapacity is the maximum number of guests, 0 when unbounded.
	GuestCapacity() uint
	// Units is the number of billable nights or days for the range.
	Units(start, end time.Time) int
	Availability() Availability
	Covers(start, end time.Time) bool
	Reserve(start, end time.Time) error
	Release(start, end time.Time)
	// Reschedule moves a held range to a new one in a single step.
	Reschedule(oldStart, oldEnd, newStart, newEnd time.Time) error
	Snapshot() Snapshot
	Revision() uint
}

type Availability struct {
	Dates []string `json:"dates,omitempty"`
	Rooms *uint    `json:"rooms,omitempty"`
}

// Snapshot is the display data joined into booking listings.
type Snapshot struct {
	RentalType types.RentalType `json:"rentalType"`
	RentalID   uint             `json:"rentalId"`
	Title      string           `json:"title"`
	Location   string           `json:"location,omitempty"`
	Image      string           `json:"image,omitempty"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(config.DATE_FORMAT, s, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(config.DATE_FORMAT)
}

// Nights lists the dates in [start, end).
func Nights(start, end time.Time) []string {
	var dates []string
	for d := DateOnly(start); d.Before(DateOnly(end)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, FormatDate(d))
	}
	return dates
}

// Days lists the dates in [start, end].
func Days(start, end time.Time) []string {
	var dates []string
	for d := DateOnly(start); !d.After(DateOnly(end)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, FormatDate(d))
	}
	return dates
}

func containsAll(available types.StringList, dates []string) bool {
	set := make(map[string]struct{}, len(available))
	for _, d := range available {
		set[d] = struct{}{}
	}
	for _, d := range dates {
		if _, ok := set[d]; !ok {
			return false
		}
	}
	return true
}

func removeDates(available types.StringList, dates []string) (types.StringList, error) {
	if !containsAll(available, dates) {
		return available, ErrOutOfInventory
	}
	drop := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		drop[d] = struct{}{}
	}
	remaining := types.StringList{}
	for _, d := range available {
		if _, ok := drop[d]; !ok {
			remaining = append(remaining, d)
		}
	}
	return remaining, nil
}

// addDates unions dates back into the available set, keeping it sorted.
func addDates(available types.StringList, dates []string) types.StringList {
	set := make(map[string]struct{}, len(available)+len(dates))
	for _, d := range available {
		set[d] = struct{}{}
	}
	for _, d := range dates {
		set[d] = struct{}{}
	}
	merged := make(types.StringList, 0, len(set))
	for d := range set {
		merged = append(merged, d)
	}
	sort.Strings(merged)
	return merged
}

// moveDates frees old and takes new, failing without changes when any new
// date is neither free nor part of old.
func moveDates(available types.StringList, old, new []string) (types.StringList, error) {
	return removeDates(addDates(available, old), new)
}

func firstImage(images types.StringList) string {
	if len(images) == 0 {
		return ""
	}
	return images[0]
}
