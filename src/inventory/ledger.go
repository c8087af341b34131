package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"rentals/src/models"
	"rentals/src/types"
	"time"
)

var (
	ErrOutOfInventory = models.ErrOutOfInventory
	ErrItemNotFound   = errors.New("rental not found")
	// ErrContention is returned when every compare-and-set attempt lost a race.
	ErrContention = errors.New("rental is being updated concurrently, try again")
)

const defaultMaxAttempts = 5

// Repository loads and stores rental items. Save must only succeed when the
// stored version still equals item.Revision(), bumping it on success.
type Repository interface {
	Find(ctx context.Context, kind types.RentalType, id uint) (models.RentalItem, error)
	Save(ctx context.Context, item models.RentalItem) (bool, error)
}

// Ledger is the only writer of rental availability.
type Ledger struct {
	repo        Repository
	maxAttempts int
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, maxAttempts: defaultMaxAttempts}
}

func (l *Ledger) Find(ctx context.Context, kind types.RentalType, id uint) (models.RentalItem, error) {
	return l.repo.Find(ctx, kind, id)
}

// Reserve removes the booked range from the item's availability.
func (l *Ledger) Reserve(ctx context.Context, kind types.RentalType, id uint, start, end time.Time) error {
	return l.apply(ctx, kind, id, func(item models.RentalItem) error {
		return item.Reserve(start, end)
	})
}

// Release gives the booked range back. It is safe to call for a range that
// was never reserved.
func (l *Ledger) Release(ctx context.Context, kind types.RentalType, id uint, start, end time.Time) error {
	return l.apply(ctx, kind, id, func(item models.RentalItem) error {
		item.Release(start, end)
		return nil
	})
}

// Reschedule moves a held range to a new one. The new range is taken and the
// old one returned in the same write, so nothing can grab the freed dates
// in between.
func (l *Ledger) Reschedule(ctx context.Context, kind types.RentalType, id uint, oldStart, oldEnd, newStart, newEnd time.Time) error {
	return l.apply(ctx, kind, id, func(item models.RentalItem) error {
		return item.Reschedule(oldStart, oldEnd, newStart, newEnd)
	})
}

func (l *Ledger) apply(ctx context.Context, kind types.RentalType, id uint, mutate func(models.RentalItem) error) error {
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := l.repo.Find(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := mutate(item); err != nil {
			return err
		}
		saved, err := l.repo.Save(ctx, item)
		if err != nil {
			return fmt.Errorf("saving %s %d: %w", kind, id, err)
		}
		if saved {
			return nil
		}
		log.Printf("[Inventory] version conflict on %s %d, attempt %d/%d\n", kind, id, attempt, l.maxAttempts)
	}
	return ErrContention
}
