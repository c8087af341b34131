package repository

import (
	"context"
	"errors"
	"fmt"
	"rentals/src/inventory"
	"rentals/src/models"
	"rentals/src/models/scopes"
	"rentals/src/types"

	"gorm.io/gorm"
)

type RentalRepository struct {
	db *gorm.DB
}

func NewRentalRepository(db *gorm.DB) *RentalRepository {
	return &RentalRepository{db: db}
}

func newItem(kind types.RentalType) (models.RentalItem, error) {
	switch kind {
	case types.RENTAL_HOUSE:
		return &models.House{}, nil
	case types.RENTAL_HOTEL:
		return &models.Hotel{}, nil
	case types.RENTAL_CAR:
		return &models.Car{}, nil
	}
	return nil, fmt.Errorf("unknown rental type %q", kind)
}

func (r *RentalRepository) Find(ctx context.Context, kind types.RentalType, id uint) (models.RentalItem, error) {
	item, err := newItem(kind)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Scopes(scopes.WithID(id)).First(item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// Save writes the availability columns only if nobody else changed the row
// since it was read.
func (r *RentalRepository) Save(ctx context.Context, item models.RentalItem) (bool, error) {
	cols := map[string]any{"version": item.Revision() + 1}
	switch v := item.(type) {
	case *models.House:
		cols["available_dates"] = v.AvailableDates
	case *models.Car:
		cols["available_dates"] = v.AvailableDates
	case *models.Hotel:
		cols["rooms_available"] = v.RoomsAvailable
	default:
		return false, fmt.Errorf("unsupported rental %T", item)
	}
	res := r.db.WithContext(ctx).
		Model(item).
		Where("version = ?", item.Revision()).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
