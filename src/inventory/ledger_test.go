package inventory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rentals/src/inventory"
	"rentals/src/models"
	"rentals/src/repository/memory"
	"rentals/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

// staleRepo loses the compare-and-set a fixed number of times.
type staleRepo struct {
	*memory.RentalStore
	conflicts int32
	saves     int32
}

func (r *staleRepo) Save(ctx context.Context, item models.RentalItem) (bool, error) {
	atomic.AddInt32(&r.saves, 1)
	if atomic.AddInt32(&r.conflicts, -1) >= 0 {
		return false, nil
	}
	return r.RentalStore.Save(ctx, item)
}

func TestReserveAndReleaseHouse(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRentalStore(&models.House{ID: 1, AvailableDates: types.StringList{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04"}})
	ledger := inventory.NewLedger(store)

	require.NoError(t, ledger.Reserve(ctx, types.RENTAL_HOUSE, 1, day(t, "2024-06-01"), day(t, "2024-06-04")))
	item, err := store.Find(ctx, types.RENTAL_HOUSE, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-04"}, item.Availability().Dates)
	assert.Equal(t, uint(1), item.Revision())

	err = ledger.Reserve(ctx, types.RENTAL_HOUSE, 1, day(t, "2024-06-02"), day(t, "2024-06-03"))
	assert.ErrorIs(t, err, inventory.ErrOutOfInventory)

	require.NoError(t, ledger.Release(ctx, types.RENTAL_HOUSE, 1, day(t, "2024-06-01"), day(t, "2024-06-04")))
	item, _ = store.Find(ctx, types.RENTAL_HOUSE, 1)
	assert.Equal(t, []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04"}, item.Availability().Dates)
}

func TestReserveUnknownItem(t *testing.T) {
	ledger := inventory.NewLedger(memory.NewRentalStore())

	err := ledger.Reserve(context.Background(), types.RENTAL_CAR, 9, day(t, "2024-06-01"), day(t, "2024-06-02"))
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}

func TestReserveRetriesOnVersionConflict(t *testing.T) {
	repo := &staleRepo{RentalStore: memory.NewRentalStore(&models.Hotel{ID: 3, TotalRooms: 2, RoomsAvailable: 2}), conflicts: 2}
	ledger := inventory.NewLedger(repo)

	require.NoError(t, ledger.Reserve(context.Background(), types.RENTAL_HOTEL, 3, day(t, "2024-06-01"), day(t, "2024-06-02")))
	assert.Equal(t, int32(3), repo.saves)

	item, _ := repo.Find(context.Background(), types.RENTAL_HOTEL, 3)
	assert.Equal(t, uint(1), *item.Availability().Rooms)
}

func TestReserveGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &staleRepo{RentalStore: memory.NewRentalStore(&models.Hotel{ID: 3, TotalRooms: 1, RoomsAvailable: 1}), conflicts: 100}
	ledger := inventory.NewLedger(repo)

	err := ledger.Reserve(context.Background(), types.RENTAL_HOTEL, 3, day(t, "2024-06-01"), day(t, "2024-06-02"))
	assert.ErrorIs(t, err, inventory.ErrContention)
}

func TestConcurrentReservesForLastRoom(t *testing.T) {
	store := memory.NewRentalStore(&models.Hotel{ID: 7, TotalRooms: 5, RoomsAvailable: 1})
	ledger := inventory.NewLedger(store)

	var wg sync.WaitGroup
	var succeeded, failed int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := ledger.Reserve(context.Background(), types.RENTAL_HOTEL, 7, day(t, "2024-06-01"), day(t, "2024-06-02"))
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
			} else if assert.ErrorIs(t, err, inventory.ErrOutOfInventory) {
				atomic.AddInt32(&failed, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(1), failed)
}

func TestRescheduleCar(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRentalStore(&models.Car{ID: 2, AvailableDates: types.StringList{"2024-01-13", "2024-01-14"}})
	ledger := inventory.NewLedger(store)

	// held 01-10..01-12, moving one day later
	err := ledger.Reschedule(ctx, types.RENTAL_CAR, 2, day(t, "2024-01-10"), day(t, "2024-01-12"), day(t, "2024-01-11"), day(t, "2024-01-13"))
	require.NoError(t, err)

	item, _ := store.Find(ctx, types.RENTAL_CAR, 2)
	assert.Equal(t, []string{"2024-01-10", "2024-01-14"}, item.Availability().Dates)
}
