package service

import (
	"context"
	"fmt"
	"sync"

	"parkhub/internal/db"
	"parkhub/internal/repository"
)

// LotStore is the lot-level persistence the spot pool needs. Implemented by
// repository.LotRepository.
type LotStore interface {
	ByID(ctx context.Context, id int64) (*db.Lot, error)
	SetCapacity(ctx context.Context, id int64, capacity int) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// SpotStore is the spot-level persistence the pool needs. Every method is a
// single atomic write or read. Implemented by repository.SpotRepository.
type SpotStore interface {
	ByID(ctx context.Context, id int64) (*db.Spot, error)
	FirstFree(ctx context.Context, lotID int64) (*db.Spot, error)
	Counts(ctx context.Context, lotID int64) (db.SpotCounts, error)
	UpdateStatus(ctx context.Context, spotID int64, from, to string) error
	UpdateAllStatus(ctx context.Context, lotID int64, from, to string) (int64, error)
	InsertMany(ctx context.Context, lotID int64, n int) error
	DeleteFree(ctx context.Context, lotID int64, n int) (int64, error)
}

// SpotPool owns every spot-state transition. Each mutating operation holds
// the owning lot's mutex across its read-check-write sequence, so operations
// on one lot are mutually exclusive in time while different lots proceed
// independently. Read-only snapshots bypass the lock and may be stale.
type SpotPool struct {
	Lots  LotStore
	Spots SpotStore

	locks sync.Map // lot id -> *sync.Mutex
}

func NewSpotPool(lots LotStore, spots SpotStore) *SpotPool {
	return &SpotPool{Lots: lots, Spots: spots}
}

func (p *SpotPool) lockLot(lotID int64) func() {
	v, _ := p.locks.LoadOrStore(lotID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Acquire hands out one free spot of the lot, atomically marked reserved.
// Fails with ErrLotInactive for disabled lots and ErrNoAvailableSpot when
// the lot is full, with no state change in either case.
func (p *SpotPool) Acquire(ctx context.Context, lotID int64) (*db.Spot, error) {
	unlock := p.lockLot(lotID)
	defer unlock()

	lot, err := p.Lots.ByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if !lot.Active {
		return nil, repository.ErrLotInactive
	}

	spot, err := p.Spots.FirstFree(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if err := p.Spots.UpdateStatus(ctx, spot.ID, db.SpotFree, db.SpotReserved); err != nil {
		return nil, fmt.Errorf("reserve spot %d: %w", spot.ID, err)
	}
	spot.Status = db.SpotReserved
	return spot, nil
}

// Release returns a reserved spot to the free state. Releasing a spot that
// is not reserved is rejected with ErrInvalidSpotState.
func (p *SpotPool) Release(ctx context.Context, spotID int64) error {
	spot, err := p.Spots.ByID(ctx, spotID)
	if err != nil {
		return err
	}

	unlock := p.lockLot(spot.LotID)
	defer unlock()

	return p.Spots.UpdateStatus(ctx, spotID, db.SpotReserved, db.SpotFree)
}

// Resize grows or shrinks a lot. Growth appends free spots; shrink removes
// free spots newest first and fails with ErrInsufficientFreeCapacity, spot
// set untouched, when not enough are free. A disabled lot only has its
// recorded capacity changed on growth; Restore reconciles the rows later.
func (p *SpotPool) Resize(ctx context.Context, lotID int64, newCapacity int) (*db.Lot, error) {
	unlock := p.lockLot(lotID)
	defer unlock()

	lot, err := p.Lots.ByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if newCapacity == lot.Capacity {
		return lot, nil
	}

	if newCapacity > lot.Capacity {
		if lot.Active {
			if err := p.Spots.InsertMany(ctx, lotID, newCapacity-lot.Capacity); err != nil {
				return nil, err
			}
		}
	} else {
		toRemove := lot.Capacity - newCapacity
		counts, err := p.Spots.Counts(ctx, lotID)
		if err != nil {
			return nil, err
		}
		if counts.Free < toRemove {
			return nil, repository.ErrInsufficientFreeCapacity
		}
		removed, err := p.Spots.DeleteFree(ctx, lotID, toRemove)
		if err != nil {
			return nil, err
		}
		if removed != int64(toRemove) {
			return nil, fmt.Errorf("expected to remove %d spots from lot %d, removed %d", toRemove, lotID, removed)
		}
	}

	if err := p.Lots.SetCapacity(ctx, lotID, newCapacity); err != nil {
		return nil, err
	}
	lot.Capacity = newCapacity
	return lot, nil
}

// Disable marks a lot inactive and every free spot disabled. Rejected with
// ErrLotHasOccupiedSpots while any spot is still reserved.
func (p *SpotPool) Disable(ctx context.Context, lotID int64) (*db.Lot, error) {
	unlock := p.lockLot(lotID)
	defer unlock()

	lot, err := p.Lots.ByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	counts, err := p.Spots.Counts(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if counts.Reserved > 0 {
		return nil, repository.ErrLotHasOccupiedSpots
	}

	if _, err := p.Spots.UpdateAllStatus(ctx, lotID, db.SpotFree, db.SpotDisabled); err != nil {
		return nil, err
	}
	if err := p.Lots.SetActive(ctx, lotID, false); err != nil {
		return nil, err
	}
	lot.Active = false
	return lot, nil
}

// Restore marks a lot active and every disabled spot free again. Spot rows
// missing against the recorded capacity (capacity edited while disabled)
// are appended as free.
func (p *SpotPool) Restore(ctx context.Context, lotID int64) (*db.Lot, error) {
	unlock := p.lockLot(lotID)
	defer unlock()

	lot, err := p.Lots.ByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if _, err := p.Spots.UpdateAllStatus(ctx, lotID, db.SpotDisabled, db.SpotFree); err != nil {
		return nil, err
	}
	counts, err := p.Spots.Counts(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if missing := lot.Capacity - counts.Total(); missing > 0 {
		if err := p.Spots.InsertMany(ctx, lotID, missing); err != nil {
			return nil, err
		}
	}
	if err := p.Lots.SetActive(ctx, lotID, true); err != nil {
		return nil, err
	}
	lot.Active = true
	return lot, nil
}

// Status reports a lot's capacity and spot-state counts. It runs lock-free;
// the snapshot may be stale by the time a subsequent acquire runs, which is
// acceptable for display and never used for allocation decisions.
func (p *SpotPool) Status(ctx context.Context, lotID int64) (*db.Lot, db.SpotCounts, error) {
	lot, err := p.Lots.ByID(ctx, lotID)
	if err != nil {
		return nil, db.SpotCounts{}, err
	}
	counts, err := p.Spots.Counts(ctx, lotID)
	if err != nil {
		return nil, db.SpotCounts{}, err
	}
	return lot, counts, nil
}
