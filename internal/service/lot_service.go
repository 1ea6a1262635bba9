package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"parkhub/internal/db"
	"parkhub/internal/entities"
	"parkhub/internal/repository"
)

// LotAdminStore is the lot persistence the capacity manager needs beyond
// what the pool already covers. Implemented by repository.LotRepository.
type LotAdminStore interface {
	Create(ctx context.Context, lot *db.Lot) error
	ByID(ctx context.Context, id int64) (*db.Lot, error)
	UpdateFields(ctx context.Context, lot *db.Lot) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, activeOnly bool) ([]repository.LotSummary, error)
}

// LotCache caches the public lot listing. Implementations must tolerate
// being nil-adjacent: the service works identically without one.
type LotCache interface {
	GetListing(ctx context.Context) ([]entities.LotResponse, bool)
	SetListing(ctx context.Context, lots []entities.LotResponse)
	Invalidate(ctx context.Context)
}

// LotService coordinates lot-level structural changes against the spot pool
// and translates pool errors for the admin surface. Every mutation runs
// under the pool's per-lot serialization, so structural edits never race
// with allocation or release.
type LotService struct {
	Pool  *SpotPool
	Store LotAdminStore
	Cache LotCache
}

func NewLotService(pool *SpotPool, store LotAdminStore) *LotService {
	return &LotService{Pool: pool, Store: store}
}

// CreateLot creates a lot together with its initial spot set: one free spot
// per unit of capacity.
func (s *LotService) CreateLot(ctx context.Context, req entities.LotRequest) (*db.Lot, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name required", repository.ErrValidation)
	}
	if req.HourlyPrice < 0 {
		return nil, fmt.Errorf("%w: hourly price must be non-negative", repository.ErrValidation)
	}
	if req.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must be non-negative", repository.ErrValidation)
	}

	lot := &db.Lot{
		Name:        req.Name,
		Address:     req.Address,
		PinCode:     req.PinCode,
		HourlyPrice: req.HourlyPrice,
		Capacity:    req.Capacity,
		Active:      true,
	}
	if err := s.Store.Create(ctx, lot); err != nil {
		return nil, err
	}
	if err := s.Pool.Spots.InsertMany(ctx, lot.ID, req.Capacity); err != nil {
		// A lot and its initial spot set exist together or not at all.
		if delErr := s.Store.Delete(ctx, lot.ID); delErr != nil {
			log.Printf("lot %d: removing lot after failed spot insert also failed: %v", lot.ID, delErr)
		}
		return nil, fmt.Errorf("create initial spots: %w", err)
	}
	s.invalidate(ctx)
	return lot, nil
}

// UpdateLot edits descriptive fields and, when the request carries a
// capacity, resizes through the pool. The resize runs first: a rejected
// shrink leaves the descriptive fields unchanged as well.
func (s *LotService) UpdateLot(ctx context.Context, lotID int64, req entities.LotUpdateRequest) (*db.Lot, error) {
	lot, err := s.Store.ByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: name required", repository.ErrValidation)
		}
		lot.Name = *req.Name
	}
	if req.Address != nil {
		lot.Address = *req.Address
	}
	if req.PinCode != nil {
		lot.PinCode = *req.PinCode
	}
	if req.HourlyPrice != nil {
		if *req.HourlyPrice < 0 {
			return nil, fmt.Errorf("%w: hourly price must be non-negative", repository.ErrValidation)
		}
		lot.HourlyPrice = *req.HourlyPrice
	}

	if req.Capacity != nil && *req.Capacity != lot.Capacity {
		resized, err := s.GrowOrShrink(ctx, lotID, *req.Capacity)
		if err != nil {
			return nil, err
		}
		lot.Capacity = resized.Capacity
	}

	if err := s.Store.UpdateFields(ctx, lot); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return lot, nil
}

// GrowOrShrink resizes a lot's capacity. The target must be non-negative.
func (s *LotService) GrowOrShrink(ctx context.Context, lotID int64, newCapacity int) (*db.Lot, error) {
	if newCapacity < 0 {
		return nil, fmt.Errorf("%w: capacity must be non-negative", repository.ErrValidation)
	}
	lot, err := s.Pool.Resize(ctx, lotID, newCapacity)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return lot, nil
}

// Disable takes a lot out of service. Disabling an already-disabled lot is
// rejected with ErrNoOpRejected.
func (s *LotService) Disable(ctx context.Context, lotID int64) (*db.Lot, error) {
	lot, err := s.Store.ByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if !lot.Active {
		return nil, fmt.Errorf("%w: lot already disabled", repository.ErrNoOpRejected)
	}
	disabled, err := s.Pool.Disable(ctx, lotID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return disabled, nil
}

// Restore brings a disabled lot back into service. Restoring an active lot
// is rejected with ErrNoOpRejected.
func (s *LotService) Restore(ctx context.Context, lotID int64) (*db.Lot, error) {
	lot, err := s.Store.ByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot.Active {
		return nil, fmt.Errorf("%w: lot already active", repository.ErrNoOpRejected)
	}
	restored, err := s.Pool.Restore(ctx, lotID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return restored, nil
}

// Status reports capacity and per-state spot counts for one lot.
func (s *LotService) Status(ctx context.Context, lotID int64) (*entities.LotStatusResponse, error) {
	lot, counts, err := s.Pool.Status(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return &entities.LotStatusResponse{
		LotID:    lot.ID,
		Capacity: lot.Capacity,
		Free:     counts.Free,
		Reserved: counts.Reserved,
		Disabled: counts.Disabled,
	}, nil
}

// ListPublic returns active lots with free counts, served from the cache
// when warm. The snapshot may be stale for display; allocation decisions
// never read it.
func (s *LotService) ListPublic(ctx context.Context) ([]entities.LotResponse, error) {
	if s.Cache != nil {
		if cached, ok := s.Cache.GetListing(ctx); ok {
			return cached, nil
		}
	}
	summaries, err := s.Store.List(ctx, true)
	if err != nil {
		return nil, err
	}
	lots := toLotResponses(summaries)
	if s.Cache != nil {
		s.Cache.SetListing(ctx, lots)
	}
	return lots, nil
}

// ListAll returns every lot, disabled included, for the admin surface.
func (s *LotService) ListAll(ctx context.Context) ([]entities.LotResponse, error) {
	summaries, err := s.Store.List(ctx, false)
	if err != nil {
		return nil, err
	}
	return toLotResponses(summaries), nil
}

func (s *LotService) invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	s.Cache.Invalidate(ctx)
	log.Println("lot listing cache invalidated")
}

func toLotResponses(summaries []repository.LotSummary) []entities.LotResponse {
	out := make([]entities.LotResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, entities.LotResponse{
			ID:          sum.Lot.ID,
			Name:        sum.Lot.Name,
			Address:     sum.Lot.Address,
			PinCode:     sum.Lot.PinCode,
			HourlyPrice: sum.Lot.HourlyPrice,
			Capacity:    sum.Lot.Capacity,
			Active:      sum.Lot.Active,
			FreeSpots:   sum.FreeSpots,
		})
	}
	return out
}
