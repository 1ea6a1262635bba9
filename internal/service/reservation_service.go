package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"parkhub/internal/db"
	"parkhub/internal/entities"
	"parkhub/internal/repository"
)

// ReservationStore is the reservation persistence the ledger needs.
// Implemented by repository.ReservationRepository.
type ReservationStore interface {
	Create(ctx context.Context, res *db.Reservation) error
	ByID(ctx context.Context, id int64) (*db.Reservation, error)
	CloseAndRelease(ctx context.Context, id, spotID int64, end time.Time, cost int64) error
	ListByUser(ctx context.Context, userID int64, statuses ...string) ([]repository.ReservationDetail, error)
}

// EventPublisher announces closed reservations to interested consumers
// (receipt mail, exports). Publishing is best effort and never affects the
// outcome of a close.
type EventPublisher interface {
	ReservationClosed(ctx context.Context, reservationID int64) error
}

// ReservationService is the reservation ledger: it creates active
// reservations against the spot pool and closes them with a computed cost.
// It owns reservation-state mutation exclusively; spot state is only ever
// touched through the pool.
type ReservationService struct {
	Pool    *SpotPool
	Billing *BillingCalculator
	Store   ReservationStore
	Lots    LotStore
	Events  EventPublisher

	now func() time.Time
}

func NewReservationService(pool *SpotPool, billing *BillingCalculator, store ReservationStore, lots LotStore) *ReservationService {
	return &ReservationService{
		Pool:    pool,
		Billing: billing,
		Store:   store,
		Lots:    lots,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create allocates a free spot in the lot and persists a new active
// reservation bound to it. Pool errors propagate unchanged. If the
// reservation cannot be persisted after a successful acquire, the spot is
// released again so no reserved spot is left orphaned.
func (s *ReservationService) Create(ctx context.Context, userID, lotID int64, vehicleTag string) (*db.Reservation, error) {
	if strings.TrimSpace(vehicleTag) == "" {
		return nil, fmt.Errorf("%w: vehicle tag required", repository.ErrValidation)
	}

	spot, err := s.Pool.Acquire(ctx, lotID)
	if err != nil {
		return nil, err
	}

	res := &db.Reservation{
		UserID:     userID,
		LotID:      lotID,
		SpotID:     spot.ID,
		VehicleTag: vehicleTag,
		Status:     db.ReservationActive,
		StartTime:  s.now(),
	}
	if err := s.Store.Create(ctx, res); err != nil {
		if relErr := s.Pool.Release(ctx, spot.ID); relErr != nil {
			log.Printf("reservation create: compensating release of spot %d failed: %v", spot.ID, relErr)
		}
		return nil, fmt.Errorf("persist reservation: %w", err)
	}
	return res, nil
}

// Close prices the stay, then persists end time, cost, the closed state and
// the freed spot as one atomic write under the lot's serialization. The
// operation is all-or-nothing: on failure the reservation stays active and
// the spot stays reserved. A second close of the same reservation fails with
// ErrAlreadyClosed.
func (s *ReservationService) Close(ctx context.Context, reservationID int64, now time.Time) (*db.Reservation, error) {
	res, err := s.Store.ByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == db.ReservationClosed {
		return nil, repository.ErrAlreadyClosed
	}

	lot, err := s.Lots.ByID(ctx, res.LotID)
	if err != nil {
		return nil, fmt.Errorf("load lot %d: %w", res.LotID, err)
	}
	cost, err := s.Billing.Price(res.StartTime, now, lot.HourlyPrice)
	if err != nil {
		return nil, err
	}

	unlock := s.Pool.lockLot(res.LotID)
	err = s.Store.CloseAndRelease(ctx, reservationID, res.SpotID, now, cost)
	unlock()
	if err != nil {
		return nil, err
	}

	end := now
	res.Status = db.ReservationClosed
	res.EndTime = &end
	res.Cost = &cost

	if s.Events != nil {
		if pubErr := s.Events.ReservationClosed(ctx, reservationID); pubErr != nil {
			log.Printf("reservation %d: publish closed event failed: %v", reservationID, pubErr)
		}
	}
	return res, nil
}

// ListForUser returns a user's reservations, newest first, optionally
// filtered by status.
func (s *ReservationService) ListForUser(ctx context.Context, userID int64, statuses ...string) ([]entities.ReservationResponse, error) {
	details, err := s.Store.ListByUser(ctx, userID, statuses...)
	if err != nil {
		return nil, err
	}
	out := make([]entities.ReservationResponse, 0, len(details))
	for _, d := range details {
		out = append(out, toReservationResponse(d))
	}
	return out, nil
}

// Summary aggregates a user's full history: totals plus weekly cost for the
// last five calendar weeks (Monday-based), oldest week first.
func (s *ReservationService) Summary(ctx context.Context, userID int64) (*entities.UserSummaryResponse, error) {
	details, err := s.Store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &entities.UserSummaryResponse{
		TotalReservations: len(details),
		History:           make([]entities.ReservationResponse, 0, len(details)),
	}
	for _, d := range details {
		r := d.Reservation
		if r.Cost != nil {
			summary.TotalCost += *r.Cost
		}
		if r.EndTime != nil {
			summary.TotalHours += r.EndTime.Sub(r.StartTime).Hours()
		}
		summary.History = append(summary.History, toReservationResponse(d))
	}

	now := s.now()
	monday := now.AddDate(0, 0, -int((now.Weekday()+6)%7))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, now.Location())
	for i := 4; i >= 0; i-- {
		weekStart := monday.AddDate(0, 0, -7*i)
		weekEnd := weekStart.AddDate(0, 0, 7)
		var cost int64
		for _, d := range details {
			r := d.Reservation
			if r.Cost != nil && !r.StartTime.Before(weekStart) && r.StartTime.Before(weekEnd) {
				cost += *r.Cost
			}
		}
		summary.Weeks = append(summary.Weeks, weekStart.Format("02 Jan"))
		summary.WeeklyCost = append(summary.WeeklyCost, cost)
	}
	return summary, nil
}

func toReservationResponse(d repository.ReservationDetail) entities.ReservationResponse {
	r := d.Reservation
	return entities.ReservationResponse{
		ID:         r.ID,
		LotID:      r.LotID,
		LotName:    d.LotName,
		SpotID:     r.SpotID,
		VehicleTag: r.VehicleTag,
		Status:     r.Status,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Cost:       r.Cost,
	}
}
