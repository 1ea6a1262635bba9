package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkhub/internal/db"
	"parkhub/internal/repository"
)

type recordingPublisher struct {
	closed []int64
	err    error
}

func (p *recordingPublisher) ReservationClosed(ctx context.Context, reservationID int64) error {
	if p.err != nil {
		return p.err
	}
	p.closed = append(p.closed, reservationID)
	return nil
}

func newReservationFixture(store *memStore) *ReservationService {
	pool := newTestPool(store)
	svc := NewReservationService(pool, NewBillingCalculator(DefaultBillingOptions()), reservationStoreAdapter{store}, store)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return svc
}

func TestReservationCreate_BindsSpot(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 2, true)
	svc := newReservationFixture(store)
	ctx := context.Background()

	res, err := svc.Create(ctx, 7, lot.ID, "KA-01-1234")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID == 0 || res.Status != db.ReservationActive {
		t.Fatalf("reservation = %+v, want persisted active", res)
	}
	spot, err := store.spotByID(res.SpotID)
	if err != nil {
		t.Fatalf("spot %d: %v", res.SpotID, err)
	}
	if spot.Status != db.SpotReserved {
		t.Fatalf("spot status = %s, want reserved", spot.Status)
	}
	checkInvariants(t, store, lot.ID)
}

func TestReservationCreate_EmptyVehicleTagRejected(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 2, true)
	svc := newReservationFixture(store)

	_, err := svc.Create(context.Background(), 7, lot.ID, "   ")
	if !errors.Is(err, repository.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	counts, _ := store.Counts(context.Background(), lot.ID)
	if counts.Reserved != 0 {
		t.Fatalf("spot reserved despite rejected request: %+v", counts)
	}
}

func TestReservationCreate_FullLotPropagatesPoolError(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 1, true)
	svc := newReservationFixture(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 7, lot.ID, "AAA"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := svc.Create(ctx, 8, lot.ID, "BBB"); !errors.Is(err, repository.ErrNoAvailableSpot) {
		t.Fatalf("err = %v, want ErrNoAvailableSpot", err)
	}
}

func TestReservationCreate_PersistFailureReleasesSpot(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 1, true)
	svc := newReservationFixture(store)
	ctx := context.Background()

	store.failNextReservationCreate = true
	_, err := svc.Create(ctx, 7, lot.ID, "AAA")
	if !errors.Is(err, errInjected) {
		t.Fatalf("err = %v, want injected failure", err)
	}

	// The compensating release must leave the spot allocatable again.
	counts, _ := store.Counts(ctx, lot.ID)
	if counts.Free != 1 || counts.Reserved != 0 {
		t.Fatalf("counts = %+v, want spot back to free", counts)
	}
	if _, err := svc.Create(ctx, 7, lot.ID, "AAA"); err != nil {
		t.Fatalf("Create after compensation: %v", err)
	}
}

func TestReservationClose_PricesAndFreesSpot(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 1, true)
	svc := newReservationFixture(store)
	events := &recordingPublisher{}
	svc.Events = events
	ctx := context.Background()

	res, err := svc.Create(ctx, 7, lot.ID, "AAA")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	end := res.StartTime.Add(45 * time.Minute)
	closed, err := svc.Close(ctx, res.ID, end)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != db.ReservationClosed {
		t.Fatalf("status = %s, want closed", closed.Status)
	}
	if closed.Cost == nil || *closed.Cost != 30 {
		t.Fatalf("cost = %v, want 30", closed.Cost)
	}
	if closed.EndTime == nil || !closed.EndTime.Equal(end) {
		t.Fatalf("end time = %v, want %v", closed.EndTime, end)
	}

	spot, _ := store.spotByID(res.SpotID)
	if spot.Status != db.SpotFree {
		t.Fatalf("spot status = %s, want free after close", spot.Status)
	}
	if len(events.closed) != 1 || events.closed[0] != res.ID {
		t.Fatalf("published events = %v, want [%d]", events.closed, res.ID)
	}
	checkInvariants(t, store, lot.ID)
}

func TestReservationClose_DoubleCloseRejected(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 1, true)
	svc := newReservationFixture(store)
	ctx := context.Background()

	res, _ := svc.Create(ctx, 7, lot.ID, "AAA")
	end := res.StartTime.Add(time.Hour)
	if _, err := svc.Close(ctx, res.ID, end); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := svc.Close(ctx, res.ID, end.Add(time.Hour))
	if !errors.Is(err, repository.ErrAlreadyClosed) {
		t.Fatalf("err = %v, want ErrAlreadyClosed", err)
	}
	stored, _ := store.ReservationByID(ctx, res.ID)
	if stored.EndTime == nil || !stored.EndTime.Equal(end) {
		t.Fatalf("end time changed on second close: %v", stored.EndTime)
	}
}

func TestReservationClose_UnknownReservation(t *testing.T) {
	store := newMemStore()
	store.addLot(40, 1, true)
	svc := newReservationFixture(store)

	_, err := svc.Close(context.Background(), 99, time.Now().UTC())
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReservationClose_FailedWriteLeavesBothRowsUntouched(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 1, true)
	svc := newReservationFixture(store)
	ctx := context.Background()

	res, _ := svc.Create(ctx, 7, lot.ID, "AAA")

	store.failNextCloseAndRelease = true
	_, err := svc.Close(ctx, res.ID, res.StartTime.Add(time.Hour))
	if !errors.Is(err, errInjected) {
		t.Fatalf("err = %v, want injected failure", err)
	}

	// All-or-nothing: the reservation is still active, the spot still
	// reserved, and a later close works.
	stored, _ := store.ReservationByID(ctx, res.ID)
	if stored.Status != db.ReservationActive {
		t.Fatalf("status = %s, want active after failed close", stored.Status)
	}
	if stored.EndTime != nil || stored.Cost != nil {
		t.Fatalf("end/cost set despite failed close: %v %v", stored.EndTime, stored.Cost)
	}
	spot, _ := store.spotByID(res.SpotID)
	if spot.Status != db.SpotReserved {
		t.Fatalf("spot status = %s, want still reserved", spot.Status)
	}

	if _, err := svc.Close(ctx, res.ID, res.StartTime.Add(time.Hour)); err != nil {
		t.Fatalf("Close after failed write: %v", err)
	}
	checkInvariants(t, store, lot.ID)
}

func TestReservationClose_PublishFailureDoesNotFailClose(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 1, true)
	svc := newReservationFixture(store)
	svc.Events = &recordingPublisher{err: errors.New("broker down")}
	ctx := context.Background()

	res, _ := svc.Create(ctx, 7, lot.ID, "AAA")
	if _, err := svc.Close(ctx, res.ID, res.StartTime.Add(time.Hour)); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestListForUser_FiltersByStatus(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 3, true)
	svc := newReservationFixture(store)
	ctx := context.Background()

	first, _ := svc.Create(ctx, 7, lot.ID, "AAA")
	if _, err := svc.Create(ctx, 7, lot.ID, "BBB"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, 8, lot.ID, "CCC"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Close(ctx, first.ID, first.StartTime.Add(time.Hour)); err != nil {
		t.Fatalf("Close: %v", err)
	}

	all, err := svc.ListForUser(ctx, 7)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	closed, err := svc.ListForUser(ctx, 7, db.ReservationClosed)
	if err != nil {
		t.Fatalf("ListForUser closed: %v", err)
	}
	if len(closed) != 1 || closed[0].ID != first.ID {
		t.Fatalf("closed = %+v, want only reservation %d", closed, first.ID)
	}
}

func TestSummary_TotalsAndWeeklyBuckets(t *testing.T) {
	store := newMemStore()
	lot := store.addLot(40, 5, true)
	svc := newReservationFixture(store)
	ctx := context.Background()

	// Fixed clock: Monday 2026-03-02 08:00 UTC.
	res, _ := svc.Create(ctx, 7, lot.ID, "AAA")
	if _, err := svc.Close(ctx, res.ID, res.StartTime.Add(2*time.Hour)); err != nil {
		t.Fatalf("Close: %v", err)
	}

	summary, err := svc.Summary(ctx, 7)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalReservations != 1 {
		t.Fatalf("TotalReservations = %d, want 1", summary.TotalReservations)
	}
	if summary.TotalCost != 80 {
		t.Fatalf("TotalCost = %d, want 80", summary.TotalCost)
	}
	if summary.TotalHours != 2 {
		t.Fatalf("TotalHours = %v, want 2", summary.TotalHours)
	}
	if len(summary.Weeks) != 5 || len(summary.WeeklyCost) != 5 {
		t.Fatalf("weeks = %v cost = %v, want 5 buckets", summary.Weeks, summary.WeeklyCost)
	}
	// The reservation started this week, so the newest bucket carries it.
	if summary.Weeks[4] != "02 Mar" {
		t.Fatalf("newest week = %q, want %q", summary.Weeks[4], "02 Mar")
	}
	if summary.WeeklyCost[4] != 80 {
		t.Fatalf("newest week cost = %d, want 80", summary.WeeklyCost[4])
	}
	for i := 0; i < 4; i++ {
		if summary.WeeklyCost[i] != 0 {
			t.Fatalf("week %d cost = %d, want 0", i, summary.WeeklyCost[i])
		}
	}
}
