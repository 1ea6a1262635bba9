package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"parkhub/internal/db"
	"parkhub/internal/repository"
)

// memStore is an in-memory implementation of the store interfaces the
// services depend on. Like the SQL repositories, each method is an atomic
// operation guarded by a single mutex.
type memStore struct {
	mu           sync.Mutex
	lots         map[int64]*db.Lot
	spots        map[int64]*db.Spot
	reservations map[int64]*db.Reservation
	users        map[int64]*db.User
	nextLotID    int64
	nextSpotID   int64
	nextResID    int64

	failNextReservationCreate bool
	failNextCloseAndRelease   bool
	failNextSpotInsert        bool
}

var errInjected = errors.New("injected store failure")

var (
	_ LotStore         = (*memStore)(nil)
	_ LotAdminStore    = (*memStore)(nil)
	_ JobStore         = (*memStore)(nil)
	_ SpotStore        = spotStoreAdapter{}
	_ ReservationStore = reservationStoreAdapter{}
)

func newMemStore() *memStore {
	return &memStore{
		lots:         make(map[int64]*db.Lot),
		spots:        make(map[int64]*db.Spot),
		reservations: make(map[int64]*db.Reservation),
		users:        make(map[int64]*db.User),
	}
}

func (m *memStore) addLot(price float64, capacity int, active bool) *db.Lot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLotID++
	lot := &db.Lot{
		ID:          m.nextLotID,
		Name:        "lot",
		HourlyPrice: price,
		Capacity:    capacity,
		Active:      active,
	}
	m.lots[lot.ID] = lot
	status := db.SpotFree
	if !active {
		status = db.SpotDisabled
	}
	for i := 0; i < capacity; i++ {
		m.nextSpotID++
		m.spots[m.nextSpotID] = &db.Spot{ID: m.nextSpotID, LotID: lot.ID, Status: status}
	}
	cp := *lot
	return &cp
}

// LotStore / LotAdminStore

func (m *memStore) ByID(ctx context.Context, id int64) (*db.Lot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *lot
	return &cp, nil
}

func (m *memStore) SetCapacity(ctx context.Context, id int64, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return repository.ErrNotFound
	}
	lot.Capacity = capacity
	return nil
}

func (m *memStore) SetActive(ctx context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lot, ok := m.lots[id]
	if !ok {
		return repository.ErrNotFound
	}
	lot.Active = active
	return nil
}

func (m *memStore) Create(ctx context.Context, lot *db.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLotID++
	lot.ID = m.nextLotID
	cp := *lot
	m.lots[lot.ID] = &cp
	return nil
}

func (m *memStore) UpdateFields(ctx context.Context, lot *db.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.lots[lot.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Name = lot.Name
	stored.Address = lot.Address
	stored.PinCode = lot.PinCode
	stored.HourlyPrice = lot.HourlyPrice
	return nil
}

func (m *memStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.lots, id)
	for spotID, s := range m.spots {
		if s.LotID == id {
			delete(m.spots, spotID)
		}
	}
	return nil
}

func (m *memStore) List(ctx context.Context, activeOnly bool) ([]repository.LotSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.LotSummary
	for _, lot := range m.lots {
		if activeOnly && !lot.Active {
			continue
		}
		free := 0
		for _, s := range m.spots {
			if s.LotID == lot.ID && s.Status == db.SpotFree {
				free++
			}
		}
		out = append(out, repository.LotSummary{Lot: *lot, FreeSpots: free})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lot.ID < out[j].Lot.ID })
	return out, nil
}

// SpotStore

func (m *memStore) spotByID(id int64) (*db.Spot, error) {
	spot, ok := m.spots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return spot, nil
}

func (m *memStore) FirstFree(ctx context.Context, lotID int64) (*db.Spot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *db.Spot
	for _, s := range m.spots {
		if s.LotID == lotID && s.Status == db.SpotFree && (best == nil || s.ID < best.ID) {
			best = s
		}
	}
	if best == nil {
		return nil, repository.ErrNoAvailableSpot
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) Counts(ctx context.Context, lotID int64) (db.SpotCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c db.SpotCounts
	for _, s := range m.spots {
		if s.LotID != lotID {
			continue
		}
		switch s.Status {
		case db.SpotFree:
			c.Free++
		case db.SpotReserved:
			c.Reserved++
		case db.SpotDisabled:
			c.Disabled++
		}
	}
	return c, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, spotID int64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	spot, err := m.spotByID(spotID)
	if err != nil {
		return err
	}
	if spot.Status != from {
		return repository.ErrInvalidSpotState
	}
	spot.Status = to
	return nil
}

func (m *memStore) UpdateAllStatus(ctx context.Context, lotID int64, from, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.spots {
		if s.LotID == lotID && s.Status == from {
			s.Status = to
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertMany(ctx context.Context, lotID int64, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextSpotInsert {
		m.failNextSpotInsert = false
		return errInjected
	}
	for i := 0; i < n; i++ {
		m.nextSpotID++
		m.spots[m.nextSpotID] = &db.Spot{ID: m.nextSpotID, LotID: lotID, Status: db.SpotFree}
	}
	return nil
}

func (m *memStore) DeleteFree(ctx context.Context, lotID int64, n int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var free []int64
	for _, s := range m.spots {
		if s.LotID == lotID && s.Status == db.SpotFree {
			free = append(free, s.ID)
		}
	}
	sort.Slice(free, func(i, j int) bool { return free[i] > free[j] })
	if n > len(free) {
		n = len(free)
	}
	for _, id := range free[:n] {
		delete(m.spots, id)
	}
	return int64(n), nil
}

// ReservationStore

func (m *memStore) CreateReservation(ctx context.Context, res *db.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextReservationCreate {
		m.failNextReservationCreate = false
		return errInjected
	}
	m.nextResID++
	res.ID = m.nextResID
	cp := *res
	m.reservations[res.ID] = &cp
	return nil
}

func (m *memStore) ReservationByID(ctx context.Context, id int64) (*db.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

// CloseAndReleaseReservation mirrors the production behavior: both rows
// change together or neither does.
func (m *memStore) CloseAndReleaseReservation(ctx context.Context, id, spotID int64, end time.Time, cost int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextCloseAndRelease {
		m.failNextCloseAndRelease = false
		return errInjected
	}
	res, ok := m.reservations[id]
	if !ok || res.Status != db.ReservationActive {
		return repository.ErrAlreadyClosed
	}
	spot, ok := m.spots[spotID]
	if !ok || spot.Status != db.SpotReserved {
		return repository.ErrInvalidSpotState
	}
	endCopy := end
	res.Status = db.ReservationClosed
	res.EndTime = &endCopy
	res.Cost = &cost
	spot.Status = db.SpotFree
	return nil
}

func (m *memStore) ListReservationsByUser(ctx context.Context, userID int64, statuses ...string) ([]repository.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ReservationDetail
	for _, res := range m.reservations {
		if res.UserID != userID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if res.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		lotName := ""
		if lot, ok := m.lots[res.LotID]; ok {
			lotName = lot.Name
		}
		out = append(out, repository.ReservationDetail{Reservation: *res, LotName: lotName})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Reservation.StartTime.After(out[j].Reservation.StartTime)
	})
	return out, nil
}

// JobStore

func (m *memStore) addUser(username, name string) *db.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := int64(len(m.users) + 1)
	user := &db.User{ID: id, Username: username, Name: name, Role: db.RoleUser}
	m.users[id] = user
	cp := *user
	return &cp
}

func (m *memStore) detail(res *db.Reservation) repository.ReservationDetail {
	d := repository.ReservationDetail{Reservation: *res}
	if user, ok := m.users[res.UserID]; ok {
		d.Username = user.Username
		d.UserName = user.Name
	}
	if lot, ok := m.lots[res.LotID]; ok {
		d.LotName = lot.Name
	}
	return d
}

func (m *memStore) ListActive(ctx context.Context) ([]repository.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ReservationDetail
	for _, res := range m.reservations {
		if res.Status == db.ReservationActive {
			out = append(out, m.detail(res))
		}
	}
	return out, nil
}

func (m *memStore) ListClosedBetween(ctx context.Context, from, to time.Time) ([]repository.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.ReservationDetail
	for _, res := range m.reservations {
		if res.Status != db.ReservationClosed || res.EndTime == nil {
			continue
		}
		if res.EndTime.Before(from) || !res.EndTime.Before(to) {
			continue
		}
		out = append(out, m.detail(res))
	}
	return out, nil
}

// spotStoreAdapter exposes memStore as a SpotStore. The lot-store ByID on
// memStore returns lots, so the spot lookup needs its own method set.
type spotStoreAdapter struct {
	*memStore
}

func (a spotStoreAdapter) ByID(ctx context.Context, id int64) (*db.Spot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	spot, err := a.spotByID(id)
	if err != nil {
		return nil, err
	}
	cp := *spot
	return &cp, nil
}

// reservationStoreAdapter renames the memStore reservation methods onto the
// ReservationStore interface, which shares method names with LotAdminStore.
type reservationStoreAdapter struct {
	*memStore
}

func (a reservationStoreAdapter) Create(ctx context.Context, res *db.Reservation) error {
	return a.CreateReservation(ctx, res)
}

func (a reservationStoreAdapter) ByID(ctx context.Context, id int64) (*db.Reservation, error) {
	return a.ReservationByID(ctx, id)
}

func (a reservationStoreAdapter) CloseAndRelease(ctx context.Context, id, spotID int64, end time.Time, cost int64) error {
	return a.CloseAndReleaseReservation(ctx, id, spotID, end, cost)
}

func (a reservationStoreAdapter) ListByUser(ctx context.Context, userID int64, statuses ...string) ([]repository.ReservationDetail, error) {
	return a.ListReservationsByUser(ctx, userID, statuses...)
}

// checkInvariants asserts the structural invariants that must hold after
// every committed mutation.
func checkInvariants(t *testing.T, store *memStore, lotID int64) {
	t.Helper()
	ctx := context.Background()
	lot, err := store.ByID(ctx, lotID)
	if err != nil {
		t.Fatalf("lot %d: %v", lotID, err)
	}
	counts, err := store.Counts(ctx, lotID)
	if err != nil {
		t.Fatalf("counts for lot %d: %v", lotID, err)
	}
	if lot.Active {
		if counts.Disabled != 0 {
			t.Fatalf("active lot %d has %d disabled spots", lotID, counts.Disabled)
		}
		if counts.Free+counts.Reserved != lot.Capacity {
			t.Fatalf("active lot %d: free(%d)+reserved(%d) != capacity(%d)",
				lotID, counts.Free, counts.Reserved, lot.Capacity)
		}
	}
	seen := make(map[int64]int)
	for _, res := range store.reservations {
		if res.Status == db.ReservationActive && res.LotID == lotID {
			seen[res.SpotID]++
		}
	}
	for spotID, n := range seen {
		if n > 1 {
			t.Fatalf("spot %d referenced by %d active reservations", spotID, n)
		}
		spot, ok := store.spots[spotID]
		if ok && spot.Status != db.SpotReserved {
			t.Fatalf("spot %d has active reservation but status %s", spotID, spot.Status)
		}
	}
}
