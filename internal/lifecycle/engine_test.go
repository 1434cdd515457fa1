package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// memStore is an in-memory stand-in for the MySQL repositories. It
// implements SpotStore, ReservationStore and CapacityStore with the
// same semantics as the SQL: conditional transitions report whether a
// row changed, lookups return sql.ErrNoRows when nothing matches, and
// deleting a spot cascades to its reservations. The tx argument is
// ignored; tests pass nil.
type memStore struct {
	spots        map[uint64]*model.ParkingSpot
	reservations map[uint64]*model.Reservation
	nextSpotID   uint64
	nextResID    uint64

	// failReserve simulates losing the conditional update to a
	// concurrent reserver.
	failReserve bool
}

func newMemStore() *memStore {
	return &memStore{
		spots:        make(map[uint64]*model.ParkingSpot),
		reservations: make(map[uint64]*model.Reservation),
	}
}

func (m *memStore) addSpot(lotID uint64, number uint32, status string, occupant *uint64) *model.ParkingSpot {
	m.nextSpotID++
	s := &model.ParkingSpot{
		ID:         m.nextSpotID,
		LotID:      lotID,
		SpotNumber: number,
		Status:     status,
		OccupantID: occupant,
	}
	m.spots[s.ID] = s
	return s
}

func (m *memStore) GetByIDTx(_ context.Context, _ *sql.Tx, spotID uint64) (*model.ParkingSpot, error) {
	s, ok := m.spots[spotID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) HeldByUserTx(_ context.Context, _ *sql.Tx, userID uint64) (*model.ParkingSpot, error) {
	for _, s := range m.spots {
		if s.HeldBy(userID) && (s.Status == model.SpotReserved || s.Status == model.SpotOccupied) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) LowestAvailableTx(_ context.Context, _ *sql.Tx, lotID uint64) (*model.ParkingSpot, error) {
	var best *model.ParkingSpot
	for _, s := range m.spots {
		if s.LotID != lotID || s.Status != model.SpotAvailable {
			continue
		}
		if best == nil || s.SpotNumber < best.SpotNumber {
			best = s
		}
	}
	if best == nil {
		return nil, sql.ErrNoRows
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) MarkReservedTx(_ context.Context, _ *sql.Tx, spotID, userID uint64) (bool, error) {
	if m.failReserve {
		return false, nil
	}
	s, ok := m.spots[spotID]
	if !ok || s.Status != model.SpotAvailable {
		return false, nil
	}
	s.Status = model.SpotReserved
	s.OccupantID = &userID
	return true, nil
}

func (m *memStore) MarkOccupiedTx(_ context.Context, _ *sql.Tx, spotID, userID uint64) (bool, error) {
	s, ok := m.spots[spotID]
	if !ok || s.Status != model.SpotReserved || !s.HeldBy(userID) {
		return false, nil
	}
	s.Status = model.SpotOccupied
	return true, nil
}

func (m *memStore) MarkAvailableTx(_ context.Context, _ *sql.Tx, spotID, userID uint64) (bool, error) {
	s, ok := m.spots[spotID]
	if !ok || s.Status != model.SpotOccupied || !s.HeldBy(userID) {
		return false, nil
	}
	s.Status = model.SpotAvailable
	s.OccupantID = nil
	return true, nil
}

func (m *memStore) CreateTx(_ context.Context, _ *sql.Tx, res *model.Reservation) error {
	m.nextResID++
	res.ID = m.nextResID
	cp := *res
	m.reservations[res.ID] = &cp
	return nil
}

func (m *memStore) ActiveForSpotTx(_ context.Context, _ *sql.Tx, spotID, userID uint64) (*model.Reservation, error) {
	var latest *model.Reservation
	for _, r := range m.reservations {
		if r.SpotID != spotID || r.UserID != userID || r.LeavingAt != nil {
			continue
		}
		if latest == nil || r.ParkedAt.After(latest.ParkedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) RebaseStartTx(_ context.Context, _ *sql.Tx, reservationID uint64, startedAt time.Time) error {
	r, ok := m.reservations[reservationID]
	if !ok {
		return sql.ErrNoRows
	}
	r.ParkedAt = startedAt
	return nil
}

func (m *memStore) CloseTx(_ context.Context, _ *sql.Tx, reservationID uint64, leftAt time.Time) error {
	r, ok := m.reservations[reservationID]
	if !ok {
		return sql.ErrNoRows
	}
	t := leftAt
	r.LeavingAt = &t
	return nil
}

func (m *memStore) CreateRangeTx(_ context.Context, _ *sql.Tx, lotID uint64, firstNumber, lastNumber uint32) (int, error) {
	if firstNumber > lastNumber {
		return 0, nil
	}
	for n := firstNumber; n <= lastNumber; n++ {
		m.addSpot(lotID, n, model.SpotAvailable, nil)
	}
	return int(lastNumber - firstNumber + 1), nil
}

func (m *memStore) ListAboveNumberTx(_ context.Context, _ *sql.Tx, lotID uint64, number uint32) ([]model.ParkingSpot, error) {
	var out []model.ParkingSpot
	for _, s := range m.spots {
		if s.LotID == lotID && s.SpotNumber > number {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpotNumber < out[j].SpotNumber })
	return out, nil
}

func (m *memStore) DeleteTx(_ context.Context, _ *sql.Tx, spotID uint64) error {
	delete(m.spots, spotID)
	for id, r := range m.reservations {
		if r.SpotID == spotID {
			delete(m.reservations, id)
		}
	}
	return nil
}

func (m *memStore) activeCount() int {
	n := 0
	for _, r := range m.reservations {
		if r.LeavingAt == nil {
			n++
		}
	}
	return n
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testLot = &model.ParkingLot{ID: 1, Name: "Central", RatePerMin: 10, MaxSpots: 3}

func TestReserveAssignsLowestAvailableSpot(t *testing.T) {
	store := newMemStore()
	store.addSpot(1, 3, model.SpotAvailable, nil)
	store.addSpot(1, 1, model.SpotAvailable, nil)
	store.addSpot(1, 2, model.SpotAvailable, nil)

	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	eng := NewEngine(store, store)
	eng.Clock = fixedClock(now)

	got, err := eng.Reserve(context.Background(), nil, 42, testLot)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got.Spot.SpotNumber != 1 {
		t.Fatalf("assigned spot number %d, want 1", got.Spot.SpotNumber)
	}
	if got.Spot.Status != model.SpotReserved || !got.Spot.HeldBy(42) {
		t.Fatalf("spot not reserved for user: %+v", got.Spot)
	}
	if got.Reservation.RatePerMin != 10 {
		t.Fatalf("rate snapshot %v, want 10", got.Reservation.RatePerMin)
	}
	if !got.Reservation.ParkedAt.Equal(now) {
		t.Fatalf("parked at %v, want %v", got.Reservation.ParkedAt, now)
	}
	if store.activeCount() != 1 {
		t.Fatalf("active reservations = %d, want 1", store.activeCount())
	}
}

func TestReserveRejectsUserHoldingSpotInAnotherLot(t *testing.T) {
	store := newMemStore()
	holder := uint64(42)
	store.addSpot(2, 1, model.SpotOccupied, &holder)
	store.addSpot(1, 1, model.SpotAvailable, nil)

	eng := NewEngine(store, store)
	if _, err := eng.Reserve(context.Background(), nil, 42, testLot); !errors.Is(err, ErrAlreadyHoldingSpot) {
		t.Fatalf("err = %v, want ErrAlreadyHoldingSpot", err)
	}
	if store.activeCount() != 0 {
		t.Fatalf("rejected reserve left %d reservations", store.activeCount())
	}
	if s := store.spots[2]; s.Status != model.SpotAvailable {
		t.Fatalf("rejected reserve changed spot state to %s", s.Status)
	}
}

func TestReserveFullLot(t *testing.T) {
	store := newMemStore()
	other := uint64(7)
	store.addSpot(1, 1, model.SpotReserved, &other)
	store.addSpot(1, 2, model.SpotOccupied, &other)

	eng := NewEngine(store, store)
	if _, err := eng.Reserve(context.Background(), nil, 42, testLot); !errors.Is(err, ErrNoAvailableSpot) {
		t.Fatalf("err = %v, want ErrNoAvailableSpot", err)
	}
}

func TestReserveLostRace(t *testing.T) {
	store := newMemStore()
	store.addSpot(1, 1, model.SpotAvailable, nil)
	store.failReserve = true

	eng := NewEngine(store, store)
	if _, err := eng.Reserve(context.Background(), nil, 42, testLot); !errors.Is(err, ErrNoAvailableSpot) {
		t.Fatalf("err = %v, want ErrNoAvailableSpot", err)
	}
	if store.activeCount() != 0 {
		t.Fatalf("lost race still created a reservation")
	}
}

func TestOccupyRebasesReservationStart(t *testing.T) {
	store := newMemStore()
	store.addSpot(1, 1, model.SpotAvailable, nil)

	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(20 * time.Minute)

	eng := NewEngine(store, store)
	eng.Clock = fixedClock(t0)
	reserved, err := eng.Reserve(context.Background(), nil, 42, testLot)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	eng.Clock = fixedClock(t1)
	occupied, err := eng.Occupy(context.Background(), nil, 42, reserved.Spot.ID)
	if err != nil {
		t.Fatalf("Occupy: %v", err)
	}
	if occupied.ID != reserved.Reservation.ID {
		t.Fatalf("occupy opened a new reservation: %d != %d", occupied.ID, reserved.Reservation.ID)
	}
	if !occupied.ParkedAt.Equal(t1) {
		t.Fatalf("parked at %v, want rebased %v", occupied.ParkedAt, t1)
	}
	if s := store.spots[reserved.Spot.ID]; s.Status != model.SpotOccupied || !s.HeldBy(42) {
		t.Fatalf("spot after occupy: %+v", s)
	}
	if store.activeCount() != 1 {
		t.Fatalf("active reservations = %d, want 1", store.activeCount())
	}
}

func TestOccupyStateConflicts(t *testing.T) {
	holder := uint64(42)
	rival := uint64(99)

	cases := []struct {
		name     string
		status   string
		occupant *uint64
		caller   uint64
		want     error
	}{
		{"already occupied by caller", model.SpotOccupied, &holder, 42, ErrAlreadyOccupied},
		{"reserved by someone else", model.SpotReserved, &rival, 42, ErrNotYourReservation},
		{"occupied by someone else", model.SpotOccupied, &rival, 42, ErrSpotUnavailable},
		{"still available", model.SpotAvailable, nil, 42, ErrSpotUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			spot := store.addSpot(1, 1, tc.status, tc.occupant)
			eng := NewEngine(store, store)
			if _, err := eng.Occupy(context.Background(), nil, tc.caller, spot.ID); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestOccupyUnknownSpot(t *testing.T) {
	eng := NewEngine(newMemStore(), newMemStore())
	if _, err := eng.Occupy(context.Background(), nil, 42, 555); !errors.Is(err, ErrSpotNotFound) {
		t.Fatalf("err = %v, want ErrSpotNotFound", err)
	}
}

func TestOccupyWithoutReservationIsConsistencyFault(t *testing.T) {
	store := newMemStore()
	holder := uint64(42)
	spot := store.addSpot(1, 1, model.SpotReserved, &holder)
	// No reservation row exists for the spot.

	eng := NewEngine(store, store)
	if _, err := eng.Occupy(context.Background(), nil, 42, spot.ID); !errors.Is(err, ErrNoActiveReservation) {
		t.Fatalf("err = %v, want ErrNoActiveReservation", err)
	}
}

func TestReleaseClosesReservationAndFreesSpot(t *testing.T) {
	store := newMemStore()
	store.addSpot(1, 1, model.SpotAvailable, nil)

	t0 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	eng := NewEngine(store, store)
	eng.Clock = fixedClock(t0)

	reserved, err := eng.Reserve(context.Background(), nil, 42, testLot)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := eng.Occupy(context.Background(), nil, 42, reserved.Spot.ID); err != nil {
		t.Fatalf("Occupy: %v", err)
	}

	t1 := t0.Add(90 * time.Second)
	eng.Clock = fixedClock(t1)
	closed, err := eng.Release(context.Background(), nil, 42, reserved.Spot.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if closed.LeavingAt == nil || !closed.LeavingAt.Equal(t1) {
		t.Fatalf("leaving at %v, want %v", closed.LeavingAt, t1)
	}
	if !closed.ParkedAt.Equal(t0) {
		t.Fatalf("parked at %v, want %v", closed.ParkedAt, t0)
	}

	s := store.spots[reserved.Spot.ID]
	if s.Status != model.SpotAvailable || s.OccupantID != nil {
		t.Fatalf("spot after release: %+v", s)
	}
	if store.activeCount() != 0 {
		t.Fatalf("active reservations = %d, want 0", store.activeCount())
	}

	// Released spot is immediately reusable by another user.
	if _, err := eng.Reserve(context.Background(), nil, 99, testLot); err != nil {
		t.Fatalf("Reserve after release: %v", err)
	}
}

func TestReleaseStateConflicts(t *testing.T) {
	holder := uint64(42)
	rival := uint64(99)

	cases := []struct {
		name     string
		status   string
		occupant *uint64
		want     error
	}{
		{"only reserved", model.SpotReserved, &holder, ErrNotYourSpot},
		{"occupied by someone else", model.SpotOccupied, &rival, ErrNotYourSpot},
		{"available", model.SpotAvailable, nil, ErrNotYourSpot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			spot := store.addSpot(1, 1, tc.status, tc.occupant)
			eng := NewEngine(store, store)
			if _, err := eng.Release(context.Background(), nil, 42, spot.ID); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestReleaseWithoutReservationIsConsistencyFault(t *testing.T) {
	store := newMemStore()
	holder := uint64(42)
	spot := store.addSpot(1, 1, model.SpotOccupied, &holder)

	eng := NewEngine(store, store)
	if _, err := eng.Release(context.Background(), nil, 42, spot.ID); !errors.Is(err, ErrNoActiveReservation) {
		t.Fatalf("err = %v, want ErrNoActiveReservation", err)
	}
	// The fault must not free the spot; the caller rolls back anyway.
	if s := store.spots[spot.ID]; s.Status != model.SpotOccupied {
		t.Fatalf("spot status after fault: %s", s.Status)
	}
}
