package lifecycle

import (
	"context"
	"strings"
	"testing"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

func spotNumbers(m *memStore, lotID uint64) []uint32 {
	spots, _ := m.ListAboveNumberTx(context.Background(), nil, lotID, 0)
	nums := make([]uint32, 0, len(spots))
	for _, s := range spots {
		nums = append(nums, s.SpotNumber)
	}
	return nums
}

func TestResyncGrowCreatesAvailableSpots(t *testing.T) {
	store := newMemStore()
	if _, err := store.CreateRangeTx(context.Background(), nil, 1, 1, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := NewResynchronizer(store)
	out, err := r.Resync(context.Background(), nil, 1, 5, 8)
	if err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if out.Added != 3 || len(out.Removed) != 0 || len(out.Warnings) != 0 {
		t.Fatalf("result = %+v, want 3 added only", out)
	}

	nums := spotNumbers(store, 1)
	if len(nums) != 8 {
		t.Fatalf("lot has %d spots, want 8", len(nums))
	}
	for i, n := range nums {
		if n != uint32(i+1) {
			t.Fatalf("spot numbers not contiguous: %v", nums)
		}
	}
	for _, s := range store.spots {
		if s.SpotNumber > 5 && s.Status != model.SpotAvailable {
			t.Fatalf("new spot %d created as %s", s.SpotNumber, s.Status)
		}
	}
}

func TestResyncShrinkDeletesAndWarns(t *testing.T) {
	store := newMemStore()
	if _, err := store.CreateRangeTx(context.Background(), nil, 1, 1, 10); err != nil {
		t.Fatalf("seed: %v", err)
	}
	holder := uint64(42)
	rival := uint64(99)
	for _, s := range store.spots {
		switch s.SpotNumber {
		case 7:
			s.Status = model.SpotOccupied
			s.OccupantID = &holder
		case 9:
			s.Status = model.SpotReserved
			s.OccupantID = &rival
		}
	}

	r := NewResynchronizer(store)
	out, err := r.Resync(context.Background(), nil, 1, 10, 5)
	if err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if len(out.Removed) != 5 {
		t.Fatalf("removed %d spots, want 5", len(out.Removed))
	}
	if len(out.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2 entries", out.Warnings)
	}
	joined := strings.Join(out.Warnings, "\n")
	if !strings.Contains(joined, "spot 7 was occupied") || !strings.Contains(joined, "spot 9 was reserved") {
		t.Fatalf("warnings missing destroyed spots: %v", out.Warnings)
	}

	nums := spotNumbers(store, 1)
	if len(nums) != 5 || nums[len(nums)-1] != 5 {
		t.Fatalf("remaining spots %v, want 1..5", nums)
	}

	// Removed snapshots carry the pre-deletion state for event payloads.
	for _, s := range out.Removed {
		if s.SpotNumber == 7 && (s.Status != model.SpotOccupied || s.OccupantID == nil || *s.OccupantID != holder) {
			t.Fatalf("removed snapshot lost state: %+v", s)
		}
	}
}

func TestResyncEqualCapacityIsNoOp(t *testing.T) {
	store := newMemStore()
	if _, err := store.CreateRangeTx(context.Background(), nil, 1, 1, 4); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewResynchronizer(store)
	out, err := r.Resync(context.Background(), nil, 1, 4, 4)
	if err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if out.Added != 0 || len(out.Removed) != 0 || len(out.Warnings) != 0 {
		t.Fatalf("equal capacity produced changes: %+v", out)
	}
	if got := len(spotNumbers(store, 1)); got != 4 {
		t.Fatalf("spot count changed to %d", got)
	}
}

func TestResyncShrinkThenGrowRestoresNumbers(t *testing.T) {
	store := newMemStore()
	if _, err := store.CreateRangeTx(context.Background(), nil, 1, 1, 6); err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := NewResynchronizer(store)
	if _, err := r.Resync(context.Background(), nil, 1, 6, 3); err != nil {
		t.Fatalf("shrink: %v", err)
	}
	if _, err := r.Resync(context.Background(), nil, 1, 3, 6); err != nil {
		t.Fatalf("grow: %v", err)
	}
	nums := spotNumbers(store, 1)
	if len(nums) != 6 {
		t.Fatalf("lot has %d spots, want 6", len(nums))
	}
	for i, n := range nums {
		if n != uint32(i+1) {
			t.Fatalf("spot numbers not 1..6 after shrink+grow: %v", nums)
		}
	}
}

func TestResyncShrinkCascadesReservations(t *testing.T) {
	store := newMemStore()
	if _, err := store.CreateRangeTx(context.Background(), nil, 1, 1, 3); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var doomed *model.ParkingSpot
	for _, s := range store.spots {
		if s.SpotNumber == 3 {
			doomed = s
		}
	}
	holder := uint64(42)
	doomed.Status = model.SpotOccupied
	doomed.OccupantID = &holder
	if err := store.CreateTx(context.Background(), nil, &model.Reservation{SpotID: doomed.ID, UserID: holder}); err != nil {
		t.Fatalf("reservation: %v", err)
	}

	r := NewResynchronizer(store)
	if _, err := r.Resync(context.Background(), nil, 1, 3, 2); err != nil {
		t.Fatalf("Resync: %v", err)
	}
	if n := len(store.reservations); n != 0 {
		t.Fatalf("%d reservations survived the cascade", n)
	}
}
