package lifecycle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// CapacityStore is the spot persistence needed to resynchronize a
// lot's spot population after its configured capacity changes.
type CapacityStore interface {
	// CreateRangeTx bulk-inserts available spots numbered
	// firstNumber..lastNumber for the lot and returns how many rows
	// were created.
	CreateRangeTx(ctx context.Context, tx *sql.Tx, lotID uint64, firstNumber, lastNumber uint32) (int, error)
	// ListAboveNumberTx returns every spot in the lot whose number
	// exceeds the given bound, regardless of status.
	ListAboveNumberTx(ctx context.Context, tx *sql.Tx, lotID uint64, number uint32) ([]model.ParkingSpot, error)
	// DeleteTx removes a spot; its reservations go with it via the
	// foreign-key cascade.
	DeleteTx(ctx context.Context, tx *sql.Tx, spotID uint64) error
}

// Resynchronizer reconciles a lot's spots with an edited capacity.
type Resynchronizer struct {
	Spots CapacityStore
}

// NewResynchronizer constructs a Resynchronizer.
func NewResynchronizer(spots CapacityStore) *Resynchronizer {
	if spots == nil {
		panic("nil store passed to NewResynchronizer")
	}
	return &Resynchronizer{Spots: spots}
}

// ResyncResult reports what a capacity edit did to the spot population.
// Removed lists every deleted spot as it was just before deletion so
// callers can record warnings for the reserved/occupied ones.
type ResyncResult struct {
	Added    int                 // spots created on a capacity increase
	Removed  []model.ParkingSpot // spots deleted on a capacity decrease
	Warnings []string            // one entry per reserved/occupied spot that was destroyed
}

// Resync compares the original and the new maximum spot count and
// grows or shrinks the lot's spot population accordingly.
//
// Increase creates available spots numbered originalMax+1..newMax.
// Decrease deletes every spot numbered above newMax regardless of
// status; deleting a reserved or occupied spot is destructive. The
// holding user is neither released nor notified, and the spot's
// reservations disappear with it. Each such deletion is recorded as a
// warning but never halts the remaining deletions. Equal capacity is
// a no-op.
func (r *Resynchronizer) Resync(ctx context.Context, tx *sql.Tx, lotID uint64, originalMax, newMax uint32) (*ResyncResult, error) {
	out := &ResyncResult{}
	switch {
	case newMax > originalMax:
		added, err := r.Spots.CreateRangeTx(ctx, tx, lotID, originalMax+1, newMax)
		if err != nil {
			return nil, err
		}
		out.Added = added
	case newMax < originalMax:
		doomed, err := r.Spots.ListAboveNumberTx(ctx, tx, lotID, newMax)
		if err != nil {
			return nil, err
		}
		for _, spot := range doomed {
			if spot.Status != model.SpotAvailable {
				out.Warnings = append(out.Warnings, fmt.Sprintf(
					"spot %d was %s and has been deleted along with its reservations",
					spot.SpotNumber, spot.Status))
			}
			if err := r.Spots.DeleteTx(ctx, tx, spot.ID); err != nil {
				return nil, err
			}
			out.Removed = append(out.Removed, spot)
		}
	}
	return out, nil
}
