package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// SpotStore is the slice of spot persistence the engine needs. The
// repository layer implements it over MySQL; tests substitute an
// in-memory stub. Every method runs inside the caller's transaction so
// that a failed operation leaves no partial state behind.
//
// The Mark* methods perform conditional updates (UPDATE ... WHERE
// status = ...) and report whether a row was actually changed. A false
// return means another request transitioned the spot first; the engine
// treats that as a conflict rather than double-assigning the spot.
type SpotStore interface {
	// GetByIDTx loads a spot by id. Returns sql.ErrNoRows when absent.
	GetByIDTx(ctx context.Context, tx *sql.Tx, spotID uint64) (*model.ParkingSpot, error)
	// HeldByUserTx returns the reserved or occupied spot currently
	// assigned to the user, or sql.ErrNoRows when the user holds none.
	HeldByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.ParkingSpot, error)
	// LowestAvailableTx returns the available spot with the smallest
	// spot number in the lot, or sql.ErrNoRows when the lot is full.
	LowestAvailableTx(ctx context.Context, tx *sql.Tx, lotID uint64) (*model.ParkingSpot, error)
	// MarkReservedTx transitions available→reserved and assigns the
	// occupant, guarded on the current status.
	MarkReservedTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (bool, error)
	// MarkOccupiedTx transitions reserved→occupied, guarded on the
	// current status and occupant.
	MarkOccupiedTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (bool, error)
	// MarkAvailableTx transitions occupied→available and clears the
	// occupant, guarded on the current status and occupant.
	MarkAvailableTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (bool, error)
}

// ReservationStore is the slice of reservation persistence the engine
// needs, again scoped to the caller's transaction.
type ReservationStore interface {
	// CreateTx inserts a new reservation and fills in its ID.
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
	// ActiveForSpotTx returns the open (leaving_timestamp IS NULL)
	// reservation for the spot and user with the most recent parking
	// timestamp, or sql.ErrNoRows when none exists.
	ActiveForSpotTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (*model.Reservation, error)
	// RebaseStartTx moves the reservation's parking timestamp.
	RebaseStartTx(ctx context.Context, tx *sql.Tx, reservationID uint64, startedAt time.Time) error
	// CloseTx sets the reservation's leaving timestamp.
	CloseTx(ctx context.Context, tx *sql.Tx, reservationID uint64, leftAt time.Time) error
}

// Engine drives the spot state machine. All three lifecycle operations
// take the transaction opened by the caller; any error return means
// the caller must roll back, reverting every staged mutation at once.
type Engine struct {
	Spots        SpotStore
	Reservations ReservationStore

	// Clock supplies the current instant for reservation timestamps.
	// Left nil it defaults to time.Now in UTC; tests pin it.
	Clock func() time.Time
}

// NewEngine constructs an Engine. Both stores must be non-nil.
func NewEngine(spots SpotStore, reservations ReservationStore) *Engine {
	if spots == nil || reservations == nil {
		panic("nil store passed to NewEngine")
	}
	return &Engine{Spots: spots, Reservations: reservations}
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

// ReserveResult describes a successful reservation: the spot that was
// assigned and the reservation record that bills it.
type ReserveResult struct {
	Spot        *model.ParkingSpot
	Reservation *model.Reservation
}

// Reserve assigns the lowest-numbered available spot in the lot to the
// user and opens a reservation with the lot's current rate snapshot.
//
// Preconditions: the user holds no other reserved or occupied spot
// anywhere in the system, and the lot has at least one available spot.
// The spot transition is a conditional update, so two concurrent
// reservations can never be granted the same spot: the loser observes
// zero affected rows and fails with ErrNoAvailableSpot.
func (e *Engine) Reserve(ctx context.Context, tx *sql.Tx, userID uint64, lot *model.ParkingLot) (*ReserveResult, error) {
	if _, err := e.Spots.HeldByUserTx(ctx, tx, userID); err == nil {
		return nil, ErrAlreadyHoldingSpot
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	spot, err := e.Spots.LowestAvailableTx(ctx, tx, lot.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoAvailableSpot
		}
		return nil, err
	}

	assigned, err := e.Spots.MarkReservedTx(ctx, tx, spot.ID, userID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		// Raced by another reserver between select and update.
		return nil, ErrNoAvailableSpot
	}
	spot.Status = model.SpotReserved
	spot.OccupantID = &userID

	res := &model.Reservation{
		SpotID:     spot.ID,
		UserID:     userID,
		ParkedAt:   e.now(),
		RatePerMin: lot.RatePerMin,
	}
	if err := e.Reservations.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	return &ReserveResult{Spot: spot, Reservation: res}, nil
}

// Occupy marks a spot the user has reserved as physically occupied and
// re-bases the active reservation's parking timestamp to now, so
// billing starts at occupation rather than reservation time. The
// reservation record is reused, keeping its id stable across the
// reserved→occupied transition.
//
// Returns ErrAlreadyOccupied when the caller already occupies the
// spot, ErrNotYourReservation when someone else reserved it, and
// ErrSpotUnavailable for every other state.
func (e *Engine) Occupy(ctx context.Context, tx *sql.Tx, userID, spotID uint64) (*model.Reservation, error) {
	spot, err := e.Spots.GetByIDTx(ctx, tx, spotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}

	switch {
	case spot.Status == model.SpotReserved && spot.HeldBy(userID):
		// fall through to the transition below
	case spot.Status == model.SpotOccupied && spot.HeldBy(userID):
		return nil, ErrAlreadyOccupied
	case spot.Status == model.SpotReserved:
		return nil, ErrNotYourReservation
	default:
		return nil, ErrSpotUnavailable
	}

	moved, err := e.Spots.MarkOccupiedTx(ctx, tx, spot.ID, userID)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, ErrSpotUnavailable
	}

	res, err := e.Reservations.ActiveForSpotTx(ctx, tx, spot.ID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Spot says reserved but no open reservation exists. The
			// caller must roll back so the spot is not left occupied.
			return nil, ErrNoActiveReservation
		}
		return nil, err
	}

	startedAt := e.now()
	if err := e.Reservations.RebaseStartTx(ctx, tx, res.ID, startedAt); err != nil {
		return nil, err
	}
	res.ParkedAt = startedAt
	return res, nil
}

// Release frees a spot the user occupies and closes the active
// reservation by stamping its leaving timestamp. The closed
// reservation is returned so callers can compute and report the bill.
//
// An occupied spot without an open reservation is a consistency fault
// (ErrNoActiveReservation); it is reported, not repaired.
func (e *Engine) Release(ctx context.Context, tx *sql.Tx, userID, spotID uint64) (*model.Reservation, error) {
	spot, err := e.Spots.GetByIDTx(ctx, tx, spotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpotNotFound
		}
		return nil, err
	}
	if spot.Status != model.SpotOccupied || !spot.HeldBy(userID) {
		return nil, ErrNotYourSpot
	}

	res, err := e.Reservations.ActiveForSpotTx(ctx, tx, spot.ID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoActiveReservation
		}
		return nil, err
	}

	freed, err := e.Spots.MarkAvailableTx(ctx, tx, spot.ID, userID)
	if err != nil {
		return nil, err
	}
	if !freed {
		return nil, ErrNotYourSpot
	}

	leftAt := e.now()
	if err := e.Reservations.CloseTx(ctx, tx, res.ID, leftAt); err != nil {
		return nil, err
	}
	res.LeavingAt = &leftAt
	return res, nil
}
