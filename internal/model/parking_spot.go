package model

import "time"

// Spot status values. A spot is available when nobody holds it,
// reserved after a user claims it and occupied once the user has
// physically parked. The OccupantID column is set iff the status is
// not available.
const (
	SpotAvailable = "available"
	SpotReserved  = "reserved"
	SpotOccupied  = "occupied"
)

// ParkingSpot is an individually trackable slot within a lot. The
// spot number is stable and unique within its lot; numbers are
// assigned densely 1..N at creation time and gaps above the capacity
// can only appear through deletion, never through renumbering.
//
// Fields:
//  ID         – primary key identifier.
//  LotID      – lot to which this spot belongs.
//  SpotNumber – position of the spot within the lot (1-based).
//  Status     – available, reserved or occupied.
//  OccupantID – user currently holding the spot (nil when available).
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type ParkingSpot struct {
	ID         uint64    // parking_spots.id
	LotID      uint64    // parking_spots.lot_id
	SpotNumber uint32    // parking_spots.spot_number
	Status     string    // parking_spots.status
	OccupantID *uint64   // parking_spots.user_id (nullable)
	CreatedAt  time.Time // parking_spots.created_at
	UpdatedAt  time.Time // parking_spots.updated_at
}

// HeldBy reports whether the spot is currently assigned to the given
// user, regardless of whether it is reserved or occupied.
func (s *ParkingSpot) HeldBy(userID uint64) bool {
	return s.OccupantID != nil && *s.OccupantID == userID
}
