package model

import "time"

// Reservation is the billing record spanning a spot's reserved and
// occupied period for one user. A reservation is active while
// LeavingAt is nil. The same record is reused across the
// reserved→occupied transition: occupying re-bases ParkedAt to the
// occupation instant so billing starts when the car physically parks,
// and the reservation id stays stable for the whole stay.
//
// RatePerMin snapshots the lot's price at reservation time so later
// price edits never alter past or active reservations.
//
// Fields:
//  ID         – primary key identifier.
//  SpotID     – spot being reserved.
//  UserID     – user holding the reservation.
//  ParkedAt   – reservation / occupation start timestamp.
//  LeavingAt  – release timestamp (nil while the reservation is active).
//  RatePerMin – per-minute rate captured from the lot at reservation time.
//  CreatedAt  – creation timestamp.
type Reservation struct {
	ID         uint64     // reservations.id
	SpotID     uint64     // reservations.spot_id
	UserID     uint64     // reservations.user_id
	ParkedAt   time.Time  // reservations.parking_timestamp
	LeavingAt  *time.Time // reservations.leaving_timestamp (nullable)
	RatePerMin float64    // reservations.rate_per_minute
	CreatedAt  time.Time  // reservations.created_at
}

// Active reports whether the reservation is still accruing time.
func (r *Reservation) Active() bool { return r.LeavingAt == nil }
