// Package lifecycle enforces the legal state transitions of a parking
// spot (available → reserved → occupied → available) together with the
// reservation record that bills the stay. These sentinel values allow
// handlers to distinguish user-facing conflicts from data faults.
package lifecycle

import "errors"

// ErrNoAvailableSpot is returned by Reserve when the lot has no spot
// with status available, or when a concurrent reserver claimed the
// last one first. Handlers should translate this into an HTTP 409.
var ErrNoAvailableSpot = errors.New("no available spot in lot")

// ErrAlreadyHoldingSpot is returned by Reserve when the account
// already holds a reserved or occupied spot anywhere in the system.
// A user may hold at most one spot at a time.
var ErrAlreadyHoldingSpot = errors.New("account already holds a spot")

// ErrNotYourReservation is returned by Occupy when the spot is
// reserved by a different account.
var ErrNotYourReservation = errors.New("spot is not reserved by caller")

// ErrAlreadyOccupied is returned by Occupy when the caller already
// occupies the spot. This is informational rather than a failure:
// handlers report it without treating the request as an error.
var ErrAlreadyOccupied = errors.New("spot already occupied by caller")

// ErrSpotUnavailable is returned by Occupy when the spot is in no
// state the caller can act on (available, or occupied by someone else).
var ErrSpotUnavailable = errors.New("spot cannot be occupied")

// ErrNotYourSpot is returned by Release when the spot is not occupied
// by the caller.
var ErrNotYourSpot = errors.New("spot is not occupied by caller")

// ErrNoActiveReservation indicates a consistency fault: a spot claims
// to be reserved or occupied but no open reservation exists for it.
// This points at a prior bug and must be surfaced loudly, never
// silently recovered from. Handlers translate it into an HTTP 500.
var ErrNoActiveReservation = errors.New("no active reservation for held spot")

// ErrSpotNotFound is returned when the referenced spot does not exist.
var ErrSpotNotFound = errors.New("spot not found")
