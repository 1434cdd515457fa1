package model

import "time"

// ParkingLot describes a parking facility. Each lot owns a collection
// of parking spots that are created in bulk when the lot is created
// and resynchronized when MaxSpots changes. Deleting a lot cascades to
// its spots and their reservations.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique location name of the lot.
//  RatePerMin  – price charged per minute of parking.
//  Address     – street address of the lot.
//  PinCode     – postal pin code of the lot.
//  MaxSpots    – configured capacity; spots are numbered 1..MaxSpots.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type ParkingLot struct {
	ID         uint64    // parking_lots.id
	Name       string    // parking_lots.name
	RatePerMin float64   // parking_lots.rate_per_minute
	Address    string    // parking_lots.address
	PinCode    string    // parking_lots.pin_code
	MaxSpots   uint32    // parking_lots.max_spots
	CreatedAt  time.Time // parking_lots.created_at
	UpdatedAt  time.Time // parking_lots.updated_at
}
