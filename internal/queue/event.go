// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// SpotReleasedEvent is published when a user releases an occupied spot
// and the reservation closes. It carries the computed bill so
// downstream consumers can log or notify without querying the primary
// database.
type SpotReleasedEvent struct {
	ReservationID uint64  `json:"reservation_id"`
	UserID        uint64  `json:"user_id"`
	LotID         uint64  `json:"lot_id"`
	LotName       string  `json:"lot_name"`
	SpotNumber    uint32  `json:"spot_number"`
	ParkedAt      string  `json:"parked_at"`
	LeftAt        string  `json:"left_at"`
	Duration      string  `json:"duration"`
	RatePerMin    float64 `json:"rate_per_minute"`
	TotalCost     float64 `json:"total_cost"`
}

// CapacityWarningEvent is published for every reserved or occupied
// spot destroyed by a capacity shrink. The deletion is deliberate and
// destructive: the holder is not released or notified by the portal,
// so the warning trail is the only record of it.
type CapacityWarningEvent struct {
	LotID      uint64 `json:"lot_id"`
	LotName    string `json:"lot_name"`
	SpotNumber uint32 `json:"spot_number"`
	Status     string `json:"status"`
	OccupantID uint64 `json:"occupant_id"`
	RemovedAt  string `json:"removed_at"`
}
