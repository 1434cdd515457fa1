package handler

import (
	"testing"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/repository"
)

func TestBuildHistoryRows(t *testing.T) {
	parked := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	left := parked.Add(90 * time.Second)

	records := []repository.HistoryRecord{
		{
			ReservationID: 2,
			UserEmail:     "driver@example.com",
			LotName:       "Central",
			SpotNumber:    4,
			RatePerMin:    10,
			ParkedAt:      parked,
			LeavingAt:     nil,
		},
		{
			ReservationID: 1,
			UserEmail:     "driver@example.com",
			LotName:       "Central",
			SpotNumber:    1,
			RatePerMin:    10,
			ParkedAt:      parked,
			LeavingAt:     &left,
		},
	}

	rows := buildHistoryRows(records, true)
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}

	active := rows[0]
	if active.LeftAt != "Current" || active.Duration != "N/A" || active.TotalCost != "N/A" {
		t.Fatalf("active row not rendered as current: %+v", active)
	}
	if active.UserEmail != "driver@example.com" {
		t.Fatalf("email dropped with includeEmail=true: %+v", active)
	}

	closed := rows[1]
	if closed.Duration != "1 minute, 30 seconds" {
		t.Fatalf("duration = %q", closed.Duration)
	}
	if closed.TotalCost != "₹15.00" {
		t.Fatalf("total cost = %q", closed.TotalCost)
	}
	if closed.ParkedAt != "2026-08-01 09:00:00" || closed.LeftAt != "2026-08-01 09:01:30" {
		t.Fatalf("timestamps rendered as %q / %q", closed.ParkedAt, closed.LeftAt)
	}

	if rows := buildHistoryRows(records, false); rows[0].UserEmail != "" {
		t.Fatalf("email kept with includeEmail=false: %+v", rows[0])
	}
}
