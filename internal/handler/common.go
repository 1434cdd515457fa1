// Package handler implements the HTTP endpoints of the parking portal.
// Handlers translate between the web layer and the lifecycle engine:
// they parse input, open the request-scoped transaction, invoke the
// engine or repositories, and map sentinel errors onto status codes.
package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/billing"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
)

// getUserID extracts the authenticated account id stored in the
// context by the JWT middleware and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// lotSummary is the aggregate view of a lot exposed to both the user
// browse endpoint and the admin dashboard.
type lotSummary struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	PinCode      string  `json:"pin_code"`
	RatePerMin   float64 `json:"rate_per_minute"`
	RateDisplay  string  `json:"rate_display"`
	Capacity     uint32  `json:"capacity"`
	SpotsCreated int     `json:"spots_created"`
	Available    int     `json:"available_count"`
	Reserved     int     `json:"reserved_count"`
	Occupied     int     `json:"occupied_count"`
}

// buildLotSummaries lists every lot with its per-status spot counts.
func buildLotSummaries(ctx context.Context, lots *repository.LotRepo, spots *repository.SpotRepo) ([]lotSummary, error) {
	all, err := lots.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]lotSummary, 0, len(all))
	for _, lot := range all {
		counts, err := spots.CountByStatus(ctx, lot.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, lotSummary{
			ID:           lot.ID,
			Name:         lot.Name,
			Address:      lot.Address,
			PinCode:      lot.PinCode,
			RatePerMin:   lot.RatePerMin,
			RateDisplay:  billing.FormatRate(lot.RatePerMin),
			Capacity:     lot.MaxSpots,
			SpotsCreated: counts.Created,
			Available:    counts.Available,
			Reserved:     counts.Reserved,
			Occupied:     counts.Occupied,
		})
	}
	return summaries, nil
}

// historyRow is the presentation form of one reservation. Duration and
// cost are computed for closed reservations; an active reservation
// reports "Current" as its end and N/A for the derived values.
type historyRow struct {
	ReservationID uint64 `json:"reservation_id"`
	UserEmail     string `json:"user_email,omitempty"`
	LotName       string `json:"lot_name"`
	SpotNumber    uint32 `json:"spot_number"`
	ParkedAt      string `json:"parked_at"`
	LeftAt        string `json:"left_at"`
	Duration      string `json:"duration"`
	RateDisplay   string `json:"rate_display"`
	TotalCost     string `json:"total_cost"`
}

const historyTimeLayout = "2006-01-02 15:04:05"

// buildHistoryRows converts joined reservation records into display
// rows, computing duration and cost for the closed ones.
func buildHistoryRows(records []repository.HistoryRecord, includeEmail bool) []historyRow {
	rows := make([]historyRow, 0, len(records))
	for _, rec := range records {
		row := historyRow{
			ReservationID: rec.ReservationID,
			LotName:       rec.LotName,
			SpotNumber:    rec.SpotNumber,
			ParkedAt:      rec.ParkedAt.Format(historyTimeLayout),
			LeftAt:        "Current",
			Duration:      billing.NotApplicable,
			RateDisplay:   billing.FormatRate(rec.RatePerMin),
			TotalCost:     billing.NotApplicable,
		}
		if includeEmail {
			row.UserEmail = rec.UserEmail
		}
		if rec.LeavingAt != nil {
			row.LeftAt = rec.LeavingAt.Format(historyTimeLayout)
			row.Duration = billing.FormatDuration(billing.Duration(rec.ParkedAt, *rec.LeavingAt))
			row.TotalCost = billing.FormatMoney(billing.Cost(rec.ParkedAt, *rec.LeavingAt, rec.RatePerMin))
		}
		rows = append(rows, row)
	}
	return rows
}

// spotView is the spot detail embedded in lifecycle responses.
type spotView struct {
	ID         uint64 `json:"id"`
	LotID      uint64 `json:"lot_id"`
	SpotNumber uint32 `json:"spot_number"`
	Status     string `json:"status"`
}

func viewOfSpot(s *model.ParkingSpot) spotView {
	return spotView{ID: s.ID, LotID: s.LotID, SpotNumber: s.SpotNumber, Status: s.Status}
}
