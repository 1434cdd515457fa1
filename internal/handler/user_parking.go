package handler

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-lot-reservation/internal/billing"
	"github.com/iliyamo/parking-lot-reservation/internal/lifecycle"
	"github.com/iliyamo/parking-lot-reservation/internal/queue"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	queue_publisher "github.com/iliyamo/parking-lot-reservation/internal/service"
)

// UserHandler groups the dependencies behind the end-user endpoints:
// browsing lots, the reserve/occupy/release lifecycle, the dashboard
// and parking history. Role middleware has already rejected admins by
// the time any of these run. Each lifecycle method executes inside one
// transaction: either every state and record mutation commits, or the
// rollback discards all of it.
type UserHandler struct {
	LotRepo         *repository.LotRepo
	SpotRepo        *repository.SpotRepo
	ReservationRepo *repository.ReservationRepo
	Engine          *lifecycle.Engine
}

// NewUserHandler constructs a UserHandler. All dependencies must be
// non-nil.
func NewUserHandler(lots *repository.LotRepo, spots *repository.SpotRepo, reservations *repository.ReservationRepo, engine *lifecycle.Engine) *UserHandler {
	if lots == nil || spots == nil || reservations == nil || engine == nil {
		panic("nil dependency passed to NewUserHandler")
	}
	return &UserHandler{LotRepo: lots, SpotRepo: spots, ReservationRepo: reservations, Engine: engine}
}

// ListLots handles GET /v1/lots. It returns every lot with its
// capacity and per-status spot counts so users can pick one with free
// spots. The route sits behind the response cache middleware.
func (h *UserHandler) ListLots(c echo.Context) error {
	summaries, err := buildLotSummaries(c.Request().Context(), h.LotRepo, h.SpotRepo)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load lots"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": summaries})
}

// ReserveSpot handles POST /v1/lots/:id/reserve. It assigns the
// lowest-numbered available spot in the lot to the caller and opens a
// reservation snapshotting the lot's current rate. Fails with 409 when
// the caller already holds a spot anywhere, or when the lot has no
// available spot left.
func (h *UserHandler) ReserveSpot(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	lotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || lotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}

	ctx := c.Request().Context()
	tx, err := h.LotRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot, err := h.LotRepo.GetByIDTx(ctx, tx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrLotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	result, err := h.Engine.Reserve(ctx, tx, userID, lot)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrAlreadyHoldingSpot):
			return c.JSON(http.StatusConflict, echo.Map{"error": "you already hold a spot; release it first"})
		case errors.Is(err, lifecycle.ErrNoAvailableSpot):
			return c.JSON(http.StatusConflict, echo.Map{"error": "no available spots in this lot"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": result.Reservation.ID,
		"lot_name":       lot.Name,
		"spot":           viewOfSpot(result.Spot),
		"rate_display":   billing.FormatRate(result.Reservation.RatePerMin),
	})
}

// OccupySpot handles POST /v1/spots/:id/occupy. It marks the caller's
// reserved spot as occupied and re-bases the reservation's start to
// now, so billing begins at physical occupation. Occupying a spot the
// caller already occupies is reported as information, not an error.
func (h *UserHandler) OccupySpot(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	spotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || spotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}

	ctx := c.Request().Context()
	tx, err := h.LotRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.Engine.Occupy(ctx, tx, userID, spotID)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrAlreadyOccupied):
			return c.JSON(http.StatusOK, echo.Map{"info": "spot is already occupied by you"})
		case errors.Is(err, lifecycle.ErrNotYourReservation):
			return c.JSON(http.StatusConflict, echo.Map{"error": "spot is reserved by another user"})
		case errors.Is(err, lifecycle.ErrSpotUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "spot cannot be occupied"})
		case errors.Is(err, lifecycle.ErrSpotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		case errors.Is(err, lifecycle.ErrNoActiveReservation):
			log.Printf("CONSISTENCY FAULT: spot %d reserved by user %d has no active reservation", spotID, userID)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no active reservation found for this spot"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "occupy failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.ID,
		"parked_at":      res.ParkedAt.Format(historyTimeLayout),
		"rate_display":   billing.FormatRate(res.RatePerMin),
	})
}

// ReleaseSpot handles POST /v1/spots/:id/release. It frees the
// caller's occupied spot, closes the reservation and returns the bill.
// After commit a billing event is published to the broker; publish
// failures are logged and ignored so the release itself stands.
func (h *UserHandler) ReleaseSpot(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	spotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || spotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid spot id"})
	}

	ctx := c.Request().Context()
	tx, err := h.LotRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.Engine.Release(ctx, tx, userID, spotID)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrNotYourSpot):
			return c.JSON(http.StatusConflict, echo.Map{"error": "spot is not occupied by you"})
		case errors.Is(err, lifecycle.ErrSpotNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "spot not found"})
		case errors.Is(err, lifecycle.ErrNoActiveReservation):
			log.Printf("CONSISTENCY FAULT: spot %d occupied by user %d has no active reservation", spotID, userID)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no active reservation found for this spot"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "release failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	duration := billing.Duration(res.ParkedAt, *res.LeavingAt)
	cost := billing.Cost(res.ParkedAt, *res.LeavingAt, res.RatePerMin)

	// Best-effort billing event; the release is already committed.
	if spot, serr := h.SpotRepo.GetByID(ctx, spotID); serr == nil {
		if lot, lerr := h.LotRepo.GetByID(ctx, spot.LotID); lerr == nil {
			_ = queue_publisher.PublishSpotReleased(ctx, queue.SpotReleasedEvent{
				ReservationID: res.ID,
				UserID:        userID,
				LotID:         lot.ID,
				LotName:       lot.Name,
				SpotNumber:    spot.SpotNumber,
				ParkedAt:      res.ParkedAt.Format(historyTimeLayout),
				LeftAt:        res.LeavingAt.Format(historyTimeLayout),
				Duration:      billing.FormatDuration(duration),
				RatePerMin:    res.RatePerMin,
				TotalCost:     cost,
			})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.ID,
		"parked_at":      res.ParkedAt.Format(historyTimeLayout),
		"left_at":        res.LeavingAt.Format(historyTimeLayout),
		"duration":       billing.FormatDuration(duration),
		"rate_display":   billing.FormatRate(res.RatePerMin),
		"total_cost":     billing.FormatMoney(cost),
	})
}

// CurrentSpot handles GET /v1/me/spot. It returns the spot the caller
// currently holds together with the active reservation, or nulls when
// the caller holds none.
func (h *UserHandler) CurrentSpot(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	spot, err := h.SpotRepo.HeldByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusOK, echo.Map{"spot": nil, "reservation": nil})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	reply := echo.Map{"spot": viewOfSpot(spot), "reservation": nil}
	if res, rerr := h.ReservationRepo.ActiveForUser(ctx, userID); rerr == nil {
		reply["reservation"] = echo.Map{
			"id":           res.ID,
			"parked_at":    res.ParkedAt.Format(historyTimeLayout),
			"rate_display": billing.FormatRate(res.RatePerMin),
			"left_at":      "Current",
		}
	}
	return c.JSON(http.StatusOK, reply)
}

// History handles GET /v1/me/history. It returns the caller's
// reservations, most recent first, with duration and cost computed for
// the closed ones and "Current"/"N/A" for the active one.
func (h *UserHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	records, err := h.ReservationRepo.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": buildHistoryRows(records, false)})
}
