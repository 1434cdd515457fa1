package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-reservation/internal/config"
	"github.com/iliyamo/parking-lot-reservation/internal/lifecycle"
	"github.com/iliyamo/parking-lot-reservation/internal/middleware"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/queue"
	"github.com/iliyamo/parking-lot-reservation/internal/repository"
	queue_publisher "github.com/iliyamo/parking-lot-reservation/internal/service"
)

// AdminHandler serves the administrator endpoints: lot CRUD with
// capacity resynchronization, the spot board, the global reservation
// ledger and the user directory. Every route is behind the ADMIN role
// guard. Mutations invalidate the cached lot listings so users see the
// change on the next request.
type AdminHandler struct {
	Lots         *repository.LotRepo
	Spots        *repository.SpotRepo
	Reservations *repository.ReservationRepo
	Users        *repository.UserRepo
	Resync       *lifecycle.Resynchronizer
	Rdb          *redis.Client
	CacheCfg     config.CacheConfig
}

// NewAdminHandler constructs an AdminHandler. Rdb may be nil when
// caching is disabled.
func NewAdminHandler(lots *repository.LotRepo, spots *repository.SpotRepo, reservations *repository.ReservationRepo, users *repository.UserRepo, resync *lifecycle.Resynchronizer, rdb *redis.Client, cacheCfg config.CacheConfig) *AdminHandler {
	if lots == nil || spots == nil || reservations == nil || users == nil || resync == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Lots: lots, Spots: spots, Reservations: reservations, Users: users,
		Resync: resync, Rdb: rdb, CacheCfg: cacheCfg,
	}
}

type lotReq struct {
	Name       string  `json:"name"`
	RatePerMin float64 `json:"rate_per_minute"`
	Address    string  `json:"address"`
	PinCode    string  `json:"pin_code"`
	MaxSpots   uint32  `json:"max_spots"`
}

func (r *lotReq) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.PinCode = strings.TrimSpace(r.PinCode)
}

func (r *lotReq) validate() string {
	switch {
	case r.Name == "":
		return "name is required"
	case r.RatePerMin <= 0:
		return "rate_per_minute must be positive"
	case r.MaxSpots < 1:
		return "max_spots must be at least 1"
	}
	return ""
}

// CreateLot handles POST /v1/admin/lots. The lot and its full spot
// population (numbered 1..max_spots, all available) are created in one
// transaction.
func (h *AdminHandler) CreateLot(c echo.Context) error {
	var req lotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	tx, err := h.Lots.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot := &model.ParkingLot{
		Name:       req.Name,
		RatePerMin: req.RatePerMin,
		Address:    req.Address,
		PinCode:    req.PinCode,
		MaxSpots:   req.MaxSpots,
	}
	if err := h.Lots.CreateTx(ctx, tx, lot); err != nil {
		if errors.Is(err, repository.ErrLotNameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "lot name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create lot failed"})
	}
	created, err := h.Spots.CreateRangeTx(ctx, tx, lot.ID, 1, lot.MaxSpots)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create spots failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	middleware.InvalidateCache(h.Rdb, h.CacheCfg.Prefix)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":            lot.ID,
		"name":          lot.Name,
		"max_spots":     lot.MaxSpots,
		"spots_created": created,
	})
}

// UpdateLot handles PUT /v1/admin/lots/:id. The lot's fields are
// replaced and the spot population is resynchronized with the edited
// capacity in the same transaction. A shrink deletes every spot above
// the new maximum even when reserved or occupied; such deletions come
// back as warnings and are published to the broker after commit.
func (h *AdminHandler) UpdateLot(c echo.Context) error {
	lotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || lotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	var req lotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	tx, err := h.Lots.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot, err := h.Lots.GetByIDTx(ctx, tx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrLotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	originalMax := lot.MaxSpots

	lot.Name = req.Name
	lot.RatePerMin = req.RatePerMin
	lot.Address = req.Address
	lot.PinCode = req.PinCode
	lot.MaxSpots = req.MaxSpots
	if err := h.Lots.UpdateTx(ctx, tx, lot); err != nil {
		if errors.Is(err, repository.ErrLotNameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "lot name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update lot failed"})
	}

	result, err := h.Resync.Resync(ctx, tx, lot.ID, originalMax, lot.MaxSpots)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capacity resync failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	middleware.InvalidateCache(h.Rdb, h.CacheCfg.Prefix)

	// Publish a warning event for every destroyed non-available spot.
	removedAt := time.Now().UTC().Format(historyTimeLayout)
	for _, spot := range result.Removed {
		if spot.Status == model.SpotAvailable {
			continue
		}
		var occupant uint64
		if spot.OccupantID != nil {
			occupant = *spot.OccupantID
		}
		_ = queue_publisher.PublishCapacityWarning(ctx, queue.CapacityWarningEvent{
			LotID:      lot.ID,
			LotName:    lot.Name,
			SpotNumber: spot.SpotNumber,
			Status:     spot.Status,
			OccupantID: occupant,
			RemovedAt:  removedAt,
		})
	}

	reply := echo.Map{
		"id":            lot.ID,
		"name":          lot.Name,
		"max_spots":     lot.MaxSpots,
		"spots_added":   result.Added,
		"spots_removed": len(result.Removed),
	}
	if len(result.Warnings) > 0 {
		reply["warnings"] = result.Warnings
	}
	return c.JSON(http.StatusOK, reply)
}

// DeleteLot handles DELETE /v1/admin/lots/:id. The lot's spots and
// reservation history cascade away with it.
func (h *AdminHandler) DeleteLot(c echo.Context) error {
	lotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || lotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	if err := h.Lots.Delete(c.Request().Context(), lotID); err != nil {
		if errors.Is(err, repository.ErrLotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete lot failed"})
	}
	middleware.InvalidateCache(h.Rdb, h.CacheCfg.Prefix)
	return c.NoContent(http.StatusNoContent)
}

// ListLots handles GET /v1/admin/lots: the same aggregate view users
// get, served uncached for the dashboard.
func (h *AdminHandler) ListLots(c echo.Context) error {
	summaries, err := buildLotSummaries(c.Request().Context(), h.Lots, h.Spots)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load lots"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": summaries})
}

// ListSpots handles GET /v1/admin/lots/:id/spots. It returns every
// spot in the lot with its status and occupant email.
func (h *AdminHandler) ListSpots(c echo.Context) error {
	lotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || lotID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
	}
	ctx := c.Request().Context()
	lot, err := h.Lots.GetByID(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrLotNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	details, err := h.Spots.ListDetailsByLot(ctx, lotID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load spots"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"lot_id":   lot.ID,
		"lot_name": lot.Name,
		"items":    details,
	})
}

// ListReservations handles GET /v1/admin/reservations: the full
// reservation ledger across all lots and users, most recent first.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	records, err := h.Reservations.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": buildHistoryRows(records, true)})
}

// ListUsers handles GET /v1/admin/users. It returns registered USER
// accounts without password hashes.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.Users.ListUsers(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load users"})
	}
	items := make([]echo.Map, 0, len(users))
	for _, u := range users {
		items = append(items, echo.Map{
			"id":        u.ID,
			"email":     u.Email,
			"full_name": u.FullName,
			"address":   u.Address,
			"pin_code":  u.PinCode,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
