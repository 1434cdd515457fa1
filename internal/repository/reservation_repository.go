package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations table. It
// implements the lifecycle engine's ReservationStore. Reservations are
// created on reserve and mutated on occupy/release; they are never
// deleted except through the cascade from their spot or lot.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo constructs a ReservationRepo bound to the
// provided database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new open reservation within the provided
// transaction and fills in its ID. LeavingAt stays NULL until release.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	out, err := tx.ExecContext(ctx,
		"INSERT INTO reservations (spot_id, user_id, parking_timestamp, rate_per_minute) VALUES (?,?,?,?)",
		res.SpotID, res.UserID, res.ParkedAt, res.RatePerMin)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// ActiveForSpotTx returns the open reservation for the spot and user
// with the most recent parking timestamp. sql.ErrNoRows signals that
// none exists; for a held spot that is a consistency fault the
// lifecycle engine surfaces rather than repairs.
func (r *ReservationRepo) ActiveForSpotTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (*model.Reservation, error) {
	var res model.Reservation
	var leaving sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT id, spot_id, user_id, parking_timestamp, leaving_timestamp, rate_per_minute, created_at
		 FROM reservations
		 WHERE spot_id=? AND user_id=? AND leaving_timestamp IS NULL
		 ORDER BY parking_timestamp DESC LIMIT 1`,
		spotID, userID).Scan(&res.ID, &res.SpotID, &res.UserID, &res.ParkedAt, &leaving, &res.RatePerMin, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if leaving.Valid {
		t := leaving.Time
		res.LeavingAt = &t
	}
	return &res, nil
}

// RebaseStartTx moves the reservation's parking timestamp. Occupying a
// reserved spot re-bases the start so billing begins at physical
// occupation, reusing the reservation record instead of replacing it.
func (r *ReservationRepo) RebaseStartTx(ctx context.Context, tx *sql.Tx, reservationID uint64, startedAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reservations SET parking_timestamp=? WHERE id=?",
		startedAt, reservationID)
	return err
}

// CloseTx stamps the reservation's leaving timestamp, ending accrual.
func (r *ReservationRepo) CloseTx(ctx context.Context, tx *sql.Tx, reservationID uint64, leftAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE reservations SET leaving_timestamp=? WHERE id=?",
		leftAt, reservationID)
	return err
}

// ActiveForUser returns the user's open reservation outside of any
// transaction, for the dashboard view. sql.ErrNoRows when none.
func (r *ReservationRepo) ActiveForUser(ctx context.Context, userID uint64) (*model.Reservation, error) {
	var res model.Reservation
	var leaving sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, spot_id, user_id, parking_timestamp, leaving_timestamp, rate_per_minute, created_at
		 FROM reservations
		 WHERE user_id=? AND leaving_timestamp IS NULL
		 ORDER BY parking_timestamp DESC LIMIT 1`,
		userID).Scan(&res.ID, &res.SpotID, &res.UserID, &res.ParkedAt, &leaving, &res.RatePerMin, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if leaving.Valid {
		t := leaving.Time
		res.LeavingAt = &t
	}
	return &res, nil
}

// HistoryRecord carries the raw joined fields for one history row.
// Duration and cost are derived by the billing package in the handler
// layer, not in SQL.
type HistoryRecord struct {
	ReservationID uint64
	UserEmail     string
	LotName       string
	SpotNumber    uint32
	RatePerMin    float64
	ParkedAt      time.Time
	LeavingAt     *time.Time
}

const historySelect = `SELECT r.id, u.email, l.name, s.spot_number, r.rate_per_minute, r.parking_timestamp, r.leaving_timestamp
	 FROM reservations r
	 JOIN parking_spots s ON s.id = r.spot_id
	 JOIN parking_lots l ON l.id = s.lot_id
	 JOIN users u ON u.id = r.user_id`

// ListByUser returns the user's reservations, most recent first,
// joined with spot and lot data for display.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		historySelect+" WHERE r.user_id=? ORDER BY r.parking_timestamp DESC", userID)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

// ListAll returns every reservation in the system, most recent first.
// Used by the administrator's reservation overview.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		historySelect+" ORDER BY r.parking_timestamp DESC")
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]HistoryRecord, error) {
	defer rows.Close()
	var records []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var leaving sql.NullTime
		if err := rows.Scan(&rec.ReservationID, &rec.UserEmail, &rec.LotName, &rec.SpotNumber, &rec.RatePerMin, &rec.ParkedAt, &leaving); err != nil {
			return nil, err
		}
		if leaving.Valid {
			t := leaving.Time
			rec.LeavingAt = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
