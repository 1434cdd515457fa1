package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// LotRepo provides data access to the parking_lots table. Lot edits
// run inside the caller's transaction together with the spot
// resynchronization they trigger, so either the whole edit commits or
// none of it does.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo constructs a LotRepo bound to the provided database.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *LotRepo) DB() *sql.DB { return r.db }

const lotColumns = "id, name, rate_per_minute, address, pin_code, max_spots, created_at, updated_at"

// CreateTx inserts a new lot within the provided transaction and fills
// in its ID. A duplicate location name yields ErrLotNameExists.
func (r *LotRepo) CreateTx(ctx context.Context, tx *sql.Tx, lot *model.ParkingLot) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO parking_lots (name, rate_per_minute, address, pin_code, max_spots) VALUES (?,?,?,?,?)",
		lot.Name, lot.RatePerMin, lot.Address, lot.PinCode, lot.MaxSpots)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrLotNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	lot.ID = uint64(id)
	return nil
}

// GetByID loads a lot outside of any transaction. Returns
// ErrLotNotFound when the lot does not exist.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	return scanLot(r.db.QueryRowContext(ctx,
		"SELECT "+lotColumns+" FROM parking_lots WHERE id=? LIMIT 1", id))
}

// GetByIDTx loads a lot within the provided transaction.
func (r *LotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.ParkingLot, error) {
	return scanLot(tx.QueryRowContext(ctx,
		"SELECT "+lotColumns+" FROM parking_lots WHERE id=? LIMIT 1", id))
}

// List returns all lots ordered by id.
func (r *LotRepo) List(ctx context.Context) ([]model.ParkingLot, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+lotColumns+" FROM parking_lots ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lots []model.ParkingLot
	for rows.Next() {
		var l model.ParkingLot
		if err := rows.Scan(&l.ID, &l.Name, &l.RatePerMin, &l.Address, &l.PinCode, &l.MaxSpots, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// UpdateTx persists edited lot fields within the provided transaction.
// Renaming to an existing location name yields ErrLotNameExists.
func (r *LotRepo) UpdateTx(ctx context.Context, tx *sql.Tx, lot *model.ParkingLot) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE parking_lots SET name=?, rate_per_minute=?, address=?, pin_code=?, max_spots=? WHERE id=?",
		lot.Name, lot.RatePerMin, lot.Address, lot.PinCode, lot.MaxSpots, lot.ID)
	if err != nil && isDuplicateKey(err) {
		return ErrLotNameExists
	}
	return err
}

// Delete removes a lot. Its spots and their reservations are removed
// by the ON DELETE CASCADE foreign keys.
func (r *LotRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM parking_lots WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLotNotFound
	}
	return nil
}

func scanLot(row *sql.Row) (*model.ParkingLot, error) {
	var l model.ParkingLot
	err := row.Scan(&l.ID, &l.Name, &l.RatePerMin, &l.Address, &l.PinCode, &l.MaxSpots, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLotNotFound
		}
		return nil, err
	}
	return &l, nil
}
