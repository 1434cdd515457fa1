package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// SpotRepo provides data access to the parking_spots table. It
// implements the lifecycle engine's SpotStore and CapacityStore: all
// state transitions are conditional updates guarded on the current
// status (and occupant), and the affected-row count decides whether
// the transition happened. That guard is what prevents two concurrent
// reservations from being assigned the same spot under read-committed
// isolation.
type SpotRepo struct {
	db *sql.DB
}

// NewSpotRepo constructs a SpotRepo bound to the provided database.
func NewSpotRepo(db *sql.DB) *SpotRepo { return &SpotRepo{db: db} }

const spotColumns = "id, lot_id, spot_number, status, user_id, created_at, updated_at"

// GetByID loads a spot outside of any transaction, for views and
// post-commit event payloads. Returns sql.ErrNoRows when absent.
func (r *SpotRepo) GetByID(ctx context.Context, spotID uint64) (*model.ParkingSpot, error) {
	return scanSpotRow(r.db.QueryRowContext(ctx,
		"SELECT "+spotColumns+" FROM parking_spots WHERE id=? LIMIT 1", spotID))
}

// GetByIDTx loads a spot within the provided transaction.
func (r *SpotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, spotID uint64) (*model.ParkingSpot, error) {
	return scanSpotRow(tx.QueryRowContext(ctx,
		"SELECT "+spotColumns+" FROM parking_spots WHERE id=? LIMIT 1", spotID))
}

// HeldByUserTx returns the reserved or occupied spot currently held by
// the user, or sql.ErrNoRows when the user holds none. A user holds at
// most one spot at a time; the engine enforces that at reserve time.
func (r *SpotRepo) HeldByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.ParkingSpot, error) {
	return scanSpotRow(tx.QueryRowContext(ctx,
		"SELECT "+spotColumns+` FROM parking_spots
		 WHERE user_id=? AND status IN (?,?) LIMIT 1`,
		userID, model.SpotReserved, model.SpotOccupied))
}

// HeldByUser is the non-transactional variant used by the dashboard.
func (r *SpotRepo) HeldByUser(ctx context.Context, userID uint64) (*model.ParkingSpot, error) {
	return scanSpotRow(r.db.QueryRowContext(ctx,
		"SELECT "+spotColumns+` FROM parking_spots
		 WHERE user_id=? AND status IN (?,?) LIMIT 1`,
		userID, model.SpotReserved, model.SpotOccupied))
}

// LowestAvailableTx returns the available spot with the smallest spot
// number in the lot. The ordering is the deterministic tie-break for
// spot selection; sql.ErrNoRows means the lot is full.
func (r *SpotRepo) LowestAvailableTx(ctx context.Context, tx *sql.Tx, lotID uint64) (*model.ParkingSpot, error) {
	return scanSpotRow(tx.QueryRowContext(ctx,
		"SELECT "+spotColumns+` FROM parking_spots
		 WHERE lot_id=? AND status=? ORDER BY spot_number ASC LIMIT 1`,
		lotID, model.SpotAvailable))
}

// MarkReservedTx transitions available→reserved and assigns the
// occupant. The WHERE clause re-checks the status so a spot claimed by
// a concurrent request is not assigned twice; the bool reports whether
// this call won the row.
func (r *SpotRepo) MarkReservedTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE parking_spots SET status=?, user_id=? WHERE id=? AND status=?",
		model.SpotReserved, userID, spotID, model.SpotAvailable)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// MarkOccupiedTx transitions reserved→occupied for the holding user.
func (r *SpotRepo) MarkOccupiedTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE parking_spots SET status=? WHERE id=? AND status=? AND user_id=?",
		model.SpotOccupied, spotID, model.SpotReserved, userID)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// MarkAvailableTx transitions occupied→available and clears the
// occupant, keeping status and occupant consistent in one statement.
func (r *SpotRepo) MarkAvailableTx(ctx context.Context, tx *sql.Tx, spotID, userID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE parking_spots SET status=?, user_id=NULL WHERE id=? AND status=? AND user_id=?",
		model.SpotAvailable, spotID, model.SpotOccupied, userID)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// CreateRangeTx bulk-inserts available spots numbered
// firstNumber..lastNumber for the lot within the provided transaction.
// Used when a lot is created and when its capacity grows. Returns the
// number of spots created; an inverted range creates none.
func (r *SpotRepo) CreateRangeTx(ctx context.Context, tx *sql.Tx, lotID uint64, firstNumber, lastNumber uint32) (int, error) {
	if firstNumber > lastNumber {
		return 0, nil
	}
	query := "INSERT INTO parking_spots (lot_id, spot_number, status) VALUES "
	args := make([]interface{}, 0, int(lastNumber-firstNumber+1)*3)
	for n := firstNumber; n <= lastNumber; n++ {
		if n > firstNumber {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, lotID, n, model.SpotAvailable)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, err
	}
	return int(lastNumber - firstNumber + 1), nil
}

// ListAboveNumberTx returns every spot in the lot numbered above the
// given bound, regardless of status, ordered by spot number. The
// capacity resynchronizer deletes these on a shrink.
func (r *SpotRepo) ListAboveNumberTx(ctx context.Context, tx *sql.Tx, lotID uint64, number uint32) ([]model.ParkingSpot, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+spotColumns+` FROM parking_spots
		 WHERE lot_id=? AND spot_number>? ORDER BY spot_number ASC`,
		lotID, number)
	if err != nil {
		return nil, err
	}
	return scanSpotRows(rows)
}

// DeleteTx removes a spot within the provided transaction. The spot's
// reservations are removed by the ON DELETE CASCADE foreign key.
func (r *SpotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, spotID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM parking_spots WHERE id=?", spotID)
	return err
}

// SpotDetail is the presentation view of a spot: its number, status
// and the occupant's email, or "N/A" when the spot is available.
type SpotDetail struct {
	ID            uint64 `json:"id"`
	SpotNumber    uint32 `json:"spot_number"`
	Status        string `json:"status"`
	OccupantEmail string `json:"occupant_email"`
}

// ListDetailsByLot returns the detail view of every spot in the lot
// ordered by spot number, joining the occupant's email where one is
// assigned.
func (r *SpotRepo) ListDetailsByLot(ctx context.Context, lotID uint64) ([]SpotDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.spot_number, s.status, COALESCE(u.email, '')
		 FROM parking_spots s
		 LEFT JOIN users u ON u.id = s.user_id
		 WHERE s.lot_id=? ORDER BY s.spot_number ASC`,
		lotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var details []SpotDetail
	for rows.Next() {
		var d SpotDetail
		if err := rows.Scan(&d.ID, &d.SpotNumber, &d.Status, &d.OccupantEmail); err != nil {
			return nil, err
		}
		if d.OccupantEmail == "" {
			d.OccupantEmail = "N/A"
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// StatusCounts aggregates a lot's spot population by status.
type StatusCounts struct {
	Created   int `json:"spots_created"`
	Available int `json:"available_count"`
	Reserved  int `json:"reserved_count"`
	Occupied  int `json:"occupied_count"`
}

// CountByStatus returns the per-status spot counts for the lot used by
// the lot summary views.
func (r *SpotRepo) CountByStatus(ctx context.Context, lotID uint64) (StatusCounts, error) {
	var c StatusCounts
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM parking_spots WHERE lot_id=? GROUP BY status",
		lotID)
	if err != nil {
		return c, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return c, err
		}
		c.Created += n
		switch status {
		case model.SpotAvailable:
			c.Available = n
		case model.SpotReserved:
			c.Reserved = n
		case model.SpotOccupied:
			c.Occupied = n
		}
	}
	return c, rows.Err()
}

func oneRowChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanSpotRow(row *sql.Row) (*model.ParkingSpot, error) {
	var s model.ParkingSpot
	var occupant sql.NullInt64
	err := row.Scan(&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &occupant, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if occupant.Valid {
		id := uint64(occupant.Int64)
		s.OccupantID = &id
	}
	return &s, nil
}

func scanSpotRows(rows *sql.Rows) ([]model.ParkingSpot, error) {
	defer rows.Close()
	var spots []model.ParkingSpot
	for rows.Next() {
		var s model.ParkingSpot
		var occupant sql.NullInt64
		if err := rows.Scan(&s.ID, &s.LotID, &s.SpotNumber, &s.Status, &occupant, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if occupant.Valid {
			id := uint64(occupant.Int64)
			s.OccupantID = &id
		}
		spots = append(spots, s)
	}
	return spots, rows.Err()
}
