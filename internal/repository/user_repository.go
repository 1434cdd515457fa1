package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/parking-lot-reservation/internal/model"
	"github.com/iliyamo/parking-lot-reservation/internal/utils"
)

// UserRepo mirrors the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,full_name,address,pin_code,created_at,updated_at"

// Create inserts an account and returns its ID. The role is fixed at
// creation and never migrated afterwards.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, full_name, address, pin_code) VALUES (?,?,?,?,?,?)",
		u.Email, hash, u.Role, u.FullName, u.Address, u.PinCode)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	return u.ID, nil
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.Address, &u.PinCode, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.Address, &u.PinCode, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListUsers returns every regular (non-admin) account ordered by id.
// Used by the administrator's user overview.
func (r *UserRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE role=? ORDER BY id ASC",
		model.RoleUser)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.FullName, &u.Address, &u.PinCode, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// EnsureAdmin creates the administrator account when it does not
// exist yet. Called once at startup; the admin role cannot be obtained
// through registration.
func (r *UserRepo) EnsureAdmin(ctx context.Context, email, password string, cost int) error {
	if _, err := r.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	admin := &model.User{
		Email:    email,
		Role:     model.RoleAdmin,
		FullName: "System Admin",
	}
	_, err := r.Create(ctx, admin, password, cost)
	if errors.Is(err, ErrEmailExists) {
		// Another instance seeded it concurrently.
		return nil
	}
	return err
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry for a
// unique key) from the driver error string.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
