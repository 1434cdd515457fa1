package model

import "time"

// Role values carried in the users.role column and in the JWT "role"
// claim. The role is fixed when the account is created; there is no
// migration between roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an account record as stored in the `users` table.
// Regular users and administrators live in the same table and are
// distinguished by the Role column. The json tags are omitted because
// these structs are used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the account.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – USER or ADMIN.
//  FullName     – display name of the account holder.
//  Address      – postal address of the account holder.
//  PinCode      – postal pin code.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	FullName     string    // users.full_name
	Address      string    // users.address
	PinCode      string    // users.pin_code
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and contains metadata for expiry and
// revocation. The plain token is not stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
