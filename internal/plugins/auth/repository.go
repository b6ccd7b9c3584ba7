package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/keyxmakerx/quill/internal/apperror"
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// UserRepository defines the data access contract for identities.
// All SQL lives in the concrete implementation -- no SQL leaks out.
//
// Reads exclude the password hash unless the method name says otherwise:
// only the login and reset flows ever need the stored credential.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailWithHash(ctx context.Context, email string) (*User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error)
	Update(ctx context.Context, id string, update UserUpdate) (*User, error)
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// userColumns are the columns scanned for hash-free reads. password_hash is
// deliberately absent.
const userColumns = `id, username, email, provider, pro, created_at, updated_at`

// Create inserts a new identity row. Racing registrations for the same email
// are serialized by the unique index: the loser gets a conflict error here
// instead of overwriting the winner.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, username, email, password_hash, provider, pro, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		string(user.Provider),
		user.Pro,
		user.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return apperror.NewConflict("User with this email or username already exists.")
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// FindByID retrieves an identity by its UUID, without the password hash.
// Returns apperror.NotFound if no identity exists with this id.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByEmail retrieves an identity by normalized email, without the
// password hash.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// FindByEmailWithHash retrieves an identity by normalized email including
// the stored password hash. Only the login and password reset flows call
// this; everything else gets the hash-free variant.
func (r *userRepository) FindByEmailWithHash(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, username, email, password_hash, provider, pro, created_at, updated_at
	          FROM users WHERE email = ?`

	user := &User{}
	var provider string
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&provider,
		&user.Pro,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	user.Provider = Provider(provider)

	return user, nil
}

// FindByEmailOrUsername retrieves the first identity matching either the
// normalized email or the username. Used for the registration conflict
// check, so the hash is excluded.
func (r *userRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? OR username = ? LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email, username))
}

// Update applies a partial mutation and returns the fresh identity (without
// the hash). updated_at is bumped by the schema on every write.
func (r *userRepository) Update(ctx context.Context, id string, update UserUpdate) (*User, error) {
	var (
		sets []string
		args []any
	)
	if update.Provider != nil {
		sets = append(sets, "provider = ?")
		args = append(args, string(*update.Provider))
	}
	if update.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *update.PasswordHash)
	}
	if update.Pro != nil {
		sets = append(sets, "pro = ?")
		args = append(args, *update.Pro)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	// Re-read instead of trusting RowsAffected: MySQL reports zero affected
	// rows for a no-op update on an existing row.
	return r.FindByID(ctx, id)
}

// scanOne scans a hash-free user row.
func (r *userRepository) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	var provider string
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&provider,
		&user.Pro,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	user.Provider = Provider(provider)

	return user, nil
}
