package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no user has the requested username.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

const uniqueViolation = "23505"

// Repository persists users. Implementations must be safe for concurrent reads.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByUsername(ctx context.Context, username string) (User, error)
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, username, password_hash, company_name, address, phone, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, user.Username, user.PasswordHash, user.CompanyName, user.Address, user.Phone, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, username, password_hash, company_name, address, phone, created_at
        FROM users WHERE username = $1`, username)
	var (
		id        uuid.UUID
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Username, &user.PasswordHash, &user.CompanyName, &user.Address, &user.Phone, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user: %w", err)
	}
	user.ID = id.String()
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

// Delete removes a user and, through the foreign key, their devices.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
