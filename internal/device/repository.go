package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a device does not exist for the requested owner.
var ErrNotFound = errors.New("device not found")

// Repository persists devices.
type Repository interface {
	Create(ctx context.Context, device Device) error
	Get(ctx context.Context, userID, id string) (Device, error)
	ListByUser(ctx context.Context, userID string) ([]Device, error)
}

// PostgresRepository stores devices in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a device record.
func (r *PostgresRepository) Create(ctx context.Context, device Device) error {
	deviceID, err := uuid.Parse(device.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(device.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO devices (id, user_id, device_name, application_code, secret_key, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		deviceID, userID, device.Name, device.ApplicationCode, device.SecretKey, device.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// Get fetches a device scoped to its owner.
func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (Device, error) {
	deviceUUID, err := uuid.Parse(id)
	if err != nil {
		return Device{}, ErrNotFound
	}
	ownerUUID, err := uuid.Parse(userID)
	if err != nil {
		return Device{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, device_name, application_code, secret_key, created_at
        FROM devices WHERE id = $1 AND user_id = $2`, deviceUUID, ownerUUID)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, ErrNotFound
		}
		return Device{}, fmt.Errorf("select device: %w", err)
	}
	return d, nil
}

// ListByUser returns the owner's devices, oldest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Device, error) {
	ownerUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, device_name, application_code, secret_key, created_at
        FROM devices WHERE user_id = $1 ORDER BY created_at, id`, ownerUUID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDevice(row pgx.Row) (Device, error) {
	var (
		d         Device
		id        uuid.UUID
		owner     uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &owner, &d.Name, &d.ApplicationCode, &d.SecretKey, &createdAt); err != nil {
		return Device{}, err
	}
	d.ID = id.String()
	d.UserID = owner.String()
	d.CreatedAt = createdAt.UTC()
	return d, nil
}
