package qr

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists QR payment records.
type Repository interface {
	Create(ctx context.Context, payment Payment) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Payment, error)
}

// PostgresRepository stores payments in the qr_payments table.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a payment record.
func (r *PostgresRepository) Create(ctx context.Context, p Payment) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return err
	}
	var deviceID *uuid.UUID
	if p.DeviceID != "" {
		parsed, err := uuid.Parse(p.DeviceID)
		if err != nil {
			return err
		}
		deviceID = &parsed
	}
	_, err = r.db.Exec(ctx, `INSERT INTO qr_payments
        (id, user_id, device_id, reference_id, amount, currency, gateway_transaction_id, gateway_status, image_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, userID, deviceID, p.ReferenceID, p.Amount, p.Currency,
		p.GatewayTransactionID, p.GatewayStatus, p.ImageURL, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert qr payment: %w", err)
	}
	return nil
}

// ListByUser returns the most recent payments first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Payment, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, device_id, reference_id, amount, currency,
            gateway_transaction_id, gateway_status, image_url, created_at
        FROM qr_payments WHERE user_id = $1
        ORDER BY created_at DESC, id LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list qr payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var (
			p         Payment
			id, user  uuid.UUID
			deviceID  *uuid.UUID
			createdAt time.Time
		)
		if err := rows.Scan(&id, &user, &deviceID, &p.ReferenceID, &p.Amount, &p.Currency,
			&p.GatewayTransactionID, &p.GatewayStatus, &p.ImageURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan qr payment: %w", err)
		}
		p.ID = id.String()
		p.UserID = user.String()
		if deviceID != nil {
			p.DeviceID = deviceID.String()
		}
		p.CreatedAt = createdAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
