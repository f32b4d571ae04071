package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table holding the booking codes issued to each identity.
const Schema = `CREATE TABLE IF NOT EXISTS my_bookings (
	subject    TEXT        NOT NULL,
	code       TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (subject, code)
)`

type BookingCodeRepository interface {
	EnsureSchema(ctx context.Context) error
	AddBookingCode(ctx context.Context, subject, code string) error
	ListBookingCodes(ctx context.Context, subject string, limit int) ([]string, error)
}

type PGBookingCodeRepository struct {
	db *pgxpool.Pool
}

func NewBookingCodeRepository(db *pgxpool.Pool) BookingCodeRepository {
	return &PGBookingCodeRepository{db: db}
}

func (r *PGBookingCodeRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, Schema)
	return err
}

// AddBookingCode is idempotent: a code already recorded for subject keeps its original timestamp.
func (r *PGBookingCodeRepository) AddBookingCode(ctx context.Context, subject, code string) error {
	if subject == "" || code == "" {
		return errors.New("subject and code are required")
	}
	_, err := r.db.Exec(ctx, `INSERT INTO my_bookings (subject, code) VALUES ($1, $2) ON CONFLICT (subject, code) DO NOTHING`, subject, code)
	return err
}

// ListBookingCodes returns the newest codes first. limit <= 0 returns all of them.
func (r *PGBookingCodeRepository) ListBookingCodes(ctx context.Context, subject string, limit int) ([]string, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.db.Query(ctx, `SELECT code FROM my_bookings WHERE subject=$1 ORDER BY created_at DESC, code LIMIT $2`, subject, lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

var _ BookingCodeRepository = (*PGBookingCodeRepository)(nil)
