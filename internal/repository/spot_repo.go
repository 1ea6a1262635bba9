package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkhub/internal/db"
)

// SpotRepository persists spot rows. Every statement here is a single atomic
// round trip; the spot pool serializes them per lot, and the conditional
// WHERE clauses reject transitions that raced past a missed lock anyway.
type SpotRepository struct {
	DB *sql.DB
}

func NewSpotRepository(database *sql.DB) *SpotRepository {
	return &SpotRepository{DB: database}
}

func (r *SpotRepository) ByID(ctx context.Context, id int64) (*db.Spot, error) {
	var s db.Spot
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, lot_id, status FROM spots WHERE id = $1`, id,
	).Scan(&s.ID, &s.LotID, &s.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FirstFree returns the lowest-id free spot of a lot, or ErrNoAvailableSpot.
func (r *SpotRepository) FirstFree(ctx context.Context, lotID int64) (*db.Spot, error) {
	var s db.Spot
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, lot_id, status FROM spots
		 WHERE lot_id = $1 AND status = 'free'
		 ORDER BY id LIMIT 1`, lotID,
	).Scan(&s.ID, &s.LotID, &s.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAvailableSpot
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SpotRepository) Counts(ctx context.Context, lotID int64) (db.SpotCounts, error) {
	query := `
	SELECT COUNT(*) FILTER (WHERE status = 'free'),
	       COUNT(*) FILTER (WHERE status = 'reserved'),
	       COUNT(*) FILTER (WHERE status = 'disabled')
	FROM spots WHERE lot_id = $1`

	var c db.SpotCounts
	err := r.DB.QueryRowContext(ctx, query, lotID).Scan(&c.Free, &c.Reserved, &c.Disabled)
	if err != nil {
		return db.SpotCounts{}, fmt.Errorf("count spots for lot %d: %w", lotID, err)
	}
	return c, nil
}

// UpdateStatus flips one spot from one status to another. The transition is
// conditional on the current status; a non-matching row yields
// ErrInvalidSpotState so a double release is rejected rather than absorbed.
func (r *SpotRepository) UpdateStatus(ctx context.Context, spotID int64, from, to string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE spots SET status = $1 WHERE id = $2 AND status = $3`, to, spotID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidSpotState
	}
	return nil
}

// UpdateAllStatus flips every spot of a lot currently in status from to
// status to and reports how many rows changed.
func (r *SpotRepository) UpdateAllStatus(ctx context.Context, lotID int64, from, to string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE spots SET status = $1 WHERE lot_id = $2 AND status = $3`, to, lotID, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SpotRepository) InsertMany(ctx context.Context, lotID int64, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO spots (lot_id, status) SELECT $1, 'free' FROM generate_series(1, $2)`,
		lotID, n)
	if err != nil {
		return fmt.Errorf("insert %d spots for lot %d: %w", n, lotID, err)
	}
	return nil
}

// DeleteFree removes up to n free spots of a lot, newest first, so that
// long-lived spot identities stay stable across shrinks.
func (r *SpotRepository) DeleteFree(ctx context.Context, lotID int64, n int) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	query := `
	DELETE FROM spots WHERE id IN (
		SELECT id FROM spots
		WHERE lot_id = $1 AND status = 'free'
		ORDER BY id DESC LIMIT $2
	)`

	res, err := r.DB.ExecContext(ctx, query, lotID, n)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
