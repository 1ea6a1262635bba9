package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkhub/internal/db"
)

type LotRepository struct {
	DB *sql.DB
}

func NewLotRepository(database *sql.DB) *LotRepository {
	return &LotRepository{DB: database}
}

// LotSummary is a lot row joined with its current free-spot count, used by
// the public listing. The count may be stale by the time an allocation runs;
// the spot pool never consults it.
type LotSummary struct {
	Lot       db.Lot
	FreeSpots int
}

func (r *LotRepository) Create(ctx context.Context, lot *db.Lot) error {
	query := `
	INSERT INTO lots (name, address, pin_code, hourly_price, capacity, active)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, updated_at`

	err := r.DB.QueryRowContext(ctx, query,
		lot.Name, lot.Address, lot.PinCode, lot.HourlyPrice, lot.Capacity, lot.Active,
	).Scan(&lot.ID, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert lot: %w", err)
	}
	return nil
}

func (r *LotRepository) ByID(ctx context.Context, id int64) (*db.Lot, error) {
	query := `
	SELECT id, name, address, pin_code, hourly_price, capacity, active, created_at, updated_at
	FROM lots WHERE id = $1`

	var lot db.Lot
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&lot.ID, &lot.Name, &lot.Address, &lot.PinCode,
		&lot.HourlyPrice, &lot.Capacity, &lot.Active,
		&lot.CreatedAt, &lot.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// UpdateFields updates the descriptive columns of a lot. Capacity and the
// active flag are owned by the spot pool and are not touched here.
func (r *LotRepository) UpdateFields(ctx context.Context, lot *db.Lot) error {
	query := `
	UPDATE lots SET name = $1, address = $2, pin_code = $3, hourly_price = $4, updated_at = now()
	WHERE id = $5`

	res, err := r.DB.ExecContext(ctx, query, lot.Name, lot.Address, lot.PinCode, lot.HourlyPrice, lot.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a lot and any spot rows it still owns. Used to undo a lot
// insert whose initial spot set could not be created.
func (r *LotRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM spots WHERE lot_id = $1`, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM lots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (r *LotRepository) SetCapacity(ctx context.Context, id int64, capacity int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE lots SET capacity = $1, updated_at = now() WHERE id = $2`, capacity, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LotRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE lots SET active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns lots with their free-spot counts. When activeOnly is set,
// disabled lots are excluded (the public listing); admins see everything.
func (r *LotRepository) List(ctx context.Context, activeOnly bool) ([]LotSummary, error) {
	query := `
	SELECT l.id, l.name, l.address, l.pin_code, l.hourly_price, l.capacity, l.active,
	       l.created_at, l.updated_at,
	       COUNT(s.id) FILTER (WHERE s.status = 'free') AS free_spots
	FROM lots l
	LEFT JOIN spots s ON s.lot_id = l.id
	WHERE ($1 = false OR l.active)
	GROUP BY l.id
	ORDER BY l.id`

	rows, err := r.DB.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var result []LotSummary
	for rows.Next() {
		var s LotSummary
		if err := rows.Scan(
			&s.Lot.ID, &s.Lot.Name, &s.Lot.Address, &s.Lot.PinCode,
			&s.Lot.HourlyPrice, &s.Lot.Capacity, &s.Lot.Active,
			&s.Lot.CreatedAt, &s.Lot.UpdatedAt, &s.FreeSpots,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
