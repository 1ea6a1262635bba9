package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkhub/internal/db"

	"github.com/lib/pq"
)

type ReservationRepository struct {
	DB *sql.DB
}

func NewReservationRepository(database *sql.DB) *ReservationRepository {
	return &ReservationRepository{DB: database}
}

// ReservationDetail is a reservation joined with the owning user and lot,
// used by reminder and report jobs and by history listings.
type ReservationDetail struct {
	Reservation db.Reservation
	Username    string
	UserName    string
	LotName     string
}

// LotRevenue is the summed cost of closed reservations per lot.
type LotRevenue struct {
	LotID   int64
	LotName string
	Revenue int64
}

func (r *ReservationRepository) Create(ctx context.Context, res *db.Reservation) error {
	query := `
	INSERT INTO reservations (user_id, lot_id, spot_id, vehicle_tag, status, start_time)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, updated_at`

	err := r.DB.QueryRowContext(ctx, query,
		res.UserID, res.LotID, res.SpotID, res.VehicleTag, res.Status, res.StartTime,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ByID(ctx context.Context, id int64) (*db.Reservation, error) {
	query := `
	SELECT id, user_id, lot_id, spot_id, vehicle_tag, status, start_time, end_time, cost,
	       created_at, updated_at
	FROM reservations WHERE id = $1`

	var res db.Reservation
	var end sql.NullTime
	var cost sql.NullInt64
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&res.ID, &res.UserID, &res.LotID, &res.SpotID, &res.VehicleTag, &res.Status,
		&res.StartTime, &end, &cost, &res.CreatedAt, &res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		res.EndTime = &t
	}
	if cost.Valid {
		c := cost.Int64
		res.Cost = &c
	}
	return &res, nil
}

// DetailByID returns one reservation joined with its user and lot.
func (r *ReservationRepository) DetailByID(ctx context.Context, id int64) (*ReservationDetail, error) {
	query := `
	SELECT r.id, r.user_id, r.lot_id, r.spot_id, r.vehicle_tag, r.status,
	       r.start_time, r.end_time, r.cost, r.created_at, r.updated_at,
	       u.username, u.name, l.name
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN lots l ON l.id = r.lot_id
	WHERE r.id = $1`

	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details, err := scanDetails(rows)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrNotFound
	}
	return &details[0], nil
}

// CloseAndRelease writes end time, cost and the closed status and frees the
// reservation's spot in a single transaction, each update conditional on the
// row's current state. Either both rows commit or neither does, so a closed
// reservation can never be observed still holding a reserved spot.
func (r *ReservationRepository) CloseAndRelease(ctx context.Context, id, spotID int64, end time.Time, cost int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	UPDATE reservations
	SET status = 'closed', end_time = $1, cost = $2, updated_at = now()
	WHERE id = $3 AND status = 'active'`, end, cost, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyClosed
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE spots SET status = 'free' WHERE id = $1 AND status = 'reserved'`, spotID)
	if err != nil {
		return err
	}
	n, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidSpotState
	}
	return tx.Commit()
}

// ListByUser returns a user's reservations newest first, optionally filtered
// by status.
func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64, statuses ...string) ([]ReservationDetail, error) {
	query := `
	SELECT r.id, r.user_id, r.lot_id, r.spot_id, r.vehicle_tag, r.status,
	       r.start_time, r.end_time, r.cost, r.created_at, r.updated_at,
	       u.username, u.name, l.name
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN lots l ON l.id = r.lot_id
	WHERE r.user_id = $1 AND (cardinality($2::text[]) = 0 OR r.status = ANY($2))
	ORDER BY r.start_time DESC`

	rows, err := r.DB.QueryContext(ctx, query, userID, pq.Array(statuses))
	if err != nil {
		return nil, fmt.Errorf("list reservations for user %d: %w", userID, err)
	}
	defer rows.Close()
	return scanDetails(rows)
}

// ListActive returns every active reservation with user and lot details,
// used by the daily reminder job.
func (r *ReservationRepository) ListActive(ctx context.Context) ([]ReservationDetail, error) {
	query := `
	SELECT r.id, r.user_id, r.lot_id, r.spot_id, r.vehicle_tag, r.status,
	       r.start_time, r.end_time, r.cost, r.created_at, r.updated_at,
	       u.username, u.name, l.name
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN lots l ON l.id = r.lot_id
	WHERE r.status = 'active'
	ORDER BY r.start_time`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	defer rows.Close()
	return scanDetails(rows)
}

// ListClosedBetween returns reservations closed within [from, to), used by
// the monthly report job.
func (r *ReservationRepository) ListClosedBetween(ctx context.Context, from, to time.Time) ([]ReservationDetail, error) {
	query := `
	SELECT r.id, r.user_id, r.lot_id, r.spot_id, r.vehicle_tag, r.status,
	       r.start_time, r.end_time, r.cost, r.created_at, r.updated_at,
	       u.username, u.name, l.name
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN lots l ON l.id = r.lot_id
	WHERE r.status = 'closed' AND r.end_time >= $1 AND r.end_time < $2
	ORDER BY r.user_id, r.end_time`

	rows, err := r.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list closed reservations: %w", err)
	}
	defer rows.Close()
	return scanDetails(rows)
}

func (r *ReservationRepository) RevenuePerLot(ctx context.Context) ([]LotRevenue, error) {
	query := `
	SELECT l.id, l.name, COALESCE(SUM(r.cost), 0)
	FROM lots l
	LEFT JOIN reservations r ON r.lot_id = l.id AND r.status = 'closed'
	GROUP BY l.id, l.name
	ORDER BY l.id`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("revenue per lot: %w", err)
	}
	defer rows.Close()

	var result []LotRevenue
	for rows.Next() {
		var lr LotRevenue
		if err := rows.Scan(&lr.LotID, &lr.LotName, &lr.Revenue); err != nil {
			return nil, err
		}
		result = append(result, lr)
	}
	return result, rows.Err()
}

func scanDetails(rows *sql.Rows) ([]ReservationDetail, error) {
	var result []ReservationDetail
	for rows.Next() {
		var d ReservationDetail
		var end sql.NullTime
		var cost sql.NullInt64
		if err := rows.Scan(
			&d.Reservation.ID, &d.Reservation.UserID, &d.Reservation.LotID,
			&d.Reservation.SpotID, &d.Reservation.VehicleTag, &d.Reservation.Status,
			&d.Reservation.StartTime, &end, &cost,
			&d.Reservation.CreatedAt, &d.Reservation.UpdatedAt,
			&d.Username, &d.UserName, &d.LotName,
		); err != nil {
			return nil, err
		}
		if end.Valid {
			t := end.Time
			d.Reservation.EndTime = &t
		}
		if cost.Valid {
			c := cost.Int64
			d.Reservation.Cost = &c
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
