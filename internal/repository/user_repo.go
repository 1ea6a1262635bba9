package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkhub/internal/db"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(database *sql.DB) *UserRepository {
	return &UserRepository{DB: database}
}

func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	query := `
	INSERT INTO users (username, password_hash, name, address, pin_code, role)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at`

	err := r.DB.QueryRowContext(ctx, query,
		user.Username, user.PasswordHash, user.Name, user.Address, user.PinCode, user.Role,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*db.User, error) {
	return r.one(ctx, `WHERE username = $1`, username)
}

func (r *UserRepository) ByID(ctx context.Context, id int64) (*db.User, error) {
	return r.one(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) one(ctx context.Context, where string, arg any) (*db.User, error) {
	query := `
	SELECT id, username, password_hash, name, address, pin_code, role, created_at
	FROM users ` + where

	var u db.User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Address, &u.PinCode, &u.Role, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]db.User, error) {
	query := `
	SELECT id, username, password_hash, name, address, pin_code, role, created_at
	FROM users WHERE role = $1 ORDER BY id`

	rows, err := r.DB.QueryContext(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []db.User
	for rows.Next() {
		var u db.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Address, &u.PinCode, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
