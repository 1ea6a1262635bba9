package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkhub/internal/db"
	"parkhub/internal/entities"
	"parkhub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the user persistence auth needs. Implemented by
// repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *db.User) error
	ByUsername(ctx context.Context, username string) (*db.User, error)
	ListByRole(ctx context.Context, role string) ([]db.User, error)
}

type AuthService struct {
	Store     UserStore
	JWTSecret []byte
	TokenTTL  time.Duration
}

func NewAuthService(store UserStore, secret []byte, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &AuthService{Store: store, JWTSecret: secret, TokenTTL: ttl}
}

func (s *AuthService) Register(ctx context.Context, req entities.RegisterRequest) (*db.User, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username and password required", repository.ErrValidation)
	}
	if _, err := s.Store.ByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", repository.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &db.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Address:      req.Address,
		PinCode:      req.PinCode,
		Role:         db.RoleUser,
	}
	if err := s.Store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a signed token carrying the user id,
// username and role claims.
func (s *AuthService) Login(ctx context.Context, username, password string) (*entities.LoginResponse, error) {
	user, err := s.Store.ByUsername(ctx, username)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", repository.ErrValidation)
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(s.TokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &entities.LoginResponse{Token: token, Username: user.Username, Role: user.Role}, nil
}

// ListUsers returns every regular (non-admin) account for the admin surface.
func (s *AuthService) ListUsers(ctx context.Context) ([]entities.UserResponse, error) {
	users, err := s.Store.ListByRole(ctx, db.RoleUser)
	if err != nil {
		return nil, err
	}
	out := make([]entities.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, entities.UserResponse{
			ID:       u.ID,
			Username: u.Username,
			Name:     u.Name,
			Address:  u.Address,
			PinCode:  u.PinCode,
			Role:     u.Role,
		})
	}
	return out, nil
}
