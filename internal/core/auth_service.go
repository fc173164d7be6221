package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a failed login. It deliberately does
// not distinguish between an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService is a static credential check over the seeded user table. It
// produces the caller Identity the command surface requires; session token
// issuance lives in the web adapter.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	// CreateUser stores a user with a bcrypt-hashed password. Used by
	// seeding; there is no self-service registration.
	CreateUser(ctx context.Context, name, email, password string, role Role, homeLocationID *string) (*User, error)
}

type authService struct {
	conn *sqlx.DB
}

func NewAuthService(conn *sqlx.DB) AuthService {
	return &authService{conn: conn}
}

func (s *authService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var u User
	err := s.conn.GetContext(ctx, &u,
		s.conn.Rebind("SELECT * FROM users WHERE email = ?"), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (s *authService) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.conn.GetContext(ctx, &u,
		s.conn.Rebind("SELECT * FROM users WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "user", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	return &u, nil
}

func (s *authService) CreateUser(ctx context.Context, name, email, password string, role Role, homeLocationID *string) (*User, error) {
	switch {
	case name == "":
		return nil, validationf("name", "must not be empty")
	case email == "":
		return nil, validationf("email", "must not be empty")
	case len(password) < 6:
		return nil, validationf("password", "must be at least 6 characters")
	}
	switch role {
	case RoleAdmin, RolePharmacist, RoleWarehouse:
	default:
		return nil, validationf("role", "unknown role %q", role)
	}
	if role == RolePharmacist && homeLocationID == nil {
		return nil, validationf("home_location_id", "pharmacists must be assigned to a clinic")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		PasswordHash:   string(hash),
		Role:           role,
		HomeLocationID: homeLocationID,
		CreatedAt:      nowStamp(),
	}
	_, err = s.conn.ExecContext(ctx, s.conn.Rebind(`
		INSERT INTO users (id, name, email, password_hash, role, home_location_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.HomeLocationID, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	return u, nil
}
