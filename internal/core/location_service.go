package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// LocationService serves the fixed set of stock locations: one central
// warehouse plus the satellite clinics it distributes to.
type LocationService interface {
	Get(ctx context.Context, id string) (*Location, error)
	List(ctx context.Context) ([]Location, error)
	ListByKind(ctx context.Context, kind LocationKind) ([]Location, error)
	// Warehouse resolves the single warehouse-kind location, the implicit
	// source of all receipts and distributions.
	Warehouse(ctx context.Context) (*Location, error)
	// Ensure inserts a location if its id is not present yet. Used by
	// seeding; reference data is never modified through commands.
	Ensure(ctx context.Context, loc Location) error
}

type locationService struct {
	conn *sqlx.DB
}

func NewLocationService(conn *sqlx.DB) LocationService {
	return &locationService{conn: conn}
}

func (s *locationService) Get(ctx context.Context, id string) (*Location, error) {
	var loc Location
	err := s.conn.GetContext(ctx, &loc,
		s.conn.Rebind("SELECT id, name, kind FROM locations WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Kind: "location", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch location %s: %w", id, err)
	}
	return &loc, nil
}

func (s *locationService) List(ctx context.Context) ([]Location, error) {
	var locs []Location
	err := s.conn.SelectContext(ctx, &locs,
		"SELECT id, name, kind FROM locations ORDER BY kind, name")
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locs, nil
}

func (s *locationService) ListByKind(ctx context.Context, kind LocationKind) ([]Location, error) {
	var locs []Location
	err := s.conn.SelectContext(ctx, &locs,
		s.conn.Rebind("SELECT id, name, kind FROM locations WHERE kind = ? ORDER BY name"), kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s locations: %w", kind, err)
	}
	return locs, nil
}

func (s *locationService) Warehouse(ctx context.Context) (*Location, error) {
	var loc Location
	err := s.conn.GetContext(ctx, &loc,
		s.conn.Rebind("SELECT id, name, kind FROM locations WHERE kind = ? ORDER BY id LIMIT 1"),
		LocationWarehouse)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no warehouse location configured")
		}
		return nil, fmt.Errorf("failed to resolve warehouse: %w", err)
	}
	return &loc, nil
}

func (s *locationService) Ensure(ctx context.Context, loc Location) error {
	if loc.Kind != LocationWarehouse && loc.Kind != LocationClinic {
		return validationf("kind", "unknown location kind %q", loc.Kind)
	}
	_, err := s.conn.ExecContext(ctx,
		s.conn.Rebind(`INSERT INTO locations (id, name, kind) VALUES (?, ?, ?)
			ON CONFLICT (id) DO NOTHING`),
		loc.ID, loc.Name, loc.Kind)
	if err != nil {
		return fmt.Errorf("failed to ensure location %s: %w", loc.ID, err)
	}
	return nil
}
