package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/stp-api/internal/models"
)

// SchoolRepository handles school and client lookups. Both tables are small
// reference data resolved by name during imports.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID returns a school by id, or nil when missing.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	var school models.School
	err := r.db.GetContext(ctx, &school,
		`SELECT id, name, active, created_at, updated_at FROM schools WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}

// FindByName resolves a school by exact case-insensitive name, or nil when missing.
func (r *SchoolRepository) FindByName(ctx context.Context, name string) (*models.School, error) {
	var school models.School
	err := r.db.GetContext(ctx, &school,
		`SELECT id, name, active, created_at, updated_at FROM schools WHERE LOWER(name) = LOWER($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find school by name: %w", err)
	}
	return &school, nil
}

// List returns all schools ordered by name.
func (r *SchoolRepository) List(ctx context.Context) ([]models.School, error) {
	var schools []models.School
	err := r.db.SelectContext(ctx, &schools,
		`SELECT id, name, active, created_at, updated_at FROM schools ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

// FindClientByName resolves a client by exact case-insensitive name, or nil when missing.
func (r *SchoolRepository) FindClientByName(ctx context.Context, name string) (*models.Client, error) {
	var client models.Client
	err := r.db.GetContext(ctx, &client,
		`SELECT id, name, active, created_at, updated_at FROM clients WHERE LOWER(name) = LOWER($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find client by name: %w", err)
	}
	return &client, nil
}

// ListClients returns all clients ordered by name.
func (r *SchoolRepository) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.SelectContext(ctx, &clients,
		`SELECT id, name, active, created_at, updated_at FROM clients ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}
