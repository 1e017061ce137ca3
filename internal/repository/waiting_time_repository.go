package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/stp-api/internal/models"
)

const waitingColumns = `id, student_id, travel_date, waiting_minutes, waiting_started_at, pickup_time, status, notes, active, created_at, updated_at`

// WaitingTimeRepository persists greeter waiting-time observations.
type WaitingTimeRepository struct {
	db *sqlx.DB
}

// NewWaitingTimeRepository constructs a WaitingTimeRepository.
func NewWaitingTimeRepository(db *sqlx.DB) *WaitingTimeRepository {
	return &WaitingTimeRepository{db: db}
}

// FindByID fetches a waiting-time record.
func (r *WaitingTimeRepository) FindByID(ctx context.Context, id string) (*models.WaitingTime, error) {
	query := fmt.Sprintf(`SELECT %s FROM waiting_times WHERE id = $1`, waitingColumns)
	var wt models.WaitingTime
	if err := r.db.GetContext(ctx, &wt, query, id); err != nil {
		return nil, err
	}
	return &wt, nil
}

// FindActiveForStudent returns the active record for a student on a date,
// matching every stored representation of the date.
func (r *WaitingTimeRepository) FindActiveForStudent(ctx context.Context, studentID string, dateVariants []string) (*models.WaitingTime, error) {
	query := fmt.Sprintf(`SELECT %s FROM waiting_times WHERE student_id = $1 AND travel_date = ANY($2) AND active = TRUE LIMIT 1`, waitingColumns)
	var wt models.WaitingTime
	if err := r.db.GetContext(ctx, &wt, query, studentID, pq.Array(dateVariants)); err != nil {
		return nil, err
	}
	return &wt, nil
}

// Create inserts a new record; waiting_started_at is stamped here and never
// touched again.
func (r *WaitingTimeRepository) Create(ctx context.Context, wt *models.WaitingTime) error {
	if wt.ID == "" {
		wt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if wt.WaitingStartedAt.IsZero() {
		wt.WaitingStartedAt = now
	}
	if wt.CreatedAt.IsZero() {
		wt.CreatedAt = now
	}
	wt.UpdatedAt = now
	const query = `INSERT INTO waiting_times (id, student_id, travel_date, waiting_minutes, waiting_started_at, pickup_time, status, notes, active, created_at, updated_at)
        VALUES (:id, :student_id, :travel_date, :waiting_minutes, :waiting_started_at, :pickup_time, :status, :notes, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, wt); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create waiting time: %w", err)
	}
	return nil
}

// Update modifies the mutable fields. waiting_started_at is deliberately
// excluded from the SET list.
func (r *WaitingTimeRepository) Update(ctx context.Context, wt *models.WaitingTime) error {
	wt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE waiting_times SET waiting_minutes = :waiting_minutes, pickup_time = :pickup_time, status = :status, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, wt); err != nil {
		return fmt.Errorf("update waiting time: %w", err)
	}
	return nil
}

// ListByDate returns all active records for a travel date.
func (r *WaitingTimeRepository) ListByDate(ctx context.Context, dateVariants []string) ([]models.WaitingTime, error) {
	query := fmt.Sprintf(`SELECT %s FROM waiting_times WHERE travel_date = ANY($1) AND active = TRUE ORDER BY waiting_started_at ASC`, waitingColumns)
	var records []models.WaitingTime
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(dateVariants)); err != nil {
		return nil, fmt.Errorf("list waiting times: %w", err)
	}
	return records, nil
}
