package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/stp-api/internal/models"
)

const assignmentColumns = `a.id, a.student_id, a.driver_id, a.subdriver_id, a.assigned_by, a.assignment_date, a.status, a.pickup_status, a.delivery_status, a.pickup_time, a.delivery_time, a.notes, a.active, a.created_at, a.updated_at`

// AssignmentRepository manages persistence for driver assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ActiveStudentIDs returns the subset of the given students that already
// hold an active assignment. Used as the optimistic pre-check before a
// batch insert; the partial unique index remains the real guard.
func (r *AssignmentRepository) ActiveStudentIDs(ctx context.Context, studentIDs []string) ([]string, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT student_id FROM assignments WHERE student_id = ANY($1) AND active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(studentIDs)); err != nil {
		return nil, fmt.Errorf("active assignment check: %w", err)
	}
	return ids, nil
}

// CreateBatch inserts one assignment per student inside a single
// transaction; any failure rolls back the whole batch. A unique violation
// is returned unwrapped so the service can map it to the conflict error.
func (r *AssignmentRepository) CreateBatch(ctx context.Context, assignments []*models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO assignments (id, student_id, driver_id, subdriver_id, assigned_by, assignment_date, status, pickup_status, delivery_status, notes, active, created_at, updated_at)
        VALUES (:id, :student_id, :driver_id, :subdriver_id, :assigned_by, :assignment_date, :status, :pickup_status, :delivery_status, :notes, :active, :created_at, :updated_at)`
	now := time.Now().UTC()
	for _, a := range assignments {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.AssignmentDate.IsZero() {
			a.AssignmentDate = now
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, a); err != nil {
			if IsUniqueViolation(err) {
				return err
			}
			return fmt.Errorf("insert assignment for student %s: %w", a.StudentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment batch: %w", err)
	}
	committed = true
	return nil
}

// FindByID fetches an assignment with student and actor metadata.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.student_no, s.given_name || ' ' || s.family_name AS student_name, s.travel_date, s.flight_code, u.full_name AS actor_name
        FROM assignments a
        JOIN students s ON s.id = a.student_id
        LEFT JOIN users u ON u.id = COALESCE(a.driver_id, a.subdriver_id)
        WHERE a.id = $1`, assignmentColumns)
	var detail models.AssignmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns assignments matching the filter with a total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter, dateVariants []string) ([]models.AssignmentDetail, int, error) {
	base := `FROM assignments a
        JOIN students s ON s.id = a.student_id
        LEFT JOIN users u ON u.id = COALESCE(a.driver_id, a.subdriver_id)`
	conditions := []string{"a.active = TRUE"}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DriverID != "" {
		conditions = append(conditions, fmt.Sprintf("a.driver_id = $%d", len(args)+1))
		args = append(args, filter.DriverID)
	}
	if filter.SubdriverID != "" {
		conditions = append(conditions, fmt.Sprintf("a.subdriver_id = $%d", len(args)+1))
		args = append(args, filter.SubdriverID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(dateVariants) > 0 {
		conditions = append(conditions, fmt.Sprintf("s.travel_date = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(dateVariants))
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, s.student_no, s.given_name || ' ' || s.family_name AS student_name, s.travel_date, s.flight_code, u.full_name AS actor_name
        %s ORDER BY a.assignment_date DESC LIMIT %d OFFSET %d`, assignmentColumns, base, size, offset)

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// ListByActor returns the active assignments owned by a driver or subdriver.
func (r *AssignmentRepository) ListByActor(ctx context.Context, actorID string, dateVariants []string) ([]models.AssignmentDetail, error) {
	conditions := []string{"a.active = TRUE", "(a.driver_id = $1 OR a.subdriver_id = $1)"}
	args := []interface{}{actorID}
	if len(dateVariants) > 0 {
		conditions = append(conditions, "s.travel_date = ANY($2)")
		args = append(args, pq.Array(dateVariants))
	}
	query := fmt.Sprintf(`SELECT %s, s.student_no, s.given_name || ' ' || s.family_name AS student_name, s.travel_date, s.flight_code, u.full_name AS actor_name
        FROM assignments a
        JOIN students s ON s.id = a.student_id
        LEFT JOIN users u ON u.id = COALESCE(a.driver_id, a.subdriver_id)
        WHERE %s
        ORDER BY s.excel_order ASC, s.student_no ASC`, assignmentColumns, strings.Join(conditions, " AND "))

	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list actor assignments: %w", err)
	}
	return assignments, nil
}

// UpdateStatusNotes updates the lifecycle status and notes.
func (r *AssignmentRepository) UpdateStatusNotes(ctx context.Context, id string, status models.AssignmentStatus, notes string) error {
	const query = `UPDATE assignments SET status = $2, notes = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, notes, time.Now().UTC()); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Cancel soft-deletes an assignment, freeing the student for reassignment.
func (r *AssignmentRepository) Cancel(ctx context.Context, id string) error {
	const query = `UPDATE assignments SET status = $2, active = FALSE, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.AssignmentCancelled, time.Now().UTC()); err != nil {
		return fmt.Errorf("cancel assignment: %w", err)
	}
	return nil
}

// CompletePickup stamps the pickup leg as completed. The timestamp is set at
// the moment of transition and only once.
func (r *AssignmentRepository) CompletePickup(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE assignments SET pickup_status = $2, pickup_time = COALESCE(pickup_time, $3), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.LegCompleted, at); err != nil {
		return fmt.Errorf("complete pickup: %w", err)
	}
	return nil
}

// CompleteDelivery stamps the delivery leg as completed.
func (r *AssignmentRepository) CompleteDelivery(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE assignments SET delivery_status = $2, delivery_time = COALESCE(delivery_time, $3), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.LegCompleted, at); err != nil {
		return fmt.Errorf("complete delivery: %w", err)
	}
	return nil
}
