package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/stp-api/internal/models"
)

// IsUniqueViolation reports whether the error is a Postgres unique-index
// violation. Uniqueness constraints are the authoritative guard for student
// numbers and assignment exclusivity; services surface this as a conflict.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const studentColumns = `s.id, s.student_no, s.travel_date, s.trip_code, s.scheduled_time, s.actual_time, s.flight_code, s.direction, s.sex, s.given_name, s.family_name, s.host_given_name, s.host_family_name, s.phone, s.address, s.city, s.school_id, s.client_id, s.excel_order, s.active, s.created_at, s.updated_at`

// StudentRepository manages persistence for per-day arrival records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters. Date filters receive
// every stored representation of the requested day so legacy-format rows
// still match.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter, dateVariants []string) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN schools sc ON sc.id = s.school_id LEFT JOIN clients cl ON cl.id = s.client_id"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	} else {
		conditions = append(conditions, "s.active = TRUE")
	}
	if len(dateVariants) > 0 {
		conditions = append(conditions, fmt.Sprintf("s.travel_date = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(dateVariants))
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("s.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("s.client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.Direction != nil {
		conditions = append(conditions, fmt.Sprintf("s.direction = $%d", len(args)+1))
		args = append(args, *filter.Direction)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.given_name) LIKE $%d OR LOWER(s.family_name) LIKE $%d OR LOWER(s.student_no) LIKE $%d OR LOWER(s.flight_code) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	// excel_order keeps the original spreadsheet ordering within a date.
	query := fmt.Sprintf(`SELECT %s, sc.name AS school_name, cl.name AS client_name
        %s ORDER BY s.travel_date DESC, s.excel_order ASC, s.student_no ASC LIMIT %d OFFSET %d`, studentColumns, base, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, sc.name AS school_name, cl.name AS client_name
        FROM students s
        LEFT JOIN schools sc ON sc.id = s.school_id
        LEFT JOIN clients cl ON cl.id = s.client_id
        WHERE s.id = $1`, studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveByIDs returns the active records among the requested ids.
func (r *StudentRepository) FindActiveByIDs(ctx context.Context, ids []string) ([]models.StudentRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM students s WHERE s.id = ANY($1) AND s.active = TRUE`, studentColumns)
	var students []models.StudentRecord
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find students by ids: %w", err)
	}
	return students, nil
}

// ExistsByNoAndDate checks whether an active record already uses the number
// on the given date, optionally excluding an ID.
func (r *StudentRepository) ExistsByNoAndDate(ctx context.Context, studentNo string, dateVariants []string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE student_no = $1 AND travel_date = ANY($2) AND active = TRUE"
	args := []interface{}{studentNo, pq.Array(dateVariants)}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student number: %w", err)
	}
	return true, nil
}

// MaxSequenceForPrefix returns the highest numeric suffix among active
// student numbers sharing the 8-digit date prefix. Zero when none exist.
// The scan is repeated on every call; concurrent creations race and the
// unique index resolves the loser.
func (r *StudentRepository) MaxSequenceForPrefix(ctx context.Context, prefix string) (int, error) {
	const query = `SELECT COALESCE(MAX(CAST(SPLIT_PART(student_no, '-', 2) AS INT)), 0)
        FROM students
        WHERE active = TRUE AND student_no LIKE $1 AND SPLIT_PART(student_no, '-', 2) ~ '^[0-9]+$'`
	var max int
	if err := r.db.GetContext(ctx, &max, query, prefix+"-%"); err != nil {
		return 0, fmt.Errorf("max student sequence: %w", err)
	}
	return max, nil
}

// Create inserts a new arrival record.
func (r *StudentRepository) Create(ctx context.Context, student *models.StudentRecord) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_no, travel_date, trip_code, scheduled_time, actual_time, flight_code, direction, sex, given_name, family_name, host_given_name, host_family_name, phone, address, city, school_id, client_id, excel_order, active, created_at, updated_at)
        VALUES (:id, :student_no, :travel_date, :trip_code, :scheduled_time, :actual_time, :flight_code, :direction, :sex, :given_name, :family_name, :host_given_name, :host_family_name, :phone, :address, :city, :school_id, :client_id, :excel_order, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing arrival record.
func (r *StudentRepository) Update(ctx context.Context, student *models.StudentRecord) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_no = :student_no, travel_date = :travel_date, trip_code = :trip_code, scheduled_time = :scheduled_time, actual_time = :actual_time, flight_code = :flight_code, direction = :direction, sex = :sex, given_name = :given_name, family_name = :family_name, host_given_name = :host_given_name, host_family_name = :host_family_name, phone = :phone, address = :address, city = :city, school_id = :school_id, client_id = :client_id, excel_order = :excel_order, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a record inactive; rows are never purged.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
