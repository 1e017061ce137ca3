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

const feedbackColumns = `id, student_id, travel_date, feedback, feedback_type, status, submitted_by, reviewed_by, review_notes, active, created_at, updated_at`

// AbsentFeedbackRepository persists greeter absence/lateness notes.
type AbsentFeedbackRepository struct {
	db *sqlx.DB
}

// NewAbsentFeedbackRepository constructs an AbsentFeedbackRepository.
func NewAbsentFeedbackRepository(db *sqlx.DB) *AbsentFeedbackRepository {
	return &AbsentFeedbackRepository{db: db}
}

// FindByID fetches a feedback record.
func (r *AbsentFeedbackRepository) FindByID(ctx context.Context, id string) (*models.AbsentFeedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM absent_feedback WHERE id = $1`, feedbackColumns)
	var fb models.AbsentFeedback
	if err := r.db.GetContext(ctx, &fb, query, id); err != nil {
		return nil, err
	}
	return &fb, nil
}

// FindActiveForStudent returns the active record for a student on a date.
func (r *AbsentFeedbackRepository) FindActiveForStudent(ctx context.Context, studentID string, dateVariants []string) (*models.AbsentFeedback, error) {
	query := fmt.Sprintf(`SELECT %s FROM absent_feedback WHERE student_id = $1 AND travel_date = ANY($2) AND active = TRUE LIMIT 1`, feedbackColumns)
	var fb models.AbsentFeedback
	if err := r.db.GetContext(ctx, &fb, query, studentID, pq.Array(dateVariants)); err != nil {
		return nil, err
	}
	return &fb, nil
}

// Create inserts a new feedback record.
func (r *AbsentFeedbackRepository) Create(ctx context.Context, fb *models.AbsentFeedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = now
	}
	fb.UpdatedAt = now
	const query = `INSERT INTO absent_feedback (id, student_id, travel_date, feedback, feedback_type, status, submitted_by, reviewed_by, review_notes, active, created_at, updated_at)
        VALUES (:id, :student_id, :travel_date, :feedback, :feedback_type, :status, :submitted_by, :reviewed_by, :review_notes, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fb); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create absent feedback: %w", err)
	}
	return nil
}

// Update rewrites the feedback body and type. Every edit re-opens the review
// cycle: status returns to pending and reviewer fields are cleared.
func (r *AbsentFeedbackRepository) Update(ctx context.Context, fb *models.AbsentFeedback) error {
	fb.UpdatedAt = time.Now().UTC()
	const query = `UPDATE absent_feedback SET feedback = :feedback, feedback_type = :feedback_type, status = 'pending', reviewed_by = NULL, review_notes = NULL, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, fb); err != nil {
		return fmt.Errorf("update absent feedback: %w", err)
	}
	return nil
}

// Review records the admin review outcome.
func (r *AbsentFeedbackRepository) Review(ctx context.Context, id string, status models.FeedbackReviewStatus, reviewedBy string, notes *string) error {
	const query = `UPDATE absent_feedback SET status = $2, reviewed_by = $3, review_notes = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewedBy, notes, time.Now().UTC()); err != nil {
		return fmt.Errorf("review absent feedback: %w", err)
	}
	return nil
}

// List returns feedback records matching the filter with a total count.
func (r *AbsentFeedbackRepository) List(ctx context.Context, filter models.AbsentFeedbackFilter, dateVariants []string) ([]models.AbsentFeedback, int, error) {
	base := `FROM absent_feedback WHERE active = TRUE`
	conditions := []string{}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if len(dateVariants) > 0 {
		conditions = append(conditions, fmt.Sprintf("travel_date = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(dateVariants))
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("feedback_type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", feedbackColumns, base, size, offset)

	var records []models.AbsentFeedback
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list absent feedback: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count absent feedback: %w", err)
	}
	return records, total, nil
}
