package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/stp-api/internal/models"
)

// StatusRepository reads the raw join the status derivation works on. The
// three stores stay independent; this query only collects their signals and
// leaves the precedence rule to the service.
type StatusRepository struct {
	db *sqlx.DB
}

// NewStatusRepository constructs a StatusRepository.
func NewStatusRepository(db *sqlx.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// canonicalDate rewrites a legacy MM/DD/YYYY column value to YYYY-MM-DD in
// SQL so rows stored under either representation join and filter alike.
func canonicalDate(col string) string {
	return fmt.Sprintf("CASE WHEN %s LIKE '__/__/____' THEN substr(%s, 7, 4) || '-' || substr(%s, 1, 2) || '-' || substr(%s, 4, 2) ELSE %s END",
		col, col, col, col, col)
}

// JoinRows returns one row per matching student with the nullable signals
// owned by the assignment and waiting-time stores. The waiting-time join
// compares normalized dates: a legacy-format student row still picks up a
// canonically stored waiting record.
func (r *StatusRepository) JoinRows(ctx context.Context, filter models.StatusFilter, dateVariants []string) ([]models.StatusJoinRow, int, error) {
	base := fmt.Sprintf(`FROM students s
        LEFT JOIN schools sc ON sc.id = s.school_id
        LEFT JOIN assignments a ON a.student_id = s.id AND a.active = TRUE
        LEFT JOIN waiting_times w ON w.student_id = s.id AND w.active = TRUE AND %s = %s
        LEFT JOIN users u ON u.id = COALESCE(a.driver_id, a.subdriver_id)`,
		canonicalDate("w.travel_date"), canonicalDate("s.travel_date"))
	conditions := []string{"s.active = TRUE"}
	var args []interface{}

	if len(dateVariants) > 0 {
		conditions = append(conditions, fmt.Sprintf("s.travel_date = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(dateVariants))
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("s.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.given_name) LIKE $%d OR LOWER(s.family_name) LIKE $%d OR LOWER(s.student_no) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
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

	query := fmt.Sprintf(`SELECT s.id AS student_id, s.student_no, s.given_name || ' ' || s.family_name AS student_name,
        s.travel_date, s.flight_code, s.direction, sc.name AS school_name,
        w.pickup_time AS waiting_pickup_time, a.pickup_time AS assign_pickup_time,
        a.delivery_status, u.full_name AS driver_name
        %s ORDER BY s.excel_order ASC, s.student_no ASC LIMIT %d OFFSET %d`, base, size, offset)

	var rows []models.StatusJoinRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("status join: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count status join: %w", err)
	}
	return rows, total, nil
}

// AllJoinRows returns the unpaginated join for aggregate counting. Counts
// are always recomputed from the live join, never maintained incrementally.
func (r *StatusRepository) AllJoinRows(ctx context.Context, filter models.StatusFilter, dateVariants []string) ([]models.StatusJoinRow, error) {
	unpaged := filter
	unpaged.Page = 1
	unpaged.PageSize = 200

	var all []models.StatusJoinRow
	for {
		rows, total, err := r.JoinRows(ctx, unpaged, dateVariants)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(all) >= total || len(rows) == 0 {
			return all, nil
		}
		unpaged.Page++
	}
}
