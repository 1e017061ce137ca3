package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stp-api/internal/models"
)

func newStatusMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var statusJoinCols = []string{"student_id", "student_no", "student_name", "travel_date", "flight_code", "direction", "school_name", "waiting_pickup_time", "assign_pickup_time", "delivery_status", "driver_name"}

func statusJoinRow(id, studentNo, travelDate string, waitingPickup *time.Time) []driver.Value {
	return []driver.Value{id, studentNo, "Aoi Tanaka", travelDate, "NH204", "I", "Springfield High", waitingPickup, nil, nil, nil}
}

// A student row persisted under the legacy MM/DD/YYYY format must still
// join its canonically stored waiting record.
func TestStatusRepositoryJoinNormalizesWaitingDate(t *testing.T) {
	db, mock, cleanup := newStatusMock(t)
	defer cleanup()
	repo := NewStatusRepository(db)

	pickup := time.Date(2026, 1, 14, 10, 30, 0, 0, time.UTC)
	joinFragment := regexp.QuoteMeta("LEFT JOIN waiting_times w ON w.student_id = s.id AND w.active = TRUE AND CASE WHEN w.travel_date LIKE '__/__/____' THEN substr(w.travel_date, 7, 4) || '-' || substr(w.travel_date, 1, 2) || '-' || substr(w.travel_date, 4, 2) ELSE w.travel_date END = CASE WHEN s.travel_date LIKE '__/__/____' THEN substr(s.travel_date, 7, 4) || '-' || substr(s.travel_date, 1, 2) || '-' || substr(s.travel_date, 4, 2) ELSE s.travel_date END")

	rows := sqlmock.NewRows(statusJoinCols).AddRow(statusJoinRow("1", "20260114-001", "01/14/2026", &pickup)...)
	mock.ExpectQuery(joinFragment).
		WithArgs(pq.Array([]string{"2026-01-14", "01/14/2026"})).
		WillReturnRows(rows)
	mock.ExpectQuery(joinFragment).
		WithArgs(pq.Array([]string{"2026-01-14", "01/14/2026"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	result, total, err := repo.JoinRows(context.Background(), models.StatusFilter{}, []string{"2026-01-14", "01/14/2026"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, result, 1)
	require.NotNil(t, result[0].WaitingPickupTime)
	assert.Equal(t, pickup, *result[0].WaitingPickupTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}
