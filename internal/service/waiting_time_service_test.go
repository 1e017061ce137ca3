package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
)

type mockWaitingRepo struct {
	records map[string]*models.WaitingTime
	byPair  map[string]*models.WaitingTime
	updated []string
}

func (m *mockWaitingRepo) FindByID(ctx context.Context, id string) (*models.WaitingTime, error) {
	if wt, ok := m.records[id]; ok {
		copy := *wt
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockWaitingRepo) FindActiveForStudent(ctx context.Context, studentID string, dateVariants []string) (*models.WaitingTime, error) {
	if wt, ok := m.byPair[studentID]; ok {
		copy := *wt
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockWaitingRepo) Create(ctx context.Context, wt *models.WaitingTime) error {
	if m.records == nil {
		m.records = make(map[string]*models.WaitingTime)
	}
	if m.byPair == nil {
		m.byPair = make(map[string]*models.WaitingTime)
	}
	if wt.ID == "" {
		wt.ID = "generated"
	}
	if wt.WaitingStartedAt.IsZero() {
		wt.WaitingStartedAt = time.Now()
	}
	copy := *wt
	m.records[wt.ID] = &copy
	m.byPair[wt.StudentID] = &copy
	return nil
}

func (m *mockWaitingRepo) Update(ctx context.Context, wt *models.WaitingTime) error {
	m.updated = append(m.updated, wt.ID)
	copy := *wt
	m.records[wt.ID] = &copy
	m.byPair[wt.StudentID] = &copy
	return nil
}

func (m *mockWaitingRepo) ListByDate(ctx context.Context, dateVariants []string) ([]models.WaitingTime, error) {
	var out []models.WaitingTime
	for _, wt := range m.records {
		out = append(out, *wt)
	}
	return out, nil
}

func newWaitingFixture() (*WaitingTimeService, *mockWaitingRepo, *mockStudentRepo) {
	repo := &mockWaitingRepo{records: make(map[string]*models.WaitingTime), byPair: make(map[string]*models.WaitingTime)}
	students := &mockStudentRepo{students: map[string]models.StudentRecord{
		"s1": {ID: "s1", StudentNo: "20260114-001", TravelDate: "2026-01-14", Active: true},
	}}
	return NewWaitingTimeService(repo, students, validator.New(), zap.NewNop()), repo, students
}

func TestWaitingTimeServiceRecordCreates(t *testing.T) {
	svc, _, _ := newWaitingFixture()

	wt, err := svc.Record(context.Background(), RecordWaitingTimeRequest{
		StudentID:      "s1",
		TravelDate:     "01/14/2026",
		WaitingMinutes: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-14", wt.TravelDate)
	assert.Equal(t, models.WaitingStatusWaiting, wt.Status)
	assert.False(t, wt.WaitingStartedAt.IsZero())
}

func TestWaitingTimeServiceRecordBounds(t *testing.T) {
	svc, _, _ := newWaitingFixture()

	for _, minutes := range []int{-1, 121} {
		_, err := svc.Record(context.Background(), RecordWaitingTimeRequest{
			StudentID:      "s1",
			TravelDate:     "2026-01-14",
			WaitingMinutes: minutes,
		})
		require.Error(t, err, "minutes=%d", minutes)
	}

	for _, minutes := range []int{0, 120} {
		_, err := svc.Record(context.Background(), RecordWaitingTimeRequest{
			StudentID:      "s1",
			TravelDate:     "2026-01-14",
			WaitingMinutes: minutes,
		})
		require.NoError(t, err, "minutes=%d", minutes)
	}
}

func TestWaitingTimeServiceRecordUpdatesExisting(t *testing.T) {
	svc, repo, _ := newWaitingFixture()

	started := time.Now().Add(-time.Hour)
	repo.byPair["s1"] = &models.WaitingTime{ID: "w1", StudentID: "s1", TravelDate: "2026-01-14", WaitingMinutes: 10, WaitingStartedAt: started, Status: models.WaitingStatusWaiting, Active: true}
	repo.records["w1"] = repo.byPair["s1"]

	wt, err := svc.Record(context.Background(), RecordWaitingTimeRequest{
		StudentID:      "s1",
		TravelDate:     "2026-01-14",
		WaitingMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, "w1", wt.ID)
	assert.Equal(t, 45, wt.WaitingMinutes)
	assert.Equal(t, started, wt.WaitingStartedAt)
	assert.Contains(t, repo.updated, "w1")
}

func TestWaitingTimeServiceMarkPickedUp(t *testing.T) {
	svc, _, _ := newWaitingFixture()

	wt, err := svc.MarkPickedUp(context.Background(), "s1", "2026-01-14")
	require.NoError(t, err)
	assert.Equal(t, models.WaitingStatusPickedUp, wt.Status)
	require.NotNil(t, wt.PickupTime)
}

func TestWaitingTimeServiceMarkPickedUpKeepsObservation(t *testing.T) {
	svc, _, _ := newWaitingFixture()

	_, err := svc.Record(context.Background(), RecordWaitingTimeRequest{
		StudentID:      "s1",
		TravelDate:     "2026-01-14",
		WaitingMinutes: 30,
		Notes:          "bus delayed",
	})
	require.NoError(t, err)

	wt, err := svc.MarkPickedUp(context.Background(), "s1", "2026-01-14")
	require.NoError(t, err)
	assert.Equal(t, models.WaitingStatusPickedUp, wt.Status)
	require.NotNil(t, wt.PickupTime)
	assert.Equal(t, 30, wt.WaitingMinutes)
	assert.Equal(t, "bus delayed", wt.Notes)
}

func TestWaitingTimeServiceRecordUnknownStudent(t *testing.T) {
	svc, _, _ := newWaitingFixture()

	_, err := svc.Record(context.Background(), RecordWaitingTimeRequest{
		StudentID:      "ghost",
		TravelDate:     "2026-01-14",
		WaitingMinutes: 5,
	})
	require.Error(t, err)
}
