package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
)

type mockFeedbackRepo struct {
	records map[string]*models.AbsentFeedback
	byPair  map[string]*models.AbsentFeedback
	updated []string
}

func (m *mockFeedbackRepo) FindByID(ctx context.Context, id string) (*models.AbsentFeedback, error) {
	if fb, ok := m.records[id]; ok {
		copy := *fb
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeedbackRepo) FindActiveForStudent(ctx context.Context, studentID string, dateVariants []string) (*models.AbsentFeedback, error) {
	if fb, ok := m.byPair[studentID]; ok {
		copy := *fb
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFeedbackRepo) Create(ctx context.Context, fb *models.AbsentFeedback) error {
	if fb.ID == "" {
		fb.ID = "generated"
	}
	copy := *fb
	m.records[fb.ID] = &copy
	m.byPair[fb.StudentID] = &copy
	return nil
}

func (m *mockFeedbackRepo) Update(ctx context.Context, fb *models.AbsentFeedback) error {
	m.updated = append(m.updated, fb.ID)
	stored := *fb
	stored.Status = models.FeedbackPending
	stored.ReviewedBy = nil
	stored.ReviewNotes = nil
	m.records[fb.ID] = &stored
	m.byPair[fb.StudentID] = &stored
	return nil
}

func (m *mockFeedbackRepo) Review(ctx context.Context, id string, status models.FeedbackReviewStatus, reviewedBy string, notes *string) error {
	if fb, ok := m.records[id]; ok {
		fb.Status = status
		fb.ReviewedBy = &reviewedBy
		fb.ReviewNotes = notes
	}
	return nil
}

func (m *mockFeedbackRepo) List(ctx context.Context, filter models.AbsentFeedbackFilter, dateVariants []string) ([]models.AbsentFeedback, int, error) {
	var out []models.AbsentFeedback
	for _, fb := range m.records {
		out = append(out, *fb)
	}
	return out, len(out), nil
}

func newFeedbackFixture() (*AbsentFeedbackService, *mockFeedbackRepo) {
	repo := &mockFeedbackRepo{records: make(map[string]*models.AbsentFeedback), byPair: make(map[string]*models.AbsentFeedback)}
	students := &mockStudentRepo{students: map[string]models.StudentRecord{
		"s1": {ID: "s1", StudentNo: "20260114-001", Active: true},
	}}
	return NewAbsentFeedbackService(repo, students, validator.New(), zap.NewNop()), repo
}

func TestAbsentFeedbackServiceSubmitCreates(t *testing.T) {
	svc, _ := newFeedbackFixture()

	fb, err := svc.Submit(context.Background(), "g1", SubmitFeedbackRequest{
		StudentID:  "s1",
		TravelDate: "01/14/2026",
		Feedback:   "did not arrive on flight",
		Type:       "absent",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-14", fb.TravelDate)
	assert.Equal(t, models.FeedbackPending, fb.Status)
	assert.Equal(t, "g1", fb.SubmittedBy)
}

func TestAbsentFeedbackServiceEditResetsReview(t *testing.T) {
	svc, repo := newFeedbackFixture()

	fb, err := svc.Submit(context.Background(), "g1", SubmitFeedbackRequest{
		StudentID:  "s1",
		TravelDate: "2026-01-14",
		Feedback:   "missed the flight",
		Type:       "no_show",
	})
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), fb.ID, "admin", ReviewFeedbackRequest{Status: "reviewed"})
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackReviewed, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)

	edited, err := svc.Submit(context.Background(), "g1", SubmitFeedbackRequest{
		StudentID:  "s1",
		TravelDate: "2026-01-14",
		Feedback:   "actually arrived late",
		Type:       "late",
	})
	require.NoError(t, err)
	assert.Equal(t, fb.ID, edited.ID)
	assert.Equal(t, models.FeedbackPending, edited.Status)
	assert.Nil(t, edited.ReviewedBy)
	assert.Nil(t, edited.ReviewNotes)
	assert.Contains(t, repo.updated, fb.ID)
}

func TestAbsentFeedbackServiceRejectsOversizedBody(t *testing.T) {
	svc, _ := newFeedbackFixture()

	_, err := svc.Submit(context.Background(), "g1", SubmitFeedbackRequest{
		StudentID:  "s1",
		TravelDate: "2026-01-14",
		Feedback:   strings.Repeat("x", models.MaxFeedbackLength+1),
		Type:       "absent",
	})
	require.Error(t, err)
}

func TestAbsentFeedbackServiceRejectsUnknownType(t *testing.T) {
	svc, _ := newFeedbackFixture()

	_, err := svc.Submit(context.Background(), "g1", SubmitFeedbackRequest{
		StudentID:  "s1",
		TravelDate: "2026-01-14",
		Feedback:   "note",
		Type:       "vanished",
	})
	require.Error(t, err)
}
