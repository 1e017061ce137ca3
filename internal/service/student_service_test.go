package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

type mockStudentRepo struct {
	students     map[string]models.StudentRecord
	takenNumbers map[string]string
	maxSequence  int
	deactivated  []string
	lastVariants []string
	listTotal    int
	err          error
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter, dateVariants []string) ([]models.StudentDetail, int, error) {
	m.lastVariants = dateVariants
	if m.err != nil {
		return nil, 0, m.err
	}
	details := make([]models.StudentDetail, 0, len(m.students))
	for _, s := range m.students {
		details = append(details, models.StudentDetail{StudentRecord: s})
	}
	return details, m.listTotal, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		detail := models.StudentDetail{StudentRecord: s}
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindActiveByIDs(ctx context.Context, ids []string) ([]models.StudentRecord, error) {
	var out []models.StudentRecord
	for _, id := range ids {
		if s, ok := m.students[id]; ok && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) ExistsByNoAndDate(ctx context.Context, studentNo string, dateVariants []string, excludeID string) (bool, error) {
	if id, ok := m.takenNumbers[studentNo]; ok {
		if excludeID == "" || id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) MaxSequenceForPrefix(ctx context.Context, prefix string) (int, error) {
	return m.maxSequence, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.StudentRecord) error {
	if m.students == nil {
		m.students = make(map[string]models.StudentRecord)
	}
	if student.ID == "" {
		student.ID = fmt.Sprintf("gen-%d", len(m.students)+1)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.StudentRecord) error {
	if m.students == nil {
		m.students = make(map[string]models.StudentRecord)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if s, ok := m.students[id]; ok {
		s.Active = false
		m.students[id] = s
	}
	return nil
}

func TestStudentServiceCreateGeneratesNumber(t *testing.T) {
	repo := &mockStudentRepo{maxSequence: 2}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		TravelDate: "01/14/2026",
		Direction:  "I",
		GivenName:  "Aoi",
		FamilyName: "Tanaka",
	})
	require.NoError(t, err)
	assert.Equal(t, "20260114-003", student.StudentNo)
	assert.Equal(t, "2026-01-14", student.TravelDate)
	assert.True(t, student.Active)
}

func TestStudentServiceCreateKeepsExplicitNumber(t *testing.T) {
	repo := &mockStudentRepo{takenNumbers: make(map[string]string)}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNo:  "20260114-010",
		TravelDate: "2026-01-14",
		Direction:  "I",
		GivenName:  "Aoi",
		FamilyName: "Tanaka",
	})
	require.NoError(t, err)
	assert.Equal(t, "20260114-010", student.StudentNo)
}

func TestStudentServiceCreateDuplicateNumber(t *testing.T) {
	repo := &mockStudentRepo{takenNumbers: map[string]string{"20260114-001": "other"}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		StudentNo:  "20260114-001",
		TravelDate: "2026-01-14",
		Direction:  "I",
		GivenName:  "Aoi",
		FamilyName: "Tanaka",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "20260114-001")
	assert.Contains(t, appErr.Message, "2026-01-14")
}

func TestStudentServiceCreateRejectsBadDate(t *testing.T) {
	repo := &mockStudentRepo{}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		TravelDate: "14.01.2026",
		Direction:  "I",
		GivenName:  "Aoi",
		FamilyName: "Tanaka",
	})
	require.Error(t, err)
}

func TestStudentServiceListExpandsDateFilter(t *testing.T) {
	repo := &mockStudentRepo{listTotal: 0}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	_, _, err := svc.List(context.Background(), models.StudentFilter{Date: "2026-01-14"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2026-01-14", "01/14/2026"}, repo.lastVariants)
}

func TestStudentServiceUpdate(t *testing.T) {
	repo := &mockStudentRepo{
		students:     map[string]models.StudentRecord{"id1": {ID: "id1", StudentNo: "20260114-001", TravelDate: "2026-01-14", Direction: "I", GivenName: "Old", FamilyName: "Name", Active: true}},
		takenNumbers: make(map[string]string),
	}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "id1", UpdateStudentRequest{
		StudentNo:  "20260114-002",
		TravelDate: "01/14/2026",
		Direction:  "I",
		GivenName:  "New",
		FamilyName: "Name",
		Active:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "20260114-002", updated.StudentNo)
	assert.Equal(t, "2026-01-14", updated.TravelDate)
	assert.Equal(t, "New", updated.GivenName)
}

func TestStudentServiceDeactivate(t *testing.T) {
	repo := &mockStudentRepo{students: map[string]models.StudentRecord{"id1": {ID: "id1", StudentNo: "20260114-001", Active: true}}}
	svc := NewStudentService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), "id1"))
	assert.Contains(t, repo.deactivated, "id1")
}
