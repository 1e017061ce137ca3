package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]*models.AssignmentDetail
	taken       []string
	created     []*models.Assignment
	createErr   error
	cancelled   []string
	pickups     []string
	deliveries  []string
}

func (m *mockAssignmentRepo) ActiveStudentIDs(ctx context.Context, studentIDs []string) ([]string, error) {
	var out []string
	for _, id := range studentIDs {
		for _, t := range m.taken {
			if id == t {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) CreateBatch(ctx context.Context, assignments []*models.Assignment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, assignments...)
	return nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	if a, ok := m.assignments[id]; ok {
		copy := *a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter, dateVariants []string) ([]models.AssignmentDetail, int, error) {
	var out []models.AssignmentDetail
	for _, a := range m.assignments {
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *mockAssignmentRepo) ListByActor(ctx context.Context, actorID string, dateVariants []string) ([]models.AssignmentDetail, error) {
	var out []models.AssignmentDetail
	for _, a := range m.assignments {
		if a.ActorID() == actorID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) UpdateStatusNotes(ctx context.Context, id string, status models.AssignmentStatus, notes string) error {
	if a, ok := m.assignments[id]; ok {
		a.Status = status
		a.Notes = notes
	}
	return nil
}

func (m *mockAssignmentRepo) Cancel(ctx context.Context, id string) error {
	m.cancelled = append(m.cancelled, id)
	if a, ok := m.assignments[id]; ok {
		a.Status = models.AssignmentCancelled
		a.Active = false
	}
	return nil
}

func (m *mockAssignmentRepo) CompletePickup(ctx context.Context, id string, at time.Time) error {
	m.pickups = append(m.pickups, id)
	if a, ok := m.assignments[id]; ok {
		a.PickupStatus = models.LegCompleted
		if a.PickupTime == nil {
			a.PickupTime = &at
		}
	}
	return nil
}

func (m *mockAssignmentRepo) CompleteDelivery(ctx context.Context, id string, at time.Time) error {
	m.deliveries = append(m.deliveries, id)
	if a, ok := m.assignments[id]; ok {
		a.DeliveryStatus = models.LegCompleted
		if a.DeliveryTime == nil {
			a.DeliveryTime = &at
		}
	}
	return nil
}

type mockAssignmentUsers struct {
	usersByRole map[string]models.UserRole
	auditLogs   []*models.AuditLog
}

func (m *mockAssignmentUsers) FindActiveByRole(ctx context.Context, id string, role models.UserRole) (*models.User, error) {
	if got, ok := m.usersByRole[id]; ok && got == role {
		return &models.User{ID: id, Role: role, Active: true}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAssignmentFixture() (*AssignmentService, *mockAssignmentRepo, *mockStudentRepo, *mockAssignmentUsers) {
	repo := &mockAssignmentRepo{assignments: make(map[string]*models.AssignmentDetail)}
	students := &mockStudentRepo{students: map[string]models.StudentRecord{
		"s1": {ID: "s1", StudentNo: "20260114-001", Active: true},
		"s2": {ID: "s2", StudentNo: "20260114-002", Active: true},
	}}
	users := &mockAssignmentUsers{usersByRole: map[string]models.UserRole{
		"d1":  models.RoleDriver,
		"sd1": models.RoleSubdriver,
	}}
	svc := NewAssignmentService(repo, students, users, validator.New(), zap.NewNop())
	return svc, repo, students, users
}

func TestAssignmentServiceCreateBatch(t *testing.T) {
	svc, repo, _, users := newAssignmentFixture()

	driverID := "d1"
	created, err := svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{
		StudentIDs: []string{"s1", "s2"},
		DriverID:   &driverID,
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Len(t, repo.created, 2)
	for _, a := range created {
		assert.Equal(t, models.AssignmentAssigned, a.Status)
		assert.Equal(t, models.LegPending, a.PickupStatus)
		assert.Equal(t, "g1", a.AssignedBy)
	}
	assert.Len(t, users.auditLogs, 1)
}

func TestAssignmentServiceCreateBatchRequiresExactlyOneActor(t *testing.T) {
	svc, _, _, _ := newAssignmentFixture()

	driverID, subdriverID := "d1", "sd1"
	_, err := svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{
		StudentIDs:  []string{"s1"},
		DriverID:    &driverID,
		SubdriverID: &subdriverID,
	})
	require.Error(t, err)

	_, err = svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{StudentIDs: []string{"s1"}})
	require.Error(t, err)
}

func TestAssignmentServiceCreateBatchRejectsWrongRole(t *testing.T) {
	svc, _, _, _ := newAssignmentFixture()

	// sd1 is a subdriver, not a driver.
	actorID := "sd1"
	_, err := svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{
		StudentIDs: []string{"s1"},
		DriverID:   &actorID,
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestAssignmentServiceCreateBatchUnknownDriver(t *testing.T) {
	svc, repo, _, _ := newAssignmentFixture()

	driverID := "ghost-driver"
	_, err := svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{
		StudentIDs: []string{"s1"},
		DriverID:   &driverID,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Contains(t, appErr.Message, "ghost-driver")
	assert.Empty(t, repo.created)
}

func TestAssignmentServiceCreateBatchConflict(t *testing.T) {
	svc, repo, _, _ := newAssignmentFixture()
	repo.taken = []string{"s2"}

	driverID := "d1"
	_, err := svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{
		StudentIDs: []string{"s1", "s2"},
		DriverID:   &driverID,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "s2")
	assert.Empty(t, repo.created)
}

func TestAssignmentServiceCreateBatchMapsUniqueViolation(t *testing.T) {
	svc, repo, _, _ := newAssignmentFixture()
	repo.createErr = &pq.Error{Code: "23505"}

	driverID := "d1"
	_, err := svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{
		StudentIDs: []string{"s1"},
		DriverID:   &driverID,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrently")
}

func TestAssignmentServiceCreateBatchUnknownStudent(t *testing.T) {
	svc, _, _, _ := newAssignmentFixture()

	driverID := "d1"
	_, err := svc.CreateBatch(context.Background(), "g1", CreateAssignmentsRequest{
		StudentIDs: []string{"s1", "ghost"},
		DriverID:   &driverID,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Contains(t, appErr.Message, "ghost")
}

func TestAssignmentServiceCompletePickupOwnership(t *testing.T) {
	svc, repo, _, _ := newAssignmentFixture()
	driverID := "d1"
	repo.assignments["a1"] = &models.AssignmentDetail{Assignment: models.Assignment{
		ID: "a1", StudentID: "s1", DriverID: &driverID,
		Status: models.AssignmentAssigned, PickupStatus: models.LegPending, DeliveryStatus: models.LegPending, Active: true,
	}}

	_, err := svc.CompletePickup(context.Background(), "a1", "someone-else")
	require.Error(t, err)
	assert.Empty(t, repo.pickups)

	detail, err := svc.CompletePickup(context.Background(), "a1", "d1")
	require.NoError(t, err)
	assert.Equal(t, models.LegCompleted, detail.PickupStatus)
	assert.NotNil(t, detail.PickupTime)
}

func TestAssignmentServiceCompleteDeliveryBeforePickup(t *testing.T) {
	svc, repo, _, _ := newAssignmentFixture()
	subdriverID := "sd1"
	repo.assignments["a1"] = &models.AssignmentDetail{Assignment: models.Assignment{
		ID: "a1", StudentID: "s1", SubdriverID: &subdriverID,
		Status: models.AssignmentAssigned, PickupStatus: models.LegPending, DeliveryStatus: models.LegPending, Active: true,
	}}

	detail, err := svc.CompleteDelivery(context.Background(), "a1", "sd1")
	require.NoError(t, err)
	assert.Equal(t, models.LegCompleted, detail.DeliveryStatus)
	assert.Equal(t, models.LegPending, detail.PickupStatus)
}

func TestAssignmentServiceUpdateCancelledDeactivates(t *testing.T) {
	svc, repo, _, _ := newAssignmentFixture()
	driverID := "d1"
	repo.assignments["a1"] = &models.AssignmentDetail{Assignment: models.Assignment{
		ID: "a1", StudentID: "s1", DriverID: &driverID,
		Status: models.AssignmentAssigned, Active: true,
	}}

	detail, err := svc.Update(context.Background(), "a1", UpdateAssignmentRequest{
		Status: models.AssignmentCancelled,
		Notes:  "flight rebooked",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCancelled, detail.Status)
	assert.Equal(t, "flight rebooked", detail.Notes)
	assert.False(t, detail.Active)
	assert.Contains(t, repo.cancelled, "a1")
}

func TestAssignmentServiceCancelFreesStudent(t *testing.T) {
	svc, repo, _, _ := newAssignmentFixture()
	driverID := "d1"
	repo.assignments["a1"] = &models.AssignmentDetail{Assignment: models.Assignment{
		ID: "a1", StudentID: "s1", DriverID: &driverID,
		Status: models.AssignmentAssigned, Active: true,
	}}

	require.NoError(t, svc.Cancel(context.Background(), "a1", "admin"))
	assert.Contains(t, repo.cancelled, "a1")
	assert.False(t, repo.assignments["a1"].Active)
}
