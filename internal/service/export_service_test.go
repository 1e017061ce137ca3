package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
)

func newExportFixture() (*ExportService, *mockAssignmentRepo, *mockStatusRepo) {
	assignments := &mockAssignmentRepo{assignments: make(map[string]*models.AssignmentDetail)}
	status := &mockStatusRepo{}
	svc := NewExportService(assignments, status, nil, nil, zap.NewNop())
	return svc, assignments, status
}

func TestExportServiceDriverManifestCSV(t *testing.T) {
	svc, assignments, _ := newExportFixture()
	driverID := "d1"
	pickedUp := time.Date(2026, 1, 14, 10, 30, 0, 0, time.UTC)
	assignments.assignments["a1"] = &models.AssignmentDetail{
		Assignment: models.Assignment{
			ID: "a1", StudentID: "s1", DriverID: &driverID,
			Status: models.AssignmentAssigned, PickupStatus: models.LegCompleted, DeliveryStatus: models.LegPending,
			PickupTime: &pickedUp, Active: true,
		},
		StudentNo:   "20260114-001",
		StudentName: "Aoi Tanaka",
		TravelDate:  "2026-01-14",
		FlightCode:  "NH204",
	}

	result, err := svc.DriverManifest(context.Background(), "d1", "01/14/2026", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "manifest-2026-01-14.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	body := string(result.Payload)
	assert.Contains(t, body, "20260114-001")
	assert.Contains(t, body, "Aoi Tanaka")
	assert.Contains(t, body, "NH204")
	assert.Contains(t, body, "Completed 10:30")
	assert.Equal(t, 2, strings.Count(body, "\n"))
}

func TestExportServiceDriverManifestPDF(t *testing.T) {
	svc, _, _ := newExportFixture()

	result, err := svc.DriverManifest(context.Background(), "d1", "2026-01-14", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "manifest-2026-01-14.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newExportFixture()

	_, err := svc.DriverManifest(context.Background(), "d1", "2026-01-14", ExportFormat("xml"))
	require.Error(t, err)
}

func TestExportServiceDayStatusReport(t *testing.T) {
	svc, _, status := newExportFixture()
	now := time.Now()
	completed := string(models.LegCompleted)
	status.rows = []models.StatusJoinRow{
		{StudentID: "s1", StudentNo: "20260114-001", StudentName: "Aoi Tanaka"},
		{StudentID: "s2", StudentNo: "20260114-002", StudentName: "Ren Sato", WaitingPickupTime: &now},
		{StudentID: "s3", StudentNo: "20260114-003", StudentName: "Yui Mori", DeliveryStatus: &completed},
	}

	result, err := svc.DayStatusReport(context.Background(), models.StatusFilter{Date: "2026-01-14"}, FormatCSV)
	require.NoError(t, err)

	body := string(result.Payload)
	assert.Contains(t, body, "Waiting")
	assert.Contains(t, body, "In Car")
	assert.Contains(t, body, "Delivered")
}
