package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/internal/repository"
	"github.com/noah-isme/stp-api/pkg/dates"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

type waitingTimeRepository interface {
	FindByID(ctx context.Context, id string) (*models.WaitingTime, error)
	FindActiveForStudent(ctx context.Context, studentID string, dateVariants []string) (*models.WaitingTime, error)
	Create(ctx context.Context, wt *models.WaitingTime) error
	Update(ctx context.Context, wt *models.WaitingTime) error
	ListByDate(ctx context.Context, dateVariants []string) ([]models.WaitingTime, error)
}

type waitingStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// RecordWaitingTimeRequest upserts the waiting observation for a student on
// a travel date.
type RecordWaitingTimeRequest struct {
	StudentID      string     `json:"student_id" validate:"required"`
	TravelDate     string     `json:"travel_date" validate:"required"`
	WaitingMinutes int        `json:"waiting_minutes"`
	PickupTime     *time.Time `json:"pickup_time"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
}

// WaitingTimeService handles greeter waiting-time workflows.
type WaitingTimeService struct {
	repo      waitingTimeRepository
	students  waitingStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWaitingTimeService constructs the waiting time service.
func NewWaitingTimeService(repo waitingTimeRepository, students waitingStudentRepository, validate *validator.Validate, logger *zap.Logger) *WaitingTimeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitingTimeService{repo: repo, students: students, validator: validate, logger: logger}
}

// Record creates or updates the waiting record for the student and date.
// One active record exists per pair; a second submission edits the first.
// waiting_started_at is stamped on creation and never rewritten.
func (s *WaitingTimeService) Record(ctx context.Context, req RecordWaitingTimeRequest) (*models.WaitingTime, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid waiting time payload")
	}
	if req.WaitingMinutes < models.WaitingMinutesMin || req.WaitingMinutes > models.WaitingMinutesMax {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("waiting_minutes must be between %d and %d", models.WaitingMinutesMin, models.WaitingMinutesMax))
	}
	status := models.WaitingStatus(req.Status)
	if req.Status == "" {
		status = models.WaitingStatusWaiting
	}
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported waiting status")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	travelDate, err := dates.Normalize(req.TravelDate)
	if err != nil {
		return nil, err
	}
	variants, err := dates.Variants(travelDate)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveForStudent(ctx, req.StudentID, variants)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waiting time")
	}
	if existing != nil {
		existing.WaitingMinutes = req.WaitingMinutes
		// A nil pickup time on an edit keeps the recorded one.
		if req.PickupTime != nil {
			existing.PickupTime = req.PickupTime
		}
		existing.Status = status
		existing.Notes = req.Notes
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update waiting time")
		}
		return existing, nil
	}

	wt := &models.WaitingTime{
		StudentID:      req.StudentID,
		TravelDate:     travelDate,
		WaitingMinutes: req.WaitingMinutes,
		PickupTime:     req.PickupTime,
		Status:         status,
		Notes:          req.Notes,
		Active:         true,
	}
	if err := s.repo.Create(ctx, wt); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "waiting time was recorded concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create waiting time")
	}
	return wt, nil
}

// MarkPickedUp sets the pickup timestamp for a student, creating the record
// when the greeter never logged a wait first. On an existing record only the
// pickup time and status change; the recorded minutes and notes stand.
func (s *WaitingTimeService) MarkPickedUp(ctx context.Context, studentID, travelDate string) (*models.WaitingTime, error) {
	now := time.Now().UTC()

	normalized, err := dates.Normalize(travelDate)
	if err != nil {
		return nil, err
	}
	variants, err := dates.Variants(normalized)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveForStudent(ctx, studentID, variants)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waiting time")
	}
	if existing != nil {
		existing.PickupTime = &now
		existing.Status = models.WaitingStatusPickedUp
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update waiting time")
		}
		return existing, nil
	}

	return s.Record(ctx, RecordWaitingTimeRequest{
		StudentID:  studentID,
		TravelDate: travelDate,
		PickupTime: &now,
		Status:     string(models.WaitingStatusPickedUp),
	})
}

// Get returns one waiting record.
func (s *WaitingTimeService) Get(ctx context.Context, id string) (*models.WaitingTime, error) {
	wt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "waiting time not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waiting time")
	}
	return wt, nil
}

// ListByDate returns every active waiting record for a travel date.
func (s *WaitingTimeService) ListByDate(ctx context.Context, date string) ([]models.WaitingTime, error) {
	variants, err := dates.Variants(date)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListByDate(ctx, variants)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waiting times")
	}
	return records, nil
}
