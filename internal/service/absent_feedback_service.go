package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/internal/repository"
	"github.com/noah-isme/stp-api/pkg/dates"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

type absentFeedbackRepository interface {
	FindByID(ctx context.Context, id string) (*models.AbsentFeedback, error)
	FindActiveForStudent(ctx context.Context, studentID string, dateVariants []string) (*models.AbsentFeedback, error)
	Create(ctx context.Context, fb *models.AbsentFeedback) error
	Update(ctx context.Context, fb *models.AbsentFeedback) error
	Review(ctx context.Context, id string, status models.FeedbackReviewStatus, reviewedBy string, notes *string) error
	List(ctx context.Context, filter models.AbsentFeedbackFilter, dateVariants []string) ([]models.AbsentFeedback, int, error)
}

// SubmitFeedbackRequest upserts the absence note for a student and date.
type SubmitFeedbackRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	TravelDate string `json:"travel_date" validate:"required"`
	Feedback   string `json:"feedback" validate:"required"`
	Type       string `json:"feedback_type" validate:"required"`
}

// ReviewFeedbackRequest records the admin review outcome.
type ReviewFeedbackRequest struct {
	Status      string  `json:"status" validate:"required"`
	ReviewNotes *string `json:"review_notes"`
}

// AbsentFeedbackService handles greeter absence note workflows.
type AbsentFeedbackService struct {
	repo      absentFeedbackRepository
	students  waitingStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAbsentFeedbackService constructs the feedback service.
func NewAbsentFeedbackService(repo absentFeedbackRepository, students waitingStudentRepository, validate *validator.Validate, logger *zap.Logger) *AbsentFeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsentFeedbackService{repo: repo, students: students, validator: validate, logger: logger}
}

// Submit creates or rewrites the note for the student and date. Any edit
// re-opens the review cycle: status returns to pending and reviewer fields
// are cleared.
func (s *AbsentFeedbackService) Submit(ctx context.Context, submittedBy string, req SubmitFeedbackRequest) (*models.AbsentFeedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	if len(req.Feedback) > models.MaxFeedbackLength {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("feedback must not exceed %d characters", models.MaxFeedbackLength))
	}
	fbType := models.FeedbackType(req.Type)
	if !fbType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported feedback type")
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
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	if existing != nil {
		existing.Feedback = req.Feedback
		existing.Type = fbType
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update feedback")
		}
		existing.Status = models.FeedbackPending
		existing.ReviewedBy = nil
		existing.ReviewNotes = nil
		return existing, nil
	}

	fb := &models.AbsentFeedback{
		StudentID:   req.StudentID,
		TravelDate:  travelDate,
		Feedback:    req.Feedback,
		Type:        fbType,
		Status:      models.FeedbackPending,
		SubmittedBy: submittedBy,
		Active:      true,
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "feedback was submitted concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feedback")
	}
	return fb, nil
}

// Review records the admin's review of a note.
func (s *AbsentFeedbackService) Review(ctx context.Context, id, reviewedBy string, req ReviewFeedbackRequest) (*models.AbsentFeedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	status := models.FeedbackReviewStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported review status")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Review(ctx, id, status, reviewedBy, req.ReviewNotes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review feedback")
	}
	return s.Get(ctx, id)
}

// Get returns one feedback record.
func (s *AbsentFeedbackService) Get(ctx context.Context, id string) (*models.AbsentFeedback, error) {
	fb, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	return fb, nil
}

// List returns feedback records matching the filter.
func (s *AbsentFeedbackService) List(ctx context.Context, filter models.AbsentFeedbackFilter) ([]models.AbsentFeedback, *models.Pagination, error) {
	var variants []string
	if filter.Date != "" {
		var err error
		variants, err = dates.Variants(filter.Date)
		if err != nil {
			return nil, nil, err
		}
	}
	records, total, err := s.repo.List(ctx, filter, variants)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}
