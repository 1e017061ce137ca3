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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter, dateVariants []string) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByNoAndDate(ctx context.Context, studentNo string, dateVariants []string, excludeID string) (bool, error)
	MaxSequenceForPrefix(ctx context.Context, prefix string) (int, error)
	Create(ctx context.Context, student *models.StudentRecord) error
	Update(ctx context.Context, student *models.StudentRecord) error
	Deactivate(ctx context.Context, id string) error
}

// CreateStudentRequest holds payload for creating arrival records. StudentNo
// is optional; when empty a number is generated from the travel date.
type CreateStudentRequest struct {
	StudentNo      string  `json:"student_no"`
	TravelDate     string  `json:"travel_date" validate:"required"`
	TripCode       string  `json:"trip_code"`
	ScheduledTime  string  `json:"scheduled_time"`
	ActualTime     string  `json:"actual_time"`
	FlightCode     string  `json:"flight_code"`
	Direction      string  `json:"direction" validate:"required,oneof=D I"`
	Sex            string  `json:"sex"`
	GivenName      string  `json:"given_name" validate:"required"`
	FamilyName     string  `json:"family_name" validate:"required"`
	HostGivenName  string  `json:"host_given_name"`
	HostFamilyName string  `json:"host_family_name"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	SchoolID       *string `json:"school_id"`
	ClientID       *string `json:"client_id"`
	ExcelOrder     int     `json:"excel_order"`
}

// UpdateStudentRequest holds payload for updating arrival records.
type UpdateStudentRequest struct {
	StudentNo      string  `json:"student_no" validate:"required"`
	TravelDate     string  `json:"travel_date" validate:"required"`
	TripCode       string  `json:"trip_code"`
	ScheduledTime  string  `json:"scheduled_time"`
	ActualTime     string  `json:"actual_time"`
	FlightCode     string  `json:"flight_code"`
	Direction      string  `json:"direction" validate:"required,oneof=D I"`
	Sex            string  `json:"sex"`
	GivenName      string  `json:"given_name" validate:"required"`
	FamilyName     string  `json:"family_name" validate:"required"`
	HostGivenName  string  `json:"host_given_name"`
	HostFamilyName string  `json:"host_family_name"`
	Phone          string  `json:"phone"`
	Address        string  `json:"address"`
	City           string  `json:"city"`
	SchoolID       *string `json:"school_id"`
	ClientID       *string `json:"client_id"`
	ExcelOrder     int     `json:"excel_order"`
	Active         bool    `json:"active"`
}

// StudentService handles arrival record use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata. The date filter is
// expanded to every stored representation so legacy rows match.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	var variants []string
	if filter.Date != "" {
		var err error
		variants, err = dates.Variants(filter.Date)
		if err != nil {
			return nil, nil, err
		}
	}
	students, total, err := s.repo.List(ctx, filter, variants)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns one arrival record with school and client names.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// NextStudentNo builds the next sequential number for a travel date,
// formatted as {YYYYMMDD}-{NNN}. Gaps from deactivated rows are never
// reused; the scan always continues past the current maximum.
func (s *StudentService) NextStudentNo(ctx context.Context, travelDate string) (string, error) {
	prefix, err := dates.CompactPrefix(travelDate)
	if err != nil {
		return "", err
	}
	max, err := s.repo.MaxSequenceForPrefix(ctx, prefix)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan student numbers")
	}
	return fmt.Sprintf("%s-%03d", prefix, max+1), nil
}

// Create registers a new arrival record.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	travelDate, err := dates.Normalize(req.TravelDate)
	if err != nil {
		return nil, err
	}
	variants, err := dates.Variants(travelDate)
	if err != nil {
		return nil, err
	}

	studentNo := req.StudentNo
	if studentNo == "" {
		studentNo, err = s.NextStudentNo(ctx, travelDate)
		if err != nil {
			return nil, err
		}
	} else {
		exists, err := s.repo.ExistsByNoAndDate(ctx, studentNo, variants, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student number")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateStudent, fmt.Sprintf("student number %s already used on %s", studentNo, travelDate))
		}
	}

	student := &models.StudentRecord{
		StudentNo:      studentNo,
		TravelDate:     travelDate,
		TripCode:       req.TripCode,
		ScheduledTime:  req.ScheduledTime,
		ActualTime:     req.ActualTime,
		FlightCode:     req.FlightCode,
		Direction:      models.TravelDirection(req.Direction),
		Sex:            req.Sex,
		GivenName:      req.GivenName,
		FamilyName:     req.FamilyName,
		HostGivenName:  req.HostGivenName,
		HostFamilyName: req.HostFamilyName,
		Phone:          req.Phone,
		Address:        req.Address,
		City:           req.City,
		SchoolID:       req.SchoolID,
		ClientID:       req.ClientID,
		ExcelOrder:     req.ExcelOrder,
		Active:         true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateStudent, fmt.Sprintf("student number %s already used on %s", studentNo, travelDate))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing arrival record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
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
	exists, err := s.repo.ExistsByNoAndDate(ctx, req.StudentNo, variants, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateStudent, fmt.Sprintf("student number %s already used on %s", req.StudentNo, travelDate))
	}

	student := existing.StudentRecord
	student.StudentNo = req.StudentNo
	student.TravelDate = travelDate
	student.TripCode = req.TripCode
	student.ScheduledTime = req.ScheduledTime
	student.ActualTime = req.ActualTime
	student.FlightCode = req.FlightCode
	student.Direction = models.TravelDirection(req.Direction)
	student.Sex = req.Sex
	student.GivenName = req.GivenName
	student.FamilyName = req.FamilyName
	student.HostGivenName = req.HostGivenName
	student.HostFamilyName = req.HostFamilyName
	student.Phone = req.Phone
	student.Address = req.Address
	student.City = req.City
	student.SchoolID = req.SchoolID
	student.ClientID = req.ClientID
	student.ExcelOrder = req.ExcelOrder
	student.Active = req.Active

	if err := s.repo.Update(ctx, &student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateStudent, fmt.Sprintf("student number %s already used on %s", req.StudentNo, travelDate))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// Deactivate soft-deletes an arrival record.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	s.logger.Info("student deactivated", zap.String("student_id", id))
	return nil
}
