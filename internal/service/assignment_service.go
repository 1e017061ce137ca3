package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/internal/repository"
	"github.com/noah-isme/stp-api/pkg/dates"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

type assignmentRepository interface {
	ActiveStudentIDs(ctx context.Context, studentIDs []string) ([]string, error)
	CreateBatch(ctx context.Context, assignments []*models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter, dateVariants []string) ([]models.AssignmentDetail, int, error)
	ListByActor(ctx context.Context, actorID string, dateVariants []string) ([]models.AssignmentDetail, error)
	UpdateStatusNotes(ctx context.Context, id string, status models.AssignmentStatus, notes string) error
	Cancel(ctx context.Context, id string) error
	CompletePickup(ctx context.Context, id string, at time.Time) error
	CompleteDelivery(ctx context.Context, id string, at time.Time) error
}

type assignmentStudentRepository interface {
	FindActiveByIDs(ctx context.Context, ids []string) ([]models.StudentRecord, error)
}

type assignmentUserRepository interface {
	FindActiveByRole(ctx context.Context, id string, role models.UserRole) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateAssignmentsRequest assigns a batch of students to exactly one of a
// driver or a subdriver. All rows succeed or none do.
type CreateAssignmentsRequest struct {
	StudentIDs  []string `json:"student_ids" validate:"required,min=1,dive,required"`
	DriverID    *string  `json:"driver_id"`
	SubdriverID *string  `json:"subdriver_id"`
	Notes       string   `json:"notes"`
}

// UpdateAssignmentRequest mutates the lifecycle status and notes.
type UpdateAssignmentRequest struct {
	Status models.AssignmentStatus `json:"status" validate:"required"`
	Notes  string                  `json:"notes"`
}

// AssignmentService coordinates driver assignment workflows.
type AssignmentService struct {
	repo      assignmentRepository
	students  assignmentStudentRepository
	users     assignmentUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, students assignmentStudentRepository, users assignmentUserRepository, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, students: students, users: users, validator: validate, logger: logger}
}

// CreateBatch assigns every listed student to the requested actor. The
// active-assignment pre-check is advisory; the database unique index is the
// authoritative guard and its violation maps to the same conflict error.
func (s *AssignmentService) CreateBatch(ctx context.Context, assignedBy string, req CreateAssignmentsRequest) ([]*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if (req.DriverID == nil) == (req.SubdriverID == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of driver_id or subdriver_id is required")
	}

	role := models.RoleDriver
	actorID := ""
	if req.DriverID != nil {
		actorID = *req.DriverID
	} else {
		role = models.RoleSubdriver
		actorID = *req.SubdriverID
	}
	if _, err := s.users.FindActiveByRole(ctx, actorID, role); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no active %s with id %s", strings.ToLower(string(role)), actorID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify assignee")
	}

	found, err := s.students.FindActiveByIDs(ctx, req.StudentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(found) != len(dedupe(req.StudentIDs)) {
		missing := missingIDs(req.StudentIDs, found)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown or inactive students: "+strings.Join(missing, ", "))
	}

	taken, err := s.repo.ActiveStudentIDs(ctx, req.StudentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignments")
	}
	if len(taken) > 0 {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, "students already assigned: "+strings.Join(taken, ", "))
	}

	assignments := make([]*models.Assignment, 0, len(found))
	for _, st := range found {
		assignments = append(assignments, &models.Assignment{
			StudentID:      st.ID,
			DriverID:       req.DriverID,
			SubdriverID:    req.SubdriverID,
			AssignedBy:     assignedBy,
			Status:         models.AssignmentAssigned,
			PickupStatus:   models.LegPending,
			DeliveryStatus: models.LegPending,
			Notes:          req.Notes,
			Active:         true,
		})
	}
	if err := s.repo.CreateBatch(ctx, assignments); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyAssigned, "a student in this batch was assigned concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignments")
	}

	s.audit(ctx, assignedBy, models.AuditActionAssignCreate, map[string]interface{}{
		"student_ids": req.StudentIDs,
		"actor_id":    actorID,
		"role":        role,
	})
	s.logger.Info("assignments created",
		zap.Int("count", len(assignments)),
		zap.String("actor_id", actorID),
		zap.String("assigned_by", assignedBy))
	return assignments, nil
}

// Get returns one assignment with student and actor metadata.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return detail, nil
}

// List returns assignments matching the filter.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	var variants []string
	if filter.Date != "" {
		var err error
		variants, err = dates.Variants(filter.Date)
		if err != nil {
			return nil, nil, err
		}
	}
	assignments, total, err := s.repo.List(ctx, filter, variants)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListForActor returns the assignments a driver or subdriver owns,
// optionally limited to one travel date.
func (s *AssignmentService) ListForActor(ctx context.Context, actorID, date string) ([]models.AssignmentDetail, error) {
	var variants []string
	if date != "" {
		var err error
		variants, err = dates.Variants(date)
		if err != nil {
			return nil, err
		}
	}
	assignments, err := s.repo.ListByActor(ctx, actorID, variants)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Update modifies the lifecycle status and notes.
func (s *AssignmentService) Update(ctx context.Context, id string, req UpdateAssignmentRequest) (*models.AssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported assignment status")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatusNotes(ctx, id, req.Status, req.Notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	// A cancellation must also release the student, or the active-assignment
	// unique index keeps blocking reassignment.
	if req.Status == models.AssignmentCancelled {
		if err := s.repo.Cancel(ctx, id); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel assignment")
		}
	}
	return s.Get(ctx, id)
}

// Cancel soft-deletes an assignment, freeing the student for reassignment.
func (s *AssignmentService) Cancel(ctx context.Context, id, cancelledBy string) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Cancel(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel assignment")
	}
	s.audit(ctx, cancelledBy, models.AuditActionAssignCancel, map[string]interface{}{
		"assignment_id": id,
		"student_id":    detail.StudentID,
	})
	return nil
}

// CompletePickup marks the pickup leg done. Only the assigned driver or
// subdriver may complete their own leg; the timestamp is stamped on the
// first transition and repeated calls keep the original.
func (s *AssignmentService) CompletePickup(ctx context.Context, id, actorID string) (*models.AssignmentDetail, error) {
	detail, err := s.ownedAssignment(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if detail.Status == models.AssignmentCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment is cancelled")
	}
	if err := s.repo.CompletePickup(ctx, id, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete pickup")
	}
	return s.Get(ctx, id)
}

// CompleteDelivery marks the delivery leg done. Delivery may complete
// before pickup is recorded; legs are tracked independently.
func (s *AssignmentService) CompleteDelivery(ctx context.Context, id, actorID string) (*models.AssignmentDetail, error) {
	detail, err := s.ownedAssignment(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if detail.Status == models.AssignmentCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment is cancelled")
	}
	if err := s.repo.CompleteDelivery(ctx, id, time.Now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete delivery")
	}
	return s.Get(ctx, id)
}

func (s *AssignmentService) ownedAssignment(ctx context.Context, id, actorID string) (*models.AssignmentDetail, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.ActorID() != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another driver")
	}
	return detail, nil
}

func (s *AssignmentService) audit(ctx context.Context, userID, action string, details map[string]interface{}) {
	payload, _ := json.Marshal(details)
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &userID,
		Action:    action,
		Resource:  "assignments",
		NewValues: payload,
	}); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(requested []string, found []models.StudentRecord) []string {
	present := make(map[string]struct{}, len(found))
	for _, st := range found {
		present[st.ID] = struct{}{}
	}
	var missing []string
	for _, id := range dedupe(requested) {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
