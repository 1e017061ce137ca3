package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/pkg/dates"
	appErrors "github.com/noah-isme/stp-api/pkg/errors"
)

type statusRepository interface {
	JoinRows(ctx context.Context, filter models.StatusFilter, dateVariants []string) ([]models.StatusJoinRow, int, error)
	AllJoinRows(ctx context.Context, filter models.StatusFilter, dateVariants []string) ([]models.StatusJoinRow, error)
}

// StatusService derives the day-of-travel display status. Nothing here is
// persisted; every answer is computed from the live join.
type StatusService struct {
	repo    statusRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStatusService constructs the status service.
func NewStatusService(repo statusRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Derive applies the precedence rule to one raw row. Delivered wins over
// everything; only a waiting-time pickup means In Car; otherwise the
// student is Waiting. The assignment's pickup timestamp is a display
// fallback for the pickup-time field and never flips the status itself.
func Derive(row models.StatusJoinRow) models.StudentStatus {
	status := models.StatusWaiting
	if row.WaitingPickupTime != nil {
		status = models.StatusInCar
	}
	pickup := row.WaitingPickupTime
	if pickup == nil {
		pickup = row.AssignPickupTime
	}
	if row.DeliveryStatus != nil && models.LegStatus(*row.DeliveryStatus) == models.LegCompleted {
		status = models.StatusDelivered
	}
	return models.StudentStatus{
		StudentID:   row.StudentID,
		StudentNo:   row.StudentNo,
		StudentName: row.StudentName,
		TravelDate:  row.TravelDate,
		FlightCode:  row.FlightCode,
		Direction:   row.Direction,
		SchoolName:  row.SchoolName,
		Status:      status,
		PickupTime:  pickup,
		DriverName:  row.DriverName,
	}
}

// List returns the derived dashboard rows for the filter.
func (s *StatusService) List(ctx context.Context, filter models.StatusFilter) ([]models.StudentStatus, *models.Pagination, error) {
	variants, err := s.variants(filter.Date)
	if err != nil {
		return nil, nil, err
	}
	start := time.Now()
	rows, total, err := s.repo.JoinRows(ctx, filter, variants)
	s.metrics.ObserveDBQuery("status_join", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statuses")
	}
	statuses := make([]models.StudentStatus, 0, len(rows))
	for _, row := range rows {
		statuses = append(statuses, Derive(row))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return statuses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Stats aggregates derived statuses over the filtered set. Results are
// cached briefly per date and school; any write path invalidates via
// InvalidateStats. The second return reports whether the cache served
// the result.
func (s *StatusService) Stats(ctx context.Context, filter models.StatusFilter) (*models.StatusStats, bool, error) {
	key := statsCacheKey(filter)
	var cached models.StatusStats
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, true, nil
		}
	}

	variants, err := s.variants(filter.Date)
	if err != nil {
		return nil, false, err
	}
	start := time.Now()
	rows, err := s.repo.AllJoinRows(ctx, filter, variants)
	s.metrics.ObserveDBQuery("status_join_all", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load statuses")
	}

	stats := &models.StatusStats{Total: len(rows)}
	for _, row := range rows {
		switch Derive(row).Status {
		case models.StatusDelivered:
			stats.Delivered++
		case models.StatusInCar:
			stats.InCar++
		default:
			stats.Waiting++
		}
	}
	if stats.Total > 0 {
		stats.WaitingPercent = percent(stats.Waiting, stats.Total)
		stats.InCarPercent = percent(stats.InCar, stats.Total)
		stats.DeliveredPercent = percent(stats.Delivered, stats.Total)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, stats, time.Minute)
	}
	return stats, false, nil
}

// InvalidateStats drops the cached aggregates after a write.
func (s *StatusService) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *StatusService) variants(date string) ([]string, error) {
	if date == "" {
		return nil, nil
	}
	return dates.Variants(date)
}

func statsCacheKey(filter models.StatusFilter) string {
	date := filter.Date
	if date == "" {
		date = "all"
	}
	school := filter.SchoolID
	if school == "" {
		school = "all"
	}
	return fmt.Sprintf("stats:%s:%s", date, school)
}

func percent(part, total int) float64 {
	return float64(part) * 100 / float64(total)
}
