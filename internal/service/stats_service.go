package service

import (
	"context"
	"time"

	"github.com/praveenrathi4/complain-app/internal/auth"
	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/repository"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

const defaultTimeframe = "30d"

var timeframes = map[string]int{"7d": 7, "30d": 30, "90d": 90}

// StatsService computes dashboard rollups.
type StatsService struct {
	complaints repository.ComplaintRepository
	now        func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(complaints repository.ComplaintRepository, clock func() time.Time) *StatsService {
	if clock == nil {
		clock = time.Now
	}
	return &StatsService{complaints: complaints, now: clock}
}

// Dashboard aggregates complaints created within the trailing timeframe.
// Unknown timeframes fall back to 30 days. Results cover every complaint,
// including for dealers.
func (s *StatsService) Dashboard(ctx context.Context, actor *domain.User, timeframe string) (*domain.DashboardStats, error) {
	if err := auth.Authorize(actor, auth.None, auth.ActionViewStats); err != nil {
		return nil, err
	}
	days, ok := timeframes[timeframe]
	if !ok {
		timeframe = defaultTimeframe
		days = timeframes[defaultTimeframe]
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	stats, err := s.complaints.Stats(ctx, since)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	stats.Timeframe = timeframe
	stats.Since = since
	if stats.CategoryStats == nil {
		stats.CategoryStats = []domain.CategoryCount{}
	}
	return stats, nil
}
