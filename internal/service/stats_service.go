package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/events"
	"github.com/spec-kit/ticket-workflow/internal/repository"
)

const dashboardStatsKey = "ticket-workflow:dashboard-stats"

// StatsCache is the cache used for dashboard statistics. Reads report a miss
// on any failure.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// StatsService aggregates dashboard statistics.
type StatsService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	ratings    repository.RatingRepository
	cache      StatsCache
	ttl        time.Duration
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// StatsDependencies bundles collaborators for the stats service.
type StatsDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	RatingRepo repository.RatingRepository
	// Cache may be nil; TTL zero disables caching.
	Cache StatsCache
	TTL   time.Duration
	// Dispatcher, when set, drops the cached entry on ticket events.
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewStatsService constructs the service.
func NewStatsService(deps StatsDependencies) *StatsService {
	return &StatsService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		ratings:    deps.RatingRepo,
		cache:      deps.Cache,
		ttl:        deps.TTL,
		dispatcher: deps.Dispatcher,
		logger:     defaultLogger(deps.Logger),
	}
}

// RegisterHandlers invalidates the cached statistics whenever ticket counts
// may have moved. Ticket deletes and ratings are only picked up after the TTL.
func (s *StatsService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
	} {
		s.dispatcher.Subscribe(eventType, s.HandleEvent)
	}
}

// HandleEvent drops the cached statistics.
func (s *StatsService) HandleEvent(ctx context.Context, event events.Event) error {
	s.logger.Debug("dashboard stats invalidated", zap.String("event_type", string(event.Type)))
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached statistics so the next read recomputes them.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(ctx, dashboardStatsKey)
}

// Dashboard returns counts by status, priority, role and active flag together
// with the overall average rating.
func (s *StatsService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	if s.cacheEnabled() {
		var cached domain.DashboardStats
		if s.cache.GetJSON(ctx, dashboardStatsKey, &cached) {
			return &cached, nil
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if s.cacheEnabled() {
		s.cache.SetJSON(ctx, dashboardStatsKey, stats, s.ttl)
	}
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context) (*domain.DashboardStats, error) {
	byStatus, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.tickets.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	active, inactive, err := s.users.CountByActive(ctx)
	if err != nil {
		return nil, err
	}
	avg, err := s.ratings.AverageOverall(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{
		TicketsByStatus:   make(map[domain.TicketStatus]int64, len(domain.TicketStatuses)),
		TicketsByPriority: make(map[domain.TicketPriority]int64, len(domain.TicketPriorities)),
		UsersByRole:       make(map[domain.Role]int64, 3),
		ActiveUsers:       active,
		InactiveUsers:     inactive,
		TotalUsers:        active + inactive,
		AverageRating:     avg,
	}
	for _, status := range domain.TicketStatuses {
		stats.TicketsByStatus[status] = byStatus[status]
		stats.TotalTickets += byStatus[status]
	}
	for _, priority := range domain.TicketPriorities {
		stats.TicketsByPriority[priority] = byPriority[priority]
	}
	for _, role := range []domain.Role{domain.RoleRegular, domain.RoleAgent, domain.RoleAdmin} {
		stats.UsersByRole[role] = byRole[role]
	}
	return stats, nil
}

func (s *StatsService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}
