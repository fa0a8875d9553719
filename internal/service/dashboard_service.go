package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/aec-internal/requisitions-api/internal/dto"
	"github.com/aec-internal/requisitions-api/internal/models"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

// DashboardService derives the stat counters shown across the top of both
// dashboards. Counters are computed from the shared snapshot and cached
// separately with a shorter TTL.
type DashboardService struct {
	snapshot recordSnapshot
	cache    snapshotCache
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewDashboardService builds the stats layer.
func NewDashboardService(snapshot recordSnapshot, cache snapshotCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		snapshot: snapshot,
		cache:    cache,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Stats returns the current counters, from cache when fresh.
func (s *DashboardService) Stats(ctx context.Context) (dto.DashboardStats, error) {
	if s.cache != nil {
		var cached dto.DashboardStats
		err := s.cache.Get(ctx, statsCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	records, err := s.snapshot.Records(ctx)
	if err != nil {
		return dto.DashboardStats{}, err
	}

	today := s.now()
	stats := dto.DashboardStats{
		ByPurchasing:   map[string]int{},
		ByEngineering:  map[string]int{},
		GeneratedAtUTC: today.UTC().Format(time.RFC3339),
	}

	for _, g := range GroupRecords(records) {
		stats.TotalGroups++
		stats.TotalItems += len(g.Records)
		first := g.Records[0]

		if g.IsBatch() {
			stats.Batches++
			if !anyMemberSeen(g.Records) {
				stats.UnseenBatches++
			}
		}
		if ClassifyUrgency(first.NeededByDate, today).Band == BandOverdue {
			stats.Overdue++
		}
		// Status counters run per record, so a 3-item batch marked
		// COMPRADO contributes 3 to that bucket.
		for _, rec := range g.Records {
			if rec.PurchasingStatus != "" {
				stats.ByPurchasing[rec.PurchasingStatus]++
			}
			if rec.EngineeringStatus != "" {
				stats.ByEngineering[rec.EngineeringStatus]++
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.ttl); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// anyMemberSeen reports whether at least one member carries a seen stamp.
// A batch counts as acknowledged even when later-added rows were never
// stamped individually.
func anyMemberSeen(records []models.Record) bool {
	for _, rec := range records {
		if rec.SeenByPurchasing != "" {
			return true
		}
	}
	return false
}
