package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aec-internal/requisitions-api/internal/models"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

const (
	snapshotCacheKey = "requisitions:snapshot"
	statsCacheKey    = "requisitions:stats"
)

type sheetLoader interface {
	LoadAll(ctx context.Context) ([]models.Record, error)
}

type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// snapshotMetrics publishes the age of the cached snapshot.
type snapshotMetrics interface {
	SetSnapshotAge(age time.Duration)
}

// SnapshotService holds the most recent normalized view of the sheet.
// Polling is the only mechanism for staying current: consumers read the
// cached snapshot, a background loop re-fetches on a fixed interval, and
// every mutation invalidates the cache so the next read is fresh.
type SnapshotService struct {
	store   sheetLoader
	cache   snapshotCache
	ttl     time.Duration
	metrics snapshotMetrics
	now     func() time.Time
	logger  *zap.Logger

	mu          sync.Mutex
	lastRefresh time.Time
}

// NewSnapshotService builds the snapshot layer over the sheet store.
func NewSnapshotService(store sheetLoader, cache snapshotCache, ttl time.Duration, logger *zap.Logger) *SnapshotService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{store: store, cache: cache, ttl: ttl, now: time.Now, logger: logger}
}

// UseMetrics attaches snapshot-age telemetry. Safe to leave unset.
func (s *SnapshotService) UseMetrics(m snapshotMetrics) {
	s.metrics = m
}

// Records returns the cached record set, falling back to a fresh load on a
// cache miss. Cache read failures degrade to a fresh load as well.
func (s *SnapshotService) Records(ctx context.Context) ([]models.Record, error) {
	if s.cache != nil {
		var cached []models.Record
		err := s.cache.Get(ctx, snapshotCacheKey, &cached)
		if err == nil {
			s.publishAge()
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
	}
	return s.Refresh(ctx)
}

// Refresh re-fetches the full grid and repopulates the cache.
func (s *SnapshotService) Refresh(ctx context.Context) ([]models.Record, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, snapshotCacheKey, records, s.ttl); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.lastRefresh = s.now()
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SetSnapshotAge(0)
	}
	return records, nil
}

// publishAge reports how stale the cached snapshot is at read time.
func (s *SnapshotService) publishAge() {
	if s.metrics == nil {
		return
	}
	s.mu.Lock()
	last := s.lastRefresh
	s.mu.Unlock()
	if last.IsZero() {
		return
	}
	s.metrics.SetSnapshotAge(s.now().Sub(last))
}

// Invalidate drops the snapshot and derived stat caches after a mutation.
func (s *SnapshotService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotCacheKey, statsCacheKey); err != nil {
		s.logger.Warn("snapshot cache invalidation failed", zap.Error(err))
	}
}

// StartPolling launches the background refresh loop. It runs until the
// context is cancelled; individual refresh failures are logged and the loop
// carries on to the next tick.
func (s *SnapshotService) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Refresh(ctx); err != nil {
					s.logger.Warn("scheduled snapshot refresh failed", zap.Error(err))
				}
			}
		}
	}()
}
