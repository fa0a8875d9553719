package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aec-internal/requisitions-api/internal/models"
	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

type loaderStub struct {
	records []models.Record
	err     error
	calls   int
}

func (l *loaderStub) LoadAll(ctx context.Context) ([]models.Record, error) {
	l.calls++
	return l.records, l.err
}

type cacheStub struct {
	data    map[string][]byte
	getErr  error
	deleted []string
}

func newCacheStub() *cacheStub {
	return &cacheStub{data: map[string][]byte{}}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *cacheStub) Delete(ctx context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestSnapshotRecordsCachesLoad(t *testing.T) {
	loader := &loaderStub{records: []models.Record{{Position: 3, Description: "Sensor"}}}
	cache := newCacheStub()
	svc := NewSnapshotService(loader, cache, time.Minute, nil)

	first, err := svc.Records(context.Background())
	require.NoError(t, err)
	second, err := svc.Records(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, loader.calls, "second read should come from cache")
}

func TestSnapshotRecordsFallsBackOnCacheFailure(t *testing.T) {
	loader := &loaderStub{records: []models.Record{{Position: 3}}}
	cache := newCacheStub()
	cache.getErr = errors.New("redis down")
	svc := NewSnapshotService(loader, cache, time.Minute, nil)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, loader.calls)
}

func TestSnapshotRefreshPropagatesLoadError(t *testing.T) {
	loader := &loaderStub{err: appErrors.ErrFetch}
	svc := NewSnapshotService(loader, newCacheStub(), time.Minute, nil)

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrFetch)
}

func TestSnapshotInvalidateDropsSnapshotAndStats(t *testing.T) {
	cache := newCacheStub()
	svc := NewSnapshotService(&loaderStub{}, cache, time.Minute, nil)

	svc.Invalidate(context.Background())

	assert.Contains(t, cache.deleted, snapshotCacheKey)
	assert.Contains(t, cache.deleted, statsCacheKey)
}

type snapshotMetricsStub struct {
	ages []time.Duration
}

func (m *snapshotMetricsStub) SetSnapshotAge(age time.Duration) {
	m.ages = append(m.ages, age)
}

func TestSnapshotPublishesAge(t *testing.T) {
	loader := &loaderStub{records: []models.Record{{Position: 3, Description: "Sensor"}}}
	metrics := &snapshotMetricsStub{}
	svc := NewSnapshotService(loader, newCacheStub(), time.Minute, nil)
	svc.UseMetrics(metrics)
	svc.now = func() time.Time { return testClock }

	_, err := svc.Records(context.Background())
	require.NoError(t, err)
	require.Equal(t, []time.Duration{0}, metrics.ages, "a fresh load zeroes the age")

	svc.now = func() time.Time { return testClock.Add(2 * time.Minute) }
	_, err = svc.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, metrics.ages, 2)
	assert.Equal(t, 2*time.Minute, metrics.ages[1], "a cache hit reports time since last refresh")
}

func TestSnapshotWorksWithoutCache(t *testing.T) {
	loader := &loaderStub{records: []models.Record{{Position: 4}}}
	svc := NewSnapshotService(loader, nil, time.Minute, nil)

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	svc.Invalidate(context.Background())
	assert.Equal(t, 1, loader.calls)
}
