package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/aec-internal/requisitions-api/pkg/errors"
)

type cacheMetricsStub struct {
	hits   int
	misses int
}

func (m *cacheMetricsStub) RecordCacheOperation(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestCacheRepositoryNilClientDegradesToMiss(t *testing.T) {
	metrics := &cacheMetricsStub{}
	repo := NewCacheRepository(nil, nil)
	repo.UseMetrics(metrics)

	var dest []string
	err := repo.Get(context.Background(), "requisitions:snapshot", &dest)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 0, metrics.hits)

	require.NoError(t, repo.Set(context.Background(), "requisitions:snapshot", []string{"a"}, time.Minute))
	require.NoError(t, repo.Delete(context.Background(), "requisitions:snapshot"))
}
