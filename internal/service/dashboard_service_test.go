package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aec-internal/requisitions-api/internal/models"
)

func TestDashboardStatsCounters(t *testing.T) {
	seenA := batchRecord(3, "REQ-1", "A")
	seenA.SeenByPurchasing = models.FormatAuditStamp(testClock, "carlos@empresa.com.br")
	seenA.PurchasingStatus = "COMPRAR"
	seenA.NeededByDate = "2026-03-01"
	seenB := batchRecord(4, "REQ-1", "B")

	unseenA := batchRecord(5, "REQ-2", "C")
	unseenA.EngineeringStatus = "COMPRAR NORMAL"
	unseenB := batchRecord(6, "REQ-2", "D")

	lone := batchRecord(7, "", "E")
	lone.PurchasingStatus = "COMPRAR"
	removed := batchRecord(8, "", "F")
	removed.RemovalFlag = models.RemovalRemoved

	snap := &snapshotStub{records: []models.Record{seenA, seenB, unseenA, unseenB, lone, removed}}
	svc := NewDashboardService(snap, nil, time.Minute, nil)
	svc.now = func() time.Time { return testClock }

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalGroups)
	assert.Equal(t, 5, stats.TotalItems)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 1, stats.UnseenBatches)
	assert.Equal(t, 1, stats.Overdue, "needed-by in the past counts as overdue")
	assert.Equal(t, 2, stats.ByPurchasing["COMPRAR"])
	assert.Equal(t, 1, stats.ByEngineering["COMPRAR NORMAL"])
}

func TestDashboardStatsCountsStatusesPerRecord(t *testing.T) {
	var records []models.Record
	for pos := 3; pos <= 5; pos++ {
		rec := batchRecord(pos, "REQ-10", "Item")
		rec.PurchasingStatus = "COMPRADO"
		rec.EngineeringStatus = "URGENTÍSSIMO"
		records = append(records, rec)
	}

	snap := &snapshotStub{records: records}
	svc := NewDashboardService(snap, nil, time.Minute, nil)
	svc.now = func() time.Time { return testClock }

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.ByPurchasing["COMPRADO"], "each batch member counts")
	assert.Equal(t, 3, stats.ByEngineering["URGENTÍSSIMO"])
}

func TestDashboardStatsBatchSeenByAnyMember(t *testing.T) {
	first := batchRecord(3, "REQ-11", "A")
	second := batchRecord(4, "REQ-11", "B")
	second.SeenByPurchasing = models.FormatAuditStamp(testClock, "carlos@empresa.com.br")

	snap := &snapshotStub{records: []models.Record{first, second}}
	svc := NewDashboardService(snap, nil, time.Minute, nil)
	svc.now = func() time.Time { return testClock }

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Batches)
	assert.Equal(t, 0, stats.UnseenBatches, "a stamp on any member acknowledges the batch")
}

func TestDashboardStatsUsesCache(t *testing.T) {
	cache := newCacheStub()
	snap := &snapshotStub{records: []models.Record{batchRecord(3, "", "A")}}
	svc := NewDashboardService(snap, cache, time.Minute, nil)
	svc.now = func() time.Time { return testClock }

	first, err := svc.Stats(context.Background())
	require.NoError(t, err)

	// A snapshot change without invalidation must not show up yet.
	snap.records = nil
	second, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
