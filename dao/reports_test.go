package dao

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaron8/lossreport-infra/records"
)

func newDAO(t *testing.T, ttl time.Duration) (*DAOReports, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { client.Close() })
	return NewDAOReports(client, ttl), mr
}

func record(campaign, testID string, losses int64) records.ReportRecord {
	return records.ReportRecord{
		RunID:       "run-1",
		Campaign:    campaign,
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Overview: records.OverviewRow{
			TestID:       testID,
			DatagramSize: 80,
			Losses:       losses,
			LossRatio:    0.5,
			PPSUDP:       10000,
			Remarks:      "Server data missing.",
		},
		Stats: &records.LossStats{Samples: 3, Max: 5},
	}
}

func TestStoreAndGet(t *testing.T) {
	dao, mr := newDAO(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, dao.Store(ctx, record("camp", "t-1", 50)))
	assert.True(t, mr.Exists("report:camp:t-1"))
	assert.Equal(t, time.Minute, mr.TTL("report:camp:t-1"))

	got, err := dao.Get(ctx, "camp", "t-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, int64(50), got.Overview.Losses)
	assert.True(t, got.GeneratedAt.Equal(record("camp", "t-1", 0).GeneratedAt))
	require.NotNil(t, got.Stats)
	assert.Equal(t, float64(5), got.Stats.Max)
}

func TestStore_NoTTL(t *testing.T) {
	dao, mr := newDAO(t, 0)
	require.NoError(t, dao.Store(context.Background(), record("camp", "t-1", 1)))
	assert.Equal(t, time.Duration(0), mr.TTL("report:camp:t-1"))
}

func TestGet_NotFound(t *testing.T) {
	dao, _ := newDAO(t, 0)
	_, err := dao.Get(context.Background(), "camp", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMetric(t *testing.T) {
	dao, _ := newDAO(t, 0)
	ctx := context.Background()
	require.NoError(t, dao.Store(ctx, record("camp", "t-1", 50)))

	v, err := dao.GetMetric(ctx, "camp", "t-1", "losses")
	require.NoError(t, err)
	assert.Equal(t, float64(50), v)

	v, err = dao.GetMetric(ctx, "camp", "t-1", "pps_udp")
	require.NoError(t, err)
	assert.Equal(t, float64(10000), v)

	_, err = dao.GetMetric(ctx, "camp", "t-1", "remarks")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	_, err = dao.GetMetric(ctx, "camp", "t-2", "losses")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAll(t *testing.T) {
	dao, _ := newDAO(t, 0)
	ctx := context.Background()

	all, err := dao.GetAll(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, dao.Store(ctx, record("b", "t-2", 2)))
	require.NoError(t, dao.Store(ctx, record("a", "t-9", 9)))
	require.NoError(t, dao.Store(ctx, record("b", "t-1", 1)))
	require.NoError(t, dao.SetLastRun(ctx, records.RunInfo{RunID: "run-1"}))

	all, err = dao.GetAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Campaign)
	assert.Equal(t, "t-1", all[1].Overview.TestID)
	assert.Equal(t, "t-2", all[2].Overview.TestID)

	b, err := dao.GetAll(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 2)
}

func TestLastRun(t *testing.T) {
	dao, _ := newDAO(t, 0)
	ctx := context.Background()

	_, err := dao.LastRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	info := records.RunInfo{
		RunID:      "run-7",
		FinishedAt: time.Unix(1700000000, 0).UTC(),
		Campaigns:  []string{"camp"},
		Scenarios:  4,
		Failures:   1,
	}
	require.NoError(t, dao.SetLastRun(ctx, info))

	got, err := dao.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, info.RunID, got.RunID)
	assert.True(t, info.FinishedAt.Equal(got.FinishedAt))
	assert.Equal(t, info.Campaigns, got.Campaigns)
	assert.Equal(t, 1, got.Failures)
}

func TestEscapePattern(t *testing.T) {
	assert.Equal(t, `camp\*\?`, escapePattern("camp*?"))
	assert.Equal(t, "plain-name", escapePattern("plain-name"))
}
