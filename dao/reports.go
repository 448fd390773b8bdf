package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yaron8/lossreport-infra/records"
)

const (
	keyPrefix  = "report:"
	lastRunKey = keyPrefix + "last_run"
	scanCount  = 100
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrUnknownMetric = errors.New("unknown metric")
)

// DAOReports stores one ReportRecord per campaign scenario in Redis.
type DAOReports struct {
	redisClient    *redis.Client
	ttl            time.Duration
	allowedMetrics map[string]bool
}

// NewDAOReports creates a new DAOReports with the provided Redis client.
// A zero ttl keeps records until they are overwritten.
func NewDAOReports(redisClient *redis.Client, ttl time.Duration) *DAOReports {
	allowedMetrics := map[string]bool{}
	for _, metric := range records.GetOverviewMetrics() {
		allowedMetrics[metric] = true
	}
	return &DAOReports{
		redisClient:    redisClient,
		ttl:            ttl,
		allowedMetrics: allowedMetrics,
	}
}

// Key returns the Redis key of a scenario report.
func Key(campaign, testID string) string {
	return keyPrefix + campaign + ":" + testID
}

// Store saves a ReportRecord under its campaign and test id
func (dao *DAOReports) Store(ctx context.Context, record records.ReportRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return dao.redisClient.Set(ctx, Key(record.Campaign, record.Overview.TestID), data, dao.ttl).Err()
}

// Get loads the report of one scenario.
func (dao *DAOReports) Get(ctx context.Context, campaign, testID string) (records.ReportRecord, error) {
	var record records.ReportRecord

	data, err := dao.redisClient.Get(ctx, Key(campaign, testID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return record, fmt.Errorf("%w: %s/%s", ErrNotFound, campaign, testID)
	}
	if err != nil {
		return record, err
	}

	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to decode %s: %w", Key(campaign, testID), err)
	}
	return record, nil
}

// GetMetric returns a single numeric overview field of a scenario report.
func (dao *DAOReports) GetMetric(ctx context.Context, campaign, testID, metric string) (interface{}, error) {
	if !dao.allowedMetrics[metric] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	record, err := dao.Get(ctx, campaign, testID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(record.Overview)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields[metric], nil
}

// GetAll returns every stored report, or the reports of one campaign when
// campaign is not empty.
func (dao *DAOReports) GetAll(ctx context.Context, campaign string) ([]records.ReportRecord, error) {
	match := keyPrefix + "*:*"
	if campaign != "" {
		match = keyPrefix + escapePattern(campaign) + ":*"
	}

	var keys []string
	iter := dao.redisClient.Scan(ctx, 0, match, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan reports: %w", err)
	}
	if len(keys) == 0 {
		return []records.ReportRecord{}, nil
	}

	values, err := dao.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	out := make([]records.ReportRecord, 0, len(values))
	for i, v := range values {
		// expired between SCAN and MGET
		s, ok := v.(string)
		if !ok {
			continue
		}
		var record records.ReportRecord
		if err := json.Unmarshal([]byte(s), &record); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", keys[i], err)
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Campaign != out[j].Campaign {
			return out[i].Campaign < out[j].Campaign
		}
		return out[i].Overview.TestID < out[j].Overview.TestID
	})
	return out, nil
}

// SetLastRun records the summary of the most recent run.
func (dao *DAOReports) SetLastRun(ctx context.Context, info records.RunInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return dao.redisClient.Set(ctx, lastRunKey, data, 0).Err()
}

// LastRun returns the summary of the most recent run.
func (dao *DAOReports) LastRun(ctx context.Context) (records.RunInfo, error) {
	var info records.RunInfo

	data, err := dao.redisClient.Get(ctx, lastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return info, fmt.Errorf("%w: no run recorded", ErrNotFound)
	}
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("failed to decode %s: %w", lastRunKey, err)
	}
	return info, nil
}

// Ping checks the connection to Redis.
func (dao *DAOReports) Ping(ctx context.Context) error {
	return dao.redisClient.Ping(ctx).Err()
}

func escapePattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
