package service

import (
	"context"
	"sync"
	"time"

	"github.com/yaron8/lossreport-infra/records"
)

// loadFunc loads the reports of one campaign, or of all campaigns for "".
type loadFunc func(ctx context.Context, campaign string) ([]records.ReportRecord, error)

type snapshot struct {
	reports  []records.ReportRecord
	cachedAt time.Time
}

// ReportSnapshots caches report listings per campaign filter for cacheTTL.
type ReportSnapshots struct {
	mu       sync.RWMutex
	cached   map[string]snapshot
	cacheTTL time.Duration
	load     loadFunc
}

func NewReportSnapshots(cacheTTL time.Duration, load loadFunc) *ReportSnapshots {
	return &ReportSnapshots{
		cached:   make(map[string]snapshot),
		cacheTTL: cacheTTL,
		load:     load,
	}
}

// Get returns the cached listing for campaign, reloading it once it is older
// than the cache TTL.
func (rs *ReportSnapshots) Get(ctx context.Context, campaign string) ([]records.ReportRecord, error) {
	// Check if cache is valid
	rs.mu.RLock()
	if s, ok := rs.cached[campaign]; ok && time.Since(s.cachedAt) < rs.cacheTTL {
		rs.mu.RUnlock()
		return s.reports, nil
	}
	rs.mu.RUnlock()

	// Cache is expired or empty, load new data
	rs.mu.Lock()
	defer rs.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine might have updated it)
	if s, ok := rs.cached[campaign]; ok && time.Since(s.cachedAt) < rs.cacheTTL {
		return s.reports, nil
	}

	reports, err := rs.load(ctx, campaign)
	if err != nil {
		return nil, err
	}

	// Save to cache, dropping listings that have expired meanwhile
	now := time.Now()
	for key, s := range rs.cached {
		if now.Sub(s.cachedAt) >= rs.cacheTTL {
			delete(rs.cached, key)
		}
	}
	rs.cached[campaign] = snapshot{reports: reports, cachedAt: now}
	return reports, nil
}
