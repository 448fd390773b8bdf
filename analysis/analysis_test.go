package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaron8/lossreport-infra/records"
)

func repaired(diffs ...int64) []records.SampleReport {
	out := make([]records.SampleReport, 0, len(diffs))
	var losses int64
	for i, d := range diffs {
		losses += d
		out = append(out, records.SampleReport{
			Timestamp:  float64(i + 1),
			Total:      int64(i+1) * 1000,
			Losses:     losses,
			Difference: d,
		})
	}
	return out
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(repaired(0, 2, 0, 6))
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, 4, s.Samples)
	assert.Equal(t, 2, s.LossyRuns)
	assert.InDelta(t, 2.0, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.Median, 1e-9)
	assert.InDelta(t, 6.0, s.Max, 1e-9)
	assert.Greater(t, s.StdDev, 0.0)
	assert.LessOrEqual(t, s.P99, s.Max)
}

func TestSummarize_Empty(t *testing.T) {
	s, err := Summarize(nil)
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestDifferenceHistogram(t *testing.T) {
	bins := DifferenceHistogram(repaired(3, 0, 3, 1, 0, 0))
	assert.Equal(t, []Bin{{0, 3}, {1, 1}, {3, 2}}, bins)
}

func TestRates(t *testing.T) {
	samples := []records.SampleReport{
		{Timestamp: 1, Total: 1000, Losses: 10},
		{Timestamp: 3, Total: 5000, Losses: 10},
		{Timestamp: 3, Total: 6000, Losses: 20},
	}
	points := Rates(samples)
	require.Len(t, points, 3)

	assert.Equal(t, RatePoint{Timestamp: 1, SentPerQuery: 1000, ReceivedPerQuery: 990, SentPerSecond: 1000, ReceivedPerSecond: 990}, points[0])
	assert.Equal(t, int64(4000), points[1].SentPerQuery)
	assert.InDelta(t, 2000.0, points[1].SentPerSecond, 1e-9)
	// zero time delta: no rate instead of +Inf
	assert.Equal(t, int64(990), points[2].ReceivedPerQuery)
	assert.Equal(t, 0.0, points[2].SentPerSecond)
}

func TestLossRatioBucket(t *testing.T) {
	tests := []struct {
		ratio float64
		want  int
	}{
		{0, 0},
		{0.0001, 1},
		{10, 1},
		{10.01, 2},
		{55, 6},
		{90, 9},
		{90.5, 10},
		{100, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LossRatioBucket(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestBucketsBySize(t *testing.T) {
	rows := []records.OverviewRow{
		{DatagramSize: 80, LossRatio: 0, Derived: true},
		{DatagramSize: 80, LossRatio: 5, Derived: true},
		{DatagramSize: 8900, LossRatio: 95, Derived: true},
	}
	got := BucketsBySize(rows)

	require.Len(t, got, 2)
	assert.Equal(t, []int{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, got[80])
	assert.Equal(t, 1, got[8900][10])
	assert.Equal(t, []int{80, 8900}, SortedSizes(got))
}

func TestRatioByCycle(t *testing.T) {
	rows := []records.OverviewRow{
		{DatagramSize: 80, CycleTime: 20000, LossRatio: 1, Derived: true},
		{DatagramSize: 80, CycleTime: 10000, LossRatio: 2, Derived: true},
	}
	got := RatioByCycle(rows)
	assert.Equal(t, []CycleRatio{{10000, 2}, {20000, 1}}, got[80])
}

func TestCampaignAggregations_SkipFailedRows(t *testing.T) {
	rows := []records.OverviewRow{
		{DatagramSize: 80, CycleTime: 10000, LossRatio: 5, Derived: true},
		// total == 0: ratio never computed
		{DatagramSize: 80, CycleTime: 20000, Remarks: "Computation failed"},
		{DatagramSize: 1400, CycleTime: 10000},
	}

	buckets := BucketsBySize(rows)
	assert.Equal(t, []int{80}, SortedSizes(buckets))
	assert.Equal(t, []int{0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, buckets[80])

	byCycle := RatioByCycle(rows)
	assert.Equal(t, []int{80}, SortedSizes(byCycle))
	assert.Equal(t, []CycleRatio{{10000, 5}}, byCycle[80])
}
