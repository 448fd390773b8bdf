// Package analysis aggregates repaired samples and campaign rows into the
// series the tables and charts are drawn from.
package analysis

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/yaron8/lossreport-infra/records"
)

// BucketLabels name the loss-ratio classes used by the campaign diagrams.
var BucketLabels = []string{
	"0", "]0;10]", "]10;20]", "]20;30]", "]30;40]", "]40;50]",
	"]50;60]", "]60;70]", "]70;80]", "]80;90]", "]90;100]",
}

// Summarize computes descriptive statistics of the per-sample loss
// differences. It returns nil for an empty sequence.
func Summarize(repaired []records.SampleReport) (*records.LossStats, error) {
	if len(repaired) == 0 {
		return nil, nil
	}

	data := make(stats.Float64Data, 0, len(repaired))
	lossy := 0
	for _, s := range repaired {
		data = append(data, float64(s.Difference))
		if s.Difference > 0 {
			lossy++
		}
	}

	out := &records.LossStats{Samples: len(data), LossyRuns: lossy}
	var err error
	if out.Mean, err = stats.Mean(data); err != nil {
		return nil, err
	}
	if out.Median, err = stats.Median(data); err != nil {
		return nil, err
	}
	if out.Max, err = stats.Max(data); err != nil {
		return nil, err
	}
	if out.StdDev, err = stats.StandardDeviation(data); err != nil {
		return nil, err
	}
	// Percentile rejects inputs too short for the requested rank.
	if p, err := stats.Percentile(data, 99); err == nil {
		out.P99 = p
	} else {
		out.P99 = out.Max
	}
	return out, nil
}

// Bin counts how many samples lost exactly Losses packets.
type Bin struct {
	Losses      int64
	Occurrences int
}

// DifferenceHistogram returns one bin per distinct difference value, in
// ascending order.
func DifferenceHistogram(repaired []records.SampleReport) []Bin {
	counts := make(map[int64]int)
	for _, s := range repaired {
		counts[s.Difference]++
	}
	bins := make([]Bin, 0, len(counts))
	for losses, n := range counts {
		bins = append(bins, Bin{Losses: losses, Occurrences: n})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Losses < bins[j].Losses })
	return bins
}

// RatePoint is the traffic between two consecutive samples.
type RatePoint struct {
	Timestamp float64
	// packets per query interval
	SentPerQuery     int64
	ReceivedPerQuery int64
	// packets per second; zero when the interval has no usable time delta
	SentPerSecond     float64
	ReceivedPerSecond float64
}

// Rates computes per-interval packet counts and rates. The interval before
// the first sample starts at time zero with no packets.
func Rates(repaired []records.SampleReport) []RatePoint {
	points := make([]RatePoint, 0, len(repaired))
	var prevTime float64
	var prevSent, prevReceived int64
	for _, s := range repaired {
		received := s.Total - s.Losses
		p := RatePoint{
			Timestamp:        s.Timestamp,
			SentPerQuery:     s.Total - prevSent,
			ReceivedPerQuery: received - prevReceived,
		}
		if dt := s.Timestamp - prevTime; s.Timestamp != records.NoTimestamp && dt > 0 {
			p.SentPerSecond = float64(p.SentPerQuery) / dt
			p.ReceivedPerSecond = float64(p.ReceivedPerQuery) / dt
		}
		points = append(points, p)

		prevTime, prevSent, prevReceived = s.Timestamp, s.Total, received
	}
	return points
}

// LossRatioBucket returns the index into BucketLabels for a loss ratio in percent.
func LossRatioBucket(ratio float64) int {
	if ratio <= 0 {
		return 0
	}
	for i := 1; i < len(BucketLabels)-1; i++ {
		if ratio <= float64(i*10) {
			return i
		}
	}
	return len(BucketLabels) - 1
}

// BucketsBySize counts scenarios per loss-ratio bucket for every datagram size.
// Rows without derived metrics are left out.
func BucketsBySize(rows []records.OverviewRow) map[int][]int {
	out := make(map[int][]int)
	for _, r := range rows {
		if !r.Derived {
			continue
		}
		counts, ok := out[r.DatagramSize]
		if !ok {
			counts = make([]int, len(BucketLabels))
			out[r.DatagramSize] = counts
		}
		counts[LossRatioBucket(r.LossRatio)]++
	}
	return out
}

// CycleRatio is the loss ratio of one scenario at a given cycle time.
type CycleRatio struct {
	CycleTime int64
	LossRatio float64
}

// RatioByCycle groups loss ratios by datagram size, ordered by cycle time.
// Rows without derived metrics are left out.
func RatioByCycle(rows []records.OverviewRow) map[int][]CycleRatio {
	out := make(map[int][]CycleRatio)
	for _, r := range rows {
		if !r.Derived {
			continue
		}
		out[r.DatagramSize] = append(out[r.DatagramSize], CycleRatio{CycleTime: r.CycleTime, LossRatio: r.LossRatio})
	}
	for _, ratios := range out {
		sort.SliceStable(ratios, func(i, j int) bool { return ratios[i].CycleTime < ratios[j].CycleTime })
	}
	return out
}

// SortedSizes returns the keys of a per-size map in ascending order.
func SortedSizes[T any](m map[int]T) []int {
	sizes := make([]int, 0, len(m))
	for size := range m {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}
