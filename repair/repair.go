// Package repair reconstructs a monotonic loss-counter sequence from periodic
// samples that may have arrived out of order.
//
// The periodic query reports are sent without delay while the final result is
// not, so a small report can overtake a larger one in transit and carry a stale,
// inflated counter. A later, smaller cumulative count is an upper bound for
// everything reported before it.
package repair

import (
	"fmt"

	"github.com/yaron8/lossreport-infra/records"
)

const (
	AlgorithmRescan    = "rescan"
	AlgorithmSuffixMin = "suffix-min"
)

// Func repairs samples and appends the authoritative final record.
type Func func(samples []records.SampleReport, final records.FinalReport, duration float64) []records.SampleReport

// ByName returns the repair implementation registered under name.
func ByName(name string) (Func, error) {
	switch name {
	case "", AlgorithmRescan:
		return Repair, nil
	case AlgorithmSuffixMin:
		return SuffixMin, nil
	default:
		return nil, fmt.Errorf("unknown repair algorithm %q", name)
	}
}

// Repair appends the final record to a copy of samples and clamps earlier
// counters until no difference is negative. The scan restarts from the top
// after every clamp pass. samples is not modified.
//
// The returned slice has len(samples)+1 records; losses are only ever lowered
// and the final record is never changed.
func Repair(samples []records.SampleReport, final records.FinalReport, duration float64) []records.SampleReport {
	seq := withFinal(samples, final, duration)

	// After a pass at index k the prefix 0..k is monotonic, so the first
	// negative index strictly grows and len(seq) passes always suffice.
	maxPasses := len(seq)
	for pass := 0; ; pass++ {
		k := firstNegative(seq)
		if k < 0 {
			return seq
		}
		if pass >= maxPasses {
			panic(fmt.Sprintf("repair: negative difference at %d after %d passes", k, pass))
		}

		bound := seq[k].Losses
		for i := 0; i < k; i++ {
			if seq[i].Losses > bound {
				seq[i].Losses = bound
			}
		}
		recompute(seq[:k+1])
	}
}

// SuffixMin produces the same sequence as Repair with a single backward
// pass: every counter becomes the minimum of itself and all later counters.
func SuffixMin(samples []records.SampleReport, final records.FinalReport, duration float64) []records.SampleReport {
	seq := withFinal(samples, final, duration)
	for i := len(seq) - 2; i >= 0; i-- {
		if seq[i].Losses > seq[i+1].Losses {
			seq[i].Losses = seq[i+1].Losses
		}
	}
	recompute(seq)
	return seq
}

// Check verifies that seq is a valid repaired sequence.
func Check(seq []records.SampleReport) error {
	var sum int64
	for i, s := range seq {
		want := s.Losses
		if i > 0 {
			want = s.Losses - seq[i-1].Losses
		}
		if s.Difference != want {
			return fmt.Errorf("record %d: difference %d, want %d", i, s.Difference, want)
		}
		if s.Difference < 0 {
			return fmt.Errorf("record %d: negative difference %d", i, s.Difference)
		}
		sum += s.Difference
	}
	if n := len(seq); n > 0 && sum != seq[n-1].Losses {
		return fmt.Errorf("differences sum to %d, final losses are %d", sum, seq[n-1].Losses)
	}
	return nil
}

func withFinal(samples []records.SampleReport, final records.FinalReport, duration float64) []records.SampleReport {
	seq := make([]records.SampleReport, len(samples), len(samples)+1)
	copy(seq, samples)
	recompute(seq)

	diff := final.Losses
	if n := len(seq); n > 0 {
		diff = final.Losses - seq[n-1].Losses
	}
	return append(seq, records.SampleReport{
		Timestamp:  duration,
		Total:      final.Total,
		Losses:     final.Losses,
		Difference: diff,
	})
}

func firstNegative(seq []records.SampleReport) int {
	for i := range seq {
		if seq[i].Difference < 0 {
			return i
		}
	}
	return -1
}

// recompute rewrites the differences of seq, treating seq[0] as the first record.
func recompute(seq []records.SampleReport) {
	for i := range seq {
		if i == 0 {
			seq[i].Difference = seq[i].Losses
			continue
		}
		seq[i].Difference = seq[i].Losses - seq[i-1].Losses
	}
}
