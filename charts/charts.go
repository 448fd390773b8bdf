// Package charts renders the scenario and campaign diagrams.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/yaron8/lossreport-infra/analysis"
	"github.com/yaron8/lossreport-infra/records"
)

const (
	FormatPNG = "png"
	FormatSVG = "svg"

	LossesTime      = "losses_time"
	PackagesTime    = "packages_time"
	PPSTime         = "pps_time"
	PPQTime         = "ppq_time"
	HistogramLosses = "histogram_losses"

	casesByLossesPrefix = "campaign-diagr1__cases_by_losses_and_datagram_"
	lossesByCyclePrefix = "campaign-diagr2__losses_by_cycle_and_datagram_"

	width  = 1024
	height = 512
)

// ErrUnknownFormat is returned for an output format other than png or svg.
var ErrUnknownFormat = errors.New("unknown chart format")

// Options controls which charts are drawn and how they are encoded.
type Options struct {
	Format    string
	Histogram bool
}

type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func provider(format string) (chart.RendererProvider, error) {
	switch format {
	case "", FormatPNG:
		return chart.PNG, nil
	case FormatSVG:
		return chart.SVG, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

func extension(format string) string {
	if format == "" {
		return FormatPNG
	}
	return format
}

func save(opts Options, dir, name string, c renderer) (string, error) {
	rp, err := provider(opts.Format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart directory: %w", err)
	}
	path := filepath.Join(dir, name+"."+extension(opts.Format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := c.Render(rp, f); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return path, f.Close()
}

// WriteScenarioCharts draws the time series of a repaired sample sequence into dir
// and returns the written paths.
func WriteScenarioCharts(opts Options, dir string, repaired []records.SampleReport) ([]string, error) {
	if len(repaired) == 0 {
		return nil, nil
	}

	xs, xName := timeAxis(repaired)
	rates := analysis.Rates(repaired)

	total := make([]float64, len(repaired))
	diff := make([]float64, len(repaired))
	sent := make([]float64, len(repaired))
	received := make([]float64, len(repaired))
	for i, s := range repaired {
		total[i] = float64(s.Losses)
		diff[i] = float64(s.Difference)
		sent[i] = float64(s.Total)
		received[i] = float64(s.Total - s.Losses)
	}
	sentPPS := make([]float64, len(rates))
	receivedPPS := make([]float64, len(rates))
	sentPPQ := make([]float64, len(rates))
	receivedPPQ := make([]float64, len(rates))
	for i, r := range rates {
		sentPPS[i] = r.SentPerSecond
		receivedPPS[i] = r.ReceivedPerSecond
		sentPPQ[i] = float64(r.SentPerQuery)
		receivedPPQ[i] = float64(r.ReceivedPerQuery)
	}

	charts := []struct {
		name, title, unit string
		series            []line
	}{
		{LossesTime, "Losses over time", "Packets", []line{
			{"Losses [total]", total, chart.ColorRed},
			{"Losses [difference]", diff, chart.ColorOrange},
		}},
		{PackagesTime, "Packets over time", "Packets", []line{
			{"Sent", sent, chart.ColorBlue},
			{"Received", received, chart.ColorGreen},
		}},
		{PPSTime, "Packets per second", "Packets/s", []line{
			{"Sent", sentPPS, chart.ColorBlue},
			{"Received", receivedPPS, chart.ColorGreen},
		}},
		{PPQTime, "Packets per query", "Packets/query", []line{
			{"Sent", sentPPQ, chart.ColorBlue},
			{"Received", receivedPPQ, chart.ColorGreen},
		}},
	}

	paths := make([]string, 0, len(charts)+1)
	for _, c := range charts {
		path, err := save(opts, dir, c.name, lineChart(c.title, xName, c.unit, xs, c.series))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if opts.Histogram {
		bins := analysis.DifferenceHistogram(repaired)
		bars := make([]chart.Value, 0, len(bins))
		for _, b := range bins {
			bars = append(bars, chart.Value{Label: strconv.FormatInt(b.Losses, 10), Value: float64(b.Occurrences)})
		}
		path, err := save(opts, dir, HistogramLosses, barChart("Losses per query", "Occurrences", bars))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteCampaignCharts draws two bar charts per datagram size: the number of
// scenarios in each loss-ratio bucket, and the loss ratio per cycle time.
func WriteCampaignCharts(opts Options, dir string, rows []records.OverviewRow) ([]string, error) {
	var paths []string

	buckets := analysis.BucketsBySize(rows)
	for _, size := range analysis.SortedSizes(buckets) {
		bars := make([]chart.Value, 0, len(analysis.BucketLabels))
		for i, n := range buckets[size] {
			bars = append(bars, chart.Value{Label: analysis.BucketLabels[i], Value: float64(n)})
		}
		name := fmt.Sprintf("%s%dB", casesByLossesPrefix, size)
		title := fmt.Sprintf("Cases by loss ratio (%%), datagram %d B", size)
		path, err := save(opts, dir, name, barChart(title, "Cases", bars))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	byCycle := analysis.RatioByCycle(rows)
	for _, size := range analysis.SortedSizes(byCycle) {
		bars := make([]chart.Value, 0, len(byCycle[size]))
		for _, r := range byCycle[size] {
			bars = append(bars, chart.Value{Label: strconv.FormatInt(r.CycleTime, 10), Value: r.LossRatio})
		}
		name := fmt.Sprintf("%s%dB", lossesByCyclePrefix, size)
		title := fmt.Sprintf("Loss ratio (%%) by cycle time (ns), datagram %d B", size)
		path, err := save(opts, dir, name, barChart(title, "Losses [ratio](%)", bars))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

type line struct {
	name   string
	values []float64
	color  drawing.Color
}

// timeAxis returns the sample timestamps, or the sample index when the
// timestamps are missing or do not increase.
func timeAxis(repaired []records.SampleReport) ([]float64, string) {
	xs := make([]float64, len(repaired))
	usable := true
	for i, s := range repaired {
		xs[i] = s.Timestamp
		if s.Timestamp == records.NoTimestamp || (i > 0 && s.Timestamp <= xs[i-1]) {
			usable = false
		}
	}
	if usable {
		return xs, "Time (s)"
	}
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	return xs, "Query"
}

func lineChart(title, xName, yName string, xs []float64, lines []line) *chart.Chart {
	series := make([]chart.Series, 0, len(lines))
	var ys []float64
	for _, l := range lines {
		series = append(series, chart.ContinuousSeries{
			Name:    l.name,
			XValues: xs,
			YValues: l.values,
			Style: chart.Style{
				StrokeColor: l.color,
				StrokeWidth: 2,
			},
		})
		ys = append(ys, l.values...)
	}

	ch := &chart.Chart{
		Title:      title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName, Range: span(xs)},
		YAxis:      chart.YAxis{Name: yName, Range: upTo(maxOf(ys))},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(ch)}
	return ch
}

func barChart(title, yName string, bars []chart.Value) *chart.BarChart {
	if len(bars) == 0 {
		bars = []chart.Value{{Label: "-", Value: 0}}
	}
	var top float64
	for _, b := range bars {
		top = math.Max(top, b.Value)
	}
	w := width
	if n := len(bars)*60 + 200; n > w {
		w = n
	}
	return &chart.BarChart{
		Title:      title,
		Width:      w,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		BarWidth:   40,
		BarSpacing: 20,
		YAxis:      chart.YAxis{Name: yName, Range: upTo(top)},
		Bars:       bars,
	}
}

// span returns a non-empty range covering xs.
func span(xs []float64) *chart.ContinuousRange {
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if hi <= lo {
		lo, hi = lo-1, hi+1
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// upTo returns a range from zero to slightly above top.
func upTo(top float64) *chart.ContinuousRange {
	if top <= 0 {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	return &chart.ContinuousRange{Min: 0, Max: top * 1.1}
}

func maxOf(values []float64) float64 {
	var top float64
	for _, v := range values {
		top = math.Max(top, v)
	}
	return top
}
