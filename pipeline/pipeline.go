// Package pipeline turns campaign folders into report tables, charts and,
// optionally, published result records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/yaron8/lossreport-infra/analysis"
	"github.com/yaron8/lossreport-infra/campaign"
	"github.com/yaron8/lossreport-infra/charts"
	"github.com/yaron8/lossreport-infra/config"
	"github.com/yaron8/lossreport-infra/derive"
	"github.com/yaron8/lossreport-infra/logi"
	"github.com/yaron8/lossreport-infra/records"
	"github.com/yaron8/lossreport-infra/repair"
	"github.com/yaron8/lossreport-infra/tables"
)

const (
	campaignFolder = "campaign"
	scenarioFolder = "scenario"
)

var errTaskPanicked = errors.New("scenario task panicked")

// Publisher receives the report records of a run.
type Publisher interface {
	Store(ctx context.Context, record records.ReportRecord) error
	SetLastRun(ctx context.Context, info records.RunInfo) error
}

// ScenarioResult is the outcome of one scenario task.
type ScenarioResult struct {
	Scenario *records.Scenario
	Row      records.OverviewRow
	Repaired []records.SampleReport
	Stats    *records.LossStats
	Err      error
}

// Result is the outcome of one campaign.
type Result struct {
	RunID     string
	Campaign  string
	OutputDir string
	Overview  string // path of the campaign overview CSV
	Scenarios []ScenarioResult
	Failures  []campaign.Failure
}

// Rows returns the overview rows in scenario order.
func (r *Result) Rows() []records.OverviewRow {
	rows := make([]records.OverviewRow, 0, len(r.Scenarios))
	for _, s := range r.Scenarios {
		rows = append(rows, s.Row)
	}
	return rows
}

type Pipeline struct {
	cfg       *config.Config
	repair    repair.Func
	publisher Publisher
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. publisher may be nil, in which case nothing
// is published.
func NewPipeline(cfg *config.Config, publisher Publisher) (*Pipeline, error) {
	fn, err := repair.ByName(cfg.Repair.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		repair:    fn,
		publisher: publisher,
		logger:    logi.GetLogger(),
	}, nil
}

// RunAll reports on every campaign in dirs under a single run id. A campaign
// that cannot be reported does not stop the others; their errors are joined.
func (p *Pipeline) RunAll(ctx context.Context, dirs []string) ([]*Result, error) {
	runID := uuid.NewString()
	p.logger.Info("Report run starting", "run_id", runID, "campaigns", len(dirs), "workers", p.cfg.Workers)

	var (
		results []*Result
		errs    []error
		info    = records.RunInfo{RunID: runID}
	)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := p.run(ctx, runID, dir)
		if err != nil {
			p.logger.Error("Error reporting campaign", "run_id", runID, "campaign_dir", dir, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
			continue
		}
		results = append(results, res)
		info.Campaigns = append(info.Campaigns, res.Campaign)
		info.Scenarios += len(res.Scenarios)
		info.Failures += len(res.Failures)
	}
	info.FinishedAt = time.Now().UTC()

	if p.publisher != nil {
		if err := p.publisher.SetLastRun(ctx, info); err != nil {
			p.logger.Error("Error storing last run", "run_id", runID, "error", err)
			errs = append(errs, fmt.Errorf("failed to set last run: %w", err))
		}
	}

	p.logger.Info("Report run finished",
		"run_id", runID,
		"campaigns", len(info.Campaigns),
		"scenarios", info.Scenarios,
		"failures", info.Failures)
	return results, errors.Join(errs...)
}

// Run reports on a single campaign under a fresh run id.
func (p *Pipeline) Run(ctx context.Context, campaignDir string) (*Result, error) {
	return p.run(ctx, uuid.NewString(), campaignDir)
}

func (p *Pipeline) run(ctx context.Context, runID, campaignDir string) (*Result, error) {
	c, err := campaign.Load(campaignDir)
	if err != nil {
		return nil, err
	}
	for _, f := range c.Failures {
		p.logger.Error("Skipping malformed scenario", "run_id", runID, "campaign", c.Name, "scenario", f.Test, "error", f.Err)
	}

	res := &Result{
		RunID:     runID,
		Campaign:  c.Name,
		OutputDir: filepath.Join(p.cfg.OutputFolder, c.Name),
		Scenarios: make([]ScenarioResult, len(c.Scenarios)),
		Failures:  append([]campaign.Failure(nil), c.Failures...),
	}

	if err := p.processAll(ctx, res, c.Scenarios); err != nil {
		return nil, err
	}

	for _, s := range res.Scenarios {
		if s.Err != nil {
			res.Failures = append(res.Failures, campaign.Failure{Test: s.Scenario.Name, Err: s.Err})
		}
	}

	outDir := filepath.Join(res.OutputDir, campaignFolder)
	res.Overview, err = tables.WriteCampaignOverview(p.tableOptions(), outDir, c.Name, res.Rows())
	if err != nil {
		return nil, fmt.Errorf("failed to write campaign overview: %w", err)
	}
	if _, err := charts.WriteCampaignCharts(p.chartOptions(), outDir, res.Rows()); err != nil {
		p.logger.Error("Error drawing campaign charts", "run_id", runID, "campaign", c.Name, "error", err)
		res.Failures = append(res.Failures, campaign.Failure{Test: campaignFolder, Err: err})
	}

	if p.publisher != nil {
		p.publish(ctx, res)
	}

	p.logger.Info("Campaign reported",
		"run_id", runID,
		"campaign", c.Name,
		"scenarios", len(res.Scenarios),
		"failures", len(res.Failures),
		"overview", res.Overview)
	return res, nil
}

// processAll runs one pool task per scenario and waits for all of them. Each
// task writes only its own slot of res.Scenarios.
func (p *Pipeline) processAll(ctx context.Context, res *Result, scenarios []*records.Scenario) error {
	pool, err := ants.NewPool(p.cfg.Workers, ants.WithPanicHandler(func(v interface{}) {
		p.logger.Error("Scenario task panicked", "run_id", res.RunID, "campaign", res.Campaign, "panic", v)
	}))
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, sc := range scenarios {
		// marks the slot until the task overwrites it
		res.Scenarios[i] = placeholder(sc, errTaskPanicked)

		if err := ctx.Err(); err != nil {
			res.Scenarios[i] = placeholder(sc, err)
			continue
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			res.Scenarios[i] = p.processScenario(ctx, res, sc)
		})
		if err != nil {
			wg.Done()
			res.Scenarios[i] = placeholder(sc, fmt.Errorf("failed to submit scenario: %w", err))
		}
	}
	wg.Wait()
	return nil
}

func (p *Pipeline) processScenario(ctx context.Context, res *Result, sc *records.Scenario) ScenarioResult {
	if err := ctx.Err(); err != nil {
		return placeholder(sc, err)
	}

	out := ScenarioResult{Scenario: sc}

	var errs []error
	row, err := derive.Row(sc)
	out.Row = row
	if err != nil {
		p.logger.Error("Error deriving metrics", "run_id", res.RunID, "campaign", res.Campaign, "scenario", sc.Name, "error", err)
		errs = append(errs, err)
	}

	if sc.HasSamples {
		duration := derive.ResolveDuration(sc.Client.Report, sc.Description)
		out.Repaired = p.repair(sc.Samples, sc.Client.Report, duration)
		if err := repair.Check(out.Repaired); err != nil {
			p.logger.Warn("Repaired sequence violates counter invariants", "run_id", res.RunID, "scenario", sc.Name, "error", err)
		}

		if out.Stats, err = analysis.Summarize(out.Repaired); err != nil {
			p.logger.Warn("Error summarizing losses", "run_id", res.RunID, "scenario", sc.Name, "error", err)
		}

		dir := filepath.Join(res.OutputDir, scenarioFolder, scenarioID(sc))
		if _, err := tables.WriteQueryOverview(p.tableOptions(), dir, out.Repaired); err != nil {
			errs = append(errs, err)
		}
		if _, err := charts.WriteScenarioCharts(p.chartOptions(), dir, out.Repaired); err != nil {
			errs = append(errs, err)
		}
	}

	out.Err = errors.Join(errs...)
	p.logger.Debug("Scenario processed", "run_id", res.RunID, "scenario", sc.Name, "losses", out.Row.Losses, "failed", out.Err != nil)
	return out
}

// placeholder is the result of a scenario that was not processed.
func placeholder(sc *records.Scenario, err error) ScenarioResult {
	row := records.NewOverviewRow(sc)
	row.Remarks = derive.Remarks(sc, err)
	return ScenarioResult{Scenario: sc, Row: row, Err: err}
}

func (p *Pipeline) publish(ctx context.Context, res *Result) {
	now := time.Now().UTC()
	stored, failed := 0, 0
	for _, s := range res.Scenarios {
		record := records.ReportRecord{
			RunID:       res.RunID,
			Campaign:    res.Campaign,
			GeneratedAt: now,
			Overview:    s.Row,
			Stats:       s.Stats,
		}
		if err := p.publisher.Store(ctx, record); err != nil {
			failed++
			p.logger.Error("Error storing report", "run_id", res.RunID, "scenario", s.Scenario.Name, "error", err)
			res.Failures = append(res.Failures, campaign.Failure{Test: s.Scenario.Name, Err: fmt.Errorf("publish: %w", err)})
			continue
		}
		stored++
	}
	p.logger.Info("Reports published", "run_id", res.RunID, "campaign", res.Campaign, "stored", stored, "errors", failed)
}

func (p *Pipeline) tableOptions() tables.Options {
	return tables.Options{Excel: p.cfg.Excel}
}

func (p *Pipeline) chartOptions() charts.Options {
	return charts.Options{Format: p.cfg.Charts.Format, Histogram: p.cfg.Charts.Histogram}
}

func scenarioID(sc *records.Scenario) string {
	if id := sc.Description.Metadata.TestID; id != "" {
		return id
	}
	return sc.Name
}
