package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yaron8/lossreport-infra/bootstrap"
	"github.com/yaron8/lossreport-infra/campaign"
	"github.com/yaron8/lossreport-infra/config"
)

var (
	reportShort = "Generate tables and charts for one or more campaigns."
	reportLong  = `
		Generate the campaign overview, the per-scenario query tables and the charts.

		Each argument is a campaign folder. Without arguments every campaign below the
		configured results folder is reported. Outputs are written to
		<output_folder>/<campaign>/campaign and <output_folder>/<campaign>/scenario/<test-id>.`
	reportExample = `
		# Report every campaign below ./results with the defaults
		lossreport report

		# Report one campaign with 8 workers and Excel workbooks
		lossreport report results/cpu_stress --workers 8 --excel

		# Draw SVG charts including the loss histogram and publish to Redis
		lossreport report --format svg --histogram --publish`
)

// ReportFlags override the report settings of the configuration file
type ReportFlags struct {
	Workers   int
	Excel     bool
	Histogram bool
	Format    string
	Output    string
	Publish   bool
}

func NewCmdReport(global *GlobalFlags) *cobra.Command {
	flags := &ReportFlags{}
	cmd := &cobra.Command{
		Use:     "report [campaign-dir...]",
		Short:   reportShort,
		Long:    reportLong,
		Example: reportExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.LoadConfig()
			if err != nil {
				return err
			}
			if err := flags.Apply(cmd, cfg); err != nil {
				return err
			}
			return runReport(cmd, cfg, args)
		},
	}
	flags.AddFlags(cmd)
	return cmd
}

// AddFlags registers flags for a cli
func (flags *ReportFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", flags.Workers,
		"Number of scenarios processed in parallel (1 = sequential).")
	cmd.Flags().BoolVar(&flags.Excel, "excel", flags.Excel,
		"Also write every table as an .xlsx workbook (on by default, --excel=false disables).")
	cmd.Flags().BoolVar(&flags.Histogram, "histogram", flags.Histogram,
		"Draw the per-scenario loss histogram.")
	cmd.Flags().StringVar(&flags.Format, "format", flags.Format,
		"Chart format: png or svg.")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", flags.Output,
		"Output folder.")
	cmd.Flags().BoolVar(&flags.Publish, "publish", flags.Publish,
		"Publish the derived rows to Redis.")
}

// Apply copies the flags the user set into cfg and validates the result.
func (flags *ReportFlags) Apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Workers = flags.Workers
	}
	if f.Changed("excel") {
		cfg.Excel = flags.Excel
	}
	if f.Changed("histogram") {
		cfg.Charts.Histogram = flags.Histogram
	}
	if f.Changed("format") {
		cfg.Charts.Format = flags.Format
	}
	if f.Changed("output") {
		cfg.OutputFolder = flags.Output
	}
	if f.Changed("publish") {
		cfg.Redis.Enabled = flags.Publish
	}
	return cfg.Validate()
}

func runReport(cmd *cobra.Command, cfg *config.Config, dirs []string) error {
	if len(dirs) == 0 {
		var err error
		if dirs, err = campaign.Discover(cfg.ResultsFolder); err != nil {
			return err
		}
		if len(dirs) == 0 {
			return fmt.Errorf("no campaign folders found in %s", cfg.ResultsFolder)
		}
	}

	b, err := bootstrap.NewBootstrap(cfg, false)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := b.Pipeline()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, runErr := p.RunAll(ctx, dirs)

	out := cmd.OutOrStdout()
	for _, res := range results {
		fmt.Fprintf(out, "%s: %d scenarios, %d failures, overview %s\n",
			res.Campaign, len(res.Scenarios), len(res.Failures), res.Overview)
		for _, f := range res.Failures {
			fmt.Fprintf(out, "  %s\n", f.Error())
		}
	}
	return runErr
}
