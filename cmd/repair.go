package cmd

import (
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/yaron8/lossreport-infra/campaign"
	"github.com/yaron8/lossreport-infra/derive"
	"github.com/yaron8/lossreport-infra/records"
	"github.com/yaron8/lossreport-infra/repair"
)

var (
	repairShort = "Print the repaired loss counters of one test as CSV."
	repairLong  = `
		Parse the client logs of a single test folder, repair the periodic loss counters
		and print the query table (timestamp, packets, cumulative losses, losses per query)
		to stdout. The final record is the test's own result.`
	repairExample = `
		# Repair one test with the configured algorithm
		lossreport repair results/cpu_stress/client/t_80_10000

		# Use the single-pass variant
		lossreport repair results/cpu_stress/client/t_80_10000 --algorithm suffix-min`
)

type RepairFlags struct {
	Algorithm string
}

func NewCmdRepair(global *GlobalFlags) *cobra.Command {
	flags := &RepairFlags{}
	cmd := &cobra.Command{
		Use:     "repair <test-dir>",
		Short:   repairShort,
		Long:    repairLong,
		Example: repairExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.LoadConfig()
			if err != nil {
				return err
			}
			algorithm := cfg.Repair.Algorithm
			if cmd.Flags().Changed("algorithm") {
				algorithm = flags.Algorithm
			}
			fn, err := repair.ByName(algorithm)
			if err != nil {
				return err
			}
			return runRepair(cmd, fn, args[0])
		},
	}
	cmd.Flags().StringVar(&flags.Algorithm, "algorithm", flags.Algorithm,
		"Repair algorithm: rescan or suffix-min.")
	return cmd
}

func runRepair(cmd *cobra.Command, fn repair.Func, dir string) error {
	if !campaign.IsTestFolder(dir) {
		return fmt.Errorf("%s is not a test folder", dir)
	}
	sc, err := campaign.LoadScenario(dir, "")
	if err != nil {
		return err
	}

	duration := derive.ResolveDuration(sc.Client.Report, sc.Description)
	rows := records.NewQueryRows(fn(sc.Samples, sc.Client.Report, duration))
	return gocsv.Marshal(&rows, cmd.OutOrStdout())
}
