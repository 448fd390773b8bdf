package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yaron8/lossreport-infra/config"
)

const rootLong = `
		Build loss reports from UDP benchmark campaigns.

		A campaign folder holds the XML logs written by the test suite on the client and,
		optionally, on the server. lossreport repairs the periodic loss counters of every
		test, derives bandwidth and loss metrics, and writes CSV/XLSX tables and charts.
		The derived rows can be published to Redis and served over HTTP.`

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	LogDir     string
	LogLevel   string
}

// AddFlags registers the persistent flags on the root command
func (flags *GlobalFlags) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", flags.ConfigPath,
		"YAML configuration file. Defaults are used when empty.")
	cmd.PersistentFlags().StringVar(&flags.LogDir, "log-dir", flags.LogDir,
		"Directory for the rotated JSON log file.")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel,
		"Minimum log level: debug, info, warn or error.")
}

// LoadConfig reads the configuration file, if any, and applies the global flags.
func (flags *GlobalFlags) LoadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.ConfigPath != "" {
		if cfg, err = config.Load(flags.ConfigPath); err != nil {
			return nil, err
		}
	} else {
		cfg = config.NewConfig()
	}

	if flags.LogDir != "" {
		cfg.Log.Dir = flags.LogDir
	}
	if flags.LogLevel != "" {
		cfg.Log.Level = flags.LogLevel
	}
	return cfg, nil
}

// NewRootCmd builds the lossreport command tree.
func NewRootCmd() *cobra.Command {
	flags := &GlobalFlags{}
	cmd := &cobra.Command{
		Use:           "lossreport",
		Short:         "Build loss reports from UDP benchmark campaigns.",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.AddFlags(cmd)

	cmd.AddCommand(
		NewCmdReport(flags),
		NewCmdRepair(flags),
		NewCmdServe(flags),
	)
	return cmd
}
