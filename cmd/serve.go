package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yaron8/lossreport-infra/bootstrap"
)

const shutdownTimeout = 10 * time.Second

var serveLong = `
		Serve the published reports over HTTP.

		Endpoints: /health, /reports/ListReports[?campaign=], /reports/GetReport?campaign=&test_id=,
		/reports/GetMetric?campaign=&test_id=&metric= and /reports/LastRun.`

type ServeFlags struct {
	Port int
}

func NewCmdServe(global *GlobalFlags) *cobra.Command {
	flags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the published reports over HTTP.",
		Long:  serveLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.API.Port = flags.Port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			b, err := bootstrap.NewBootstrap(cfg, true)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			api, err := b.APIServer(ctx)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- api.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return api.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVarP(&flags.Port, "port", "p", flags.Port, "HTTP port.")
	return cmd
}
