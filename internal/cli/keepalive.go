package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nspcc-dev/passkey-registry/internal/keeper"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// NewKeepaliveCommand creates the keepalive command.
func NewKeepaliveCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "keepalive",
		Short: "Extend registry lease periodically",
		Long: `Extend registry lease right away and then periodically until interrupted.
Metrics are served on metrics.address if configured.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithBackend(cmd, rootOpts, func(ctx context.Context, e *env) error {
				if cmd.Flags().Changed("interval") {
					e.cfg.Keeper.Interval = interval
				}

				return runKeepalive(ctx, e)
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "period of lease extension, overrides keeper.interval")

	return cmd
}

func runKeepalive(ctx context.Context, e *env) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	k, err := keeper.New(keeper.Prm{
		Extender:   e.Registry,
		Interval:   e.cfg.Keeper.Interval,
		Timeout:    e.cfg.Keeper.Timeout,
		Logger:     e.log,
		Registerer: e.metrics,
	})
	if err != nil {
		return fmt.Errorf("init keeper: %w", err)
	}

	if e.cfg.Metrics.Address != "" {
		e.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		srv := newMetricsServer(e.cfg.Metrics.Address, e.metrics, e.log)
		srv.start()
		defer srv.stop()
	}

	err = k.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}

	return err
}
