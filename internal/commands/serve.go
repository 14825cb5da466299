package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tally-dev/tally/internal/api"
	"github.com/tally-dev/tally/internal/recurring"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(open opener) *cobra.Command {
	var addr string
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recurring transaction scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if addr == "" {
				addr = rt.Config.Server.Addr
			}
			rt.Source = "api"
			log := rt.Log

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.New(rt, log)
			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				log.Info().Str("addr", addr).Msg("API listening")
				if err := server.Listen(addr); err != nil {
					return fmt.Errorf("serving API: %w", err)
				}
				return nil
			})

			if !noScheduler {
				runner := rt.Runner("scheduler")
				runner.AfterRun = func(ctx context.Context, res recurring.Result) {
					msg := fmt.Sprintf("recurring: %d materialized by scheduler", len(res.Materialized))
					if _, err := rt.Commit(ctx, msg); err != nil {
						log.Warn().Err(err).Msg("auto-commit failed")
					}
				}
				g.Go(func() error { return runner.Run(ctx) })
			}

			g.Go(func() error {
				<-ctx.Done()
				log.Info().Msg("shutting down")
				return server.ShutdownWithTimeout(shutdownTimeout)
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without processing recurring templates")
	return cmd
}
