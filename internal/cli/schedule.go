package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newScheduleCmd(a *app) *cobra.Command {
	var (
		spec   string
		runNow bool
	)
	cmd := &cobra.Command{
		Use:   "schedule --cron SPEC [variant...]",
		Short: "Rerun variants on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			names, err := selectVariants(cfg, args)
			if err != nil {
				return err
			}
			logger, closeLog, err := a.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			out := cmd.OutOrStdout()
			s, err := newScheduler(spec, logger, func(ctx context.Context) error {
				return runVariants(ctx, cfg, names, logger, out)
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("scheduler started", "schedule", spec, "variants", names)
			return s.serve(ctx, runNow)
		},
	}
	cmd.Flags().StringVar(&spec, "cron", "", `cron schedule, e.g. "0 6 * * *" or "@hourly"`)
	cmd.Flags().BoolVar(&runNow, "now", false, "also run once immediately")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}

// scheduler reruns a set of variants from cron. A run never starts while
// another is in progress, whether it came from a tick or from --now; the
// later one is skipped. Run failures are logged and the schedule continues.
type scheduler struct {
	schedule cron.Schedule
	run      func(ctx context.Context) error
	logger   *slog.Logger
}

func newScheduler(spec string, logger *slog.Logger, run func(ctx context.Context) error) (*scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return &scheduler{schedule: schedule, run: run, logger: logger}, nil
}

// serve blocks until ctx is cancelled, then waits for a run in progress.
func (s *scheduler) serve(ctx context.Context, runNow bool) error {
	cronLog := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug))
	g, gctx := errgroup.WithContext(ctx)

	// Ticks and the immediate run share one wrapped job, so they share its
	// still-running guard.
	job := cron.NewChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	).Then(cron.FuncJob(func() { s.tick(gctx) }))

	c := cron.New(cron.WithLogger(cronLog))
	c.Schedule(s.schedule, job)

	g.Go(func() error {
		c.Start()
		<-gctx.Done()
		<-c.Stop().Done()
		s.logger.Info("scheduler stopped")
		return nil
	})
	if runNow {
		g.Go(func() error {
			job.Run()
			return nil
		})
	}
	return g.Wait()
}

func (s *scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.run(ctx); err != nil {
		s.logger.WarnContext(ctx, "scheduled run failed", "error", err)
	}
}
