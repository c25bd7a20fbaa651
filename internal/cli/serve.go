package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rileyhilliard/nekowatch/internal/bridge"
	"github.com/rileyhilliard/nekowatch/internal/errors"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/internal/metrics"
	"github.com/rileyhilliard/nekowatch/internal/monitor"
	"github.com/rileyhilliard/nekowatch/internal/notify"
	"github.com/rileyhilliard/nekowatch/internal/provision"
	"github.com/rileyhilliard/nekowatch/internal/schedule"
	"github.com/rileyhilliard/nekowatch/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector and HTTP API",
	Long: `Poll every active host's agent, keep live snapshots and history,
send down/recovered notifications, and serve the HTTP API.

Examples:
  nekowatch serve
  nekowatch serve --listen :8080
  NEKOWATCH_DATABASE_DSN=postgres://... nekowatch serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveListen != "" {
			cfg.Listen = serveListen
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return serve(ctx, a)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (overrides config)")
}

// serve wires the monitor, scheduler and HTTP server around a and runs them
// until ctx is canceled or one of them fails.
func serve(ctx context.Context, a *app) error {
	log := logger.NewEnvLogger("[serve]")

	loc, err := a.cfg.Location()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Unknown timezone: "+a.cfg.Timezone, "Use an IANA name like Asia/Shanghai or UTC")
	}

	m := metrics.New()
	m.WatchPoolSize(a.pool.Size)

	notifier := notify.NewAsync(a.notifier(), notify.DefaultQueueSize, logger.NewEnvLogger("[notify]"))

	svc := monitor.NewService(monitor.Options{
		Registry:        a.registry,
		Store:           a.store,
		Notifier:        notifier,
		Metrics:         m,
		PollInterval:    a.cfg.Poll.Interval,
		PollTimeout:     a.cfg.Poll.Timeout,
		DownThreshold:   a.cfg.Poll.DownThreshold,
		TrafficInterval: a.cfg.Traffic.Interval,
		Location:        loc,
	})

	sched := schedule.New(loc, logger.NewEnvLogger("[schedule]"))
	sched.SetObserver(m)
	svc.Register(sched)

	srv := server.New(server.Deps{
		Monitor:   svc,
		Registry:  a.registry,
		Provision: provision.New(a.pool, logger.NewEnvLogger("[provision]")),
		Bridge:    bridge.New(a.pool, logger.NewEnvLogger("[shell]")),
		Metrics:   m,
		AgentURL:  a.cfg.Agent.DownloadURL,
		Log:       logger.NewEnvLogger("[http]"),
	})

	log.Info("starting with %d scheduled jobs", sched.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		notifier.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := svc.Collector.PollOnce(gctx); err != nil {
			log.Warn("initial poll: %s", errors.Brief(err))
		}
		return nil
	})
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx, a.cfg.Listen) })

	err = g.Wait()
	log.Info("stopped")
	return err
}
