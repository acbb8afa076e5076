package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/api"
	"github.com/JakeFAU/sitewatch/internal/clock/system"
	"github.com/JakeFAU/sitewatch/internal/config"
	"github.com/JakeFAU/sitewatch/internal/fetcher/httpfetch"
	"github.com/JakeFAU/sitewatch/internal/hash/sha256"
	"github.com/JakeFAU/sitewatch/internal/logging"
	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/notifier/pushover"
	"github.com/JakeFAU/sitewatch/internal/progress"
	"github.com/JakeFAU/sitewatch/internal/progress/sinks"
)

const defaultConfigFile = "sitewatch.yaml"

func newWatchCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Starts the watch loop",
		Long: `Runs poll rounds over the configured URLs until every (URL, phrase)
combination has been found or the process is stopped. With --once a single
round is executed and the process exits, which suits cron-style scheduling.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single round and exit")
	return cmd
}

func runWatch(parent context.Context, once bool) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := progress.NewHub(progress.Config{Logger: logger},
		sinks.NewLogSink(logger.Named("events")),
		sinks.NewPrometheusSink(),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("event hub close failed", zap.Error(cerr))
		}
	}()

	scheduler, err := buildScheduler(cfg, hub, logger)
	if err != nil {
		return fmt.Errorf("configure watch: %w", err)
	}

	logger.Info("watch configured",
		zap.Strings("urls", cfg.Monitor.URLs),
		zap.Strings("phrases", cfg.Monitor.Phrases),
		zap.Duration("interval", cfg.Monitor.Interval),
		zap.Bool("auto_stop", cfg.Monitor.AutoStop),
		zap.Int("combinations", len(cfg.Monitor.URLs)*len(cfg.Monitor.Phrases)),
		zap.String("run_id", scheduler.RunID().String()),
	)

	if once {
		found, total := scheduler.RunOnce(ctx)
		logger.Info("single round finished", zap.Int("found", found), zap.Int("total", total))
		return nil
	}

	if cfg.Server.Enabled {
		server := api.NewServer(scheduler, stop, logger.Named("api"))
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			if serr := server.Serve(ctx, addr); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
				logger.Error("status server failed", zap.Error(serr))
			}
		}()
	}

	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run watch: %w", err)
	}
	logger.Info("watch finished", zap.String("phase", string(scheduler.Status().Phase)))
	return nil
}

func buildScheduler(cfg config.Config, hub *progress.Hub, logger *zap.Logger) (*monitor.Scheduler, error) {
	fetcher := httpfetch.New(httpfetch.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTP.Timeout,
		MaxRetries:   cfg.HTTP.MaxRetries,
		Headers:      cfg.HTTP.Headers,
		MaxBodyBytes: cfg.Limits.MaxContentBytes + 1,
	}, logger.Named("fetch"))

	notifier, err := pushover.New(pushover.Config{
		Token: cfg.Pushover.Token,
		User:  cfg.Pushover.User,
	})
	if err != nil {
		return nil, err
	}

	clk := system.New()
	tracker := monitor.NewTracker(cfg.Monitor.URLs, cfg.Monitor.Phrases, clk)
	extractor := monitor.NewExtractor(cfg.Limits.MaxContentBytes, cfg.Limits.MaxExtractedChars)

	return monitor.NewScheduler(
		monitor.SchedulerConfig{
			URLs:                 cfg.Monitor.URLs,
			Phrases:              cfg.Monitor.Phrases,
			Interval:             cfg.Monitor.Interval,
			AutoStop:             cfg.Monitor.AutoStop,
			MaxWorkers:           cfg.Monitor.MaxWorkers,
			NotificationTitle:    cfg.Pushover.Title,
			NotificationPriority: cfg.Pushover.Priority,
			NotificationSound:    cfg.Pushover.Sound,
		},
		fetcher,
		notifier,
		extractor,
		tracker,
		hub,
		clk,
		sha256.New(),
		logger.Named("watch"),
	)
}
