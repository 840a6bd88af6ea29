package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FlowSentinel/internal/apiserver"
	"FlowSentinel/internal/config"
	"FlowSentinel/internal/detector"
	"FlowSentinel/internal/ingest"
	"FlowSentinel/internal/metrics"
	"FlowSentinel/internal/notifier"
	"FlowSentinel/internal/recorder"
	"FlowSentinel/internal/scheduler"
	"FlowSentinel/internal/source"
	"FlowSentinel/internal/state"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	cfgPath := pflag.StringP("config", "c", defaultConfig, "path to the YAML config file")
	pflag.Parse()

	boot := zap.Must(zap.NewProduction())

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot.Fatal("load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		boot.Fatal("config validation", zap.Error(err))
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		boot.Fatal("init logger", zap.Error(err))
	}
	defer logger.Sync()
	undo := zap.RedirectStdLog(logger)
	defer undo()
	logger.Info("FlowSentinel starting", zap.String("config", *cfgPath))

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("FlowSentinel stopped")
}

// run starts every component and blocks until ctx is cancelled or one of
// them fails.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// Init reading source
	src, err := source.Open(ctx, source.Options{
		Kind:                cfg.Source.Kind,
		SerialPort:          cfg.Source.SerialPort,
		BaudRate:            cfg.Source.BaudRate,
		SettleDelay:         cfg.Source.SettleDelay,
		FallbackToSynthetic: *cfg.Source.FallbackToSynthetic,
		Tick:                cfg.Source.Tick,
		ProfileSwitch:       cfg.Source.ProfileSwitch,
	}, logger)
	if err != nil {
		return fmt.Errorf("init reading source: %w", err)
	}
	logger.Info("reading source ready", zap.String("source", src.Name()))

	// Init state and metrics
	store := state.NewStore(detector.Thresholds{
		LeakFlow:  cfg.Monitor.LeakFlowThreshold,
		LeakTime:  *cfg.Monitor.LeakTimeThreshold,
		UnitPrice: cfg.UnitPriceDecimal(),
	})
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()
	handlers := []ingest.EventHandler{recorder.NewEventJournal(rec)}

	// Init Telegram notifier
	var n notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Proxy, logger)
		n = tn
		handlers = append(handlers, tn)
	} else {
		logger.Info("telegram not configured, leak alerts are logged only")
	}

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, store, n, rec, logger)
	if err := sched.RegisterAll(cfg.Schedule.StatusCron, cfg.Schedule.LeakReminderCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	loop := ingest.NewLoop(src, store, m, *cfg.Source.ErrorBackoff, logger, handlers...)
	api := apiserver.New(cfg.HTTP.Listen, store, src.Name(), reg, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return api.Run(gctx) })
	g.Go(func() error {
		// Closing the source unblocks a pending serial read.
		<-gctx.Done()
		if err := src.Close(); err != nil {
			logger.Warn("close reading source", zap.Error(err))
		}
		return nil
	})
	if tn != nil {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
	}

	logger.Info("FlowSentinel is running. Press Ctrl+C to stop.")
	return g.Wait()
}

func newLogger(level string, development bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}
