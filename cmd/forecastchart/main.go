package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ForecastChart/internal/api"
	"ForecastChart/internal/collector"
	"ForecastChart/internal/config"
	"ForecastChart/internal/logger"
	"ForecastChart/internal/notifier"
	"ForecastChart/internal/recorder"
	"ForecastChart/internal/scheduler"
	"ForecastChart/internal/service"
	"ForecastChart/internal/session"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("[FATAL] init logger: %v", err)
	}
	defer lg.Sync()
	lg.Info("ForecastChart starting", zap.String("config", cfgPath))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := collector.NewInferenceClient(cfg.Inference.BaseURL, cfg.Proxy, cfg.Inference.Timeout)
	lg.Info("inference service", zap.String("base_url", client.BaseURL))
	col := collector.NewCollector(client, lg, cfg.Prediction.MinLatency)

	rec := openRecorder(ctx, cfg.Database, lg)
	defer rec.Close()

	svc := service.New(cfg, col, session.New(cfg.Chart.Mode), rec, lg)
	if err := svc.LoadState(); err != nil {
		lg.Warn("session state ignored", zap.Error(err))
	}

	var sender notifier.Sender
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.Enabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, lg)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, svc, sender, cfg.Schedule.Tickers, lg)
	if err := sched.RegisterAll(cfg.Schedule.ForecastCron); err != nil {
		lg.Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		lg.Info("telegram polling started")
	}

	srv := api.NewServer(svc, cfg.Server, lg)
	go func() {
		if err := srv.Start(); err != nil {
			lg.Error("api server", zap.Error(err))
			cancel()
		}
	}()

	if os.Getenv("RUN_ON_START") == "true" {
		lg.Info("RUN_ON_START enabled, executing forecast task now")
		go sched.RunNow()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		lg.Info("shutdown signal received, stopping")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("api shutdown", zap.Error(err))
	}
	cancel()
	lg.Info("ForecastChart stopped")
}

func openRecorder(ctx context.Context, cfg config.DatabaseConfig, lg *zap.Logger) recorder.Recorder {
	switch cfg.Driver {
	case "postgres":
		r, err := recorder.NewPostgresRecorder(ctx, cfg.PostgresDSN, lg)
		if err == nil {
			return r
		}
		lg.Warn("init postgres recorder failed, using noop", zap.Error(err))
	case "sqlite":
		r, err := recorder.NewSQLiteRecorder(cfg.SQLitePath, lg)
		if err == nil {
			return r
		}
		lg.Warn("init sqlite recorder failed, using noop", zap.Error(err))
	}
	return recorder.NewNoopRecorder()
}
