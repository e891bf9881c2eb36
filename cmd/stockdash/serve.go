package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"StockDash/internal/config"
	"StockDash/internal/notifier"
	"StockDash/internal/scheduler"
	"StockDash/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var snapshotOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard, snapshot job and Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cfg, snapshotOnStart)
		},
	}
	cmd.Flags().BoolVar(&snapshotOnStart, "snapshot-now", os.Getenv("RUN_ON_START") == "true", "run the watchlist snapshot once at start (env RUN_ON_START)")
	return cmd
}

func runServe(cfg *config.Config, snapshotOnStart bool) error {
	log.Println("[INFO] StockDash starting...")

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, a.svc, sender, a.rec, cfg.Schedule.Watchlist, cfg.Schedule.Interval)
	sched.Defaults = a.defaults
	if err := sched.Register(cfg.Schedule.SnapshotCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}
	if snapshotOnStart {
		go sched.RunSnapshotNow()
	}

	srv, err := server.New(a.svc, a.rec, server.Options{
		Addr:         cfg.Server.Addr,
		GinMode:      cfg.Server.GinMode,
		AllowOrigins: cfg.Server.AllowOrigins,
		Defaults:     a.defaults,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("[INFO] shutdown signal received, stopping...")
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	log.Println("[INFO] StockDash stopped")
	return nil
}
