package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/slotwatch/internal/adapter/chromedp_page"
	"github.com/user/slotwatch/internal/adapter/credentials"
	"github.com/user/slotwatch/internal/adapter/memory"
	"github.com/user/slotwatch/internal/adapter/notify"
	"github.com/user/slotwatch/internal/adapter/postgres"
	redis_adapter "github.com/user/slotwatch/internal/adapter/redis"
	"github.com/user/slotwatch/internal/delivery/http/handler"
	"github.com/user/slotwatch/internal/delivery/http/router"
	"github.com/user/slotwatch/internal/probe"
	"github.com/user/slotwatch/internal/repository"
	"github.com/user/slotwatch/internal/usecase"
	"github.com/user/slotwatch/pkg/config"
)

// runMonitor wires the stores, sinks and probes, then serves status until
// ctx is cancelled or a termination signal arrives.
func runMonitor(parent context.Context) error {
	cfg, closeLog, err := setup(os.Stdout)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	var transitions repository.TransitionRepository
	if cfg.Postgres.Enabled {
		dbpool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("unable to connect to database: %w", err)
		}
		defer dbpool.Close()
		repo := postgres.NewTransitionRepo(dbpool)
		if err := repo.Migrate(ctx); err != nil {
			return fmt.Errorf("unable to prepare transition table: %w", err)
		}
		transitions = repo
		slog.Info("PostgreSQL connection pool established")
	}

	var cooldowns repository.CooldownRepository = memory.NewCooldownRepo(nil)
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("unable to connect to redis: %w", err)
		}
		defer rdb.Close()
		cooldowns = redis_adapter.NewCooldownRepo(rdb)
		slog.Info("Redis connection established")
	}

	// --- Notification sinks ---
	hub := notify.NewHub()
	sinks := notify.FanOut{hub}
	if cfg.Notify.Desktop {
		sinks = append(sinks, notify.NewDesktopSink(nil))
	}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notify.WebhookURL, nil))
	}

	// --- Monitor tasks ---
	deps := probeDeps(cfg)

	tasks := make([]*usecase.MonitorTask, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		p, err := probe.Build(target, deps)
		if err != nil {
			closeTasks(tasks)
			return fmt.Errorf("unable to set up target %s: %w", target.Name, err)
		}
		var opts []usecase.TaskOption
		if transitions != nil {
			opts = append(opts, usecase.WithTransitionRepository(transitions))
			logLastTransition(ctx, transitions, target.Name)
		}
		tasks = append(tasks, usecase.NewMonitorTask(target.Name, p, nil, opts...))
		slog.Info("Target configured", "target", target.Name, "kind", target.Kind, "store", target.Store)
	}

	scheduler := usecase.NewScheduler(tasks, usecase.SchedulerOptions{
		Period:          cfg.PollPeriod,
		InitialDelay:    cfg.InitialDelay,
		Stagger:         cfg.Stagger,
		FailureCooldown: cfg.FailureCooldown,
		Sink:            sinks,
		Cooldowns:       cooldowns,
	})
	// Cycles are detached from ctx so a signal lets in-flight cycles finish.
	if err := scheduler.Start(context.Background()); err != nil {
		closeTasks(tasks)
		return fmt.Errorf("unable to start scheduler: %w", err)
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(scheduler, hub)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down", "grace", cfg.ShutdownGrace.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown incomplete", "error", err)
	}
	_ = hub.Close()
	if err := scheduler.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Scheduler shutdown reported errors", "error", err)
	}
	slog.Info("Exiting")
	return nil
}

func probeDeps(cfg *config.Config) probe.Deps {
	var creds repository.CredentialSource = credentials.NewDirSource(cfg.Credentials.Dir)
	if cfg.Credentials.File != "" {
		creds = credentials.NewFileSource(cfg.Credentials.File)
	}
	browser := chromedp_page.NewBrowser(chromedp_page.Options{
		Headless:        cfg.Browser.Headless,
		UserAgent:       cfg.Browser.UserAgent,
		PageLoadTimeout: cfg.Browser.PageLoadTimeout,
	})
	return probe.Deps{
		Pages:       browser.NewPage,
		Credentials: creds,
		Locks:       probe.NewLockRegistry(),
		Timings:     probe.DefaultTimings(),
	}
}

func closeTasks(tasks []*usecase.MonitorTask) {
	for _, t := range tasks {
		if err := t.Close(); err != nil {
			slog.Warn("Failed to close probe", "target", t.Name(), "error", err)
		}
	}
}

func logLastTransition(ctx context.Context, repo repository.TransitionRepository, target string) {
	last, err := repo.FindByTarget(ctx, target)
	if err != nil {
		slog.Warn("Failed to load last transition", "target", target, "error", err)
		return
	}
	if last == nil {
		return
	}
	slog.Info("Last recorded transition",
		"target", target,
		"state", last.State.String(),
		"at", last.TransitionedAt.Format(time.RFC3339),
		"message", last.Message)
}
