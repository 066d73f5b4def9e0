package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openleague/openleague/internal/app"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/mail"
	"github.com/openleague/openleague/internal/platform/cache"
	"github.com/openleague/openleague/internal/platform/db"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/standings"
	"github.com/openleague/openleague/internal/teams"
	"github.com/openleague/openleague/internal/users"
	"github.com/openleague/openleague/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	seasonsRepo := seasons.NewRepository(pool)
	seasonsService := seasons.NewService(seasonsRepo, auditLogger)
	divisionsRepo := divisions.NewRepository(pool)
	divisionsService := divisions.NewService(divisionsRepo, auditLogger)
	teamsRepo := teams.NewRepository(pool)
	teamsService := teams.NewService(teamsRepo, divisionsService, seasonsService, usersRepo, approvalRecorder, auditLogger, cfg.InviteTTL)

	mailer, err := mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, logger)
	if err != nil {
		logger.Error("init mail sender", slog.Any("error", err))
		os.Exit(1)
	}

	inviteJob := teams.NewInviteJob(teamsService, mailer, cfg.AppBaseURL, logger)

	gamesRepo := games.NewRepository(pool)
	standingsCache := standings.NewCache(redisClient, 10*time.Minute)
	standingsService := standings.NewService(gamesRepo, teamsService, divisionsService, standingsCache)

	// The worker never submits scores or reshapes schedules, so the games
	// service runs without the idempotency and lock hookups the API wires in.
	gamesService := games.NewService(gamesRepo, teamsService, divisionsService, seasonsService, usersService, standingsService, auditLogger, nil, nil)
	reminderJob := games.NewReminderJob(gamesService, teamsService, mailer, logger)

	refreshJob := jobs.NewStandingsRefreshJob(divisionsRepo, standingsService, logger, nil)
	cleanupJob := jobs.NewCleanupJob(teamsRepo, idempotencyStore, logger, nil)

	remindersTask := jobs.NewGameRemindersTask()
	refreshTask, err := jobs.NewStandingsRefreshTask(0)
	if err != nil {
		logger.Error("build standings refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewCleanupTask(30)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTeamInvite, Handler: inviteJob.Handle},
			{Type: jobs.TaskGameReminders, Handler: reminderJob.Handle},
			{Type: jobs.TaskStandingsRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskMaintenanceCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: remindersTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 4 * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * 0", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Job counters land on the default registry; expose them on a side port
	// so the JobFailures alert has something to scrape.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metricsMux}
	go func() {
		logger.Info("starting metrics server", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", slog.Any("error", err))
		}
	}()

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
