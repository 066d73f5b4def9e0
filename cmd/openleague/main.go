package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/openleague/openleague/cmd/openleague/cli"
	"github.com/openleague/openleague/internal/app"
	"github.com/openleague/openleague/internal/auth"
	"github.com/openleague/openleague/internal/authz"
	"github.com/openleague/openleague/internal/brackets"
	"github.com/openleague/openleague/internal/divisions"
	"github.com/openleague/openleague/internal/games"
	"github.com/openleague/openleague/internal/leagues"
	"github.com/openleague/openleague/internal/observability"
	"github.com/openleague/openleague/internal/platform/cache"
	"github.com/openleague/openleague/internal/platform/db"
	"github.com/openleague/openleague/internal/seasons"
	"github.com/openleague/openleague/internal/shared"
	"github.com/openleague/openleague/internal/standings"
	"github.com/openleague/openleague/internal/teams"
	"github.com/openleague/openleague/internal/users"
	"github.com/openleague/openleague/jobs"
	"github.com/openleague/openleague/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCLI(os.Args[2:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "openleague_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	metrics := observability.NewMetrics()

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	locks := shared.NewMutex(redisClient, 2*time.Minute)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	authzService := authz.NewService(dbpool)
	authzMiddleware := authz.Middleware{
		Source:  authzService,
		Logger:  logger,
		Metrics: authz.NewMetrics(metrics.Registerer()),
	}
	authzHandler := authz.NewHandler(logger, authzService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, authzMiddleware)

	leaguesRepo := leagues.NewRepository(dbpool)
	leaguesService := leagues.NewService(leaguesRepo, auditLogger)
	leaguesHandler := leagues.NewHandler(logger, leaguesService, authzMiddleware)

	seasonsRepo := seasons.NewRepository(dbpool)
	seasonsService := seasons.NewService(seasonsRepo, auditLogger)
	seasonsHandler := seasons.NewHandler(logger, seasonsService, authzMiddleware)

	divisionsRepo := divisions.NewRepository(dbpool)
	divisionsService := divisions.NewService(divisionsRepo, auditLogger)
	divisionsHandler := divisions.NewHandler(logger, divisionsService, authzMiddleware)

	teamsRepo := teams.NewRepository(dbpool)
	teamsService := teams.NewService(teamsRepo, divisionsService, seasonsService, usersRepo, approvalRecorder, auditLogger, cfg.InviteTTL)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	teamsHandler := teams.NewHandler(logger, teamsService, authzMiddleware, jobsClient)

	gamesRepo := games.NewRepository(dbpool)

	// Standings read games through the repository; the games service turns
	// around and invalidates standings on score submission.
	standingsCache := standings.NewCache(redisClient, 10*time.Minute)
	standingsService := standings.NewService(gamesRepo, teamsService, divisionsService, standingsCache)
	if err := standingsService.ListenForInvalidation(ctx); err != nil {
		logger.Warn("standings invalidation listener", slog.Any("error", err))
	}
	standingsHandler := standings.NewHandler(logger, standingsService, authzMiddleware)

	gamesService := games.NewService(gamesRepo, teamsService, divisionsService, seasonsService, usersService, standingsService, auditLogger, idempotencyStore, locks)
	gamesHandler := games.NewHandler(logger, gamesService, authzMiddleware)

	bracketsRepo := brackets.NewRepository(dbpool)
	bracketsService := brackets.NewService(bracketsRepo, standingsService, gamesService, auditLogger, locks)
	bracketsHandler := brackets.NewHandler(logger, bracketsService, authzMiddleware)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler, err := report.NewHandler(logger, reportClient, standingsService, gamesService, teamsService, divisionsService, seasonsService, authzMiddleware)
	if err != nil {
		logger.Error("init report handler", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		AuthzHandler:     authzHandler,
		UsersHandler:     usersHandler,
		LeaguesHandler:   leaguesHandler,
		SeasonsHandler:   seasonsHandler,
		DivisionsHandler: divisionsHandler,
		TeamsHandler:     teamsHandler,
		GamesHandler:     gamesHandler,
		StandingsHandler: standingsHandler,
		BracketsHandler:  bracketsHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCLI serves `openleague jobs ...` subcommands without booting the
// http runtime. It only needs Redis, so operators can poke the queue while
// the API is down.
func runJobsCLI(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: openleague jobs <trigger|stats|scheduled> [task]")
		return 2
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	jobsCLI := cli.NewJobsCLI(addr)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}()

	ctx := context.Background()
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: openleague jobs trigger <task>")
			fmt.Fprintln(os.Stderr, "tasks: "+strings.Join(cli.SupportedTasks(), ", "))
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		tasks, err := jobsCLI.ListScheduled(ctx, 10)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if len(tasks) == 0 {
			fmt.Println("no scheduled tasks")
			return 0
		}
		for _, task := range tasks {
			fmt.Printf("%s id=%s next=%s\n", task.Type, task.ID, task.NextProcessAt.Format(time.RFC3339))
		}
	default:
		fmt.Fprintln(os.Stderr, "usage: openleague jobs <trigger|stats|scheduled> [task]")
		return 2
	}
	return 0
}
