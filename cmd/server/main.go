package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "survey-insights/docs"
	"survey-insights/internal/cache"
	"survey-insights/internal/config"
	"survey-insights/internal/domain/response"
	"survey-insights/internal/domain/stats"
	"survey-insights/internal/domain/survey"
	"survey-insights/internal/domain/user"
	api "survey-insights/internal/http"
	"survey-insights/internal/metrics"
	"survey-insights/internal/platform/blob"
	"survey-insights/internal/platform/database"
	jwtpkg "survey-insights/internal/platform/jwt"
	"survey-insights/internal/platform/logger"
	"survey-insights/internal/repository/postgres"
	"survey-insights/internal/worker"
)

// @title           Survey Insights API
// @version         1.0
// @description     Surveys with typed answer validation and post-close statistics
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.DB_DSN)
	if err != nil {
		lg.Fatal("db connect error", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		lg.Fatal("migration error", zap.Error(err))
	}

	store, err := blob.New(ctx, cfg.Storage)
	if err != nil {
		lg.Fatal("storage error", zap.Error(err), zap.String("type", cfg.Storage.Type))
	}

	// Statistics run uncached when redis is not configured or unreachable.
	var (
		reportCache stats.Cache
		invalidator worker.Invalidator
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Warn("redis unavailable, report cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer rdb.Close()
			rc := cache.NewReportCache(rdb, cfg.Redis.TTL)
			reportCache, invalidator = rc, rc
		}
	}

	metrics.Register()

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer)

	userRepo := postgres.NewUserRepo(db)
	surveyRepo := postgres.NewSurveyRepo(db)
	responseRepo := postgres.NewResponseRepo(db)
	statsRepo := postgres.NewStatsRepo(db)

	userSvc := user.NewService(userRepo, jwtMgr, nil, user.Options{EmailVerification: cfg.EmailVerification}, lg)
	surveySvc := survey.NewService(surveyRepo, lg)
	responseSvc := response.NewService(responseRepo, surveyRepo, store, blob.NewKeyedMutex(), lg)
	statsSvc := stats.NewService(statsRepo, reportCache, lg)

	events := worker.NewSurveyWorker(100, invalidator, lg)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		events.Run(ctx)
	}()

	router := api.NewRouter(api.Deps{
		Users:        userSvc,
		Surveys:      surveySvc,
		Responses:    responseSvc,
		Stats:        statsSvc,
		JWT:          jwtMgr,
		TokenTTL:     cfg.TokenTTL,
		StatsTimeout: cfg.StatsTimeout,
		Events:       events,
		DB:           db,
		Log:          lg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("server shutdown error", zap.Error(err))
	}
	<-workerDone

	lg.Info("server stopped")
}
