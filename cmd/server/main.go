package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/api/swagger"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/dashboard"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/handler"
	internalmiddleware "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/middleware"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/repository"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/service"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/internal/session"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/cache"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/config"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/database"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/logger"
	corsmiddleware "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/middleware/cors"
	reqidmiddleware "github.com/kajamohaidheen03/supabase-employee-Management-System-portal/pkg/middleware/requestid"
	"github.com/kajamohaidheen03/supabase-employee-Management-System-portal/web"
)

const sessionPurgeInterval = time.Hour

// @title Employee Attendance API
// @version 1.0.0
// @description Attendance dashboard backend: employees, attendance records and sessions
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	group, ctx := errgroup.WithContext(ctx)

	broker := newSessionBroker(cfg, redisClient, logr)
	if relay, ok := broker.(*session.RedisBroker); ok {
		group.Go(func() error { return relay.Run(ctx) })
	}

	validate := validator.New()
	authSvc := service.NewAuthService(repository.NewSessionRepository(db), broker, validate, logr.Named("auth"), metrics, service.AuthConfig{
		Secret: cfg.Session.Secret,
		Expiry: cfg.Session.Expiration,
		Issuer: cfg.Session.Issuer,
	})
	identity := service.NewGitHubIdentityProvider(cfg.OAuth, logr.Named("github"))

	var queryCache service.QueryCache
	if cfg.Cache.Enabled && redisClient != nil {
		queryCache = service.NewCacheService(repository.NewCacheRepository(redisClient, "attendance-dashboard"), metrics, cfg.Cache.TTL, logr.Named("cache"), true)
	}
	attendanceSvc := service.NewAttendanceService(
		repository.NewEmployeeRepository(db),
		repository.NewAttendanceRepository(db),
		queryCache,
		validate,
		logr.Named("attendance"),
		metrics,
	)
	exportSvc := service.NewExportService(attendanceSvc, logr.Named("export"), nil, nil, nil)

	templates, err := web.Templates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	cookies := handler.CookieConfig{SessionName: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}

	authHandler := handler.NewAuthHandler(authSvc, identity, cookies, logr.Named("auth"),
		handler.WithPublicBaseURL(cfg.PublicBaseURL),
		handler.WithTrustedProxies(cfg.TrustedProxies),
	)

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.SetHTMLTemplate(templates)

	handler.RegisterRoutes(r, handler.Routes{
		Auth:       authHandler,
		Dashboard:  handler.NewDashboardHandler(dashboard.NewViewModel(attendanceSvc, logr.Named("dashboard")), cookies),
		Attendance: handler.NewAttendanceHandler(attendanceSvc, exportSvc),
		Metrics:    handler.NewMetricsHandler(metrics, db),
		Provider:   authSvc,
		Cookies:    cookies,
		APIPrefix:  cfg.APIPrefix,
		Logger:     logr.Named("guard"),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(authHandler.CloseStreams)

	group.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logr.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Warn("graceful shutdown incomplete, closing connections", zap.Error(err))
			_ = srv.Close()
		}
		return nil
	})
	group.Go(func() error {
		purgeSessions(ctx, authSvc, logr)
		return nil
	})

	return group.Wait()
}

func newSessionBroker(cfg *config.Config, client *redis.Client, logr *zap.Logger) session.Broker {
	if cfg.Session.EventsOverRedis && client != nil {
		return session.NewRedisBroker(client, session.DefaultChannel, logr.Named("session-events"))
	}
	return session.NewLocalBroker()
}

func purgeSessions(ctx context.Context, authSvc *service.AuthService, logr *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authSvc.PurgeExpired(ctx)
			if err != nil {
				logr.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logr.Info("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}
