package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"deadline-tracker/internal/config"
	"deadline-tracker/internal/db"
	apihttp "deadline-tracker/internal/http"
	"deadline-tracker/internal/notify"
	"deadline-tracker/internal/repository"
	"deadline-tracker/internal/service"
	"deadline-tracker/internal/sms"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	deadlineRepo := repository.NewPgDeadlineRepository(pool)

	var (
		tokenStore  service.RefreshTokenStore
		marker      notify.Marker
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			marker = notify.NewRedisMarker(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	smsSender := sms.NewDisabledSender("sms sender not configured")
	if cfg.SMSAccountSID != "" {
		sender, err := sms.NewGatewaySender(cfg.SMSBaseURL, cfg.SMSAccountSID, cfg.SMSAuthToken, cfg.SMSFromNumber)
		if err != nil {
			logger.Warn("sms sender init failed", zap.Error(err))
		} else {
			smsSender = sender
		}
	}

	userSvc := service.NewUserService(logger, userRepo)
	deadlineSvc := service.NewDeadlineService(logger, deadlineRepo, userRepo)
	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	deadlineHandler := apihttp.NewDeadlineHandler(logger, deadlineSvc)
	router := apihttp.NewRouter(logger, userHandler, deadlineHandler, jwtSvc, pool)

	if !cfg.SweepNotifyOnce {
		// Comportamiento historico: re-notifica en cada tick dentro de la ventana.
		marker = nil
	} else if marker == nil {
		marker = notify.NewMemoryMarker()
	}
	sweeper := notify.New(logger, deadlineRepo, userRepo, smsSender, marker, cfg.SweepInterval)
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
