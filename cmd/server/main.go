package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/auth"
	"github.com/SanketOodles/wa-automation-backend/internal/config"
	"github.com/SanketOodles/wa-automation-backend/internal/database"
	"github.com/SanketOodles/wa-automation-backend/internal/handler"
	"github.com/SanketOodles/wa-automation-backend/internal/httputil"
	"github.com/SanketOodles/wa-automation-backend/internal/jobs"
	"github.com/SanketOodles/wa-automation-backend/internal/metrics"
	"github.com/SanketOodles/wa-automation-backend/internal/middleware"
	"github.com/SanketOodles/wa-automation-backend/internal/pairing"
	"github.com/SanketOodles/wa-automation-backend/internal/redis"
	"github.com/SanketOodles/wa-automation-backend/internal/repository"
	"github.com/SanketOodles/wa-automation-backend/internal/service"
	"github.com/SanketOodles/wa-automation-backend/internal/sse"
	"github.com/SanketOodles/wa-automation-backend/internal/waclient"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.DefaultContextLogger = &log.Logger

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := cfg.IsProduction()
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	if cfg.RunMigrations {
		if err := db.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	accountRepo := repository.NewAccountRepository(db.DB)
	organisationRepo := repository.NewOrganisationRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	registry := pairing.NewRegistry()
	pairingService := service.NewPairingService(
		registry,
		waclient.NewDialer(cfg.BridgeURL, config.BridgeDialTimeout),
		pairing.NewWaiter(cfg.QRMaxAttempts, cfg.QRPollInterval()),
		accountRepo,
		service.NewPairingEvents(broker),
		service.PairingConfig{
			DefaultOrgID:     cfg.DefaultOrgID,
			DefaultLocation:  cfg.DefaultLocation,
			DialTimeout:      config.BridgeDialTimeout,
			TeardownTimeout:  config.BridgeTeardownTimeout,
			ReconcileTimeout: config.ReconcileTimeout,
		},
	)
	accountService := service.NewAccountService(accountRepo, pairingService)
	organisationService := service.NewOrganisationService(organisationRepo, userRepo)
	roleService := service.NewRoleService(roleRepo)
	userService := service.NewUserService(db, userRepo, roleRepo)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL())
	authService := service.NewAuthService(userService, userRepo, tokens)

	authMiddleware := middleware.NewAuthMiddleware(tokens, userRepo)
	adminMiddleware := middleware.NewAdminMiddleware(userRepo)
	pairRateLimit := middleware.NewIPRateLimitMiddleware(
		service.NewRateLimiter(redisClient.Client), cfg.PairRateLimitPerMin, config.PairRateLimitWindow, "pair",
	)
	loginRateLimit := middleware.NewRateLimitMiddleware(config.LoginRateLimitPerMin, config.LoginRateLimitWindow)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	guards := handler.Guards{
		Authenticated: []func(http.Handler) http.Handler{authMiddleware.Handler},
		Admin:         []func(http.Handler) http.Handler{adminMiddleware.Handler},
	}

	authHandler := handler.NewAuthHandler(authService, loginRateLimit.Handler)
	pairingHandler := handler.NewPairingHandler(pairingService, pairRateLimit.Handler)
	eventsHandler := handler.NewEventsHandler(broker)
	accountHandler := handler.NewAccountHandler(accountService)
	organisationHandler := handler.NewOrganisationHandler(organisationService, guards)
	roleHandler := handler.NewRoleHandler(roleService, guards)
	userHandler := handler.NewUserHandler(userService, roleService, guards)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(metrics.HTTPMetricsMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("health check: database unreachable")
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httputil.WriteJSON(w, code, map[string]any{
			"status":       status,
			"timestamp":    time.Now().UnixMilli(),
			"liveSessions": registry.Len(),
			"sseClients":   broker.TotalClients(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Streams outlive the request timeout.
	r.With(authMiddleware.Optional).Get("/api/auths/pair/events", eventsHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(bodyLimitMiddleware.Handler)

		r.Mount("/api/auth", authHandler.Routes())

		r.Route("/api/auths", func(r chi.Router) {
			r.Use(authMiddleware.Optional)
			r.Mount("/", pairingHandler.Routes())
		})

		r.Route("/api/accounts", func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Mount("/", accountHandler.Routes())
		})

		r.Mount("/api/organisations", organisationHandler.Routes())
		r.Mount("/api/roles", roleHandler.Routes())
		r.Mount("/api/users", userHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(pairingService, accountRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Int("liveSessions", registry.Len()).Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
