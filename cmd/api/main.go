package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"tjanster-backend/internal/admin"
	"tjanster-backend/internal/auth"
	"tjanster-backend/internal/availability"
	"tjanster-backend/internal/blocks"
	"tjanster-backend/internal/booking"
	"tjanster-backend/internal/cache"
	"tjanster-backend/internal/catalog"
	"tjanster-backend/internal/config"
	"tjanster-backend/internal/db"
	"tjanster-backend/internal/middleware"
	"tjanster-backend/internal/notifications"
	"tjanster-backend/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected", slog.String("addr", cfg.RedisAddr))
		cacheStore = redisCache
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "tjanster-backend",
		}
	}

	brevo := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	if brevo == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	}

	val := validation.New()

	blocksRepo := blocks.NewRepository(cols.BlockedSlots)
	blocksService := blocks.NewService(blocksRepo, cfg.Timezone)
	blocksHandler := blocks.NewHandler(blocksService, val, logger, cacheStore)

	bookingRepo := booking.NewRepository(cols.Bookings)
	var notifier booking.Notifier
	if mailer := notifications.NewBookingMailer(brevo); mailer != nil {
		notifier = mailer
	}
	bookingService := booking.NewService(bookingRepo, blocksService, notifier, cfg.Timezone)
	bookingHandler := booking.NewHandler(bookingService, logger, cacheStore)

	availabilityService := availability.NewService(bookingRepo, blocksService, logger, cfg.Timezone)
	availabilityHandler := availability.NewHandler(availabilityService, logger, cacheStore, val, cfg.Timezone.String(), time.Duration(cfg.CacheTTLSeconds)*time.Second)

	catalogHandler := catalog.NewHandler(logger)

	adminRepo := admin.NewRepository(cols.Users)
	adminHandler := admin.NewHandler(adminRepo, jwtManager, logger, val, cfg.CookieSecure, cfg.Timezone)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookingsLimiter := middleware.NewRateLimiter(cfg.RateLimitBookings, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r.Route("/api", func(api chi.Router) {
		api.Get("/services", catalogHandler.List)
		api.Get("/availability", availabilityHandler.Slots)
		api.With(bookingsLimiter.Middleware).Post("/bookings", bookingHandler.Create)
		api.Get("/bookings/{id}", bookingHandler.Get)

		api.Route("/admin", func(adminRouter chi.Router) {
			adminRouter.Post("/login", adminHandler.Login)
			adminRouter.Post("/refresh", adminHandler.Refresh)
			adminRouter.Post("/logout", adminHandler.Logout)

			// Middlewares must be attached before routes in chi, so the
			// protected surface lives on a sub-router.
			adminRouter.Group(func(protected chi.Router) {
				protected.Use(middleware.AdminAuth(cfg.AdminAPIKey, jwtManager))
				protected.Get("/calendar", availabilityHandler.Calendar)
				protected.Get("/bookings", bookingHandler.AdminList)
				protected.Patch("/bookings/{id}/approve", bookingHandler.Approve)
				protected.Patch("/bookings/{id}/decline", bookingHandler.Decline)
				protected.Put("/bookings/{id}", bookingHandler.Edit)
				protected.Delete("/bookings/{id}", bookingHandler.Delete)
				protected.Get("/blocks", blocksHandler.List)
				protected.Post("/blocks", blocksHandler.Create)
				protected.Put("/blocks/{id}", blocksHandler.Update)
				protected.Delete("/blocks/{id}", blocksHandler.Delete)
				protected.Post("/users", adminHandler.CreateUser)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
