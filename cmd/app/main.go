package main

import (
	"booking-service/internal/availability"
	"booking-service/internal/config"
	bookingCancel "booking-service/internal/http-server/handlers/bookings/cancel"
	bookingConfirm "booking-service/internal/http-server/handlers/bookings/confirm"
	bookingCreate "booking-service/internal/http-server/handlers/bookings/create"
	bookingGet "booking-service/internal/http-server/handlers/bookings/get"
	bookingReschedule "booking-service/internal/http-server/handlers/bookings/reschedule"
	exceptionCreate "booking-service/internal/http-server/handlers/exceptions/create"
	exceptionDelete "booking-service/internal/http-server/handlers/exceptions/delete"
	exceptionGet "booking-service/internal/http-server/handlers/exceptions/get"
	holdConvert "booking-service/internal/http-server/handlers/holds/convert"
	holdCreate "booking-service/internal/http-server/handlers/holds/create"
	holdGet "booking-service/internal/http-server/handlers/holds/get"
	holdRelease "booking-service/internal/http-server/handlers/holds/release"
	overrideCreate "booking-service/internal/http-server/handlers/overrides/create"
	overrideDelete "booking-service/internal/http-server/handlers/overrides/delete"
	overrideGet "booking-service/internal/http-server/handlers/overrides/get"
	ruleCreate "booking-service/internal/http-server/handlers/rules/create"
	ruleDelete "booking-service/internal/http-server/handlers/rules/delete"
	ruleGet "booking-service/internal/http-server/handlers/rules/get"
	ruleUpdate "booking-service/internal/http-server/handlers/rules/update"
	slotGet "booking-service/internal/http-server/handlers/slots/get"
	"booking-service/internal/lock"
	svc "booking-service/internal/service"
	"booking-service/internal/storage/postgres"
	"booking-service/pkg/logger"
	"booking-service/pkg/middleware/mwLogger"
	"booking-service/pkg/sl"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.MustLoad()

	log := logger.Setup(cfg.Env, os.Stdout)

	log.Info("Starting API", slog.String("env", cfg.Env), slog.String("timezone", cfg.Timezone))
	log.Debug("Debug messages are enabled")

	zone, err := availability.LoadZone(cfg.Timezone)
	if err != nil {
		log.Error("Failed to load timezone", sl.Err(err))
		os.Exit(1)
	}

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	applied, err := storage.Migrate(context.Background())
	if err != nil {
		log.Error("Failed to apply migrations", sl.Err(err))
		os.Exit(1)
	}
	for _, name := range applied {
		log.Info("Migration applied", slog.String("name", name))
	}

	locker, err := lock.NewRedisLock(cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis lock", sl.Err(err))
		os.Exit(1)
	}

	engine := availability.NewEngine(log, storage, zone)
	service := svc.NewService(log, storage, locker, engine, cfg.LockTTL)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	router.Use(CORS)

	// Practitioner schedule
	router.Route("/practitioners/{id}", func(r chi.Router) {
		r.Post("/rules", ruleCreate.New(log, service))
		r.Get("/rules", ruleGet.New(log, service))

		r.Post("/exceptions", exceptionCreate.New(log, service))
		r.Get("/exceptions", exceptionGet.New(log, service))

		r.Post("/overrides", overrideCreate.New(log, service))
		r.Get("/overrides", overrideGet.New(log, service))

		r.Get("/slots", slotGet.New(log, service, zone.Location(), cfg.MaxSlotDays))
	})

	router.Put("/rules/{id}", ruleUpdate.New(log, service))
	router.Delete("/rules/{id}", ruleDelete.New(log, service))
	router.Delete("/exceptions/{id}", exceptionDelete.New(log, service))
	router.Delete("/overrides/{id}", overrideDelete.New(log, service))

	// Bookings
	router.Post("/bookings", bookingCreate.New(log, service))
	router.Get("/bookings/{id}", bookingGet.New(log, service))
	router.Post("/bookings/{id}/confirm", bookingConfirm.New(log, service))
	router.Put("/bookings/{id}/cancel", bookingCancel.New(log, service))
	router.Post("/bookings/{id}/reschedule", bookingReschedule.New(log, service))

	// Holds
	router.Post("/holds", holdCreate.New(log, service))
	router.Get("/holds/{id}", holdGet.New(log, service))
	router.Post("/holds/{id}/release", holdRelease.New(log, service))
	router.Post("/holds/{id}/convert", holdConvert.New(log, service))

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	if err := serv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := locker.Close(); err != nil {
		log.Error("Failed to close locker", sl.Err(err))
	} else {
		log.Info("Locker closed")
	}

	log.Info("Shutdown finished, server stopped")
}
