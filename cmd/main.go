// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ticketgate/ticketgate/internal/auth"
	"github.com/ticketgate/ticketgate/internal/clock"
	"github.com/ticketgate/ticketgate/internal/config"
	"github.com/ticketgate/ticketgate/internal/database"
	"github.com/ticketgate/ticketgate/internal/handler"
	"github.com/ticketgate/ticketgate/internal/logger"
	"github.com/ticketgate/ticketgate/internal/model"
	"github.com/ticketgate/ticketgate/internal/repository"
	"github.com/ticketgate/ticketgate/internal/service"
	"github.com/ticketgate/ticketgate/migrations"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.App.Environment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		zlog.Fatal("database", zap.Error(err))
	}
	defer pool.Close()
	zlog.Info("connected to postgres", zap.String("dbname", cfg.Database.DBName))

	if err := migrations.Apply(ctx, pool); err != nil {
		zlog.Fatal("migrations", zap.Error(err))
	}

	// Repositories and services.
	eventRepo := repository.NewEventRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	clk := clock.NewSystem()
	eventSvc := service.NewEventService(eventRepo, zlog)
	bookingSvc := service.NewBookingService(bookingRepo, eventRepo, userRepo, clk, zlog)
	verifySvc := service.NewVerificationService(bookingRepo, eventRepo, clk, zlog)
	adminSvc := service.NewAdminService(adminRepo, userRepo, zlog)

	eventHandler := handler.NewEventHandler(eventSvc, zlog)
	bookingHandler := handler.NewBookingHandler(bookingSvc, verifySvc, zlog)
	adminHandler := handler.NewAdminHandler(adminSvc, zlog)

	authenticate := handler.Authenticate(auth.NewTokenParser(cfg.Auth.JWTSecret))

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger(zlog))
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)

	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", eventHandler.List)
		r.Get("/{id}", eventHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.With(handler.RequireRole(model.RoleOrganizer)).Post("/", eventHandler.Create)
			r.With(handler.RequireRole(model.RoleOrganizer, model.RoleAdmin)).Put("/{id}", eventHandler.Update)
			r.With(handler.RequireRole(model.RoleOrganizer, model.RoleAdmin)).Delete("/{id}", eventHandler.Delete)
		})
	})

	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/", bookingHandler.Create)
		r.Get("/", bookingHandler.List)
		r.Delete("/{id}", bookingHandler.Cancel)
		r.With(handler.RequireRole(model.RoleOrganizer, model.RoleAdmin)).Post("/manual", bookingHandler.AddAttendee)
		r.With(handler.RequireRole(model.RoleOrganizer, model.RoleAdmin)).Post("/verify", bookingHandler.Verify)
		r.With(handler.RequireRole(model.RoleAdmin)).Get("/all", bookingHandler.ListAll)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(authenticate)
		r.With(handler.RequireRole(model.RoleAdmin)).Get("/", adminHandler.ListUsers)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(handler.RequireRole(model.RoleAdmin))
		r.Delete("/clear-events", adminHandler.ClearEvents)
		r.Delete("/clear-users", adminHandler.ClearUsers)
		r.Delete("/clear-organizers", adminHandler.ClearOrganizers)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Run in a background goroutine so we can listen for the shutdown signal.
	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal("graceful shutdown failed", zap.Error(err))
	}
	zlog.Info("server stopped")
}
