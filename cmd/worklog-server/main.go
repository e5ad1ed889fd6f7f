package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/worklog/worklog-backend/internal/worklog/calendar"
	"github.com/worklog/worklog-backend/internal/worklog/handler"
	"github.com/worklog/worklog-backend/internal/worklog/repository"
	"github.com/worklog/worklog-backend/internal/worklog/service"
	"github.com/worklog/worklog-backend/pkg/config"
	"github.com/worklog/worklog-backend/pkg/database"
	"github.com/worklog/worklog-backend/pkg/httputil"
	"github.com/worklog/worklog-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("worklog-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("worklog-server", cfg.Server.Environment)
	log.Info().Msg("starting Worklog Server")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	entryRepo := repository.NewEntryRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)

	// Initialize services
	classifier := calendar.NewClassifier(calendarRepo)
	entryService := service.NewEntryService(entryRepo, catalogRepo, leaveRepo, classifier, log)
	bulkService := service.NewBulkService(entryRepo, catalogRepo, leaveRepo, classifier, log)
	calendarService := service.NewCalendarService(calendarRepo, log)

	// Initialize handlers
	entryHandler := handler.NewEntryHandler(entryService, log)
	approvalHandler := handler.NewApprovalHandler(entryService, log)
	bulkHandler := handler.NewBulkHandler(bulkService, log)
	calendarHandler := handler.NewCalendarHandler(calendarService, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-User-Role", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.Identity) // Identity middleware with /health exception

	// Health check (no identity required - handled by middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "worklog-server",
			"database": db.Health(r.Context()),
		})
	})

	// API routes (identity required)
	r.Route("/api/v1/worklog", func(r chi.Router) {
		// Employee entry routes
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", entryHandler.List)
			r.Post("/", entryHandler.Create)
			r.Get("/{id}", entryHandler.Get)
			r.Put("/{id}", entryHandler.Update)
			r.Delete("/{id}", entryHandler.Delete)
			r.Post("/{id}/submit", entryHandler.Submit)
			r.Post("/{id}/deletion-request", entryHandler.RequestDeletion)
			r.Delete("/{id}/deletion-request", entryHandler.CancelDeletion)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(httputil.RequireAdmin)

			r.Route("/approvals", func(r chi.Router) {
				r.Get("/", approvalHandler.ListPending)
				r.Post("/{id}/approve", approvalHandler.Approve)
				r.Post("/{id}/reject", approvalHandler.Reject)
			})

			r.Route("/deletion-requests", func(r chi.Router) {
				r.Get("/", approvalHandler.ListDeletionRequests)
				r.Post("/{id}/approve", approvalHandler.ApproveDeletion)
				r.Post("/{id}/reject", approvalHandler.RejectDeletion)
			})

			r.Route("/entries", func(r chi.Router) {
				r.Put("/{id}", approvalHandler.OverrideUpdate)
				r.Delete("/{id}", approvalHandler.OverrideDelete)
			})

			r.Post("/bulk-upload", bulkHandler.Upload)

			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", calendarHandler.ListHolidays)
				r.Post("/", calendarHandler.CreateHoliday)
				r.Delete("/{id}", calendarHandler.DeleteHoliday)
			})

			r.Route("/working-saturdays", func(r chi.Router) {
				r.Get("/", calendarHandler.ListWorkingSaturdays)
				r.Post("/", calendarHandler.CreateWorkingSaturday)
				r.Delete("/{id}", calendarHandler.DeleteWorkingSaturday)
			})
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
