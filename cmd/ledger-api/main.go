package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/config"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/httpx"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ledger-api config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ledger-api database error: %v", err)
	}
	defer dbPool.Close()

	if err := storage.RunMigrations(ctx, dbPool); err != nil {
		log.Fatalf("ledger-api migration error: %v", err)
	}

	repo := storage.NewRepository(dbPool)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(15 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "ledger-api"})
	})

	router.Get("/v1/ledger", func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		manufacturer := r.URL.Query().Get("manufacturer_id")
		limit := parseLimit(r.URL.Query().Get("limit"), 200)

		rows, err := repo.ListLedger(r.Context(), status, manufacturer, limit)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": rows})
	})

	router.Get("/v1/alerts", func(w http.ResponseWriter, r *http.Request) {
		alertType := r.URL.Query().Get("type")
		severity := r.URL.Query().Get("severity")
		limit := parseLimit(r.URL.Query().Get("limit"), 100)

		alerts, err := repo.ListAlerts(r.Context(), alertType, severity, limit)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": alerts})
	})

	router.Get("/v1/compliance", func(w http.ResponseWriter, r *http.Request) {
		reports, err := repo.ComplianceByManufacturer(r.Context())
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"target": cfg.ComplianceTarget,
			"items":  reports,
		})
	})

	router.Get("/v1/dashboard/summary", func(w http.ResponseWriter, r *http.Request) {
		summary, err := repo.DashboardSummary(r.Context())
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, summary)
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infof("ledger-api listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("ledger-api server error: %v", err)
	}
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
