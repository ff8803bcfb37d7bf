package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/config"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/generator"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/httpx"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/ledger"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/mq"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ingest config error: %v", err)
	}

	catalog := refdata.Default()
	if cfg.RefDataPath != "" {
		catalog, err = refdata.Load(cfg.RefDataPath)
		if err != nil {
			log.Fatalf("ingest refdata error: %v", err)
		}
	}

	productWriter := mq.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicProducts)
	defer productWriter.Close()
	recoveryWriter := mq.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopicRecoveries)
	defer recoveryWriter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "ingest"})
	})

	router.Post("/v1/products", func(w http.ResponseWriter, r *http.Request) {
		var payload contracts.ProductEvent
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		enrichProduct(&payload)
		if err := ledger.ValidateProduct(payload); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		if err := mq.PublishJSON(r.Context(), productWriter, payload.Key(), payload); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.WriteJSON(w, http.StatusAccepted, payload)
	})

	router.Post("/v1/recoveries", func(w http.ResponseWriter, r *http.Request) {
		var payload contracts.RecoveryEvent
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		enrichRecovery(&payload, catalog)
		if err := ledger.ValidateRecovery(payload); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		if err := mq.PublishJSON(r.Context(), recoveryWriter, payload.Key(), payload); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.WriteJSON(w, http.StatusAccepted, payload)
	})

	router.Post("/v1/simulate", func(w http.ResponseWriter, r *http.Request) {
		type req struct {
			Count int     `json:"count"`
			Rate  float64 `json:"rate"`
			Seed  int64   `json:"seed"`
		}
		body := req{Count: 10, Rate: cfg.RecoveryRate, Seed: time.Now().UnixNano()}
		_ = httpx.DecodeJSON(r, &body)

		if body.Count <= 0 {
			body.Count = 10
		}
		if body.Count > 500 {
			body.Count = 500
		}
		if body.Rate < 0 || body.Rate > 1 {
			body.Rate = cfg.RecoveryRate
		}

		gen := generator.New(body.Seed, catalog, time.Now().UTC(), log)
		products := gen.Products(body.Count)
		recoveries := gen.Recoveries(products, body.Rate)

		sentProducts := 0
		for _, p := range products {
			if err := mq.PublishJSON(r.Context(), productWriter, p.Key(), p); err != nil {
				log.Warnf("simulate product publish error: %v", err)
				break
			}
			sentProducts++
		}
		sentRecoveries := 0
		for _, rec := range recoveries {
			if err := mq.PublishJSON(r.Context(), recoveryWriter, rec.Key(), rec); err != nil {
				log.Warnf("simulate recovery publish error: %v", err)
				break
			}
			sentRecoveries++
		}

		httpx.WriteJSON(w, http.StatusAccepted, map[string]any{
			"requested":            body.Count,
			"products_published":   sentProducts,
			"recoveries_published": sentRecoveries,
		})
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

	log.Infof("ingest listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("ingest server error: %v", err)
	}
}

func enrichProduct(p *contracts.ProductEvent) {
	p.ProductID = strings.TrimSpace(p.ProductID)
	if p.ManufacturingDate.IsZero() {
		p.ManufacturingDate = time.Now().UTC()
	}
	if p.Source == "" {
		p.Source = "manufacturing"
	}
}

func enrichRecovery(r *contracts.RecoveryEvent, catalog *refdata.Catalog) {
	r.ProductID = strings.TrimSpace(r.ProductID)
	if r.RecoveryDate.IsZero() {
		r.RecoveryDate = time.Now().UTC()
	}
	if r.RecoveryCenterName == "" {
		if center, ok := catalog.CenterByID(r.RecoveryCenterID); ok {
			r.RecoveryCenterName = center.Name
		}
	}
	if r.Condition == "" {
		r.Condition = contracts.ConditionGood
	}
}
