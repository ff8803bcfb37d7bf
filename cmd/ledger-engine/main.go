package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/config"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/ledger"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/mq"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/storage"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ledger-engine config error: %v", err)
	}

	catalog := refdata.Default()
	if cfg.RefDataPath != "" {
		catalog, err = refdata.Load(cfg.RefDataPath)
		if err != nil {
			log.Fatalf("ledger-engine refdata error: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("ledger-engine database error: %v", err)
	}
	defer dbPool.Close()

	if err := storage.RunMigrations(ctx, dbPool); err != nil {
		log.Fatalf("ledger-engine migration error: %v", err)
	}
	repo := storage.NewRepository(dbPool)

	engine := ledger.NewEngine(ledger.Params{
		LeakageThreshold:   cfg.LeakageThreshold,
		ComplianceTarget:   cfg.ComplianceTarget,
		RollupWindow:       cfg.RollupWindow,
		DedupLeakageAlerts: cfg.AlertDedupPerProduct,
	}, catalog, log)

	// Coalesced re-evaluation trigger: any arrival marks the ledger dirty,
	// the evaluation loop drains the mark.
	dirty := make(chan struct{}, 1)
	markDirty := func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	}

	productReader := mq.NewReader(cfg.KafkaBrokers, cfg.KafkaTopicProducts, cfg.ConsumerGroupPrefix+"-ledger-engine")
	defer productReader.Close()
	recoveryReader := mq.NewReader(cfg.KafkaBrokers, cfg.KafkaTopicRecoveries, cfg.ConsumerGroupPrefix+"-ledger-engine")
	defer recoveryReader.Close()

	go consume(ctx, log, productReader, func(msg kafka.Message) {
		event, err := mq.ParseMessageJSON[contracts.ProductEvent](msg)
		if err != nil {
			log.Warnf("ledger-engine decode product error: %v", err)
			return
		}
		if err := engine.AddProduct(event); err != nil {
			log.Warnf("ledger-engine rejected product: %v", err)
			return
		}
		markDirty()
	})

	go consume(ctx, log, recoveryReader, func(msg kafka.Message) {
		event, err := mq.ParseMessageJSON[contracts.RecoveryEvent](msg)
		if err != nil {
			log.Warnf("ledger-engine decode recovery error: %v", err)
			return
		}
		if err := engine.AddRecovery(event); err != nil {
			log.Warnf("ledger-engine rejected recovery: %v", err)
			return
		}
		markDirty()
	})

	log.Infof("ledger-engine consuming %s and %s", cfg.KafkaTopicProducts, cfg.KafkaTopicRecoveries)

	for {
		select {
		case <-ctx.Done():
			log.Info("ledger-engine shutting down")
			return
		case <-dirty:
		}

		snapshot := engine.Snapshot(time.Now().UTC())

		stored, err := repo.UpsertLedgerRows(ctx, snapshot.Ledger, snapshot.EvaluatedAt)
		if err != nil {
			log.Warnf("ledger-engine store ledger error: %v", err)
		}

		alerts := append(snapshot.LeakageAlerts, snapshot.ComplianceAlerts...)
		storedAlerts, err := repo.InsertAlerts(ctx, alerts)
		if err != nil {
			log.Warnf("ledger-engine store alerts error: %v", err)
		}

		log.WithFields(logrus.Fields{
			"ledger_rows":  stored,
			"alerts":       storedAlerts,
			"rollup_stats": len(snapshot.RegionalRollups),
			"warnings":     len(snapshot.Warnings),
			"evaluated_at": snapshot.EvaluatedAt.Format(time.RFC3339),
		}).Info("evaluation persisted")
	}
}

func consume(ctx context.Context, log *logrus.Logger, reader *kafka.Reader, handle func(kafka.Message)) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warnf("ledger-engine read error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		handle(msg)
	}
}
