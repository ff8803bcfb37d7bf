package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/config"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/generator"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/mq"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/tabio"
)

const streamSliceSize = 100

type hotspot struct {
	City         string  `json:"city"`
	RecoveryRate float64 `json:"recovery_rate"`
	Alert        string  `json:"alert"`
}

// demoHotspots is the fixed leakage-hotspot sample shipped alongside the
// generated dataset for the dashboard map.
var demoHotspots = []hotspot{
	{City: "Delhi", RecoveryRate: 0.45, Alert: "Critical leakage in North Delhi"},
	{City: "Mumbai", RecoveryRate: 0.58, Alert: "Moderate leakage in Dharavi"},
	{City: "Bengaluru", RecoveryRate: 0.72, Alert: "Good recovery in Whitefield"},
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("generate config error: %v", err)
	}

	count := flag.Int("count", cfg.RecordCount, "number of product events to generate")
	rate := flag.Float64("rate", cfg.RecoveryRate, "recovery probability per product")
	seed := flag.Int64("seed", cfg.Seed, "random seed")
	outDir := flag.String("out", cfg.DataDir, "output directory")
	stream := flag.Bool("stream", false, "also publish the live slice to kafka")
	flag.Parse()

	if *rate < 0 || *rate > 1 {
		log.Fatalf("generate config error: rate must be in [0,1], got %v", *rate)
	}

	catalog := refdata.Default()
	if cfg.RefDataPath != "" {
		catalog, err = refdata.Load(cfg.RefDataPath)
		if err != nil {
			log.Fatalf("generate refdata error: %v", err)
		}
	}

	gen := generator.New(*seed, catalog, time.Now().UTC(), log)

	products := gen.Products(*count)
	recoveries := gen.Recoveries(products, *rate)
	slice := gen.StreamSlice(products, streamSliceSize)

	liveDir := filepath.Join(*outDir, "live")
	if err := os.MkdirAll(liveDir, 0o755); err != nil {
		log.Fatalf("generate mkdir error: %v", err)
	}

	if err := writeCSV(filepath.Join(*outDir, "factory_output.csv"), products, tabio.WriteProducts); err != nil {
		log.Fatalf("generate write error: %v", err)
	}
	if err := writeCSV(filepath.Join(*outDir, "return_logs.csv"), recoveries, tabio.WriteRecoveries); err != nil {
		log.Fatalf("generate write error: %v", err)
	}
	if err := writeCSV(filepath.Join(liveDir, "new_products.csv"), slice, tabio.WriteProducts); err != nil {
		log.Fatalf("generate write error: %v", err)
	}
	if err := writeCSV(filepath.Join(liveDir, "stream.jsonl"), slice, tabio.WriteJSONLines[contracts.ProductEvent]); err != nil {
		log.Fatalf("generate write error: %v", err)
	}
	if err := writeHotspots(filepath.Join(*outDir, "hotspots.json")); err != nil {
		log.Fatalf("generate write error: %v", err)
	}

	observedRate := 0.0
	if len(products) > 0 {
		observedRate = float64(len(recoveries)) / float64(len(products)) * 100
	}
	log.WithFields(logrus.Fields{
		"products":   len(products),
		"recoveries": len(recoveries),
		"rate":       fmt.Sprintf("%.1f%%", observedRate),
		"out":        *outDir,
	}).Info("generation complete")

	if *stream {
		publisher := mq.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopicProducts, log)
		defer publisher.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sent := mq.PublishAll(ctx, publisher, slice, contracts.ProductEvent.Key)
		log.WithFields(logrus.Fields{"topic": cfg.KafkaTopicProducts, "published": sent}).
			Info("live slice published")
	}
}

func writeHotspots(path string) error {
	body, err := json.MarshalIndent(demoHotspots, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hotspots: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeCSV[T any](path string, records []T, write func(w io.Writer, records []T) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f, records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
