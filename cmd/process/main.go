package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/config"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/ledger"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/refdata"
	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/tabio"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("process config error: %v", err)
	}

	dataDir := flag.String("data", cfg.DataDir, "directory holding factory_output.csv and return_logs.csv")
	outDir := flag.String("out", "", "output directory (defaults to <data>/live)")
	flag.Parse()

	if *outDir == "" {
		*outDir = filepath.Join(*dataDir, "live")
	}

	catalog := refdata.Default()
	if cfg.RefDataPath != "" {
		catalog, err = refdata.Load(cfg.RefDataPath)
		if err != nil {
			log.Fatalf("process refdata error: %v", err)
		}
	}

	// Phase 1: load and validate.
	products, productErrs, err := readProducts(filepath.Join(*dataDir, "factory_output.csv"))
	if err != nil {
		log.Fatalf("process read products error: %v", err)
	}
	recoveries, recoveryErrs, err := readRecoveries(filepath.Join(*dataDir, "return_logs.csv"))
	if err != nil {
		log.Fatalf("process read recoveries error: %v", err)
	}
	for _, e := range productErrs {
		log.Warnf("skipping product row: %v", e)
	}
	for _, e := range recoveryErrs {
		log.Warnf("skipping recovery row: %v", e)
	}

	// Phase 2: join, derive, aggregate.
	params := ledger.Params{
		LeakageThreshold:   cfg.LeakageThreshold,
		ComplianceTarget:   cfg.ComplianceTarget,
		RollupWindow:       cfg.RollupWindow,
		DedupLeakageAlerts: cfg.AlertDedupPerProduct,
	}
	snapshot, stats := ledger.RunBatch(products, recoveries, time.Now().UTC(), params, catalog, log)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("process mkdir error: %v", err)
	}

	outputs := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{"live_inventory.csv", func(w io.Writer) error { return tabio.WriteLedger(w, snapshot.Ledger) }},
		{"critical_leaks.csv", func(w io.Writer) error { return tabio.WriteAlerts(w, snapshot.LeakageAlerts) }},
		{"compliance_alerts.csv", func(w io.Writer) error { return tabio.WriteAlerts(w, snapshot.ComplianceAlerts) }},
		{"streaming_output.jsonl", func(w io.Writer) error {
			return tabio.WriteJSONLines(w, snapshot.Ledger)
		}},
		{"regional_rollups.jsonl", func(w io.Writer) error {
			return tabio.WriteJSONLines(w, snapshot.RegionalRollups)
		}},
		{"compliance_reports.jsonl", func(w io.Writer) error {
			return tabio.WriteJSONLines(w, snapshot.ComplianceReports)
		}},
	}
	for _, out := range outputs {
		if err := writeFile(filepath.Join(*outDir, out.name), out.write); err != nil {
			log.Fatalf("process write error: %v", err)
		}
	}

	log.WithFields(logrus.Fields{
		"products_accepted":   stats.ProductsAccepted,
		"products_rejected":   stats.ProductsRejected,
		"recoveries_accepted": stats.RecoveriesAccepted,
		"recoveries_rejected": stats.RecoveriesRejected,
		"ledger_rows":         len(snapshot.Ledger),
		"leakage_alerts":      len(snapshot.LeakageAlerts),
		"compliance_alerts":   len(snapshot.ComplianceAlerts),
		"out":                 *outDir,
	}).Info("batch evaluation complete")
}

func readProducts(path string) ([]contracts.ProductEvent, []*tabio.RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return tabio.ReadProducts(f)
}

func readRecoveries(path string) ([]contracts.RecoveryEvent, []*tabio.RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return tabio.ReadRecoveries(f)
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
