package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"bridge-reconcile-go/internal/common"
	"bridge-reconcile-go/internal/config"
	"bridge-reconcile-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func printSync(result *models.SyncResult) {
	common.PrintFields("Synced "+common.ShortHash(result.Hash), [][2]string{
		{"hash", result.Hash},
		{"legacy id", strconv.FormatInt(result.LegacyId, 10)},
		{"status", strconv.Itoa(result.Status)},
		{"transfer id", result.TransferId},
	})
}

func printPair(result *models.PairResult) {
	skipped := result.Skipped
	if skipped == "" {
		skipped = "-"
	}
	common.PrintFields("Pairing "+common.ShortHash(result.Hash), [][2]string{
		{"hash", result.Hash},
		{"in id", strconv.FormatInt(result.InId, 10)},
		{"out id", strconv.FormatInt(result.OutId, 10)},
		{"settled", strconv.FormatBool(result.Settled)},
		{"skipped", skipped},
	})
}

func main() {
	action := flag.String("action", "", "One of: sync, pair, sweep, batch")
	hash := flag.String("hash", "", "Source transfer hash (sync, pair)")
	lookback := flag.Duration("lookback", time.Hour, "Sweep lookback window")
	flag.Parse()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	switch *action {
	case "sync", "pair", "sweep", "batch":
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		flag.Usage()
		os.Exit(2)
	}
	if (*action == "sync" || *action == "pair") && *hash == "" {
		fmt.Fprintf(os.Stderr, "-hash is required for -action %s\n", *action)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := models.WithRunContext(context.Background(), &models.RunContext{
		RunId:   uuid.New().String(),
		Trigger: "cli",
		Stage:   *action,
	})

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("RECONCILE: "+*action, common.DefaultWidth)

	var summary string
	switch *action {
	case "sync":
		result, err := services.Engine.SyncTransfer(ctx, *hash)
		if err != nil {
			logger.Error("Sync failed", zap.String("hash", *hash), zap.Error(err))
			summary = "FAILED: " + err.Error()
			break
		}
		printSync(result)
		summary = "Transfer synced"

	case "pair":
		result, err := services.Engine.PairByHash(ctx, *hash)
		if err != nil {
			logger.Error("Pair failed", zap.String("hash", *hash), zap.Error(err))
			summary = "FAILED: " + err.Error()
			break
		}
		printPair(result)
		summary = "Pairing evaluated"

	case "sweep":
		settled, err := services.Engine.SweepUnmatched(ctx, *lookback)
		if err != nil {
			logger.Error("Sweep failed", zap.Duration("lookback", *lookback), zap.Error(err))
			summary = "FAILED: " + err.Error()
			break
		}
		summary = fmt.Sprintf("Sweep settled %d pairings (lookback %s)", settled, *lookback)

	case "batch":
		result, err := services.Engine.SyncBatch(ctx)
		if err != nil {
			logger.Error("Batch sync failed", zap.Error(err))
			summary = "FAILED: " + err.Error()
			break
		}
		if result.Skipped {
			summary = "Batch skipped: a sync run is already in progress"
			break
		}
		summary = fmt.Sprintf("Batch %s: %d selected, %d synced, %d failed",
			result.RunId, result.Selected, result.Synced, result.Failed)
	}

	common.PrintFooter(summary, common.DefaultWidth)
}
