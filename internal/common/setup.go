package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"bridge-reconcile-go/internal/alert"
	"bridge-reconcile-go/internal/arbitration"
	"bridge-reconcile-go/internal/chains"
	"bridge-reconcile-go/internal/database"
	"bridge-reconcile-go/internal/dedup"
	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/queue"
	"bridge-reconcile-go/internal/reconcile"
	"bridge-reconcile-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("Loaded environment variables from .env file")
	}
}

type Services struct {
	Source    *database.SourceService
	Legacy    *database.LegacyService
	Registry  *chains.Registry
	Markers   store.MarkerStore
	Ledgers   *dedup.Ledgers
	Locks     *dedup.LockRegistry
	Publisher *queue.Publisher
	Engine    *reconcile.Engine
	Alerter   alert.Alerter

	closers []func()
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens both ledgers, the marker store and the chain registry and
// builds the reconciliation engine on top of them.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	s := &Services{
		Locks:   dedup.NewLockRegistry(),
		Alerter: alert.LogAlerter{},
	}

	source, err := database.NewSourceService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	s.Source = source
	s.closers = append(s.closers, source.Close)

	legacy, err := database.NewLegacyService(ctx, cfg.Database)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Legacy = legacy
	s.closers = append(s.closers, legacy.Close)

	zap.L().Info("Loading chain registry", zap.String("file", cfg.ChainsFile))
	registry, err := chains.LoadRegistry(cfg.ChainsFile)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Registry = registry

	markers, err := initializeMarkers(ctx, cfg.Redis)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Markers = markers
	if closer, ok := markers.(*dedup.RedisMarkerStore); ok {
		s.closers = append(s.closers, closer.Close)
	}
	s.Ledgers = dedup.NewLedgers(markers)

	engineCfg := reconcile.EngineConfig{
		Source:     source,
		Legacy:     legacy,
		Chains:     registry,
		BatchSize:  cfg.Reconcile.BatchSize,
		MinAge:     cfg.Reconcile.MinAge,
		MaxAge:     cfg.Reconcile.MaxAge,
		SweepLimit: cfg.Reconcile.SweepLimit,
	}
	if cfg.Queue.URL != "" {
		s.Publisher = queue.NewPublisher(cfg.Queue.URL)
		s.closers = append(s.closers, s.Publisher.Close)
		engineCfg.Publisher = s.Publisher
	}
	s.Engine = reconcile.NewEngine(engineCfg)

	return s, nil
}

// InitializeArbitration dials the challenge wallet; the caller owns the returned service
func InitializeArbitration(ctx context.Context, cfg *models.Config, s *Services) (*arbitration.Service, error) {
	wallet, err := arbitration.DialEVMWallet(ctx, cfg.Arbitration.RPCURL, cfg.Arbitration.PrivateKey, s.Locks)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, wallet.Close)

	return arbitration.NewService(arbitration.ServiceConfig{
		Chains:         s.Registry,
		Source:         s.Source,
		Wallet:         wallet,
		Markers:        dedup.NewLedger(arbitration.MarkerNamespace, s.Markers),
		Alerter:        s.Alerter,
		MakerOwner:     cfg.Arbitration.MakerOwner,
		ScanInterval:   cfg.Arbitration.ScanInterval,
		ScanLookback:   cfg.Arbitration.ScanLookback,
		ScanLimit:      cfg.Arbitration.ScanLimit,
		RPCTimeout:     cfg.Arbitration.RPCTimeout,
		ConfirmTimeout: cfg.Arbitration.ConfirmTimeout,
		QueueSize:      cfg.Arbitration.QueueSize,
	}), nil
}

func initializeMarkers(ctx context.Context, cfg models.RedisConfig) (store.MarkerStore, error) {
	if cfg.Host == "" {
		zap.L().Warn("REDIS_HOST not set, dedup markers will not survive a restart")
		return dedup.NewMemoryMarkerStore(), nil
	}

	markers := dedup.NewRedisMarkerStore(cfg)
	if err := markers.Ping(ctx); err != nil {
		markers.Close()
		return nil, fmt.Errorf("redis marker store unavailable: %w", err)
	}
	zap.L().Info("Connected to redis marker store",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port))
	return markers, nil
}

// Close releases resources in reverse order of acquisition
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
