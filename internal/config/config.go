/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"bridge-reconcile-go/internal/models"

	"github.com/kelseyhightower/envconfig"
)

type databaseSecrets struct {
	SourceURL string `envconfig:"SOURCE_DATABASE_URL" required:"true"`
	LegacyURL string `envconfig:"LEGACY_DATABASE_URL" required:"true"`
}

type arbitrationSecrets struct {
	PrivateKey string `envconfig:"ARBITRATION_PRIVATE_KEY" required:"true"`
	RPCURL     string `envconfig:"ARBITRATION_RPC_URL" required:"true"`
}

type durationSetting struct {
	key          string
	defaultValue time.Duration
	target       *time.Duration
}

func Load() (*models.Config, error) {
	var db databaseSecrets
	if err := envconfig.Process("", &db); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Driver:       getEnvString("DB_DRIVER", "sqlite3"),
			SourceURL:    db.SourceURL,
			LegacyURL:    db.LegacyURL,
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			InitSchema:   getEnvBool("DB_INIT_SCHEMA", false),
		},
		Redis: models.RedisConfig{
			Host:    getEnvString("REDIS_HOST", ""),
			Port:    getEnvInt("REDIS_PORT", 6379),
			MaxIdle: getEnvInt("REDIS_MAX_IDLE", 10),
		},
		Reconcile: models.ReconcileConfig{
			BatchSize:  getEnvInt("SYNC_BATCH_SIZE", 500),
			SweepLimit: getEnvInt("SWEEP_LIMIT", 1000),
		},
		Arbitration: models.ArbitrationConfig{
			Enabled:    getEnvBool("ARBITRATION_ENABLED", false),
			MakerOwner: getEnvString("ARBITRATION_MAKER_OWNER", ""),
			ScanLimit:  getEnvInt("ARBITRATION_SCAN_LIMIT", 200),
			QueueSize:  getEnvInt("ARBITRATION_QUEUE_SIZE", 100),
		},
		Queue: models.QueueConfig{
			URL:               getEnvString("QUEUE_URL", ""),
			Prefetch:          getEnvInt("QUEUE_PREFETCH", 10),
			ReconnectAttempts: getEnvInt("QUEUE_RECONNECT_ATTEMPTS", 10),
		},
		Server: models.ServerConfig{
			Addr: getEnvString("SERVER_ADDR", ":8080"),
		},
		ChainsFile: getEnvString("CHAINS_FILE", "chains.yaml"),
	}

	durations := []durationSetting{
		{"DB_CONN_MAX_LIFETIME", 5 * time.Minute, &cfg.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", 30 * time.Second, &cfg.Database.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", 5 * time.Second, &cfg.Database.PingTimeout},
		{"REDIS_DIAL_TIMEOUT", 5 * time.Second, &cfg.Redis.DialTimeout},
		{"SYNC_INTERVAL", 30 * time.Second, &cfg.Reconcile.SyncInterval},
		{"SYNC_MIN_AGE", time.Minute, &cfg.Reconcile.MinAge},
		{"SYNC_MAX_AGE", 120 * time.Minute, &cfg.Reconcile.MaxAge},
		{"SWEEP_SHORT_INTERVAL", 5 * time.Minute, &cfg.Reconcile.ShortSweepInterval},
		{"SWEEP_SHORT_LOOKBACK", 20 * time.Minute, &cfg.Reconcile.ShortSweepLookback},
		{"SWEEP_LONG_INTERVAL", time.Hour, &cfg.Reconcile.LongSweepInterval},
		{"SWEEP_LONG_LOOKBACK", 24 * time.Hour, &cfg.Reconcile.LongSweepLookback},
		{"WORKING_CLEANUP_INTERVAL", 15 * time.Minute, &cfg.Reconcile.CleanupInterval},
		{"WORKING_RECORD_TTL", 6 * time.Hour, &cfg.Reconcile.WorkingRecordTTL},
		{"ARBITRATION_SCAN_INTERVAL", time.Minute, &cfg.Arbitration.ScanInterval},
		{"ARBITRATION_SCAN_LOOKBACK", 2 * time.Hour, &cfg.Arbitration.ScanLookback},
		{"ARBITRATION_RPC_TIMEOUT", 30 * time.Second, &cfg.Arbitration.RPCTimeout},
		{"ARBITRATION_CONFIRM_TIMEOUT", 5 * time.Minute, &cfg.Arbitration.ConfirmTimeout},
		{"QUEUE_RECONNECT_DELAY", 5 * time.Second, &cfg.Queue.ReconnectDelay},
		{"SERVER_SHUTDOWN_TIMEOUT", 30 * time.Second, &cfg.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		value, err := getEnvDuration(d.key, d.defaultValue)
		if err != nil {
			return nil, err
		}
		*d.target = value
	}

	if cfg.Reconcile.MinAge >= cfg.Reconcile.MaxAge {
		return nil, fmt.Errorf("SYNC_MIN_AGE (%s) must be below SYNC_MAX_AGE (%s)", cfg.Reconcile.MinAge, cfg.Reconcile.MaxAge)
	}

	if cfg.Arbitration.Enabled {
		var arb arbitrationSecrets
		if err := envconfig.Process("", &arb); err != nil {
			return nil, fmt.Errorf("invalid arbitration configuration: %w", err)
		}
		if cfg.Arbitration.MakerOwner == "" {
			return nil, fmt.Errorf("ARBITRATION_MAKER_OWNER is required when arbitration is enabled")
		}
		cfg.Arbitration.PrivateKey = arb.PrivateKey
		cfg.Arbitration.RPCURL = arb.RPCURL
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
