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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bridge-reconcile-go/internal/models"
	"bridge-reconcile-go/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const (
	DriverSqlite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Compile-time checks: the services must satisfy the store contracts.
var (
	_ store.SourceLedger  = (*SourceService)(nil)
	_ store.LegacyLedger  = (*LegacyService)(nil)
	_ store.PairingWriter = (*pairingWriter)(nil)
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SourceService reads the v3 transfer feed
type SourceService struct {
	db *sql.DB
}

// LegacyService reads and writes the v1 transaction ledger
type LegacyService struct {
	db *sql.DB
	pairingWriter
}

func NewSourceService(ctx context.Context, cfg models.DatabaseConfig) (*SourceService, error) {
	db, err := open(ctx, cfg, cfg.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("source ledger: %w", err)
	}
	if cfg.InitSchema && cfg.Driver == DriverSqlite {
		if err := initSchema(ctx, db, sourceSchema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to initialize source schema: %w", err)
		}
	}
	zap.L().Info("Source ledger initialized successfully", zap.String("driver", cfg.Driver))
	return &SourceService{db: db}, nil
}

func NewLegacyService(ctx context.Context, cfg models.DatabaseConfig) (*LegacyService, error) {
	db, err := open(ctx, cfg, cfg.LegacyURL)
	if err != nil {
		return nil, fmt.Errorf("legacy ledger: %w", err)
	}
	if cfg.InitSchema && cfg.Driver == DriverSqlite {
		if err := initSchema(ctx, db, legacySchema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to initialize legacy schema: %w", err)
		}
	}
	zap.L().Info("Legacy ledger initialized successfully", zap.String("driver", cfg.Driver))
	return NewLegacyServiceFromDB(db), nil
}

// NewSourceServiceFromDB wraps an already-open handle. The caller owns the schema.
func NewSourceServiceFromDB(db *sql.DB) *SourceService {
	return &SourceService{db: db}
}

// NewLegacyServiceFromDB wraps an already-open handle. The caller owns the schema.
func NewLegacyServiceFromDB(db *sql.DB) *LegacyService {
	return &LegacyService{db: db, pairingWriter: pairingWriter{q: db}}
}

// InitSchemas creates the sqlite tables for both ledgers on one handle.
func InitSchemas(ctx context.Context, db *sql.DB) error {
	if err := initSchema(ctx, db, sourceSchema); err != nil {
		return err
	}
	return initSchema(ctx, db, legacySchema)
}

func open(ctx context.Context, cfg models.DatabaseConfig, url string) (*sql.DB, error) {
	// Validate configuration
	if url == "" {
		return nil, fmt.Errorf("database url cannot be empty")
	}
	if cfg.Driver != DriverSqlite && cfg.Driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	dsn := url
	if cfg.Driver == DriverSqlite && !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000"
	}

	zap.L().Info("Opening database", zap.String("driver", cfg.Driver))
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

func (s *SourceService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SourceService) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close source database connection", zap.Error(err))
	}
}

func (s *LegacyService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *LegacyService) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close legacy database connection", zap.Error(err))
	}
}

// WithTransaction runs fn against a transaction-bound writer and commits only if fn succeeds.
func (s *LegacyService) WithTransaction(ctx context.Context, fn func(w store.PairingWriter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pairingWriter{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func unixTime(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}
