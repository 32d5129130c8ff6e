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

	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.VaultStore.
var _ store.VaultStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
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

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
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
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	subledger := NewSubledgerService(db)
	service := &Service{db: db, subledger: subledger}
	if err := service.initSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	// Initialize subledger schema
	if err := subledger.InitSchema(); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema() error {
	schema := `
	-- Vault configuration and native balances
	CREATE TABLE IF NOT EXISTS vaults (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		inactivity_seconds INTEGER NOT NULL,
		last_active_at TIMESTAMP NOT NULL,
		executed BOOLEAN NOT NULL DEFAULT 0,
		balance TEXT NOT NULL DEFAULT '0',
		fee_deposit TEXT NOT NULL DEFAULT '0',
		fee_required TEXT NOT NULL DEFAULT '0',
		has_nfts BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_vaults_owner ON vaults(owner);
	CREATE INDEX IF NOT EXISTS idx_vaults_executed ON vaults(executed);

	-- Ordered heir configuration per vault
	CREATE TABLE IF NOT EXISTS vault_heirs (
		vault_id TEXT NOT NULL REFERENCES vaults(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		heir TEXT NOT NULL,
		bps INTEGER NOT NULL,
		PRIMARY KEY (vault_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_vault_heirs_heir ON vault_heirs(heir);

	-- Fungible-token ledger, insertion-ordered
	CREATE TABLE IF NOT EXISTS vault_tokens (
		vault_id TEXT NOT NULL REFERENCES vaults(id) ON DELETE CASCADE,
		contract TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		position INTEGER NOT NULL,
		PRIMARY KEY (vault_id, contract)
	);

	-- Held non-fungible items
	CREATE TABLE IF NOT EXISTS vault_nfts (
		vault_id TEXT NOT NULL REFERENCES vaults(id) ON DELETE CASCADE,
		contract TEXT NOT NULL,
		token_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (vault_id, contract, token_id)
	);

	-- Semi-fungible balances
	CREATE TABLE IF NOT EXISTS vault_sfts (
		vault_id TEXT NOT NULL REFERENCES vaults(id) ON DELETE CASCADE,
		contract TEXT NOT NULL,
		token_id TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (vault_id, contract, token_id)
	);

	-- Registry tracking array (dense positions, swap-remove on delete)
	CREATE TABLE IF NOT EXISTS registry_vaults (
		position INTEGER NOT NULL,
		vault_id TEXT PRIMARY KEY,
		owner TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_registry_vaults_position ON registry_vaults(position);

	-- Registry scan cursor
	CREATE TABLE IF NOT EXISTS registry_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		cursor INTEGER NOT NULL DEFAULT 0
	);

	-- Append-only owner/heir -> vault index (historical record)
	CREATE TABLE IF NOT EXISTS factory_index (
		role TEXT NOT NULL,
		account TEXT NOT NULL,
		vault_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (role, account, vault_id)
	);

	CREATE INDEX IF NOT EXISTS idx_factory_index_account ON factory_index(role, account);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Subledger convenience methods

func (s *Service) AccountBalance(ctx context.Context, account, asset string) (decimal.Decimal, error) {
	return s.subledger.GetBalance(ctx, account, asset)
}

func (s *Service) AccountBalances(ctx context.Context, account string) ([]models.AccountBalance, error) {
	return s.subledger.GetAllBalances(ctx, account)
}

func (s *Service) TransactionHistory(ctx context.Context, account, asset string, limit, offset int) ([]models.Transaction, error) {
	return s.subledger.GetTransactionHistory(ctx, account, asset, limit, offset)
}
