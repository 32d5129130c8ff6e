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

	"inheritance-vault-go/internal/assets"
	"inheritance-vault-go/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

// LoadRegistry returns the tracked vaults in dense position order plus the
// persisted scan cursor.
func (s *Service) LoadRegistry(ctx context.Context) ([]models.RegistryEntry, int, error) {
	rows, err := s.db.QueryContext(ctx, queryLoadRegistry)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load registry: %w", err)
	}
	defer rows.Close()

	var entries []models.RegistryEntry
	for rows.Next() {
		var e models.RegistryEntry
		var ownerHex string
		if err := rows.Scan(&e.VaultId, &ownerHex); err != nil {
			return nil, 0, fmt.Errorf("failed to scan registry entry: %w", err)
		}
		e.Owner = common.HexToAddress(ownerHex)
		e.Active = true
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating registry rows: %w", err)
	}

	var cursor int
	err = s.db.QueryRowContext(ctx, queryGetCursor).Scan(&cursor)
	if err == sql.ErrNoRows {
		cursor = 0
	} else if err != nil {
		return nil, 0, fmt.Errorf("failed to load cursor: %w", err)
	}

	return entries, cursor, nil
}

// AppendRegistryEntry inserts a vault at the end of the dense tracking array.
func (s *Service) AppendRegistryEntry(ctx context.Context, e models.RegistryEntry) error {
	_, err := s.db.ExecContext(ctx, queryInsertRegistryEntry, e.VaultId, assets.AddressAccount(e.Owner))
	if err != nil {
		return fmt.Errorf("failed to append registry entry: %w", err)
	}
	return nil
}

// SwapRemoveRegistryEntry removes vaultId and moves lastVaultId into its
// position, mirroring the in-memory swap-remove. Delete before move so the
// unique position index never conflicts.
func (s *Service) SwapRemoveRegistryEntry(ctx context.Context, vaultId, lastVaultId string, position int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryDeleteRegistryEntry, vaultId); err != nil {
		return fmt.Errorf("failed to delete registry entry: %w", err)
	}
	if lastVaultId != vaultId {
		if _, err := tx.ExecContext(ctx, queryMoveRegistryEntry, position, lastVaultId); err != nil {
			return fmt.Errorf("failed to move registry entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registry removal: %w", err)
	}
	return nil
}

// SaveCursor persists the scan cursor.
func (s *Service) SaveCursor(ctx context.Context, cursor int) error {
	if _, err := s.db.ExecContext(ctx, querySaveCursor, cursor); err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}
