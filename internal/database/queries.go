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

const (
	// Vault queries
	queryInsertVault = `
		INSERT INTO vaults (id, owner, inactivity_seconds, last_active_at, executed,
		                    balance, fee_deposit, fee_required, has_nfts, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`

	queryGetVault = `
		SELECT id, owner, inactivity_seconds, last_active_at, executed,
		       balance, fee_deposit, fee_required, has_nfts, created_at
		FROM vaults
		WHERE id = ?`

	queryTouchVault = `
		UPDATE vaults SET last_active_at = ? WHERE id = ? AND executed = 0`

	querySetPeriod = `
		UPDATE vaults SET inactivity_seconds = ?, last_active_at = ? WHERE id = ? AND executed = 0`

	queryMarkExecuted = `
		UPDATE vaults SET executed = 1 WHERE id = ? AND executed = 0`

	queryUpdateVaultBalance = `
		UPDATE vaults SET balance = ? WHERE id = ?`

	queryUpdateVaultFeeDeposit = `
		UPDATE vaults SET fee_deposit = ? WHERE id = ?`

	querySetVaultHasNFTs = `
		UPDATE vaults SET has_nfts = 1 WHERE id = ?`

	// Heir queries
	queryGetHeirs = `
		SELECT heir, bps FROM vault_heirs WHERE vault_id = ? ORDER BY position`

	queryDeleteHeirs = `
		DELETE FROM vault_heirs WHERE vault_id = ?`

	queryInsertHeir = `
		INSERT INTO vault_heirs (vault_id, position, heir, bps) VALUES (?, ?, ?, ?)`

	// Fungible-token ledger (insertion-ordered, membership-deduplicated)
	queryGetVaultTokens = `
		SELECT contract, balance FROM vault_tokens WHERE vault_id = ? ORDER BY position`

	queryGetVaultToken = `
		SELECT balance FROM vault_tokens WHERE vault_id = ? AND contract = ?`

	queryInsertVaultToken = `
		INSERT INTO vault_tokens (vault_id, contract, balance, position)
		VALUES (?, ?, ?, COALESCE((SELECT MAX(position) + 1 FROM vault_tokens WHERE vault_id = ?), 0))`

	queryUpdateVaultToken = `
		UPDATE vault_tokens SET balance = ? WHERE vault_id = ? AND contract = ?`

	queryDeleteVaultToken = `
		DELETE FROM vault_tokens WHERE vault_id = ? AND contract = ?`

	queryDeleteVaultTokens = `
		DELETE FROM vault_tokens WHERE vault_id = ?`

	// Non-fungible ledger
	queryGetVaultNFTs = `
		SELECT contract, token_id FROM vault_nfts WHERE vault_id = ? ORDER BY position`

	queryInsertVaultNFT = `
		INSERT INTO vault_nfts (vault_id, contract, token_id, position)
		VALUES (?, ?, ?, COALESCE((SELECT MAX(position) + 1 FROM vault_nfts WHERE vault_id = ?), 0))`

	queryDeleteVaultNFT = `
		DELETE FROM vault_nfts WHERE vault_id = ? AND contract = ? AND token_id = ?`

	queryDeleteVaultNFTs = `
		DELETE FROM vault_nfts WHERE vault_id = ?`

	// Semi-fungible ledger
	queryGetVaultSFTs = `
		SELECT contract, token_id, balance FROM vault_sfts WHERE vault_id = ? ORDER BY contract, token_id`

	queryGetVaultSFT = `
		SELECT balance FROM vault_sfts WHERE vault_id = ? AND contract = ? AND token_id = ?`

	queryInsertVaultSFT = `
		INSERT INTO vault_sfts (vault_id, contract, token_id, balance) VALUES (?, ?, ?, ?)`

	queryUpdateVaultSFT = `
		UPDATE vault_sfts SET balance = ? WHERE vault_id = ? AND contract = ? AND token_id = ?`

	queryDeleteVaultSFT = `
		DELETE FROM vault_sfts WHERE vault_id = ? AND contract = ? AND token_id = ?`

	queryDeleteVaultSFTs = `
		DELETE FROM vault_sfts WHERE vault_id = ?`

	// Registry queries
	queryLoadRegistry = `
		SELECT vault_id, owner FROM registry_vaults ORDER BY position`

	queryRegistryLength = `
		SELECT COUNT(*) FROM registry_vaults`

	queryInsertRegistryEntry = `
		INSERT INTO registry_vaults (position, vault_id, owner)
		VALUES ((SELECT COUNT(*) FROM registry_vaults), ?, ?)`

	queryDeleteRegistryEntry = `
		DELETE FROM registry_vaults WHERE vault_id = ?`

	queryMoveRegistryEntry = `
		UPDATE registry_vaults SET position = ? WHERE vault_id = ?`

	queryGetCursor = `
		SELECT cursor FROM registry_state WHERE id = 1`

	querySaveCursor = `
		INSERT INTO registry_state (id, cursor) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET cursor = excluded.cursor`

	// Factory index queries (append-only)
	queryInsertFactoryIndex = `
		INSERT OR IGNORE INTO factory_index (role, account, vault_id, position)
		VALUES (?, ?, ?, COALESCE((SELECT MAX(position) + 1 FROM factory_index WHERE role = ? AND account = ?), 0))`

	queryVaultsByRole = `
		SELECT vault_id FROM factory_index WHERE role = ? AND account = ? ORDER BY position`

	// Balance queries
	queryGetBalance = `
		SELECT balance
		FROM account_balances
		WHERE account = ? AND asset = ?`

	queryGetAllAccountBalances = `
		SELECT id, account, asset, balance, last_transaction_id, version, updated_at
		FROM account_balances
		WHERE account = ? AND balance != '0'
		ORDER BY asset`

	// Transaction queries
	queryCheckDuplicateTransaction = `
		SELECT id FROM transactions WHERE external_transaction_id = ? LIMIT 1`

	queryGetAccountBalance = `
		SELECT id, balance, version
		FROM account_balances
		WHERE account = ? AND asset = ?`

	queryInsertAccountBalance = `
		INSERT INTO account_balances (id, account, asset, balance, version)
		VALUES (?, ?, ?, ?, ?)`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, account, asset, transaction_type, amount, balance_before, balance_after,
			external_transaction_id, vault_id, reference, status, created_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_transaction_id = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE account = ? AND asset = ? AND version = ?`

	// Empty asset matches every asset.
	queryGetTransactionHistory = `
		SELECT id, account, asset, transaction_type, amount, balance_before, balance_after,
		       external_transaction_id, vault_id, reference, status, created_at, processed_at
		FROM transactions
		WHERE account = ? AND (? = '' OR asset = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
)
