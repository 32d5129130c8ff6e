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

	"inheritance-vault-go/internal/assets"
	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateVault inserts the vault aggregate, appends the append-only factory
// index rows and books the funding movements, all in one transaction.
func (s *Service) CreateVault(ctx context.Context, v *models.Vault, funding store.FundingParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM vaults WHERE id = ?`, v.Id).Scan(&one)
	if err == nil {
		return fmt.Errorf("%w: %s", store.ErrVaultExists, v.Id)
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check vault existence: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryInsertVault,
		v.Id, assets.AddressAccount(v.Owner), int64(v.InactivityPeriod.Seconds()), v.LastActiveAt,
		v.Balance.String(), v.FeeDeposit.String(), v.FeeRequired.String(), v.HasNFTs, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vault: %w", err)
	}

	for i, h := range v.Heirs {
		if _, err := tx.ExecContext(ctx, queryInsertHeir, v.Id, i, assets.AddressAccount(h.Address), h.Bps); err != nil {
			return fmt.Errorf("failed to insert heir: %w", err)
		}
	}

	// Append-only historical index: owner plus every heir.
	ownerAcct := assets.AddressAccount(v.Owner)
	if _, err := tx.ExecContext(ctx, queryInsertFactoryIndex, "owner", ownerAcct, v.Id, "owner", ownerAcct); err != nil {
		return fmt.Errorf("failed to index owner: %w", err)
	}
	for _, h := range v.Heirs {
		heirAcct := assets.AddressAccount(h.Address)
		if _, err := tx.ExecContext(ctx, queryInsertFactoryIndex, "heir", heirAcct, v.Id, "heir", heirAcct); err != nil {
			return fmt.Errorf("failed to index heir: %w", err)
		}
	}

	from := assets.AddressAccount(funding.From)
	native := assets.NativeAsset().Id()
	if funding.Deposit.IsPositive() {
		if v.Balance.IsPositive() {
			err = s.subledger.bookMovementInTx(ctx, tx, bookMovementParams{
				From: from, To: assets.VaultAccount(v.Id), Asset: native,
				Amount: v.Balance, TransactionType: "vault_funding",
				ExternalTxId: funding.ExternalTxId + "-net", VaultId: v.Id,
			})
			if err != nil {
				return err
			}
		}
		if funding.FeeReserve.IsPositive() {
			err = s.subledger.bookMovementInTx(ctx, tx, bookMovementParams{
				From: from, To: assets.FeeReserveAccount(v.Id), Asset: native,
				Amount: funding.FeeReserve, TransactionType: "fee_reserve",
				ExternalTxId: funding.ExternalTxId + "-reserve", VaultId: v.Id,
			})
			if err != nil {
				return err
			}
		}
		if funding.CreationFee.IsPositive() {
			err = s.subledger.bookMovementInTx(ctx, tx, bookMovementParams{
				From: from, To: assets.AddressAccount(funding.FeeSink), Asset: native,
				Amount: funding.CreationFee, TransactionType: "creation_fee",
				ExternalTxId: funding.ExternalTxId + "-fee", VaultId: v.Id,
			})
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vault creation: %w", err)
	}
	return nil
}

// GetVault assembles the full vault aggregate.
func (s *Service) GetVault(ctx context.Context, id string) (*models.Vault, error) {
	v := &models.Vault{Id: id}
	var ownerHex, balanceStr, feeDepositStr, feeRequiredStr string
	var inactivitySeconds int64

	err := s.db.QueryRowContext(ctx, queryGetVault, id).Scan(
		&v.Id, &ownerHex, &inactivitySeconds, &v.LastActiveAt, &v.Executed,
		&balanceStr, &feeDepositStr, &feeRequiredStr, &v.HasNFTs, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", store.ErrVaultNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}

	v.Owner = common.HexToAddress(ownerHex)
	v.InactivityPeriod = time.Duration(inactivitySeconds) * time.Second
	if v.Balance, err = decimal.NewFromString(balanceStr); err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}
	if v.FeeDeposit, err = decimal.NewFromString(feeDepositStr); err != nil {
		return nil, fmt.Errorf("failed to parse fee deposit %q: %w", feeDepositStr, err)
	}
	if v.FeeRequired, err = decimal.NewFromString(feeRequiredStr); err != nil {
		return nil, fmt.Errorf("failed to parse fee required %q: %w", feeRequiredStr, err)
	}

	if v.Heirs, err = s.getHeirs(ctx, id); err != nil {
		return nil, err
	}
	if v.Tokens, err = s.getTokens(ctx, id); err != nil {
		return nil, err
	}
	if v.NFTs, err = s.getNFTs(ctx, id); err != nil {
		return nil, err
	}
	if v.SemiFungibles, err = s.getSFTs(ctx, id); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) getHeirs(ctx context.Context, id string) ([]models.Heir, error) {
	rows, err := s.db.QueryContext(ctx, queryGetHeirs, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get heirs: %w", err)
	}
	defer rows.Close()

	var heirs []models.Heir
	for rows.Next() {
		var hex string
		var h models.Heir
		if err := rows.Scan(&hex, &h.Bps); err != nil {
			return nil, fmt.Errorf("failed to scan heir: %w", err)
		}
		h.Address = common.HexToAddress(hex)
		heirs = append(heirs, h)
	}
	return heirs, rows.Err()
}

func (s *Service) getTokens(ctx context.Context, id string) ([]models.TokenBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetVaultTokens, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.TokenBalance
	for rows.Next() {
		var hex, balanceStr string
		var tb models.TokenBalance
		if err := rows.Scan(&hex, &balanceStr); err != nil {
			return nil, fmt.Errorf("failed to scan token balance: %w", err)
		}
		tb.Contract = common.HexToAddress(hex)
		if tb.Balance, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, fmt.Errorf("failed to parse token balance %q: %w", balanceStr, err)
		}
		tokens = append(tokens, tb)
	}
	return tokens, rows.Err()
}

func (s *Service) getNFTs(ctx context.Context, id string) ([]models.NFTHolding, error) {
	rows, err := s.db.QueryContext(ctx, queryGetVaultNFTs, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault nfts: %w", err)
	}
	defer rows.Close()

	var nfts []models.NFTHolding
	for rows.Next() {
		var hex string
		var n models.NFTHolding
		if err := rows.Scan(&hex, &n.TokenId); err != nil {
			return nil, fmt.Errorf("failed to scan nft: %w", err)
		}
		n.Contract = common.HexToAddress(hex)
		nfts = append(nfts, n)
	}
	return nfts, rows.Err()
}

func (s *Service) getSFTs(ctx context.Context, id string) ([]models.SemiFungibleBalance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetVaultSFTs, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault sfts: %w", err)
	}
	defer rows.Close()

	var sfts []models.SemiFungibleBalance
	for rows.Next() {
		var hex, balanceStr string
		var sb models.SemiFungibleBalance
		if err := rows.Scan(&hex, &sb.TokenId, &balanceStr); err != nil {
			return nil, fmt.Errorf("failed to scan sft: %w", err)
		}
		sb.Contract = common.HexToAddress(hex)
		if sb.Balance, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, fmt.Errorf("failed to parse sft balance %q: %w", balanceStr, err)
		}
		sfts = append(sfts, sb)
	}
	return sfts, rows.Err()
}

func (s *Service) TouchVault(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, queryTouchVault, at, id)
	if err != nil {
		return fmt.Errorf("failed to touch vault: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrVaultNotFound, id)
	}
	return nil
}

func (s *Service) ReplaceHeirs(ctx context.Context, id string, heirs []models.Heir, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryDeleteHeirs, id); err != nil {
		return fmt.Errorf("failed to clear heirs: %w", err)
	}
	for i, h := range heirs {
		if _, err := tx.ExecContext(ctx, queryInsertHeir, id, i, assets.AddressAccount(h.Address), h.Bps); err != nil {
			return fmt.Errorf("failed to insert heir: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, queryTouchVault, at, id); err != nil {
		return fmt.Errorf("failed to refresh activity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit heir update: %w", err)
	}
	return nil
}

func (s *Service) SetInactivityPeriod(ctx context.Context, id string, period time.Duration, at time.Time) error {
	result, err := s.db.ExecContext(ctx, querySetPeriod, int64(period.Seconds()), at, id)
	if err != nil {
		return fmt.Errorf("failed to set inactivity period: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrVaultNotFound, id)
	}
	return nil
}

// ApplyDeposit books the incoming movement and updates the vault's asset
// ledgers in one transaction.
func (s *Service) ApplyDeposit(ctx context.Context, p store.DepositParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	to := assets.VaultAccount(p.VaultId)
	if p.ToFeeReserve {
		to = assets.FeeReserveAccount(p.VaultId)
	}
	err = s.subledger.bookMovementInTx(ctx, tx, bookMovementParams{
		From: assets.AddressAccount(p.From), To: to, Asset: p.Asset.Id(),
		Amount: p.Amount, TransactionType: "deposit",
		ExternalTxId: p.ExternalTxId, VaultId: p.VaultId,
	})
	if err != nil {
		return err
	}

	if err := s.creditVaultLedger(ctx, tx, p); err != nil {
		return err
	}

	if p.RefreshActivity {
		if _, err := tx.ExecContext(ctx, queryTouchVault, p.At, p.VaultId); err != nil {
			return fmt.Errorf("failed to refresh activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deposit: %w", err)
	}
	return nil
}

func (s *Service) creditVaultLedger(ctx context.Context, tx *sql.Tx, p store.DepositParams) error {
	switch {
	case p.ToFeeReserve:
		return s.adjustColumn(ctx, tx, queryUpdateVaultFeeDeposit, p.VaultId, `SELECT fee_deposit FROM vaults WHERE id = ?`, p.Amount)
	case p.Asset.Kind == assets.Native:
		return s.adjustColumn(ctx, tx, queryUpdateVaultBalance, p.VaultId, `SELECT balance FROM vaults WHERE id = ?`, p.Amount)
	case p.Asset.Kind == assets.Fungible:
		contract := assets.AddressAccount(p.Asset.Contract)
		var balanceStr string
		err := tx.QueryRowContext(ctx, queryGetVaultToken, p.VaultId, contract).Scan(&balanceStr)
		if err == sql.ErrNoRows {
			_, err = tx.ExecContext(ctx, queryInsertVaultToken, p.VaultId, contract, p.Amount.String(), p.VaultId)
			return err
		}
		if err != nil {
			return fmt.Errorf("failed to read token balance: %w", err)
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return fmt.Errorf("failed to parse token balance %q: %w", balanceStr, err)
		}
		_, err = tx.ExecContext(ctx, queryUpdateVaultToken, balance.Add(p.Amount).String(), p.VaultId, contract)
		return err
	case p.Asset.Kind == assets.NonFungible:
		contract := assets.AddressAccount(p.Asset.Contract)
		if _, err := tx.ExecContext(ctx, queryInsertVaultNFT, p.VaultId, contract, p.Asset.TokenId, p.VaultId); err != nil {
			return fmt.Errorf("failed to record nft: %w", err)
		}
		_, err := tx.ExecContext(ctx, querySetVaultHasNFTs, p.VaultId)
		return err
	case p.Asset.Kind == assets.SemiFungible:
		contract := assets.AddressAccount(p.Asset.Contract)
		var balanceStr string
		err := tx.QueryRowContext(ctx, queryGetVaultSFT, p.VaultId, contract, p.Asset.TokenId).Scan(&balanceStr)
		if err == sql.ErrNoRows {
			if _, err = tx.ExecContext(ctx, queryInsertVaultSFT, p.VaultId, contract, p.Asset.TokenId, p.Amount.String()); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("failed to read sft balance: %w", err)
		} else {
			balance, perr := decimal.NewFromString(balanceStr)
			if perr != nil {
				return fmt.Errorf("failed to parse sft balance %q: %w", balanceStr, perr)
			}
			if _, err = tx.ExecContext(ctx, queryUpdateVaultSFT, balance.Add(p.Amount).String(), p.VaultId, contract, p.Asset.TokenId); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, querySetVaultHasNFTs, p.VaultId)
		return err
	default:
		return fmt.Errorf("unsupported asset kind %v", p.Asset.Kind)
	}
}

func (s *Service) adjustColumn(ctx context.Context, tx *sql.Tx, updateQuery, vaultId, selectQuery string, delta decimal.Decimal) error {
	var currentStr string
	if err := tx.QueryRowContext(ctx, selectQuery, vaultId).Scan(&currentStr); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", store.ErrVaultNotFound, vaultId)
		}
		return fmt.Errorf("failed to read vault balance: %w", err)
	}
	current, err := decimal.NewFromString(currentStr)
	if err != nil {
		return fmt.Errorf("failed to parse vault balance %q: %w", currentStr, err)
	}
	next := current.Add(delta)
	if next.IsNegative() {
		return fmt.Errorf("balance would go negative: %s + %s", currentStr, delta.String())
	}
	_, err = tx.ExecContext(ctx, updateQuery, next.String(), vaultId)
	return err
}

// ApplyWithdrawal books the outgoing movement, debits the vault ledger and
// refreshes activity (withdrawals are owner actions) in one transaction.
func (s *Service) ApplyWithdrawal(ctx context.Context, p store.WithdrawalParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	from := assets.VaultAccount(p.VaultId)
	if p.FromFeeReserve {
		from = assets.FeeReserveAccount(p.VaultId)
	}
	err = s.subledger.bookMovementInTx(ctx, tx, bookMovementParams{
		From: from, To: assets.AddressAccount(p.To), Asset: p.Asset.Id(),
		Amount: p.Amount, TransactionType: "withdrawal",
		ExternalTxId: p.ExternalTxId, VaultId: p.VaultId,
	})
	if err != nil {
		return err
	}

	if err := s.debitVaultLedger(ctx, tx, p); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, queryTouchVault, p.At, p.VaultId); err != nil {
		return fmt.Errorf("failed to refresh activity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit withdrawal: %w", err)
	}
	return nil
}

func (s *Service) debitVaultLedger(ctx context.Context, tx *sql.Tx, p store.WithdrawalParams) error {
	switch {
	case p.FromFeeReserve:
		return s.adjustColumn(ctx, tx, queryUpdateVaultFeeDeposit, p.VaultId, `SELECT fee_deposit FROM vaults WHERE id = ?`, p.Amount.Neg())
	case p.Asset.Kind == assets.Native:
		return s.adjustColumn(ctx, tx, queryUpdateVaultBalance, p.VaultId, `SELECT balance FROM vaults WHERE id = ?`, p.Amount.Neg())
	case p.Asset.Kind == assets.Fungible:
		contract := assets.AddressAccount(p.Asset.Contract)
		var balanceStr string
		if err := tx.QueryRowContext(ctx, queryGetVaultToken, p.VaultId, contract).Scan(&balanceStr); err != nil {
			return fmt.Errorf("token not held by vault: %w", err)
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return fmt.Errorf("failed to parse token balance %q: %w", balanceStr, err)
		}
		next := balance.Sub(p.Amount)
		if next.IsNegative() {
			return fmt.Errorf("token balance would go negative: %s - %s", balanceStr, p.Amount.String())
		}
		if next.IsZero() {
			_, err = tx.ExecContext(ctx, queryDeleteVaultToken, p.VaultId, contract)
		} else {
			_, err = tx.ExecContext(ctx, queryUpdateVaultToken, next.String(), p.VaultId, contract)
		}
		return err
	case p.Asset.Kind == assets.NonFungible:
		contract := assets.AddressAccount(p.Asset.Contract)
		result, err := tx.ExecContext(ctx, queryDeleteVaultNFT, p.VaultId, contract, p.Asset.TokenId)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("nft %s:%s not held by vault", contract, p.Asset.TokenId)
		}
		return nil
	case p.Asset.Kind == assets.SemiFungible:
		contract := assets.AddressAccount(p.Asset.Contract)
		var balanceStr string
		if err := tx.QueryRowContext(ctx, queryGetVaultSFT, p.VaultId, contract, p.Asset.TokenId).Scan(&balanceStr); err != nil {
			return fmt.Errorf("sft not held by vault: %w", err)
		}
		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return fmt.Errorf("failed to parse sft balance %q: %w", balanceStr, err)
		}
		next := balance.Sub(p.Amount)
		if next.IsNegative() {
			return fmt.Errorf("sft balance would go negative: %s - %s", balanceStr, p.Amount.String())
		}
		if next.IsZero() {
			_, err = tx.ExecContext(ctx, queryDeleteVaultSFT, p.VaultId, contract, p.Asset.TokenId)
		} else {
			_, err = tx.ExecContext(ctx, queryUpdateVaultSFT, next.String(), p.VaultId, contract, p.Asset.TokenId)
		}
		return err
	default:
		return fmt.Errorf("unsupported asset kind %v", p.Asset.Kind)
	}
}

// ApplyDistribution persists a whole distribution (or emergency withdrawal)
// outcome atomically: the executed flag, the NFT fee from the reserve, every
// planned movement and the cleared asset ledgers commit together or not at
// all. Best-effort movements that fail to book are skipped with a warning.
func (s *Service) ApplyDistribution(ctx context.Context, plan store.DistributionPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, queryMarkExecuted, plan.VaultId)
	if err != nil {
		return fmt.Errorf("failed to mark vault executed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("vault %s already executed or missing", plan.VaultId)
	}

	native := assets.NativeAsset().Id()
	if plan.NFTFee.IsPositive() {
		err = s.subledger.bookMovementInTx(ctx, tx, bookMovementParams{
			From: assets.FeeReserveAccount(plan.VaultId), To: assets.AddressAccount(plan.FeeSink),
			Asset: native, Amount: plan.NFTFee, TransactionType: "nft_fee",
			ExternalTxId: plan.VaultId + "-nftfee", VaultId: plan.VaultId,
		})
		if err != nil {
			return err
		}
		err = s.adjustColumn(ctx, tx, queryUpdateVaultFeeDeposit, plan.VaultId, `SELECT fee_deposit FROM vaults WHERE id = ?`, plan.NFTFee.Neg())
		if err != nil {
			return err
		}
	}

	tag := "dist"
	if plan.Emergency {
		tag = "exit"
	}
	for i, mv := range plan.Movements {
		from := assets.VaultAccount(plan.VaultId)
		if mv.FromReserve {
			from = assets.FeeReserveAccount(plan.VaultId)
		}
		err := s.subledger.bookMovementInTx(ctx, tx, bookMovementParams{
			From: from, To: mv.To, Asset: mv.Asset.Id(),
			Amount: mv.Amount, TransactionType: mv.Kind,
			ExternalTxId: fmt.Sprintf("%s-%s-%d", plan.VaultId, tag, i),
			VaultId:      plan.VaultId, Reference: mv.Reference,
		})
		if err != nil {
			if mv.BestEffort {
				// Fee collection is soft, heir payout is hard.
				zap.L().Warn("Best-effort movement failed, skipping",
					zap.String("vault_id", plan.VaultId),
					zap.String("kind", mv.Kind),
					zap.String("to", mv.To),
					zap.Error(err))
				continue
			}
			return fmt.Errorf("failed to book %s movement: %w", mv.Kind, err)
		}
	}

	// Clear the distributed ledgers.
	if _, err := tx.ExecContext(ctx, queryUpdateVaultBalance, "0", plan.VaultId); err != nil {
		return fmt.Errorf("failed to clear balance: %w", err)
	}
	if plan.Emergency {
		if _, err := tx.ExecContext(ctx, queryUpdateVaultFeeDeposit, "0", plan.VaultId); err != nil {
			return fmt.Errorf("failed to clear fee deposit: %w", err)
		}
	}
	for _, q := range []string{queryDeleteVaultTokens, queryDeleteVaultNFTs, queryDeleteVaultSFTs} {
		if _, err := tx.ExecContext(ctx, q, plan.VaultId); err != nil {
			return fmt.Errorf("failed to clear asset ledgers: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit distribution: %w", err)
	}
	return nil
}

// VaultsByOwner returns the append-only list of vault ids created by an owner.
func (s *Service) VaultsByOwner(ctx context.Context, owner common.Address) ([]string, error) {
	return s.vaultsByRole(ctx, "owner", owner)
}

// VaultsByHeir returns the append-only list of vault ids an heir stands to
// inherit from, including already-executed vaults (historical record).
func (s *Service) VaultsByHeir(ctx context.Context, heir common.Address) ([]string, error) {
	return s.vaultsByRole(ctx, "heir", heir)
}

func (s *Service) vaultsByRole(ctx context.Context, role string, account common.Address) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryVaultsByRole, role, strings.ToLower(account.Hex()))
	if err != nil {
		return nil, fmt.Errorf("failed to query factory index: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vault id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
