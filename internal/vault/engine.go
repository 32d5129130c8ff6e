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

package vault

import (
	"context"
	"fmt"
	"time"

	"inheritance-vault-go/internal/assets"
	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Movement kinds recorded on the subledger.
const (
	kindProtocolFee = "protocol_fee"
	kindHeirPayout  = "heir_payout"
	kindNFTTransfer = "nft_transfer"
	kindOwnerReturn = "owner_return"
)

// FeeRateProvider supplies the protocol fee parameters at distribution time.
// The engine treats a failed rate lookup as zero basis points so a broken fee
// source can never block an inheritance payout.
type FeeRateProvider interface {
	DistributionFeeBps(ctx context.Context) (int64, error)
	NFTFeeSchedule() (perItem, minimum decimal.Decimal)
	FeeSink() common.Address
}

// Tracker is notified when a vault reaches its terminal state so batch
// scanning can stop covering it. Implementations must tolerate repeat calls
// for the same vault.
type Tracker interface {
	VaultExecuted(ctx context.Context, vaultId string)
}

// DistributionResult summarizes one executed distribution.
type DistributionResult struct {
	VaultId    string
	FirstHeir  common.Address
	TotalFee   decimal.Decimal
	Movements  int
	ExecutedAt time.Time
}

// Engine implements the vault lifecycle: owner configuration, deposits,
// withdrawals, the inactivity clock and the terminal distribution. All
// mutations for one vault are serialized through a per-vault lock; persistence
// is atomic per operation through the store.
type Engine struct {
	store   store.VaultStore
	clock   clockwork.Clock
	locks   *keyedMutex
	fees    FeeRateProvider
	tracker Tracker
}

func NewEngine(st store.VaultStore, clock clockwork.Clock) *Engine {
	return &Engine{
		store: st,
		clock: clock,
		locks: newKeyedMutex(),
	}
}

// Attach wires the fee source and execution tracker. Called once during
// startup, before any distribution runs; kept out of NewEngine because the
// registry needs an engine reference first.
func (e *Engine) Attach(fees FeeRateProvider, tracker Tracker) {
	e.fees = fees
	e.tracker = tracker
}

// GetVault returns the current vault aggregate.
func (e *Engine) GetVault(ctx context.Context, vaultId string) (*models.Vault, error) {
	return e.store.GetVault(ctx, vaultId)
}

// loadMutable fetches a vault and checks the preconditions shared by every
// owner operation: known caller, not yet executed, caller is the owner.
func (e *Engine) loadMutable(ctx context.Context, vaultId string, caller common.Address) (*models.Vault, error) {
	if caller == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	v, err := e.store.GetVault(ctx, vaultId)
	if err != nil {
		return nil, err
	}
	if v.Executed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExecuted, vaultId)
	}
	if v.Owner != caller {
		return nil, fmt.Errorf("%w: %s is not the owner of %s", ErrUnauthorized, caller.Hex(), vaultId)
	}
	return v, nil
}

// Ping refreshes the owner's activity timestamp without touching any balance.
func (e *Engine) Ping(ctx context.Context, vaultId string, caller common.Address) error {
	defer e.locks.lock(vaultId)()

	if _, err := e.loadMutable(ctx, vaultId, caller); err != nil {
		return err
	}
	return e.store.TouchVault(ctx, vaultId, e.clock.Now())
}

// SetHeirs replaces the full heir configuration. Counts as activity.
func (e *Engine) SetHeirs(ctx context.Context, vaultId string, caller common.Address, heirs []models.Heir) error {
	defer e.locks.lock(vaultId)()

	if _, err := e.loadMutable(ctx, vaultId, caller); err != nil {
		return err
	}
	if err := ValidateHeirs(heirs); err != nil {
		return err
	}
	return e.store.ReplaceHeirs(ctx, vaultId, heirs, e.clock.Now())
}

// SetInactivityPeriod changes the timeout. The new period is measured from the
// existing LastActiveAt, then this call itself refreshes activity.
func (e *Engine) SetInactivityPeriod(ctx context.Context, vaultId string, caller common.Address, period time.Duration) error {
	defer e.locks.lock(vaultId)()

	if _, err := e.loadMutable(ctx, vaultId, caller); err != nil {
		return err
	}
	if err := ValidatePeriod(period); err != nil {
		return err
	}
	return e.store.SetInactivityPeriod(ctx, vaultId, period, e.clock.Now())
}

// DepositNative adds native value to the distributable balance.
func (e *Engine) DepositNative(ctx context.Context, vaultId string, caller common.Address, amount decimal.Decimal, externalTxId string) error {
	return e.deposit(ctx, vaultId, caller, assets.NativeAsset(), amount, false, externalTxId)
}

// DepositFeeReserve tops up the segregated NFT fee reserve.
func (e *Engine) DepositFeeReserve(ctx context.Context, vaultId string, caller common.Address, amount decimal.Decimal, externalTxId string) error {
	return e.deposit(ctx, vaultId, caller, assets.NativeAsset(), amount, true, externalTxId)
}

// DepositToken adds fungible-token balance.
func (e *Engine) DepositToken(ctx context.Context, vaultId string, caller common.Address, contract common.Address, amount decimal.Decimal, externalTxId string) error {
	if contract == (common.Address{}) {
		return fmt.Errorf("%w: token contract", ErrZeroAddress)
	}
	return e.deposit(ctx, vaultId, caller, assets.FungibleAsset(contract), amount, false, externalTxId)
}

// DepositNFT records custody of one non-fungible item and flips the vault
// into the NFT fee regime.
func (e *Engine) DepositNFT(ctx context.Context, vaultId string, caller common.Address, contract common.Address, tokenId, externalTxId string) error {
	if contract == (common.Address{}) {
		return fmt.Errorf("%w: nft contract", ErrZeroAddress)
	}
	if tokenId == "" {
		return fmt.Errorf("%w: empty token id", ErrInsufficientValue)
	}
	return e.deposit(ctx, vaultId, caller, assets.NonFungibleAsset(contract, tokenId), decimal.NewFromInt(1), false, externalTxId)
}

// DepositSemiFungible adds balance for one (collection, id) pair.
func (e *Engine) DepositSemiFungible(ctx context.Context, vaultId string, caller common.Address, contract common.Address, tokenId string, amount decimal.Decimal, externalTxId string) error {
	if contract == (common.Address{}) {
		return fmt.Errorf("%w: sft contract", ErrZeroAddress)
	}
	return e.deposit(ctx, vaultId, caller, assets.SemiFungibleAsset(contract, tokenId), amount, false, externalTxId)
}

func (e *Engine) deposit(ctx context.Context, vaultId string, caller common.Address, asset assets.Asset, amount decimal.Decimal, toFeeReserve bool, externalTxId string) error {
	defer e.locks.lock(vaultId)()

	if _, err := e.loadMutable(ctx, vaultId, caller); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: deposit amount %s", ErrInsufficientValue, amount.String())
	}

	return e.store.ApplyDeposit(ctx, store.DepositParams{
		VaultId:         vaultId,
		From:            caller,
		Asset:           asset,
		Amount:          amount,
		ToFeeReserve:    toFeeReserve,
		ExternalTxId:    externalTxId,
		At:              e.clock.Now(),
		RefreshActivity: true,
	})
}

// WithdrawNative returns native value from the distributable balance to the
// owner. The fee reserve is untouched.
func (e *Engine) WithdrawNative(ctx context.Context, vaultId string, caller common.Address, amount decimal.Decimal, externalTxId string) error {
	defer e.locks.lock(vaultId)()

	v, err := e.loadMutable(ctx, vaultId, caller)
	if err != nil {
		return err
	}
	if !amount.IsPositive() || amount.GreaterThan(v.Balance) {
		return fmt.Errorf("%w: withdraw %s of balance %s", ErrInsufficientValue, amount.String(), v.Balance.String())
	}
	return e.store.ApplyWithdrawal(ctx, store.WithdrawalParams{
		VaultId: vaultId, To: caller, Asset: assets.NativeAsset(),
		Amount: amount, ExternalTxId: externalTxId, At: e.clock.Now(),
	})
}

// WithdrawFeeReserve returns part of the fee reserve to the owner. Blocked
// while any non-fungible item is held, so the reserve cannot be drained below
// what the eventual NFT fee needs.
func (e *Engine) WithdrawFeeReserve(ctx context.Context, vaultId string, caller common.Address, amount decimal.Decimal, externalTxId string) error {
	defer e.locks.lock(vaultId)()

	v, err := e.loadMutable(ctx, vaultId, caller)
	if err != nil {
		return err
	}
	if len(v.NFTs) > 0 {
		return fmt.Errorf("%w: %d items held", ErrCannotWithdrawWithNFTs, len(v.NFTs))
	}
	if !amount.IsPositive() || amount.GreaterThan(v.FeeDeposit) {
		return fmt.Errorf("%w: withdraw %s of reserve %s", ErrInsufficientFeeDeposit, amount.String(), v.FeeDeposit.String())
	}
	return e.store.ApplyWithdrawal(ctx, store.WithdrawalParams{
		VaultId: vaultId, To: caller, Asset: assets.NativeAsset(),
		Amount: amount, FromFeeReserve: true, ExternalTxId: externalTxId, At: e.clock.Now(),
	})
}

// WithdrawToken returns fungible-token balance to the owner.
func (e *Engine) WithdrawToken(ctx context.Context, vaultId string, caller common.Address, contract common.Address, amount decimal.Decimal, externalTxId string) error {
	defer e.locks.lock(vaultId)()

	v, err := e.loadMutable(ctx, vaultId, caller)
	if err != nil {
		return err
	}
	held := decimal.Zero
	for _, t := range v.Tokens {
		if t.Contract == contract {
			held = t.Balance
			break
		}
	}
	if !amount.IsPositive() || amount.GreaterThan(held) {
		return fmt.Errorf("%w: withdraw %s of token balance %s", ErrInsufficientValue, amount.String(), held.String())
	}
	return e.store.ApplyWithdrawal(ctx, store.WithdrawalParams{
		VaultId: vaultId, To: caller, Asset: assets.FungibleAsset(contract),
		Amount: amount, ExternalTxId: externalTxId, At: e.clock.Now(),
	})
}

// WithdrawNFT returns one non-fungible item to the owner.
func (e *Engine) WithdrawNFT(ctx context.Context, vaultId string, caller common.Address, contract common.Address, tokenId, externalTxId string) error {
	defer e.locks.lock(vaultId)()

	v, err := e.loadMutable(ctx, vaultId, caller)
	if err != nil {
		return err
	}
	held := false
	for _, n := range v.NFTs {
		if n.Contract == contract && n.TokenId == tokenId {
			held = true
			break
		}
	}
	if !held {
		return fmt.Errorf("%w: nft %s:%s not held", ErrInsufficientValue, contract.Hex(), tokenId)
	}
	return e.store.ApplyWithdrawal(ctx, store.WithdrawalParams{
		VaultId: vaultId, To: caller, Asset: assets.NonFungibleAsset(contract, tokenId),
		Amount: decimal.NewFromInt(1), ExternalTxId: externalTxId, At: e.clock.Now(),
	})
}

// WithdrawSemiFungible returns semi-fungible balance to the owner.
func (e *Engine) WithdrawSemiFungible(ctx context.Context, vaultId string, caller common.Address, contract common.Address, tokenId string, amount decimal.Decimal, externalTxId string) error {
	defer e.locks.lock(vaultId)()

	v, err := e.loadMutable(ctx, vaultId, caller)
	if err != nil {
		return err
	}
	held := decimal.Zero
	for _, s := range v.SemiFungibles {
		if s.Contract == contract && s.TokenId == tokenId {
			held = s.Balance
			break
		}
	}
	if !amount.IsPositive() || amount.GreaterThan(held) {
		return fmt.Errorf("%w: withdraw %s of sft balance %s", ErrInsufficientValue, amount.String(), held.String())
	}
	return e.store.ApplyWithdrawal(ctx, store.WithdrawalParams{
		VaultId: vaultId, To: caller, Asset: assets.SemiFungibleAsset(contract, tokenId),
		Amount: amount, ExternalTxId: externalTxId, At: e.clock.Now(),
	})
}

// CanDistribute reports whether the inactivity period has fully elapsed for a
// live vault. The answer is monotonic until an owner action resets the clock.
func (e *Engine) CanDistribute(ctx context.Context, vaultId string) (bool, error) {
	v, err := e.store.GetVault(ctx, vaultId)
	if err != nil {
		return false, err
	}
	return e.distributable(v), nil
}

// TimeRemaining returns how long until the vault becomes distributable, zero
// if it already is or was executed.
func (e *Engine) TimeRemaining(ctx context.Context, vaultId string) (time.Duration, error) {
	v, err := e.store.GetVault(ctx, vaultId)
	if err != nil {
		return 0, err
	}
	if v.Executed {
		return 0, nil
	}
	remaining := v.InactivityPeriod - e.clock.Now().Sub(v.LastActiveAt)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (e *Engine) distributable(v *models.Vault) bool {
	return !v.Executed && e.clock.Now().Sub(v.LastActiveAt) > v.InactivityPeriod
}

// distributionFeeBps resolves the current fee rate. A lookup failure is
// downgraded to zero so the payout still goes through.
func (e *Engine) distributionFeeBps(ctx context.Context) int64 {
	if e.fees == nil {
		return 0
	}
	bps, err := e.fees.DistributionFeeBps(ctx)
	if err != nil {
		zap.L().Warn("Fee rate lookup failed, distributing without fee", zap.Error(err))
		return 0
	}
	return bps
}

// Distribute executes the inheritance payout for an expired vault: protocol
// fees first, then the proportional split across heirs, then item assignment.
// The whole outcome persists atomically and the vault is terminal afterwards.
func (e *Engine) Distribute(ctx context.Context, vaultId string) (*DistributionResult, error) {
	defer e.locks.lock(vaultId)()

	v, err := e.store.GetVault(ctx, vaultId)
	if err != nil {
		return nil, err
	}
	if v.Executed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExecuted, vaultId)
	}
	if !e.distributable(v) {
		return nil, fmt.Errorf("%w: %s", ErrStillActive, vaultId)
	}
	if err := ValidateHeirs(v.Heirs); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	var feeSink common.Address
	var perItem, minimum decimal.Decimal
	if e.fees != nil {
		feeSink = e.fees.FeeSink()
		perItem, minimum = e.fees.NFTFeeSchedule()
	}
	bps := e.distributionFeeBps(ctx)

	plan := store.DistributionPlan{VaultId: vaultId, FeeSink: feeSink, ExecutedAt: now}
	totalFee := decimal.Zero
	payouts := 0

	// NFT fee is checked up front: an underfunded reserve blocks the whole
	// distribution and leaves the vault waiting for a top-up.
	if len(v.NFTs) > 0 {
		fee := nftFee(len(v.NFTs), perItem, minimum)
		if v.FeeDeposit.LessThan(fee) {
			return nil, fmt.Errorf("%w: need %s, reserve holds %s", ErrInsufficientFeeBalance, fee.String(), v.FeeDeposit.String())
		}
		plan.NFTFee = fee
		totalFee = totalFee.Add(fee)
	}

	// Native: fee off the top, truncated, then each heir's truncated share of
	// the remainder. Sub-unit residue stays behind.
	if v.Balance.IsPositive() {
		fee := PercentOf(v.Balance, bps)
		if fee.IsPositive() {
			plan.Movements = append(plan.Movements, store.PlannedMovement{
				To: assets.AddressAccount(feeSink), Asset: assets.NativeAsset(),
				Amount: fee, Kind: kindProtocolFee,
			})
			totalFee = totalFee.Add(fee)
		}
		remainder := v.Balance.Sub(fee)
		for _, h := range v.Heirs {
			share := PercentOf(remainder, h.Bps)
			if !share.IsPositive() {
				continue
			}
			plan.Movements = append(plan.Movements, store.PlannedMovement{
				To: assets.AddressAccount(h.Address), Asset: assets.NativeAsset(),
				Amount: share, Kind: kindHeirPayout,
			})
			payouts++
		}
	}

	// Fungible tokens: the fee transfer is best-effort, heir payouts are hard.
	for _, t := range v.Tokens {
		if !t.Balance.IsPositive() {
			continue
		}
		asset := assets.FungibleAsset(t.Contract)
		fee := PercentOf(t.Balance, bps)
		if fee.IsPositive() {
			plan.Movements = append(plan.Movements, store.PlannedMovement{
				To: assets.AddressAccount(feeSink), Asset: asset,
				Amount: fee, Kind: kindProtocolFee, BestEffort: true,
			})
		}
		remainder := t.Balance.Sub(fee)
		for _, h := range v.Heirs {
			share := PercentOf(remainder, h.Bps)
			if !share.IsPositive() {
				continue
			}
			plan.Movements = append(plan.Movements, store.PlannedMovement{
				To: assets.AddressAccount(h.Address), Asset: asset,
				Amount: share, Kind: kindHeirPayout,
			})
			payouts++
		}
	}

	// Non-fungible items: each goes whole to one heir, weighted by share.
	for _, n := range v.NFTs {
		heir := selectHeir(v.Heirs, n.Contract, n.TokenId, now)
		plan.Movements = append(plan.Movements, store.PlannedMovement{
			To: assets.AddressAccount(heir), Asset: assets.NonFungibleAsset(n.Contract, n.TokenId),
			Amount: decimal.NewFromInt(1), Kind: kindNFTTransfer,
		})
		payouts++
	}

	// Semi-fungible balances split proportionally, no fee.
	for _, s := range v.SemiFungibles {
		if !s.Balance.IsPositive() {
			continue
		}
		asset := assets.SemiFungibleAsset(s.Contract, s.TokenId)
		for _, h := range v.Heirs {
			share := PercentOf(s.Balance, h.Bps)
			if !share.IsPositive() {
				continue
			}
			plan.Movements = append(plan.Movements, store.PlannedMovement{
				To: assets.AddressAccount(h.Address), Asset: asset,
				Amount: share, Kind: kindHeirPayout,
			})
			payouts++
		}
	}

	if payouts == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAssets, vaultId)
	}

	if err := e.store.ApplyDistribution(ctx, plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	e.notifyExecuted(ctx, vaultId)

	result := &DistributionResult{
		VaultId:    vaultId,
		FirstHeir:  v.Heirs[0].Address,
		TotalFee:   totalFee,
		Movements:  len(plan.Movements),
		ExecutedAt: now,
	}
	zap.L().Info("Vault distributed",
		zap.String("vault_id", vaultId),
		zap.String("first_heir", result.FirstHeir.Hex()),
		zap.String("total_fee", totalFee.String()),
		zap.Int("movements", result.Movements))
	return result, nil
}

// EmergencyWithdraw returns every asset, fee reserve included, to the owner
// and retires the vault. No protocol fee applies.
func (e *Engine) EmergencyWithdraw(ctx context.Context, vaultId string, caller common.Address) error {
	defer e.locks.lock(vaultId)()

	v, err := e.loadMutable(ctx, vaultId, caller)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	owner := assets.AddressAccount(v.Owner)
	plan := store.DistributionPlan{VaultId: vaultId, ExecutedAt: now, Emergency: true}

	if v.Balance.IsPositive() {
		plan.Movements = append(plan.Movements, store.PlannedMovement{
			To: owner, Asset: assets.NativeAsset(), Amount: v.Balance, Kind: kindOwnerReturn,
		})
	}
	if v.FeeDeposit.IsPositive() {
		plan.Movements = append(plan.Movements, store.PlannedMovement{
			To: owner, Asset: assets.NativeAsset(), Amount: v.FeeDeposit,
			Kind: kindOwnerReturn, FromReserve: true,
		})
	}
	for _, t := range v.Tokens {
		if !t.Balance.IsPositive() {
			continue
		}
		plan.Movements = append(plan.Movements, store.PlannedMovement{
			To: owner, Asset: assets.FungibleAsset(t.Contract), Amount: t.Balance, Kind: kindOwnerReturn,
		})
	}
	for _, n := range v.NFTs {
		plan.Movements = append(plan.Movements, store.PlannedMovement{
			To: owner, Asset: assets.NonFungibleAsset(n.Contract, n.TokenId),
			Amount: decimal.NewFromInt(1), Kind: kindOwnerReturn,
		})
	}
	for _, s := range v.SemiFungibles {
		if !s.Balance.IsPositive() {
			continue
		}
		plan.Movements = append(plan.Movements, store.PlannedMovement{
			To: owner, Asset: assets.SemiFungibleAsset(s.Contract, s.TokenId),
			Amount: s.Balance, Kind: kindOwnerReturn,
		})
	}

	if err := e.store.ApplyDistribution(ctx, plan); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	e.notifyExecuted(ctx, vaultId)

	zap.L().Info("Emergency withdrawal executed",
		zap.String("vault_id", vaultId),
		zap.String("owner", v.Owner.Hex()),
		zap.Int("movements", len(plan.Movements)))
	return nil
}

func (e *Engine) notifyExecuted(ctx context.Context, vaultId string) {
	if e.tracker != nil {
		e.tracker.VaultExecuted(ctx, vaultId)
	}
}
