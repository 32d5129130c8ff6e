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

package factory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/registry"
	"inheritance-vault-go/internal/store"
	"inheritance-vault-go/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateVaultParams describes one vault creation request. Deposit is the full
// native value sent along; the factory carves the NFT fee reserve and the
// creation fee out of it and the rest becomes the vault balance.
type CreateVaultParams struct {
	Owner            common.Address
	Heirs            []models.Heir
	InactivityPeriod time.Duration
	NFTEstimate      int64
	Deposit          decimal.Decimal
	ExternalTxId     string
}

// Factory creates fully configured vaults and hands them to the registry for
// batch tracking. It also fronts the append-only owner and heir indexes.
type Factory struct {
	store    store.VaultStore
	registry *registry.Registry
	params   models.ProtocolParams
	clock    clockwork.Clock
	account  common.Address
}

func New(st store.VaultStore, reg *registry.Registry, params models.ProtocolParams, clock clockwork.Clock, account common.Address) *Factory {
	return &Factory{
		store:    st,
		registry: reg,
		params:   params,
		clock:    clock,
		account:  account,
	}
}

// reserveFor sizes the NFT fee reserve from the owner's item estimate:
// max(minimum, estimate * perItem), zero when no items are expected.
func (f *Factory) reserveFor(estimate int64) decimal.Decimal {
	if estimate <= 0 {
		return decimal.Zero
	}
	reserve := f.params.NFTFeePerItem.Mul(decimal.NewFromInt(estimate))
	if reserve.LessThan(f.params.NFTFeeMinimum) {
		return f.params.NFTFeeMinimum
	}
	return reserve
}

// CreateVault validates the configuration, splits the funding deposit into
// reserve, creation fee and net balance, persists the vault and registers it
// for batch tracking. The split always round-trips:
// reserve + fee + net == deposit.
func (f *Factory) CreateVault(ctx context.Context, p CreateVaultParams) (*models.Vault, error) {
	if p.Owner == (common.Address{}) {
		return nil, fmt.Errorf("%w: owner", vault.ErrZeroAddress)
	}
	if err := vault.ValidateHeirs(p.Heirs); err != nil {
		return nil, err
	}
	if err := vault.ValidatePeriod(p.InactivityPeriod); err != nil {
		return nil, err
	}
	if !p.Deposit.IsPositive() {
		return nil, fmt.Errorf("%w: funding deposit %s", vault.ErrInsufficientValue, p.Deposit.String())
	}

	reserve := f.reserveFor(p.NFTEstimate)
	if p.Deposit.LessThan(reserve) {
		return nil, fmt.Errorf("%w: deposit %s below required reserve %s",
			vault.ErrInsufficientValue, p.Deposit.String(), reserve.String())
	}
	fee := vault.PercentOf(p.Deposit.Sub(reserve), f.params.CreationFeeBps)
	net := p.Deposit.Sub(reserve).Sub(fee)

	now := f.clock.Now()
	v := &models.Vault{
		Id:               uuid.New().String(),
		Owner:            p.Owner,
		Heirs:            p.Heirs,
		InactivityPeriod: p.InactivityPeriod,
		LastActiveAt:     now,
		Balance:          net,
		FeeDeposit:       reserve,
		FeeRequired:      reserve,
		CreatedAt:        now,
	}

	extId := p.ExternalTxId
	if extId == "" {
		extId = "create-" + v.Id
	}
	err := f.store.CreateVault(ctx, v, store.FundingParams{
		From:         p.Owner,
		Deposit:      p.Deposit,
		CreationFee:  fee,
		FeeReserve:   reserve,
		FeeSink:      f.params.FeeSink,
		ExternalTxId: extId,
	})
	if err != nil {
		if errors.Is(err, store.ErrVaultExists) {
			return nil, fmt.Errorf("%w: %s", vault.ErrAlreadyInitialized, v.Id)
		}
		return nil, err
	}

	if f.registry != nil {
		if err := f.registry.Register(ctx, v.Id, f.account); err != nil {
			// The vault exists and works; it just is not scanned until
			// its owner registers it.
			zap.L().Error("Failed to register new vault for tracking",
				zap.String("vault_id", v.Id), zap.Error(err))
		}
	}

	zap.L().Info("Vault created",
		zap.String("vault_id", v.Id),
		zap.String("owner", p.Owner.Hex()),
		zap.Int("heirs", len(p.Heirs)),
		zap.String("balance", net.String()),
		zap.String("fee_reserve", reserve.String()),
		zap.String("creation_fee", fee.String()))
	return v, nil
}

// VaultsByOwner lists every vault an address ever created, executed ones
// included.
func (f *Factory) VaultsByOwner(ctx context.Context, owner common.Address) ([]string, error) {
	return f.store.VaultsByOwner(ctx, owner)
}

// VaultsByHeir lists every vault an address was ever named heir of.
func (f *Factory) VaultsByHeir(ctx context.Context, heir common.Address) ([]string, error) {
	return f.store.VaultsByHeir(ctx, heir)
}
