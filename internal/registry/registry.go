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

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/store"
	"inheritance-vault-go/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BatchSize caps how many vaults one Check pass inspects, so a cycle stays
// cheap no matter how many vaults are tracked.
const BatchSize = 20

var ErrAlreadyRegistered = errors.New("vault already registered")

// Registry tracks live vaults in a dense array with a persistent scan cursor.
// Removal is swap-remove: the last entry moves into the freed slot, so the
// array stays dense and removal is O(1). Full coverage of n vaults therefore
// takes at most ceil(n / BatchSize) Check cycles, though a removal can shuffle
// an unvisited vault behind the cursor until the next wrap.
type Registry struct {
	mu     sync.RWMutex
	vaults []string
	index  map[string]int
	owners map[string]common.Address
	cursor int

	store   store.VaultStore
	engine  *vault.Engine
	params  models.ProtocolParams
	factory common.Address
}

// New loads the persisted tracking state. A stored cursor that no longer
// points inside the array restarts at zero.
func New(ctx context.Context, st store.VaultStore, engine *vault.Engine, params models.ProtocolParams, factory common.Address) (*Registry, error) {
	entries, cursor, err := st.LoadRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry state: %w", err)
	}

	r := &Registry{
		vaults:  make([]string, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
		owners:  make(map[string]common.Address, len(entries)),
		store:   st,
		engine:  engine,
		params:  params,
		factory: factory,
	}
	for i, e := range entries {
		r.vaults = append(r.vaults, e.VaultId)
		r.index[e.VaultId] = i
		r.owners[e.VaultId] = e.Owner
	}
	if cursor < 0 || cursor >= len(r.vaults) {
		cursor = 0
	}
	r.cursor = cursor

	zap.L().Info("Registry loaded",
		zap.Int("tracked_vaults", len(r.vaults)),
		zap.Int("cursor", r.cursor))
	return r, nil
}

// DistributionFeeBps implements vault.FeeRateProvider.
func (r *Registry) DistributionFeeBps(ctx context.Context) (int64, error) {
	return r.params.DistributionFeeBps, nil
}

// NFTFeeSchedule implements vault.FeeRateProvider.
func (r *Registry) NFTFeeSchedule() (decimal.Decimal, decimal.Decimal) {
	return r.params.NFTFeePerItem, r.params.NFTFeeMinimum
}

// FeeSink implements vault.FeeRateProvider.
func (r *Registry) FeeSink() common.Address {
	return r.params.FeeSink
}

// VaultExecuted implements vault.Tracker: a vault that reached its terminal
// state drops out of tracking. Safe to call for untracked vaults.
func (r *Registry) VaultExecuted(ctx context.Context, vaultId string) {
	if err := r.remove(ctx, vaultId); err != nil {
		zap.L().Error("Failed to untrack executed vault",
			zap.String("vault_id", vaultId), zap.Error(err))
	}
}

// Register adds a vault to batch tracking. Allowed for the factory account
// and the vault's owner.
func (r *Registry) Register(ctx context.Context, vaultId string, caller common.Address) error {
	if caller == (common.Address{}) {
		return vault.ErrZeroAddress
	}
	v, err := r.store.GetVault(ctx, vaultId)
	if err != nil {
		return err
	}
	if v.Executed {
		return fmt.Errorf("%w: %s", vault.ErrAlreadyExecuted, vaultId)
	}
	if caller != r.factory && caller != v.Owner {
		return fmt.Errorf("%w: %s may not register %s", vault.ErrUnauthorized, caller.Hex(), vaultId)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[vaultId]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, vaultId)
	}

	entry := models.RegistryEntry{VaultId: vaultId, Owner: v.Owner, Active: true}
	if err := r.store.AppendRegistryEntry(ctx, entry); err != nil {
		return err
	}
	r.index[vaultId] = len(r.vaults)
	r.vaults = append(r.vaults, vaultId)
	r.owners[vaultId] = v.Owner

	zap.L().Info("Vault registered",
		zap.String("vault_id", vaultId),
		zap.Int("tracked_vaults", len(r.vaults)))
	return nil
}

// Unregister removes a vault from tracking on request of its owner or the
// factory account. The vault itself keeps working; it just stops being
// scanned for automatic distribution.
func (r *Registry) Unregister(ctx context.Context, vaultId string, caller common.Address) error {
	if caller == (common.Address{}) {
		return vault.ErrZeroAddress
	}
	if caller != r.factory {
		r.mu.RLock()
		owner, tracked := r.owners[vaultId]
		r.mu.RUnlock()
		if !tracked {
			return fmt.Errorf("%w: %s", store.ErrVaultNotFound, vaultId)
		}
		if caller != owner {
			return fmt.Errorf("%w: %s may not unregister %s", vault.ErrUnauthorized, caller.Hex(), vaultId)
		}
	}
	return r.remove(ctx, vaultId)
}

// remove performs the swap-remove, persisting first so a storage failure
// leaves memory and database consistent. Idempotent.
func (r *Registry) remove(ctx context.Context, vaultId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[vaultId]
	if !ok {
		return nil
	}
	last := len(r.vaults) - 1
	lastId := r.vaults[last]

	if err := r.store.SwapRemoveRegistryEntry(ctx, vaultId, lastId, pos); err != nil {
		return err
	}

	r.vaults[pos] = lastId
	r.index[lastId] = pos
	r.vaults = r.vaults[:last]
	delete(r.index, vaultId)
	delete(r.owners, vaultId)
	if r.cursor >= len(r.vaults) {
		r.cursor = 0
	}
	return nil
}

// Check inspects up to BatchSize vaults starting at the cursor and returns
// the ones whose inactivity period has elapsed, plus the cursor value for the
// next cycle. A vault whose state cannot be read is skipped, not treated as
// ready. Check itself mutates nothing; Execute advances the cursor.
func (r *Registry) Check(ctx context.Context) ([]string, int, error) {
	r.mu.RLock()
	start := r.cursor
	if start >= len(r.vaults) {
		start = 0
	}
	end := start + BatchSize
	if end > len(r.vaults) {
		end = len(r.vaults)
	}
	window := append([]string(nil), r.vaults[start:end]...)
	r.mu.RUnlock()

	var ready []string
	for _, id := range window {
		ok, err := r.engine.CanDistribute(ctx, id)
		if err != nil {
			zap.L().Warn("Skipping unreadable vault during scan",
				zap.String("vault_id", id), zap.Error(err))
			continue
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready, end, nil
}

// Execute distributes the vaults found ready by a previous Check and then
// advances the persisted cursor. Every candidate is re-validated: the list may
// be stale and an owner may have pinged in between. One failed vault does not
// stop the rest; it stays tracked for a later cycle. A nextCursor outside
// [0, len) wraps to zero, so a scan that reached the end of the array restarts
// at the front on the next cycle.
func (r *Registry) Execute(ctx context.Context, ready []string, nextCursor int) (int, error) {
	processed := 0
	for _, id := range ready {
		r.mu.RLock()
		_, tracked := r.index[id]
		r.mu.RUnlock()
		if !tracked {
			continue
		}

		ok, err := r.engine.CanDistribute(ctx, id)
		if err != nil || !ok {
			continue
		}

		if _, err := r.engine.Distribute(ctx, id); err != nil {
			zap.L().Warn("Distribution failed, vault stays tracked",
				zap.String("vault_id", id), zap.Error(err))
			continue
		}
		// The engine's tracker callback normally untracks the vault; this is
		// a no-op then.
		if err := r.remove(ctx, id); err != nil {
			zap.L().Error("Failed to untrack distributed vault",
				zap.String("vault_id", id), zap.Error(err))
		}
		processed++
	}

	r.mu.Lock()
	if nextCursor < 0 || nextCursor >= len(r.vaults) {
		nextCursor = 0
	}
	r.cursor = nextCursor
	cur := r.cursor
	r.mu.Unlock()

	if err := r.store.SaveCursor(ctx, cur); err != nil {
		return processed, fmt.Errorf("failed to persist cursor: %w", err)
	}
	return processed, nil
}

// Len returns the number of tracked vaults.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vaults)
}

// Cursor returns the current scan position.
func (r *Registry) Cursor() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cursor
}

// Tracked reports whether a vault is currently under batch tracking.
func (r *Registry) Tracked(vaultId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[vaultId]
	return ok
}

// Vaults returns a page of tracked vault ids in array order.
func (r *Registry) Vaults(offset, limit int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset < 0 || offset >= len(r.vaults) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(r.vaults) {
		end = len(r.vaults)
	}
	return append([]string(nil), r.vaults[offset:end]...)
}
