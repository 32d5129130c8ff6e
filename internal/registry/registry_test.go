package registry_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"inheritance-vault-go/internal/database"
	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/registry"
	"inheritance-vault-go/internal/store"
	"inheritance-vault-go/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	regOwner   = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	regHeir    = common.HexToAddress("0xbbbb000000000000000000000000000000000001")
	regFactory = common.HexToAddress("0xfac7000000000000000000000000000000000001")
	regSink    = common.HexToAddress("0xffff000000000000000000000000000000000001")
)

type registryFixture struct {
	store    *database.Service
	clock    *clockwork.FakeClock
	engine   *vault.Engine
	registry *registry.Registry
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()

	svc, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         t.TempDir() + "/vaults.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	engine := vault.NewEngine(svc, clock)

	params := models.ProtocolParams{
		DistributionFeeBps: 20,
		NFTFeePerItem:      decimal.NewFromInt(100),
		NFTFeeMinimum:      decimal.NewFromInt(250),
		FeeSink:            regSink,
	}
	reg, err := registry.New(context.Background(), svc, engine, params, regFactory)
	require.NoError(t, err)
	engine.Attach(reg, reg)

	return &registryFixture{store: svc, clock: clock, engine: engine, registry: reg}
}

func (f *registryFixture) createVault(t *testing.T, id string, period time.Duration) {
	t.Helper()
	v := &models.Vault{
		Id:               id,
		Owner:            regOwner,
		Heirs:            []models.Heir{{Address: regHeir, Bps: 10000}},
		InactivityPeriod: period,
		LastActiveAt:     f.clock.Now(),
		Balance:          decimal.NewFromInt(1000),
		CreatedAt:        f.clock.Now(),
	}
	err := f.store.CreateVault(context.Background(), v, store.FundingParams{
		From:         regOwner,
		Deposit:      decimal.NewFromInt(1000),
		FeeSink:      regSink,
		ExternalTxId: "fund-" + id,
	})
	require.NoError(t, err)
}

func (f *registryFixture) createAndRegister(t *testing.T, id string, period time.Duration) {
	t.Helper()
	f.createVault(t, id, period)
	require.NoError(t, f.registry.Register(context.Background(), id, regFactory))
}

func TestRegisterAuthorization(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 90*24*time.Hour)

	stranger := common.HexToAddress("0x1234000000000000000000000000000000000001")
	assert.ErrorIs(t, f.registry.Register(ctx, "v1", stranger), vault.ErrUnauthorized)
	assert.ErrorIs(t, f.registry.Register(ctx, "v1", common.Address{}), vault.ErrZeroAddress)

	// Owner may self-register.
	require.NoError(t, f.registry.Register(ctx, "v1", regOwner))
	assert.ErrorIs(t, f.registry.Register(ctx, "v1", regFactory), registry.ErrAlreadyRegistered)
	assert.True(t, f.registry.Tracked("v1"))
}

func TestUnregister(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.createAndRegister(t, "v1", 90*24*time.Hour)
	f.createAndRegister(t, "v2", 90*24*time.Hour)

	stranger := common.HexToAddress("0x1234000000000000000000000000000000000001")
	assert.ErrorIs(t, f.registry.Unregister(ctx, "v1", stranger), vault.ErrUnauthorized)

	require.NoError(t, f.registry.Unregister(ctx, "v1", regOwner))
	assert.False(t, f.registry.Tracked("v1"))
	assert.Equal(t, 1, f.registry.Len())

	// Removing an untracked vault is a no-op.
	require.NoError(t, f.registry.Unregister(ctx, "v2", regFactory))
	require.NoError(t, f.registry.Unregister(ctx, "v2", regFactory))
	assert.Equal(t, 0, f.registry.Len())
}

func TestSwapRemoveKeepsArrayDense(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.createAndRegister(t, fmt.Sprintf("v%d", i), 90*24*time.Hour)
	}

	// Removing the middle entry moves the last one into its slot.
	require.NoError(t, f.registry.Unregister(ctx, "v2", regFactory))
	assert.Equal(t, []string{"v0", "v1", "v4", "v3"}, f.registry.Vaults(0, 0))

	// Removing the last entry needs no move.
	require.NoError(t, f.registry.Unregister(ctx, "v3", regFactory))
	assert.Equal(t, []string{"v0", "v1", "v4"}, f.registry.Vaults(0, 0))
}

func TestRegistryPersistsAcrossReload(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		f.createAndRegister(t, fmt.Sprintf("v%d", i), 90*24*time.Hour)
	}
	require.NoError(t, f.registry.Unregister(ctx, "v1", regFactory))
	_, err := f.registry.Execute(ctx, nil, 2)
	require.NoError(t, err)

	// A fresh registry over the same store sees identical state.
	reloaded, err := registry.New(ctx, f.store, f.engine, models.ProtocolParams{}, regFactory)
	require.NoError(t, err)
	assert.Equal(t, f.registry.Vaults(0, 0), reloaded.Vaults(0, 0))
	assert.Equal(t, 2, reloaded.Cursor())
}

func TestCheckBatchWindow(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	for i := 0; i < 45; i++ {
		f.createAndRegister(t, fmt.Sprintf("v%02d", i), 90*24*time.Hour)
	}

	// Nothing is ready yet; the window still caps at BatchSize.
	ready, next, err := f.registry.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.Equal(t, registry.BatchSize, next)

	_, err = f.registry.Execute(ctx, ready, next)
	require.NoError(t, err)
	assert.Equal(t, 20, f.registry.Cursor())

	// Second window covers 20..40, third the remaining 5.
	_, next, err = f.registry.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40, next)
	_, err = f.registry.Execute(ctx, nil, next)
	require.NoError(t, err)

	_, next, err = f.registry.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45, next)

	// Completing the pass wraps the cursor so the next cycle scans from the
	// front again instead of parking at the end of the array.
	_, err = f.registry.Execute(ctx, nil, next)
	require.NoError(t, err)
	assert.Equal(t, 0, f.registry.Cursor())
}

func TestScanResumesAfterIdlePass(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	total := registry.BatchSize + 5
	for i := 0; i < total; i++ {
		f.createAndRegister(t, fmt.Sprintf("v%02d", i), 24*time.Hour)
	}

	// A full idle pass: nothing is ready, the cursor walks to the end of the
	// array and must come back to zero.
	for i := 0; i < 2; i++ {
		ready, next, err := f.registry.Check(ctx)
		require.NoError(t, err)
		require.Empty(t, ready)
		_, err = f.registry.Execute(ctx, ready, next)
		require.NoError(t, err)
	}
	require.Equal(t, 0, f.registry.Cursor())

	// Every vault expires after the idle pass. Two more cycles cover the
	// whole set again and distribute everything.
	f.clock.Advance(48 * time.Hour)
	for i := 0; i < 2; i++ {
		ready, next, err := f.registry.Check(ctx)
		require.NoError(t, err)
		_, err = f.registry.Execute(ctx, ready, next)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, f.registry.Len())
}

func TestExecuteDistributesAndUntracks(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.createAndRegister(t, "expired", 24*time.Hour)
	f.createAndRegister(t, "active", 90*24*time.Hour)

	f.clock.Advance(48 * time.Hour)

	ready, next, err := f.registry.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"expired"}, ready)

	processed, err := f.registry.Execute(ctx, ready, next)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	assert.False(t, f.registry.Tracked("expired"))
	assert.True(t, f.registry.Tracked("active"))

	v, err := f.engine.GetVault(ctx, "expired")
	require.NoError(t, err)
	assert.True(t, v.Executed)
}

func TestExecuteRevalidatesStaleCandidates(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.createAndRegister(t, "v1", 24*time.Hour)

	f.clock.Advance(48 * time.Hour)
	ready, next, err := f.registry.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"v1"}, ready)

	// Owner pings between Check and Execute.
	require.NoError(t, f.engine.Ping(ctx, "v1", regOwner))

	processed, err := f.registry.Execute(ctx, ready, next)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.True(t, f.registry.Tracked("v1"), "a vault that woke up stays tracked")
}

func TestExecuteToleratesFailedVault(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()

	// Vault with an NFT but an empty fee reserve cannot distribute.
	f.createAndRegister(t, "blocked", 24*time.Hour)
	contract := common.HexToAddress("0xcccc000000000000000000000000000000000001")
	require.NoError(t, f.engine.DepositNFT(ctx, "blocked", regOwner, contract, "1", "nft-1"))

	f.createAndRegister(t, "fine", 24*time.Hour)

	f.clock.Advance(48 * time.Hour)
	ready, next, err := f.registry.Check(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"blocked", "fine"}, ready)

	processed, err := f.registry.Execute(ctx, ready, next)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.True(t, f.registry.Tracked("blocked"), "a failed vault stays tracked for a later cycle")
	assert.False(t, f.registry.Tracked("fine"))
}

func TestCursorWrapsWhenOutOfRange(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.createAndRegister(t, "v1", 90*24*time.Hour)

	_, err := f.registry.Execute(ctx, nil, 99)
	require.NoError(t, err)
	assert.Equal(t, 0, f.registry.Cursor())

	_, err = f.registry.Execute(ctx, nil, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, f.registry.Cursor())
}

func TestEngineCallbackUntracksOnEmergencyWithdraw(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	f.createAndRegister(t, "v1", 90*24*time.Hour)

	require.NoError(t, f.engine.EmergencyWithdraw(ctx, "v1", regOwner))
	assert.False(t, f.registry.Tracked("v1"))
	assert.Equal(t, 0, f.registry.Len())
}
