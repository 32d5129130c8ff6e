package vault_test

import (
	"context"
	"testing"
	"time"

	"inheritance-vault-go/internal/assets"
	"inheritance-vault-go/internal/database"
	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/store"
	"inheritance-vault-go/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testOwner = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	testHeirA = common.HexToAddress("0xbbbb000000000000000000000000000000000001")
	testHeirB = common.HexToAddress("0xbbbb000000000000000000000000000000000002")
	testSink  = common.HexToAddress("0xffff000000000000000000000000000000000001")
)

type stubFees struct {
	bps     int64
	perItem decimal.Decimal
	minimum decimal.Decimal
	sink    common.Address
	err     error
}

func (f *stubFees) DistributionFeeBps(ctx context.Context) (int64, error) { return f.bps, f.err }
func (f *stubFees) NFTFeeSchedule() (decimal.Decimal, decimal.Decimal)    { return f.perItem, f.minimum }
func (f *stubFees) FeeSink() common.Address                               { return f.sink }

type stubTracker struct {
	executed []string
}

func (t *stubTracker) VaultExecuted(ctx context.Context, vaultId string) {
	t.executed = append(t.executed, vaultId)
}

type engineFixture struct {
	engine  *vault.Engine
	store   *database.Service
	clock   *clockwork.FakeClock
	fees    *stubFees
	tracker *stubTracker
}

func newEngineFixture(t *testing.T) *engineFixture {
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
	fees := &stubFees{
		bps:     20,
		perItem: decimal.NewFromInt(100),
		minimum: decimal.NewFromInt(250),
		sink:    testSink,
	}
	tracker := &stubTracker{}

	engine := vault.NewEngine(svc, clock)
	engine.Attach(fees, tracker)

	return &engineFixture{engine: engine, store: svc, clock: clock, fees: fees, tracker: tracker}
}

// createVault seeds a funded vault with a 90-day inactivity period.
func (f *engineFixture) createVault(t *testing.T, id string, balance int64, heirs []models.Heir) {
	t.Helper()

	v := &models.Vault{
		Id:               id,
		Owner:            testOwner,
		Heirs:            heirs,
		InactivityPeriod: 90 * 24 * time.Hour,
		LastActiveAt:     f.clock.Now(),
		Balance:          decimal.NewFromInt(balance),
		CreatedAt:        f.clock.Now(),
	}
	err := f.store.CreateVault(context.Background(), v, store.FundingParams{
		From:         testOwner,
		Deposit:      decimal.NewFromInt(balance),
		FeeSink:      testSink,
		ExternalTxId: "fund-" + id,
	})
	require.NoError(t, err)
}

func (f *engineFixture) balance(t *testing.T, account, asset string) decimal.Decimal {
	t.Helper()
	b, err := f.store.AccountBalance(context.Background(), account, asset)
	require.NoError(t, err)
	return b
}

func singleHeir() []models.Heir {
	return []models.Heir{{Address: testHeirA, Bps: 10000}}
}

func splitHeirs() []models.Heir {
	return []models.Heir{
		{Address: testHeirA, Bps: 6000},
		{Address: testHeirB, Bps: 4000},
	}
}

func TestDistributeSingleHeir(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1_000_000, singleHeir())

	ok, err := f.engine.CanDistribute(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ok, "vault must not be distributable before the period elapses")

	f.clock.Advance(90*24*time.Hour + time.Second)

	ok, err = f.engine.CanDistribute(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, ok)

	result, err := f.engine.Distribute(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, testHeirA, result.FirstHeir)
	assert.True(t, result.TotalFee.Equal(decimal.NewFromInt(2_000)), "20 bps of 1,000,000")

	// 1,000,000 - 2,000 fee = 998,000 to the sole heir.
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirA), "native").Equal(decimal.NewFromInt(998_000)))
	assert.True(t, f.balance(t, assets.AddressAccount(testSink), "native").Equal(decimal.NewFromInt(2_000)))

	v, err := f.engine.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v.Executed)
	assert.True(t, v.Balance.IsZero())
	assert.Equal(t, []string{"v1"}, f.tracker.executed)
}

func TestDistributeSplitTruncation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.fees.bps = 0
	f.createVault(t, "v1", 1001, splitHeirs())

	f.clock.Advance(90*24*time.Hour + time.Minute)

	_, err := f.engine.Distribute(ctx, "v1")
	require.NoError(t, err)

	// 60% and 40% of 1001 truncate to 600 and 400; one base unit stays behind.
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirA), "native").Equal(decimal.NewFromInt(600)))
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirB), "native").Equal(decimal.NewFromInt(400)))
}

func TestDistributeIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1_000_000, singleHeir())
	f.clock.Advance(91 * 24 * time.Hour)

	_, err := f.engine.Distribute(ctx, "v1")
	require.NoError(t, err)

	_, err = f.engine.Distribute(ctx, "v1")
	assert.ErrorIs(t, err, vault.ErrAlreadyExecuted)
}

func TestDistributeStillActive(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1_000_000, singleHeir())
	f.clock.Advance(89 * 24 * time.Hour)

	_, err := f.engine.Distribute(ctx, "v1")
	assert.ErrorIs(t, err, vault.ErrStillActive)
}

func TestDistributeNoAssets(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 0, singleHeir())
	f.clock.Advance(91 * 24 * time.Hour)

	_, err := f.engine.Distribute(ctx, "v1")
	assert.ErrorIs(t, err, vault.ErrNoAssets)
}

func TestPingResetsClock(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1000, singleHeir())

	f.clock.Advance(89 * 24 * time.Hour)
	require.NoError(t, f.engine.Ping(ctx, "v1", testOwner))

	f.clock.Advance(2 * 24 * time.Hour)
	ok, err := f.engine.CanDistribute(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ok, "ping must restart the inactivity window")

	f.clock.Advance(89 * 24 * time.Hour)
	ok, err = f.engine.CanDistribute(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPingUnauthorized(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1000, singleHeir())

	assert.ErrorIs(t, f.engine.Ping(ctx, "v1", testHeirA), vault.ErrUnauthorized)
	assert.ErrorIs(t, f.engine.Ping(ctx, "v1", common.Address{}), vault.ErrZeroAddress)
}

func TestDepositRefreshesActivity(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1000, singleHeir())

	f.clock.Advance(89 * 24 * time.Hour)
	require.NoError(t, f.engine.DepositNative(ctx, "v1", testOwner, decimal.NewFromInt(500), "dep-1"))

	f.clock.Advance(2 * 24 * time.Hour)
	ok, err := f.engine.CanDistribute(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := f.engine.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v.Balance.Equal(decimal.NewFromInt(1500)))
}

func TestDuplicateDepositRejected(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1000, singleHeir())

	require.NoError(t, f.engine.DepositNative(ctx, "v1", testOwner, decimal.NewFromInt(10), "dup-tx"))
	err := f.engine.DepositNative(ctx, "v1", testOwner, decimal.NewFromInt(10), "dup-tx")
	assert.ErrorIs(t, err, store.ErrDuplicateTransaction)
}

func TestWithdrawNative(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1000, singleHeir())

	require.NoError(t, f.engine.WithdrawNative(ctx, "v1", testOwner, decimal.NewFromInt(300), "wd-1"))

	v, err := f.engine.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v.Balance.Equal(decimal.NewFromInt(700)))

	err = f.engine.WithdrawNative(ctx, "v1", testOwner, decimal.NewFromInt(701), "wd-2")
	assert.ErrorIs(t, err, vault.ErrInsufficientValue)
}

func TestNFTFeeBlocksDistributionUntilToppedUp(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 10_000, singleHeir())

	contract := common.HexToAddress("0xcccc000000000000000000000000000000000001")
	require.NoError(t, f.engine.DepositNFT(ctx, "v1", testOwner, contract, "7", "nft-1"))

	f.clock.Advance(91 * 24 * time.Hour)

	// Reserve is empty, minimum fee is 250.
	_, err := f.engine.Distribute(ctx, "v1")
	assert.ErrorIs(t, err, vault.ErrInsufficientFeeBalance)

	// The vault stays live and distributable after a top-up.
	v, err := f.engine.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, v.Executed)

	require.NoError(t, f.engine.DepositFeeReserve(ctx, "v1", testOwner, decimal.NewFromInt(250), "res-1"))
	f.clock.Advance(91 * 24 * time.Hour)

	result, err := f.engine.Distribute(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, result.TotalFee.GreaterThanOrEqual(decimal.NewFromInt(250)))

	// The NFT went to the only heir.
	nftAsset := assets.NonFungibleAsset(contract, "7").Id()
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirA), nftAsset).Equal(decimal.NewFromInt(1)))
}

func TestWithdrawFeeReserveBlockedWhileNFTsHeld(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 10_000, singleHeir())

	require.NoError(t, f.engine.DepositFeeReserve(ctx, "v1", testOwner, decimal.NewFromInt(500), "res-1"))

	contract := common.HexToAddress("0xcccc000000000000000000000000000000000001")
	require.NoError(t, f.engine.DepositNFT(ctx, "v1", testOwner, contract, "1", "nft-1"))

	err := f.engine.WithdrawFeeReserve(ctx, "v1", testOwner, decimal.NewFromInt(100), "wd-1")
	assert.ErrorIs(t, err, vault.ErrCannotWithdrawWithNFTs)

	// After the item leaves, the reserve is withdrawable again.
	require.NoError(t, f.engine.WithdrawNFT(ctx, "v1", testOwner, contract, "1", "wd-nft"))
	require.NoError(t, f.engine.WithdrawFeeReserve(ctx, "v1", testOwner, decimal.NewFromInt(100), "wd-2"))
}

func TestDistributeTokensAndSemiFungibles(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.fees.bps = 100 // 1%
	f.createVault(t, "v1", 0, splitHeirs())

	token := common.HexToAddress("0xdddd000000000000000000000000000000000001")
	sft := common.HexToAddress("0xeeee000000000000000000000000000000000001")
	require.NoError(t, f.engine.DepositToken(ctx, "v1", testOwner, token, decimal.NewFromInt(10_000), "tok-1"))
	require.NoError(t, f.engine.DepositSemiFungible(ctx, "v1", testOwner, sft, "5", decimal.NewFromInt(100), "sft-1"))

	f.clock.Advance(91 * 24 * time.Hour)
	_, err := f.engine.Distribute(ctx, "v1")
	require.NoError(t, err)

	tokenId := assets.FungibleAsset(token).Id()
	// 1% fee = 100, remainder 9,900 splits 5,940 / 3,960.
	assert.True(t, f.balance(t, assets.AddressAccount(testSink), tokenId).Equal(decimal.NewFromInt(100)))
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirA), tokenId).Equal(decimal.NewFromInt(5_940)))
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirB), tokenId).Equal(decimal.NewFromInt(3_960)))

	// Semi-fungibles split without a fee.
	sftId := assets.SemiFungibleAsset(sft, "5").Id()
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirA), sftId).Equal(decimal.NewFromInt(60)))
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirB), sftId).Equal(decimal.NewFromInt(40)))
}

func TestDistributeFeeLookupFailureIsFailOpen(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.fees.err = context.DeadlineExceeded
	f.createVault(t, "v1", 1_000_000, singleHeir())
	f.clock.Advance(91 * 24 * time.Hour)

	result, err := f.engine.Distribute(ctx, "v1")
	require.NoError(t, err, "a broken fee source must not block the payout")
	assert.True(t, result.TotalFee.IsZero())
	assert.True(t, f.balance(t, assets.AddressAccount(testHeirA), "native").Equal(decimal.NewFromInt(1_000_000)))
}

func TestEmergencyWithdraw(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 5_000, singleHeir())
	require.NoError(t, f.engine.DepositFeeReserve(ctx, "v1", testOwner, decimal.NewFromInt(300), "res-1"))

	contract := common.HexToAddress("0xcccc000000000000000000000000000000000001")
	require.NoError(t, f.engine.DepositNFT(ctx, "v1", testOwner, contract, "9", "nft-1"))

	require.NoError(t, f.engine.EmergencyWithdraw(ctx, "v1", testOwner))

	v, err := f.engine.GetVault(ctx, "v1")
	require.NoError(t, err)
	assert.True(t, v.Executed)
	assert.True(t, v.Balance.IsZero())
	assert.True(t, v.FeeDeposit.IsZero())
	assert.Empty(t, v.NFTs)

	// Balance and reserve both came back, no fee taken.
	nftAsset := assets.NonFungibleAsset(contract, "9").Id()
	assert.True(t, f.balance(t, assets.AddressAccount(testOwner), nftAsset).Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []string{"v1"}, f.tracker.executed)

	// Terminal: no further owner operations.
	assert.ErrorIs(t, f.engine.Ping(ctx, "v1", testOwner), vault.ErrAlreadyExecuted)
}

func TestEmergencyWithdrawUnauthorized(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 5_000, singleHeir())

	assert.ErrorIs(t, f.engine.EmergencyWithdraw(ctx, "v1", testHeirA), vault.ErrUnauthorized)
}

func TestSetHeirsAndPeriod(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1000, singleHeir())

	require.NoError(t, f.engine.SetHeirs(ctx, "v1", testOwner, splitHeirs()))
	v, err := f.engine.GetVault(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, v.Heirs, 2)
	assert.Equal(t, int64(6000), v.Heirs[0].Bps)

	err = f.engine.SetHeirs(ctx, "v1", testOwner, []models.Heir{{Address: testHeirA, Bps: 9999}})
	assert.ErrorIs(t, err, vault.ErrInvalidHeirPercentages)

	require.NoError(t, f.engine.SetInactivityPeriod(ctx, "v1", testOwner, 30*24*time.Hour))
	err = f.engine.SetInactivityPeriod(ctx, "v1", testOwner, time.Minute)
	assert.ErrorIs(t, err, vault.ErrInvalidPeriod)
}

func TestTimeRemaining(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createVault(t, "v1", 1000, singleHeir())

	remaining, err := f.engine.TimeRemaining(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, remaining)

	f.clock.Advance(30 * 24 * time.Hour)
	remaining, err = f.engine.TimeRemaining(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 60*24*time.Hour, remaining)

	f.clock.Advance(61 * 24 * time.Hour)
	remaining, err = f.engine.TimeRemaining(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), remaining)
}
