package scheduler_test

import (
	"context"
	"testing"
	"time"

	"inheritance-vault-go/internal/database"
	"inheritance-vault-go/internal/models"
	"inheritance-vault-go/internal/registry"
	"inheritance-vault-go/internal/scheduler"
	"inheritance-vault-go/internal/store"
	"inheritance-vault-go/internal/vault"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	schedOwner   = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	schedHeir    = common.HexToAddress("0xbbbb000000000000000000000000000000000001")
	schedFactory = common.HexToAddress("0xfac7000000000000000000000000000000000001")
	schedSink    = common.HexToAddress("0xffff000000000000000000000000000000000001")
)

type schedulerFixture struct {
	store    *database.Service
	clock    *clockwork.FakeClock
	engine   *vault.Engine
	registry *registry.Registry
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
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
		FeeSink:            schedSink,
	}
	reg, err := registry.New(context.Background(), svc, engine, params, schedFactory)
	require.NoError(t, err)
	engine.Attach(reg, reg)

	return &schedulerFixture{store: svc, clock: clock, engine: engine, registry: reg}
}

func (f *schedulerFixture) createAndRegister(t *testing.T, id string, period time.Duration) {
	t.Helper()
	v := &models.Vault{
		Id:               id,
		Owner:            schedOwner,
		Heirs:            []models.Heir{{Address: schedHeir, Bps: 10000}},
		InactivityPeriod: period,
		LastActiveAt:     f.clock.Now(),
		Balance:          decimal.NewFromInt(1000),
		CreatedAt:        f.clock.Now(),
	}
	err := f.store.CreateVault(context.Background(), v, store.FundingParams{
		From:         schedOwner,
		Deposit:      decimal.NewFromInt(1000),
		FeeSink:      schedSink,
		ExternalTxId: "fund-" + id,
	})
	require.NoError(t, err)
	require.NoError(t, f.registry.Register(context.Background(), id, schedFactory))
}

func TestSchedulerRunsImmediateCycle(t *testing.T) {
	f := newSchedulerFixture(t)
	f.createAndRegister(t, "v1", 24*time.Hour)
	f.clock.Advance(48 * time.Hour)

	s := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Registry:        f.registry,
		Clock:           f.clock,
		PollingInterval: 30 * time.Second,
	})
	s.Start(context.Background())
	defer s.Stop()

	// The first cycle runs on startup without waiting for the ticker.
	assert.Eventually(t, func() bool {
		return !f.registry.Tracked("v1")
	}, 2*time.Second, 10*time.Millisecond)

	v, err := f.engine.GetVault(context.Background(), "v1")
	require.NoError(t, err)
	assert.True(t, v.Executed)
}

func TestSchedulerTicksOnInterval(t *testing.T) {
	f := newSchedulerFixture(t)
	f.createAndRegister(t, "v1", 24*time.Hour)

	s := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Registry:        f.registry,
		Clock:           f.clock,
		PollingInterval: time.Minute,
	})
	s.Start(context.Background())
	defer s.Stop()

	// Wait for the poll loop to park on its ticker, then move past the
	// inactivity period. The next tick should pick the vault up.
	f.clock.BlockUntil(1)
	f.clock.Advance(48 * time.Hour)

	assert.Eventually(t, func() bool {
		return !f.registry.Tracked("v1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerStopIsGraceful(t *testing.T) {
	f := newSchedulerFixture(t)

	s := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Registry:        f.registry,
		Clock:           f.clock,
		PollingInterval: 30 * time.Second,
	})
	s.Start(context.Background())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
