package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inheritance-vault-go/internal/api"
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
	apiOwner   = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	apiHeir    = common.HexToAddress("0xbbbb000000000000000000000000000000000001")
	apiFactory = common.HexToAddress("0xfac7000000000000000000000000000000000001")
	apiSink    = common.HexToAddress("0xffff000000000000000000000000000000000001")
)

type apiFixture struct {
	store    *database.Service
	clock    *clockwork.FakeClock
	engine   *vault.Engine
	registry *registry.Registry
	handler  http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
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
		FeeSink:            apiSink,
	}
	reg, err := registry.New(context.Background(), svc, engine, params, apiFactory)
	require.NoError(t, err)
	engine.Attach(reg, reg)

	srv := api.NewServer(models.ServerConfig{ListenAddr: ":0", ShutdownTimeout: time.Second}, engine, reg, svc)
	return &apiFixture{store: svc, clock: clock, engine: engine, registry: reg, handler: srv.Handler()}
}

func (f *apiFixture) createVault(t *testing.T, id string) {
	t.Helper()
	v := &models.Vault{
		Id:               id,
		Owner:            apiOwner,
		Heirs:            []models.Heir{{Address: apiHeir, Bps: 10000}},
		InactivityPeriod: 90 * 24 * time.Hour,
		LastActiveAt:     f.clock.Now(),
		Balance:          decimal.NewFromInt(1000),
		CreatedAt:        f.clock.Now(),
	}
	err := f.store.CreateVault(context.Background(), v, store.FundingParams{
		From:         apiOwner,
		Deposit:      decimal.NewFromInt(1000),
		FeeSink:      apiSink,
		ExternalTxId: "fund-" + id,
	})
	require.NoError(t, err)
}

func (f *apiFixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	var body map[string]string
	code := f.get(t, "/healthz", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetVault(t *testing.T) {
	f := newAPIFixture(t)
	f.createVault(t, "v1")
	require.NoError(t, f.registry.Register(context.Background(), "v1", apiOwner))

	var body struct {
		Id             string `json:"id"`
		Owner          string `json:"owner"`
		Balance        string `json:"balance"`
		Tracked        bool   `json:"tracked"`
		Executed       bool   `json:"executed"`
		InactivitySecs int64  `json:"inactivity_period_seconds"`
		TimeRemaining  int64  `json:"time_remaining_seconds"`
		Heirs          []struct {
			Address string `json:"address"`
			Bps     int64  `json:"bps"`
		} `json:"heirs"`
	}
	code := f.get(t, "/vaults/v1", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "v1", body.Id)
	assert.Equal(t, apiOwner.Hex(), body.Owner)
	assert.Equal(t, "1000", body.Balance)
	assert.True(t, body.Tracked)
	assert.False(t, body.Executed)
	assert.Equal(t, int64(90*24*3600), body.InactivitySecs)
	assert.Equal(t, int64(90*24*3600), body.TimeRemaining)
	require.Len(t, body.Heirs, 1)
	assert.Equal(t, int64(10000), body.Heirs[0].Bps)
}

func TestGetVaultNotFound(t *testing.T) {
	f := newAPIFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/vaults/missing", nil))
}

func TestGetVaultBalances(t *testing.T) {
	f := newAPIFixture(t)
	f.createVault(t, "v1")

	var body struct {
		Balances []struct {
			Account string `json:"account"`
			Asset   string `json:"asset"`
			Balance string `json:"balance"`
		} `json:"balances"`
	}
	code := f.get(t, "/vaults/v1/balances", &body)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Balances, 1)
	assert.Equal(t, "vault:v1", body.Balances[0].Account)
	assert.Equal(t, "native", body.Balances[0].Asset)
	assert.Equal(t, "1000", body.Balances[0].Balance)
}

func TestGetVaultHistory(t *testing.T) {
	f := newAPIFixture(t)
	f.createVault(t, "v1")
	require.NoError(t, f.engine.DepositNative(context.Background(), "v1", apiOwner, decimal.NewFromInt(500), "dep-1"))

	var body struct {
		Transactions []struct {
			TransactionType string `json:"transaction_type"`
			Amount          string `json:"amount"`
			ExternalTxId    string `json:"external_tx_id"`
		} `json:"transactions"`
	}
	code := f.get(t, "/vaults/v1/history", &body)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body.Transactions, 2)

	var limited struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	code = f.get(t, "/vaults/v1/history?limit=1", &limited)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, limited.Transactions, 1)
}

func TestRegistryEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.createVault(t, "v1")
	f.createVault(t, "v2")
	require.NoError(t, f.registry.Register(context.Background(), "v1", apiOwner))
	require.NoError(t, f.registry.Register(context.Background(), "v2", apiOwner))

	var list struct {
		Vaults []string `json:"vaults"`
	}
	code := f.get(t, "/registry/vaults", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"v1", "v2"}, list.Vaults)

	var status struct {
		TrackedVaults int `json:"tracked_vaults"`
		Cursor        int `json:"cursor"`
		BatchSize     int `json:"batch_size"`
	}
	code = f.get(t, "/registry/status", &status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, status.TrackedVaults)
	assert.Equal(t, 0, status.Cursor)
	assert.Equal(t, registry.BatchSize, status.BatchSize)
}

func TestVaultsByRoleEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.createVault(t, "v1")

	var list struct {
		Vaults []string `json:"vaults"`
	}
	code := f.get(t, "/owners/"+apiOwner.Hex()+"/vaults", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"v1"}, list.Vaults)

	list.Vaults = nil
	code = f.get(t, "/heirs/"+apiHeir.Hex()+"/vaults", &list)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"v1"}, list.Vaults)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/owners/not-an-address/vaults", nil))
}
